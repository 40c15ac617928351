/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package history

import (
	"fmt"
	"testing"
)

func TestUndoRedoBasic(t *testing.T) {
	m := NewManager(0)
	m.Reset([]byte("a"))
	if !m.Commit([]byte("b")) {
		t.Fatalf("commit b not recorded")
	}
	if !m.Commit([]byte("c")) {
		t.Fatalf("commit c not recorded")
	}
	s, ok := m.Undo()
	if !ok || string(s) != "b" {
		t.Fatalf("undo expected 'b', got ok=%v state=%q", ok, s)
	}
	s, ok = m.Undo()
	if !ok || string(s) != "a" {
		t.Fatalf("undo expected 'a', got ok=%v state=%q", ok, s)
	}
	s, ok = m.Redo()
	if !ok || string(s) != "b" {
		t.Fatalf("redo expected 'b', got ok=%v state=%q", ok, s)
	}
	s, ok = m.Redo()
	if !ok || string(s) != "c" {
		t.Fatalf("redo expected 'c', got ok=%v state=%q", ok, s)
	}
}

func TestEmptyStacksAreNoOps(t *testing.T) {
	m := NewManager(0)
	m.Reset([]byte("a"))
	if _, ok := m.Undo(); ok {
		t.Fatalf("undo on empty stack succeeded")
	}
	if _, ok := m.Redo(); ok {
		t.Fatalf("redo on empty stack succeeded")
	}
	if string(m.Current()) != "a" {
		t.Fatalf("current changed by no-op")
	}
}

func TestRedundantCommitSuppressed(t *testing.T) {
	m := NewManager(0)
	m.Reset([]byte("a"))
	m.Commit([]byte("b"))
	if m.Commit([]byte("b")) {
		t.Fatalf("redundant commit was recorded")
	}
	if u, _ := m.Depths(); u != 1 {
		t.Fatalf("undo stack grew on redundant commit: %d", u)
	}
}

func TestCommitClearsRedo(t *testing.T) {
	m := NewManager(0)
	m.Reset([]byte("a"))
	m.Commit([]byte("b"))
	if _, ok := m.Undo(); !ok {
		t.Fatalf("undo failed")
	}
	m.Commit([]byte("c"))
	if _, r := m.Depths(); r != 0 {
		t.Fatalf("redo stack not cleared by commit: %d", r)
	}
	if _, ok := m.Redo(); ok {
		t.Fatalf("redo succeeded after a fresh commit")
	}
}

// Committing 60 distinct states on top of an initial one keeps at most 50
// older states; undoing all the way lands on the oldest retained state, not
// the original first one.
func TestBoundedDepthEvictsOldest(t *testing.T) {
	m := NewManager(50)
	m.Reset([]byte("s0"))
	for i := 1; i <= 60; i++ {
		m.Commit([]byte(fmt.Sprintf("s%d", i)))
	}
	if u, _ := m.Depths(); u != 50 {
		t.Fatalf("undo depth = %d, want 50", u)
	}
	var last []byte
	steps := 0
	for {
		s, ok := m.Undo()
		if !ok {
			break
		}
		last = s
		steps++
	}
	if steps != 50 {
		t.Fatalf("undo steps = %d, want 50", steps)
	}
	if string(last) != "s10" {
		t.Fatalf("oldest retained state = %q, want %q", last, "s10")
	}
}

func TestSnapshotsAreCopied(t *testing.T) {
	m := NewManager(0)
	buf := []byte("abc")
	m.Reset(buf)
	buf[0] = 'x'
	if string(m.Current()) != "abc" {
		t.Fatalf("manager aliased caller buffer")
	}
	got := m.Current()
	got[0] = 'y'
	if string(m.Current()) != "abc" {
		t.Fatalf("caller mutated internal state through returned slice")
	}
}
