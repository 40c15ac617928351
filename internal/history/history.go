/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package history provides undo/redo over whole-document snapshots.
//
// The manager keeps the last committed state plus two bounded stacks: undo
// (older states, oldest evicted beyond the cap) and redo (states superseded
// by an undo, cleared on any new commit). Snapshot blobs are opaque; callers
// serialize the document and re-apply whatever the manager hands back.
package history

import (
	"bytes"
	"sync"
)

// DefaultLimit bounds the undo stack depth.
const DefaultLimit = 50

// Manager is a bounded double-stack snapshot history. It is safe for
// concurrent use.
type Manager struct {
	mu         sync.Mutex
	limit      int
	current    []byte
	hasCurrent bool
	undo       [][]byte
	redo       [][]byte
}

// NewManager returns a manager with the given undo depth cap; values <= 0
// fall back to DefaultLimit.
func NewManager(limit int) *Manager {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Manager{limit: limit}
}

// Reset installs state as the current snapshot and drops both stacks. Called
// at session/document load.
func (m *Manager) Reset(state []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = clone(state)
	m.hasCurrent = true
	m.undo = nil
	m.redo = nil
}

// Commit records a new state. A state equal to the current snapshot is a
// no-op, suppressing redundant snapshots from non-content mutations.
// Otherwise the old current state moves onto the undo stack (evicting the
// oldest entry beyond the cap), the redo stack is cleared, and state becomes
// current. It reports whether a snapshot was recorded.
func (m *Manager) Commit(state []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hasCurrent && bytes.Equal(state, m.current) {
		return false
	}
	if m.hasCurrent {
		m.undo = append(m.undo, m.current)
		if len(m.undo) > m.limit {
			m.undo = append([][]byte{}, m.undo[len(m.undo)-m.limit:]...)
		}
	}
	m.redo = nil
	m.current = clone(state)
	m.hasCurrent = true
	return true
}

// Undo steps back one snapshot and returns the restored state for the caller
// to apply. With an empty undo stack it is a no-op.
func (m *Manager) Undo() ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.undo) == 0 {
		return nil, false
	}
	m.redo = append(m.redo, m.current)
	m.current = m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	return clone(m.current), true
}

// Redo steps forward one snapshot previously superseded by Undo. With an
// empty redo stack it is a no-op.
func (m *Manager) Redo() ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.redo) == 0 {
		return nil, false
	}
	m.undo = append(m.undo, m.current)
	m.current = m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	return clone(m.current), true
}

// Current returns a copy of the current snapshot, or nil before Reset.
func (m *Manager) Current() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasCurrent {
		return nil
	}
	return clone(m.current)
}

// Depths reports the undo and redo stack sizes for diagnostics.
func (m *Manager) Depths() (undoDepth, redoDepth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo), len(m.redo)
}

func clone(b []byte) []byte { return append([]byte(nil), b...) }
