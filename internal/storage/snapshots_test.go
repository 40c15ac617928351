/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"
)

func TestDocSnapshotLifecycle(t *testing.T) {
	root := t.TempDir()
	sh, err := InitScenario(root, minimalManifest())
	if err != nil {
		t.Fatalf("InitScenario error: %v", err)
	}
	ctx := context.Background()

	if blob, _, err := LatestDocSnapshot(ctx, sh); err != nil || blob != nil {
		t.Fatalf("expected no snapshot yet, got blob=%v err=%v", blob, err)
	}

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		blob := []byte(fmt.Sprintf(`{"scenes":[],"n":%d}`, i))
		if err := SaveDocSnapshot(ctx, sh, fmt.Sprintf("rev-%d", i), blob, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("SaveDocSnapshot %d: %v", i, err)
		}
	}

	blob, ts, err := LatestDocSnapshot(ctx, sh)
	if err != nil {
		t.Fatalf("LatestDocSnapshot error: %v", err)
	}
	if !bytes.Contains(blob, []byte(`"n":2`)) {
		t.Fatalf("latest snapshot wrong: %s", blob)
	}
	if !ts.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("latest ts = %v", ts)
	}

	list, err := ListDocSnapshots(ctx, sh, 10)
	if err != nil {
		t.Fatalf("ListDocSnapshots error: %v", err)
	}
	if len(list) != 3 || list[0].Label != "rev-2" || list[2].Label != "rev-0" {
		t.Fatalf("list wrong: %+v", list)
	}

	removed, err := PruneDocSnapshots(ctx, sh, 1)
	if err != nil {
		t.Fatalf("PruneDocSnapshots error: %v", err)
	}
	if removed != 2 {
		t.Fatalf("pruned %d, want 2", removed)
	}
	list, err = ListDocSnapshots(ctx, sh, 10)
	if err != nil {
		t.Fatalf("list after prune: %v", err)
	}
	if len(list) != 1 || list[0].Label != "rev-2" {
		t.Fatalf("prune kept wrong snapshots: %+v", list)
	}
}

func TestCommitDocSnapshotEnforcesRetention(t *testing.T) {
	root := t.TempDir()
	sh, err := InitScenario(root, minimalManifest())
	if err != nil {
		t.Fatalf("InitScenario error: %v", err)
	}
	ctx := context.Background()

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i := 0; i < SnapshotRetention+5; i++ {
		blob := []byte(fmt.Sprintf(`{"scenes":[],"n":%d}`, i))
		if err := CommitDocSnapshot(ctx, sh, "save", blob, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("CommitDocSnapshot %d: %v", i, err)
		}
	}

	list, err := ListDocSnapshots(ctx, sh, SnapshotRetention+10)
	if err != nil {
		t.Fatalf("ListDocSnapshots error: %v", err)
	}
	if len(list) != SnapshotRetention {
		t.Fatalf("retained %d snapshots, want %d", len(list), SnapshotRetention)
	}
	if !bytes.Contains(list[0].Blob, []byte(fmt.Sprintf(`"n":%d`, SnapshotRetention+4))) {
		t.Fatalf("newest snapshot wrong: %s", list[0].Blob)
	}
}
