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
	"context"
	"os"
	"testing"

	"scenariowriter/internal/domain"
)

func testRecord() domain.Record {
	return domain.Record{Scenes: []domain.SceneRecord{
		{
			SceneID:           "001",
			Location:          "Office",
			TimeSetting:       "Night",
			HiddenDescription: "Mika is nervous",
			Content: []domain.BlockRecord{
				{Type: domain.RecordTogaki, Text: "He enters the dark room."},
				{Type: domain.RecordSerifu, Character: "Mika", Text: "Anyone here?"},
				{Type: domain.RecordTimeProgress},
			},
		},
		{
			SceneID:  "002",
			Location: "Street",
			Content: []domain.BlockRecord{
				{Type: domain.RecordHiddenSerifu, Character: "Taro", Text: "Keep walking."},
				{Type: domain.RecordPageBreak},
			},
		},
	}}
}

func TestInitOrOpenIndexCreatesDatabase(t *testing.T) {
	root := t.TempDir()
	db, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("InitOrOpenIndex error: %v", err)
	}
	defer db.Close()
	if _, err := os.Stat(IndexPath(root)); err != nil {
		t.Fatalf("index file missing: %v", err)
	}
	var schema int
	if err := db.QueryRow(`SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil {
		t.Fatalf("read version row: %v", err)
	}
	if schema != schemaVersion {
		t.Fatalf("schema = %d, want %d", schema, schemaVersion)
	}
}

func TestBuildIndexIfEmptyPopulatesDocuments(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	if err := BuildIndexIfEmpty(ctx, root, testRecord()); err != nil {
		t.Fatalf("BuildIndexIfEmpty error: %v", err)
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	var cnt int
	if err := db.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&cnt); err != nil {
		t.Fatalf("count: %v", err)
	}
	// 2 headings, 1 hidden description, 2 togaki/serifu in scene 1, 1 serifu
	// in scene 2; time_progress and page_break contribute nothing
	if cnt != 6 {
		t.Fatalf("documents count = %d, want 6", cnt)
	}
	var ch string
	if err := db.QueryRow(`SELECT character FROM documents WHERE type='serifu' AND scene_no=2`).Scan(&ch); err != nil {
		t.Fatalf("serifu row: %v", err)
	}
	if ch != "Taro" {
		t.Fatalf("character = %q, want Taro", ch)
	}
}

func TestBuildIndexIfEmptyIsNoOpWhenPopulated(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	if err := BuildIndexIfEmpty(ctx, root, testRecord()); err != nil {
		t.Fatalf("first build: %v", err)
	}
	// Second build with a different record must not replace existing content
	other := domain.Record{Scenes: []domain.SceneRecord{{SceneID: "001", Location: "Elsewhere"}}}
	if err := BuildIndexIfEmpty(ctx, root, other); err != nil {
		t.Fatalf("second build: %v", err)
	}
	res, err := Search(ctx, root, SearchQuery{Types: []string{"heading"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("heading rows = %d, want 2 (original index kept)", len(res))
	}
}

func TestUpdateIndexReplacesDocuments(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	if err := BuildIndexIfEmpty(ctx, root, testRecord()); err != nil {
		t.Fatalf("build: %v", err)
	}
	upd := domain.Record{Scenes: []domain.SceneRecord{{
		SceneID:  "001",
		Location: "Rooftop",
		Content:  []domain.BlockRecord{{Type: domain.RecordTogaki, Text: "Wind howls."}},
	}}}
	if err := UpdateIndex(ctx, root, upd); err != nil {
		t.Fatalf("UpdateIndex error: %v", err)
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	var cnt int
	if err := db.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&cnt); err != nil {
		t.Fatalf("count: %v", err)
	}
	if cnt != 2 {
		t.Fatalf("documents count = %d, want 2 after update", cnt)
	}
}

func TestDetectAndRebuildIndexOnCorruption(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	if err := BuildIndexIfEmpty(ctx, root, testRecord()); err != nil {
		t.Fatalf("build: %v", err)
	}
	// Clobber the database file to simulate on-disk corruption
	if err := os.WriteFile(IndexPath(root), []byte("this is not a sqlite file"), 0o644); err != nil {
		t.Fatalf("corrupt index: %v", err)
	}
	rebuilt, err := DetectAndRebuildIndex(ctx, root, testRecord())
	if err != nil {
		t.Fatalf("DetectAndRebuildIndex error: %v", err)
	}
	if !rebuilt {
		t.Fatalf("expected a rebuild")
	}
	res, err := Search(ctx, root, SearchQuery{Types: []string{"togaki"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res) == 0 {
		t.Fatalf("rebuilt index has no togaki rows")
	}
}
