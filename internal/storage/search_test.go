/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */
package storage

import (
	"context"
	"strings"
	"testing"
)

func buildSearchFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := BuildIndexIfEmpty(context.Background(), root, testRecord()); err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	return root
}

func TestSearchFullText(t *testing.T) {
	root := buildSearchFixture(t)
	res, err := Search(context.Background(), root, SearchQuery{Text: "dark"})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(res) != 1 {
		t.Fatalf("results = %d, want 1", len(res))
	}
	if res[0].Type != "togaki" || res[0].SceneNo != 1 {
		t.Fatalf("unexpected result: %+v", res[0])
	}
	if !strings.Contains(res[0].Snippet, "[dark]") {
		t.Fatalf("snippet not highlighted: %q", res[0].Snippet)
	}
}

func TestSearchCharacterFilter(t *testing.T) {
	root := buildSearchFixture(t)
	res, err := Search(context.Background(), root, SearchQuery{Character: "taro"})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(res) != 1 {
		t.Fatalf("results = %d, want 1", len(res))
	}
	if res[0].SceneNo != 2 || res[0].Type != "serifu" {
		t.Fatalf("unexpected result: %+v", res[0])
	}
}

func TestSearchTypeAndSceneFilters(t *testing.T) {
	root := buildSearchFixture(t)
	res, err := Search(context.Background(), root, SearchQuery{Types: []string{"heading"}, SceneFrom: 2, SceneTo: 2})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(res) != 1 {
		t.Fatalf("results = %d, want 1", len(res))
	}
	if res[0].SceneNo != 2 {
		t.Fatalf("scene filter failed: %+v", res[0])
	}
}

func TestSearchNoTextScansWithFilters(t *testing.T) {
	root := buildSearchFixture(t)
	res, err := Search(context.Background(), root, SearchQuery{Types: []string{"hidden_description"}})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(res) != 1 {
		t.Fatalf("results = %d, want 1", len(res))
	}
	if res[0].SceneNo != 1 {
		t.Fatalf("unexpected result: %+v", res[0])
	}
}
