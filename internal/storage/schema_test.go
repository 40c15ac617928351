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
	"os"
	"testing"
)

func TestManifestConformsToSchema(t *testing.T) {
	root := t.TempDir()
	sh, err := InitScenario(root, minimalManifest())
	if err != nil {
		t.Fatalf("InitScenario error: %v", err)
	}
	data, err := os.ReadFile(sh.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if err := ValidateManifest(data); err != nil {
		t.Fatalf("written manifest fails its own schema: %v", err)
	}
}

func TestValidateManifestRejectsBadBlockType(t *testing.T) {
	bad := []byte(`{
		"schema_version": 1,
		"scenario": {"scenes": [
			{"scene_id": "001", "content": [{"type": "monologue", "text": "x"}]}
		]}
	}`)
	if err := ValidateManifest(bad); err == nil {
		t.Fatalf("expected schema error for unknown block type")
	}
}

func TestValidateManifestRejectsMissingScenario(t *testing.T) {
	if err := ValidateManifest([]byte(`{"schema_version": 1}`)); err == nil {
		t.Fatalf("expected schema error for missing scenario")
	}
}
