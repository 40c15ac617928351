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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"scenariowriter/internal/domain"
)

const (
	ManifestFileName = "scenario.json"
	BackupsDirName   = "backups"

	// ManifestSchemaVersion is written into new manifests. Readers accept
	// older versions; unknown newer versions fail validation.
	ManifestSchemaVersion = 1
)

// Standard subfolders created under a scenario root.
var standardSubDirs = []string{
	"script",
	"exports",
	BackupsDirName,
}

// Manifest is the canonical on-disk representation of a scenario project.
type Manifest struct {
	SchemaVersion int           `json:"schema_version"`
	Title         string        `json:"title"`
	Author        string        `json:"author,omitempty"`
	Scenario      domain.Record `json:"scenario"`
}

// ScenarioHandle keeps track of the scenario state loaded/saved from disk.
// Root is the scenario directory containing scenario.json and subfolders.
type ScenarioHandle struct {
	Root         string
	ManifestPath string
	Manifest     Manifest
}

// InitScenario creates a new scenario directory at root (creating it if it doesn't exist),
// scaffolds the standard subfolders, and writes the given manifest transactionally.
func InitScenario(root string, m Manifest) (*ScenarioHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if m.SchemaVersion == 0 {
		m.SchemaVersion = ManifestSchemaVersion
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create scenario root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}

	sh := &ScenarioHandle{
		Root:         root,
		ManifestPath: filepath.Join(root, ManifestFileName),
		Manifest:     m,
	}
	if err := Save(sh); err != nil {
		return nil, err
	}
	return sh, nil
}

// Open loads an existing scenario from the given root directory.
// If the current manifest cannot be read, parsed, or validated against the
// manifest schema, it will attempt the latest backup.
func Open(root string) (*ScenarioHandle, error) {
	mpath := filepath.Join(root, ManifestFileName)
	b, err := os.ReadFile(mpath)
	if err != nil {
		m, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("open manifest: %w; backup attempt: %v", err, berr)
		}
		return &ScenarioHandle{Root: root, ManifestPath: mpath, Manifest: *m}, nil
	}
	m, perr := parseManifest(b)
	if perr != nil {
		bm, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("parse manifest: %w; backup attempt: %v", perr, berr)
		}
		return &ScenarioHandle{Root: root, ManifestPath: mpath, Manifest: *bm}, nil
	}
	return &ScenarioHandle{Root: root, ManifestPath: mpath, Manifest: *m}, nil
}

// parseManifest unmarshals and schema-validates manifest bytes.
func parseManifest(b []byte) (*Manifest, error) {
	if err := ValidateManifest(b); err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	if m.SchemaVersion > ManifestSchemaVersion {
		return nil, fmt.Errorf("manifest schema version %d is newer than supported %d", m.SchemaVersion, ManifestSchemaVersion)
	}
	return &m, nil
}

// Save writes the current ScenarioHandle.Manifest to disk with transactional semantics
// and a timestamped backup of the previous manifest (if present).
func Save(sh *ScenarioHandle) error {
	if sh == nil {
		return errors.New("nil ScenarioHandle")
	}
	if sh.Root == "" || sh.ManifestPath == "" {
		return errors.New("invalid ScenarioHandle: missing paths")
	}
	data, err := json.MarshalIndent(sh.Manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')

	bdir := filepath.Join(sh.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}

	// If a current manifest exists, copy it to a timestamped backup before replacing
	if _, statErr := os.Stat(sh.ManifestPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405")
		bname := fmt.Sprintf("%s.%s.bak", ManifestFileName, stamp)
		bpath := filepath.Join(bdir, bname)
		if cerr := copyFile(sh.ManifestPath, bpath); cerr != nil {
			return fmt.Errorf("backup current manifest: %w", cerr)
		}
	}

	// Transactional write: to temp file in same directory, then rename over target
	dir := filepath.Dir(sh.ManifestPath)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", ManifestFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp manifest: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(sh.ManifestPath); err == nil {
		_ = os.Remove(sh.ManifestPath)
	}
	if rerr := os.Rename(temp, sh.ManifestPath); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace manifest: %w", rerr)
	}
	return nil
}

// SaveAs writes the manifest to a new root folder, scaffolding structure if needed, and updates the handle.
func SaveAs(sh *ScenarioHandle, newRoot string) error {
	if sh == nil {
		return errors.New("nil ScenarioHandle")
	}
	if newRoot == "" {
		return errors.New("new root is empty")
	}
	if err := os.MkdirAll(newRoot, 0o755); err != nil {
		return fmt.Errorf("create new root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(newRoot, d), 0o755); err != nil {
			return fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	sh.Root = newRoot
	sh.ManifestPath = filepath.Join(newRoot, ManifestFileName)
	return Save(sh)
}

// ScriptTextPath returns the path of the plain-text export inside the scenario.
func ScriptTextPath(root string) string {
	return filepath.Join(root, "script", "scenario.txt")
}

// WriteScriptText writes the rendered script text under script/ with the same
// transactional semantics as the manifest.
func WriteScriptText(sh *ScenarioHandle, text string) error {
	if sh == nil {
		return errors.New("nil ScenarioHandle")
	}
	path := ScriptTextPath(sh.Root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure script dir: %w", err)
	}
	temp := path + fmt.Sprintf(".tmp-%d-%d", os.Getpid(), rand.Int())
	if err := writeFileSync(temp, []byte(text)); err != nil {
		return fmt.Errorf("write temp script: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace script text: %w", err)
	}
	return nil
}

// ReadScriptText reads the plain-text export, if present.
func ReadScriptText(root string) (string, error) {
	b, err := os.ReadFile(ScriptTextPath(root))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// AutosaveCrashSnapshot writes the in-memory manifest to a timestamped file in
// backups/ without touching the live manifest. Used by the crash handler.
func AutosaveCrashSnapshot(sh *ScenarioHandle) (string, error) {
	if sh == nil {
		return "", errors.New("nil ScenarioHandle")
	}
	data, err := json.MarshalIndent(sh.Manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')
	bdir := filepath.Join(sh.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(bdir, fmt.Sprintf("autosave-crash-%s.json", stamp))
	if err := writeFileSync(path, data); err != nil {
		return "", fmt.Errorf("write autosave: %w", err)
	}
	return path, nil
}

// writeFileSync writes data to a file and ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return nil
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	if err := df.Sync(); err != nil {
		return err
	}
	return nil
}

// openFromLatestBackup tries to open the latest timestamped backup.
func openFromLatestBackup(root string) (*Manifest, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	latest := candidates[len(candidates)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return nil, fmt.Errorf("read latest backup: %w", err)
	}
	m, err := parseManifest(b)
	if err != nil {
		return nil, fmt.Errorf("parse latest backup: %w", err)
	}
	return m, nil
}
