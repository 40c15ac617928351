/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package editor owns a single editing session: the live document, the
// undo/redo history, the sidebar scene index, and the bookmark registry.
//
// Every user-facing editing action is an explicit command on the Session.
// Commands mutate the document, resynchronize derived state (scene numbering,
// sidebar) and commit a history snapshot — there is no ambient global state
// and nothing is inferred from observed tree changes.
package editor

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bep/debounce"

	"scenariowriter/internal/domain"
	"scenariowriter/internal/history"
	applog "scenariowriter/internal/log"
	"scenariowriter/internal/script"
)

// Options tunes a session. Zero values fall back to defaults.
type Options struct {
	HistoryLimit int
	SyncDebounce time.Duration
}

// SidebarEntry is one row of the derived scene index consumed by the
// presentation layer. It mirrors the document's scene sequence exactly.
type SidebarEntry struct {
	Number      string
	Location    string
	Active      bool
	HasBookmark bool
}

// lineRef addresses a rendered line by position: a scene plus a block index,
// with block -1 meaning the scene's heading line.
type lineRef struct {
	scene int
	block int
}

// Session is the editing session controller. Safe for concurrent use; the
// debounced sync callback runs on a timer goroutine.
type Session struct {
	mu        sync.Mutex
	log       *slog.Logger
	doc       *domain.Document
	hist      *history.Manager
	active    *domain.Scene
	sidebar   []SidebarEntry
	bookmarks map[lineRef]struct{}
	restoring bool
	debounced func(func())
	onSync    func([]SidebarEntry)
}

// NewSession starts a session on a freshly initialized document.
func NewSession(opts Options) *Session {
	return LoadSession(domain.NewDocument().Record(), opts)
}

// LoadSession starts a session on a document rebuilt from a structured
// record. History is reset to the loaded state.
func LoadSession(rec domain.Record, opts Options) *Session {
	win := opts.SyncDebounce
	if win <= 0 {
		win = 300 * time.Millisecond
	}
	s := &Session{
		log:       applog.WithComponent("editor"),
		doc:       domain.FromRecord(rec),
		hist:      history.NewManager(opts.HistoryLimit),
		bookmarks: make(map[lineRef]struct{}),
		debounced: debounce.New(win),
	}
	s.active = s.doc.Scenes[0]
	state, _ := s.doc.MarshalRecord()
	s.hist.Reset(state)
	s.syncLocked()
	return s
}

// SetOnSync installs a callback invoked with the fresh sidebar view after
// every sync. Used by the rendering layer; may be nil.
func (s *Session) SetOnSync(fn func([]SidebarEntry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSync = fn
}

// Document returns the live document. Callers must treat it as read-only and
// go through session commands for mutations.
func (s *Session) Document() *domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// ActiveScene returns the scene currently highlighted in the sidebar.
func (s *Session) ActiveScene() *domain.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Serialize returns the structured record of the current document state.
func (s *Session) Serialize() domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Record()
}

// RenderText returns the plain-text screenplay of the current document.
func (s *Session) RenderText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return script.Render(s.doc)
}

// InsertTogaki inserts an action/description block at the resolved point.
func (s *Session) InsertTogaki(a domain.Anchor, text string, hidden bool) (*domain.Block, error) {
	return s.insertBlock(a, domain.NewTogaki(text, hidden))
}

// InsertSerifu inserts a dialogue block; speaker is the original name.
func (s *Session) InsertSerifu(a domain.Anchor, speaker, text string, hidden bool) (*domain.Block, error) {
	return s.insertBlock(a, domain.NewSerifu(speaker, text, hidden))
}

// InsertTimeProgress inserts an elapsed-time marker.
func (s *Session) InsertTimeProgress(a domain.Anchor) (*domain.Block, error) {
	return s.insertBlock(a, domain.NewTimeProgress())
}

// InsertPageBreak inserts a pagination marker.
func (s *Session) InsertPageBreak(a domain.Anchor) (*domain.Block, error) {
	return s.insertBlock(a, domain.NewPageBreak())
}

func (s *Session) insertBlock(a domain.Anchor, b *domain.Block) (*domain.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ip, err := s.doc.ResolveInsertion(a, s.active)
	if err != nil {
		return nil, err
	}
	ip.Scene.InsertBlock(ip.Index, b)
	s.syncLocked()
	s.commitLocked()
	return b, nil
}

// RemoveBlock removes a block from its scene. Unknown blocks are a no-op.
func (s *Session) RemoveBlock(b *domain.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := b.Scene()
	if sc == nil || !sc.RemoveBlock(b) {
		return
	}
	s.syncLocked()
	s.commitLocked()
}

// AddScene appends a new scene, makes it active and returns it.
func (s *Session) AddScene() *domain.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := s.doc.AddScene()
	s.active = sc
	s.syncLocked()
	s.commitLocked()
	return sc
}

// InsertSceneAfter inserts a new scene after the given one and makes it
// active.
func (s *Session) InsertSceneAfter(after *domain.Scene) *domain.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := s.doc.InsertSceneAfter(after)
	s.active = sc
	s.syncLocked()
	s.commitLocked()
	return sc
}

// DeleteScene removes a scene. Deleting the last remaining scene is rejected
// and commits nothing; the document stays unchanged.
func (s *Session) DeleteScene(sc *domain.Scene) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.doc.DeleteScene(sc); err != nil {
		return err
	}
	s.syncLocked()
	s.commitLocked()
	return nil
}

// EditHeading updates a scene's heading fields. The displayed scene number is
// not part of the heading surface: it is derived from position and cannot be
// edited. The sidebar resync is debounced so rapid keystrokes batch into a
// single update; the history snapshot is committed immediately.
func (s *Session) EditHeading(sc *domain.Scene, location, timeSetting, hiddenDescription string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc.Location = location
	sc.TimeSetting = timeSetting
	sc.HiddenDescription = hiddenDescription
	s.commitLocked()
	s.debounced(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.syncLocked()
	})
}

// EditBlockText updates a block's text.
func (s *Session) EditBlockText(b *domain.Block, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.Text = text
	s.commitLocked()
}

// EditSpeaker updates a serifu block's authoritative original name. The
// padded display form is always derived from it on read.
func (s *Session) EditSpeaker(b *domain.Block, speaker string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.Speaker = speaker
	s.commitLocked()
}

// SelectScene highlights a scene in the sidebar. Selection is not document
// content, so no history snapshot results.
func (s *Session) SelectScene(sc *domain.Scene) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc == nil || s.doc.SceneIndex(sc) < 0 {
		return
	}
	s.active = sc
	s.syncLocked()
}

// Undo restores the previous snapshot, if any. Applying the restored state
// does not itself commit: mutation detection is suppressed during the
// programmatic restore.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.hist.Undo()
	if !ok {
		return false
	}
	s.applyRestoredLocked(state)
	return true
}

// Redo restores the next snapshot, if any.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.hist.Redo()
	if !ok {
		return false
	}
	s.applyRestoredLocked(state)
	return true
}

// HistoryDepths reports undo/redo stack sizes for diagnostics.
func (s *Session) HistoryDepths() (undoDepth, redoDepth int) { return s.hist.Depths() }

func (s *Session) applyRestoredLocked(state []byte) {
	s.restoring = true
	// the flag must clear even if rebuilding the document panics, or all
	// future commits would be suppressed
	defer func() { s.restoring = false }()
	doc, err := domain.UnmarshalRecord(state)
	if err != nil {
		s.log.Error("restore snapshot failed", slog.Any("err", err))
		return
	}
	prevIdx := s.doc.SceneIndex(s.active)
	s.doc = doc
	if prevIdx < 0 || prevIdx >= len(doc.Scenes) {
		prevIdx = 0
	}
	s.active = doc.Scenes[prevIdx]
	s.syncLocked()
}

func (s *Session) commitLocked() {
	if s.restoring {
		return
	}
	state, err := s.doc.MarshalRecord()
	if err != nil {
		s.log.Error("snapshot serialize failed", slog.Any("err", err))
		return
	}
	s.hist.Commit(state)
}

// SyncNow forces an immediate resync, bypassing the debounce window. The
// debounced path calls the same logic, so running it again right after
// changes nothing.
func (s *Session) SyncNow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncLocked()
}

// syncLocked renumbers scenes and rebuilds the sidebar view. The active
// selection is preserved by identity; when the active scene is gone it falls
// back to the first remaining scene.
func (s *Session) syncLocked() {
	s.doc.Renumber()
	if s.active == nil || s.doc.SceneIndex(s.active) < 0 {
		s.active = s.doc.Scenes[0]
	}
	entries := make([]SidebarEntry, 0, len(s.doc.Scenes))
	for i, sc := range s.doc.Scenes {
		entries = append(entries, SidebarEntry{
			Number:      sc.Label,
			Location:    sc.Location,
			Active:      sc == s.active,
			HasBookmark: s.sceneBookmarkedLocked(i),
		})
	}
	s.sidebar = entries
	if s.onSync != nil {
		s.onSync(append([]SidebarEntry(nil), entries...))
	}
}

// Sidebar returns the derived scene index as of the last sync.
func (s *Session) Sidebar() []SidebarEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SidebarEntry(nil), s.sidebar...)
}
