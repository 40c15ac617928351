/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package editor

import "scenariowriter/internal/domain"

// Line is one rendered line of the document as presented in the gutter: a
// scene heading or a single content block, numbered sequentially across the
// whole document.
type Line struct {
	Number     int
	SceneIndex int
	BlockIndex int // -1 for the scene heading line
	Scene      *domain.Scene
	Block      *domain.Block
	Bookmarked bool
}

// Lines computes the rendered line listing with sequential numbering. Line
// order follows document order: each scene contributes its heading line
// followed by its blocks in insertion order.
func (s *Session) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Line
	n := 0
	for si, sc := range s.doc.Scenes {
		n++
		out = append(out, Line{
			Number:     n,
			SceneIndex: si,
			BlockIndex: -1,
			Scene:      sc,
			Bookmarked: s.bookmarkedLocked(lineRef{scene: si, block: -1}),
		})
		for bi, b := range sc.Content {
			n++
			out = append(out, Line{
				Number:     n,
				SceneIndex: si,
				BlockIndex: bi,
				Scene:      sc,
				Block:      b,
				Bookmarked: s.bookmarkedLocked(lineRef{scene: si, block: bi}),
			})
		}
	}
	return out
}

// ToggleBookmark flips the bookmark on the line addressed by scene and block
// index (block -1 addresses the heading line). It reports the new state.
// Bookmarks are gutter annotations: they never touch document content and
// never commit history, but they do feed the per-scene sidebar aggregate.
func (s *Session) ToggleBookmark(sceneIndex, blockIndex int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := lineRef{scene: sceneIndex, block: blockIndex}
	if _, ok := s.bookmarks[ref]; ok {
		delete(s.bookmarks, ref)
		s.syncLocked()
		return false
	}
	s.bookmarks[ref] = struct{}{}
	s.syncLocked()
	return true
}

// Bookmarked reports whether the addressed line carries a bookmark.
func (s *Session) Bookmarked(sceneIndex, blockIndex int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookmarkedLocked(lineRef{scene: sceneIndex, block: blockIndex})
}

func (s *Session) bookmarkedLocked(ref lineRef) bool {
	_, ok := s.bookmarks[ref]
	return ok
}

func (s *Session) sceneBookmarkedLocked(sceneIndex int) bool {
	for ref := range s.bookmarks {
		if ref.scene == sceneIndex {
			return true
		}
	}
	return false
}
