/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"errors"
	"fmt"
)

// BlockType tags the kind of a content block.
type BlockType string

const (
	BlockTogaki       BlockType = "togaki"
	BlockSerifu       BlockType = "serifu"
	BlockTimeProgress BlockType = "time_progress"
	BlockPageBreak    BlockType = "page_break"
)

// Errors reported by document mutations and insertion resolution.
// Both are recoverable: the document is left unchanged and the caller
// surfaces a message or creates an initial scene and retries.
var (
	ErrLastScene     = errors.New("cannot delete the last remaining scene")
	ErrNoTargetScene = errors.New("no target scene")
)

// Block is a single content element inside a scene body. For serifu blocks,
// Speaker holds the authoritative original name; its padded display form is
// always derived via FormatSpeakerName and never stored.
type Block struct {
	Type    BlockType
	Text    string
	Speaker string
	Hidden  bool

	scene *Scene // non-owning back-reference, maintained by scene mutations
}

// Scene returns the scene currently owning this block, or nil when detached.
func (b *Block) Scene() *Scene { return b.scene }

// DisplaySpeaker returns the derived display form of the speaker name.
func (b *Block) DisplaySpeaker() SpeakerDisplay { return FormatSpeakerName(b.Speaker) }

// NewTogaki returns an action/description block.
func NewTogaki(text string, hidden bool) *Block {
	return &Block{Type: BlockTogaki, Text: text, Hidden: hidden}
}

// NewSerifu returns a dialogue block. speaker is the original, unformatted name.
func NewSerifu(speaker, text string, hidden bool) *Block {
	return &Block{Type: BlockSerifu, Speaker: speaker, Text: text, Hidden: hidden}
}

// NewTimeProgress returns an in-scene elapsed-time marker.
func NewTimeProgress() *Block { return &Block{Type: BlockTimeProgress} }

// NewPageBreak returns an explicit pagination marker.
func NewPageBreak() *Block { return &Block{Type: BlockPageBreak} }

// Scene is a screenplay unit: a heading plus an ordered body of blocks.
// Label is derived from the scene's position in the document; Renumber
// overwrites it, so edits to it never stick.
type Scene struct {
	Label             string
	Location          string
	TimeSetting       string
	HiddenDescription string
	LeftContent       string // opaque annotation payload, carried but not interpreted
	Content           []*Block

	doc *Document
}

// Document returns the owning document, or nil when detached.
func (s *Scene) Document() *Document { return s.doc }

// InsertBlock inserts b at index i in the scene body. Indexes out of range are
// clamped to the body bounds so a stale insertion point degrades to an append.
func (s *Scene) InsertBlock(i int, b *Block) {
	if i < 0 {
		i = 0
	}
	if i > len(s.Content) {
		i = len(s.Content)
	}
	s.Content = append(s.Content, nil)
	copy(s.Content[i+1:], s.Content[i:])
	s.Content[i] = b
	b.scene = s
}

// AppendBlock appends b to the end of the scene body.
func (s *Scene) AppendBlock(b *Block) { s.InsertBlock(len(s.Content), b) }

// RemoveBlock removes b from the scene body. It reports whether b was found.
func (s *Scene) RemoveBlock(b *Block) bool {
	for i, c := range s.Content {
		if c == b {
			s.Content = append(s.Content[:i], s.Content[i+1:]...)
			b.scene = nil
			return true
		}
	}
	return false
}

// BlockIndex returns the index of b in the scene body, or -1.
func (s *Scene) BlockIndex(b *Block) int {
	for i, c := range s.Content {
		if c == b {
			return i
		}
	}
	return -1
}

// Document is an ordered sequence of scenes. Use NewDocument to construct;
// a document with zero scenes is invalid.
type Document struct {
	Scenes []*Scene
}

// NewDocument returns a document with a single empty scene, numbered.
func NewDocument() *Document {
	d := &Document{}
	d.AddScene()
	return d
}

// AddScene appends an empty scene and renumbers.
func (d *Document) AddScene() *Scene {
	s := &Scene{doc: d}
	d.Scenes = append(d.Scenes, s)
	d.Renumber()
	return s
}

// InsertSceneAfter inserts a new empty scene directly after the given scene
// and renumbers. When after is nil or not part of the document the new scene
// is appended.
func (d *Document) InsertSceneAfter(after *Scene) *Scene {
	idx := d.SceneIndex(after)
	if idx < 0 {
		return d.AddScene()
	}
	s := &Scene{doc: d}
	d.Scenes = append(d.Scenes, nil)
	copy(d.Scenes[idx+2:], d.Scenes[idx+1:])
	d.Scenes[idx+1] = s
	d.Renumber()
	return s
}

// DeleteScene removes s from the document and renumbers. Deleting the only
// remaining scene is rejected with ErrLastScene and leaves the document
// unchanged.
func (d *Document) DeleteScene(s *Scene) error {
	if len(d.Scenes) <= 1 {
		return ErrLastScene
	}
	idx := d.SceneIndex(s)
	if idx < 0 {
		return fmt.Errorf("delete scene: scene not in document")
	}
	d.Scenes = append(d.Scenes[:idx], d.Scenes[idx+1:]...)
	s.doc = nil
	d.Renumber()
	return nil
}

// MoveScene moves the scene at index from to index to, then renumbers.
func (d *Document) MoveScene(from, to int) error {
	n := len(d.Scenes)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("move scene: index out of range (%d -> %d of %d)", from, to, n)
	}
	if from == to {
		return nil
	}
	s := d.Scenes[from]
	d.Scenes = append(d.Scenes[:from], d.Scenes[from+1:]...)
	d.Scenes = append(d.Scenes, nil)
	copy(d.Scenes[to+1:], d.Scenes[to:])
	d.Scenes[to] = s
	d.Renumber()
	return nil
}

// SceneIndex returns the index of s in the document, or -1.
func (d *Document) SceneIndex(s *Scene) int {
	for i, c := range d.Scenes {
		if c == s {
			return i
		}
	}
	return -1
}

// Renumber derives every scene label from its position. Labels are never a
// source of truth; running this twice in a row changes nothing.
func (d *Document) Renumber() {
	for i, s := range d.Scenes {
		s.Label = SceneLabel(i + 1)
	}
}

// SceneLabel formats a 1-based scene number as a zero-padded 3-digit label.
func SceneLabel(n int) string { return fmt.Sprintf("%03d", n) }
