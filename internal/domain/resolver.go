/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// Anchor describes where the cursor or selection sits when an insert command
// arrives. The rendering layer translates raw gestures into one of three
// shapes: inside a specific block (Block set), somewhere in a scene's heading
// or content container (Scene set), or nowhere useful (both nil).
type Anchor struct {
	Block *Block
	Scene *Scene
}

// InsertionPoint is a resolved target: the owning scene and the index in its
// content list where a new block goes.
type InsertionPoint struct {
	Scene *Scene
	Index int
}

// ResolveInsertion computes the insertion point for a new content block.
// Priority order, first match wins:
//
//  1. Anchor inside an existing block: directly after that block.
//  2. Anchor within a scene but not inside a block: end of that scene's body.
//  3. No owning scene resolvable: the highlighted sidebar scene, else the
//     first scene of the document.
//
// An empty document cannot be resolved into; the caller must create an
// initial scene and retry. Resolution never mutates the document.
func (d *Document) ResolveInsertion(a Anchor, highlighted *Scene) (InsertionPoint, error) {
	if b := a.Block; b != nil && b.scene != nil && b.scene.doc == d {
		return InsertionPoint{Scene: b.scene, Index: b.scene.BlockIndex(b) + 1}, nil
	}
	if s := a.Scene; s != nil && s.doc == d {
		return InsertionPoint{Scene: s, Index: len(s.Content)}, nil
	}
	if highlighted != nil && highlighted.doc == d {
		return InsertionPoint{Scene: highlighted, Index: len(highlighted.Content)}, nil
	}
	if len(d.Scenes) > 0 {
		first := d.Scenes[0]
		return InsertionPoint{Scene: first, Index: len(first.Content)}, nil
	}
	return InsertionPoint{}, ErrNoTargetScene
}
