/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "encoding/json"

// Record is the structured serialization of a whole document. It is the shape
// written to the scenario manifest and submitted to the backend.
type Record struct {
	Scenes []SceneRecord `json:"scenes"`
}

// SceneRecord serializes one scene. SceneID carries the derived label so the
// record is self-describing; on load it is recomputed from position anyway.
type SceneRecord struct {
	SceneID           string        `json:"scene_id"`
	Location          string        `json:"location"`
	TimeSetting       string        `json:"time_setting"`
	HiddenDescription string        `json:"hidden_description"`
	Content           []BlockRecord `json:"content"`
	LeftContent       string        `json:"left_content,omitempty"`
}

// BlockRecord serializes one content block. Hidden togaki and serifu use the
// hidden_ type variants; the block-level hidden flag is folded into Type.
// Character always carries the authoritative original speaker name, never the
// padded display form.
type BlockRecord struct {
	Type      string `json:"type"`
	Character string `json:"character,omitempty"`
	Text      string `json:"text,omitempty"`
}

// Record type names.
const (
	RecordTogaki       = "togaki"
	RecordHiddenTogaki = "hidden_togaki"
	RecordSerifu       = "serifu"
	RecordHiddenSerifu = "hidden_serifu"
	RecordTimeProgress = "time_progress"
	RecordPageBreak    = "page_break"
)

// Record serializes the document. It never fails on a structurally valid
// document: missing fields serialize as their defaults and a missing label is
// substituted with the derived scene number.
func (d *Document) Record() Record {
	rec := Record{Scenes: make([]SceneRecord, 0, len(d.Scenes))}
	for i, s := range d.Scenes {
		label := s.Label
		if label == "" {
			label = SceneLabel(i + 1)
		}
		sr := SceneRecord{
			SceneID:           label,
			Location:          s.Location,
			TimeSetting:       s.TimeSetting,
			HiddenDescription: s.HiddenDescription,
			Content:           make([]BlockRecord, 0, len(s.Content)),
			LeftContent:       s.LeftContent,
		}
		for _, b := range s.Content {
			sr.Content = append(sr.Content, blockRecord(b))
		}
		rec.Scenes = append(rec.Scenes, sr)
	}
	return rec
}

func blockRecord(b *Block) BlockRecord {
	switch b.Type {
	case BlockSerifu:
		t := RecordSerifu
		if b.Hidden {
			t = RecordHiddenSerifu
		}
		return BlockRecord{Type: t, Character: b.Speaker, Text: b.Text}
	case BlockTimeProgress:
		return BlockRecord{Type: RecordTimeProgress}
	case BlockPageBreak:
		return BlockRecord{Type: RecordPageBreak}
	default:
		t := RecordTogaki
		if b.Hidden {
			t = RecordHiddenTogaki
		}
		return BlockRecord{Type: t, Text: b.Text}
	}
}

// FromRecord rebuilds a document from a structured record. A record with zero
// scenes yields a freshly initialized document with one empty scene, keeping
// the at-least-one-scene invariant. Unknown block types are preserved as
// togaki so no text is lost.
func FromRecord(rec Record) *Document {
	d := &Document{}
	for _, sr := range rec.Scenes {
		s := &Scene{
			Location:          sr.Location,
			TimeSetting:       sr.TimeSetting,
			HiddenDescription: sr.HiddenDescription,
			LeftContent:       sr.LeftContent,
			doc:               d,
		}
		for _, br := range sr.Content {
			s.AppendBlock(blockFromRecord(br))
		}
		d.Scenes = append(d.Scenes, s)
	}
	if len(d.Scenes) == 0 {
		d.Scenes = append(d.Scenes, &Scene{doc: d})
	}
	d.Renumber()
	return d
}

func blockFromRecord(br BlockRecord) *Block {
	switch br.Type {
	case RecordSerifu:
		return NewSerifu(br.Character, br.Text, false)
	case RecordHiddenSerifu:
		return NewSerifu(br.Character, br.Text, true)
	case RecordHiddenTogaki:
		return NewTogaki(br.Text, true)
	case RecordTimeProgress:
		return NewTimeProgress()
	case RecordPageBreak:
		return NewPageBreak()
	default:
		return NewTogaki(br.Text, false)
	}
}

// MarshalRecord serializes the document record as indented JSON, the form
// written to disk and sent to the backend.
func (d *Document) MarshalRecord() ([]byte, error) {
	return json.MarshalIndent(d.Record(), "", "  ")
}

// UnmarshalRecord parses record JSON and rebuilds the document.
func UnmarshalRecord(data []byte) (*Document, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return FromRecord(rec), nil
}
