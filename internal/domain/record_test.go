/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func sampleDocument() *Document {
	d := NewDocument()
	s1 := d.Scenes[0]
	s1.Location = "Office"
	s1.TimeSetting = "Morning"
	s1.HiddenDescription = "draft note"
	s1.AppendBlock(NewTogaki("He enters.", false))
	s1.AppendBlock(NewSerifu("Mika", "Hello", false))
	s1.AppendBlock(NewTimeProgress())
	s2 := d.AddScene()
	s2.Location = "Street"
	s2.AppendBlock(NewSerifu("A", "short name", true))
	s2.AppendBlock(NewTogaki("hidden direction", true))
	s2.AppendBlock(NewPageBreak())
	s2.LeftContent = "margin sketch"
	return d
}

func TestRecordRoundTrip(t *testing.T) {
	d := sampleDocument()
	rec := d.Record()
	back := FromRecord(rec)
	if !reflect.DeepEqual(back.Record(), rec) {
		t.Fatalf("round trip diverged:\n got %#v\nwant %#v", back.Record(), rec)
	}
	// speaker originals survive, not display forms
	if got := back.Scenes[1].Content[0].Speaker; got != "A" {
		t.Fatalf("speaker original lost: %q", got)
	}
	if got := back.Scenes[1].Content[0]; !got.Hidden || got.Type != BlockSerifu {
		t.Fatalf("hidden serifu not restored: %+v", got)
	}
}

func TestRecordJSONRoundTrip(t *testing.T) {
	d := sampleDocument()
	data, err := d.MarshalRecord()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := UnmarshalRecord(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back.Record(), d.Record()) {
		t.Fatalf("JSON round trip diverged")
	}
}

// The exact record shape from a minimal one-scene document: a togaki plus a
// serifu, with defaults substituted for absent heading fields.
func TestRecordShape(t *testing.T) {
	d := NewDocument()
	s := d.Scenes[0]
	s.Location = "Office"
	s.AppendBlock(NewTogaki("He enters.", false))
	s.AppendBlock(NewSerifu("Mika", "Hello", false))

	data, err := json.Marshal(d.Record())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"scenes":[{"scene_id":"001","location":"Office","time_setting":"","hidden_description":"","content":[{"type":"togaki","text":"He enters."},{"type":"serifu","character":"Mika","text":"Hello"}]}]}`
	if string(data) != want {
		t.Fatalf("record JSON mismatch:\n got  %s\n want %s", data, want)
	}
}

func TestRecordDefaultsMissingLabel(t *testing.T) {
	d := &Document{Scenes: []*Scene{{Location: "X"}}}
	rec := d.Record()
	if rec.Scenes[0].SceneID != "001" {
		t.Fatalf("missing label not defaulted: %q", rec.Scenes[0].SceneID)
	}
}

func TestFromRecordEmptyYieldsInitializedDocument(t *testing.T) {
	d := FromRecord(Record{})
	if len(d.Scenes) != 1 || d.Scenes[0].Label != "001" {
		t.Fatalf("empty record did not initialize a document: %+v", d)
	}
}

func TestFromRecordUnknownTypePreservedAsTogaki(t *testing.T) {
	rec := Record{Scenes: []SceneRecord{{Content: []BlockRecord{{Type: "mystery", Text: "keep me"}}}}}
	d := FromRecord(rec)
	b := d.Scenes[0].Content[0]
	if b.Type != BlockTogaki || b.Text != "keep me" {
		t.Fatalf("unknown block type lost data: %+v", b)
	}
}

func TestRecordDeterministic(t *testing.T) {
	d := sampleDocument()
	a, _ := d.MarshalRecord()
	b, _ := d.MarshalRecord()
	if string(a) != string(b) {
		t.Fatalf("serialization not deterministic")
	}
}
