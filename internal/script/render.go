/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package script converts between the document model and the plain-text
// screenplay form used for export and import. Rendering is a pure function of
// document state: identical documents always yield byte-identical output.
package script

import (
	"strings"

	"scenariowriter/internal/domain"
)

// Fixed literals of the text form.
const (
	HiddenMarker     = "※"
	TogakiIndent     = "　"         // full-width space
	TimeProgressLine = "×　×　×" // elapsed-time glyph run
	PageBreakLine    = "＝＝＝＝＝＝＝＝"       // page separator literal
	openBracket      = "「"
	closeBracket     = "」"
)

// Render produces the plain-text screenplay for a whole document. Each scene
// renders as a heading line (`id location [time]`), an optional hidden-heading
// line, a blank line, then its blocks separated by blank lines. Scenes are
// separated by a double blank line.
func Render(d *domain.Document) string {
	parts := make([]string, 0, len(d.Scenes))
	for i, s := range d.Scenes {
		parts = append(parts, renderScene(s, i+1))
	}
	return strings.Join(parts, "\n\n\n") + "\n"
}

func renderScene(s *domain.Scene, number int) string {
	var b strings.Builder
	label := s.Label
	if label == "" {
		label = domain.SceneLabel(number)
	}
	b.WriteString(label)
	b.WriteString(" ")
	b.WriteString(s.Location)
	if s.TimeSetting != "" {
		b.WriteString(" [")
		b.WriteString(s.TimeSetting)
		b.WriteString("]")
	}
	if s.HiddenDescription != "" {
		b.WriteString("\n")
		b.WriteString(HiddenMarker)
		b.WriteString(s.HiddenDescription)
	}
	lines := make([]string, 0, len(s.Content))
	for _, blk := range s.Content {
		lines = append(lines, renderBlock(blk))
	}
	if len(lines) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(lines, "\n\n"))
	}
	return b.String()
}

func renderBlock(b *domain.Block) string {
	switch b.Type {
	case domain.BlockSerifu:
		first, rest := splitLines(b.Text)
		line := b.Speaker + openBracket + first + closeBracket
		if b.Hidden {
			line = HiddenMarker + line
		}
		return joinContinuations(line, rest)
	case domain.BlockTimeProgress:
		return TimeProgressLine
	case domain.BlockPageBreak:
		return PageBreakLine
	default:
		first, rest := splitLines(b.Text)
		line := TogakiIndent + first
		if b.Hidden {
			line = HiddenMarker + line
		}
		return joinContinuations(line, rest)
	}
}

func splitLines(text string) (string, []string) {
	lines := strings.Split(text, "\n")
	return lines[0], lines[1:]
}

// Continuation lines of a multi-line block carry the togaki indent so the
// parser folds them back into the same block.
func joinContinuations(first string, rest []string) string {
	var b strings.Builder
	b.WriteString(first)
	for _, l := range rest {
		b.WriteString("\n")
		b.WriteString(TogakiIndent)
		b.WriteString(l)
	}
	return b.String()
}
