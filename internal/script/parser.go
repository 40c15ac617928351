/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"bufio"
	"regexp"
	"strings"

	"scenariowriter/internal/domain"
)

// Error represents a parse problem with position context.
type Error struct {
	Line    int
	Message string
}

var (
	reHeading = regexp.MustCompile(`^(\d{3}) (.*?)(?: \[(.+)\])?$`)
	// The speaker must not start with an indent: an indented line ending in
	// 」 is a togaki (or a continuation), not dialogue.
	reSerifu = regexp.MustCompile(`^(※)?([^　 ][^「]*)「(.*)」$`)
)

// Parse reads the plain-text screenplay form back into a document, the
// inverse of Render. Blank lines delimit blocks; a heading line
// (`NNN location [time]`) starts a new scene, an immediately following
// ※-prefixed line is the hidden heading. Unrecognized lines are kept as
// togaki so no text is lost. A text with no heading yields a single untitled
// scene holding whatever content was found.
func Parse(input string) (*domain.Document, []Error) {
	d := &domain.Document{}
	var errs []Error
	var current *domain.Scene
	var lastBlock *domain.Block
	afterHeading := false

	ensureScene := func() *domain.Scene {
		if current == nil {
			current = d.AddScene()
		}
		return current
	}

	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			lastBlock = nil
			afterHeading = false
			continue
		}

		if m := reHeading.FindStringSubmatch(line); m != nil {
			current = d.AddScene()
			current.Location = m[2]
			current.TimeSetting = m[3]
			lastBlock = nil
			afterHeading = true
			continue
		}

		// Hidden heading: ※ line directly below the heading, before any blank.
		if afterHeading && strings.HasPrefix(line, HiddenMarker) && !strings.Contains(line, openBracket) {
			s := ensureScene()
			if s.HiddenDescription != "" {
				s.HiddenDescription += "\n"
			}
			s.HiddenDescription += strings.TrimPrefix(line, HiddenMarker)
			continue
		}
		afterHeading = false

		switch {
		case line == PageBreakLine:
			b := domain.NewPageBreak()
			ensureScene().AppendBlock(b)
			lastBlock = nil
		case line == TimeProgressLine:
			b := domain.NewTimeProgress()
			ensureScene().AppendBlock(b)
			lastBlock = nil
		default:
			if m := reSerifu.FindStringSubmatch(line); m != nil {
				b := domain.NewSerifu(m[2], m[3], m[1] == HiddenMarker)
				ensureScene().AppendBlock(b)
				lastBlock = b
				continue
			}
			hidden := strings.HasPrefix(line, HiddenMarker)
			text := strings.TrimPrefix(line, HiddenMarker)
			indented := strings.HasPrefix(text, TogakiIndent) || strings.HasPrefix(text, " ")
			text = strings.TrimPrefix(strings.TrimPrefix(text, TogakiIndent), " ")
			// Continuation: an indented line with a preceding block in the
			// same group extends that block's text.
			if indented && lastBlock != nil {
				lastBlock.Text += "\n" + text
				continue
			}
			b := domain.NewTogaki(text, hidden)
			ensureScene().AppendBlock(b)
			lastBlock = b
		}
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, Error{Line: lineNo, Message: err.Error()})
	}

	if len(d.Scenes) == 0 {
		d.AddScene()
	}
	d.Renumber()
	return d, errs
}
