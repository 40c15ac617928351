/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// WideSpace is the em-width space used to pad short speaker names so dialogue
// name columns line up at three characters.
const WideSpace = " "

// SpeakerDisplay is the derived presentation of a speaker name. Text is what
// gets rendered in the name column; Long flags names of four or more
// characters for long-name styling.
type SpeakerDisplay struct {
	Text string
	Long bool
}

// FormatSpeakerName derives the display form of an original speaker name:
// 1-character names are padded with a wide space on both sides, 2-character
// names get a wide space between the characters, 3-character names are shown
// bare, and longer names are shown bare with the Long flag set.
//
// The derivation is idempotent: a padded 1- or 2-character name is three
// runes long and passes through the 3-character case unchanged, so feeding a
// display form back in never double-pads.
func FormatSpeakerName(original string) SpeakerDisplay {
	r := []rune(original)
	switch len(r) {
	case 0:
		return SpeakerDisplay{}
	case 1:
		return SpeakerDisplay{Text: WideSpace + original + WideSpace}
	case 2:
		return SpeakerDisplay{Text: string(r[0]) + WideSpace + string(r[1])}
	case 3:
		return SpeakerDisplay{Text: original}
	default:
		return SpeakerDisplay{Text: original, Long: true}
	}
}
