/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package domain defines the screenplay content model: a Document holding an
// ordered sequence of Scenes, each with a heading (location, time setting,
// hidden notes) and an ordered body of typed content blocks (togaki, serifu,
// time-progress markers, page breaks). It also carries the structured record
// used for persistence, the insertion-point resolver, and the derived
// speaker-name display formatting.
//
// A valid Document always contains at least one Scene, and Scene labels are
// derived from position (index+1, zero-padded), never edited directly.
package domain
