/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"
	"scenariowriter/internal/domain"
	"scenariowriter/internal/script"
	"scenariowriter/internal/storage"
)

// PDFOptions controls PDF export behavior.
// Units are points (pt).
//
// Built-in Helvetica keeps text vector without embedding but cannot render
// CJK glyphs; set FontPath to a UTF-8 TTF to export Japanese scripts.
type PDFOptions struct {
	FontPath      string  // optional TTF to embed; required for CJK text
	FontSize      float64 // body size, default 12
	IncludeHidden bool    // include hidden blocks in the export
}

const (
	pageWidth  = 595.28 // A4 portrait
	pageHeight = 841.89
	marginX    = 56.0
	marginY    = 64.0
)

// ExportScenarioPDF exports the scenario script to a multi-page PDF at outPath.
// A relative outPath is placed under the scenario's exports folder.
func ExportScenarioPDF(sh *storage.ScenarioHandle, outPath string, opt PDFOptions) error {
	if sh == nil {
		return fmt.Errorf("scenario handle is nil")
	}
	doc := domain.FromRecord(sh.Manifest.Scenario)

	size := opt.FontSize
	if size <= 0 {
		size = 12
	}
	lineH := size * 1.6

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
		OrientationStr: "",
	})
	pdf.SetTitle(sh.Manifest.Title, true)
	pdf.SetAuthor(sh.Manifest.Author, true)

	font := "Helvetica"
	if opt.FontPath != "" {
		font = "scenario"
		pdf.AddUTF8Font(font, "", opt.FontPath)
	}
	pdf.SetFont(font, "", size)

	y := pageHeight // force a page on first line
	newPage := func() {
		pdf.AddPageFormat("", gofpdf.SizeType{Wd: pageWidth, Ht: pageHeight})
		y = marginY
	}
	line := func(indent float64, text string) {
		if y+lineH > pageHeight-marginY {
			newPage()
		}
		if text != "" {
			pdf.Text(marginX+indent, y, text)
		}
		y += lineH
	}

	for si, sc := range doc.Scenes {
		if si > 0 {
			line(0, "")
		}
		heading := sc.Label + " " + sc.Location
		if sc.TimeSetting != "" {
			heading += " [" + sc.TimeSetting + "]"
		}
		line(0, heading)
		if opt.IncludeHidden && sc.HiddenDescription != "" {
			line(0, script.HiddenMarker+sc.HiddenDescription)
		}
		line(0, "")
		for _, b := range sc.Content {
			if b.Hidden && !opt.IncludeHidden {
				continue
			}
			switch b.Type {
			case domain.BlockSerifu:
				line(size, b.Speaker+"「"+b.Text+"」")
			case domain.BlockTimeProgress:
				line(size * 4, script.TimeProgressLine)
			case domain.BlockPageBreak:
				newPage()
				continue
			default:
				line(size * 2, b.Text)
			}
			line(0, "")
		}
	}

	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(sh.Root, "exports", outPath)
	}
	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
