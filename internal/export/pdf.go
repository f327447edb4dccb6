/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"mojist/internal/version"

	"github.com/jung-kurt/gofpdf"
)

// PDFOptions controls PDF export behavior.
// The page is sized to the image with 1 px = 1 pt, so a 1024×576 canvas
// becomes a 1024×576 pt landscape page.
type PDFOptions struct {
	Title  string
	Author string
}

// ExportPDF embeds img as a single full-page raster image.
func ExportPDF(img image.Image, outPath string, opt PDFOptions) error {
	if img == nil {
		return fmt.Errorf("image is nil")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode page image: %w", err)
	}
	w := float64(img.Bounds().Dx())
	h := float64(img.Bounds().Dy())

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	if opt.Title != "" {
		pdf.SetTitle(opt.Title, true)
	}
	author := opt.Author
	if author == "" {
		author = "Mojist"
	}
	pdf.SetAuthor(author, true)
	pdf.SetCreator("Mojist "+version.String(), true)
	pdf.AddPageFormat("", gofpdf.SizeType{Wd: w, Ht: h})

	iopt := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("canvas", iopt, &buf)
	pdf.ImageOptions("canvas", 0, 0, w, h, false, iopt, 0, "")
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}

	if err := ensureDir(outPath); err != nil {
		return err
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
