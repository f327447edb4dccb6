/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/png"
	"os"

	xdraw "golang.org/x/image/draw"
)

// PNGOptions controls PNG export behavior.
// - Width/Height: when both > 0 the canvas is scaled to that size
type PNGOptions struct {
	Width  int
	Height int
}

// ExportPNG writes img as a PNG file at outPath.
func ExportPNG(img image.Image, outPath string, opt PNGOptions) (err error) {
	if img == nil {
		return fmt.Errorf("image is nil")
	}
	if opt.Width > 0 && opt.Height > 0 && (opt.Width != img.Bounds().Dx() || opt.Height != img.Bounds().Dy()) {
		dst := image.NewRGBA(image.Rect(0, 0, opt.Width, opt.Height))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
		img = dst
	}
	if err := ensureDir(outPath); err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close png: %w", cerr)
		}
	}()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
