/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package imageio decodes background images and produces the canvas-sized
// and thumbnail-sized copies the rest of the application draws on.
package imageio

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"

	"mojist/internal/domain"

	xdraw "golang.org/x/image/draw"
)

// Thumbnail size used by the background gallery.
const (
	ThumbWidth  = 160
	ThumbHeight = 90
)

// PlaceholderColor fills the canvas when no background could be loaded.
var PlaceholderColor = color.RGBA{R: 128, G: 128, B: 128, A: 255}

// Placeholder returns a fresh gray canvas.
func Placeholder() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, domain.CanvasWidth, domain.CanvasHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(PlaceholderColor), image.Point{}, draw.Src)
	return img
}

// Decode reads any registered image format (PNG, JPEG).
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}

// LoadBackground decodes path and stretches it to the canvas size. Failures
// are returned as *domain.ImageLoadError.
func LoadBackground(path string) (*image.RGBA, error) {
	src, err := Decode(path)
	if err != nil {
		return nil, &domain.ImageLoadError{Path: path, Err: err}
	}
	return Resize(src, domain.CanvasWidth, domain.CanvasHeight, xdraw.CatmullRom), nil
}

// Resize scales src to exactly w×h, ignoring aspect ratio.
func Resize(src image.Image, w, h int, s xdraw.Scaler) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	s.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// Thumbnail decodes path into a 160×90 image.
func Thumbnail(path string) (*image.RGBA, error) {
	src, err := Decode(path)
	if err != nil {
		return nil, &domain.ImageLoadError{Path: path, Err: err}
	}
	return Resize(src, ThumbWidth, ThumbHeight, xdraw.ApproxBiLinear), nil
}

// Clone returns a copy of img that can be drawn on without touching img.
func Clone(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// DecodePNG reads a PNG, as stored in the thumbnail cache.
func DecodePNG(r io.Reader) (image.Image, error) {
	return png.Decode(r)
}
