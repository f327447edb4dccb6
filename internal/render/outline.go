/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"image"
	"image/draw"

	"mojist/internal/domain"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// MaxFaceSize is the largest size a run is rasterized at. Larger font sizes
// are drawn at this size, which already exceeds the canvas height.
const MaxFaceSize = 2048

// Stats counts the composite operations of one Render call.
type Stats struct {
	OutlineStamps int
	FillPasses    int
}

// OutlineOffsets returns every integer (dx, dy) with dx²+dy² ≤ w², row-major
// from (-w, -w). It is empty for w <= 0.
func OutlineOffsets(w int) []image.Point {
	if w <= 0 {
		return nil
	}
	var out []image.Point
	for dy := -w; dy <= w; dy++ {
		for dx := -w; dx <= w; dx++ {
			if dx*dx+dy*dy <= w*w {
				out = append(out, image.Pt(dx, dy))
			}
		}
	}
	return out
}

// Renderer draws an outlined text run. The outline is produced by stamping
// the run in the outline color at every disc offset, then drawing it once in
// the fill color at the anchor.
type Renderer struct {
	Fonts *FontRegistry
}

// NewRenderer returns a renderer backed by fonts.
func NewRenderer(fonts *FontRegistry) *Renderer { return &Renderer{Fonts: fonts} }

// Render draws text centered on at. dst is left untouched when the font or
// either color cannot be resolved. Only the part of the run that can reach
// dst is rasterized.
func (r *Renderer) Render(dst draw.Image, at domain.Anchor, text string, style domain.TextStyle) (Stats, error) {
	var st Stats
	fill, err := ParseColor(style.FillColor)
	if err != nil {
		return st, err
	}
	outline, err := ParseColor(style.OutlineColor)
	if err != nil {
		return st, err
	}
	face, err := r.Fonts.Face(style.FontFamily, min(style.FontSize, MaxFaceSize))
	if err != nil {
		return st, err
	}

	clip := dst.Bounds().Inset(-max(style.OutlineWidth, 0))
	mask, rect := runMask(face, at, text, clip)
	outSrc := image.NewUniform(outline)
	for _, off := range OutlineOffsets(style.OutlineWidth) {
		draw.DrawMask(dst, rect.Add(off), outSrc, image.Point{}, mask, rect.Min, draw.Over)
		st.OutlineStamps++
	}
	draw.DrawMask(dst, rect, image.NewUniform(fill), image.Point{}, mask, rect.Min, draw.Over)
	st.FillPasses++
	return st, nil
}

// runMask rasterizes text once into an alpha mask in canvas coordinates,
// limited to clip. The run is centered horizontally on its advance and
// vertically between ascent and descent.
func runMask(face font.Face, at domain.Anchor, text string, clip image.Rectangle) (*image.Alpha, image.Rectangle) {
	m := face.Metrics()
	bounds, adv := font.BoundString(face, text)
	// An anchor this far out places no ink in clip; pulling it in keeps the
	// 26.6 arithmetic from wrapping.
	spanX := adv.Ceil() + (bounds.Max.X - bounds.Min.X).Ceil() + 1
	spanY := (m.Height + bounds.Max.Y - bounds.Min.Y).Ceil() + 1
	x := domain.Clamp(at.X, clip.Min.X-spanX, clip.Max.X+spanX)
	y := domain.Clamp(at.Y, clip.Min.Y-spanY, clip.Max.Y+spanY)
	dot := fixed.Point26_6{
		X: fixed.I(x) - adv/2,
		Y: fixed.I(y) + (m.Ascent-m.Descent)/2,
	}
	rect := image.Rect(
		(dot.X + bounds.Min.X).Floor(), (dot.Y + bounds.Min.Y).Floor(),
		(dot.X + bounds.Max.X).Ceil(), (dot.Y + bounds.Max.Y).Ceil(),
	).Intersect(clip)
	mask := image.NewAlpha(rect)
	if rect.Empty() {
		return mask, rect
	}
	d := &font.Drawer{Dst: mask, Src: image.Opaque, Face: face, Dot: dot}
	d.DrawString(text)
	return mask, rect
}
