/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"mojist/internal/domain"

	"golang.org/x/image/font/gofont/goregular"
)

func TestOutlineOffsetsDiscSize(t *testing.T) {
	cases := map[int]int{-1: 0, 0: 0, 1: 5, 2: 13, 3: 29}
	for w, want := range cases {
		if got := len(OutlineOffsets(w)); got != want {
			t.Fatalf("len(OutlineOffsets(%d)) = %d, want %d", w, got, want)
		}
	}
	for _, p := range OutlineOffsets(4) {
		if p.X*p.X+p.Y*p.Y > 16 {
			t.Fatalf("offset %v outside disc", p)
		}
	}
	first := OutlineOffsets(2)[0]
	if first != image.Pt(0, -2) {
		t.Fatalf("first offset = %v, want (0,-2)", first)
	}
}

func newCanvas(bg color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, domain.CanvasWidth, domain.CanvasHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return img
}

func TestRenderStampCount(t *testing.T) {
	r := NewRenderer(NewFontRegistry())
	for w, want := range map[int]int{0: 0, 1: 5, 2: 13, 3: 29} {
		st := domain.DefaultStyle(FamilyGo)
		st.OutlineWidth = w
		stats, err := r.Render(newCanvas(color.Black), domain.DefaultAnchor(), "Hi", st)
		if err != nil {
			t.Fatalf("Render(w=%d): %v", w, err)
		}
		if stats.OutlineStamps != want || stats.FillPasses != 1 {
			t.Fatalf("w=%d stats = %+v, want %d stamps and 1 fill", w, stats, want)
		}
	}
}

func countColor(img *image.RGBA, c color.RGBA) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y) == c {
				n++
			}
		}
	}
	return n
}

func TestRenderDrawsOutlineAndFill(t *testing.T) {
	r := NewRenderer(NewFontRegistry())
	red := color.RGBA{R: 255, A: 255}
	img := newCanvas(red)
	st := domain.DefaultStyle(FamilyGo)
	st.OutlineWidth = 3
	if _, err := r.Render(img, domain.Anchor{X: 300, Y: 200}, "HH", st); err != nil {
		t.Fatalf("Render: %v", err)
	}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black := color.RGBA{A: 255}
	if countColor(img, white) == 0 {
		t.Fatalf("no fill pixels drawn")
	}
	if countColor(img, black) == 0 {
		t.Fatalf("no outline pixels drawn")
	}
}

func TestRenderCentersOnAnchor(t *testing.T) {
	r := NewRenderer(NewFontRegistry())
	img := newCanvas(color.Black)
	st := domain.DefaultStyle(FamilyGo)
	st.OutlineWidth = 0
	at := domain.Anchor{X: 400, Y: 300}
	if _, err := r.Render(img, at, "HH", st); err != nil {
		t.Fatalf("Render: %v", err)
	}
	minX, maxX := img.Bounds().Max.X, -1
	for y := 0; y < domain.CanvasHeight; y++ {
		for x := 0; x < domain.CanvasWidth; x++ {
			if img.RGBAAt(x, y).R > 128 {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
			}
		}
	}
	if maxX < 0 {
		t.Fatalf("nothing drawn")
	}
	center := (minX + maxX) / 2
	if d := center - at.X; d < -4 || d > 4 {
		t.Fatalf("ink center x = %d, anchor %d", center, at.X)
	}
}

func TestRenderHugeSizeStaysBounded(t *testing.T) {
	r := NewRenderer(NewFontRegistry())
	st := domain.DefaultStyle(FamilyGo)
	st.FontSize = 40000
	img := newCanvas(color.Black)
	if _, err := r.Render(img, domain.DefaultAnchor(), "Hi", st); err != nil {
		t.Fatalf("warm-up Render: %v", err)
	}

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	if _, err := r.Render(newCanvas(color.Black), domain.DefaultAnchor(), "文字 Text", st); err != nil {
		t.Fatalf("Render: %v", err)
	}
	runtime.ReadMemStats(&after)
	if got := after.TotalAlloc - before.TotalAlloc; got > 64<<20 {
		t.Fatalf("render at size %d allocated %d MiB", st.FontSize, got>>20)
	}
	if countColor(img, color.RGBA{A: 255}) == domain.CanvasWidth*domain.CanvasHeight {
		t.Fatalf("nothing drawn at size %d", st.FontSize)
	}
}

func TestRenderFarAnchorLeavesCanvas(t *testing.T) {
	r := NewRenderer(NewFontRegistry())
	st := domain.DefaultStyle(FamilyGo)
	// X<<6 wraps to 512 in 26.6 fixed point if not clamped first.
	for _, at := range []domain.Anchor{
		{X: 1<<26 + 512, Y: 288},
		{X: -(1<<26 + 512), Y: 288},
		{X: 512, Y: 1<<26 + 288},
	} {
		img := newCanvas(color.Black)
		if _, err := r.Render(img, at, "Hi", st); err != nil {
			t.Fatalf("Render(%v): %v", at, err)
		}
		if countColor(img, color.RGBA{A: 255}) != domain.CanvasWidth*domain.CanvasHeight {
			t.Fatalf("anchor %v drew on the canvas", at)
		}
	}
}

func TestRenderUnknownFontLeavesCanvas(t *testing.T) {
	r := NewRenderer(NewFontRegistry())
	img := newCanvas(color.Black)
	st := domain.DefaultStyle("No Such Family")
	_, err := r.Render(img, domain.DefaultAnchor(), "Hi", st)
	if !errors.Is(err, domain.ErrFontUnavailable) {
		t.Fatalf("err = %v, want ErrFontUnavailable", err)
	}
	if countColor(img, color.RGBA{A: 255}) != domain.CanvasWidth*domain.CanvasHeight {
		t.Fatalf("canvas modified on font failure")
	}
}

func TestRenderInvalidColor(t *testing.T) {
	r := NewRenderer(NewFontRegistry())
	st := domain.DefaultStyle(FamilyGo)
	st.OutlineColor = "not-a-color"
	_, err := r.Render(newCanvas(color.Black), domain.DefaultAnchor(), "Hi", st)
	if !errors.Is(err, domain.ErrInvalidColor) {
		t.Fatalf("err = %v, want ErrInvalidColor", err)
	}
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want color.RGBA
	}{
		{"white", color.RGBA{255, 255, 255, 255}},
		{"Black", color.RGBA{0, 0, 0, 255}},
		{"#f00", color.RGBA{255, 0, 0, 255}},
		{"#00ff7f", color.RGBA{0, 255, 127, 255}},
		{"light blue", color.RGBA{173, 216, 230, 255}},
	}
	for _, c := range cases {
		got, err := ParseColor(c.in)
		if err != nil {
			t.Fatalf("ParseColor(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseColor(%q) = %v, want %v", c.in, got, c.want)
		}
	}
	for _, bad := range []string{"", "#12", "#ggg", "#1234567", "blurple"} {
		if _, err := ParseColor(bad); !errors.Is(err, domain.ErrInvalidColor) {
			t.Fatalf("ParseColor(%q) err = %v, want ErrInvalidColor", bad, err)
		}
	}
}

func TestRegistryInitialAndFamilies(t *testing.T) {
	reg := NewFontRegistry()
	if got := reg.Initial([]string{"Meiryo", "MS Gothic"}); got != FamilyGo {
		t.Fatalf("Initial without preferred = %q, want %q", got, FamilyGo)
	}
	if got := reg.Initial([]string{"Meiryo", FamilyGoMono}); got != FamilyGoMono {
		t.Fatalf("Initial = %q, want %q", got, FamilyGoMono)
	}
	fams := reg.Families()
	if len(fams) != 2 || fams[0] != FamilyGo || fams[1] != FamilyGoMono {
		t.Fatalf("Families = %v", fams)
	}
}

func TestRegistryScanDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "regular.ttf"), goregular.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.ttf"), []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	reg := NewFontRegistry()
	n, err := reg.ScanDir(dir)
	if err != nil {
		t.Fatalf("ScanDir: %v", err)
	}
	if n != 1 {
		t.Fatalf("ScanDir registered %d faces, want 1", n)
	}
	if len(reg.Families()) < 2 {
		t.Fatalf("Families = %v", reg.Families())
	}
	// a regular face never displaces the embedded bold one
	if reg.sources[FamilyGo].data == nil {
		t.Fatalf("regular face replaced the embedded bold face")
	}
	if _, err := reg.ScanDir(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

func TestRegistryFaceCached(t *testing.T) {
	reg := NewFontRegistry()
	a, err := reg.Face(FamilyGo, 40)
	if err != nil {
		t.Fatal(err)
	}
	b, err := reg.Face(FamilyGo, 40)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("face not cached")
	}
}
