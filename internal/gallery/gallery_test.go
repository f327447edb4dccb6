/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gallery

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeImages(t *testing.T, dir string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("P%03d.png", i)))
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 16, 9))); err != nil {
			t.Fatal(err)
		}
		_ = f.Close()
	}
}

func TestTotalPages(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 9: 1, 10: 2, 18: 2, 19: 3}
	for n, want := range cases {
		if got := TotalPages(n); got != want {
			t.Fatalf("TotalPages(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestReloadFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, 3)
	for _, name := range []string{"notes.txt", "Z.JPG", "a.jpeg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0o755); err != nil {
		t.Fatal(err)
	}
	g := New(dir, nil)
	if err := g.Reload(); err != nil {
		t.Fatal(err)
	}
	files := g.Files()
	if len(files) != 5 {
		t.Fatalf("files = %v", files)
	}
	for i := 1; i < len(files); i++ {
		if files[i-1] > files[i] {
			t.Fatalf("not sorted: %v", files)
		}
	}
}

func TestPaginationAndGoToPage(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, 20)
	g := New(dir, nil)
	if err := g.Open(); err != nil {
		t.Fatal(err)
	}
	if g.Pages() != 3 || g.PageLabel() != "1 / 3" {
		t.Fatalf("pages = %d label = %q", g.Pages(), g.PageLabel())
	}
	if g.GoToPage(-1) || g.Page() != 0 {
		t.Fatalf("GoToPage(-1) moved off the first page")
	}
	if !g.GoToPage(2) || g.Page() != 2 {
		t.Fatalf("GoToPage(2) failed")
	}
	if g.GoToPage(1) || g.Page() != 2 {
		t.Fatalf("GoToPage past the end moved")
	}
	tiles := g.PageTiles()
	if len(tiles) != 2 || tiles[0].Index != 18 {
		t.Fatalf("last page tiles = %+v", tiles)
	}
}

func TestReloadClampsAfterShrink(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, 12)
	g := New(dir, nil)
	_ = g.Reload()
	g.GoToPage(1)
	if err := g.Select(11); err != nil {
		t.Fatal(err)
	}
	for i := 3; i < 12; i++ {
		_ = os.Remove(filepath.Join(dir, fmt.Sprintf("P%03d.png", i)))
	}
	_ = g.Reload()
	if g.Page() != 0 || g.Pages() != 1 {
		t.Fatalf("page %d of %d after shrink", g.Page(), g.Pages())
	}
	if sel, ok := g.Selected(); !ok || sel != 2 {
		t.Fatalf("selection = %d,%v want 2,true", sel, ok)
	}
	for i := 0; i < 3; i++ {
		_ = os.Remove(filepath.Join(dir, fmt.Sprintf("P%03d.png", i)))
	}
	_ = g.Reload()
	if _, ok := g.Selected(); ok {
		t.Fatalf("selection survived an empty directory")
	}
	if g.Pages() != 1 {
		t.Fatalf("empty gallery must have one page")
	}
}

func TestSelectOutOfRange(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, 2)
	g := New(dir, nil)
	_ = g.Reload()
	for _, i := range []int{-1, 2, 50} {
		if err := g.Select(i); !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("Select(%d) err = %v", i, err)
		}
	}
}

type recorder struct {
	got []string
	err error
}

func (r *recorder) SetBackground(p string) error {
	r.got = append(r.got, p)
	return r.err
}

func TestConfirmSelection(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, 3)
	g := New(dir, nil)
	_ = g.Open()

	var r recorder
	if err := g.ConfirmSelection(&r); err != nil || len(r.got) != 0 {
		t.Fatalf("confirm without selection applied %v (err %v)", r.got, err)
	}
	if g.IsOpen() {
		t.Fatalf("gallery must close on confirm")
	}

	_ = g.Open()
	_ = g.Select(1)
	r.err = errors.New("boom")
	if err := g.ConfirmSelection(&r); err == nil {
		t.Fatalf("load error not returned")
	}
	if len(r.got) != 1 || filepath.Base(r.got[0]) != "P001.png" || g.IsOpen() {
		t.Fatalf("got %v open=%v", r.got, g.IsOpen())
	}
}

func TestPageTilesSkipUndecodable(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, 2)
	if err := os.WriteFile(filepath.Join(dir, "P000b.png"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}
	g := New(dir, nil)
	_ = g.Reload()
	_ = g.Select(0)
	tiles := g.PageTiles()
	if len(tiles) != 2 {
		t.Fatalf("tiles = %d, want 2", len(tiles))
	}
	if !tiles[0].Selected || tiles[1].Selected {
		t.Fatalf("selected flags wrong: %+v", tiles)
	}
	if tiles[0].Thumb.Bounds().Dx() != 160 || tiles[0].Name != "P000.png" {
		t.Fatalf("tile = %+v", tiles[0])
	}
}

type memStore struct {
	m    map[string]image.Image
	gets int
	puts int
}

func (s *memStore) Get(p string, _ time.Time, _ int64) (image.Image, bool) {
	s.gets++
	img, ok := s.m[p]
	return img, ok
}

func (s *memStore) Put(p string, _ time.Time, _ int64, img image.Image) {
	s.puts++
	s.m[p] = img
}

func TestThumbStoreUsed(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, 2)
	st := &memStore{m: map[string]image.Image{}}
	g := New(dir, st)
	_ = g.Reload()
	g.PageTiles()
	if st.puts != 2 {
		t.Fatalf("puts = %d, want 2", st.puts)
	}
	_ = g.Reload() // drops the in-memory copies
	g.PageTiles()
	if st.puts != 2 || st.gets != 4 {
		t.Fatalf("gets=%d puts=%d, want 4 and 2", st.gets, st.puts)
	}
}

func TestDefaultBackground(t *testing.T) {
	dir := t.TempDir()
	if _, ok := DefaultBackground(dir); ok {
		t.Fatalf("found default in empty dir")
	}
	writeImages(t, dir, 1)
	if p, ok := DefaultBackground(dir); !ok || filepath.Base(p) != DefaultImage {
		t.Fatalf("DefaultBackground = %q, %v", p, ok)
	}
}
