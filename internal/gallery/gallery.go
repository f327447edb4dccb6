/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package gallery lists background images in pages of nine and tracks the
// user's selection.
package gallery

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mojist/internal/imageio"
	applog "mojist/internal/log"
)

// Layout of one page.
const (
	Columns      = 3
	Rows         = 3
	PerPage      = Columns * Rows
	DefaultImage = "P000.png"
)

var ErrIndexOutOfRange = errors.New("gallery index out of range")

// ThumbStore persists thumbnails between runs. Lookups are keyed by path,
// modification time and size so a changed file misses.
type ThumbStore interface {
	Get(path string, modTime time.Time, size int64) (image.Image, bool)
	Put(path string, modTime time.Time, size int64, img image.Image)
}

// BackgroundSetter receives the confirmed selection.
type BackgroundSetter interface {
	SetBackground(path string) error
}

// Tile is one cell of the current page.
type Tile struct {
	Index    int
	Path     string
	Name     string
	Thumb    image.Image
	Selected bool
}

type Gallery struct {
	dir      string
	files    []string
	page     int
	pages    int
	selected int // -1 when nothing is selected
	open     bool
	loaded   bool

	thumbs map[string]image.Image
	store  ThumbStore
	log    *slog.Logger
}

// New returns a closed gallery over dir. store may be nil.
func New(dir string, store ThumbStore) *Gallery {
	return &Gallery{
		dir:      dir,
		pages:    1,
		selected: -1,
		thumbs:   make(map[string]image.Image),
		store:    store,
		log:      applog.WithComponent("gallery"),
	}
}

func (g *Gallery) Dir() string { return g.dir }

// IsImageFile reports whether name has a recognized background extension.
func IsImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// Reload rescans the directory. Page and selection are clamped into the new
// range and in-memory thumbnails are dropped.
func (g *Gallery) Reload() error {
	entries, err := os.ReadDir(g.dir)
	if err != nil {
		return fmt.Errorf("scan backgrounds %s: %w", g.dir, err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsImageFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(g.dir, e.Name()))
	}
	sort.Strings(files)
	g.files = files
	g.loaded = true
	g.pages = TotalPages(len(files))
	if g.page >= g.pages {
		g.page = g.pages - 1
	}
	switch {
	case len(files) == 0:
		g.selected = -1
	case g.selected >= len(files):
		g.selected = len(files) - 1
	}
	clear(g.thumbs)
	g.log.Debug("gallery reloaded", "dir", g.dir, "files", len(files), "pages", g.pages)
	return nil
}

// TotalPages is ceil(n/9), at least 1.
func TotalPages(n int) int {
	if n <= 0 {
		return 1
	}
	return (n-1)/PerPage + 1
}

// Open shows the gallery, scanning the directory the first time.
func (g *Gallery) Open() error {
	g.open = true
	if !g.loaded {
		return g.Reload()
	}
	return nil
}

func (g *Gallery) Close()       { g.open = false }
func (g *Gallery) IsOpen() bool { return g.open }
func (g *Gallery) Count() int   { return len(g.files) }
func (g *Gallery) Page() int    { return g.page }
func (g *Gallery) Pages() int   { return g.pages }

// Files returns the listed paths.
func (g *Gallery) Files() []string { return append([]string(nil), g.files...) }

// PageLabel renders "current / total" with 1-based pages.
func (g *Gallery) PageLabel() string { return fmt.Sprintf("%d / %d", g.page+1, g.pages) }

// GoToPage moves by delta pages when the destination exists.
func (g *Gallery) GoToPage(delta int) bool {
	p := g.page + delta
	if p < 0 || p >= g.pages {
		return false
	}
	g.page = p
	return true
}

// Select marks the file at global index i.
func (g *Gallery) Select(i int) error {
	if i < 0 || i >= len(g.files) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(g.files))
	}
	g.selected = i
	return nil
}

// Selected returns the selected global index.
func (g *Gallery) Selected() (int, bool) {
	if g.selected < 0 {
		return 0, false
	}
	return g.selected, true
}

// ConfirmSelection hands the selected path to target and closes the gallery.
// Without a selection it only closes.
func (g *Gallery) ConfirmSelection(target BackgroundSetter) error {
	defer g.Close()
	if g.selected < 0 || g.selected >= len(g.files) {
		return nil
	}
	p := g.files[g.selected]
	if err := target.SetBackground(p); err != nil {
		g.log.Warn("apply background failed", "path", p, "err", err)
		return err
	}
	return nil
}

// PageTiles returns the current page. Files whose thumbnail cannot be
// produced are logged and left out.
func (g *Gallery) PageTiles() []Tile {
	start := g.page * PerPage
	end := min(start+PerPage, len(g.files))
	tiles := make([]Tile, 0, PerPage)
	for i := start; i < end; i++ {
		p := g.files[i]
		th, err := g.thumbnail(p)
		if err != nil {
			g.log.Warn("thumbnail failed", "path", p, "err", err)
			continue
		}
		tiles = append(tiles, Tile{
			Index:    i,
			Path:     p,
			Name:     filepath.Base(p),
			Thumb:    th,
			Selected: i == g.selected,
		})
	}
	return tiles
}

func (g *Gallery) thumbnail(path string) (image.Image, error) {
	if th, ok := g.thumbs[path]; ok {
		return th, nil
	}
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if g.store != nil {
		if th, ok := g.store.Get(path, st.ModTime(), st.Size()); ok {
			g.thumbs[path] = th
			return th, nil
		}
	}
	th, err := imageio.Thumbnail(path)
	if err != nil {
		return nil, err
	}
	if g.store != nil {
		g.store.Put(path, st.ModTime(), st.Size(), th)
	}
	g.thumbs[path] = th
	return th, nil
}

// DefaultBackground returns dir/P000.png when it exists.
func DefaultBackground(dir string) (string, bool) {
	p := filepath.Join(dir, DefaultImage)
	if st, err := os.Stat(p); err == nil && !st.IsDir() {
		return p, true
	}
	return "", false
}
