/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mojist/internal/domain"
	applog "mojist/internal/log"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// Embedded family names. They are always available regardless of the host.
const (
	FamilyGo     = "Go"
	FamilyGoMono = "Go Mono"
)

// fontSource locates one face: either embedded bytes or a file (plus the
// index inside a collection). Files are parsed lazily on first use.
type fontSource struct {
	data  []byte
	path  string
	index int
	bold  bool
}

type faceKey struct {
	family string
	size   int
}

// FontRegistry maps family names to font faces. It is seeded with the
// embedded Go fonts and grows through ScanDir.
type FontRegistry struct {
	sources map[string]fontSource
	order   []string
	parsed  map[string]*opentype.Font
	faces   map[faceKey]font.Face
}

// NewFontRegistry returns a registry holding the embedded Go fonts.
func NewFontRegistry() *FontRegistry {
	r := &FontRegistry{
		sources: make(map[string]fontSource),
		parsed:  make(map[string]*opentype.Font),
		faces:   make(map[faceKey]font.Face),
	}
	r.add(FamilyGo, fontSource{data: gobold.TTF, bold: true})
	r.add(FamilyGoMono, fontSource{data: gomonobold.TTF, bold: true})
	return r
}

// add registers src under family. A bold face replaces a non-bold one.
func (r *FontRegistry) add(family string, src fontSource) {
	cur, ok := r.sources[family]
	if !ok {
		r.order = append(r.order, family)
		r.sources[family] = src
		return
	}
	if src.bold && !cur.bold {
		r.sources[family] = src
		delete(r.parsed, family)
		for k := range r.faces {
			if k.family == family {
				delete(r.faces, k)
			}
		}
	}
}

// ScanDir walks dir and registers every .ttf, .otf, .ttc and .otc file by
// the family name in its name table. Unreadable files are skipped. It
// returns the number of faces registered.
func (r *FontRegistry) ScanDir(dir string) (int, error) {
	l := applog.WithComponent("fonts")
	n := 0
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(p)) {
		case ".ttf", ".otf", ".ttc", ".otc":
		default:
			return nil
		}
		added, ferr := r.scanFile(p)
		if ferr != nil {
			l.Debug("skip font", "path", p, "err", ferr)
			return nil
		}
		n += added
		return nil
	})
	if err != nil {
		return n, fmt.Errorf("scan fonts %s: %w", dir, err)
	}
	return n, nil
}

func (r *FontRegistry) scanFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	coll, err := sfnt.ParseCollection(data)
	if err != nil {
		return 0, err
	}
	added := 0
	var buf sfnt.Buffer
	for i := 0; i < coll.NumFonts(); i++ {
		f, err := coll.Font(i)
		if err != nil {
			continue
		}
		family, err := f.Name(&buf, sfnt.NameIDFamily)
		if err != nil || strings.TrimSpace(family) == "" {
			continue
		}
		sub, _ := f.Name(&buf, sfnt.NameIDSubfamily)
		r.add(family, fontSource{path: path, index: i, bold: strings.Contains(strings.ToLower(sub), "bold")})
		added++
	}
	return added, nil
}

// Families returns the sorted family list.
func (r *FontRegistry) Families() []string {
	out := make([]string, 0, len(r.order))
	out = append(out, r.order...)
	sort.Strings(out)
	return out
}

// Has reports whether family is registered.
func (r *FontRegistry) Has(family string) bool {
	_, ok := r.sources[family]
	return ok
}

// Initial returns the first preferred family that is registered, else the
// first family ever registered.
func (r *FontRegistry) Initial(preferred []string) string {
	for _, p := range preferred {
		if r.Has(p) {
			return p
		}
	}
	if len(r.order) == 0 {
		return ""
	}
	return r.order[0]
}

// Face returns a face for family at size pixels. Faces are cached.
func (r *FontRegistry) Face(family string, size int) (font.Face, error) {
	k := faceKey{family: family, size: size}
	if f, ok := r.faces[k]; ok {
		return f, nil
	}
	src, ok := r.sources[family]
	if !ok {
		return nil, &domain.FontUnavailableError{Family: family}
	}
	otf, ok := r.parsed[family]
	if !ok {
		var err error
		otf, err = parseSource(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", &domain.FontUnavailableError{Family: family}, err)
		}
		r.parsed[family] = otf
	}
	if size < 1 {
		size = 1
	}
	face, err := opentype.NewFace(otf, &opentype.FaceOptions{Size: float64(size), DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", &domain.FontUnavailableError{Family: family}, err)
	}
	r.faces[k] = face
	return face, nil
}

func parseSource(src fontSource) (*opentype.Font, error) {
	if src.data != nil {
		return opentype.Parse(src.data)
	}
	data, err := os.ReadFile(src.path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", src.path, err)
	}
	coll, err := opentype.ParseCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", src.path, err)
	}
	return coll.Font(src.index)
}
