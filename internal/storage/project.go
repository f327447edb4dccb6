/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mojist/internal/domain"
	applog "mojist/internal/log"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

const (
	BackupsDirName = "backups"
	ProjectExt     = ".json"
)

//go:embed schema/project.schema.json
var projectSchema []byte

var schemaLoader = gojsonschema.NewBytesLoader(projectSchema)

// ProjectRecord is the persisted form of a document.
type ProjectRecord struct {
	Text                string `json:"text"`
	FontName            string `json:"font_name"`
	FontSize            int    `json:"font_size"`
	TextColor           string `json:"text_color"`
	OutlineColor        string `json:"outline_color"`
	OutlineWidth        int    `json:"outline_width"`
	X                   int    `json:"x"`
	Y                   int    `json:"y"`
	BackgroundImagePath string `json:"background_image_path"`
}

// Style returns the record's text style.
func (r ProjectRecord) Style() domain.TextStyle {
	return domain.TextStyle{
		FontFamily:   r.FontName,
		FontSize:     r.FontSize,
		Bold:         true,
		FillColor:    r.TextColor,
		OutlineColor: r.OutlineColor,
		OutlineWidth: r.OutlineWidth,
	}
}

// DocumentReader is what a record is built from.
type DocumentReader interface {
	LiveText() string
	Style() domain.TextStyle
	Anchor() domain.Anchor
	BackgroundPath() string
}

// DocumentWriter is what a record is applied to.
type DocumentWriter interface {
	Load(text string, s domain.EditState, bgPath string) error
}

// RecordFromDocument captures doc. The live input text is saved, not the
// committed text.
func RecordFromDocument(doc DocumentReader) ProjectRecord {
	st := doc.Style()
	a := doc.Anchor()
	return ProjectRecord{
		Text:                doc.LiveText(),
		FontName:            st.FontFamily,
		FontSize:            st.FontSize,
		TextColor:           st.FillColor,
		OutlineColor:        st.OutlineColor,
		OutlineWidth:        st.OutlineWidth,
		X:                   a.X,
		Y:                   a.Y,
		BackgroundImagePath: doc.BackgroundPath(),
	}
}

// Marshal renders rec as UTF-8 JSON with 4-space indentation and non-ASCII
// text left unescaped.
func Marshal(rec ProjectRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveProject writes rec to path with transactional semantics and a
// timestamped backup of the previous file (if present).
func SaveProject(path string, rec ProjectRecord) error {
	l := applog.WithOperation(applog.WithComponent("storage"), "save_project")
	if strings.TrimSpace(path) == "" {
		return &domain.ProjectIOError{Op: "write", Path: path, Err: errors.New("path is required")}
	}
	data, err := Marshal(rec)
	if err != nil {
		return &domain.ProjectIOError{Op: "write", Path: path, Err: fmt.Errorf("marshal: %w", err)}
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &domain.ProjectIOError{Op: "write", Path: path, Err: err}
	}

	if _, statErr := os.Stat(path); statErr == nil {
		bdir := filepath.Join(dir, BackupsDirName)
		stamp := time.Now().Format("20060102-150405")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
		if cerr := copyFile(path, bpath); cerr != nil {
			return &domain.ProjectIOError{Op: "write", Path: path, Err: fmt.Errorf("backup current file: %w", cerr)}
		}
	}

	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		_ = os.Remove(temp)
		return &domain.ProjectIOError{Op: "write", Path: path, Err: fmt.Errorf("write temp file: %w", werr)}
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return &domain.ProjectIOError{Op: "write", Path: path, Err: fmt.Errorf("replace file: %w", rerr)}
	}
	l.Info("project saved", "path", path)
	return nil
}

// ReadProject loads and validates a project file. Missing fields take their
// defaults; a missing font_name becomes defaultFont.
func ReadProject(path, defaultFont string) (ProjectRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ProjectRecord{}, &domain.ProjectIOError{Op: "read", Path: path, Err: err}
	}
	return DecodeProject(path, b, defaultFont)
}

// DecodeProject validates and decodes project bytes. path is only used in
// errors.
func DecodeProject(path string, data []byte, defaultFont string) (ProjectRecord, error) {
	if !json.Valid(data) {
		return ProjectRecord{}, &domain.ProjectIOError{Op: "decode", Path: path, Err: errors.New("not valid JSON")}
	}
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return ProjectRecord{}, &domain.ProjectIOError{Op: "validate", Path: path, Err: err}
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return ProjectRecord{}, &domain.ProjectIOError{Op: "validate", Path: path, Err: errors.New(strings.Join(msgs, "; "))}
	}

	var raw struct {
		Text         *string `json:"text"`
		FontName     *string `json:"font_name"`
		FontSize     *int    `json:"font_size"`
		TextColor    *string `json:"text_color"`
		OutlineColor *string `json:"outline_color"`
		OutlineWidth *int    `json:"outline_width"`
		X            *int    `json:"x"`
		Y            *int    `json:"y"`
		Background   *string `json:"background_image_path"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return ProjectRecord{}, &domain.ProjectIOError{Op: "decode", Path: path, Err: err}
	}
	rec := ProjectRecord{
		Text:         domain.PlaceholderText,
		FontName:     defaultFont,
		FontSize:     domain.DefaultFontSize,
		TextColor:    domain.DefaultFillColor,
		OutlineColor: domain.DefaultOutlineColor,
		OutlineWidth: domain.DefaultOutlineWidth,
		X:            domain.DefaultAnchorX,
		Y:            domain.DefaultAnchorY,
	}
	setStr(&rec.Text, raw.Text)
	setStr(&rec.FontName, raw.FontName)
	setStr(&rec.TextColor, raw.TextColor)
	setStr(&rec.OutlineColor, raw.OutlineColor)
	setStr(&rec.BackgroundImagePath, raw.Background)
	setInt(&rec.FontSize, raw.FontSize)
	setInt(&rec.OutlineWidth, raw.OutlineWidth)
	setInt(&rec.X, raw.X)
	setInt(&rec.Y, raw.Y)
	return rec, nil
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// ApplyRecord writes rec into doc in one update. The text becomes both
// committed and live text. A background that fails to decode is reported but the rest is
// applied; a background file that no longer exists yields a
// *domain.MissingBackgroundError and the current background is kept.
func ApplyRecord(doc DocumentWriter, rec ProjectRecord) error {
	bg := rec.BackgroundImagePath
	var missing error
	if bg != "" {
		if _, err := os.Stat(bg); err != nil {
			missing = &domain.MissingBackgroundError{Path: bg}
			bg = ""
		}
	}
	st := domain.EditState{Anchor: domain.Anchor{X: rec.X, Y: rec.Y}, Style: rec.Style()}
	if err := doc.Load(rec.Text, st, bg); err != nil {
		return err
	}
	return missing
}

// AutosaveDocument writes rec to dir/autosave-<stamp>.json and returns the path.
func AutosaveDocument(dir string, rec ProjectRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &domain.ProjectIOError{Op: "write", Path: dir, Err: err}
	}
	data, err := Marshal(rec)
	if err != nil {
		return "", &domain.ProjectIOError{Op: "write", Path: dir, Err: err}
	}
	p := filepath.Join(dir, fmt.Sprintf("autosave-%s%s", time.Now().Format("20060102-150405"), ProjectExt))
	if err := writeFileSync(p, data); err != nil {
		return "", &domain.ProjectIOError{Op: "write", Path: p, Err: err}
	}
	return p, nil
}

// Backups lists the backups of path, oldest first.
func Backups(path string) ([]string, error) {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(path) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

// ReadLatestBackup reads the newest backup of path.
func ReadLatestBackup(path, defaultFont string) (ProjectRecord, error) {
	bs, err := Backups(path)
	if err != nil {
		return ProjectRecord{}, &domain.ProjectIOError{Op: "read", Path: path, Err: err}
	}
	if len(bs) == 0 {
		return ProjectRecord{}, &domain.ProjectIOError{Op: "read", Path: path, Err: errors.New("no backups found")}
	}
	latest := bs[len(bs)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return ProjectRecord{}, &domain.ProjectIOError{Op: "read", Path: latest, Err: err}
	}
	return DecodeProject(latest, b, defaultFont)
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
