/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mojist/internal/document"
	"mojist/internal/domain"
)

func writeBG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 32, 18))); err != nil {
		t.Fatal(err)
	}
}

func TestSaveReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	bg := filepath.Join(dir, "bg.png")
	writeBG(t, bg)

	doc := document.New("Go")
	doc.SetLiveText("こんにちは")
	doc.SetAnchor(100, 200)
	doc.SetFontSizeClamped(80)
	doc.SetOutlineWidthClamped(5)
	red := "#ff0000"
	doc.SetStyle(domain.StylePatch{FillColor: &red})
	if err := doc.SetBackground(bg); err != nil {
		t.Fatal(err)
	}

	p := filepath.Join(dir, "proj.json")
	if err := SaveProject(p, RecordFromDocument(doc)); err != nil {
		t.Fatalf("SaveProject: %v", err)
	}
	raw, _ := os.ReadFile(p)
	if !strings.Contains(string(raw), "こんにちは") {
		t.Fatalf("non-ASCII text escaped: %s", raw)
	}
	if !strings.Contains(string(raw), "\n    \"text\"") {
		t.Fatalf("expected 4-space indentation: %s", raw)
	}

	rec, err := ReadProject(p, "Go")
	if err != nil {
		t.Fatalf("ReadProject: %v", err)
	}
	loaded := document.New("Go Mono")
	if err := ApplyRecord(loaded, rec); err != nil {
		t.Fatalf("ApplyRecord: %v", err)
	}
	if loaded.Style() != doc.Style() {
		t.Fatalf("style %+v, want %+v", loaded.Style(), doc.Style())
	}
	if loaded.Anchor() != doc.Anchor() || loaded.BackgroundPath() != bg {
		t.Fatalf("anchor/background mismatch: %+v %q", loaded.Anchor(), loaded.BackgroundPath())
	}
	if loaded.RenderedText() != "こんにちは" || loaded.LiveText() != "こんにちは" {
		t.Fatalf("text not restored: %q", loaded.RenderedText())
	}
}

func TestRecordUsesLiveText(t *testing.T) {
	doc := document.New("Go")
	doc.SetLiveText("committed")
	doc.CommitLiveText()
	doc.SetLiveText("typed later")
	if rec := RecordFromDocument(doc); rec.Text != "typed later" {
		t.Fatalf("record text = %q, want the live text", rec.Text)
	}
}

func TestReadProjectDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "p.json")
	if err := os.WriteFile(p, []byte(`{"x": 7}`), 0o644); err != nil {
		t.Fatal(err)
	}
	rec, err := ReadProject(p, "Meiryo")
	if err != nil {
		t.Fatal(err)
	}
	want := ProjectRecord{
		Text: "文字", FontName: "Meiryo", FontSize: 50, TextColor: "white",
		OutlineColor: "black", OutlineWidth: 2, X: 7, Y: 502,
	}
	if rec != want {
		t.Fatalf("rec = %+v, want %+v", rec, want)
	}
}

func TestReadProjectFailures(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"garbage.json": "{not json",
		"types.json":   `{"font_size": "big"}`,
		"array.json":   `[1,2]`,
	}
	for name, body := range cases {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := ReadProject(p, "Go")
		if !errors.Is(err, domain.ErrProjectIO) {
			t.Fatalf("%s: err = %v, want ErrProjectIO", name, err)
		}
	}
	_, err := ReadProject(filepath.Join(dir, "missing.json"), "Go")
	var pe *domain.ProjectIOError
	if !errors.As(err, &pe) || pe.Op != "read" {
		t.Fatalf("missing file err = %v", err)
	}
}

func TestApplyRecordMissingBackground(t *testing.T) {
	dir := t.TempDir()
	bg := filepath.Join(dir, "bg.png")
	writeBG(t, bg)
	doc := document.New("Go")
	_ = doc.SetBackground(bg)

	rec := RecordFromDocument(doc)
	rec.BackgroundImagePath = filepath.Join(dir, "gone.png")
	rec.X = 1
	err := ApplyRecord(doc, rec)
	if !errors.Is(err, domain.ErrMissingBackground) {
		t.Fatalf("err = %v, want ErrMissingBackground", err)
	}
	if doc.BackgroundPath() != bg {
		t.Fatalf("background replaced: %q", doc.BackgroundPath())
	}
	if doc.Anchor().X != 1 {
		t.Fatalf("other fields must still be applied")
	}
}

func TestApplyRecordBrokenBackground(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	doc := document.New("Go")
	rec := RecordFromDocument(doc)
	rec.BackgroundImagePath = bad
	rec.FontSize = 99
	err := ApplyRecord(doc, rec)
	if !errors.Is(err, domain.ErrImageLoad) {
		t.Fatalf("err = %v, want ErrImageLoad", err)
	}
	if doc.Style().FontSize != 99 {
		t.Fatalf("load must continue past an image error")
	}
}

func TestSaveCreatesTimestampedBackup(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "proj.json")
	rec := RecordFromDocument(document.New("Go"))
	if err := SaveProject(p, rec); err != nil {
		t.Fatal(err)
	}
	if bs, _ := Backups(p); len(bs) != 0 {
		t.Fatalf("first save created backups: %v", bs)
	}
	rec.Text = "second"
	if err := SaveProject(p, rec); err != nil {
		t.Fatal(err)
	}
	bs, err := Backups(p)
	if err != nil || len(bs) != 1 {
		t.Fatalf("backups = %v, err %v", bs, err)
	}
	old, err := ReadLatestBackup(p, "Go")
	if err != nil {
		t.Fatal(err)
	}
	if old.Text != "" {
		t.Fatalf("backup holds %q, want the first save", old.Text)
	}
	// no temp files left behind
	ents, _ := os.ReadDir(dir)
	for _, e := range ents {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left: %s", e.Name())
		}
	}
}

func TestAutosaveDocument(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "autosave")
	rec := RecordFromDocument(document.New("Go"))
	rec.Text = "crash"
	p, err := AutosaveDocument(dir, rec)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(filepath.Base(p), "autosave-") {
		t.Fatalf("name = %s", p)
	}
	b, _ := os.ReadFile(p)
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil || m["text"] != "crash" {
		t.Fatalf("autosave content = %s (%v)", b, err)
	}
}

type countingDoc struct {
	*document.Document
	loads int
}

func (c *countingDoc) Load(text string, s domain.EditState, bgPath string) error {
	c.loads++
	return c.Document.Load(text, s, bgPath)
}

func TestApplyRecordIsOneUpdate(t *testing.T) {
	dir := t.TempDir()
	bg := filepath.Join(dir, "bg.png")
	writeBG(t, bg)
	d := document.New("Go")
	notes := 0
	d.OnChange(func() { notes++ })
	doc := &countingDoc{Document: d}

	rec := RecordFromDocument(d)
	rec.Text = "看板"
	rec.BackgroundImagePath = bg
	rec.X, rec.Y = 3, 4
	if err := ApplyRecord(doc, rec); err != nil {
		t.Fatalf("ApplyRecord: %v", err)
	}
	if doc.loads != 1 || notes != 1 {
		t.Fatalf("loads=%d notifications=%d, want 1/1", doc.loads, notes)
	}

	rec.BackgroundImagePath = filepath.Join(dir, "gone.png")
	notes = 0
	if err := ApplyRecord(doc, rec); !errors.Is(err, domain.ErrMissingBackground) {
		t.Fatalf("err = %v", err)
	}
	if notes != 1 {
		t.Fatalf("missing background load notified %d times", notes)
	}
}
