/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mojist/internal/domain"
	"mojist/internal/imageio"
)

func newDoc(t *testing.T) (*Document, *int) {
	t.Helper()
	d := New("Go")
	n := 0
	d.OnChange(func() { n++ })
	return d, &n
}

func TestDefaults(t *testing.T) {
	d := New("Go")
	if d.RenderedText() != domain.PlaceholderText {
		t.Fatalf("RenderedText = %q, want placeholder", d.RenderedText())
	}
	if d.Anchor() != domain.DefaultAnchor() {
		t.Fatalf("Anchor = %+v", d.Anchor())
	}
	if d.Style() != domain.DefaultStyle("Go") {
		t.Fatalf("Style = %+v", d.Style())
	}
	if d.BackgroundPath() != "" || d.Background() == nil {
		t.Fatalf("background should be placeholder without path")
	}
}

func TestRenderedTextResolution(t *testing.T) {
	d, _ := newDoc(t)
	d.SetLiveText("Hi")
	if got := d.RenderedText(); got != "Hi" {
		t.Fatalf("RenderedText = %q, want Hi", got)
	}
	d.CommitLiveText()
	d.SetLiveText("Bye")
	if got := d.RenderedText(); got != "Hi" {
		t.Fatalf("after commit RenderedText = %q, want Hi", got)
	}
	// committed empty text still wins over live text
	d.SetLiveText("")
	d.CommitLiveText()
	d.SetLiveText("later")
	if got := d.RenderedText(); got != "" {
		t.Fatalf("committed empty text = %q, want empty", got)
	}
}

func TestMutationsNotify(t *testing.T) {
	d, n := newDoc(t)
	d.SetLiveText("a")
	d.CommitLiveText()
	d.SetAnchor(1, 2)
	size := 70
	d.SetStyle(domain.StylePatch{FontSize: &size})
	d.SetFontFamily("Go Mono")
	if *n != 5 {
		t.Fatalf("notifications = %d, want 5", *n)
	}
	if d.Style().FontSize != 70 || d.Style().FontFamily != "Go Mono" {
		t.Fatalf("style = %+v", d.Style())
	}
}

func TestClampedSetters(t *testing.T) {
	d, _ := newDoc(t)
	d.SetFontSizeClamped(500)
	d.SetOutlineWidthClamped(-3)
	if d.Style().FontSize != domain.MaxFontSize || d.Style().OutlineWidth != domain.MinOutlineWidth {
		t.Fatalf("clamp failed: %+v", d.Style())
	}
	size := 500
	d.SetStyle(domain.StylePatch{FontSize: &size})
	if d.Style().FontSize != 500 {
		t.Fatalf("programmatic SetStyle must not clamp")
	}
}

func TestRegisterPresetTooLong(t *testing.T) {
	d, n := newDoc(t)
	if err := d.RegisterPreset("short"); err != nil {
		t.Fatal(err)
	}
	before := *n
	err := d.RegisterPreset(strings.Repeat("あ", 101))
	if !errors.Is(err, domain.ErrPresetTooLong) {
		t.Fatalf("err = %v, want ErrPresetTooLong", err)
	}
	if p, _ := d.Preset(); p != "short" {
		t.Fatalf("preset changed to %q", p)
	}
	if d.PresetSummary() != "short" {
		t.Fatalf("summary = %q", d.PresetSummary())
	}
	if *n != before {
		t.Fatalf("rejected preset notified")
	}
	if err := d.RegisterPreset(strings.Repeat("あ", 100)); err != nil {
		t.Fatalf("100 characters must be accepted: %v", err)
	}
}

func TestPresetSummary(t *testing.T) {
	d, _ := newDoc(t)
	if d.PresetSummary() != domain.NoPresetSummary {
		t.Fatalf("summary without preset = %q", d.PresetSummary())
	}
	_ = d.RegisterPreset("0123456789abcdefXYZ")
	if got := d.PresetSummary(); got != "0123456789abcde..." {
		t.Fatalf("summary = %q", got)
	}
	_ = d.RegisterPreset("ちょうど十五文字のプリセットです")
	if got := d.PresetSummary(); !strings.HasSuffix(got, "...") || len([]rune(got)) != 18 {
		t.Fatalf("summary = %q", got)
	}
}

func TestApplyAndEditPreset(t *testing.T) {
	d, n := newDoc(t)
	d.ApplyPreset()
	if d.HasCommittedText() || *n != 0 {
		t.Fatalf("ApplyPreset without preset must be a no-op")
	}
	if d.CanEditPreset() {
		t.Fatalf("CanEditPreset without preset")
	}
	_ = d.RegisterPreset("hello")
	d.ApplyPreset()
	if d.RenderedText() != "hello" {
		t.Fatalf("RenderedText = %q", d.RenderedText())
	}
	long := strings.Repeat("x", 150)
	d.EditPreset(long)
	if p, _ := d.Preset(); p != long {
		t.Fatalf("EditPreset must not enforce the length limit")
	}
}

func TestSetBackground(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "bg.png")
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	d, _ := newDoc(t)
	if err := d.SetBackground(p); err != nil {
		t.Fatalf("SetBackground: %v", err)
	}
	if d.BackgroundPath() != p || d.Background().RGBAAt(5, 5) != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("background not applied")
	}

	missing := filepath.Join(dir, "nope.png")
	err = d.SetBackground(missing)
	if !errors.Is(err, domain.ErrImageLoad) {
		t.Fatalf("err = %v, want ErrImageLoad", err)
	}
	if d.Background().RGBAAt(0, 0) != imageio.PlaceholderColor {
		t.Fatalf("placeholder not shown after failure")
	}
	if d.BackgroundPath() != missing {
		t.Fatalf("attempted path not recorded: %q", d.BackgroundPath())
	}
}

func TestSnapshotRestore(t *testing.T) {
	d, n := newDoc(t)
	snap := d.Snapshot()
	d.SetAnchor(10, 10)
	d.SetFontSizeClamped(120)
	red := "red"
	d.SetStyle(domain.StylePatch{FillColor: &red})
	before := *n
	d.Restore(snap)
	if d.Snapshot() != snap {
		t.Fatalf("restore mismatch: %+v vs %+v", d.Snapshot(), snap)
	}
	if *n != before+1 {
		t.Fatalf("Restore notified %d times", *n-before)
	}
}

func TestLoadNotifiesOnce(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "bg.png")
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 10, 10))); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	d, n := newDoc(t)
	st := d.Snapshot()
	st.Anchor = domain.Anchor{X: 7, Y: 9}
	st.Style.FontSize = 120
	before := *n
	if err := d.Load("看板", st, p); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *n != before+1 {
		t.Fatalf("Load notified %d times, want 1", *n-before)
	}
	if d.LiveText() != "看板" || d.RenderedText() != "看板" || d.Snapshot() != st || d.BackgroundPath() != p {
		t.Fatalf("load not applied: live=%q rendered=%q state=%+v bg=%q", d.LiveText(), d.RenderedText(), d.Snapshot(), d.BackgroundPath())
	}

	before = *n
	err = d.Load("x", st, filepath.Join(dir, "broken.png"))
	if !errors.Is(err, domain.ErrImageLoad) || *n != before+1 {
		t.Fatalf("broken background: err=%v notifications=%d", err, *n-before)
	}
	if d.LiveText() != "x" {
		t.Fatalf("text must be applied past a background error")
	}
}
