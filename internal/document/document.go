/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package document holds the single composition a user edits: background,
// text, style, anchor and preset. Every mutation notifies the listener so the
// owner can re-render. A Document is not safe for concurrent use.
package document

import (
	"image"
	"log/slog"

	"mojist/internal/domain"
	"mojist/internal/imageio"
	applog "mojist/internal/log"
)

// Listener is called after every mutation.
type Listener func()

type Document struct {
	backgroundPath string
	background     *image.RGBA

	liveText      string
	committedText *string

	style  domain.TextStyle
	anchor domain.Anchor
	preset *string

	onChange Listener
	log      *slog.Logger
}

// New returns a document with default style in family, the gray placeholder
// background and no text.
func New(family string) *Document {
	return &Document{
		background: imageio.Placeholder(),
		style:      domain.DefaultStyle(family),
		anchor:     domain.DefaultAnchor(),
		log:        applog.WithComponent("document"),
	}
}

// OnChange sets the mutation listener. Nil disables notification.
func (d *Document) OnChange(fn Listener) { d.onChange = fn }

func (d *Document) notify() {
	if d.onChange != nil {
		d.onChange()
	}
}

func (d *Document) BackgroundPath() string  { return d.backgroundPath }
func (d *Document) Background() *image.RGBA { return d.background }
func (d *Document) LiveText() string        { return d.liveText }
func (d *Document) Style() domain.TextStyle { return d.style }
func (d *Document) Anchor() domain.Anchor   { return d.anchor }
func (d *Document) HasPreset() bool         { return d.preset != nil }
func (d *Document) CanEditPreset() bool     { return d.preset != nil }
func (d *Document) HasCommittedText() bool  { return d.committedText != nil }

// CommittedText returns the committed text and whether one is present.
func (d *Document) CommittedText() (string, bool) {
	if d.committedText == nil {
		return "", false
	}
	return *d.committedText, true
}

// Preset returns the stored preset and whether one is present.
func (d *Document) Preset() (string, bool) {
	if d.preset == nil {
		return "", false
	}
	return *d.preset, true
}

// RenderedText is the committed text when present (even if empty), else the
// live text when non-empty, else the placeholder.
func (d *Document) RenderedText() string {
	if d.committedText != nil {
		return *d.committedText
	}
	if d.liveText != "" {
		return d.liveText
	}
	return domain.PlaceholderText
}

func (d *Document) SetLiveText(s string) {
	d.liveText = s
	d.notify()
}

// CommitLiveText freezes the current live text as the rendered text.
func (d *Document) CommitLiveText() {
	s := d.liveText
	d.committedText = &s
	d.notify()
}

// SetCommittedText sets committed text directly, as a project load does.
func (d *Document) SetCommittedText(s string) {
	d.committedText = &s
	d.notify()
}

// SetStyle applies a partial style update. Values are not clamped.
func (d *Document) SetStyle(p domain.StylePatch) {
	d.style = p.Apply(d.style)
	d.notify()
}

// ReplaceStyle sets every style field at once.
func (d *Document) ReplaceStyle(s domain.TextStyle) {
	d.style = s
	d.notify()
}

func (d *Document) SetFontFamily(name string) {
	d.style.FontFamily = name
	d.notify()
}

func (d *Document) SetAnchor(x, y int) {
	d.anchor = domain.Anchor{X: x, Y: y}
	d.notify()
}

// SetFontSizeClamped sets the size within the slider range.
func (d *Document) SetFontSizeClamped(n int) {
	d.style.FontSize = domain.Clamp(n, domain.MinFontSize, domain.MaxFontSize)
	d.notify()
}

// SetOutlineWidthClamped sets the outline width within the slider range.
func (d *Document) SetOutlineWidthClamped(n int) {
	d.style.OutlineWidth = domain.Clamp(n, domain.MinOutlineWidth, domain.MaxOutlineWidth)
	d.notify()
}

// RegisterPreset stores text as the preset. Text longer than 100 characters
// is rejected with domain.ErrPresetTooLong and nothing changes.
func (d *Document) RegisterPreset(text string) error {
	if n := len([]rune(text)); n > domain.MaxPresetRunes {
		d.log.Warn("preset rejected", "len", n, "max", domain.MaxPresetRunes)
		return domain.ErrPresetTooLong
	}
	d.preset = &text
	d.notify()
	return nil
}

// PresetSummary returns the first 15 characters of the preset followed by
// "..." when longer, or the no-preset label.
func (d *Document) PresetSummary() string {
	if d.preset == nil {
		return domain.NoPresetSummary
	}
	r := []rune(*d.preset)
	if len(r) > domain.PresetSummaryRunes {
		return string(r[:domain.PresetSummaryRunes]) + "..."
	}
	return *d.preset
}

// ApplyPreset makes the preset the committed text. No-op without a preset.
func (d *Document) ApplyPreset() {
	if d.preset == nil {
		return
	}
	s := *d.preset
	d.committedText = &s
	d.notify()
}

// EditPreset overwrites the preset without a length check.
func (d *Document) EditPreset(text string) {
	d.preset = &text
	d.notify()
}

// SetBackground loads path as the background. On failure the gray
// placeholder is used and the *domain.ImageLoadError is returned. The path is
// recorded either way.
func (d *Document) SetBackground(path string) error {
	err := d.loadBackground(path)
	d.notify()
	return err
}

func (d *Document) loadBackground(path string) error {
	d.backgroundPath = path
	img, err := imageio.LoadBackground(path)
	if err != nil {
		d.log.Warn("background load failed", "path", path, "err", err)
		d.background = imageio.Placeholder()
		return err
	}
	d.background = img
	return nil
}

// Load replaces the committed and live text, style and anchor and, when
// bgPath is not empty, the background, with a single notification. A
// background that fails to decode leaves the placeholder and is returned.
func (d *Document) Load(text string, s domain.EditState, bgPath string) error {
	d.committedText = &text
	d.liveText = text
	d.style = s.Style
	d.anchor = s.Anchor
	var err error
	if bgPath != "" {
		err = d.loadBackground(bgPath)
	}
	d.notify()
	return err
}

// ClearBackground drops the background path and shows the placeholder.
func (d *Document) ClearBackground() {
	d.backgroundPath = ""
	d.background = imageio.Placeholder()
	d.notify()
}

// Snapshot captures what an adjustment session may roll back.
func (d *Document) Snapshot() domain.EditState {
	return domain.EditState{Anchor: d.anchor, Style: d.style}
}

// Restore writes a snapshot back with a single notification.
func (d *Document) Restore(s domain.EditState) {
	d.anchor = s.Anchor
	d.style = s.Style
	d.notify()
}
