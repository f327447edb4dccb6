/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model shared by the renderer, the document,
// the adjustment session and project persistence.

// Canvas dimensions in pixels. Every background is resized to this.
const (
	CanvasWidth  = 1024
	CanvasHeight = 576
)

// Defaults for a fresh document and for fields missing from a project file.
const (
	DefaultFontSize     = 50
	DefaultFillColor    = "white"
	DefaultOutlineColor = "black"
	DefaultOutlineWidth = 2
	DefaultAnchorX      = 512
	DefaultAnchorY      = 502
	// PlaceholderText is rendered when neither committed nor live text is available.
	PlaceholderText = "文字"
)

// Slider ranges.
const (
	MinFontSize     = 10
	MaxFontSize     = 200
	MinOutlineWidth = 0
	MaxOutlineWidth = 10
)

// Preset limits.
const (
	MaxPresetRunes     = 100
	PresetSummaryRunes = 15
	NoPresetSummary    = "プリセットなし"
)

// Anchor is the canvas point the text run is centered on.
type Anchor struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DefaultAnchor returns the initial text position.
func DefaultAnchor() Anchor { return Anchor{X: DefaultAnchorX, Y: DefaultAnchorY} }

// Offset returns the anchor moved by (dx, dy).
func (a Anchor) Offset(dx, dy int) Anchor { return Anchor{X: a.X + dx, Y: a.Y + dy} }

// TextStyle describes how the text run is drawn. Colors are "#rgb", "#rrggbb"
// or a CSS/SVG color name.
type TextStyle struct {
	FontFamily   string `json:"font_name"`
	FontSize     int    `json:"font_size"`
	Bold         bool   `json:"-"`
	FillColor    string `json:"text_color"`
	OutlineColor string `json:"outline_color"`
	OutlineWidth int    `json:"outline_width"`
}

// DefaultStyle returns the initial style for the given family.
func DefaultStyle(family string) TextStyle {
	return TextStyle{
		FontFamily:   family,
		FontSize:     DefaultFontSize,
		Bold:         true,
		FillColor:    DefaultFillColor,
		OutlineColor: DefaultOutlineColor,
		OutlineWidth: DefaultOutlineWidth,
	}
}

// StylePatch is a partial TextStyle update; nil fields are left unchanged.
type StylePatch struct {
	FontFamily   *string
	FontSize     *int
	FillColor    *string
	OutlineColor *string
	OutlineWidth *int
}

// Apply returns s with the non-nil patch fields applied.
func (p StylePatch) Apply(s TextStyle) TextStyle {
	if p.FontFamily != nil {
		s.FontFamily = *p.FontFamily
	}
	if p.FontSize != nil {
		s.FontSize = *p.FontSize
	}
	if p.FillColor != nil {
		s.FillColor = *p.FillColor
	}
	if p.OutlineColor != nil {
		s.OutlineColor = *p.OutlineColor
	}
	if p.OutlineWidth != nil {
		s.OutlineWidth = *p.OutlineWidth
	}
	return s
}

// EditState is the part of a document an adjustment session may roll back.
type EditState struct {
	Anchor Anchor
	Style  TextStyle
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Direction is a nudge direction for the adjustment session.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

// Delta returns the unit vector of d in canvas coordinates (y grows downward).
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	}
	return 0, 0
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return "unknown"
}
