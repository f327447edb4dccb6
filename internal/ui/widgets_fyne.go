//go:build fyne

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// repeatButton reports press and release separately so a held arrow can
// keep nudging. A pointer leaving the button counts as a release.
type repeatButton struct {
	widget.Button
	onPress   func()
	onRelease func()
	held      bool
}

var _ desktop.Mouseable = (*repeatButton)(nil)

func newRepeatButton(label string, press, release func()) *repeatButton {
	b := &repeatButton{onPress: press, onRelease: release}
	b.Text = label
	b.ExtendBaseWidget(b)
	return b
}

func (b *repeatButton) MouseDown(e *desktop.MouseEvent) {
	if e != nil && e.Button != desktop.MouseButtonPrimary {
		return
	}
	b.held = true
	if b.onPress != nil {
		b.onPress()
	}
}

func (b *repeatButton) MouseUp(*desktop.MouseEvent) { b.release() }

func (b *repeatButton) MouseOut() {
	b.Button.MouseOut()
	b.release()
}

// Tapped is swallowed; MouseDown already stepped once.
func (b *repeatButton) Tapped(*fyne.PointEvent) {}

func (b *repeatButton) release() {
	if !b.held {
		return
	}
	b.held = false
	if b.onRelease != nil {
		b.onRelease()
	}
}

// stepOptions are the nudge step choices shown in the position panel.
var stepOptions = []string{"1px", "5px", "10px"}

func stepFromLabel(s string) (int, error) {
	return strconv.Atoi(strings.TrimSuffix(s, "px"))
}

func hexColor(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B)
}

// dialogNotifier shows studio warnings and errors as dialogs on w.
type dialogNotifier struct{ w fyne.Window }

func (n dialogNotifier) Warn(msg string) { dialog.ShowInformation("警告", msg, n.w) }
func (n dialogNotifier) Error(err error) { dialog.ShowError(err, n.w) }

// Recent project persistence helpers
const recentPrefsKey = "recent.projects"
const recentMax = 10

func loadRecentProjects(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		var tmp []string
		if err := json.Unmarshal([]byte(raw), &tmp); err == nil {
			items = tmp
		}
	}
	// Filter out non-existing files
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func saveRecentProjects(p fyne.Preferences, items []string) {
	if len(items) > recentMax {
		items = items[:recentMax]
	}
	b, _ := json.Marshal(items)
	p.SetString(recentPrefsKey, string(b))
}

func addRecentProject(p fyne.Preferences, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	abs, _ := filepath.Abs(path)
	rec := loadRecentProjects(p)
	out := make([]string, 0, 1+len(rec))
	out = append(out, abs)
	for _, s := range rec {
		// de-dup (case-insensitive on Windows)
		if strings.EqualFold(s, abs) {
			continue
		}
		out = append(out, s)
	}
	saveRecentProjects(p, out)
}

// dialogSavePath closes the writer a save dialog opened and returns the path
// to write, with ext appended when missing.
func dialogSavePath(uc fyne.URIWriteCloser, ext string) string {
	p := uc.URI().Path()
	_ = uc.Close()
	return dropPlaceholder(p, ext)
}

// dropPlaceholder removes the empty file the save dialog created at p, so
// neither a stray extensionless file nor an empty backup is left behind.
func dropPlaceholder(p, ext string) string {
	if st, err := os.Stat(p); err == nil && st.Mode().IsRegular() && st.Size() == 0 {
		_ = os.Remove(p)
	}
	if !strings.HasSuffix(strings.ToLower(p), ext) {
		p += ext
	}
	return p
}
