//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"path/filepath"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"mojist/internal/adjust"
	"mojist/internal/app"
	"mojist/internal/crash"
	"mojist/internal/domain"
	"mojist/internal/export"
	applog "mojist/internal/log"
	"mojist/internal/render"
	"mojist/internal/version"
)

// Run starts the desktop UI. projectPath, when set, is loaded on start.
func Run(projectPath string) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	fa := fyneapp.NewWithID("mojist")
	w := fa.NewWindow("Mojist")
	prefs := fa.Preferences()
	winW := prefs.IntWithFallback("window.width", 1040)
	winH := prefs.IntWithFallback("window.height", 700)
	if winW < 640 {
		winW = 640
	}
	if winH < 480 {
		winH = 480
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	studio, err := app.NewFromConfig(adjust.TimerScheduler{Post: fyne.Do}, dialogNotifier{w: w})
	if err != nil {
		return err
	}
	defer crash.Recover(studio)
	defer func() {
		if err := studio.Close(); err != nil {
			l.Warn("studio close failed", slog.Any("err", err))
		}
	}()

	view := canvas.NewImageFromImage(studio.Canvas())
	view.FillMode = canvas.ImageFillContain
	view.ScaleMode = canvas.ImageScaleSmooth
	view.SetMinSize(fyne.NewSize(domain.CanvasWidth/2, domain.CanvasHeight/2))
	studio.OnCanvas(func(img *image.RGBA) {
		view.Image = img
		view.Refresh()
	})

	input := widget.NewEntry()
	input.SetPlaceHolder(domain.PlaceholderText)
	input.OnChanged = func(s string) { studio.Doc.SetLiveText(s) }
	input.OnSubmitted = func(string) { studio.Doc.CommitLiveText() }

	fontSelect := widget.NewSelect(studio.FontFamilies(), nil)
	fontSelect.SetSelected(studio.Doc.Style().FontFamily)
	fontSelect.OnChanged = func(s string) { studio.Doc.SetFontFamily(s) }

	presetBtn := widget.NewButton(studio.Doc.PresetSummary(), nil)
	refreshPreset := func() {
		presetBtn.SetText(studio.Doc.PresetSummary())
		if studio.Doc.CanEditPreset() {
			presetBtn.Enable()
		} else {
			presetBtn.Disable()
		}
	}
	presetBtn.OnTapped = func() { showPresetEditor(w, studio, refreshPreset) }
	refreshPreset()

	registerBtn := widget.NewButton("プリセット登録", func() {
		if err := studio.Doc.RegisterPreset(input.Text); err != nil {
			// too long: logged by the document, nothing else changes
			return
		}
		refreshPreset()
	})

	syncFromDoc := func() {
		input.SetText(studio.Doc.LiveText())
		fontSelect.SetSelected(studio.Doc.Style().FontFamily)
	}

	var rebuildMenu func()
	saveProject := func() {
		d := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if uc == nil {
				return
			}
			p := dialogSavePath(uc, ".json")
			if err := studio.SaveProject(p); err != nil {
				return
			}
			addRecentProject(prefs, p)
			rebuildMenu()
			dialog.ShowInformation("保存完了", "プロジェクトを保存しました。\n"+filepath.Base(p), w)
		}, w)
		d.SetFileName("project.json")
		d.SetFilter(fstorage.NewExtensionFileFilter([]string{".json"}))
		setDialogDir(d, studio.ProjectsDir())
		d.Show()
	}
	loadPath := func(p string) {
		err := studio.LoadProject(p)
		if err != nil && !errors.Is(err, domain.ErrMissingBackground) && !errors.Is(err, domain.ErrImageLoad) {
			if errors.Is(err, domain.ErrProjectIO) && studio.HasBackups(p) {
				dialog.ShowConfirm("読み込みエラー", "最新のバックアップから復元しますか？", func(ok bool) {
					if !ok {
						return
					}
					if err := studio.RecoverProject(p); err == nil || errors.Is(err, domain.ErrMissingBackground) {
						syncFromDoc()
					}
				}, w)
			}
			return
		}
		syncFromDoc()
		addRecentProject(prefs, p)
		rebuildMenu()
		l.Info("project opened", slog.String("path", p))
	}
	loadProject := func() {
		d := dialog.NewFileOpen(func(ur fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if ur == nil {
				return
			}
			p := ur.URI().Path()
			_ = ur.Close()
			loadPath(p)
		}, w)
		d.SetFilter(fstorage.NewExtensionFileFilter([]string{".json"}))
		setDialogDir(d, studio.ProjectsDir())
		d.Show()
	}
	exportCanvas := func(ext string) {
		d := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if uc == nil {
				return
			}
			p := dialogSavePath(uc, ext)
			if _, err := studio.Export(p, export.Options{PDF: export.PDFOptions{Author: "Mojist"}}); err != nil {
				return
			}
			dialog.ShowInformation("書き出し", "書き出しました: "+p, w)
		}, w)
		d.SetFileName("mojist" + ext)
		d.SetFilter(fstorage.NewExtensionFileFilter([]string{ext}))
		d.Show()
	}

	var adjustWin fyne.Window
	openAdjust := func() {
		sess, reopened := studio.Adjust.Open()
		if reopened && adjustWin != nil {
			adjustWin.RequestFocus()
			return
		}
		adjustWin = newAdjustWindow(fa, studio, sess)
		adjustWin.SetOnClosed(func() { adjustWin = nil })
		adjustWin.Show()
	}

	buttons := container.NewHBox(
		widget.NewButton("反映", func() { studio.Doc.CommitLiveText() }),
		widget.NewSeparator(),
		registerBtn,
		presetBtn,
		widget.NewButton("プリセット反映", func() { studio.Doc.ApplyPreset() }),
		widget.NewSeparator(),
		widget.NewButton("総合調整", openAdjust),
		widget.NewButton("背景変更", func() { showGallery(fa, studio) }),
		widget.NewSeparator(),
		widget.NewButton("保存", saveProject),
		widget.NewButton("呼び出し", loadProject),
	)
	top := container.NewBorder(nil, nil, nil, fontSelect, input)
	w.SetContent(container.NewBorder(container.NewVBox(top, buttons), nil, nil, nil, view))

	rebuildMenu = func() {
		saveItem := fyne.NewMenuItem("保存…", saveProject)
		saveItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierControl}
		openItem := fyne.NewMenuItem("呼び出し…", loadProject)
		openItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierControl}
		recentItem := fyne.NewMenuItem("最近使ったプロジェクト", nil)
		var recent []*fyne.MenuItem
		for _, p := range loadRecentProjects(prefs) {
			recent = append(recent, fyne.NewMenuItem(p, func() { loadPath(p) }))
		}
		if len(recent) == 0 {
			recentItem.Disabled = true
		} else {
			recentItem.ChildMenu = fyne.NewMenu("", recent...)
		}
		fileMenu := fyne.NewMenu("ファイル", openItem, saveItem, recentItem, fyne.NewMenuItemSeparator(),
			fyne.NewMenuItem("PNGで書き出し…", func() { exportCanvas(".png") }),
			fyne.NewMenuItem("PDFで書き出し…", func() { exportCanvas(".pdf") }),
		)
		bgMenu := fyne.NewMenu("背景",
			fyne.NewMenuItem("背景変更…", func() { showGallery(fa, studio) }),
			fyne.NewMenuItem("背景なし", func() { studio.Doc.ClearBackground() }),
			fyne.NewMenuItemSeparator(),
			fyne.NewMenuItem("素材パックを取り込む…", func() { importPack(w, studio) }),
			fyne.NewMenuItem("素材パックを書き出す…", func() { exportPack(w, studio) }),
		)
		aboutMenu := fyne.NewMenu("ヘルプ", fyne.NewMenuItem("Mojistについて", func() {
			dialog.ShowInformation("Mojist", "Version: "+version.String(), w)
		}))
		w.SetMainMenu(fyne.NewMainMenu(fileMenu, bgMenu, aboutMenu))
	}
	rebuildMenu()
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierControl}, func(fyne.Shortcut) { saveProject() })

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		w.Close()
	})

	if projectPath != "" {
		loadPath(projectPath)
	}

	w.ShowAndRun()
	return nil
}

func setDialogDir(d *dialog.FileDialog, dir string) {
	lister, err := fstorage.ListerForURI(fstorage.NewFileURI(dir))
	if err == nil {
		d.SetLocation(lister)
	}
}

func showPresetEditor(parent fyne.Window, studio *app.Studio, done func()) {
	text, ok := studio.Doc.Preset()
	if !ok {
		return
	}
	entry := widget.NewEntry()
	entry.SetText(text)
	d := dialog.NewForm("プリセット編集", "反映", "キャンセル", []*widget.FormItem{
		widget.NewFormItem("プリセットを編集:", entry),
	}, func(apply bool) {
		if !apply {
			return
		}
		studio.Doc.EditPreset(entry.Text)
		done()
	}, parent)
	d.Resize(fyne.NewSize(480, 160))
	d.Show()
}

// newAdjustWindow builds the adjustment window for sess. Closing the window
// cancels the session.
func newAdjustWindow(fa fyne.App, studio *app.Studio, sess *adjust.Session) fyne.Window {
	l := applog.WithSession(applog.WithComponent("ui"), sess.ID())
	win := fa.NewWindow("総合調整")
	win.Resize(fyne.NewSize(420, 320))
	win.SetFixedSize(true)
	logErr := func(op string, err error) {
		if err != nil {
			l.Warn("adjust failed", slog.String("op", op), slog.Any("err", err))
		}
	}
	st := studio.Doc.Style()

	// position
	step := widget.NewRadioGroup(stepOptions, func(s string) {
		n, err := stepFromLabel(s)
		if err == nil {
			logErr("step", sess.SetStep(n))
		}
	})
	step.Horizontal = true
	step.SetSelected(stepOptions[0])
	arrow := func(label string, dir domain.Direction) fyne.CanvasObject {
		return newRepeatButton(label, func() { logErr("press", sess.Press(dir)) }, sess.Release)
	}
	pad := container.NewGridWithColumns(3,
		layoutSpacer(), arrow("↑", domain.Up), layoutSpacer(),
		arrow("←", domain.Left), layoutSpacer(), arrow("→", domain.Right),
		layoutSpacer(), arrow("↓", domain.Down), layoutSpacer(),
	)
	posPanel := container.NewVBox(widget.NewLabel("移動ステップ数"), step, container.NewCenter(pad))

	// size
	sizeLabel := widget.NewLabel(fmt.Sprint(st.FontSize))
	sizeSlider := widget.NewSlider(domain.MinFontSize, domain.MaxFontSize)
	sizeSlider.Step = 1
	sizeSlider.SetValue(float64(domain.Clamp(st.FontSize, domain.MinFontSize, domain.MaxFontSize)))
	sizeSlider.OnChanged = func(v float64) {
		logErr("font size", sess.SetFontSize(int(v)))
		sizeLabel.SetText(fmt.Sprint(studio.Doc.Style().FontSize))
	}
	sizePanel := container.NewVBox(container.NewHBox(widget.NewLabel("フォントサイズ:"), sizeLabel), sizeSlider)

	// color
	fillPreview := colorSwatch(st.FillColor)
	outlinePreview := colorSwatch(st.OutlineColor)
	pick := func(title string, preview *canvas.Rectangle, apply func(string) error) func() {
		return func() {
			p := dialog.NewColorPicker(title, "", func(c color.Color) {
				hex := hexColor(c)
				if err := apply(hex); err != nil {
					logErr("color", err)
					return
				}
				preview.FillColor = c
				preview.Refresh()
			}, win)
			p.Advanced = true
			p.Show()
		}
	}
	colorPanel := container.NewVBox(
		container.NewHBox(widget.NewButton("文字色", pick("文字色", fillPreview, sess.SetFillColor)), fillPreview),
		container.NewHBox(widget.NewButton("縁の色", pick("縁の色", outlinePreview, sess.SetOutlineColor)), outlinePreview),
	)

	// outline
	widthLabel := widget.NewLabel(fmt.Sprint(st.OutlineWidth))
	widthSlider := widget.NewSlider(domain.MinOutlineWidth, domain.MaxOutlineWidth)
	widthSlider.Step = 1
	widthSlider.SetValue(float64(domain.Clamp(st.OutlineWidth, domain.MinOutlineWidth, domain.MaxOutlineWidth)))
	widthSlider.OnChanged = func(v float64) {
		logErr("outline width", sess.SetOutlineWidth(int(v)))
		widthLabel.SetText(fmt.Sprint(studio.Doc.Style().OutlineWidth))
	}
	outlinePanel := container.NewVBox(container.NewHBox(widget.NewLabel("縁の太さ:"), widthLabel), widthSlider)

	tabs := container.NewAppTabs(
		container.NewTabItem("位置調整", posPanel),
		container.NewTabItem("サイズ調整", sizePanel),
		container.NewTabItem("色の調整", colorPanel),
		container.NewTabItem("縁の調整", outlinePanel),
	)
	tabs.SetTabLocation(container.TabLocationLeading)

	cancel := func() {
		logErr("cancel", sess.Cancel())
		win.Close()
	}
	confirm := func() {
		logErr("confirm", sess.Confirm())
		win.Close()
	}
	actions := container.NewHBox(layoutSpacer(), widget.NewButton("決定", confirm), widget.NewButton("キャンセル", cancel))
	win.SetContent(container.NewBorder(nil, actions, nil, nil, tabs))
	win.SetCloseIntercept(cancel)
	return win
}

func colorSwatch(name string) *canvas.Rectangle {
	c, err := render.ParseColor(name)
	if err != nil {
		c = color.RGBA{A: 255}
	}
	r := canvas.NewRectangle(c)
	r.StrokeColor = color.Gray{Y: 96}
	r.StrokeWidth = 1
	r.SetMinSize(fyne.NewSize(100, 25))
	return r
}

func layoutSpacer() fyne.CanvasObject {
	r := canvas.NewRectangle(color.Transparent)
	r.SetMinSize(fyne.NewSize(40, 32))
	return r
}

// showGallery opens the background picker over the studio gallery.
func showGallery(fa fyne.App, studio *app.Studio) {
	g := studio.Gallery
	if err := g.Open(); err != nil {
		applog.WithComponent("ui").Warn("gallery open failed", slog.Any("err", err))
	}
	win := fa.NewWindow("背景変更")
	grid := container.NewGridWithColumns(3)
	pageLabel := widget.NewLabel(g.PageLabel())

	var draw func()
	draw = func() {
		grid.Objects = nil
		for _, t := range g.PageTiles() {
			img := canvas.NewImageFromImage(t.Thumb)
			img.FillMode = canvas.ImageFillContain
			img.SetMinSize(fyne.NewSize(160, 90))
			frame := canvas.NewRectangle(color.Transparent)
			if t.Selected {
				frame.StrokeColor = color.RGBA{R: 0x33, G: 0x99, B: 0xff, A: 0xff}
				frame.StrokeWidth = 3
			}
			idx := t.Index
			tap := widget.NewButton("", func() {
				if err := g.Select(idx); err == nil {
					draw()
				}
			})
			tap.Importance = widget.LowImportance
			grid.Add(container.NewStack(tap, frame, container.NewBorder(nil, widget.NewLabel(t.Name), nil, nil, img)))
		}
		grid.Refresh()
		pageLabel.SetText(g.PageLabel())
	}
	nav := container.NewHBox(
		widget.NewButton("←", func() {
			if g.GoToPage(-1) {
				draw()
			}
		}),
		pageLabel,
		widget.NewButton("→", func() {
			if g.GoToPage(1) {
				draw()
			}
		}),
		widget.NewButton("🔄 再読み込み", func() {
			if err := g.Reload(); err != nil {
				dialog.ShowError(err, win)
			}
			draw()
		}),
	)
	apply := widget.NewButton("決定", func() {
		_ = studio.ApplyGallerySelection()
		win.Close()
	})
	win.SetContent(container.NewBorder(container.NewCenter(nav), container.NewHBox(layoutSpacer(), apply), nil, nil, grid))
	win.SetOnClosed(g.Close)
	draw()
	win.Show()
}

func importPack(w fyne.Window, studio *app.Studio) {
	open := dialog.NewFileOpen(func(ur fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if ur == nil {
			return
		}
		p := ur.URI().Path()
		_ = ur.Close()
		n, err := studio.InstallAssetPack(p)
		if err != nil {
			return
		}
		dialog.ShowInformation("素材パック", fmt.Sprintf("%d 枚の画像を取り込みました", n), w)
	}, w)
	open.SetFilter(fstorage.NewExtensionFileFilter([]string{".zip"}))
	open.Show()
}

func exportPack(w fyne.Window, studio *app.Studio) {
	save := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if uc == nil {
			return
		}
		p := dialogSavePath(uc, ".zip")
		n, err := studio.ExportAssetPack(p)
		if err != nil {
			return
		}
		dialog.ShowInformation("素材パック", fmt.Sprintf("%d 枚の画像を書き出しました: %s", n, p), w)
	}, w)
	save.SetFileName("backgrounds-pack.zip")
	save.SetFilter(fstorage.NewExtensionFileFilter([]string{".zip"}))
	save.Show()
}
