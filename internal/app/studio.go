/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package app wires the document, renderer, adjustment controller, gallery
// and persistence into a Studio. UI shells and the CLI drive a Studio; it is
// not safe for concurrent use.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"

	"mojist/internal/adjust"
	"mojist/internal/assetpack"
	"mojist/internal/config"
	"mojist/internal/document"
	"mojist/internal/domain"
	"mojist/internal/export"
	"mojist/internal/gallery"
	"mojist/internal/imageio"
	applog "mojist/internal/log"
	"mojist/internal/render"
	"mojist/internal/storage"
	"mojist/internal/telemetry"
)

// AutosaveDirName is the folder under the projects directory that receives
// crash autosaves and crash reports.
const AutosaveDirName = "autosave"

// Notifier surfaces warnings and errors to the user. The CLI prints them,
// the desktop shell shows dialogs.
type Notifier interface {
	Warn(msg string)
	Error(err error)
}

type logNotifier struct{ l *slog.Logger }

func (n logNotifier) Warn(msg string) { n.l.Warn(msg) }
func (n logNotifier) Error(err error) { n.l.Error("error", slog.Any("err", err)) }

// Options configures New. Zero values fall back to defaults.
type Options struct {
	Config    config.AppConfig
	Paths     config.ResolvedPaths
	Scheduler adjust.Scheduler
	Notifier  Notifier
}

type Studio struct {
	cfg   config.AppConfig
	paths config.ResolvedPaths

	Fonts    *render.FontRegistry
	Renderer *render.Renderer
	Doc      *document.Document
	Adjust   *adjust.Controller
	Gallery  *gallery.Gallery

	thumbs      *storage.ThumbCache
	defaultFont string
	canvas      *image.RGBA
	onCanvas    func(*image.RGBA)
	notify      Notifier
	log         *slog.Logger
}

// New builds a Studio: fonts are scanned from the configured directories,
// the document starts in the initial family and P000.png is loaded when
// present. The first canvas is rendered before New returns.
func New(opt Options) (*Studio, error) {
	l := applog.WithComponent("studio")
	if opt.Paths.Backgrounds == "" || opt.Paths.Projects == "" {
		return nil, errors.New("studio: backgrounds and projects directories are required")
	}
	if err := opt.Paths.EnsureDirs(); err != nil {
		return nil, err
	}
	s := &Studio{
		cfg:    opt.Config,
		paths:  opt.Paths,
		notify: opt.Notifier,
		log:    l,
	}
	if s.notify == nil {
		s.notify = logNotifier{l: l}
	}

	s.Fonts = render.NewFontRegistry()
	for _, dir := range opt.Config.Paths.FontDirs {
		n, err := s.Fonts.ScanDir(dir)
		if err != nil {
			l.Debug("font dir skipped", slog.String("dir", dir), slog.Any("err", err))
			continue
		}
		l.Debug("font dir scanned", slog.String("dir", dir), slog.Int("faces", n))
	}
	s.defaultFont = s.Fonts.Initial(opt.Config.Fonts.Preferred)
	s.Renderer = render.NewRenderer(s.Fonts)
	s.Doc = document.New(s.defaultFont)

	sched := opt.Scheduler
	if sched == nil {
		sched = adjust.TimerScheduler{}
	}
	s.Adjust = adjust.NewController(s.Doc, sched)

	var store gallery.ThumbStore
	if !opt.Config.Gallery.NoThumbCache {
		tc, err := storage.OpenThumbCache(opt.Paths.Backgrounds, opt.Config.Gallery.ThumbCacheBytes)
		if err != nil {
			l.Warn("thumbnail cache disabled", slog.Any("err", err))
		} else {
			s.thumbs = tc
			store = tc
		}
	}
	s.Gallery = gallery.New(opt.Paths.Backgrounds, store)

	if p, ok := gallery.DefaultBackground(opt.Paths.Backgrounds); ok {
		if err := s.Doc.SetBackground(p); err != nil {
			s.notify.Error(err)
		}
	}
	s.Doc.OnChange(s.Render)
	s.Render()
	l.Info("studio ready", slog.String("font", s.defaultFont), slog.Int("families", len(s.Fonts.Families())))
	return s, nil
}

// NewFromConfig loads the user configuration, resolves the asset directories
// and builds a Studio. A malformed config file is reported and defaults are
// used.
func NewFromConfig(sched adjust.Scheduler, n Notifier) (*Studio, error) {
	cfg, err := config.Load()
	if err != nil {
		applog.WithComponent("studio").Warn("config load failed; using defaults", slog.Any("err", err))
	}
	paths, err := cfg.Paths.Resolve()
	if err != nil {
		return nil, err
	}
	telemetry.NewDefault(telemetry.FromConfig(cfg.General.TelemetryOptIn))
	return New(Options{Config: cfg, Paths: paths, Scheduler: sched, Notifier: n})
}

// Close releases the thumbnail cache.
func (s *Studio) Close() error {
	if s.thumbs == nil {
		return nil
	}
	err := s.thumbs.Close()
	s.thumbs = nil
	return err
}

func (s *Studio) Config() config.AppConfig      { return s.cfg }
func (s *Studio) Paths() config.ResolvedPaths   { return s.paths }
func (s *Studio) DefaultFont() string           { return s.defaultFont }
func (s *Studio) Canvas() *image.RGBA           { return s.canvas }
func (s *Studio) OnCanvas(fn func(*image.RGBA)) { s.onCanvas = fn }
func (s *Studio) SetNotifier(n Notifier)        { s.notify = n }
func (s *Studio) FontFamilies() []string        { return s.Fonts.Families() }
func (s *Studio) ProjectsDir() string           { return s.paths.Projects }
func (s *Studio) BackgroundsDir() string        { return s.paths.Backgrounds }
func (s *Studio) AutosaveDir() string           { return filepath.Join(s.paths.Projects, AutosaveDirName) }
func (s *Studio) ReportDir() string             { return s.AutosaveDir() }

// Render composes the background and the text into a fresh canvas. An
// unavailable font falls back to the default family and an unparsable color
// to the default colors, so the canvas is always valid. Both faults are
// resolved before drawing, so they can occur together.
func (s *Studio) Render() {
	st := s.frameStyle()
	text := s.Doc.RenderedText()
	canvas, err := s.compose(text, st)
	if errors.Is(err, domain.ErrFontUnavailable) && st.FontFamily != s.defaultFont {
		// registered but unreadable face
		s.log.Warn("font unavailable; using default", slog.String("font", st.FontFamily), slog.String("default", s.defaultFont))
		st.FontFamily = s.defaultFont
		canvas, err = s.compose(text, st)
	}
	if err != nil {
		s.log.Error("render failed", slog.Any("err", err))
	}
	s.canvas = canvas
	if s.onCanvas != nil {
		s.onCanvas(canvas)
	}
}

// frameStyle is the document style with an unknown family replaced by the
// default and unparsable colors replaced by the default pair.
func (s *Studio) frameStyle() domain.TextStyle {
	st := s.Doc.Style()
	if !s.Fonts.Has(st.FontFamily) && st.FontFamily != s.defaultFont {
		s.log.Warn("font unavailable; using default", slog.String("font", st.FontFamily), slog.String("default", s.defaultFont))
		st.FontFamily = s.defaultFont
	}
	_, ferr := render.ParseColor(st.FillColor)
	_, oerr := render.ParseColor(st.OutlineColor)
	if err := errors.Join(ferr, oerr); err != nil {
		s.log.Warn("invalid color; using defaults for this frame", slog.Any("err", err))
		st.FillColor = domain.DefaultFillColor
		st.OutlineColor = domain.DefaultOutlineColor
	}
	return st
}

func (s *Studio) compose(text string, st domain.TextStyle) (*image.RGBA, error) {
	canvas := imageio.Clone(s.Doc.Background())
	_, err := s.Renderer.Render(canvas, s.Doc.Anchor(), text, st)
	return canvas, err
}

// SaveProject writes the document to path.
func (s *Studio) SaveProject(path string) error {
	rec := storage.RecordFromDocument(s.Doc)
	if err := storage.SaveProject(path, rec); err != nil {
		s.notify.Error(err)
		return err
	}
	s.log.InfoContext(applog.ContextWithProject(context.Background(), path), "project saved")
	telemetry.Event(telemetry.EventProjectSaved, map[string]any{"has_background": rec.BackgroundImagePath != ""})
	return nil
}

// LoadProject reads path into the document. A read or validation failure
// leaves the document untouched. A missing or broken background is reported
// as a warning and returned, but the rest of the project is applied.
func (s *Studio) LoadProject(path string) error {
	ctx := applog.ContextWithProject(context.Background(), path)
	rec, err := storage.ReadProject(path, s.defaultFont)
	if err != nil {
		s.log.WarnContext(ctx, "project read failed", slog.Any("err", err))
		s.notify.Error(err)
		return err
	}
	if !s.Fonts.Has(rec.FontName) {
		s.log.WarnContext(ctx, "project font not installed", slog.String("font", rec.FontName))
	}
	err = storage.ApplyRecord(s.Doc, rec)
	switch {
	case errors.Is(err, domain.ErrMissingBackground):
		s.notify.Warn(fmt.Sprintf("背景画像が見つかりません: %s", rec.BackgroundImagePath))
	case err != nil:
		s.notify.Error(err)
	}
	s.log.InfoContext(ctx, "project loaded")
	telemetry.Event(telemetry.EventProjectLoaded, map[string]any{"has_background": rec.BackgroundImagePath != ""})
	return err
}

// HasBackups reports whether path has backups to recover from.
func (s *Studio) HasBackups(path string) bool {
	bs, err := storage.Backups(path)
	return err == nil && len(bs) > 0
}

// RecoverProject loads the newest backup of path, for when the project file
// itself no longer reads.
func (s *Studio) RecoverProject(path string) error {
	rec, err := storage.ReadLatestBackup(path, s.defaultFont)
	if err != nil {
		s.notify.Error(err)
		return err
	}
	err = storage.ApplyRecord(s.Doc, rec)
	if errors.Is(err, domain.ErrMissingBackground) {
		s.notify.Warn(fmt.Sprintf("背景画像が見つかりません: %s", rec.BackgroundImagePath))
	}
	s.log.InfoContext(applog.ContextWithProject(context.Background(), path), "project recovered from backup")
	return err
}

// Autosave writes the document to the autosave directory. It is used by the
// crash handler and returns the written path.
func (s *Studio) Autosave() (string, error) {
	return storage.AutosaveDocument(s.AutosaveDir(), storage.RecordFromDocument(s.Doc))
}

// Export writes the current canvas to outPath as PNG or PDF.
func (s *Studio) Export(outPath string, opt export.Options) (export.Format, error) {
	if opt.PDF.Title == "" {
		opt.PDF.Title = s.Doc.RenderedText()
	}
	f, err := export.Export(s.canvas, outPath, opt)
	if err != nil {
		s.notify.Error(err)
		return f, err
	}
	s.log.Info("canvas exported", slog.String("path", outPath), slog.String("format", string(f)))
	telemetry.Event(telemetry.EventExport, map[string]any{"format": string(f)})
	return f, nil
}

// ApplyGallerySelection loads the selected gallery image as the background
// and closes the gallery.
func (s *Studio) ApplyGallerySelection() error {
	_, had := s.Gallery.Selected()
	if err := s.Gallery.ConfirmSelection(s.Doc); err != nil {
		s.notify.Error(err)
		return err
	}
	if had {
		telemetry.Event(telemetry.EventBackgroundChanged, nil)
	}
	return nil
}

// InstallAssetPack copies the images of a pack into the backgrounds
// directory and refreshes the gallery.
func (s *Studio) InstallAssetPack(zipPath string) (int, error) {
	n, err := assetpack.Install(zipPath, s.paths.Backgrounds)
	if err != nil {
		s.notify.Error(err)
		return n, err
	}
	if err := s.Gallery.Reload(); err != nil {
		s.log.Warn("gallery reload failed", slog.Any("err", err))
	}
	return n, nil
}

// ExportAssetPack zips the backgrounds directory into destZip.
func (s *Studio) ExportAssetPack(destZip string) (int, error) {
	n, err := assetpack.Export(s.paths.Backgrounds, destZip)
	if err != nil {
		s.notify.Error(err)
	}
	return n, err
}
