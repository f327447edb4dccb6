/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
}

// PathsConfig locates the asset directories. Relative Backgrounds/Projects
// entries are resolved against BaseDir.
type PathsConfig struct {
	BaseDir     string   `yaml:"base_dir"`
	Backgrounds string   `yaml:"backgrounds"`
	Projects    string   `yaml:"projects"`
	FontDirs    []string `yaml:"font_dirs"`
}

type FontsConfig struct {
	Preferred []string `yaml:"preferred"`
}

type GalleryConfig struct {
	NoThumbCache    bool  `yaml:"no_thumb_cache"`
	ThumbCacheBytes int64 `yaml:"thumb_cache_bytes"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Paths         PathsConfig   `yaml:"paths"`
	Fonts         FontsConfig   `yaml:"fonts"`
	Gallery       GalleryConfig `yaml:"gallery"`
	Logging       LoggingConfig `yaml:"logging"`
}

// DefaultPreferredFonts is the initial font search order.
var DefaultPreferredFonts = []string{"Meiryo", "MS UI Gothic", "Yu Gothic UI", "MS Gothic"}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system"},
		Paths:         PathsConfig{Backgrounds: "Image", Projects: "Projects", FontDirs: systemFontDirs()},
		Fonts:         FontsConfig{Preferred: append([]string(nil), DefaultPreferredFonts...)},
		Gallery:       GalleryConfig{ThumbCacheBytes: 32 << 20},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile      = "MOJIST_CONFIG"
	EnvHome            = "MOJIST_HOME"
	EnvBackgroundsDir  = "MOJIST_BACKGROUNDS_DIR"
	EnvProjectsDir     = "MOJIST_PROJECTS_DIR"
	EnvFontDirs        = "MOJIST_FONT_DIRS"
	EnvThumbCache      = "MOJIST_THUMBS"
	EnvThumbCacheBytes = "MOJIST_THUMBS_MAX_BYTES"
	EnvTelemetryOptIn  = "MOJIST_TELEMETRY_OPT_IN"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "MOJIST_LOG_LEVEL"
	EnvLogFormat = "MOJIST_LOG_FORMAT"
	EnvLogSource = "MOJIST_LOG_SOURCE"
	EnvLogFile   = "MOJIST_LOG_FILE"
)

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Mojist")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Mojist")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "mojist")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// A malformed file is reported but the defaults are still returned.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	var parseErr error
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		} else {
			parseErr = fmt.Errorf("parse %s: %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, parseErr
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	// paths
	if v := strings.TrimSpace(src.Paths.BaseDir); v != "" {
		dst.Paths.BaseDir = v
	}
	if v := strings.TrimSpace(src.Paths.Backgrounds); v != "" {
		dst.Paths.Backgrounds = v
	}
	if v := strings.TrimSpace(src.Paths.Projects); v != "" {
		dst.Paths.Projects = v
	}
	if len(src.Paths.FontDirs) > 0 {
		dst.Paths.FontDirs = append([]string(nil), src.Paths.FontDirs...)
	}
	if len(src.Fonts.Preferred) > 0 {
		dst.Fonts.Preferred = append([]string(nil), src.Fonts.Preferred...)
	}
	// gallery
	dst.Gallery.NoThumbCache = src.Gallery.NoThumbCache
	if src.Gallery.ThumbCacheBytes > 0 {
		dst.Gallery.ThumbCacheBytes = src.Gallery.ThumbCacheBytes
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvHome)); v != "" {
		cfg.Paths.BaseDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackgroundsDir)); v != "" {
		cfg.Paths.Backgrounds = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvProjectsDir)); v != "" {
		cfg.Paths.Projects = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvFontDirs)); v != "" {
		cfg.Paths.FontDirs = filepath.SplitList(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvThumbCache)); v != "" {
		cfg.Gallery.NoThumbCache = !parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvThumbCacheBytes)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Gallery.ThumbCacheBytes = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	var name string
	switch key {
	case "paths.base_dir":
		name = EnvHome
	case "paths.backgrounds":
		name = EnvBackgroundsDir
	case "paths.projects":
		name = EnvProjectsDir
	case "paths.font_dirs":
		name = EnvFontDirs
	case "gallery.no_thumb_cache":
		name = EnvThumbCache
	case "gallery.thumb_cache_bytes":
		name = EnvThumbCacheBytes
	case "general.telemetry_opt_in":
		name = EnvTelemetryOptIn
	case "logging.level":
		name = EnvLogLevel
	case "logging.format":
		name = EnvLogFormat
	case "logging.source":
		name = EnvLogSource
	case "logging.file":
		name = EnvLogFile
	default:
		return "", false
	}
	if os.Getenv(name) != "" {
		return name, true
	}
	return "", false
}

// ResolvedPaths holds absolute asset directories.
type ResolvedPaths struct {
	Base        string
	Backgrounds string
	Projects    string
}

// Resolve turns the configured paths into absolute directories. An empty
// BaseDir means the directory holding the executable.
func (p PathsConfig) Resolve() (ResolvedPaths, error) {
	base := p.BaseDir
	if base == "" {
		exe, err := os.Executable()
		if err != nil {
			return ResolvedPaths{}, fmt.Errorf("resolve base dir: %w", err)
		}
		base = filepath.Dir(exe)
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return ResolvedPaths{}, fmt.Errorf("resolve base dir: %w", err)
	}
	join := func(d string) string {
		if filepath.IsAbs(d) {
			return d
		}
		return filepath.Join(base, d)
	}
	return ResolvedPaths{Base: base, Backgrounds: join(p.Backgrounds), Projects: join(p.Projects)}, nil
}

// EnsureDirs creates the backgrounds and projects directories on first run.
func (r ResolvedPaths) EnsureDirs() error {
	for _, d := range []string{r.Backgrounds, r.Projects} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}

func systemFontDirs() []string {
	switch runtime.GOOS {
	case "windows":
		windir := os.Getenv("WINDIR")
		if windir == "" {
			windir = `C:\Windows`
		}
		dirs := []string{filepath.Join(windir, "Fonts")}
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			dirs = append(dirs, filepath.Join(local, "Microsoft", "Windows", "Fonts"))
		}
		return dirs
	case "darwin":
		return []string{"/System/Library/Fonts", "/Library/Fonts", filepath.Join(os.Getenv("HOME"), "Library", "Fonts")}
	default:
		return []string{"/usr/share/fonts", "/usr/local/share/fonts", filepath.Join(os.Getenv("HOME"), ".local", "share", "fonts")}
	}
}
