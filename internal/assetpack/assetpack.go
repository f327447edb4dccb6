/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package assetpack moves background images between installations as zip
// archives.
package assetpack

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mojist/internal/gallery"
	applog "mojist/internal/log"
)

// ManifestName is the informational text file at the archive root.
const ManifestName = "mojist.pack.txt"

// Export zips every background image directly under bgDir into destZip and
// returns the number of images added. Subdirectories (including the cache)
// are not included.
func Export(bgDir, destZip string) (n int, err error) {
	l := applog.WithOperation(applog.WithComponent("assetpack"), "export").With(slog.String("dir", bgDir))
	if strings.TrimSpace(bgDir) == "" {
		return 0, errors.New("backgrounds dir is required")
	}
	if strings.TrimSpace(destZip) == "" {
		return 0, errors.New("destination zip is required")
	}
	ents, err := os.ReadDir(bgDir)
	if err != nil {
		return 0, fmt.Errorf("read backgrounds: %w", err)
	}
	var names []string
	for _, e := range ents {
		if !e.IsDir() && gallery.IsImageFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	if err := os.MkdirAll(filepath.Dir(destZip), 0o755); err != nil {
		return 0, fmt.Errorf("ensure zip dir: %w", err)
	}
	// On Windows, remove destination if present before create
	_ = os.Remove(destZip)
	zf, err := os.Create(destZip)
	if err != nil {
		return 0, fmt.Errorf("create zip: %w", err)
	}
	defer func() {
		if cerr := zf.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	zw := zip.NewWriter(zf)

	manifest := fmt.Sprintf("Mojist background pack\nCreated: %s\nImages: %d\n", time.Now().Format(time.RFC3339), len(names))
	w, err := zw.Create(ManifestName)
	if err != nil {
		return 0, fmt.Errorf("add manifest: %w", err)
	}
	if _, err := io.WriteString(w, manifest); err != nil {
		return 0, fmt.Errorf("write manifest: %w", err)
	}
	for _, name := range names {
		if err := addFile(zw, filepath.Join(bgDir, name), name); err != nil {
			l.Error("zip build failed", slog.String("file", name), slog.Any("err", err))
			return n, fmt.Errorf("add %s: %w", name, err)
		}
		n++
	}
	if err := zw.Close(); err != nil {
		return n, fmt.Errorf("finish zip: %w", err)
	}
	l.Info("background pack exported", slog.Int("files", n), slog.String("zip", destZip))
	return n, nil
}

func addFile(zw *zip.Writer, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		return err
	}
	_, err = io.Copy(fw, f)
	return err
}

// Install extracts the images of packZip into bgDir. Entries that are not
// images, or whose file already exists, are skipped. Directory structure in
// the archive is flattened. It returns the number of files written.
func Install(packZip, bgDir string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("assetpack"), "install").With(slog.String("dir", bgDir))
	if strings.TrimSpace(bgDir) == "" {
		return 0, errors.New("backgrounds dir is required")
	}
	if err := os.MkdirAll(bgDir, 0o755); err != nil {
		return 0, fmt.Errorf("ensure backgrounds dir: %w", err)
	}
	r, err := zip.OpenReader(packZip)
	if err != nil {
		return 0, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()

	installed := 0
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		base := path.Base(strings.ReplaceAll(f.Name, `\`, "/"))
		if base == "." || base == ".." || !gallery.IsImageFile(base) {
			continue
		}
		target := filepath.Join(bgDir, base)
		if _, err := os.Stat(target); err == nil {
			l.Warn("skip existing file", slog.String("path", target))
			continue
		}
		if err := extract(f, target); err != nil {
			return installed, fmt.Errorf("extract %s: %w", f.Name, err)
		}
		installed++
	}
	l.Info("background pack installed", slog.Int("files", installed))
	return installed, nil
}

func extract(f *zip.File, target string) (err error) {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(out, rc)
	return err
}
