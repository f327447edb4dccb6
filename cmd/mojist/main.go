/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"mojist/internal/app"
	"mojist/internal/config"
	"mojist/internal/crash"
	"mojist/internal/domain"
	"mojist/internal/export"
	applog "mojist/internal/log"
	"mojist/internal/telemetry"
	"mojist/internal/ui"
	"mojist/internal/version"
)

func usage() {
	fmt.Println("Mojist — text overlay on background images")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mojist version|-v|--version              Show version")
	fmt.Println("  mojist init                              Create the background and project directories")
	fmt.Println("  mojist render <project.json> <out>       Render a project to out.png or out.pdf")
	fmt.Println("  mojist gallery [page]                    List a page of background images (1-based)")
	fmt.Println("  mojist pack export <out.zip>             Zip the background images")
	fmt.Println("  mojist pack install <pack.zip>           Add the images of a pack to the backgrounds")
	fmt.Println("  mojist ui [project.json]                 Launch desktop UI (build with -tags fyne for full UI)")
}

// cliNotifier prints studio warnings and errors to stderr.
type cliNotifier struct{}

func (cliNotifier) Warn(msg string) { fmt.Fprintln(os.Stderr, "Warning:", msg) }
func (cliNotifier) Error(err error) { fmt.Fprintln(os.Stderr, "Error:", err) }

func fail(l *slog.Logger, msg string, err error) int {
	l.Error(msg, slog.Any("err", err))
	fmt.Println("Error:", err)
	return 1
}

func main() {
	applog.Init(applog.FromEnv())
	os.Exit(run(os.Args))
}

// run executes one command and returns the process exit code. Commands that
// open a studio return through its deferred cleanup.
func run(args []string) int {
	l := applog.WithComponent("cli")
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return 0
	}

	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("Mojist")
		fmt.Println(version.String())
		return 0
	case "init":
		cfg, err := config.Load()
		if err != nil {
			l.Warn("config load failed; using defaults", slog.Any("err", err))
		}
		paths, err := cfg.Paths.Resolve()
		if err != nil {
			return fail(l, "resolve paths failed", err)
		}
		if err := paths.EnsureDirs(); err != nil {
			return fail(l, "init failed", err)
		}
		fmt.Println("Backgrounds:", paths.Backgrounds)
		fmt.Println("Projects:   ", paths.Projects)
		return 0
	case "ui":
		var project string
		if len(args) >= 3 {
			project = args[2]
		}
		if err := ui.Run(project); err != nil {
			fmt.Println("Error:", err)
			return 1
		}
		return 0
	}

	studio, err := app.NewFromConfig(nil, cliNotifier{})
	if err != nil {
		return fail(l, "startup failed", err)
	}
	defer crash.Recover(studio)
	defer studio.Close()
	defer telemetry.Flush(2 * time.Second)

	switch args[1] {
	case "render":
		if len(args) < 4 {
			fmt.Println("render requires <project.json> and <out>")
			usage()
			return 2
		}
		err := studio.LoadProject(args[2])
		if err != nil && !errors.Is(err, domain.ErrMissingBackground) && !errors.Is(err, domain.ErrImageLoad) {
			return 1
		}
		f, err := studio.Export(args[3], export.Options{})
		if err != nil {
			return 1
		}
		fmt.Printf("Wrote %s (%s)\n", args[3], f)
	case "gallery":
		page := 1
		if len(args) >= 3 {
			n, err := strconv.Atoi(args[2])
			if err != nil || n < 1 {
				fmt.Println("page must be a positive number")
				return 2
			}
			page = n
		}
		g := studio.Gallery
		if err := g.Open(); err != nil {
			return fail(l, "gallery scan failed", err)
		}
		defer g.Close()
		if !g.GoToPage(page - 1) {
			fmt.Printf("no page %d (pages: %d)\n", page, g.Pages())
			return 2
		}
		fmt.Printf("%s  page %s\n", studio.BackgroundsDir(), g.PageLabel())
		for _, t := range g.PageTiles() {
			fmt.Printf("  %3d  %s\n", t.Index, t.Name)
		}
	case "pack":
		if len(args) < 4 {
			fmt.Println("pack requires export|install and a zip path")
			usage()
			return 2
		}
		switch args[2] {
		case "export":
			n, err := studio.ExportAssetPack(args[3])
			if err != nil {
				return 1
			}
			fmt.Printf("Exported %d images to %s\n", n, args[3])
		case "install":
			n, err := studio.InstallAssetPack(args[3])
			if err != nil {
				return 1
			}
			fmt.Printf("Installed %d images into %s\n", n, studio.BackgroundsDir())
		default:
			usage()
			return 2
		}
	default:
		usage()
		return 2
	}
	return 0
}
