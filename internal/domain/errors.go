/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below wrap them so callers can use errors.Is
// for the category and errors.As for the details.
var (
	ErrImageLoad         = errors.New("image load failed")
	ErrFontUnavailable   = errors.New("font unavailable")
	ErrPresetTooLong     = errors.New("preset too long")
	ErrMissingBackground = errors.New("background image missing")
	ErrProjectIO         = errors.New("project i/o failed")
	ErrInvalidColor      = errors.New("invalid color")
)

// ImageLoadError reports a background that could not be decoded.
type ImageLoadError struct {
	Path string
	Err  error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("load image %s: %v", e.Path, e.Err)
}

func (e *ImageLoadError) Unwrap() []error { return []error{ErrImageLoad, e.Err} }

// FontUnavailableError reports a family the font registry does not know.
type FontUnavailableError struct {
	Family string
}

func (e *FontUnavailableError) Error() string {
	return fmt.Sprintf("font %q unavailable", e.Family)
}

func (e *FontUnavailableError) Unwrap() error { return ErrFontUnavailable }

// MissingBackgroundError is the load-time warning for a project whose
// background file no longer exists.
type MissingBackgroundError struct {
	Path string
}

func (e *MissingBackgroundError) Error() string {
	return fmt.Sprintf("background image not found: %s", e.Path)
}

func (e *MissingBackgroundError) Unwrap() error { return ErrMissingBackground }

// ProjectIOError wraps any failure while reading or writing a project file.
type ProjectIOError struct {
	Op   string // "read", "write", "validate", "decode"
	Path string
	Err  error
}

func (e *ProjectIOError) Error() string {
	return fmt.Sprintf("project %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ProjectIOError) Unwrap() []error { return []error{ErrProjectIO, e.Err} }

// InvalidColorError reports a color string that does not parse.
type InvalidColorError struct {
	Value string
}

func (e *InvalidColorError) Error() string {
	return fmt.Sprintf("invalid color %q", e.Value)
}

func (e *InvalidColorError) Unwrap() error { return ErrInvalidColor }
