/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"image/color"
	"strconv"
	"strings"

	"mojist/internal/domain"

	"golang.org/x/image/colornames"
)

// ParseColor accepts "#rgb", "#rrggbb" or a CSS/SVG color name (case and
// inner spaces ignored, so "Light Blue" works).
func ParseColor(s string) (color.RGBA, error) {
	v := strings.TrimSpace(s)
	if strings.HasPrefix(v, "#") {
		hex := v[1:]
		switch len(hex) {
		case 3:
			n, err := strconv.ParseUint(hex, 16, 16)
			if err != nil {
				break
			}
			r, g, b := uint8(n>>8&0xf), uint8(n>>4&0xf), uint8(n&0xf)
			return color.RGBA{R: r * 17, G: g * 17, B: b * 17, A: 0xff}, nil
		case 6:
			n, err := strconv.ParseUint(hex, 16, 32)
			if err != nil {
				break
			}
			return color.RGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 0xff}, nil
		}
		return color.RGBA{}, &domain.InvalidColorError{Value: s}
	}
	name := strings.ToLower(strings.ReplaceAll(v, " ", ""))
	if c, ok := colornames.Map[name]; ok {
		return c, nil
	}
	return color.RGBA{}, &domain.InvalidColorError{Value: s}
}
