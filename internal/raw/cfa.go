// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package raw

import (
	"fmt"
	"strings"
)

// Channel indices into a pixel record
const (
	Red    = 0
	Green  = 1
	Blue   = 2
	Green2 = 3
)

// Maximum number of channels per pixel record
const MaxColors = 4

// Packed color filter array patterns. Each 2-bit field holds the color
// index for one (row mod 8, col mod 2) position, starting at the lowest bits.
// Pattern: RGRGRGRG
//          GBGBGBGB
const (
	FiltersRGGB uint32 = 0x94949494
	FiltersBGGR uint32 = 0x16161616
	FiltersGRBG uint32 = 0x61616161
	FiltersGBRG uint32 = 0x49494949
)

// Returns the color index for the given row and column of a packed CFA pattern.
// Row and column must not be negative.
func FC(filters uint32, row, col int) int {
	return int(filters >> uint((((row<<1)&14)|(col&1))<<1) & 3)
}

// Re-tags the green pixels on the second green row of a three color pattern
// as color 3, so both greens can be interpolated separately.
func FourColorFilters(filters uint32) uint32 {
	return filters | ((filters>>2&0x22222222)|(filters<<2&0x88888888))&(filters<<1)
}

// Folds color 3 of a four color pattern back onto color 1
func ThreeColorFilters(filters uint32) uint32 {
	return filters &^ ((filters & 0x55555555) << 1)
}

// Returns true if the pattern uses color 3
func IsFourColor(filters uint32) bool {
	for i := uint(0); i < 32; i += 2 {
		if filters>>i&3 == 3 {
			return true
		}
	}
	return false
}

// Translate color filter array name into a packed pattern
func ParseCFA(cfa string) (uint32, error) {
	switch strings.ToUpper(cfa) {
	case "RGGB":
		return FiltersRGGB, nil
	case "BGGR":
		return FiltersBGGR, nil
	case "GRBG":
		return FiltersGRBG, nil
	case "GBRG":
		return FiltersGBRG, nil
	}
	return 0, fmt.Errorf("unknown CFA value %s", cfa)
}
