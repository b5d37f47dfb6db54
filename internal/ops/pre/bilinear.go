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

package pre

import (
	"fmt"

	"github.com/sergiomb2/ufraw-sub001/internal/ops"
	"github.com/sergiomb2/ufraw-sub001/internal/raw"
)

// Number of phase classes of a CFA pattern, 8 row phases times 2 column phases
const numPhases = 16

// Returns the phase class of a pixel
func phase(row, col int) int {
	return (row&7)<<1 | col&1
}

// A neighbor contributing its native sample to a bilinear average
type linTerm struct {
	dy, dx int
	shift  uint
	color  int
}

// Bilinear kernel for one phase class
type linCode struct {
	native int
	terms  [8]linTerm
	total  [raw.MaxColors]int
}

// Bilinear kernels for all phase classes of a CFA pattern. Immutable once built.
type BilinearTable struct {
	Filters uint32
	codes   [numPhases]linCode
}

// Builds the bilinear kernels for the given pattern. Axis-aligned neighbors
// weigh twice as much as diagonal ones.
func NewBilinearTable(filters uint32) *BilinearTable {
	t := &BilinearTable{Filters: filters}
	for row := 0; row < 8; row++ {
		for col := 0; col < 2; col++ {
			code := &t.codes[phase(row, col)]
			code.native = raw.FC(filters, row, col)
			i := 0
			for y := -1; y <= 1; y++ {
				for x := -1; x <= 1; x++ {
					if y == 0 && x == 0 {
						continue
					}
					shift := uint(1)
					if y == 0 || x == 0 {
						shift = 2
					}
					color := raw.FC(filters, row+8+y, col+2+x)
					code.terms[i] = linTerm{dy: y, dx: x, shift: shift, color: color}
					code.total[color] += 1 << shift
					i++
				}
			}
		}
	}
	return t
}

type bilinearKey struct{ filters uint32 }

// Returns the bilinear table for the pattern, cached in the context
func bilinearTableFor(filters uint32, c *ops.Context) *BilinearTable {
	return c.Table(bilinearKey{filters}, func() interface{} { return NewBilinearTable(filters) }).(*BilinearTable)
}

// Interpolates all missing channels of a mosaic bilinearly. Pixels on the
// outermost ring are filled by BorderInterpolate.
func BilinearInterpolate(img *raw.Image, c *ops.Context) {
	BorderInterpolate(img, 1)
	table := bilinearTableFor(img.Filters, c)
	h, w, data := img.Height, img.Width, img.Data
	for row := 1; row < h-1; row++ {
		for col := 1; col < w-1; col++ {
			code := &table.codes[phase(row, col)]
			base := row*w + col
			var sum [raw.MaxColors]int
			for _, t := range code.terms {
				sum[t.color] += int(data[base+t.dy*w+t.dx][t.color]) << t.shift
			}
			pix := &data[base]
			for ch := 0; ch < img.Colors; ch++ {
				if ch != code.native && code.total[ch] > 0 {
					pix[ch] = uint16(sum[ch] / code.total[ch])
				}
			}
		}
	}
}

// Checks that an image is a mosaic that can be interpolated
func checkMosaic(img *raw.Image) error {
	if err := img.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ops.ErrInvalid, err.Error())
	}
	if img.Filters == 0 {
		return fmt.Errorf("%w: %d: image is not a mosaic", ops.ErrInvalid, img.ID)
	}
	return nil
}
