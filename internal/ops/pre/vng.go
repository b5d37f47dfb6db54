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
	"github.com/sergiomb2/ufraw-sub001/internal/ops"
	"github.com/sergiomb2/ufraw-sub001/internal/raw"
)

// Gradient terms: y1, x1, y2, x2, weight, bitmask of compass directions
var vngTerms = [64][6]int{
	{-2, -2, +0, -1, 0, 0x01}, {-2, -2, +0, +0, 1, 0x01}, {-2, -1, -1, +0, 0, 0x01},
	{-2, -1, +0, -1, 0, 0x02}, {-2, -1, +0, +0, 0, 0x03}, {-2, -1, +0, +1, 1, 0x01},
	{-2, +0, +0, -1, 0, 0x06}, {-2, +0, +0, +0, 1, 0x02}, {-2, +0, +0, +1, 0, 0x03},
	{-2, +1, -1, +0, 0, 0x04}, {-2, +1, +0, -1, 1, 0x04}, {-2, +1, +0, +0, 0, 0x06},
	{-2, +1, +0, +1, 0, 0x02}, {-2, +2, +0, +0, 1, 0x04}, {-2, +2, +0, +1, 0, 0x04},
	{-1, -2, -1, +0, 0, 0x80}, {-1, -2, +0, -1, 0, 0x01}, {-1, -2, +1, -1, 0, 0x01},
	{-1, -2, +1, +0, 1, 0x01}, {-1, -1, -1, +1, 0, 0x88}, {-1, -1, +1, -2, 0, 0x40},
	{-1, -1, +1, -1, 0, 0x22}, {-1, -1, +1, +0, 0, 0x33}, {-1, -1, +1, +1, 1, 0x11},
	{-1, +0, -1, +2, 0, 0x08}, {-1, +0, +0, -1, 0, 0x44}, {-1, +0, +0, +1, 0, 0x11},
	{-1, +0, +1, -2, 1, 0x40}, {-1, +0, +1, -1, 0, 0x66}, {-1, +0, +1, +0, 1, 0x22},
	{-1, +0, +1, +1, 0, 0x33}, {-1, +0, +1, +2, 1, 0x10}, {-1, +1, +1, -1, 1, 0x44},
	{-1, +1, +1, +0, 0, 0x66}, {-1, +1, +1, +1, 0, 0x22}, {-1, +1, +1, +2, 0, 0x10},
	{-1, +2, +0, +1, 0, 0x04}, {-1, +2, +1, +0, 1, 0x04}, {-1, +2, +1, +1, 0, 0x04},
	{+0, -2, +0, +0, 1, 0x80}, {+0, -1, +0, +1, 1, 0x88}, {+0, -1, +1, -2, 0, 0x40},
	{+0, -1, +1, +0, 0, 0x11}, {+0, -1, +2, -2, 0, 0x40}, {+0, -1, +2, -1, 0, 0x20},
	{+0, -1, +2, +0, 0, 0x30}, {+0, -1, +2, +1, 1, 0x10}, {+0, +0, +0, +2, 1, 0x08},
	{+0, +0, +2, -2, 1, 0x40}, {+0, +0, +2, -1, 0, 0x60}, {+0, +0, +2, +0, 1, 0x20},
	{+0, +0, +2, +1, 0, 0x30}, {+0, +0, +2, +2, 1, 0x10}, {+0, +1, +1, +0, 0, 0x44},
	{+0, +1, +1, +2, 0, 0x10}, {+0, +1, +2, -1, 1, 0x40}, {+0, +1, +2, +0, 0, 0x60},
	{+0, +1, +2, +1, 0, 0x20}, {+0, +1, +2, +2, 0, 0x10}, {+1, -2, +1, +0, 0, 0x80},
	{+1, -1, +1, +1, 0, 0x88}, {+1, +0, +1, +2, 0, 0x08}, {+1, +0, +2, -1, 0, 0x40},
	{+1, +0, +2, +1, 0, 0x10},
}

// Compass directions, clockwise from the upper left
var vngChood = [8][2]int{{-1, -1}, {-1, 0}, {-1, +1}, {0, +1}, {+1, +1}, {+1, 0}, {+1, -1}, {0, -1}}

// A gradient term comparing two samples of the same color
type vngTerm struct {
	y1, x1, y2, x2 int
	color          int
	weight         uint
	grads          uint8
}

// A neighbor in one compass direction. If second is set, the neighbor has a
// different color than the center, and the sample twice as far away in the
// same direction shares the center's color.
type vngNeighbor struct {
	y, x   int
	second bool
}

// VNG kernel for one phase class
type vngCode struct {
	native    int
	terms     []vngTerm
	neighbors [8]vngNeighbor
}

// VNG kernels for all phase classes of a CFA pattern. Immutable once built.
type VNGTable struct {
	Filters uint32
	codes   [numPhases]vngCode
}

// Builds the VNG kernels for the given pattern, dropping terms that compare
// samples of different colors or that are degenerate diagonals for this phase.
func NewVNGTable(filters uint32) *VNGTable {
	fc := func(row, col int) int { return raw.FC(filters, row+8, col+2) }
	t := &VNGTable{Filters: filters}
	for row := 0; row < 8; row++ {
		for col := 0; col < 2; col++ {
			code := &t.codes[phase(row, col)]
			code.native = fc(row, col)
			for _, term := range vngTerms {
				y1, x1, y2, x2 := term[0], term[1], term[2], term[3]
				color := fc(row+y1, col+x1)
				if fc(row+y2, col+x2) != color {
					continue
				}
				diag := 1
				if fc(row, col+1) == color && fc(row+1, col) == color {
					diag = 2
				}
				if abs(y1-y2) == diag && abs(x1-x2) == diag {
					continue
				}
				code.terms = append(code.terms, vngTerm{
					y1: y1, x1: x1, y2: y2, x2: x2,
					color:  color,
					weight: uint(term[4]),
					grads:  uint8(term[5]),
				})
			}
			for g, d := range vngChood {
				y, x := d[0], d[1]
				code.neighbors[g] = vngNeighbor{
					y:      y,
					x:      x,
					second: fc(row+y, col+x) != code.native && fc(row+2*y, col+2*x) == code.native,
				}
			}
		}
	}
	return t
}

type vngKey struct{ filters uint32 }

// Returns the VNG table for the pattern, cached in the context
func vngTableFor(filters uint32, c *ops.Context) *VNGTable {
	return c.Table(vngKey{filters}, func() interface{} { return NewVNGTable(filters) }).(*VNGTable)
}

// Interpolates all missing channels of a mosaic with variable number of gradients.
// Starts from a bilinear interpolation and refines all pixels at least two pixels
// away from every edge. Results are buffered in a ring of three rows, so a row
// is only overwritten once no later row reads it.
func VNGInterpolate(img *raw.Image, c *ops.Context) {
	BilinearInterpolate(img, c)
	h, w := img.Height, img.Width
	if h < 5 || w < 5 {
		return
	}
	table := vngTableFor(img.Filters, c)

	var ring [3][][raw.MaxColors]uint16
	for i := range ring {
		ring[i] = make([][raw.MaxColors]uint16, w)
	}
	writeBack := func(row int) {
		copy(img.Data[row*w+2:row*w+w-2], ring[row%3][2:w-2])
	}

	for row := 2; row < h-2; row++ {
		out := ring[row%3]
		for col := 2; col < w-2; col++ {
			out[col] = vngPixel(img.Data, w, row*w+col, &table.codes[phase(row, col)], img.Colors)
		}
		if row >= 4 {
			writeBack(row - 2)
		}
	}
	start := h - 4
	if start < 2 {
		start = 2
	}
	for row := start; row < h-2; row++ {
		writeBack(row)
	}
}

// Computes the VNG result for the pixel at the given offset
func vngPixel(data [][raw.MaxColors]uint16, w, base int, code *vngCode, colors int) (res [raw.MaxColors]uint16) {
	pix := data[base]

	var gval [8]int
	for _, t := range code.terms {
		a := int(data[base+t.y1*w+t.x1][t.color])
		b := int(data[base+t.y2*w+t.x2][t.color])
		diff := abs(a-b) << t.weight
		for g := 0; g < 8; g++ {
			if t.grads&(1<<uint(g)) != 0 {
				gval[g] += diff
			}
		}
	}

	gmin, gmax := gval[0], gval[0]
	for _, g := range gval[1:] {
		if g < gmin {
			gmin = g
		}
		if g > gmax {
			gmax = g
		}
	}
	if gmax == 0 {
		return pix
	}
	thold := gmin + (gmax-gmin)/2

	native := code.native
	var sum [raw.MaxColors]int
	num := 0
	for g, n := range code.neighbors {
		if gval[g] > thold {
			continue
		}
		nb := &data[base+n.y*w+n.x]
		for ch := 0; ch < colors; ch++ {
			if ch == native && n.second {
				sum[ch] += (int(pix[ch]) + int(data[base+2*(n.y*w+n.x)][ch])) >> 1
			} else {
				sum[ch] += int(nb[ch])
			}
		}
		num++
	}

	for ch := 0; ch < colors; ch++ {
		t := int(pix[native])
		if ch != native {
			t += (sum[ch] - sum[native]) / num
		}
		res[ch] = raw.Clip(t)
	}
	return res
}

// Interpolates a three color mosaic with separate greens on alternate rows,
// then averages the two greens. Reduces maze artifacts on sensors whose green
// pixels differ between red and blue rows.
func VNG4Interpolate(img *raw.Image, c *ops.Context) {
	if img.Colors != 3 {
		VNGInterpolate(img, c)
		return
	}
	img.ToFourColor()
	VNGInterpolate(img, c)
	img.MixGreen()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
