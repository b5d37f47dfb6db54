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

// Interpolates a three color Bayer mosaic with patterned pixel grouping.
// Green is estimated along the flatter of the two axes, then red and blue
// are derived from color differences against green.
func PPGInterpolate(img *raw.Image, c *ops.Context) {
	BorderInterpolate(img, 3)
	h, w, data := img.Height, img.Width, img.Data
	dir := [5]int{1, w, -1, -w, 1}

	// green at red and blue pixels
	for row := 3; row < h-3; row++ {
		col := 3 + img.FC(row, 3)&1
		for ch := img.FC(row, col); col < w-3; col += 2 {
			p := row*w + col
			var guess, diff [2]int
			for i := 0; i < 2; i++ {
				d := dir[i]
				guess[i] = (int(data[p-d][1])+int(data[p][ch])+int(data[p+d][1]))*2 -
					int(data[p-2*d][ch]) - int(data[p+2*d][ch])
				diff[i] = (abs(int(data[p-2*d][ch])-int(data[p][ch]))+
					abs(int(data[p+2*d][ch])-int(data[p][ch]))+
					abs(int(data[p-d][1])-int(data[p+d][1])))*3 +
					(abs(int(data[p+3*d][1])-int(data[p+d][1]))+
						abs(int(data[p-3*d][1])-int(data[p-d][1])))*2
			}
			i := 0
			if diff[0] > diff[1] {
				i = 1
			}
			d := dir[i]
			data[p][1] = ulim(guess[i]>>2, int(data[p+d][1]), int(data[p-d][1]))
		}
	}

	// red and blue at green pixels
	for row := 1; row < h-1; row++ {
		col := 1 + img.FC(row, 2)&1
		for ch := img.FC(row, col+1); col < w-1; col += 2 {
			p := row*w + col
			cc := ch
			for i := 0; i < 2; i++ {
				d := dir[i]
				data[p][cc] = raw.Clip((int(data[p-d][cc]) + int(data[p+d][cc]) + 2*int(data[p][1]) -
					int(data[p-d][1]) - int(data[p+d][1])) >> 1)
				cc = 2 - cc
			}
		}
	}

	// blue at red pixels and vice versa
	for row := 1; row < h-1; row++ {
		col := 1 + img.FC(row, 1)&1
		for ch := 2 - img.FC(row, col); col < w-1; col += 2 {
			p := row*w + col
			var guess, diff [2]int
			for i := 0; i < 2; i++ {
				d := dir[i] + dir[i+1]
				diff[i] = abs(int(data[p-d][ch])-int(data[p+d][ch])) +
					abs(int(data[p-d][1])-int(data[p][1])) +
					abs(int(data[p+d][1])-int(data[p][1]))
				guess[i] = int(data[p-d][ch]) + int(data[p+d][ch]) + 2*int(data[p][1]) -
					int(data[p-d][1]) - int(data[p+d][1])
			}
			switch {
			case diff[0] > diff[1]:
				data[p][ch] = raw.Clip(guess[1] >> 1)
			case diff[0] < diff[1]:
				data[p][ch] = raw.Clip(guess[0] >> 1)
			default:
				data[p][ch] = raw.Clip((guess[0] + guess[1]) >> 2)
			}
		}
	}
}

// Limits x to the range spanned by y and z, in either order
func ulim(x, y, z int) uint16 {
	if y > z {
		y, z = z, y
	}
	if x < y {
		x = y
	} else if x > z {
		x = z
	}
	return uint16(x)
}
