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
	"github.com/sergiomb2/ufraw-sub001/internal/raw"
)

// Fills the missing channels of every pixel within border of an image edge
// with the average of the native samples in its 3x3 neighborhood, clipped to
// the image bounds. Interior pixels are left untouched.
func BorderInterpolate(img *raw.Image, border int) {
	h, w := img.Height, img.Width
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			if col == border && row >= border && row < h-border && w-border > col {
				col = w - border
			}
			var sum, count [raw.MaxColors]int
			for y := row - 1; y <= row+1; y++ {
				if y < 0 || y >= h {
					continue
				}
				for x := col - 1; x <= col+1; x++ {
					if x < 0 || x >= w {
						continue
					}
					f := img.FC(y, x)
					sum[f] += int(img.Data[y*w+x][f])
					count[f]++
				}
			}
			pix := &img.Data[row*w+col]
			native := img.FC(row, col)
			for c := 0; c < img.Colors; c++ {
				if c != native && count[c] > 0 {
					pix[c] = uint16(sum[c] / count[c])
				}
			}
		}
	}
}
