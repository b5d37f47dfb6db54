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

// Reduces a mosaic by an integer factor without interpolating. Every output
// pixel averages the native samples of each channel in its scale x scale block.
// The last row and column of blocks may be partial, and take channels they
// lack from the previous block.
func Shrink(img *raw.Image, scale int, c *ops.Context) (*raw.Image, error) {
	if scale < 2 {
		return nil, fmt.Errorf("%w: shrink factor %d", ops.ErrInvalid, scale)
	}
	h, w := (img.Height+scale-1)/scale, (img.Width+scale-1)/scale
	if err := c.CheckAlloc(h * w); err != nil {
		return nil, err
	}
	res := raw.NewImageFromImage(img, h, w)
	res.Filters = 0
	res.FujiWidth = (img.FujiWidth + scale - 1) / scale

	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			var sum, count [raw.MaxColors]int
			for y := row * scale; y < (row+1)*scale && y < img.Height; y++ {
				for x := col * scale; x < (col+1)*scale && x < img.Width; x++ {
					f := img.FC(y, x)
					sum[f] += int(img.Data[y*img.Width+x][f])
					count[f]++
				}
			}
			pix := &res.Data[row*w+col]
			for ch := 0; ch < img.Colors; ch++ {
				switch {
				case count[ch] > 0:
					pix[ch] = uint16(sum[ch] / count[ch])
				case col > 0:
					pix[ch] = res.Data[row*w+col-1][ch]
				case row > 0:
					pix[ch] = res.Data[(row-1)*w+col][ch]
				}
			}
		}
	}
	c.Messagef(ops.StatusVerbose, "%d: Shrunk by %d from %dx%d to %dx%d", img.ID, scale, img.Width, img.Height, w, h)
	return res, nil
}
