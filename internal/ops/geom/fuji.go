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

package geom

import (
	"fmt"
	"math"

	"github.com/sergiomb2/ufraw-sub001/internal/ops"
	"github.com/sergiomb2/ufraw-sub001/internal/raw"
)

// Resamples an image from a sensor with diagonally arranged photosites onto
// an upright grid, rotating it by 45 degrees. Output pixels whose source falls
// outside the image stay zero. No-op if the image has no diagonal width.
func FujiRotate(img *raw.Image, c *ops.Context) (*raw.Image, error) {
	if img.FujiWidth == 0 {
		return img, nil
	}
	step := math.Sqrt(0.5)
	fw := img.FujiWidth
	wide := int(float64(fw) / step)
	high := int(float64(img.Height-fw) / step)
	if wide <= 0 || high <= 0 {
		return nil, fmt.Errorf("%w: diagonal width %d leaves no rows of height %d", ops.ErrInvalid, fw, img.Height)
	}
	if err := c.CheckAlloc(wide * high); err != nil {
		return nil, err
	}
	res := raw.NewImageFromImage(img, high, wide)
	res.FujiWidth = 0

	h, w := img.Height, img.Width
	for row := 0; row < high; row++ {
		for col := 0; col < wide; col++ {
			r := float64(fw) + float64(row-col)*step
			cc := float64(row+col) * step
			if r < 0 || cc < 0 {
				continue
			}
			ur, uc := int(r), int(cc)
			if ur > h-2 || uc > w-2 {
				continue
			}
			fr, fc := r-float64(ur), cc-float64(uc)
			p := ur*w + uc
			pix := &res.Data[row*wide+col]
			for ch := 0; ch < img.Colors; ch++ {
				v := (float64(img.Data[p][ch])*(1-fc)+float64(img.Data[p+1][ch])*fc)*(1-fr) +
					(float64(img.Data[p+w][ch])*(1-fc)+float64(img.Data[p+w+1][ch])*fc)*fr
				pix[ch] = raw.Clip(int(v))
			}
		}
	}
	logVerbose(c, img.ID, "Rotated diagonal sensor layout of width %d from %dx%d to %dx%d", fw, w, h, wide, high)
	return res, nil
}

// Logs a verbose line prefixed with the image ID
func logVerbose(c *ops.Context, id int, format string, args ...interface{}) {
	c.Messagef(ops.StatusVerbose, "%d: "+format, append([]interface{}{id}, args...)...)
}
