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
	"github.com/sergiomb2/ufraw-sub001/internal/ops"
	"github.com/sergiomb2/ufraw-sub001/internal/raw"
)

// Corrects non-square pixels by linear interpolation. Aspect ratios below 1
// stretch the image vertically, above 1 horizontally. No-op for square pixels.
func Stretch(img *raw.Image, c *ops.Context) (*raw.Image, error) {
	aspect := img.PixelAspect
	if aspect == 1 || aspect <= 0 {
		return img, nil
	}
	h, w := img.Height, img.Width
	var res *raw.Image
	if aspect < 1 {
		newH := int(float64(h)/aspect + 0.5)
		if err := c.CheckAlloc(newH * w); err != nil {
			return nil, err
		}
		res = raw.NewImageFromImage(img, newH, w)
		rc := 0.0
		for row := 0; row < newH; row, rc = row+1, rc+aspect {
			src := int(rc)
			frac := rc - float64(src)
			next := src
			if src+1 < h {
				next = src + 1
			}
			for col := 0; col < w; col++ {
				blend(&res.Data[row*w+col], &img.Data[src*w+col], &img.Data[next*w+col], frac, img.Colors)
			}
		}
	} else {
		newW := int(float64(w)*aspect + 0.5)
		if err := c.CheckAlloc(h * newW); err != nil {
			return nil, err
		}
		res = raw.NewImageFromImage(img, h, newW)
		rc := 0.0
		for col := 0; col < newW; col, rc = col+1, rc+1/aspect {
			src := int(rc)
			frac := rc - float64(src)
			next := src
			if src+1 < w {
				next = src + 1
			}
			for row := 0; row < h; row++ {
				blend(&res.Data[row*newW+col], &img.Data[row*w+src], &img.Data[row*w+next], frac, img.Colors)
			}
		}
	}
	res.PixelAspect = 1
	logVerbose(c, img.ID, "Stretched by pixel aspect %.4f from %dx%d to %dx%d", aspect, w, h, res.Width, res.Height)
	return res, nil
}

// Linear blend of two pixels, rounded to nearest
func blend(dst, a, b *[raw.MaxColors]uint16, frac float64, colors int) {
	for ch := 0; ch < colors; ch++ {
		dst[ch] = raw.Clip(int(float64(a[ch])*(1-frac) + float64(b[ch])*frac + 0.5))
	}
}
