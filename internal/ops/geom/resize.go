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

	"github.com/sergiomb2/ufraw-sub001/internal/ops"
	"github.com/sergiomb2/ufraw-sub001/internal/raw"
)

// Overlap of one source row or column with at most two destination cells.
// Weights are in units where a source pixel contributes dst and a destination
// cell receives src in total.
type boxSpan struct {
	lo, hi   int
	wlo, whi int64
}

// Computes the destination spans for every source index of one axis. Requires dst <= src
func boxSpans(src, dst int) []boxSpan {
	spans := make([]boxSpan, src)
	for r := range spans {
		lo := r * dst / src
		hi := (r + 1) * dst / src
		s := boxSpan{lo: lo, hi: hi, wlo: int64(hi*src - r*dst), whi: int64((r+1)*dst - hi*src)}
		if hi == lo || hi >= dst {
			s.hi, s.wlo, s.whi = lo, int64(dst), 0
		}
		spans[r] = s
	}
	return spans
}

// Resamples an image to the given dimensions by area-weighted box filtering.
// Every source pixel splits across up to four destination pixels in proportion
// to their overlap. Upsampling is not supported.
func Resize(img *raw.Image, height, width int, c *ops.Context) (*raw.Image, error) {
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("%w: resize to %dx%d", ops.ErrInvalid, width, height)
	}
	if height > img.Height || width > img.Width {
		return nil, fmt.Errorf("%w: resize from %dx%d up to %dx%d", ops.ErrUnsupported, img.Width, img.Height, width, height)
	}
	if err := c.CheckAlloc(height * width * 5); err != nil {
		return nil, err
	}
	rows, cols := boxSpans(img.Height, height), boxSpans(img.Width, width)
	acc := make([][raw.MaxColors]int64, height*width)
	for r, rs := range rows {
		for col, cs := range cols {
			pix := &img.Data[r*img.Width+col]
			add := func(dr, dc int, weight int64) {
				if weight == 0 {
					return
				}
				a := &acc[dr*width+dc]
				for ch := 0; ch < img.Colors; ch++ {
					a[ch] += int64(pix[ch]) * weight
				}
			}
			add(rs.lo, cs.lo, rs.wlo*cs.wlo)
			add(rs.lo, cs.hi, rs.wlo*cs.whi)
			add(rs.hi, cs.lo, rs.whi*cs.wlo)
			add(rs.hi, cs.hi, rs.whi*cs.whi)
		}
	}

	res := raw.NewImageFromImage(img, height, width)
	norm := int64(img.Height) * int64(img.Width)
	for i := range acc {
		for ch := 0; ch < img.Colors; ch++ {
			res.Data[i][ch] = raw.Clip(int((acc[i][ch] + norm/2) / norm))
		}
	}
	logVerbose(c, img.ID, "Resized from %dx%d to %dx%d", img.Width, img.Height, width, height)
	return res, nil
}

// Shrinks an image so that its longer side equals size, keeping the aspect ratio.
// Returns the image unchanged if it already has that size.
func ResizeToFit(img *raw.Image, size int, c *ops.Context) (*raw.Image, error) {
	longer := img.Height
	if img.Width > longer {
		longer = img.Width
	}
	if size > longer {
		return nil, fmt.Errorf("%w: resize from %d up to %d pixels", ops.ErrUnsupported, longer, size)
	}
	if size == longer {
		return img, nil
	}
	h, w := img.Height*size/longer, img.Width*size/longer
	if h < 1 {
		h = 1
	}
	if w < 1 {
		w = 1
	}
	return Resize(img, h, w, c)
}
