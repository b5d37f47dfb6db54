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

// Orientation code bits
const (
	FlipColumns   = 1 // mirror left to right
	FlipRows      = 2 // mirror top to bottom
	FlipTranspose = 4 // swap rows and columns, applied before mirroring
)

// Translates a clockwise rotation in degrees into an orientation code
func FlipFromDegrees(degrees int) (int, error) {
	switch (degrees%360 + 360) % 360 {
	case 0:
		return 0, nil
	case 90:
		return FlipTranspose | FlipRows, nil
	case 180:
		return FlipRows | FlipColumns, nil
	case 270:
		return FlipTranspose | FlipColumns, nil
	}
	return 0, fmt.Errorf("%w: rotation by %d degrees", ops.ErrUnsupported, degrees)
}

// Returns the source index in the original image of the pixel at the given
// destination index, for an image of the given original dimensions
func flipSource(flip, dest, height, width int) int {
	var row, col int
	if flip&FlipTranspose != 0 {
		row, col = dest%height, dest/height
	} else {
		row, col = dest/width, dest%width
	}
	if flip&FlipRows != 0 {
		row = height - 1 - row
	}
	if flip&FlipColumns != 0 {
		col = width - 1 - col
	}
	return row*width + col
}

// Applies the orientation code of the image into a freshly allocated buffer,
// and clears the code
func Flip(img *raw.Image, c *ops.Context) (*raw.Image, error) {
	flip := img.Flip & 7
	if flip == 0 {
		return img, nil
	}
	if err := c.CheckAlloc(img.Pixels()); err != nil {
		return nil, err
	}
	h, w := img.Height, img.Width
	if flip&FlipTranspose != 0 {
		h, w = w, h
	}
	res := raw.NewImageFromImage(img, h, w)
	for dest := range res.Data {
		res.Data[dest] = img.Data[flipSource(flip, dest, img.Height, img.Width)]
	}
	res.Flip = 0
	logVerbose(c, img.ID, "Flipped with code %d to %dx%d", flip, w, h)
	return res, nil
}

// Applies the orientation code of the image in place by following the cycles
// of the pixel permutation, and clears the code. Needs a bitmap instead of a
// second buffer, with results identical to Flip.
func FlipInPlace(img *raw.Image, c *ops.Context) *raw.Image {
	flip := img.Flip & 7
	if flip == 0 {
		return img
	}
	h, w, data := img.Height, img.Width, img.Data
	size := h * w
	placed := make([]uint32, (size+31)>>5)
	for base := 0; base < size; base++ {
		if placed[base>>5]&(1<<uint(base&31)) != 0 {
			continue
		}
		dest, hold := base, data[base]
		for {
			next := flipSource(flip, dest, h, w)
			if next == base {
				break
			}
			placed[next>>5] |= 1 << uint(next&31)
			data[dest] = data[next]
			dest = next
		}
		data[dest] = hold
	}
	if flip&FlipTranspose != 0 {
		img.Height, img.Width = w, h
	}
	img.Flip = 0
	logVerbose(c, img.ID, "Flipped in place with code %d to %dx%d", flip, img.Width, img.Height)
	return img
}
