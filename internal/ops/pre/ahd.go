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

// Edge length of an AHD tile. Neighboring tiles overlap by 6 pixels
const ahdTileSize = 256

// Working buffers for one AHD tile, reused across tiles
type ahdTile struct {
	rgb  [2][][3]uint16 // horizontal and vertical candidates
	lab  [2][][3]int32
	homo [2][]uint8
}

func newAHDTile() *ahdTile {
	t := &ahdTile{}
	for d := 0; d < 2; d++ {
		t.rgb[d] = make([][3]uint16, ahdTileSize*ahdTileSize)
		t.lab[d] = make([][3]int32, ahdTileSize*ahdTileSize)
		t.homo[d] = make([]uint8, ahdTileSize*ahdTileSize)
	}
	return t
}

func (t *ahdTile) clear() {
	for d := 0; d < 2; d++ {
		for i := range t.rgb[d] {
			t.rgb[d][i] = [3]uint16{}
			t.homo[d][i] = 0
		}
	}
}

// Interpolates a three color Bayer mosaic with adaptive homogeneity-directed
// demosaicing. Each tile builds a horizontally and a vertically interpolated
// candidate, and every pixel takes the candidate that is more homogeneous in
// CIELab across its 3x3 neighborhood.
func AHDInterpolate(img *raw.Image, c *ops.Context) {
	BorderInterpolate(img, 3)
	lc := labConverterFor(img, c)
	tile := newAHDTile()
	for top := 0; top < img.Height; top += ahdTileSize - 6 {
		for left := 0; left < img.Width; left += ahdTileSize - 6 {
			tile.clear()
			ahdGreen(img, tile, top, left)
			ahdRedBlue(img, tile, lc, top, left)
			ahdHomogeneity(img, tile, top, left)
			ahdCombine(img, tile, top, left)
		}
	}
}

// Interpolates green horizontally and vertically at red and blue pixels
func ahdGreen(img *raw.Image, t *ahdTile, top, left int) {
	h, w, data := img.Height, img.Width, img.Data
	for row := max(top, 2); row < top+ahdTileSize && row < h-2; row++ {
		col := left + img.FC(row, left)&1
		if col < 2 {
			col += 2
		}
		for ch := img.FC(row, col); col < left+ahdTileSize && col < w-2; col += 2 {
			p := row*w + col
			ti := (row-top)*ahdTileSize + col - left
			val := ((int(data[p-1][1])+int(data[p][ch])+int(data[p+1][1]))*2 -
				int(data[p-2][ch]) - int(data[p+2][ch])) >> 2
			t.rgb[0][ti][1] = ulim(val, int(data[p-1][1]), int(data[p+1][1]))
			val = ((int(data[p-w][1])+int(data[p][ch])+int(data[p+w][1]))*2 -
				int(data[p-2*w][ch]) - int(data[p+2*w][ch])) >> 2
			t.rgb[1][ti][1] = ulim(val, int(data[p-w][1]), int(data[p+w][1]))
		}
	}
}

// Interpolates red and blue for both candidates and converts them to CIELab
func ahdRedBlue(img *raw.Image, t *ahdTile, lc *LabConverter, top, left int) {
	const ts = ahdTileSize
	h, w, data := img.Height, img.Width, img.Data
	for d := 0; d < 2; d++ {
		rgb := t.rgb[d]
		for row := top + 1; row < top+ts-1 && row < h-1; row++ {
			for col := left + 1; col < left+ts-1 && col < w-1; col++ {
				p := row*w + col
				ti := (row-top)*ts + col - left
				rix := &rgb[ti]
				var val int
				if ch := 2 - img.FC(row, col); ch == 1 {
					ch = img.FC(row+1, col)
					val = int(data[p][1]) + ((int(data[p-1][2-ch]) + int(data[p+1][2-ch]) -
						int(rgb[ti-1][1]) - int(rgb[ti+1][1])) >> 1)
					rix[2-ch] = raw.Clip(val)
					val = int(data[p][1]) + ((int(data[p-w][ch]) + int(data[p+w][ch]) -
						int(rgb[ti-ts][1]) - int(rgb[ti+ts][1])) >> 1)
					rix[ch] = raw.Clip(val)
				} else {
					val = int(rix[1]) + ((int(data[p-w-1][ch]) + int(data[p-w+1][ch]) +
						int(data[p+w-1][ch]) + int(data[p+w+1][ch]) -
						int(rgb[ti-ts-1][1]) - int(rgb[ti-ts+1][1]) -
						int(rgb[ti+ts-1][1]) - int(rgb[ti+ts+1][1]) + 1) >> 2)
					rix[ch] = raw.Clip(val)
				}
				native := img.FC(row, col)
				rix[native] = data[p][native]
				var pix [raw.MaxColors]uint16
				copy(pix[:3], rix[:])
				t.lab[d][ti] = lc.Lab(&pix)
			}
		}
	}
}

// Counts for every pixel and candidate the axis neighbors that are close in
// lightness and in chroma
func ahdHomogeneity(img *raw.Image, t *ahdTile, top, left int) {
	const ts = ahdTileSize
	dir := [4]int{-1, 1, -ts, ts}
	for row := top + 2; row < top+ts-2 && row < img.Height-2; row++ {
		for col := left + 2; col < left+ts-2 && col < img.Width-2; col++ {
			ti := (row-top)*ts + col - left
			var ldiff, abdiff [2][4]int
			for d := 0; d < 2; d++ {
				lix := t.lab[d]
				for i, o := range dir {
					ldiff[d][i] = abs(int(lix[ti][0]) - int(lix[ti+o][0]))
					da := int(lix[ti][1]) - int(lix[ti+o][1])
					db := int(lix[ti][2]) - int(lix[ti+o][2])
					abdiff[d][i] = da*da + db*db
				}
			}
			leps := min(max(ldiff[0][0], ldiff[0][1]), max(ldiff[1][2], ldiff[1][3]))
			abeps := min(max(abdiff[0][0], abdiff[0][1]), max(abdiff[1][2], abdiff[1][3]))
			for d := 0; d < 2; d++ {
				for i := 0; i < 4; i++ {
					if ldiff[d][i] <= leps && abdiff[d][i] <= abeps {
						t.homo[d][ti]++
					}
				}
			}
		}
	}
}

// Writes the more homogeneous candidate of each pixel back to the image,
// averaging both candidates on a tie
func ahdCombine(img *raw.Image, t *ahdTile, top, left int) {
	const ts = ahdTileSize
	w := img.Width
	for row := top + 3; row < top+ts-3 && row < img.Height-3; row++ {
		for col := left + 3; col < left+ts-3 && col < w-3; col++ {
			ti := (row-top)*ts + col - left
			var hm [2]int
			for d := 0; d < 2; d++ {
				for y := -1; y <= 1; y++ {
					for x := -1; x <= 1; x++ {
						hm[d] += int(t.homo[d][ti+y*ts+x])
					}
				}
			}
			pix := &img.Data[row*w+col]
			switch {
			case hm[0] > hm[1]:
				copy(pix[:3], t.rgb[0][ti][:])
			case hm[1] > hm[0]:
				copy(pix[:3], t.rgb[1][ti][:])
			default:
				for ch := 0; ch < 3; ch++ {
					pix[ch] = uint16((uint32(t.rgb[0][ti][ch]) + uint32(t.rgb[1][ti][ch])) >> 1)
				}
			}
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
