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

package raw

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"golang.org/x/image/tiff"
)

func TestFCIsPeriodic(t *testing.T) {
	patterns := []uint32{FiltersRGGB, FiltersBGGR, FiltersGRBG, FiltersGBRG, 0xe1e4e1e4, 0x12345678, 0xffffffff, 0}
	for _, filters := range patterns {
		for row := 0; row < 16; row++ {
			for col := 0; col < 4; col++ {
				c := FC(filters, row, col)
				if c < 0 || c > 3 {
					t.Errorf("filters=%08x FC(%d,%d)=%d; want 0..3", filters, row, col, c)
				}
				if c8 := FC(filters, row+8, col); c8 != c {
					t.Errorf("filters=%08x FC(%d,%d)=%d; want %d", filters, row+8, col, c8, c)
				}
				if c2 := FC(filters, row, col+2); c2 != c {
					t.Errorf("filters=%08x FC(%d,%d)=%d; want %d", filters, row, col+2, c2, c)
				}
			}
		}
	}
}

type cfaTestCase struct {
	Name   string
	Colors [2][2]int
}

func TestParseCFA(t *testing.T) {
	tcs := []cfaTestCase{
		{"RGGB", [2][2]int{{Red, Green}, {Green, Blue}}},
		{"bggr", [2][2]int{{Blue, Green}, {Green, Red}}},
		{"GRBG", [2][2]int{{Green, Red}, {Blue, Green}}},
		{"GBRG", [2][2]int{{Green, Blue}, {Red, Green}}},
	}
	for _, tc := range tcs {
		filters, err := ParseCFA(tc.Name)
		if err != nil {
			t.Fatalf("ParseCFA(%s) error %s", tc.Name, err.Error())
		}
		for row := 0; row < 8; row++ {
			for col := 0; col < 2; col++ {
				if c := FC(filters, row, col); c != tc.Colors[row&1][col] {
					t.Errorf("%s: FC(%d,%d)=%d; want %d", tc.Name, row, col, c, tc.Colors[row&1][col])
				}
			}
		}
	}
	if _, err := ParseCFA("XTRANS"); err == nil {
		t.Errorf("ParseCFA(XTRANS) succeeded; want error")
	}
}

func TestFourColorFilters(t *testing.T) {
	four := FourColorFilters(FiltersRGGB)
	if four != 0xb4b4b4b4 {
		t.Errorf("FourColorFilters(RGGB)=%08x; want %08x", four, 0xb4b4b4b4)
	}
	if !IsFourColor(four) || IsFourColor(FiltersRGGB) {
		t.Errorf("IsFourColor mismatch for %08x and %08x", four, FiltersRGGB)
	}
	for _, filters := range []uint32{FiltersRGGB, FiltersBGGR, FiltersGRBG, FiltersGBRG} {
		if back := ThreeColorFilters(FourColorFilters(filters)); back != filters {
			t.Errorf("ThreeColorFilters(FourColorFilters(%08x))=%08x; want %08x", filters, back, filters)
		}
	}
}

func TestToFourColorAndMixGreen(t *testing.T) {
	samples := make([]uint16, 4*4)
	for i := range samples {
		samples[i] = uint16(100 + i)
	}
	img, err := NewImageFromMosaic(samples, 4, 4, FiltersRGGB)
	if err != nil {
		t.Fatal(err)
	}
	img.ToFourColor()
	if img.Colors != 4 {
		t.Errorf("colors=%d; want 4", img.Colors)
	}
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			c := img.FC(row, col)
			if got := img.Data[row*4+col][c]; got != samples[row*4+col] {
				t.Errorf("pixel (%d,%d) channel %d=%d; want %d", row, col, c, got, samples[row*4+col])
			}
		}
	}
	if img.FC(1, 0) != Green2 {
		t.Errorf("FC(1,0)=%d; want %d", img.FC(1, 0), Green2)
	}

	img.Data[0][Green], img.Data[0][Green2] = 10, 21
	img.MixGreen()
	if img.Colors != 3 || img.Filters != FiltersRGGB {
		t.Errorf("colors=%d filters=%08x; want 3 and %08x", img.Colors, img.Filters, FiltersRGGB)
	}
	if img.Data[0][Green] != 15 || img.Data[0][Green2] != 0 {
		t.Errorf("mixed green=%d green2=%d; want 15 and 0", img.Data[0][Green], img.Data[0][Green2])
	}
}

func TestValidate(t *testing.T) {
	img := NewImage(4, 6, FiltersRGGB)
	if err := img.Validate(); err != nil {
		t.Errorf("valid image rejected: %s", err.Error())
	}
	img.Black = img.Maximum
	if err := img.Validate(); err == nil {
		t.Errorf("black==white accepted")
	}
	img.Black = 0
	img.Data = img.Data[:5]
	if err := img.Validate(); err == nil {
		t.Errorf("short buffer accepted")
	}
	img.Data = make([][MaxColors]uint16, 4*6)
	img.FujiWidth = 4
	if err := img.Validate(); err == nil {
		t.Errorf("diagonal width equal to height accepted")
	}
	img.FujiWidth = 3
	if err := img.Validate(); err != nil {
		t.Errorf("diagonal width 3 of height 4 rejected: %s", err.Error())
	}
	var nilImg *Image
	if err := nilImg.Validate(); err == nil {
		t.Errorf("nil image accepted")
	}
	if _, err := NewImageFromMosaic(make([]uint16, 5), 2, 3, FiltersRGGB); err == nil {
		t.Errorf("mismatched mosaic accepted")
	}
}

func TestReadMosaicTIFF(t *testing.T) {
	width, height := 6, 4
	gray := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gray.SetGray16(x, y, color.Gray16{uint16(1000*y + x)})
		}
	}
	buf := bytes.Buffer{}
	if err := tiff.Encode(&buf, gray, nil); err != nil {
		t.Fatal(err)
	}

	img, err := ReadMosaicTIFF(&buf, FiltersRGGB)
	if err != nil {
		t.Fatal(err)
	}
	if img.Width != width || img.Height != height {
		t.Fatalf("size %dx%d; want %dx%d", img.Width, img.Height, width, height)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := img.FC(y, x)
			if got, want := img.Data[y*width+x][c], uint16(1000*y+x); got != want {
				t.Errorf("sample (%d,%d)=%d; want %d", y, x, got, want)
			}
		}
	}

	out := bytes.Buffer{}
	if err := img.WriteTIFF16(&out); err != nil {
		t.Fatal(err)
	}
	decoded, err := tiff.Decode(&out)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Bounds().Dx() != width || decoded.Bounds().Dy() != height {
		t.Errorf("written size %v; want %dx%d", decoded.Bounds(), width, height)
	}
}

func TestClip(t *testing.T) {
	for _, tc := range [][2]int{{-5, 0}, {0, 0}, {1234, 1234}, {65535, 65535}, {70000, 65535}} {
		if got := Clip(tc[0]); int(got) != tc[1] {
			t.Errorf("Clip(%d)=%d; want %d", tc[0], got, tc[1])
		}
	}
}
