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
	"errors"
	"fmt"
)

// A sensor image, either as a mosaic with one populated channel per pixel,
// or as a demosaiced image with Colors populated channels per pixel.
type Image struct {
	ID       int    // Sequential ID number, for log output
	FileName string // Original file name, if any, for log output

	Height    int // Current height in pixels
	Width     int // Current width in pixels
	FujiWidth int // Width of a diagonal sensor layout in pixels, 0 if not applicable
	Flip      int // Orientation code. Bit 0 mirrors columns, bit 1 mirrors rows, bit 2 transposes

	Colors  int    // Number of color channels, 3 or 4
	Filters uint32 // Packed CFA pattern. 0 once the image is fully interpolated

	Black   int // Black level. Subtracted before scaling
	Maximum int // White level. Largest valid sensor signal

	CamMul [MaxColors]float32 // Camera supplied white balance multipliers. CamMul[0]==-1 if unavailable
	PreMul [MaxColors]float32 // Prior or manual white balance multipliers

	White  [8][8]uint16          // Calibration patch for camera white balance
	RGBCam [3][MaxColors]float32 // Camera RGB to sRGB color matrix

	PixelAspect float64 // Pixel aspect ratio, 1 for square pixels

	Data [][MaxColors]uint16 // The pixel records, row by row
}

// Creates an image with the given dimensions and pattern. Data is allocated and zeroed.
// Defaults to three colors, an identity color matrix and square pixels.
func NewImage(height, width int, filters uint32) *Image {
	img := &Image{
		Height:      height,
		Width:       width,
		Colors:      3,
		Filters:     filters,
		Maximum:     0xffff,
		PixelAspect: 1,
		Data:        make([][MaxColors]uint16, height*width),
	}
	img.CamMul[0] = -1
	for c := 0; c < 3; c++ {
		img.RGBCam[c][c] = 1
	}
	return img
}

// Creates a mosaic image from a row-major slice of sensor samples. Samples are
// placed into the channel slot given by the CFA pattern, and are not copied otherwise.
func NewImageFromMosaic(samples []uint16, height, width int, filters uint32) (*Image, error) {
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("invalid mosaic dimensions %dx%d", width, height)
	}
	if len(samples) != height*width {
		return nil, fmt.Errorf("mosaic has %d samples; want %d for %dx%d", len(samples), height*width, width, height)
	}
	img := NewImage(height, width, filters)
	if IsFourColor(filters) {
		img.Colors = 4
	}
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			img.Data[row*width+col][FC(filters, row, col)] = samples[row*width+col]
		}
	}
	return img, nil
}

// Creates a new image with the same metadata as the given one, and freshly allocated
// data of the given dimensions
func NewImageFromImage(src *Image, height, width int) *Image {
	img := *src
	img.Height, img.Width = height, width
	img.Data = make([][MaxColors]uint16, height*width)
	return &img
}

// Number of pixels in the image
func (img *Image) Pixels() int {
	return img.Height * img.Width
}

func (img *Image) DimensionsToString() string {
	return fmt.Sprintf("%dx%dx%d", img.Width, img.Height, img.Colors)
}

// Checks the buffer and calibration invariants before any pixel math is applied
func (img *Image) Validate() error {
	if img == nil || img.Data == nil {
		return errors.New("missing image buffer")
	}
	if img.Height <= 0 || img.Width <= 0 {
		return fmt.Errorf("%d: invalid dimensions %dx%d", img.ID, img.Width, img.Height)
	}
	if len(img.Data) != img.Height*img.Width {
		return fmt.Errorf("%d: buffer has %d pixels; want %d", img.ID, len(img.Data), img.Height*img.Width)
	}
	if img.Colors < 1 || img.Colors > MaxColors {
		return fmt.Errorf("%d: invalid number of colors %d", img.ID, img.Colors)
	}
	if img.Maximum <= img.Black {
		return fmt.Errorf("%d: white level %d not above black level %d", img.ID, img.Maximum, img.Black)
	}
	if img.FujiWidth < 0 || (img.FujiWidth > 0 && img.FujiWidth >= img.Height) {
		return fmt.Errorf("%d: invalid diagonal width %d for height %d", img.ID, img.FujiWidth, img.Height)
	}
	return nil
}

// Returns the color index of the given pixel in the CFA pattern
func (img *Image) FC(row, col int) int {
	return FC(img.Filters, row, col)
}

// Switches a three color mosaic to the four color variant of its pattern, moving
// the second green samples into channel 3.
func (img *Image) ToFourColor() {
	if img.Filters == 0 || img.Colors == 4 {
		return
	}
	four := FourColorFilters(img.Filters)
	for row := 0; row < img.Height; row++ {
		for col := 0; col < img.Width; col++ {
			if FC(four, row, col) == Green2 {
				pix := &img.Data[row*img.Width+col]
				pix[Green2], pix[Green] = pix[Green], 0
			}
		}
	}
	img.Filters, img.Colors = four, 4
}

// Averages the two green channels of an interpolated four color image into channel 1,
// and reduces the image to three colors.
func (img *Image) MixGreen() {
	if img.Colors != 4 {
		return
	}
	for i := range img.Data {
		pix := &img.Data[i]
		pix[Green] = uint16((uint32(pix[Green]) + uint32(pix[Green2])) >> 1)
		pix[Green2] = 0
	}
	if img.Filters != 0 {
		img.Filters = ThreeColorFilters(img.Filters)
	}
	img.Colors = 3
}
