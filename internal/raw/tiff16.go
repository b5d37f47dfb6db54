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
	"bufio"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	"golang.org/x/image/tiff"
)

// Clips a value to the 16-bit range
func Clip(v int) uint16 {
	if v < 0 {
		return 0
	}
	if v > 0xffff {
		return 0xffff
	}
	return uint16(v)
}

// Reads a sensor mosaic stored as a single channel TIFF from the file with the given name
func ReadMosaicTIFFFile(fileName string, filters uint32) (*Image, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := ReadMosaicTIFF(bufio.NewReader(f), filters)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	img.FileName = fileName
	return img, nil
}

// Reads a sensor mosaic stored as a single channel TIFF. 8-bit data is widened to 16 bits.
func ReadMosaicTIFF(r io.Reader, filters uint32) (*Image, error) {
	decoded, err := tiff.Decode(r)
	if err != nil {
		return nil, err
	}
	bounds := decoded.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	samples := make([]uint16, width*height)

	switch src := decoded.(type) {
	case *image.Gray16:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				samples[y*width+x] = src.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y
			}
		}
	case *image.Gray:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				v := src.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y
				samples[y*width+x] = uint16(v)<<8 | uint16(v)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported TIFF color model %T for a sensor mosaic", decoded)
	}
	return NewImageFromMosaic(samples, height, width, filters)
}

// Writes the first three channels of an image to a 16-bit RGB TIFF file with the given name
func (img *Image) WriteTIFF16ToFile(fileName string) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err = img.WriteTIFF16(writer); err != nil {
		return err
	}
	return writer.Flush()
}

// Writes the first three channels of an image to a 16-bit RGB TIFF
func (img *Image) WriteTIFF16(writer io.Writer) error {
	out := image.NewRGBA64(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		yoffset := y * img.Width
		for x := 0; x < img.Width; x++ {
			pix := img.Data[yoffset+x]
			out.SetRGBA64(x, y, color.RGBA64{pix[Red], pix[Green], pix[Blue], 0xffff})
		}
	}
	return tiff.Encode(writer, out, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}
