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
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/sergiomb2/ufraw-sub001/internal/ops"
	"github.com/sergiomb2/ufraw-sub001/internal/raw"
	"gonum.org/v1/gonum/mat"
)

// Lookup table for the CIELab companding function f(t), with t the sample
// value normalized by the sensor maximum
type CubeRootTable struct {
	Maximum int
	values  []float32
}

// Builds the cube root table for samples 0..65535 normalized by the given maximum
func NewCubeRootTable(maximum int) *CubeRootTable {
	t := &CubeRootTable{Maximum: maximum, values: make([]float32, 0x10000)}
	for i := range t.values {
		r := float64(i) / float64(maximum)
		if r > 0.008856 {
			t.values[i] = float32(math.Cbrt(r))
		} else {
			t.values[i] = float32(7.787*r + 16.0/116.0)
		}
	}
	return t
}

// Returns f(v/maximum), clipping v to the 16-bit range
func (t *CubeRootTable) At(v int) float32 {
	return t.values[raw.Clip(v)]
}

// Converts camera RGB samples into fixed point CIELab, scaled by 64
type LabConverter struct {
	Colors int
	cbrt   *CubeRootTable
	xyzCam [3][raw.MaxColors]float64
}

// Returns the sRGB to XYZ matrix for the D65 white point, with each row
// divided by the white reference so that white maps onto 1,1,1
func xyzFromRGB() *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	for k := 0; k < 3; k++ {
		var rgb [3]float64
		rgb[k] = 1
		x, y, z := colorful.LinearRgbToXyz(rgb[0], rgb[1], rgb[2])
		m.Set(0, k, x/colorful.D65[0])
		m.Set(1, k, y/colorful.D65[1])
		m.Set(2, k, z/colorful.D65[2])
	}
	return m
}

// Builds a converter for the given camera to sRGB matrix, color count and
// sensor maximum
func NewLabConverter(rgbCam [3][raw.MaxColors]float32, colors, maximum int) *LabConverter {
	cam := mat.NewDense(3, colors, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < colors; j++ {
			cam.Set(i, j, float64(rgbCam[i][j]))
		}
	}
	var xyzCam mat.Dense
	xyzCam.Mul(xyzFromRGB(), cam)

	lc := &LabConverter{Colors: colors, cbrt: NewCubeRootTable(maximum)}
	for i := 0; i < 3; i++ {
		for j := 0; j < colors; j++ {
			lc.xyzCam[i][j] = xyzCam.At(i, j)
		}
	}
	return lc
}

type labKey struct {
	rgbCam  [3][raw.MaxColors]float32
	colors  int
	maximum int
}

// Returns the Lab converter for the image calibration, cached in the context
func labConverterFor(img *raw.Image, c *ops.Context) *LabConverter {
	key := labKey{img.RGBCam, img.Colors, img.Maximum}
	return c.Table(key, func() interface{} { return NewLabConverter(img.RGBCam, img.Colors, img.Maximum) }).(*LabConverter)
}

// Converts one pixel. L is in 0..6400, a and b are signed
func (lc *LabConverter) Lab(rgb *[raw.MaxColors]uint16) (lab [3]int32) {
	xyz := [3]float64{0.5, 0.5, 0.5}
	for c := 0; c < lc.Colors; c++ {
		v := float64(rgb[c])
		xyz[0] += lc.xyzCam[0][c] * v
		xyz[1] += lc.xyzCam[1][c] * v
		xyz[2] += lc.xyzCam[2][c] * v
	}
	fx := lc.cbrt.At(int(xyz[0]))
	fy := lc.cbrt.At(int(xyz[1]))
	fz := lc.cbrt.At(int(xyz[2]))
	lab[0] = int32(64 * (116*fy - 16))
	lab[1] = int32(64 * 500 * (fx - fy))
	lab[2] = int32(64 * 200 * (fy - fz))
	return lab
}
