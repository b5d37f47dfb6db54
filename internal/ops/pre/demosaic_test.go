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
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/sergiomb2/ufraw-sub001/internal/ops"
	"github.com/sergiomb2/ufraw-sub001/internal/raw"
	"github.com/valyala/fastrand"
)

var allMethods = []string{InterpBilinear, InterpVNG, InterpVNG4, InterpPPG, InterpAHD}

var bayerPatterns = []uint32{raw.FiltersRGGB, raw.FiltersBGGR, raw.FiltersGRBG, raw.FiltersGBRG}

func flatMosaic(t *testing.T, h, w int, filters uint32, v uint16) *raw.Image {
	return channelMosaic(t, h, w, filters, [raw.MaxColors]uint16{v, v, v, v})
}

func TestDemosaicFlatField(t *testing.T) {
	sizes := [][2]int{{2, 2}, {3, 4}, {5, 5}, {16, 16}, {9, 13}, {300, 270}}
	const v = 1234
	for _, method := range allMethods {
		for _, filters := range bayerPatterns {
			for _, size := range sizes {
				img := flatMosaic(t, size[0], size[1], filters, v)
				if err := Demosaic(img, method, ops.NewContext(nil, false)); err != nil {
					t.Fatalf("%s %08x %v: %s", method, filters, size, err)
				}
				if img.Filters != 0 || img.Colors != 3 {
					t.Errorf("%s: filters=%08x colors=%d; want 0 and 3", method, img.Filters, img.Colors)
				}
				bad := 0
				for i, pix := range img.Data {
					for c := 0; c < 3; c++ {
						if pix[c] != v && bad < 5 {
							t.Errorf("%s %08x %v: data[%d][%d]=%d; want %d", method, filters, size, i, c, pix[c], v)
							bad++
						}
					}
				}
			}
		}
	}
}

func TestDemosaicKeepsNativeSamples(t *testing.T) {
	for _, method := range allMethods {
		for h := 1; h < 12; h += 2 {
			for w := 1; w < 12; w += 3 {
				samples := make([]uint16, h*w)
				for i := range samples {
					samples[i] = uint16(fastrand.Uint32n(0x10000))
				}
				img, err := raw.NewImageFromMosaic(samples, h, w, raw.FiltersRGGB)
				if err != nil {
					t.Fatalf("NewImageFromMosaic: %s", err)
				}
				if err := Demosaic(img, method, ops.NewContext(nil, false)); err != nil {
					t.Fatalf("%s %dx%d: %s", method, w, h, err)
				}
				for row := 0; row < h; row++ {
					for col := 0; col < w; col++ {
						native := raw.FC(raw.FiltersRGGB, row, col)
						if method == InterpVNG4 {
							// the second green is averaged with the interpolated first
							continue
						}
						if got := img.Data[row*w+col][native]; got != samples[row*w+col] {
							t.Errorf("%s %dx%d: (%d,%d)[%d]=%d; want %d", method, w, h, row, col, native, got, samples[row*w+col])
						}
					}
				}
			}
		}
	}
}

func TestBilinearLinearRamp(t *testing.T) {
	h, w := 8, 10
	samples := make([]uint16, h*w)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			samples[row*w+col] = uint16(100 * col)
		}
	}
	img, _ := raw.NewImageFromMosaic(samples, h, w, raw.FiltersGRBG)
	BilinearInterpolate(img, ops.NewContext(nil, false))
	for row := 1; row < h-1; row++ {
		for col := 1; col < w-1; col++ {
			for c := 0; c < 3; c++ {
				if got := img.Data[row*w+col][c]; got != uint16(100*col) {
					t.Errorf("(%d,%d)[%d]=%d; want %d", row, col, c, got, 100*col)
				}
			}
		}
	}
}

func TestBorderInterpolate(t *testing.T) {
	img := channelMosaic(t, 8, 8, raw.FiltersRGGB, [raw.MaxColors]uint16{10, 20, 40, 0})
	BorderInterpolate(img, 2)
	corner := img.Data[0]
	if corner != [raw.MaxColors]uint16{10, 20, 40, 0} {
		t.Errorf("corner=%v; want [10 20 40 0]", corner)
	}
	edge := img.Data[7*8+3]
	if edge != [raw.MaxColors]uint16{10, 20, 40, 0} {
		t.Errorf("edge=%v; want [10 20 40 0]", edge)
	}
	inner := img.Data[2*8+2]
	if inner != [raw.MaxColors]uint16{10, 0, 0, 0} {
		t.Errorf("inner=%v; want [10 0 0 0]", inner)
	}
}

func TestDemosaicFourColorFallsBackToVNG(t *testing.T) {
	img := flatMosaic(t, 12, 12, raw.FourColorFilters(raw.FiltersRGGB), 500)
	if img.Colors != 4 {
		t.Fatalf("colors=%d; want 4", img.Colors)
	}
	c := ops.NewContext(nil, false)
	if err := Demosaic(img, InterpAHD, c); err != nil {
		t.Fatalf("Demosaic: %s", err)
	}
	if c.Status() != ops.StatusWarning {
		t.Errorf("status=%s; want %s", c.Status(), ops.StatusWarning)
	}
	for i, pix := range img.Data {
		if pix != [raw.MaxColors]uint16{500, 500, 500, 500} {
			t.Fatalf("data[%d]=%v; want all 500", i, pix)
		}
	}
}

func TestDemosaicErrors(t *testing.T) {
	c := ops.NewContext(nil, false)
	img := flatMosaic(t, 4, 4, raw.FiltersRGGB, 1)
	if err := Demosaic(img, "nearest", c); !errors.Is(err, ops.ErrUnsupported) {
		t.Errorf("unknown method err=%v; want %v", err, ops.ErrUnsupported)
	}
	img.Filters = 0
	if err := Demosaic(img, InterpVNG, c); !errors.Is(err, ops.ErrInvalid) {
		t.Errorf("interpolated image err=%v; want %v", err, ops.ErrInvalid)
	}
}

func TestVNGTableDropsMismatchedTerms(t *testing.T) {
	table := NewVNGTable(raw.FiltersRGGB)
	for p, code := range table.codes {
		if len(code.terms) == 0 || len(code.terms) > len(vngTerms) {
			t.Errorf("phase %d: %d terms; want 1..%d", p, len(code.terms), len(vngTerms))
		}
		row, col := p>>1, p&1
		for _, term := range code.terms {
			c1 := raw.FC(raw.FiltersRGGB, row+8+term.y1, col+2+term.x1)
			c2 := raw.FC(raw.FiltersRGGB, row+8+term.y2, col+2+term.x2)
			if c1 != c2 || c1 != term.color {
				t.Errorf("phase %d: term %+v compares colors %d and %d", p, term, c1, c2)
			}
		}
	}
}

func TestContextCachesTables(t *testing.T) {
	c := ops.NewContext(nil, false)
	a := vngTableFor(raw.FiltersRGGB, c)
	b := vngTableFor(raw.FiltersRGGB, c)
	if a != b {
		t.Errorf("VNG table rebuilt for the same pattern")
	}
	if d := vngTableFor(raw.FiltersBGGR, c); d == a {
		t.Errorf("VNG table shared between patterns")
	}
}

func TestCubeRootTable(t *testing.T) {
	table := NewCubeRootTable(65535)
	if got := table.At(65535); math.Abs(float64(got)-1) > 1e-6 {
		t.Errorf("At(65535)=%f; want 1", got)
	}
	if got := table.At(0); math.Abs(float64(got)-16.0/116.0) > 1e-6 {
		t.Errorf("At(0)=%f; want %f", got, 16.0/116.0)
	}
	if got := table.At(100000); got != table.At(65535) {
		t.Errorf("At(100000)=%f; want clipped %f", got, table.At(65535))
	}
}

func TestLabMatchesColorful(t *testing.T) {
	rgbCam := [3][raw.MaxColors]float32{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}}
	lc := NewLabConverter(rgbCam, 3, 65535)
	tcs := [][3]uint16{
		{65535, 65535, 65535},
		{20000, 30000, 10000},
		{5000, 5000, 40000},
		{60000, 2000, 3000},
	}
	for _, tc := range tcs {
		pix := [raw.MaxColors]uint16{tc[0], tc[1], tc[2], 0}
		lab := lc.Lab(&pix)
		x, y, z := colorful.LinearRgbToXyz(float64(tc[0])/65535, float64(tc[1])/65535, float64(tc[2])/65535)
		l, a, b := colorful.XyzToLabWhiteRef(x, y, z, colorful.D65)
		got := [3]float64{float64(lab[0]) / 6400, float64(lab[1]) / 6400, float64(lab[2]) / 6400}
		want := [3]float64{l, a, b}
		for i := range got {
			if math.Abs(got[i]-want[i]) > 0.002 {
				t.Errorf("rgb=%v lab[%d]=%f; want %f", tc, i, got[i], want[i])
			}
		}
	}
}

func TestShrinkFlat(t *testing.T) {
	img := flatMosaic(t, 9, 7, raw.FiltersBGGR, 321)
	res, err := Shrink(img, 2, ops.NewContext(nil, false))
	if err != nil {
		t.Fatalf("Shrink: %s", err)
	}
	if res.Height != 5 || res.Width != 4 || res.Filters != 0 {
		t.Errorf("shrunk to %dx%d filters %08x; want 4x5 and 0", res.Width, res.Height, res.Filters)
	}
	for i, pix := range res.Data {
		for c := 0; c < 3; c++ {
			if pix[c] != 321 {
				t.Errorf("data[%d][%d]=%d; want 321", i, c, pix[c])
			}
		}
	}
	if _, err := Shrink(img, 1, ops.NewContext(nil, false)); !errors.Is(err, ops.ErrInvalid) {
		t.Errorf("factor 1 err=%v; want %v", err, ops.ErrInvalid)
	}
}

func TestOpDebayerFromJSON(t *testing.T) {
	op, err := ops.UnmarshalOperator(json.RawMessage(`{"type":"debayer"}`))
	if err != nil {
		t.Fatalf("UnmarshalOperator: %s", err)
	}
	deb, ok := op.(*OpDebayer)
	if !ok {
		t.Fatalf("decoded %T; want *OpDebayer", op)
	}
	if deb.Method != InterpAHD || !deb.Active {
		t.Errorf("method=%s active=%v; want %s true", deb.Method, deb.Active, InterpAHD)
	}

	img := flatMosaic(t, 6, 6, raw.FiltersRGGB, 7)
	res, err := NewOpDebayer(InterpHalf).Apply(img, ops.NewContext(nil, false))
	if err != nil {
		t.Fatalf("Apply: %s", err)
	}
	if res.Width != 3 || res.Height != 3 {
		t.Errorf("half size=%dx%d; want 3x3", res.Width, res.Height)
	}
}
