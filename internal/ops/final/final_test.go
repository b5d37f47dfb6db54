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

package final

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/sergiomb2/ufraw-sub001/internal/ops"
	"github.com/sergiomb2/ufraw-sub001/internal/ops/pre"
	"github.com/sergiomb2/ufraw-sub001/internal/raw"
)

func flatMosaic(t *testing.T, h, w int, v uint16) *raw.Image {
	samples := make([]uint16, h*w)
	for i := range samples {
		samples[i] = v
	}
	img, err := raw.NewImageFromMosaic(samples, h, w, raw.FiltersRGGB)
	if err != nil {
		t.Fatalf("NewImageFromMosaic: %s", err)
	}
	return img
}

func checkFlat(t *testing.T, name string, img *raw.Image, v uint16) {
	t.Helper()
	for i, pix := range img.Data {
		for c := 0; c < 3; c++ {
			if pix[c] != v {
				t.Fatalf("%s: data[%d]=%v; want %d in channels 0..2", name, i, pix, v)
			}
		}
	}
}

func TestFinalizeBilinearEndToEnd(t *testing.T) {
	for _, wb := range []string{pre.WBManual, pre.WBAuto} {
		img := flatMosaic(t, 16, 16, 1000)
		opts := DefaultOptions()
		opts.WB = wb
		opts.Multipliers = [raw.MaxColors]float32{1, 1, 1, 1}
		opts.Interpolation = pre.InterpBilinear
		c := ops.NewContext(nil, false)
		res, err := Finalize(img, opts, c)
		if err != nil {
			t.Fatalf("%s: Finalize: %s", wb, err)
		}
		if res.Height != 16 || res.Width != 16 || res.Filters != 0 {
			t.Errorf("%s: size=%dx%d filters=%08x; want 16x16 and 0", wb, res.Width, res.Height, res.Filters)
		}
		checkFlat(t, wb, res, 1000)
		if c.Status() != ops.StatusSuccess {
			t.Errorf("%s: status=%s; want %s", wb, c.Status(), ops.StatusSuccess)
		}
	}
}

func TestFinalizeAllMethodsFlat(t *testing.T) {
	for _, method := range []string{pre.InterpBilinear, pre.InterpVNG, pre.InterpVNG4, pre.InterpPPG, pre.InterpAHD} {
		opts := DefaultOptions()
		opts.Interpolation, opts.MedianPasses = method, 2
		res, err := Finalize(flatMosaic(t, 24, 20, 2000), opts, ops.NewContext(nil, false))
		if err != nil {
			t.Fatalf("%s: Finalize: %s", method, err)
		}
		checkFlat(t, method, res, 2000)
	}
}

func TestFinalizeCameraFallsBackToAuto(t *testing.T) {
	opts := DefaultOptions()
	opts.WB = pre.WBCamera
	log := &bytes.Buffer{}
	c := ops.NewContext(log, false)
	if _, err := Finalize(flatMosaic(t, 8, 8, 100), opts, c); err != nil {
		t.Fatalf("Finalize: %s", err)
	}
	if c.Status() != ops.StatusNoCameraWB {
		t.Errorf("status=%s; want %s", c.Status(), ops.StatusNoCameraWB)
	}
	if !strings.Contains(log.String(), "auto white balance") {
		t.Errorf("log=%q; want a fallback notice", log.String())
	}
}

func TestFinalizeShrinksForSmallOutput(t *testing.T) {
	opts := DefaultOptions()
	opts.Size = 16
	res, err := Finalize(flatMosaic(t, 48, 64, 500), opts, ops.NewContext(nil, false))
	if err != nil {
		t.Fatalf("Finalize: %s", err)
	}
	if res.Width != 16 || res.Height != 12 {
		t.Errorf("size=%dx%d; want 16x12", res.Width, res.Height)
	}
	checkFlat(t, "shrink", res, 500)
}

func TestFinalizeFlipsAndResizes(t *testing.T) {
	for _, inPlace := range []bool{false, true} {
		img := flatMosaic(t, 10, 20, 300)
		img.Flip = 6
		opts := DefaultOptions()
		opts.Interpolation = pre.InterpVNG
		opts.Size = 15
		opts.InPlaceFlip = inPlace
		res, err := Finalize(img, opts, ops.NewContext(nil, false))
		if err != nil {
			t.Fatalf("Finalize: %s", err)
		}
		if res.Width != 7 || res.Height != 15 || res.Flip != 0 {
			t.Errorf("inPlace %v: size=%dx%d flip=%d; want 7x15 and 0", inPlace, res.Width, res.Height, res.Flip)
		}
		checkFlat(t, "flip", res, 300)
	}
}

func TestFinalizeRejectsInvalidInput(t *testing.T) {
	img := flatMosaic(t, 4, 4, 1)
	img.Data = img.Data[:3]
	c := ops.NewContext(nil, false)
	if _, err := Finalize(img, DefaultOptions(), c); !errors.Is(err, ops.ErrInvalid) {
		t.Errorf("err=%v; want %v", err, ops.ErrInvalid)
	}
	if c.Status() != ops.StatusError {
		t.Errorf("status=%s; want %s", c.Status(), ops.StatusError)
	}

	img = flatMosaic(t, 8, 8, 100)
	img.FujiWidth = 8
	c = ops.NewContext(nil, false)
	if res, err := Finalize(img, DefaultOptions(), c); !errors.Is(err, ops.ErrInvalid) || res != nil {
		t.Errorf("diagonal width of full height: res=%v err=%v; want %v", res, err, ops.ErrInvalid)
	}

	opts := DefaultOptions()
	opts.Interpolation = "nearest"
	c = ops.NewContext(nil, false)
	if _, err := Finalize(flatMosaic(t, 4, 4, 1), opts, c); !errors.Is(err, ops.ErrUnsupported) {
		t.Errorf("err=%v; want %v", err, ops.ErrUnsupported)
	}
	if c.Status() != ops.StatusUnsupported {
		t.Errorf("status=%s; want %s", c.Status(), ops.StatusUnsupported)
	}
}

func TestOpFinalizeFromJSON(t *testing.T) {
	seq := ops.NewOpSequenceDefault()
	err := json.Unmarshal([]byte(`{"type":"seq","active":true,"steps":[{"type":"finalize","interpolation":"vng","size":8}]}`), seq)
	if err != nil {
		t.Fatalf("Unmarshal: %s", err)
	}
	op, ok := seq.Steps[0].(*OpFinalize)
	if !ok {
		t.Fatalf("decoded %T; want *OpFinalize", seq.Steps[0])
	}
	if op.WB != pre.WBAuto || op.Interpolation != pre.InterpVNG || op.Size != 8 || !op.Active {
		t.Errorf("decoded %+v; want auto vng 8 active", op)
	}
	res, err := seq.Apply(flatMosaic(t, 16, 16, 42), ops.NewContext(nil, false))
	if err != nil {
		t.Fatalf("Apply: %s", err)
	}
	if res.Width != 8 || res.Height != 8 {
		t.Errorf("size=%dx%d; want 8x8", res.Width, res.Height)
	}
	checkFlat(t, "seq", res, 42)
}
