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
	"errors"
	"testing"

	"github.com/sergiomb2/ufraw-sub001/internal/ops"
	"github.com/sergiomb2/ufraw-sub001/internal/raw"
	"github.com/valyala/fastrand"
)

// Returns a copy of the image with its own pixel buffer
func copyImage(img *raw.Image) *raw.Image {
	res := raw.NewImageFromImage(img, img.Height, img.Width)
	copy(res.Data, img.Data)
	return res
}

// Creates an interpolated image with distinct values in every pixel
func seqImage(h, w int) *raw.Image {
	img := raw.NewImage(h, w, 0)
	for i := range img.Data {
		img.Data[i] = [raw.MaxColors]uint16{uint16(i), uint16(i + 1000), uint16(i + 2000), 0}
	}
	return img
}

func randImage(h, w int) *raw.Image {
	img := raw.NewImage(h, w, 0)
	for i := range img.Data {
		for c := 0; c < 3; c++ {
			img.Data[i][c] = uint16(fastrand.Uint32n(0x10000))
		}
	}
	return img
}

func sameImage(t *testing.T, name string, got, want *raw.Image) {
	t.Helper()
	if got.Height != want.Height || got.Width != want.Width {
		t.Fatalf("%s: size=%dx%d; want %dx%d", name, got.Width, got.Height, want.Width, want.Height)
	}
	for i := range want.Data {
		if got.Data[i] != want.Data[i] {
			t.Fatalf("%s: data[%d]=%v; want %v", name, i, got.Data[i], want.Data[i])
		}
	}
}

func TestFlipZeroIsIdentity(t *testing.T) {
	c := ops.NewContext(nil, false)
	orig := seqImage(3, 5)
	res, err := Flip(copyImage(orig), c)
	if err != nil {
		t.Fatalf("Flip: %s", err)
	}
	sameImage(t, "copy", res, orig)
	sameImage(t, "in place", FlipInPlace(copyImage(orig), c), orig)
}

func TestMirrorsAreInvolutions(t *testing.T) {
	c := ops.NewContext(nil, false)
	orig := seqImage(4, 7)
	for code := 1; code <= 3; code++ {
		img := copyImage(orig)
		var err error
		for i := 0; i < 2; i++ {
			img.Flip = code
			if img, err = Flip(img, c); err != nil {
				t.Fatalf("Flip: %s", err)
			}
		}
		sameImage(t, "twice", img, orig)
		if img.Flip != 0 {
			t.Errorf("code %d: flip=%d; want 0", code, img.Flip)
		}
	}
}

func TestFlipInPlaceMatchesCopy(t *testing.T) {
	c := ops.NewContext(nil, false)
	sizes := [][2]int{{1, 1}, {1, 7}, {4, 4}, {3, 5}, {6, 2}}
	for _, size := range sizes {
		orig := randImage(size[0], size[1])
		for code := 0; code < 8; code++ {
			a := copyImage(orig)
			a.Flip = code
			want, err := Flip(a, c)
			if err != nil {
				t.Fatalf("Flip: %s", err)
			}
			b := copyImage(orig)
			b.Flip = code
			sameImage(t, "in place", FlipInPlace(b, c), want)
		}
	}
}

func TestFlipTranspose(t *testing.T) {
	img := seqImage(2, 3)
	img.Flip = FlipTranspose
	res, err := Flip(img, ops.NewContext(nil, false))
	if err != nil {
		t.Fatalf("Flip: %s", err)
	}
	if res.Height != 3 || res.Width != 2 {
		t.Fatalf("size=%dx%d; want 2x3", res.Width, res.Height)
	}
	for row := 0; row < 3; row++ {
		for col := 0; col < 2; col++ {
			want := img.Data[col*3+row]
			if got := res.Data[row*2+col]; got != want {
				t.Errorf("(%d,%d)=%v; want %v", row, col, got, want)
			}
		}
	}
}

func TestFlipFromDegrees(t *testing.T) {
	tcs := []struct {
		degrees, want int
	}{
		{0, 0}, {90, 6}, {180, 3}, {270, 5}, {-90, 5}, {450, 6},
	}
	for _, tc := range tcs {
		got, err := FlipFromDegrees(tc.degrees)
		if err != nil || got != tc.want {
			t.Errorf("FlipFromDegrees(%d)=%d, %v; want %d", tc.degrees, got, err, tc.want)
		}
	}
	if _, err := FlipFromDegrees(45); !errors.Is(err, ops.ErrUnsupported) {
		t.Errorf("45 degrees err=%v; want %v", err, ops.ErrUnsupported)
	}

	// clockwise: the new top left pixel was bottom left
	img := seqImage(2, 3)
	img.Flip, _ = FlipFromDegrees(90)
	res := FlipInPlace(copyImage(img), ops.NewContext(nil, false))
	if got, want := res.Data[0], img.Data[3]; got != want {
		t.Errorf("top left=%v; want %v", got, want)
	}
}

func TestResizeIdentity(t *testing.T) {
	orig := randImage(7, 9)
	res, err := Resize(orig, 7, 9, ops.NewContext(nil, false))
	if err != nil {
		t.Fatalf("Resize: %s", err)
	}
	sameImage(t, "resize", res, orig)
}

func TestResizeAveragesBlocks(t *testing.T) {
	img := raw.NewImage(4, 4, 0)
	for i := range img.Data {
		img.Data[i] = [raw.MaxColors]uint16{uint16(10 * i), 100, 0, 0}
	}
	res, err := Resize(img, 2, 2, ops.NewContext(nil, false))
	if err != nil {
		t.Fatalf("Resize: %s", err)
	}
	want := []uint16{25, 45, 105, 125}
	for i, w := range want {
		if res.Data[i][0] != w || res.Data[i][1] != 100 {
			t.Errorf("data[%d]=%v; want %d and 100", i, res.Data[i], w)
		}
	}
}

func TestResizeFlatNonIntegerRatio(t *testing.T) {
	img := raw.NewImage(7, 5, 0)
	for i := range img.Data {
		img.Data[i] = [raw.MaxColors]uint16{777, 65535, 1, 0}
	}
	res, err := Resize(img, 3, 2, ops.NewContext(nil, false))
	if err != nil {
		t.Fatalf("Resize: %s", err)
	}
	for i, pix := range res.Data {
		if pix != img.Data[0] {
			t.Errorf("data[%d]=%v; want %v", i, pix, img.Data[0])
		}
	}
}

func TestResizeRejectsUpsampling(t *testing.T) {
	c := ops.NewContext(nil, false)
	img := seqImage(4, 4)
	if _, err := Resize(img, 5, 4, c); !errors.Is(err, ops.ErrUnsupported) {
		t.Errorf("err=%v; want %v", err, ops.ErrUnsupported)
	}
	if _, err := ResizeToFit(img, 8, c); !errors.Is(err, ops.ErrUnsupported) {
		t.Errorf("err=%v; want %v", err, ops.ErrUnsupported)
	}
	if _, err := Resize(img, 0, 4, c); !errors.Is(err, ops.ErrInvalid) {
		t.Errorf("err=%v; want %v", err, ops.ErrInvalid)
	}
}

func TestResizeToFit(t *testing.T) {
	res, err := ResizeToFit(seqImage(60, 100), 50, ops.NewContext(nil, false))
	if err != nil {
		t.Fatalf("ResizeToFit: %s", err)
	}
	if res.Width != 50 || res.Height != 30 {
		t.Errorf("size=%dx%d; want 50x30", res.Width, res.Height)
	}
}

func TestFujiRotateWithoutDiagonalWidthIsNoOp(t *testing.T) {
	orig := seqImage(6, 5)
	orig.Flip = 5
	img := copyImage(orig)
	res, err := FujiRotate(img, ops.NewContext(nil, false))
	if err != nil {
		t.Fatalf("FujiRotate: %s", err)
	}
	if res != img || res.Flip != 5 {
		t.Errorf("FujiRotate replaced the image or its orientation")
	}
	sameImage(t, "fuji", res, orig)
}

func TestFujiRotate(t *testing.T) {
	img := raw.NewImage(20, 20, 0)
	for i := range img.Data {
		img.Data[i] = [raw.MaxColors]uint16{3000, 3000, 3000, 0}
	}
	img.FujiWidth = 8
	c := ops.NewContext(nil, false)
	res, err := FujiRotate(img, c)
	if err != nil {
		t.Fatalf("FujiRotate: %s", err)
	}
	if res.Width != 11 || res.Height != 16 || res.FujiWidth != 0 {
		t.Fatalf("size=%dx%d fuji=%d; want 11x16 and 0", res.Width, res.Height, res.FujiWidth)
	}
	inside := 0
	for i, pix := range res.Data {
		if pix[0] == 0 {
			continue
		}
		inside++
		if pix[0] < 2999 || pix[0] > 3000 {
			t.Errorf("data[%d]=%v; want 3000", i, pix)
		}
	}
	if inside == 0 {
		t.Errorf("no pixel was resampled")
	}
	again, err := FujiRotate(res, c)
	if err != nil || again != res {
		t.Errorf("second rotation changed the image")
	}
}

func TestStretch(t *testing.T) {
	c := ops.NewContext(nil, false)
	tcs := []struct {
		aspect float64
		h, w   int
	}{
		{1, 4, 6}, {0.5, 8, 6}, {2, 4, 12},
	}
	for _, tc := range tcs {
		img := raw.NewImage(4, 6, 0)
		for i := range img.Data {
			img.Data[i] = [raw.MaxColors]uint16{10, 20, 30, 0}
		}
		img.PixelAspect = tc.aspect
		res, err := Stretch(img, c)
		if err != nil {
			t.Fatalf("Stretch: %s", err)
		}
		if res.Height != tc.h || res.Width != tc.w || res.PixelAspect != 1 {
			t.Errorf("aspect %f: size=%dx%d aspect=%f; want %dx%d and 1", tc.aspect, res.Width, res.Height, res.PixelAspect, tc.w, tc.h)
		}
		for i, pix := range res.Data {
			if pix != img.Data[0] {
				t.Errorf("aspect %f: data[%d]=%v; want %v", tc.aspect, i, pix, img.Data[0])
				break
			}
		}
	}
}

func TestFujiRotateRejectsEmptyOutput(t *testing.T) {
	img := raw.NewImage(6, 10, 0)
	img.FujiWidth = 6
	if res, err := FujiRotate(img, ops.NewContext(nil, false)); !errors.Is(err, ops.ErrInvalid) || res != nil {
		t.Errorf("res=%v err=%v; want %v", res, err, ops.ErrInvalid)
	}
}
