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
	"encoding/json"
	"fmt"

	"github.com/sergiomb2/ufraw-sub001/internal/ops"
	"github.com/sergiomb2/ufraw-sub001/internal/ops/geom"
	"github.com/sergiomb2/ufraw-sub001/internal/ops/pre"
	"github.com/sergiomb2/ufraw-sub001/internal/raw"
)

// Options for finalizing a mosaic
type Options struct {
	WB            string                 `json:"wb"`            // auto, camera or manual
	Multipliers   [raw.MaxColors]float32 `json:"multipliers"`   // for manual white balance
	Interpolation string                 `json:"interpolation"` // bilinear, vng, vng4, ppg, ahd or half
	MedianPasses  int                    `json:"medianPasses"`  // median filter passes against interpolation artifacts
	Size          int                    `json:"size"`          // longer side of the output in pixels, 0 for full size
	InPlaceFlip   bool                   `json:"inPlaceFlip"`   // flip without a second buffer
}

func DefaultOptions() Options {
	return Options{WB: pre.WBAuto, Interpolation: pre.InterpAHD}
}

// Returns the shrink factor for the given options, or 0 if the image is to be
// interpolated at full size
func shrinkFactor(img *raw.Image, opts Options) int {
	longer := img.Height
	if img.Width > longer {
		longer = img.Width
	}
	if opts.Size > 0 && 2*opts.Size <= longer {
		return longer / opts.Size
	}
	if opts.Interpolation == pre.InterpHalf {
		return 2
	}
	return 0
}

// Turns a mosaic into a full color image: scales colors, interpolates or
// shrinks, smooths, straightens diagonal sensors, corrects the pixel aspect, resizes
// and applies the orientation. Stops at the first error. All diagnostics are
// recorded in the context.
func Finalize(img *raw.Image, opts Options, c *ops.Context) (*raw.Image, error) {
	if err := img.Validate(); err != nil {
		return nil, c.Fail(fmt.Errorf("%w: %s", ops.ErrInvalid, err.Error()))
	}
	if err := c.CheckAlloc(img.Pixels()); err != nil {
		return nil, c.Fail(err)
	}
	c.Messagef(ops.StatusVerbose, "%d: Finalizing %s mosaic with black %d white %d", img.ID, img.DimensionsToString(), img.Black, img.Maximum)

	img, err := pre.NewOpScaleColors(opts.WB, opts.Multipliers).Apply(img, c)
	if err != nil {
		return nil, c.Fail(err)
	}

	if img.Filters != 0 {
		if scale := shrinkFactor(img, opts); scale > 0 {
			img, err = pre.Shrink(img, scale, c)
		} else {
			err = pre.Demosaic(img, opts.Interpolation, c)
		}
		if err != nil {
			return nil, c.Fail(err)
		}
	}
	if err = pre.MedianPasses(img, opts.MedianPasses, c); err != nil {
		return nil, c.Fail(err)
	}

	if img, err = geom.FujiRotate(img, c); err != nil {
		return nil, c.Fail(err)
	}
	if img, err = geom.Stretch(img, c); err != nil {
		return nil, c.Fail(err)
	}
	if opts.Size > 0 && (opts.Size < img.Height || opts.Size < img.Width) {
		if img, err = geom.ResizeToFit(img, opts.Size, c); err != nil {
			return nil, c.Fail(err)
		}
	}
	if opts.InPlaceFlip {
		img = geom.FlipInPlace(img, c)
	} else if img, err = geom.Flip(img, c); err != nil {
		return nil, c.Fail(err)
	}

	fmt.Fprintf(c.Log, "%d: Finalized to %s\n", img.ID, img.DimensionsToString())
	return img, nil
}

// Finalization operator
type OpFinalize struct {
	ops.OpBase
	Options
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpFinalizeDefault() }) } // register the operator for JSON decoding

func NewOpFinalizeDefault() *OpFinalize { return NewOpFinalize(DefaultOptions()) }

func NewOpFinalize(opts Options) *OpFinalize {
	return &OpFinalize{
		OpBase:  ops.OpBase{Type: "finalize", Active: true},
		Options: opts,
	}
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpFinalize) UnmarshalJSON(data []byte) error {
	type defaults OpFinalize
	def := defaults(*NewOpFinalizeDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpFinalize(def)
	return nil
}

func (op *OpFinalize) Apply(img *raw.Image, c *ops.Context) (*raw.Image, error) {
	return Finalize(img, op.Options, c)
}
