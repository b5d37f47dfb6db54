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
	"fmt"

	"github.com/sergiomb2/ufraw-sub001/internal/median"
	"github.com/sergiomb2/ufraw-sub001/internal/ops"
	"github.com/sergiomb2/ufraw-sub001/internal/raw"
)

// Smooths interpolation artifacts by applying the given number of 3x3 median
// passes to the red minus green and blue minus green differences of a full
// color image. Green stays unchanged. Border pixels are kept.
func MedianPasses(img *raw.Image, passes int, c *ops.Context) error {
	if passes <= 0 {
		return nil
	}
	if err := img.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ops.ErrInvalid, err.Error())
	}
	if img.Filters != 0 || img.Colors != 3 {
		c.Messagef(ops.StatusVerbose, "%d: Skipping median filter on %s image with filters %08x", img.ID, img.DimensionsToString(), img.Filters)
		return nil
	}
	if err := c.CheckAlloc(2 * img.Pixels()); err != nil {
		return err
	}
	c.Messagef(ops.StatusVerbose, "%d: Median filter with %d passes", img.ID, passes)

	diff := make([]int32, img.Pixels())
	filtered := make([]int32, img.Pixels())
	for pass := 0; pass < passes; pass++ {
		for _, ch := range [...]int{raw.Red, raw.Blue} {
			for i := range img.Data {
				diff[i] = int32(img.Data[i][ch]) - int32(img.Data[i][raw.Green])
			}
			median.Filter3x3(filtered, diff, img.Width)
			for i := range img.Data {
				pix := &img.Data[i]
				pix[ch] = raw.Clip(int(filtered[i]) + int(pix[raw.Green]))
			}
		}
	}
	return nil
}

// Median filter operator for full color images
type OpMedian struct {
	ops.OpBase
	Passes int `json:"passes"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpMedianDefault() }) } // register the operator for JSON decoding

func NewOpMedianDefault() *OpMedian { return NewOpMedian(1) }

func NewOpMedian(passes int) *OpMedian {
	return &OpMedian{
		OpBase: ops.OpBase{Type: "median", Active: passes > 0},
		Passes: passes,
	}
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpMedian) UnmarshalJSON(data []byte) error {
	type defaults OpMedian
	def := defaults(*NewOpMedianDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpMedian(def)
	return nil
}

func (op *OpMedian) Apply(img *raw.Image, c *ops.Context) (*raw.Image, error) {
	return img, MedianPasses(img, op.Passes, c)
}
