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

	"github.com/sergiomb2/ufraw-sub001/internal/ops"
	"github.com/sergiomb2/ufraw-sub001/internal/raw"
)

// Interpolation methods
const (
	InterpBilinear = "bilinear"
	InterpVNG      = "vng"
	InterpVNG4     = "vng4"
	InterpPPG      = "ppg"
	InterpAHD      = "ahd"
	InterpHalf     = "half" // shrink by two instead of interpolating
)

// Fills all missing channels of a mosaic in place with the given method, and
// marks the image as no longer being a mosaic. Methods that need a three color
// Bayer pattern fall back to VNG on four color sensors.
func Demosaic(img *raw.Image, method string, c *ops.Context) error {
	if err := checkMosaic(img); err != nil {
		return err
	}
	if (method == InterpAHD || method == InterpPPG) && img.Colors != 3 {
		c.Messagef(ops.StatusWarning, "%d: Interpolation %s needs three colors, using %s", img.ID, method, InterpVNG)
		method = InterpVNG
	}
	switch method {
	case InterpBilinear:
		BilinearInterpolate(img, c)
	case InterpVNG:
		VNGInterpolate(img, c)
	case InterpVNG4:
		VNG4Interpolate(img, c)
	case InterpPPG:
		PPGInterpolate(img, c)
	case InterpAHD:
		AHDInterpolate(img, c)
	default:
		return fmt.Errorf("%w: interpolation %s", ops.ErrUnsupported, method)
	}
	img.Filters = 0
	c.Messagef(ops.StatusVerbose, "%d: Interpolated %s with %s", img.ID, img.DimensionsToString(), method)
	return nil
}

// Demosaicing operator
type OpDebayer struct {
	ops.OpBase
	Method string `json:"method"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpDebayerDefaults() }) } // register the operator for JSON decoding

func NewOpDebayerDefaults() *OpDebayer { return NewOpDebayer(InterpAHD) }

func NewOpDebayer(method string) *OpDebayer {
	return &OpDebayer{
		OpBase: ops.OpBase{Type: "debayer", Active: true},
		Method: method,
	}
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpDebayer) UnmarshalJSON(data []byte) error {
	type defaults OpDebayer
	def := defaults(*NewOpDebayerDefaults())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpDebayer(def)
	return nil
}

func (op *OpDebayer) Apply(img *raw.Image, c *ops.Context) (*raw.Image, error) {
	if op.Method == InterpHalf {
		if err := checkMosaic(img); err != nil {
			return nil, err
		}
		return Shrink(img, 2, c)
	}
	if err := Demosaic(img, op.Method, c); err != nil {
		return nil, err
	}
	return img, nil
}
