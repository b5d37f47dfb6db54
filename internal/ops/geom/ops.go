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
	"encoding/json"

	"github.com/sergiomb2/ufraw-sub001/internal/ops"
	"github.com/sergiomb2/ufraw-sub001/internal/raw"
)

// Diagonal sensor rotation operator
type OpFujiRotate struct {
	ops.OpBase
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpFujiRotate() }) } // register the operator for JSON decoding

func NewOpFujiRotate() *OpFujiRotate {
	return &OpFujiRotate{OpBase: ops.OpBase{Type: "fujiRotate", Active: true}}
}

func (op *OpFujiRotate) Apply(img *raw.Image, c *ops.Context) (*raw.Image, error) {
	return FujiRotate(img, c)
}

// Pixel aspect correction operator
type OpStretch struct {
	ops.OpBase
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpStretch() }) } // register the operator for JSON decoding

func NewOpStretch() *OpStretch {
	return &OpStretch{OpBase: ops.OpBase{Type: "stretch", Active: true}}
}

func (op *OpStretch) Apply(img *raw.Image, c *ops.Context) (*raw.Image, error) {
	return Stretch(img, c)
}

// Box filter resize operator. Shrinks the longer side to Size pixels
type OpResize struct {
	ops.OpBase
	Size int `json:"size"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpResizeDefault() }) } // register the operator for JSON decoding

func NewOpResizeDefault() *OpResize { return NewOpResize(0) }

func NewOpResize(size int) *OpResize {
	return &OpResize{
		OpBase: ops.OpBase{Type: "resize", Active: size > 0},
		Size:   size,
	}
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpResize) UnmarshalJSON(data []byte) error {
	type defaults OpResize
	def := defaults(*NewOpResizeDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpResize(def)
	return nil
}

func (op *OpResize) Apply(img *raw.Image, c *ops.Context) (*raw.Image, error) {
	return ResizeToFit(img, op.Size, c)
}

// Orientation operator. A non-negative Code overrides the orientation of the image
type OpFlip struct {
	ops.OpBase
	Code    int  `json:"code"`
	InPlace bool `json:"inPlace"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpFlipDefault() }) } // register the operator for JSON decoding

func NewOpFlipDefault() *OpFlip { return NewOpFlip(-1, false) }

func NewOpFlip(code int, inPlace bool) *OpFlip {
	return &OpFlip{
		OpBase:  ops.OpBase{Type: "flip", Active: true},
		Code:    code,
		InPlace: inPlace,
	}
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpFlip) UnmarshalJSON(data []byte) error {
	type defaults OpFlip
	def := defaults(*NewOpFlipDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpFlip(def)
	return nil
}

func (op *OpFlip) Apply(img *raw.Image, c *ops.Context) (*raw.Image, error) {
	if op.Code >= 0 {
		img.Flip = op.Code
	}
	if op.InPlace {
		return FlipInPlace(img, c), nil
	}
	return Flip(img, c)
}
