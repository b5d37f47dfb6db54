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
	"fmt"
	"math"

	"github.com/sergiomb2/ufraw-sub001/internal/ops"
	"github.com/sergiomb2/ufraw-sub001/internal/raw"
	"gonum.org/v1/gonum/floats"
)

// White balance modes
const (
	WBAuto   = "auto"   // gray world average over the unsaturated mosaic
	WBCamera = "camera" // calibration patch, or camera supplied multipliers
	WBManual = "manual" // multipliers supplied by the caller
)

// Distance below the white level at which samples count as saturated
const saturationMargin = 25

// Accumulates positive, unsaturated samples per channel
type channelSums struct {
	sum   [raw.MaxColors]float64
	count [raw.MaxColors]float64
}

func (s *channelSums) add(c, val, limit int) {
	if val <= 0 || val >= limit {
		return
	}
	s.sum[c] += float64(val)
	s.count[c]++
}

// Inverse mean of channel c, or 0 if nothing was accumulated
func (s *channelSums) inverseMean(c int) float32 {
	if s.sum[c] == 0 {
		return 0
	}
	return float32(s.count[c] / s.sum[c])
}

// Computes gray world multipliers from all unsaturated samples of the image.
// Channels without any usable sample keep the prior value.
func AutoMultipliers(img *raw.Image, prior [raw.MaxColors]float32) (mul [raw.MaxColors]float32) {
	limit := img.Maximum - img.Black - saturationMargin
	sums := channelSums{}
	for row := 0; row < img.Height; row++ {
		for col := 0; col < img.Width; col++ {
			pix := &img.Data[row*img.Width+col]
			if img.Filters != 0 {
				c := img.FC(row, col)
				sums.add(c, int(pix[c])-img.Black, limit)
				continue
			}
			for c := 0; c < img.Colors; c++ {
				sums.add(c, int(pix[c])-img.Black, limit)
			}
		}
	}
	for c := range mul {
		if mul[c] = sums.inverseMean(c); mul[c] == 0 {
			mul[c] = prior[c]
		}
	}
	return mul
}

// Computes multipliers from the 8x8 calibration patch. Falls back to the camera
// supplied multipliers if a channel of the pattern has no usable sample, and
// returns ops.ErrNoCameraWB if those are unusable as well.
func CameraMultipliers(img *raw.Image) (mul [raw.MaxColors]float32, err error) {
	if img.Filters != 0 {
		limit := img.Maximum - img.Black - saturationMargin
		sums := channelSums{}
		present := [raw.MaxColors]bool{}
		for row := 0; row < 8; row++ {
			for col := 0; col < 8; col++ {
				c := img.FC(row, col)
				present[c] = true
				sums.add(c, int(img.White[row][col])-img.Black, limit)
			}
		}
		usable := true
		for c := range mul {
			if present[c] && sums.sum[c] == 0 {
				usable = false
			}
			mul[c] = sums.inverseMean(c)
		}
		if usable {
			return mul, nil
		}
	}
	if img.CamMul[0] > 0 && img.CamMul[2] > 0 {
		return img.CamMul, nil
	}
	return mul, ops.ErrNoCameraWB
}

// Normalizes multipliers so the smallest is exactly 1. The second green defaults
// to the first, and any other missing or invalid channel is reset to 1 with a warning.
func NormalizeMultipliers(mul [raw.MaxColors]float32, id int, c *ops.Context) [raw.MaxColors]float32 {
	if mul[raw.Green2] == 0 {
		mul[raw.Green2] = mul[raw.Green]
	}
	m := make([]float64, raw.MaxColors)
	for i := range mul {
		v := float64(mul[i])
		if !(v > 0) || math.IsInf(v, 0) {
			c.Messagef(ops.StatusWarning, "%d: Invalid multiplier %g for channel %d, using 1", id, v, i)
			v = 1
		}
		m[i] = v
	}
	min := floats.Min(m)
	for i := range mul {
		mul[i] = float32(m[i] / min)
	}
	return mul
}

// Computes normalized multipliers for the given white balance mode
func ComputeMultipliers(img *raw.Image, mode string, manual [raw.MaxColors]float32, c *ops.Context) (mul [raw.MaxColors]float32, err error) {
	switch mode {
	case WBAuto, "":
		mul = AutoMultipliers(img, img.PreMul)
	case WBCamera:
		if mul, err = CameraMultipliers(img); err != nil {
			return mul, fmt.Errorf("%d: %w", img.ID, err)
		}
	case WBManual:
		mul = manual
	default:
		return mul, fmt.Errorf("%w: white balance mode %s", ops.ErrUnsupported, mode)
	}
	return NormalizeMultipliers(mul, img.ID, c), nil
}

// Subtracts the black level and scales every populated slot by its channel
// multiplier, stretching the range black..maximum onto 0..65535.
// Empty slots stay empty.
func ApplyMultipliers(img *raw.Image, mul [raw.MaxColors]float32) {
	var scale [raw.MaxColors]float64
	for c := range scale {
		scale[c] = float64(mul[c]) * 65535.0 / float64(img.Maximum-img.Black)
	}
	for i := range img.Data {
		pix := &img.Data[i]
		for c := 0; c < raw.MaxColors; c++ {
			if pix[c] == 0 {
				continue
			}
			pix[c] = raw.Clip(int(float64(int(pix[c])-img.Black) * scale[c]))
		}
	}
	img.PreMul = mul
	img.Black, img.Maximum = 0, 0xffff
}

// Color scaling operator. Falls back to automatic white balance if camera
// white balance is requested but unavailable.
type OpScaleColors struct {
	ops.OpBase
	WB          string                 `json:"wb"`
	Multipliers [raw.MaxColors]float32 `json:"multipliers"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpScaleColorsDefault() }) } // register the operator for JSON decoding

func NewOpScaleColorsDefault() *OpScaleColors { return NewOpScaleColors(WBAuto, [raw.MaxColors]float32{}) }

func NewOpScaleColors(wb string, multipliers [raw.MaxColors]float32) *OpScaleColors {
	return &OpScaleColors{
		OpBase:      ops.OpBase{Type: "scaleColors", Active: true},
		WB:          wb,
		Multipliers: multipliers,
	}
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpScaleColors) UnmarshalJSON(data []byte) error {
	type defaults OpScaleColors
	def := defaults(*NewOpScaleColorsDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpScaleColors(def)
	return nil
}

func (op *OpScaleColors) Apply(img *raw.Image, c *ops.Context) (*raw.Image, error) {
	if err := img.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ops.ErrInvalid, err.Error())
	}
	mul, err := ComputeMultipliers(img, op.WB, op.Multipliers, c)
	if errors.Is(err, ops.ErrNoCameraWB) {
		c.Messagef(ops.StatusNoCameraWB, "%d: Cannot use camera white balance, using auto white balance", img.ID)
		mul, err = ComputeMultipliers(img, WBAuto, op.Multipliers, c)
	}
	if err != nil {
		return nil, err
	}
	c.Messagef(ops.StatusVerbose, "%d: Scaling colors with black %d white %d multipliers %.4f %.4f %.4f %.4f",
		img.ID, img.Black, img.Maximum, mul[0], mul[1], mul[2], mul[3])
	ApplyMultipliers(img, mul)
	return img, nil
}
