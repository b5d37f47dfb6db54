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

package stats

import (
	"errors"
	"fmt"
	"math"

	"github.com/sergiomb2/ufraw-sub001/internal/ops"
	"github.com/sergiomb2/ufraw-sub001/internal/raw"
	"github.com/valyala/fastrand"
	"gonum.org/v1/gonum/optimize"
)

// Quantized channel multipliers a histogram was computed under. Multipliers
// within 1e-4 of each other map onto the same key, so floating point noise
// does not invalidate a histogram.
type Key [raw.MaxColors]int32

func KeyOf(mul [raw.MaxColors]float32) (k Key) {
	for i, m := range mul {
		k[i] = int32(math.Round(float64(m) * 1e4))
	}
	return k
}

var ErrStale = errors.New("histogram was computed under different multipliers")

// Per-channel histogram of a 16-bit image
type Histogram struct {
	Key    Key
	Colors int
	Shift  uint // bins are 1<<Shift values wide
	Count  int  // number of pixels counted
	Bins   [raw.MaxColors][]int32
}

func newHistogram(img *raw.Image, shift uint) *Histogram {
	h := &Histogram{Key: KeyOf(img.PreMul), Colors: img.Colors, Shift: shift}
	for c := 0; c < h.Colors; c++ {
		h.Bins[c] = make([]int32, 0x10000>>shift)
	}
	return h
}

func (h *Histogram) add(pix *[raw.MaxColors]uint16) {
	for c := 0; c < h.Colors; c++ {
		h.Bins[c][pix[c]>>h.Shift]++
	}
	h.Count++
}

// Calculates the histogram over all pixels of the image
func New(img *raw.Image, shift uint) *Histogram {
	h := newHistogram(img, shift)
	for i := range img.Data {
		h.add(&img.Data[i])
	}
	return h
}

// Calculates the histogram over n pixels drawn at random. Cheaper for previews
func NewSampled(img *raw.Image, shift uint, n int) *Histogram {
	h := newHistogram(img, shift)
	if len(img.Data) == 0 {
		return h
	}
	for i := 0; i < n; i++ {
		h.add(&img.Data[fastrand.Uint32n(uint32(len(img.Data)))])
	}
	return h
}

// Checks that the histogram is still valid for the given multipliers
func (h *Histogram) Require(mul [raw.MaxColors]float32) error {
	if h.Key != KeyOf(mul) {
		return fmt.Errorf("%w: have %v, want %v", ErrStale, h.Key, KeyOf(mul))
	}
	return nil
}

// Center value of the given bin
func (h *Histogram) binCenter(i float64) float64 {
	return (i + 0.5) * float64(int(1)<<h.Shift)
}

// Mean value of a channel, from bin centers
func (h *Histogram) Mean(c int) float64 {
	if h.Count == 0 {
		return 0
	}
	sum := 0.0
	for i, n := range h.Bins[c] {
		sum += float64(n) * h.binCenter(float64(i))
	}
	return sum / float64(h.Count)
}

// Returns the lower bound of the bin in which the cumulative count of a
// channel reaches the given fraction
func (h *Histogram) Percentile(c int, p float64) int {
	limit := int64(math.Ceil(p * float64(h.Count)))
	acc := int64(0)
	for i, n := range h.Bins[c] {
		acc += int64(n)
		if acc >= limit && acc > 0 {
			return i << h.Shift
		}
	}
	return (len(h.Bins[c]) - 1) << h.Shift
}

// Returns the location and the value of the histogram peak of a channel
func (h *Histogram) Peak(c int) (x, y float64) {
	bins := h.Bins[c]
	maxIndex, maxValue := 0, int32(math.MinInt32)
	for i, v := range bins {
		if v > maxValue {
			maxIndex, maxValue = i, v
		}
	}
	return h.binCenter(float64(maxIndex)), float64(maxValue)
}

// Calculates the mode and the standard deviation of a channel by fitting a
// normal distribution to the histogram, starting from the peak
func (h *Histogram) Mode(c int) (mode, stdDev float64, err error) {
	bins := h.Bins[c]
	peak, peakVal := h.Peak(c)
	width := float64(int(1) << h.Shift)

	// Now minimize the distance between the histogram and a normal distribution
	sigma := 2 * width
	x0 := []float64{peakVal * sigma * math.Sqrt(2*math.Pi), peak, sigma}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			alpha, mu, sigma := x[0], x[1], x[2]
			scaler := alpha / (sigma * math.Sqrt(2*math.Pi))
			sumSqDiff := 0.0
			for i, y := range bins {
				xmusig := (h.binCenter(float64(i)) - mu) / sigma
				diff := float64(y) - scaler*math.Exp(-0.5*xmusig*xmusig)
				sumSqDiff += diff * diff
			}
			return math.Sqrt(sumSqDiff / float64(len(bins)))
		},
	}
	result, err := optimize.Minimize(problem, x0, nil, &optimize.NelderMead{})
	if err != nil {
		return -1, -1, err
	}
	return result.X[1], math.Abs(result.X[2]), nil
}

// Summary statistics of one channel
type ChannelStats struct {
	Mean   float64 `json:"mean"`
	Median int     `json:"median"`
	P99    int     `json:"p99"`
	Mode   float64 `json:"mode"`
	StdDev float64 `json:"stdDev"`
}

func (s ChannelStats) String() string {
	return fmt.Sprintf("mean %.1f median %d p99 %d mode %.1f stddev %.1f", s.Mean, s.Median, s.P99, s.Mode, s.StdDev)
}

// Summarizes each channel of a histogram computed under the given multipliers.
// If the normal fit fails, the mode falls back to the histogram peak with zero deviation.
func (h *Histogram) Summarize(mul [raw.MaxColors]float32) ([]ChannelStats, error) {
	if err := h.Require(mul); err != nil {
		return nil, err
	}
	res := make([]ChannelStats, h.Colors)
	for c := range res {
		mode, stdDev, err := h.Mode(c)
		if err != nil || !finite(mode) || !finite(stdDev) || mode < 0 || mode > 0xffff {
			mode, _ = h.Peak(c)
			stdDev = 0
		}
		res[c] = ChannelStats{
			Mean:   h.Mean(c),
			Median: h.Percentile(c, 0.5),
			P99:    h.Percentile(c, 0.99),
			Mode:   mode,
			StdDev: stdDev,
		}
	}
	return res, nil
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

type cacheKey struct {
	id, height, width int
	filters           uint32
	key               Key
	shift             uint
}

// Images with more pixels than this are sampled for previews
const (
	previewPixels  = 1 << 20
	previewSamples = 1 << 18
)

// Returns the histogram of the image under its current multipliers, cached in
// the context. Large images are sampled. A change of multipliers, geometry or
// pattern selects a new entry.
func For(img *raw.Image, shift uint, c *ops.Context) *Histogram {
	key := cacheKey{img.ID, img.Height, img.Width, img.Filters, KeyOf(img.PreMul), shift}
	return c.Table(key, func() interface{} {
		if img.Pixels() > previewPixels {
			c.Messagef(ops.StatusVerbose, "%d: Sampling histogram from %d of %d pixels", img.ID, previewSamples, img.Pixels())
			return NewSampled(img, shift, previewSamples)
		}
		return New(img, shift)
	}).(*Histogram)
}
