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

package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sergiomb2/ufraw-sub001/internal/ops"
	"github.com/sergiomb2/ufraw-sub001/internal/ops/final"
	"github.com/sergiomb2/ufraw-sub001/internal/raw"
	"github.com/sergiomb2/ufraw-sub001/internal/stats"
)

// Creates the router for the REST API. Log output of every run is echoed to log
func NewRouter(log io.Writer, middleware ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware...)
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.POST("/finalize", func(c *gin.Context) { postFinalize(c, log) })
		}
	}
	return r
}

// Serves the REST API on the given address, e.g. ":8080"
func Serve(addr string, log io.Writer) error {
	return NewRouter(log, gin.LoggerWithWriter(log)).Run(addr)
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

// A sensor mosaic with its calibration, as posted by clients
type mosaicArgs struct {
	Height      int                        `json:"height" binding:"required"`
	Width       int                        `json:"width" binding:"required"`
	CFA         string                     `json:"cfa"`
	Black       int                        `json:"black"`
	Maximum     int                        `json:"maximum"`
	CamMul      *[raw.MaxColors]float32    `json:"camMul"`
	PreMul      [raw.MaxColors]float32     `json:"preMul"`
	White       [8][8]uint16               `json:"white"`
	RGBCam      *[3][raw.MaxColors]float32 `json:"rgbCam"`
	FujiWidth   int                        `json:"fujiWidth"`
	Flip        int                        `json:"flip"`
	PixelAspect float64                    `json:"pixelAspect"`
	Samples     []uint16                   `json:"samples" binding:"required"`
}

type postFinalizeArgs struct {
	Mosaic   mosaicArgs      `json:"mosaic" binding:"required"`
	Options  *final.Options  `json:"options"`
	Pipeline json.RawMessage `json:"pipeline"` // operator to apply instead of the default finalization
	TIFF     bool            `json:"tiff"`     // return a 16-bit TIFF instead of JSON
	Verbose  bool            `json:"verbose"`
}

type postFinalizeResult struct {
	Status    string                  `json:"status"`
	Messages  []ops.Message           `json:"messages"`
	Height    int                     `json:"height"`
	Width     int                     `json:"width"`
	Colors    int                     `json:"colors"`
	Histogram []stats.ChannelStats    `json:"histogram,omitempty"`
	Data      [][raw.MaxColors]uint16 `json:"data,omitempty"`
}

// Builds the image described by the arguments
func (m *mosaicArgs) toImage() (*raw.Image, error) {
	cfa := m.CFA
	if cfa == "" {
		cfa = "RGGB"
	}
	filters, err := raw.ParseCFA(cfa)
	if err != nil {
		return nil, err
	}
	img, err := raw.NewImageFromMosaic(m.Samples, m.Height, m.Width, filters)
	if err != nil {
		return nil, err
	}
	img.Black = m.Black
	if m.Maximum > 0 {
		img.Maximum = m.Maximum
	}
	if m.CamMul != nil {
		img.CamMul = *m.CamMul
	}
	if m.RGBCam != nil {
		img.RGBCam = *m.RGBCam
	}
	if m.PixelAspect > 0 {
		img.PixelAspect = m.PixelAspect
	}
	img.PreMul, img.White = m.PreMul, m.White
	img.FujiWidth, img.Flip = m.FujiWidth, m.Flip
	return img, nil
}

// Maps a run error onto an HTTP status code
func httpStatus(err error) int {
	switch {
	case errors.Is(err, ops.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ops.ErrUnsupported):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ops.ErrOutOfMemory):
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

func postFinalize(c *gin.Context, log io.Writer) {
	var args postFinalizeArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	img, err := args.Mosaic.toImage()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	op := ops.Operator(final.NewOpFinalizeDefault())
	if args.Options != nil {
		op = final.NewOpFinalize(*args.Options)
	}
	if len(args.Pipeline) > 0 {
		if op, err = ops.UnmarshalOperator(args.Pipeline); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	ctx := ops.NewContext(log, args.Verbose)
	fmt.Fprintf(ctx.Log, "%d: Finalizing %s posted mosaic on %s\n", img.ID, img.DimensionsToString(), ctx.Host())
	res, err := op.Apply(img, ctx)
	if err != nil {
		c.JSON(httpStatus(err), gin.H{"error": err.Error(), "status": ops.StatusOf(err).String(), "messages": ctx.Messages})
		return
	}

	if args.TIFF {
		buf := bytes.Buffer{}
		if err := res.WriteTIFF16(&buf); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "image/tiff", buf.Bytes())
		return
	}

	summary, err := stats.For(res, 4, ctx).Summarize(res.PreMul)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	result := postFinalizeResult{
		Status:    ctx.Status().String(),
		Messages:  ctx.Messages,
		Height:    res.Height,
		Width:     res.Width,
		Colors:    res.Colors,
		Histogram: summary,
		Data:      res.Data,
	}
	c.JSON(http.StatusOK, result)
}
