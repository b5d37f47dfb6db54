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

package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/sergiomb2/ufraw-sub001/internal/ops"
	"github.com/sergiomb2/ufraw-sub001/internal/ops/final"
	"github.com/sergiomb2/ufraw-sub001/internal/ops/geom"
	"github.com/sergiomb2/ufraw-sub001/internal/raw"
	"github.com/sergiomb2/ufraw-sub001/internal/rest"
	"github.com/sergiomb2/ufraw-sub001/internal/stats"
)

const version = "0.1.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var out = flag.String("out", "out.tif", "save output to `file`. With several inputs, a pattern like `out%04d.tif`")
var logName = flag.String("log", "%auto", "save log output to `file`. `%auto` replaces suffix of output file with .log")
var pipeline = flag.String("json", "", "apply the operator pipeline from JSON `file` instead of the flags below")

var cfa = flag.String("cfa", "RGGB", "color filter array type of the input mosaic, one of RGGB, GRBG, GBRG, BGGR")
var black = flag.Int("black", 0, "black level of the input mosaic")
var maximum = flag.Int("max", 0xffff, "white level of the input mosaic")
var camMul = flag.String("camMul", "", "camera white balance multipliers as comma separated list, blank if unavailable")
var fujiWidth = flag.Int("fuji", 0, "width of a diagonal sensor layout in pixels, 0=not applicable")
var aspect = flag.Float64("aspect", 1, "pixel aspect ratio, 1=square pixels")
var rotate = flag.Int("rotate", 0, "rotate output clockwise by 0, 90, 180 or 270 degrees")

var wb = flag.String("wb", "auto", "white balance, one of auto, camera or manual")
var mul = flag.String("mul", "1,1,1", "manual white balance multipliers as comma separated list")
var interp = flag.String("interp", "ahd", "interpolation, one of bilinear, vng, vng4, ppg, ahd or half")
var medianPasses = flag.Int("median", 0, "median filter passes to smooth interpolation artifacts, 0=off")
var size = flag.Int("size", 0, "longer side of the output in pixels, 0=full size")
var inPlace = flag.Bool("inPlace", false, "rotate without allocating a second buffer")

var threads = flag.Int("threads", runtime.NumCPU(), "number of images to process in parallel")
var verbose = flag.Bool("verbose", false, "log verbose diagnostics")

var addr = flag.String("addr", ":8080", "listen address for the serve command")
var chroot = flag.String("chroot", "", "chroot into `dir` before serving")
var setuid = flag.Int("setuid", -1, "switch to the given user ID before serving, -1=keep")

func main() {
	var logWriter io.Writer = os.Stdout
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(logWriter, `rawdev Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (finalize|stats|serve|legal|version) (img0.tif ... imgn.tif)

Commands:
  finalize Interpolate, scale and orient sensor mosaics stored as single channel TIFF
  stats    Show per-channel statistics of the finalized images
  serve    Serve the REST API
  legal    Show license and attribution information
  version  Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	// Log to file in addition to stdout, if selected
	if *logName == "%auto" {
		if *out != "" && args[0] == "finalize" {
			*logName = strings.TrimSuffix(*out, filepath.Ext(*out)) + ".log"
		} else {
			*logName = ""
		}
	}
	if *logName != "" {
		f, err := os.OpenFile(*logName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
		if err != nil {
			fmt.Fprintf(logWriter, "Unable to open logfile '%s': %s\n", *logName, err.Error())
			os.Exit(-1)
		}
		defer f.Close()
		logWriter = io.MultiWriter(os.Stdout, f)
	}

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Fprintf(logWriter, "Could not create CPU profile: %s\n", err.Error())
			os.Exit(-1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(logWriter, "Could not start CPU profile: %s\n", err.Error())
			os.Exit(-1)
		}
		defer pprof.StopCPUProfile()
	}

	var err error
	switch args[0] {
	case "finalize":
		err = cmdFinalize(args[1:], logWriter, true)

	case "stats":
		err = cmdFinalize(args[1:], logWriter, false)

	case "serve":
		if err = rest.MakeSandbox(*chroot, *setuid, logWriter); err == nil {
			fmt.Fprintf(logWriter, "Serving REST API on %s\n", *addr)
			err = rest.Serve(*addr, logWriter)
		}

	case "legal":
		fmt.Fprint(logWriter, legal)

	case "version":
		fmt.Fprintf(logWriter, "Version %s\n", version)

	case "help", "?":
		flag.Usage()

	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return
	}

	fmt.Fprintf(logWriter, "\nDone after %v\n", time.Since(start))

	// Store memory profile if flagged
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			fmt.Fprintf(logWriter, "Could not create memory profile: %s\n", err.Error())
			os.Exit(-1)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			fmt.Fprintf(logWriter, "Could not write allocation profile: %s\n", err.Error())
			os.Exit(-1)
		}
	}

	if err != nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
		os.Exit(-1)
	}
}

// Finalizes each named mosaic. Saves the results if save is set, and logs
// per-channel statistics otherwise.
func cmdFinalize(fileNames []string, logWriter io.Writer, save bool) error {
	if len(fileNames) == 0 {
		return errors.New("no input files given")
	}
	if save && len(fileNames) > 1 && !strings.Contains(*out, "%") {
		return fmt.Errorf("output '%s' needs a pattern like out%%04d.tif for %d inputs", *out, len(fileNames))
	}
	op, err := operatorFromFlags()
	if err != nil {
		return err
	}
	if m, err := json.MarshalIndent(op, "", "  "); err == nil {
		fmt.Fprintf(logWriter, "Finalizing %d frames with these settings:\n%s\n", len(fileNames), string(m))
	}

	fmt.Fprintf(logWriter, "Running on %s\n", ops.NewContext(logWriter, false).Host())
	contexts, err := ops.ApplyParallel(len(fileNames), *threads, logWriter, *verbose, func(id int, c *ops.Context) error {
		fileName := fileNames[id]
		img, err := readMosaic(fileName, id)
		if err != nil {
			return err
		}
		res, err := op.Apply(img, c)
		if err != nil {
			return fmt.Errorf("%s: %w", fileName, err)
		}
		if *verbose || !save {
			summary, err := stats.For(res, 4, c).Summarize(res.PreMul)
			if err != nil {
				return fmt.Errorf("%s: %w", fileName, err)
			}
			for ch, s := range summary {
				fmt.Fprintf(c.Log, "%d: channel %d %s\n", id, ch, s)
			}
		}
		if !save {
			return nil
		}
		outName := *out
		if strings.Contains(outName, "%") {
			outName = fmt.Sprintf(outName, id)
		}
		fmt.Fprintf(c.Log, "%d: Writing %s image to %s\n", id, res.DimensionsToString(), outName)
		return res.WriteTIFF16ToFile(outName)
	})
	for id, c := range contexts {
		if st := c.Status(); st != ops.StatusSuccess {
			fmt.Fprintf(logWriter, "%d: Finished with status %s\n", id, st)
		}
	}
	return err
}

// Builds the finalization operator from the JSON pipeline file, or from the flags
func operatorFromFlags() (ops.Operator, error) {
	if *pipeline != "" {
		b, err := os.ReadFile(*pipeline)
		if err != nil {
			return nil, err
		}
		return ops.UnmarshalOperator(b)
	}
	opts := final.DefaultOptions()
	opts.WB, opts.Interpolation, opts.MedianPasses = *wb, *interp, *medianPasses
	opts.Size, opts.InPlaceFlip = *size, *inPlace
	if *wb == "manual" {
		m, err := parseMultipliers(*mul)
		if err != nil {
			return nil, err
		}
		opts.Multipliers = m
	}
	return final.NewOpFinalize(opts), nil
}

// Reads a mosaic and applies the calibration given by flags
func readMosaic(fileName string, id int) (*raw.Image, error) {
	filters, err := raw.ParseCFA(*cfa)
	if err != nil {
		return nil, err
	}
	img, err := raw.ReadMosaicTIFFFile(fileName, filters)
	if err != nil {
		return nil, err
	}
	img.ID = id
	img.Black, img.Maximum = *black, *maximum
	img.FujiWidth, img.PixelAspect = *fujiWidth, *aspect
	if *camMul != "" {
		if img.CamMul, err = parseMultipliers(*camMul); err != nil {
			return nil, err
		}
	}
	flip, err := geom.FlipFromDegrees(*rotate)
	if err != nil {
		return nil, err
	}
	img.Flip = flip
	return img, nil
}

// Parses up to four comma separated multipliers. A missing fourth value repeats the green one
func parseMultipliers(s string) (m [raw.MaxColors]float32, err error) {
	parts := strings.Split(s, ",")
	if len(parts) < 3 || len(parts) > raw.MaxColors {
		return m, fmt.Errorf("want 3 or 4 multipliers, got '%s'", s)
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return m, fmt.Errorf("invalid multiplier '%s': %w", p, err)
		}
		m[i] = float32(v)
	}
	if len(parts) == 3 {
		m[raw.Green2] = m[raw.Green]
	}
	return m, nil
}
