// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// Package analyse runs the whole grain measurement pipeline over one
// photograph: mask production, morphological cleanup, hole filling,
// component labelling, filtering and shape statistics, plus the
// gradation curve when a calibration factor is supplied.
//
// The pipeline is a pure synchronous computation; each stage reads
// the previous stage's buffer and produces a fresh one, and nothing
// is published until the whole run has finished. Callers wanting to
// keep a UI responsive should run it off their interactive thread as
// one unit of work.
package analyse

import (
	"fmt"
	"image"

	"grainpipeline/gradation"
	"grainpipeline/mask"
	"grainpipeline/measure"
	"grainpipeline/morph"
)

// Options are the pipeline tuning knobs. The zero value is not
// useful; start from DefaultOptions.
type Options struct {
	// CloseRadius and OpenRadius control the morphological cleanup.
	CloseRadius int
	OpenRadius  int

	// Connectivity for component labelling.
	Connectivity measure.Connectivity

	// MinAreaFrac and MinAreaFloor define the minimum grain area as
	// max(imagePixels*MinAreaFrac, MinAreaFloor).
	MinAreaFrac  float64
	MinAreaFloor int

	// MergeTouching enables the optional pass welding components
	// with intersecting padded bounding boxes into one grain.
	MergeTouching bool
	MergePad      int

	// PxPerMm is the calibration factor. Zero means uncalibrated:
	// measurements stay in pixels and no gradation curve is built.
	PxPerMm float64
}

// DefaultOptions returns the tuning used by the command line tools.
func DefaultOptions() Options {
	return Options{
		CloseRadius:  1,
		OpenRadius:   2,
		Connectivity: measure.Conn8,
		MinAreaFrac:  measure.DefaultMinAreaFrac,
		MinAreaFloor: measure.DefaultMinAreaFloor,
		MergePad:     2,
	}
}

// Result is the pipeline output for one photograph. Conf is the
// model's mean foreground probability, or -1 if the deterministic
// fallback produced the mask. Curve is nil when no calibration
// factor was supplied. Zero grains is a valid result, not an error.
type Result struct {
	Grains []measure.GrainStats
	Conf   float64
	Curve  *gradation.Curve
}

// Run measures the grains in one photograph. The image is read only;
// errors can only come from contract violations between stages or a
// bad calibration factor, not from the photograph's content.
func Run(img image.Image, p mask.Producer, opts Options) (Result, error) {
	produced, err := p.Produce(img)
	if err != nil {
		return Result{}, err
	}

	// a mask at the wrong scale would silently skew every pixel
	// measurement downstream
	ib, mb := img.Bounds(), produced.Mask.Bounds()
	if ib.Dx() != mb.Dx() || ib.Dy() != mb.Dy() {
		return Result{}, fmt.Errorf("Mask dimensions %dx%d do not match photo dimensions %dx%d",
			mb.Dx(), mb.Dy(), ib.Dx(), ib.Dy())
	}

	cleaned, err := morph.Clean(produced.Mask, opts.CloseRadius, opts.OpenRadius)
	if err != nil {
		return Result{}, err
	}
	filled, err := morph.FillHoles(cleaned)
	if err != nil {
		return Result{}, err
	}

	comps, err := measure.Label(filled, opts.Connectivity)
	if err != nil {
		return Result{}, err
	}

	b := filled.Bounds()
	minarea := measure.MinArea(b.Dx()*b.Dy(), opts.MinAreaFrac, opts.MinAreaFloor)
	kept := measure.Filter(comps, minarea)
	if opts.MergeTouching {
		kept = measure.MergeTouching(kept, opts.MergePad)
	}

	res := Result{
		Grains: measure.Stats(kept),
		Conf:   produced.Conf,
	}

	if opts.PxPerMm > 0 {
		err = measure.Calibrate(res.Grains, opts.PxPerMm)
		if err != nil {
			return Result{}, err
		}
		curve, err := gradation.Convert(res.Grains, opts.PxPerMm)
		if err != nil {
			return Result{}, err
		}
		res.Curve = &curve
	}

	return res, nil
}
