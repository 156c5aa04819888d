// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// Package gradation converts calibrated grain diameters into a
// standard sieve-analysis gradation curve: the percentage of grains
// passing each sieve of a fixed descending series, and the
// percentage retained between consecutive sieves.
package gradation

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"grainpipeline/measure"
)

// Sieve is one entry of the standard series.
type Sieve struct {
	Label  string
	SizeMm float64
}

// Sieves is the fixed sieve series used for every curve, coarsest
// first.
var Sieves = []Sieve{
	{"26.5 mm", 26.5},
	{"19.0 mm", 19},
	{"13.2 mm", 13.2},
	{"9.5 mm", 9.5},
	{"4.75 mm", 4.75},
	{"2.36 mm", 2.36},
	{"1.18 mm", 1.18},
	{"600 µm", 0.600},
	{"300 µm", 0.300},
	{"150 µm", 0.150},
	{"75 µm", 0.075},
}

// Curve is a gradation curve aligned to Sieves: Passing[i] and
// Retained[i] belong to Sieves[i]. DiamsMm keeps the calibrated
// diameters, sorted ascending, for summary statistics and plotting.
type Curve struct {
	DiamsMm  []float64
	Passing  []float64
	Retained []float64
}

// Convert builds the gradation curve for a set of grains. Each
// equivalent diameter is scaled by the pixel-per-millimetre factor,
// and the percent passing each sieve is the share of grains with
// diameter at or below the sieve size, found by binary search over
// the sorted diameters. Percent retained at a sieve is the drop in
// percent passing from the next larger sieve, floored at zero to
// guard tie and rounding artefacts. No grains at all is a valid
// input and yields zero percent passing everywhere.
//
// Converting without a positive calibration factor is a caller
// error, not something to approximate around.
func Convert(grains []measure.GrainStats, pxPerMm float64) (Curve, error) {
	if pxPerMm <= 0 {
		return Curve{}, measure.ErrBadCalibration
	}

	diams := make([]float64, 0, len(grains))
	for _, g := range grains {
		diams = append(diams, g.EqDiamPx/pxPerMm)
	}
	sort.Float64s(diams)

	c := Curve{
		DiamsMm:  diams,
		Passing:  make([]float64, len(Sieves)),
		Retained: make([]float64, len(Sieves)),
	}

	n := len(diams)
	prev := 0.0
	for i, s := range Sieves {
		if n > 0 {
			passed := sort.Search(n, func(j int) bool { return diams[j] > s.SizeMm })
			c.Passing[i] = 100 * float64(passed) / float64(n)
		}
		r := prev - c.Passing[i]
		if r < 0 {
			r = 0
		}
		c.Retained[i] = r
		prev = c.Passing[i]
	}

	return c, nil
}

// Summary condenses a curve into the headline numbers of a sieve
// analysis report. D10, D30 and D60 are the diameters below which
// 10%, 30% and 60% of grains fall; Cu = D60/D10 is the uniformity
// coefficient and Cc = D30^2/(D10*D60) the coefficient of curvature.
type Summary struct {
	Count         int
	MeanMm        float64
	StdDevMm      float64
	D10, D30, D60 float64
	Cu, Cc        float64
}

// Summarise computes summary statistics from the curve's diameters.
// With no grains everything is zero; with a single grain the
// standard deviation is zero rather than undefined.
func Summarise(c Curve) Summary {
	var s Summary
	s.Count = len(c.DiamsMm)
	if s.Count == 0 {
		return s
	}

	s.MeanMm = stat.Mean(c.DiamsMm, nil)
	if s.Count > 1 {
		s.StdDevMm = stat.StdDev(c.DiamsMm, nil)
	}
	s.D10 = stat.Quantile(0.10, stat.Empirical, c.DiamsMm, nil)
	s.D30 = stat.Quantile(0.30, stat.Empirical, c.DiamsMm, nil)
	s.D60 = stat.Quantile(0.60, stat.Empirical, c.DiamsMm, nil)
	if s.D10 > 0 {
		s.Cu = s.D60 / s.D10
		s.Cc = s.D30 * s.D30 / (s.D10 * s.D60)
	}
	if math.IsNaN(s.StdDevMm) {
		s.StdDevMm = 0
	}
	return s
}
