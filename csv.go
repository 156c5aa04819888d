// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package grainpipeline

import (
	"encoding/csv"
	"io"
	"strconv"

	"grainpipeline/gradation"
	"grainpipeline/measure"
)

// WriteGrainCSV writes one row per grain to w. The column order is
// fixed so that downstream consumers can rely on it. When calibrated
// is true the area and eq_diam columns are in mm² and mm respectively,
// otherwise they are in pixels; the units column records which.
// Bounding box coordinates are always in pixels.
func WriteGrainCSV(w io.Writer, grains []measure.GrainStats, calibrated bool) error {
	cw := csv.NewWriter(w)
	err := cw.Write([]string{"id", "area", "eq_diam", "roundness", "bbox_x", "bbox_y", "bbox_w", "bbox_h", "units"})
	if err != nil {
		return err
	}
	for _, g := range grains {
		area := float64(g.AreaPx)
		diam := g.EqDiamPx
		units := "px"
		if calibrated {
			area = g.AreaMm2
			diam = g.DiamMm
			units = "mm"
		}
		err = cw.Write([]string{
			strconv.Itoa(g.ID),
			strconv.FormatFloat(area, 'f', 3, 64),
			strconv.FormatFloat(diam, 'f', 3, 64),
			strconv.FormatFloat(g.Roundness, 'f', 3, 64),
			strconv.Itoa(g.X),
			strconv.Itoa(g.Y),
			strconv.Itoa(g.W),
			strconv.Itoa(g.H),
			units,
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteGradationCSV writes one row per sieve to w, coarsest first.
func WriteGradationCSV(w io.Writer, c gradation.Curve) error {
	cw := csv.NewWriter(w)
	err := cw.Write([]string{"sieve", "size_mm", "percent_passing", "percent_retained"})
	if err != nil {
		return err
	}
	for i, s := range gradation.Sieves {
		err = cw.Write([]string{
			s.Label,
			strconv.FormatFloat(s.SizeMm, 'f', -1, 64),
			strconv.FormatFloat(c.Passing[i], 'f', 2, 64),
			strconv.FormatFloat(c.Retained[i], 'f', 2, 64),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
