// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package grainpipeline

import (
	"encoding/csv"
	"strings"
	"testing"

	"grainpipeline/gradation"
	"grainpipeline/measure"
)

func TestWriteGrainCSV(t *testing.T) {
	grains := []measure.GrainStats{
		{ID: 1, AreaPx: 1600, EqDiamPx: 45.125, Roundness: 0.912,
			X: 10, Y: 20, W: 40, H: 41, AreaMm2: 16, DiamMm: 4.5},
		{ID: 2, AreaPx: 2000, EqDiamPx: 50.462, Roundness: 0.7,
			X: 100, Y: 120, W: 50, H: 48, AreaMm2: 20, DiamMm: 5.0462},
	}

	var b strings.Builder
	err := WriteGrainCSV(&b, grains, true)
	if err != nil {
		t.Fatalf("Error writing grain csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "id,area,eq_diam,roundness,bbox_x,bbox_y,bbox_w,bbox_h,units" {
		t.Errorf("Wrong header: %s", lines[0])
	}
	if lines[1] != "1,16.000,4.500,0.912,10,20,40,41,mm" {
		t.Errorf("Wrong calibrated row: %s", lines[1])
	}

	b.Reset()
	err = WriteGrainCSV(&b, grains[:1], false)
	if err != nil {
		t.Fatalf("Error writing grain csv: %v", err)
	}
	lines = strings.Split(strings.TrimSpace(b.String()), "\n")
	if lines[1] != "1,1600.000,45.125,0.912,10,20,40,41,px" {
		t.Errorf("Wrong uncalibrated row: %s", lines[1])
	}
}

func TestWriteGradationCSV(t *testing.T) {
	c := gradation.Curve{
		Passing:  make([]float64, len(gradation.Sieves)),
		Retained: make([]float64, len(gradation.Sieves)),
	}
	for i := range c.Passing {
		c.Passing[i] = 100 - float64(i)*9
		if i > 0 {
			c.Retained[i] = 9
		}
	}

	var b strings.Builder
	err := WriteGradationCSV(&b, c)
	if err != nil {
		t.Fatalf("Error writing gradation csv: %v", err)
	}

	r := csv.NewReader(strings.NewReader(b.String()))
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("Error reading gradation csv back: %v", err)
	}
	if len(rows) != len(gradation.Sieves)+1 {
		t.Fatalf("Expected %d rows, got %d", len(gradation.Sieves)+1, len(rows))
	}
	if strings.Join(rows[0], ",") != "sieve,size_mm,percent_passing,percent_retained" {
		t.Errorf("Wrong header: %v", rows[0])
	}
	// rows follow the sieve series, coarsest first
	if rows[1][0] != "26.5 mm" || rows[1][1] != "26.5" {
		t.Errorf("Wrong first sieve row: %v", rows[1])
	}
	if rows[len(rows)-1][0] != "75 µm" || rows[len(rows)-1][1] != "0.075" {
		t.Errorf("Wrong last sieve row: %v", rows[len(rows)-1])
	}
	if rows[1][2] != "100.00" || rows[2][3] != "9.00" {
		t.Errorf("Wrong percentages: %v, %v", rows[1], rows[2])
	}
}
