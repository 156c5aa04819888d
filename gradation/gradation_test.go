// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package gradation

import (
	"testing"

	"grainpipeline/measure"
)

// grains returns GrainStats whose equivalent diameters in
// millimetres equal diams when converted with pxPerMm.
func grains(diams []float64, pxPerMm float64) []measure.GrainStats {
	var gs []measure.GrainStats
	for i, d := range diams {
		gs = append(gs, measure.GrainStats{ID: i + 1, EqDiamPx: d * pxPerMm})
	}
	return gs
}

func TestConvertBadCalibration(t *testing.T) {
	for _, px := range []float64{0, -1} {
		_, err := Convert(nil, px)
		if err == nil {
			t.Errorf("Expected error converting with factor %f, got nil", px)
		}
	}
}

func TestConvertEmpty(t *testing.T) {
	c, err := Convert(nil, 10)
	if err != nil {
		t.Fatalf("Error converting: %v", err)
	}
	if len(c.Passing) != len(Sieves) || len(c.Retained) != len(Sieves) {
		t.Fatalf("Curve not aligned to the sieve series")
	}
	for i := range Sieves {
		if c.Passing[i] != 0 || c.Retained[i] != 0 {
			t.Errorf("Expected all zero curve for no grains, got %f passing at %s",
				c.Passing[i], Sieves[i].Label)
		}
	}
}

func TestConvert(t *testing.T) {
	c, err := Convert(grains([]float64{1, 2, 3, 4, 5}, 10), 10)
	if err != nil {
		t.Fatalf("Error converting: %v", err)
	}

	cases := []struct {
		sizeMm  float64
		passing float64
	}{
		{26.5, 100},
		{9.5, 100},
		{4.75, 80},
		{2.36, 40},
		{1.18, 20},
		{0.600, 0},
		{0.075, 0},
	}
	for _, want := range cases {
		found := false
		for i, s := range Sieves {
			if s.SizeMm != want.sizeMm {
				continue
			}
			found = true
			if c.Passing[i] != want.passing {
				t.Errorf("Expected %f%% passing the %s sieve, got %f",
					want.passing, s.Label, c.Passing[i])
			}
		}
		if !found {
			t.Errorf("No sieve of size %f in the series", want.sizeMm)
		}
	}

	var retained float64
	for i := range Sieves {
		if c.Retained[i] < 0 {
			t.Errorf("Negative %f%% retained at %s", c.Retained[i], Sieves[i].Label)
		}
		retained += c.Retained[i]
	}
	if c.Retained[0] != 0 {
		t.Errorf("Expected nothing retained at the coarsest sieve, got %f", c.Retained[0])
	}
}

func TestConvertRetainedIsPassingDrop(t *testing.T) {
	c, err := Convert(grains([]float64{0.5, 1.5, 3, 6, 10, 20}, 4), 4)
	if err != nil {
		t.Fatalf("Error converting: %v", err)
	}
	prev := 0.0
	for i := range Sieves {
		want := prev - c.Passing[i]
		if want < 0 {
			want = 0
		}
		if c.Retained[i] != want {
			t.Errorf("Expected %f%% retained at %s, got %f", want, Sieves[i].Label, c.Retained[i])
		}
		prev = c.Passing[i]
	}
}

func TestSummarise(t *testing.T) {
	empty := Summarise(Curve{})
	if empty.Count != 0 || empty.MeanMm != 0 || empty.D10 != 0 || empty.Cu != 0 {
		t.Errorf("Expected all zero summary for an empty curve")
	}

	single := Summarise(Curve{DiamsMm: []float64{2.5}})
	if single.Count != 1 || single.MeanMm != 2.5 || single.StdDevMm != 0 {
		t.Errorf("Wrong single grain summary: %+v", single)
	}

	c, err := Convert(grains([]float64{1, 2, 3, 4, 5}, 10), 10)
	if err != nil {
		t.Fatalf("Error converting: %v", err)
	}
	s := Summarise(c)
	if s.Count != 5 {
		t.Errorf("Expected count 5, got %d", s.Count)
	}
	if s.MeanMm != 3 {
		t.Errorf("Expected mean 3mm, got %f", s.MeanMm)
	}
	if s.D10 > s.D30 || s.D30 > s.D60 {
		t.Errorf("Expected D10 <= D30 <= D60, got %f, %f, %f", s.D10, s.D30, s.D60)
	}
	if s.D10 < 1 || s.D60 > 5 {
		t.Errorf("D values outside the diameter range: %f, %f", s.D10, s.D60)
	}
	if s.Cu <= 0 || s.Cc <= 0 {
		t.Errorf("Expected positive Cu and Cc, got %f, %f", s.Cu, s.Cc)
	}
}
