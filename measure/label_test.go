// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package measure

import (
	"image"
	"testing"

	"grainpipeline/mask"
)

func square(w, h, x, y, size int) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, w, h))
	for yy := y; yy < y+size; yy++ {
		for xx := x; xx < x+size; xx++ {
			m.Pix[yy*m.Stride+xx] = mask.On
		}
	}
	return m
}

func disk(w, h, cx, cy, r int) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, w, h))
	for yy := 0; yy < h; yy++ {
		for xx := 0; xx < w; xx++ {
			dx, dy := xx-cx, yy-cy
			if dx*dx+dy*dy <= r*r {
				m.Pix[yy*m.Stride+xx] = mask.On
			}
		}
	}
	return m
}

func TestLabelRejectsNonBinary(t *testing.T) {
	m := image.NewGray(image.Rect(0, 0, 4, 4))
	m.Pix[3] = 7
	_, err := Label(m, Conn8)
	if err == nil {
		t.Fatalf("Expected error labelling a non binary mask, got nil")
	}
}

func TestLabelSquare(t *testing.T) {
	const size = 10
	m := square(30, 30, 5, 7, size)
	comps, err := Label(m, Conn8)
	if err != nil {
		t.Fatalf("Error labelling: %v", err)
	}
	if len(comps) != 1 {
		t.Fatalf("Expected 1 component, got %d", len(comps))
	}
	c := comps[0]
	if c.Area != size*size {
		t.Errorf("Expected area %d, got %d", size*size, c.Area)
	}
	if c.Perimeter != 4*size-4 {
		t.Errorf("Expected perimeter %d, got %d", 4*size-4, c.Perimeter)
	}
	if c.MinX != 5 || c.MinY != 7 || c.MaxX != 14 || c.MaxY != 16 {
		t.Errorf("Wrong bounding box: %d,%d - %d,%d", c.MinX, c.MinY, c.MaxX, c.MaxY)
	}
}

func TestLabelConnectivity(t *testing.T) {
	// Two pixels touching only diagonally: one component under Conn8,
	// two under Conn4.
	m := image.NewGray(image.Rect(0, 0, 4, 4))
	m.Pix[1*m.Stride+1] = mask.On
	m.Pix[2*m.Stride+2] = mask.On

	comps, err := Label(m, Conn8)
	if err != nil {
		t.Fatalf("Error labelling: %v", err)
	}
	if len(comps) != 1 {
		t.Errorf("Expected 1 component with Conn8, got %d", len(comps))
	}

	comps, err = Label(m, Conn4)
	if err != nil {
		t.Fatalf("Error labelling: %v", err)
	}
	if len(comps) != 2 {
		t.Errorf("Expected 2 components with Conn4, got %d", len(comps))
	}
}

func TestStatsRoundness(t *testing.T) {
	// A disk is the roundest shape we can draw, a one pixel strip
	// about the least round.
	m := disk(60, 60, 30, 30, 20)
	comps, err := Label(m, Conn8)
	if err != nil {
		t.Fatalf("Error labelling: %v", err)
	}
	if len(comps) != 1 {
		t.Fatalf("Expected 1 component, got %d", len(comps))
	}
	stats := Stats(comps)
	if stats[0].Roundness < 0.85 {
		t.Errorf("Expected disk roundness over 0.85, got %f", stats[0].Roundness)
	}
	if stats[0].EqDiamPx < 38 || stats[0].EqDiamPx > 42 {
		t.Errorf("Expected equivalent diameter near 40 for a radius 20 disk, got %f", stats[0].EqDiamPx)
	}

	strip := image.NewGray(image.Rect(0, 0, 50, 5))
	for x := 2; x < 42; x++ {
		strip.Pix[2*strip.Stride+x] = mask.On
	}
	comps, err = Label(strip, Conn8)
	if err != nil {
		t.Fatalf("Error labelling: %v", err)
	}
	stats = Stats(comps)
	if stats[0].Roundness > 0.5 {
		t.Errorf("Expected strip roundness under 0.5, got %f", stats[0].Roundness)
	}
}

func TestStatsIDsAndBox(t *testing.T) {
	comps := []Component{
		{Label: 1, Area: 100, Perimeter: 36, MinX: 5, MinY: 7, MaxX: 14, MaxY: 16},
		{Label: 2, Area: 9, Perimeter: 8, MinX: 20, MinY: 20, MaxX: 22, MaxY: 22},
	}
	stats := Stats(comps)
	if len(stats) != 2 {
		t.Fatalf("Expected 2 stats, got %d", len(stats))
	}
	for i, s := range stats {
		if s.ID != i+1 {
			t.Errorf("Expected dense ID %d, got %d", i+1, s.ID)
		}
	}
	if stats[0].X != 5 || stats[0].Y != 7 || stats[0].W != 10 || stats[0].H != 10 {
		t.Errorf("Wrong bounding box: %d,%d %dx%d", stats[0].X, stats[0].Y, stats[0].W, stats[0].H)
	}
}

func TestCalibrate(t *testing.T) {
	stats := []GrainStats{{ID: 1, AreaPx: 100, EqDiamPx: 10}}

	for _, px := range []float64{0, -2.5} {
		err := Calibrate(stats, px)
		if err == nil {
			t.Errorf("Expected error calibrating with factor %f, got nil", px)
		}
	}

	err := Calibrate(stats, 2)
	if err != nil {
		t.Fatalf("Error calibrating: %v", err)
	}
	if stats[0].DiamMm != 5 {
		t.Errorf("Expected diameter 5mm, got %f", stats[0].DiamMm)
	}
	if stats[0].AreaMm2 != 25 {
		t.Errorf("Expected area 25mm2, got %f", stats[0].AreaMm2)
	}
}
