// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package analyse

import (
	"image"
	"testing"

	"grainpipeline/gradation"
	"grainpipeline/mask"
	"grainpipeline/measure"
)

// fixedProducer returns a prebuilt mask regardless of the
// photograph, standing in for the model strategy.
type fixedProducer struct {
	mask *image.Gray
	conf float64
}

func (p fixedProducer) Produce(img image.Image) (mask.Result, error) {
	return mask.Result{Mask: p.mask, Conf: p.conf}, nil
}

func addDisk(m *image.Gray, cx, cy, r int, v uint8) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r {
				m.Pix[y*m.Stride+x] = v
			}
		}
	}
}

func testOptions() Options {
	opts := DefaultOptions()
	// small synthetic grains would never clear the production floor
	opts.MinAreaFloor = 100
	return opts
}

func TestRunTwoGrains(t *testing.T) {
	m := image.NewGray(image.Rect(0, 0, 400, 400))
	addDisk(m, 100, 100, 20, mask.On)
	addDisk(m, 300, 300, 20, mask.On)
	img := image.NewGray(image.Rect(0, 0, 400, 400))

	opts := testOptions()
	opts.PxPerMm = 10

	res, err := Run(img, fixedProducer{mask: m, conf: 0.93}, opts)
	if err != nil {
		t.Fatalf("Error running pipeline: %v", err)
	}

	if res.Conf != 0.93 {
		t.Errorf("Expected confidence 0.93, got %f", res.Conf)
	}
	if len(res.Grains) != 2 {
		t.Fatalf("Expected 2 grains, got %d", len(res.Grains))
	}
	for i, g := range res.Grains {
		if g.ID != i+1 {
			t.Errorf("Expected dense grain ID %d, got %d", i+1, g.ID)
		}
		if g.Roundness < 0.8 {
			t.Errorf("Expected disk roundness over 0.8, got %f", g.Roundness)
		}
		if g.DiamMm < 3 || g.DiamMm > 5 {
			t.Errorf("Expected diameter near 4mm for a radius 20 disk at 10px/mm, got %f", g.DiamMm)
		}
	}

	a, b := res.Grains[0], res.Grains[1]
	if a.X+a.W > b.X && b.X+b.W > a.X && a.Y+a.H > b.Y && b.Y+b.H > a.Y {
		t.Errorf("Expected disjoint bounding boxes, got %+v and %+v", a, b)
	}

	if res.Curve == nil {
		t.Fatalf("Expected a gradation curve for a calibrated run")
	}
	if len(res.Curve.Passing) != len(gradation.Sieves) {
		t.Errorf("Curve not aligned to the sieve series")
	}
	// 4mm grains all pass the 4.75mm sieve and none the 2.36mm one
	for i, s := range gradation.Sieves {
		switch s.SizeMm {
		case 4.75:
			if res.Curve.Passing[i] != 100 {
				t.Errorf("Expected 100%% passing the %s sieve, got %f", s.Label, res.Curve.Passing[i])
			}
		case 2.36:
			if res.Curve.Passing[i] != 0 {
				t.Errorf("Expected 0%% passing the %s sieve, got %f", s.Label, res.Curve.Passing[i])
			}
		}
	}
}

func TestRunUncalibrated(t *testing.T) {
	m := image.NewGray(image.Rect(0, 0, 200, 200))
	addDisk(m, 100, 100, 15, mask.On)
	img := image.NewGray(image.Rect(0, 0, 200, 200))

	res, err := Run(img, fixedProducer{mask: m, conf: -1}, testOptions())
	if err != nil {
		t.Fatalf("Error running pipeline: %v", err)
	}
	if len(res.Grains) != 1 {
		t.Fatalf("Expected 1 grain, got %d", len(res.Grains))
	}
	if res.Curve != nil {
		t.Errorf("Expected no gradation curve for an uncalibrated run")
	}
	if res.Grains[0].DiamMm != 0 || res.Grains[0].AreaMm2 != 0 {
		t.Errorf("Expected millimetre fields to stay zero when uncalibrated")
	}
}

func TestRunFillsHoles(t *testing.T) {
	// A grain with a pitted interior must be measured as one solid
	// component, not a ring plus speckle.
	m := image.NewGray(image.Rect(0, 0, 200, 200))
	addDisk(m, 100, 100, 30, mask.On)
	addDisk(m, 100, 100, 8, mask.Off)

	res, err := Run(image.NewGray(image.Rect(0, 0, 200, 200)), fixedProducer{mask: m, conf: -1}, testOptions())
	if err != nil {
		t.Fatalf("Error running pipeline: %v", err)
	}
	if len(res.Grains) != 1 {
		t.Fatalf("Expected 1 grain, got %d", len(res.Grains))
	}
	solid := 0
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			dx, dy := x-100, y-100
			if dx*dx+dy*dy <= 28*28 {
				solid++
			}
		}
	}
	if res.Grains[0].AreaPx < solid {
		t.Errorf("Expected hole filled area of at least %d, got %d", solid, res.Grains[0].AreaPx)
	}
}

func TestRunFiltersSpeckle(t *testing.T) {
	m := image.NewGray(image.Rect(0, 0, 200, 200))
	addDisk(m, 60, 60, 15, mask.On)
	// speckle well below the area floor
	addDisk(m, 150, 150, 3, mask.On)

	res, err := Run(image.NewGray(image.Rect(0, 0, 200, 200)), fixedProducer{mask: m, conf: -1}, testOptions())
	if err != nil {
		t.Fatalf("Error running pipeline: %v", err)
	}
	if len(res.Grains) != 1 {
		t.Fatalf("Expected speckle to be filtered leaving 1 grain, got %d", len(res.Grains))
	}
}

func TestRunOtsuFallback(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 300, 300))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	dark := image.NewGray(image.Rect(0, 0, 300, 300))
	addDisk(dark, 75, 75, 10, mask.On)
	addDisk(dark, 220, 220, 10, mask.On)
	for i, v := range dark.Pix {
		if v == mask.On {
			img.Pix[i] = 40
		}
	}

	res, err := Run(img, &mask.Otsu{}, testOptions())
	if err != nil {
		t.Fatalf("Error running pipeline: %v", err)
	}
	if res.Conf != -1 {
		t.Errorf("Expected confidence -1 from the fallback, got %f", res.Conf)
	}
	if len(res.Grains) != 2 {
		t.Fatalf("Expected 2 grains, got %d", len(res.Grains))
	}
	for _, g := range res.Grains {
		if g.Roundness < 0.8 {
			t.Errorf("Expected disk roundness over 0.8, got %f", g.Roundness)
		}
	}
}

func TestRunBadMask(t *testing.T) {
	m := image.NewGray(image.Rect(0, 0, 50, 50))
	m.Pix[30] = 77
	_, err := Run(image.NewGray(image.Rect(0, 0, 50, 50)), fixedProducer{mask: m}, testOptions())
	if err == nil {
		t.Fatalf("Expected error for a non binary mask, got nil")
	}
}

func TestRunMismatchedMask(t *testing.T) {
	// a producer returning a mask at a different scale to the
	// photograph breaks every pixel measurement, so it is rejected
	m := image.NewGray(image.Rect(0, 0, 25, 50))
	_, err := Run(image.NewGray(image.Rect(0, 0, 50, 50)), fixedProducer{mask: m}, testOptions())
	if err == nil {
		t.Fatalf("Expected error for a mask not matching the photo dimensions, got nil")
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.Connectivity != measure.Conn8 {
		t.Errorf("Expected Conn8 by default, got %v", opts.Connectivity)
	}
	if opts.MinAreaFrac != measure.DefaultMinAreaFrac || opts.MinAreaFloor != measure.DefaultMinAreaFloor {
		t.Errorf("Wrong default area filter: %f, %d", opts.MinAreaFrac, opts.MinAreaFloor)
	}
	if opts.MergeTouching {
		t.Errorf("Expected merging to be off by default")
	}
	if opts.PxPerMm != 0 {
		t.Errorf("Expected uncalibrated by default, got %f", opts.PxPerMm)
	}
}
