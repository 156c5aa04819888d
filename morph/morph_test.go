// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package morph

import (
	"bytes"
	"image"
	"testing"

	"grainpipeline/mask"
)

// maskFromRows builds a mask from a slice of strings, where '#' is
// foreground and anything else background.
func maskFromRows(rows []string) *image.Gray {
	h := len(rows)
	w := len(rows[0])
	m := image.NewGray(image.Rect(0, 0, w, h))
	for y, r := range rows {
		for x := 0; x < w; x++ {
			if r[x] == '#' {
				m.Pix[y*m.Stride+x] = mask.On
			}
		}
	}
	return m
}

func sameMask(a, b *image.Gray) bool {
	return a.Bounds() == b.Bounds() && bytes.Equal(a.Pix, b.Pix)
}

func TestValidateRejected(t *testing.T) {
	m := image.NewGray(image.Rect(0, 0, 4, 4))
	m.Pix[5] = 17
	_, err := Dilate(m, 1)
	if err == nil {
		t.Fatalf("Expected error dilating a non binary mask, got nil")
	}
	_, err = Clean(m, 1, 1)
	if err == nil {
		t.Fatalf("Expected error cleaning a non binary mask, got nil")
	}
	_, err = FillHoles(m)
	if err == nil {
		t.Fatalf("Expected error filling a non binary mask, got nil")
	}
}

func TestDilateErode(t *testing.T) {
	m := maskFromRows([]string{
		".....",
		".....",
		"..#..",
		".....",
		".....",
	})

	d, err := Dilate(m, 1)
	if err != nil {
		t.Fatalf("Error dilating: %v", err)
	}
	want := maskFromRows([]string{
		".....",
		".###.",
		".###.",
		".###.",
		".....",
	})
	if !sameMask(d, want) {
		t.Errorf("Dilation of a single pixel did not give a 3x3 block")
	}

	e, err := Erode(d, 1)
	if err != nil {
		t.Fatalf("Error eroding: %v", err)
	}
	if !sameMask(e, m) {
		t.Errorf("Eroding the dilation did not restore the single pixel")
	}
}

func TestCloseBridgesGap(t *testing.T) {
	m := maskFromRows([]string{
		"........",
		".##..##.",
		".##..##.",
		"........",
	})
	c, err := Close(m, 1)
	if err != nil {
		t.Fatalf("Error closing: %v", err)
	}
	// The two pixel gap between the blocks is within reach of a
	// radius 1 closing, so the row between them must now be set.
	if c.Pix[1*c.Stride+3] != mask.On || c.Pix[1*c.Stride+4] != mask.On {
		t.Errorf("Closing did not bridge a two pixel gap")
	}
}

func TestCloseIdempotent(t *testing.T) {
	m := maskFromRows([]string{
		"..............",
		"..............",
		"..............",
		"...###..##....",
		"...###..##....",
		"...#######....",
		"..............",
		"......##......",
		"......##......",
		"..............",
		"..............",
		"..............",
	})
	once, err := Close(m, 1)
	if err != nil {
		t.Fatalf("Error closing: %v", err)
	}
	twice, err := Close(once, 1)
	if err != nil {
		t.Fatalf("Error closing a second time: %v", err)
	}
	if !sameMask(once, twice) {
		t.Errorf("Closing twice with the same radius changed the mask")
	}
}

func TestCleanRemovesSpeckle(t *testing.T) {
	// An isolated pixel survives the closing but not the wider
	// opening of the default radii, while a solid block is kept.
	m := maskFromRows([]string{
		"................",
		"................",
		"................",
		"...#............",
		"................",
		"................",
		"........########",
		"........########",
		"........########",
		"........########",
		"........########",
		"........########",
		"........########",
		"........########",
		"................",
		"................",
	})
	c, err := Clean(m, 1, 2)
	if err != nil {
		t.Fatalf("Error cleaning: %v", err)
	}
	if c.Pix[3*c.Stride+3] != mask.Off {
		t.Errorf("Cleaning did not remove an isolated pixel")
	}
	if c.Pix[9*c.Stride+11] != mask.On {
		t.Errorf("Cleaning removed the interior of a solid block")
	}
}

func TestFillHoles(t *testing.T) {
	m := maskFromRows([]string{
		".......",
		".#####.",
		".#...#.",
		".#.#.#.",
		".#...#.",
		".#####.",
		".......",
	})
	f, err := FillHoles(m)
	if err != nil {
		t.Fatalf("Error filling holes: %v", err)
	}
	want := maskFromRows([]string{
		".......",
		".#####.",
		".#####.",
		".#####.",
		".#####.",
		".#####.",
		".......",
	})
	if !sameMask(f, want) {
		t.Errorf("Filling did not close the enclosed hole")
	}
}

func TestFillHolesKeepsOpenBays(t *testing.T) {
	// A concavity open to the border is outside background and must
	// survive filling untouched.
	m := maskFromRows([]string{
		".#####.",
		".#...#.",
		".#...#.",
		".#...#.",
		".......",
	})
	f, err := FillHoles(m)
	if err != nil {
		t.Fatalf("Error filling holes: %v", err)
	}
	if !sameMask(f, m) {
		t.Errorf("Filling changed a mask whose background all reaches the border")
	}
}
