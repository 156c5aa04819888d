// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package measure

import (
	"testing"
)

func TestMinArea(t *testing.T) {
	cases := []struct {
		total int
		want  int
	}{
		{12000000, 18000},
		{1000000, 1500},
		{100000, 1500},
		{0, 1500},
	}
	for _, c := range cases {
		got := MinArea(c.total, DefaultMinAreaFrac, DefaultMinAreaFloor)
		if got != c.want {
			t.Errorf("MinArea(%d) = %d, expected %d", c.total, got, c.want)
		}
	}
}

func TestFilter(t *testing.T) {
	comps := []Component{
		{Label: 1, Area: 1499},
		{Label: 2, Area: 1500},
		{Label: 3, Area: 1501},
	}
	kept := Filter(comps, 1500)
	if len(kept) != 2 {
		t.Fatalf("Expected 2 components kept, got %d", len(kept))
	}
	// A component exactly at the threshold survives.
	if kept[0].Label != 2 || kept[1].Label != 3 {
		t.Errorf("Wrong components kept: %d, %d", kept[0].Label, kept[1].Label)
	}
}

func TestMergeTouching(t *testing.T) {
	comps := []Component{
		{Label: 1, Area: 30, Perimeter: 20, MinX: 0, MinY: 0, MaxX: 5, MaxY: 5},
		{Label: 2, Area: 20, Perimeter: 16, MinX: 8, MinY: 0, MaxX: 12, MaxY: 5},
		{Label: 3, Area: 40, Perimeter: 24, MinX: 30, MinY: 30, MaxX: 40, MaxY: 40},
	}

	merged := MergeTouching(comps, 0)
	if len(merged) != 3 {
		t.Errorf("Expected no merging with zero padding, got %d components", len(merged))
	}

	merged = MergeTouching(comps, 2)
	if len(merged) != 2 {
		t.Fatalf("Expected 2 components after merging, got %d", len(merged))
	}
	m := merged[0]
	if m.Area != 50 {
		t.Errorf("Expected merged area 50, got %d", m.Area)
	}
	if m.MinX != 0 || m.MaxX != 12 || m.MinY != 0 || m.MaxY != 5 {
		t.Errorf("Wrong merged bounding box: %d,%d - %d,%d", m.MinX, m.MinY, m.MaxX, m.MaxY)
	}
	if m.Perimeter != 20 {
		t.Errorf("Expected larger perimeter 20 kept, got %d", m.Perimeter)
	}
}
