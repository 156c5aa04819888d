// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// Package measure extracts per-grain measurements from a cleaned
// binary mask: connected component labelling, small component
// filtering, and shape statistics.
package measure

import (
	"image"

	"grainpipeline/mask"
)

// Connectivity selects which neighbours the component labelling
// treats as connected.
type Connectivity int

const (
	// Conn4 connects only axis-aligned neighbours.
	Conn4 Connectivity = 4
	// Conn8 also connects diagonal neighbours. This is the default
	// operating mode; grains touching only at a diagonal would
	// otherwise be split into separate components.
	Conn8 Connectivity = 8
)

// Component is one connected foreground region accumulated during
// labelling. Perimeter counts boundary pixels: pixels with at least
// one background axis-neighbour inside the image. Neighbours outside
// the image are not counted, which slightly undercounts the
// perimeter of grains touching the image border; this is a known
// approximation kept for stable roundness values.
type Component struct {
	Label                  int
	Area                   int
	Perimeter              int
	MinX, MinY, MaxX, MaxY int
}

// Label finds connected foreground components with a raster scan.
// Each unvisited foreground pixel seeds a breadth-first traversal
// using an explicit queue; recursion would overflow the stack on
// large grains. Components are returned in discovery order.
func Label(m *image.Gray, conn Connectivity) ([]Component, error) {
	err := mask.Validate(m)
	if err != nil {
		return nil, err
	}

	b := m.Bounds()
	w, h := b.Dx(), b.Dy()
	visited := make([]bool, w*h)
	queue := make([]int32, 0, w*h)
	var comps []Component

	on := func(x, y int) bool {
		return m.Pix[y*m.Stride+x] == mask.On
	}

	for sy := 0; sy < h; sy++ {
		for sx := 0; sx < w; sx++ {
			if !on(sx, sy) || visited[sy*w+sx] {
				continue
			}

			c := Component{
				Label: len(comps) + 1,
				MinX:  sx, MinY: sy, MaxX: sx, MaxY: sy,
			}
			queue = queue[:0]
			queue = append(queue, int32(sy*w+sx))
			visited[sy*w+sx] = true

			for qi := 0; qi < len(queue); qi++ {
				i := int(queue[qi])
				x, y := i%w, i/w

				c.Area++
				if x < c.MinX {
					c.MinX = x
				}
				if x > c.MaxX {
					c.MaxX = x
				}
				if y < c.MinY {
					c.MinY = y
				}
				if y > c.MaxY {
					c.MaxY = y
				}

				boundary := false
				if x > 0 && !on(x-1, y) {
					boundary = true
				}
				if x < w-1 && !on(x+1, y) {
					boundary = true
				}
				if y > 0 && !on(x, y-1) {
					boundary = true
				}
				if y < h-1 && !on(x, y+1) {
					boundary = true
				}
				if boundary {
					c.Perimeter++
				}

				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if dx == 0 && dy == 0 {
							continue
						}
						if conn != Conn8 && dx != 0 && dy != 0 {
							continue
						}
						xx, yy := x+dx, y+dy
						if xx < 0 || xx >= w || yy < 0 || yy >= h {
							continue
						}
						if on(xx, yy) && !visited[yy*w+xx] {
							visited[yy*w+xx] = true
							queue = append(queue, int32(yy*w+xx))
						}
					}
				}
			}

			comps = append(comps, c)
		}
	}

	return comps, nil
}
