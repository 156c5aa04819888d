// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package mask

// integral is a summed-area table over a flat grey image, used to
// take the mean of arbitrary windows in constant time. This is how
// the background estimate stays a single O(W*H) pass regardless of
// the blur radius.
type integral struct {
	w, h int
	// sum has a zeroed extra row and column so window lookups need
	// no special casing at the top and left edges; entry
	// (y+1)*(w+1)+(x+1) holds the sum of all values at or above and
	// left of (x, y).
	sum []uint64
}

func newIntegral(lum []uint8, w, h int) *integral {
	ii := &integral{w: w, h: h, sum: make([]uint64, (w+1)*(h+1))}
	stride := w + 1
	for y := 0; y < h; y++ {
		var rowsum uint64
		for x := 0; x < w; x++ {
			rowsum += uint64(lum[y*w+x])
			ii.sum[(y+1)*stride+(x+1)] = rowsum + ii.sum[y*stride+(x+1)]
		}
	}
	return ii
}

// mean returns the truncated integer mean of the window of the given
// radius centred on (x, y), clipped to the image bounds.
func (ii *integral) mean(x, y, radius int) int {
	x0, y0 := x-radius, y-radius
	x1, y1 := x+radius, y+radius
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 >= ii.w {
		x1 = ii.w - 1
	}
	if y1 >= ii.h {
		y1 = ii.h - 1
	}

	stride := ii.w + 1
	a := ii.sum[y0*stride+x0]
	b := ii.sum[y0*stride+x1+1]
	c := ii.sum[(y1+1)*stride+x0]
	d := ii.sum[(y1+1)*stride+x1+1]
	total := d + a - b - c
	count := uint64((x1 - x0 + 1) * (y1 - y0 + 1))
	return int(total / count)
}
