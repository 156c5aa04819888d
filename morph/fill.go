// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package morph

import (
	"image"

	"grainpipeline/mask"
)

// FillHoles converts every background region not connected to the
// image border into foreground. The outside background is found with
// a single 4-connected flood fill seeded from all border background
// pixels; whatever background the fill never reaches is enclosed by
// grain material and gets filled in. Must run after Clean and before
// labelling, otherwise holes split grain interiors into spurious
// components or leave ring shaped perimeter artefacts.
func FillHoles(m *image.Gray) (*image.Gray, error) {
	err := mask.Validate(m)
	if err != nil {
		return nil, err
	}

	b := m.Bounds()
	w, h := b.Dx(), b.Dy()
	outside := make([]bool, w*h)
	queue := make([]int, 0, w+h)

	seed := func(x, y int) {
		i := y*w + x
		if !outside[i] && m.Pix[y*m.Stride+x] == mask.Off {
			outside[i] = true
			queue = append(queue, i)
		}
	}
	for x := 0; x < w; x++ {
		seed(x, 0)
		seed(x, h-1)
	}
	for y := 0; y < h; y++ {
		seed(0, y)
		seed(w-1, y)
	}

	for qi := 0; qi < len(queue); qi++ {
		i := queue[qi]
		x, y := i%w, i/w
		if x > 0 {
			seed(x-1, y)
		}
		if x < w-1 {
			seed(x+1, y)
		}
		if y > 0 {
			seed(x, y-1)
		}
		if y < h-1 {
			seed(x, y+1)
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if m.Pix[y*m.Stride+x] == mask.On || !outside[y*w+x] {
				out.Pix[y*out.Stride+x] = mask.On
			}
		}
	}
	return out, nil
}
