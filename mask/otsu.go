// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package mask

import (
	"image"
)

// Tuning constants for the fallback strategy.
const (
	// minBlurRadius is the smallest background window radius; the
	// radius grows with image size as min(W,H)/30.
	minBlurRadius = 15
	// defaultThreshold is used when the histogram has no valid
	// split, for example on a uniform image.
	defaultThreshold = 128
)

// Otsu is the deterministic mask producer. It estimates a slowly
// varying background with a box window mean, subtracts it to flatten
// uneven lighting, and thresholds the normalised values with Otsu's
// method. Grains are expected to be darker than the background they
// sit on, so pixels below the threshold become foreground; the whole
// mask semantics rest on that polarity.
type Otsu struct{}

// Produce generates a mask at the source image's resolution. Conf is
// always -1 as no model probability exists. The returned error is
// always nil; the signature satisfies Producer.
func (o *Otsu) Produce(img image.Image) (Result, error) {
	lum, w, h := Luminance(img)

	radius := min(w, h) / 30
	if radius < minBlurRadius {
		radius = minBlurRadius
	}

	ii := newIntegral(lum, w, h)
	norm := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			bg := ii.mean(x, y, radius)
			v := int(lum[y*w+x]) - bg + 128
			if v < 0 {
				v = 0
			}
			if v > 255 {
				v = 255
			}
			norm[y*w+x] = uint8(v)
		}
	}

	var hist [256]int
	for _, v := range norm {
		hist[v]++
	}
	t := otsuThreshold(hist, w*h)

	m := image.NewGray(image.Rect(0, 0, w, h))
	for i, v := range norm {
		if int(v) < t {
			m.Pix[i] = On
		} else {
			m.Pix[i] = Off
		}
	}

	return Result{Mask: m, Conf: -1}, nil
}

// otsuThreshold finds the grey level maximising the between-class
// variance wB*wF*(mB-mF)^2 over the histogram. The variance is flat
// across empty bins between well-separated modes, so ties keep the
// highest level; the threshold then sits above the dark mode rather
// than on it, and a uniform dark region classifies as foreground. A
// histogram which never yields two non-empty classes gets
// defaultThreshold.
func otsuThreshold(hist [256]int, total int) int {
	var sum float64
	for i, c := range hist {
		sum += float64(i) * float64(c)
	}

	best := -1.0
	thresh := defaultThreshold
	var wB, sumB float64
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		v := wB * wF * (mB - mF) * (mB - mF)
		if v >= best {
			best = v
			thresh = t
		}
	}
	if best < 0 {
		return defaultThreshold
	}
	return thresh
}
