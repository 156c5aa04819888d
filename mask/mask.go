// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

/*
Package mask turns a colour photograph of a rock or sediment sample
into a binary foreground mask, with foreground pixels marking grain
material.

Two interchangeable strategies implement the Producer interface. Model
runs an ONNX segmentation network over a fixed-resolution copy of the
photograph. Otsu is a deterministic fallback which needs no model: it
normalises away slow background illumination changes and thresholds
the result with Otsu's method. NewProducer picks the model strategy
when a model file is usable and the fallback otherwise, and any
failure during inference also drops down to the fallback, so callers
always get a mask.
*/
package mask

import (
	"errors"
	"image"
)

// Pixel values used for the two mask states.
const (
	Off uint8 = 0
	On  uint8 = 255
)

// ErrNotBinary is returned by Validate for a mask containing pixel
// values other than Off and On.
var ErrNotBinary = errors.New("mask is not binary")

// Result is a produced mask. Conf is the mean foreground probability
// reported by the model, or -1 when the deterministic fallback ran
// and no such probability exists.
type Result struct {
	Mask *image.Gray
	Conf float64
}

// Producer turns a photograph into a binary foreground mask.
type Producer interface {
	Produce(img image.Image) (Result, error)
}

// NewProducer returns a model-backed Producer if modelpath names a
// loadable ONNX model, and the Otsu fallback otherwise.
func NewProducer(modelpath string) Producer {
	if modelpath != "" {
		p, err := LoadModel(modelpath)
		if err == nil {
			return p
		}
	}
	return &Otsu{}
}

// Validate checks that every pixel of m is either Off or On. Stages
// consuming masks use this to reject malformed input early rather
// than producing nonsense measurements from it.
func Validate(m *image.Gray) error {
	for _, p := range m.Pix {
		if p != Off && p != On {
			return ErrNotBinary
		}
	}
	return nil
}

// Luminance converts an image to 8 bit grey values using the
// Rec. 601 weights 0.299R + 0.587G + 0.114B, truncated to integer.
// The result is a flat row-major slice of b.Dx()*b.Dy() values.
func Luminance(img image.Image) ([]uint8, int, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	lum := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			l := (299*(r>>8) + 587*(g>>8) + 114*(bl>>8)) / 1000
			lum[y*w+x] = uint8(l)
		}
	}
	return lum, w, h
}
