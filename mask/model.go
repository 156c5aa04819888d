// Copyright 2026 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package mask

import (
	"fmt"
	"image"
	"os"

	"github.com/owulveryck/onnx-go"
	"github.com/owulveryck/onnx-go/backend/x/gorgonnx"
	xdraw "golang.org/x/image/draw"
	"gorgonia.org/tensor"
)

// ModelResolution is the square resolution the network is fed at,
// whatever the photograph's own size.
const ModelResolution = 512

// probThreshold converts the network's per-pixel foreground
// probability into a mask decision.
const probThreshold = 0.5

// Model runs an ONNX segmentation network to produce the mask. The
// network takes a 1x3xNxN float32 tensor with channels scaled to
// [0,1] and returns a flattened probability map of C*N*N values with
// C being 1 or 2; with two channels the second one is foreground.
//
// Inference failures of any kind are recovered by running the Otsu
// fallback instead, so Produce never fails just because the model
// does.
type Model struct {
	backend  *gorgonnx.Graph
	model    *onnx.Model
	fallback Otsu
}

// LoadModel reads and decodes an ONNX model from path.
func LoadModel(path string) (*Model, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Failed to read model %s: %v", path, err)
	}
	return NewModel(b)
}

// NewModel decodes an ONNX model from its serialised bytes.
func NewModel(b []byte) (*Model, error) {
	backend := gorgonnx.NewGraph()
	model := onnx.NewModel(backend)
	err := model.UnmarshalBinary(b)
	if err != nil {
		return nil, fmt.Errorf("Failed to decode onnx model: %v", err)
	}
	return &Model{backend: backend, model: model}, nil
}

// Produce segments the photograph with the network, falling back to
// the deterministic strategy if inference fails for any reason.
func (p *Model) Produce(img image.Image) (Result, error) {
	r, err := p.infer(img)
	if err != nil {
		return p.fallback.Produce(img)
	}
	return r, nil
}

func (p *Model) infer(img image.Image) (Result, error) {
	const n = ModelResolution
	small := image.NewRGBA(image.Rect(0, 0, n, n))
	xdraw.ApproxBiLinear.Scale(small, small.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	// NCHW layout, channels scaled to [0,1]
	data := make([]float32, 3*n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			i := small.PixOffset(x, y)
			data[0*n*n+y*n+x] = float32(small.Pix[i]) / 255
			data[1*n*n+y*n+x] = float32(small.Pix[i+1]) / 255
			data[2*n*n+y*n+x] = float32(small.Pix[i+2]) / 255
		}
	}
	t := tensor.New(tensor.WithShape(1, 3, n, n), tensor.WithBacking(data))
	err := p.model.SetInput(0, t)
	if err != nil {
		return Result{}, fmt.Errorf("Failed to set model input: %v", err)
	}

	err = p.backend.Run()
	if err != nil {
		return Result{}, fmt.Errorf("Inference failed: %v", err)
	}

	outs, err := p.model.GetOutputTensors()
	if err != nil || len(outs) == 0 {
		return Result{}, fmt.Errorf("Failed to get model output: %v", err)
	}
	probs, ok := outs[0].Data().([]float32)
	if !ok {
		return Result{}, fmt.Errorf("Model output is not float32")
	}

	m, conf, err := maskFromProbs(probs, n, n)
	if err != nil {
		return Result{}, err
	}

	// the mask was produced at the model resolution; bring it back
	// up to the photograph's own size for the measurement stages
	b := img.Bounds()
	full := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.NearestNeighbor.Scale(full, full.Bounds(), m, m.Bounds(), xdraw.Src, nil)

	return Result{Mask: full, Conf: conf}, nil
}

// maskFromProbs thresholds a flattened probability map of 1 or 2
// channels into a binary mask, returning also the mean foreground
// probability. A map of any other length is malformed.
func maskFromProbs(probs []float32, w, h int) (*image.Gray, float64, error) {
	px := w * h
	var fg []float32
	switch len(probs) {
	case px:
		fg = probs
	case 2 * px:
		// second channel is foreground
		fg = probs[px:]
	default:
		return nil, 0, fmt.Errorf("Bad probability map length %d for %dx%d", len(probs), w, h)
	}

	m := image.NewGray(image.Rect(0, 0, w, h))
	var sum float64
	for i, p := range fg {
		sum += float64(p)
		if p > probThreshold {
			m.Pix[i] = On
		}
	}
	return m, sum / float64(px), nil
}
