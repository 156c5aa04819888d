// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package grainpipeline

import (
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"grainpipeline/gradation"
)

const yticknum = 20

// sievex maps a sieve size in mm onto the x axis. Gradation sheets
// put grain size on a logarithmic axis with the coarse end on the
// left, so the sign is flipped to get that ordering out of an
// ascending axis.
func sievex(sizeMm float64) float64 {
	return -math.Log10(sizeMm)
}

// createLine creates a vertical dashed line at a particular x value
// for a graph
func createLine(x float64, c drawing.Color) chart.ContinuousSeries {
	return chart.ContinuousSeries{
		XValues: []float64{x, x},
		YValues: []float64{0, 100},
		Style: chart.Style{
			StrokeColor:     c,
			StrokeDashArray: []float64{5.0, 5.0},
		},
	}
}

// Graph creates a gradation curve graph for a sample, percent
// passing against sieve size.
func Graph(c gradation.Curve, samplename string, w io.Writer) error {
	return GraphOpts(c, samplename, "Sieve size", true, w)
}

// GraphOpts creates a gradation curve graph. If guidelines is set,
// dashed lines are drawn at the D10, D30 and D60 diameters, which
// are also annotated with their values.
func GraphOpts(c gradation.Curve, samplename string, xaxis string, guidelines bool, w io.Writer) error {
	var xvalues, yvalues []float64
	var ticks []chart.Tick
	var yticks []chart.Tick

	for i, s := range gradation.Sieves {
		x := sievex(s.SizeMm)
		xvalues = append(xvalues, x)
		yvalues = append(yvalues, c.Passing[i])
		ticks = append(ticks, chart.Tick{Value: x, Label: s.Label})
	}
	for i := 0; i <= yticknum; i++ {
		n := float64(i*100) / yticknum
		yticks = append(yticks, chart.Tick{Value: n, Label: fmt.Sprintf("%.0f", n)})
	}

	mainSeries := chart.ContinuousSeries{
		Style: chart.Style{
			StrokeColor: chart.ColorBlue,
			FillColor:   chart.ColorAlternateBlue,
		},
		XValues: xvalues,
		YValues: yvalues,
	}

	graph := chart.Chart{
		Title:  samplename,
		Width:  1920,
		Height: 1080,
		XAxis: chart.XAxis{
			Name: xaxis,
			Range: &chart.ContinuousRange{
				Min: xvalues[0],
				Max: xvalues[len(xvalues)-1],
			},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name: "Percent passing",
			Range: &chart.ContinuousRange{
				Min: 0.0,
				Max: 100.0,
			},
			Ticks: yticks,
		},
		Series: []chart.Series{
			mainSeries,
		},
	}

	sum := gradation.Summarise(c)
	if guidelines && sum.D10 > 0 {
		var annotations []chart.Value2
		for _, d := range []struct {
			label string
			mm    float64
		}{
			{"D10", sum.D10},
			{"D30", sum.D30},
			{"D60", sum.D60},
		} {
			x := sievex(d.mm)
			if x < xvalues[0] || x > xvalues[len(xvalues)-1] {
				continue
			}
			graph.Series = append(graph.Series, createLine(x, chart.ColorAlternateGray))
			annotations = append(annotations, chart.Value2{Label: fmt.Sprintf("%s %.3gmm", d.label, d.mm), XValue: x, YValue: 50})
		}
		if len(annotations) > 0 {
			graph.Series = append(graph.Series, chart.AnnotationSeries{
				Annotations: annotations,
			})
		}
	}

	return graph.Render(chart.PNG, w)
}
