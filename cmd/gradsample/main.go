// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// gradsample measures the grains in a single photograph, with no
// job queue involved, writing the same files the pipeline would
// produce next to the input.
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"strings"

	"grainpipeline"
	"grainpipeline/analyse"
	"grainpipeline/gradation"
	"grainpipeline/mask"
)

const usage = `Usage: gradsample [-px-per-mm f] [-m model] [-merge] [-location s] [-contact s] [-rock s] photo

Measures the grains of crushed rock in a photograph, writing
photo.grains.csv with one row per grain and, if a calibration factor
was given, photo.gradation.csv, photo.graph.png and photo.report.pdf
with the sieve-analysis gradation curve.
`

func main() {
	pxPerMm := flag.Float64("px-per-mm", 0, "calibration factor: pixels per millimetre in the photograph")
	modelpath := flag.String("m", "", "path to ONNX segmentation model; without it adaptive thresholding is always used")
	mergetouching := flag.Bool("merge", false, "merge touching grains into one")
	location := flag.String("location", "", "where the sample was taken")
	contact := flag.String("contact", "", "point of contact for the sample")
	rock := flag.String("rock", "", "rock type of the sample")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return
	}
	photo := flag.Arg(0)
	base := strings.TrimSuffix(photo, ".jpg")
	base = strings.TrimSuffix(base, ".png")

	f, err := os.Open(photo)
	if err != nil {
		log.Fatalf("Could not open photo %s: %v\n", photo, err)
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		log.Fatalf("Could not decode photo %s: %v\n", photo, err)
	}

	opts := analyse.DefaultOptions()
	opts.MergeTouching = *mergetouching
	opts.PxPerMm = *pxPerMm

	res, err := analyse.Run(img, mask.NewProducer(*modelpath), opts)
	if err != nil {
		log.Fatalf("Measurement failed: %v\n", err)
	}

	if res.Conf >= 0 {
		fmt.Printf("Found %d grains (model confidence %.2f)\n", len(res.Grains), res.Conf)
	} else {
		fmt.Printf("Found %d grains (threshold fallback)\n", len(res.Grains))
	}

	calibrated := *pxPerMm > 0
	fn := base + ".grains.csv"
	f, err = os.Create(fn)
	if err != nil {
		log.Fatalf("Could not create %s: %v\n", fn, err)
	}
	err = grainpipeline.WriteGrainCSV(f, res.Grains, calibrated)
	f.Close()
	if err != nil {
		log.Fatalf("Could not write %s: %v\n", fn, err)
	}
	fmt.Println("Wrote", fn)

	if !calibrated {
		fmt.Println("No calibration given, skipping gradation curve")
		return
	}

	fn = base + ".gradation.csv"
	f, err = os.Create(fn)
	if err != nil {
		log.Fatalf("Could not create %s: %v\n", fn, err)
	}
	err = grainpipeline.WriteGradationCSV(f, *res.Curve)
	f.Close()
	if err != nil {
		log.Fatalf("Could not write %s: %v\n", fn, err)
	}
	fmt.Println("Wrote", fn)

	graphfn := base + ".graph.png"
	f, err = os.Create(graphfn)
	if err != nil {
		log.Fatalf("Could not create %s: %v\n", graphfn, err)
	}
	err = grainpipeline.Graph(*res.Curve, base, f)
	f.Close()
	if err != nil {
		log.Fatalf("Could not render graph: %v\n", err)
	}
	fmt.Println("Wrote", graphfn)

	report := new(grainpipeline.Report)
	err = report.Setup()
	if err != nil {
		log.Fatalf("Could not set up report: %v\n", err)
	}
	report.AddSummary(base, grainpipeline.ReportMeta{
		Location: *location,
		Contact:  *contact,
		RockType: *rock,
	}, gradation.Summarise(*res.Curve), calibrated)
	report.AddCurve(*res.Curve)
	err = report.AddGraph(graphfn)
	if err != nil {
		log.Fatalf("Could not add graph to report: %v\n", err)
	}
	fn = base + ".report.pdf"
	err = report.Save(fn)
	if err != nil {
		log.Fatalf("Could not save report: %v\n", err)
	}
	fmt.Println("Wrote", fn)
}
