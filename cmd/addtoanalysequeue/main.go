// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// addtoanalysequeue adds a sample to the analyse queue directly.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"grainpipeline"
)

const usage = `Usage: addtoanalysequeue [-v] [-px-per-mm px] samplename

addtoanalysequeue adds a sample to the analyse queue directly.

This is useful to rerun the analysis of a sample whose photos
have already been uploaded, for example after removing its
results with rmsample, or to rerun with a different calibration.
`

// null writer to enable non-verbose logging to be discarded
type NullWriter bool

func (w NullWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}

type QueuePipeliner interface {
	Init() error
	AddToQueue(url string, msg string) error
	AnalyseQueueId() string
}

func main() {
	verbose := flag.Bool("v", false, "verbose")
	pxPerMm := flag.Float64("px-per-mm", 0, "pixels per millimetre of the sample photos (overrides any px_per_mm in the sample metadata)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return
	}

	var verboselog *log.Logger
	if *verbose {
		verboselog = log.New(os.Stdout, "", 0)
	} else {
		var n NullWriter
		verboselog = log.New(n, "", 0)
	}

	var conn QueuePipeliner
	conn = &grainpipeline.AwsConn{Logger: verboselog}

	err := conn.Init()
	if err != nil {
		log.Fatalln("Error setting up cloud connection:", err)
	}

	msg := flag.Arg(0)
	if *pxPerMm > 0 {
		msg = fmt.Sprintf("%s %g", msg, *pxPerMm)
	}

	err = conn.AddToQueue(conn.AnalyseQueueId(), msg)
	if err != nil {
		log.Fatalln("Error adding message to analyse queue:", err)
	}
	fmt.Println("Added message to the analyse queue.")
}
