// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// sampletopipeline uploads a rock sample to cloud storage and adds
// the name to the analyse queue ready to be processed by the
// grainpipeline tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"grainpipeline"

	"grainpipeline/internal/pipeline"
)

const usage = `Usage: sampletopipeline [-c conn] [-px-per-mm f] [-location s] [-contact s] [-rock s] [-v] sampledir [samplename]

Uploads the photographs of the sample in sampledir to the S3
'inprogress' bucket and adds the sample to the analyse SQS queue.

The calibration factor -px-per-mm is determined externally by
measuring a reference object of known size in the photographs. If it
is omitted the sample will still be measured, but in pixel units
only, with no gradation curve.

The location, contact and rock type are embedded unchanged in the
sample's report.

If samplename is omitted the last part of the sampledir is used.
`

// null writer to enable non-verbose logging to be discarded
type NullWriter bool

func (w NullWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}

var verboselog *log.Logger

func main() {
	verbose := flag.Bool("v", false, "Verbose")
	conntype := flag.String("c", "aws", "connection type ('aws' or 'local')")
	pxPerMm := flag.Float64("px-per-mm", 0, "calibration factor: pixels per millimetre in the photographs")
	location := flag.String("location", "", "where the sample was taken")
	contact := flag.String("contact", "", "point of contact for the sample")
	rock := flag.String("rock", "", "rock type of the sample")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 || flag.NArg() > 2 {
		flag.Usage()
		return
	}

	sampledir := flag.Arg(0)
	var samplename string
	if flag.NArg() > 1 {
		samplename = flag.Arg(1)
	} else {
		samplename = filepath.Base(sampledir)
	}

	if *verbose {
		verboselog = log.New(os.Stdout, "", log.LstdFlags)
	} else {
		var n NullWriter
		verboselog = log.New(n, "", log.LstdFlags)
	}

	var conn pipeline.Pipeliner
	switch *conntype {
	case "aws":
		conn = &grainpipeline.AwsConn{Logger: verboselog}
	case "local":
		conn = &grainpipeline.LocalConn{Logger: verboselog}
	default:
		log.Fatalln("Unknown connection type")
	}
	err := conn.Init()
	if err != nil {
		log.Fatalln("Failed to set up cloud connection:", err)
	}

	ctx := context.Background()

	verboselog.Println("Checking that all images are valid in", sampledir)
	err = pipeline.CheckImages(ctx, sampledir)
	if err != nil {
		log.Fatalln(err)
	}

	verboselog.Println("Checking that a sample hasn't already been uploaded with that name")
	list, err := conn.ListObjects(conn.WIPStorageId(), samplename)
	if err != nil {
		log.Fatalln(err)
	}
	if len(list) > 0 {
		log.Fatalf("Error: There is already a sample in S3 named %s", samplename)
	}

	verboselog.Println("Uploading images from", sampledir)
	err = pipeline.UploadImages(ctx, sampledir, samplename, conn)
	if err != nil {
		log.Fatalln(err)
	}

	meta := grainpipeline.ReportMeta{
		Location: *location,
		Contact:  *contact,
		RockType: *rock,
	}
	metafn := filepath.Join(os.TempDir(), "meta.txt")
	err = pipeline.WriteMeta(metafn, meta, *pxPerMm)
	if err != nil {
		log.Fatalln(err)
	}
	defer os.Remove(metafn)
	err = conn.Upload(conn.WIPStorageId(), samplename+"/meta.txt", metafn)
	if err != nil {
		log.Fatalln("Error uploading metadata:", err)
	}

	msg := samplename
	if *pxPerMm > 0 {
		msg = fmt.Sprintf("%s %g", samplename, *pxPerMm)
	}
	err = conn.AddToQueue(conn.AnalyseQueueId(), msg)
	if err != nil {
		log.Fatalln("Error adding sample to queue:", err)
	}

	fmt.Println("Uploaded sample to the analyse queue")
}
