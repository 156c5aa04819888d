// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// grainpipeline watches the analyse queue for sample names. When one
// is found the sample's photographs are downloaded and analysed, and
// the grain measurements, gradation curve, graph and report are
// uploaded for the sample.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"grainpipeline"
	"grainpipeline/mask"

	"grainpipeline/internal/pipeline"
)

const usage = `Usage: grainpipeline [-v] [-c conn] [-m model] [-shutdown]

Watches the analyse queue for sample names. When one is found this
general process is followed:

- The sample name is hidden from the queue, and a 'heartbeat' is
  started which keeps it hidden (this will time out after 2 minutes
  if the program is terminated)
- The photographs from samplename/ are downloaded
- Each photograph is segmented into grains and measured
- grains.csv, gradation.csv, graph.png and report.pdf are uploaded
  to samplename/
- The heartbeat is stopped
- The sample name is removed from the queue

The calibration factor is taken from the queue message, falling back
to the px_per_mm entry of the sample's meta.txt. Without either, the
measurements stay in pixel units and no gradation curve is made.
`

const PauseBetweenChecks = 3 * time.Minute
const TimeBeforeShutdown = 5 * time.Minute

// null writer to enable non-verbose logging to be discarded
type NullWriter bool

func (w NullWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		<-t.C
	}
}

func restartTimer(t *time.Timer) {
	t.Reset(TimeBeforeShutdown)
}

// samplePx finds the calibration factor for a sample, preferring the
// queue message and falling back to the sample's metadata.
func samplePx(conn pipeline.Pipeliner, samplename string, msgPx float64) float64 {
	if msgPx > 0 {
		return msgPx
	}
	fn := filepath.Join(os.TempDir(), "meta.txt")
	err := conn.Download(conn.WIPStorageId(), samplename+"/meta.txt", fn)
	if err != nil {
		return 0
	}
	defer os.Remove(fn)
	_, px, err := pipeline.ReadMeta(fn)
	if err != nil {
		return 0
	}
	return px
}

func main() {
	verbose := flag.Bool("v", false, "verbose")
	conntype := flag.String("c", "aws", "connection type ('aws' or 'local')")
	modelpath := flag.String("m", "", "path to ONNX segmentation model; without it adaptive thresholding is always used")
	autoshutdown := flag.Bool("shutdown", false, "shut down the host if no work has been available for 5 minutes")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	var verboselog *log.Logger
	if *verbose {
		verboselog = log.New(os.Stdout, "", 0)
	} else {
		var n NullWriter
		verboselog = log.New(n, "", 0)
	}

	// photographs are named like sitephoto_0003.jpg on upload, which
	// conveniently never matches the result files we upload ourselves
	photoPattern := regexp.MustCompile(`(?i)_[0-9]{4}\.(jpg|png)$`)

	var conn pipeline.Pipeliner
	switch *conntype {
	case "aws":
		conn = &grainpipeline.AwsConn{Logger: verboselog}
	case "local":
		conn = &grainpipeline.LocalConn{Logger: verboselog}
	default:
		log.Fatalln("Unknown connection type")
	}

	verboselog.Println("Setting up connection")
	err := conn.Init()
	if err != nil {
		log.Fatalln("Error setting up connection:", err)
	}
	verboselog.Println("Finished setting up connection")

	producer := mask.NewProducer(*modelpath)

	starttime := time.Now().Unix()
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	ctx := context.Background()

	checkAnalyseQueue := time.After(0)
	shutdownIfQuiet := time.NewTimer(TimeBeforeShutdown)

	for {
		select {
		case <-checkAnalyseQueue:
			msg, err := conn.CheckQueue(conn.AnalyseQueueId(), pipeline.HeartbeatSeconds*2)
			checkAnalyseQueue = time.After(PauseBetweenChecks)
			if err != nil {
				log.Println("Error checking analyse queue", err)
				continue
			}
			if msg.Handle == "" {
				verboselog.Println("No message received on analyse queue, sleeping")
				continue
			}
			stopTimer(shutdownIfQuiet)
			verboselog.Println("Message received on analyse queue, processing", msg.Body)
			samplename, px := pipeline.SampleMsg(msg.Body)
			px = samplePx(conn, samplename, px)
			if px == 0 {
				verboselog.Println("No calibration found for", samplename, "- measurements will be in pixels")
			}
			err = pipeline.ProcessSample(ctx, msg, conn, pipeline.Analyse(conn, producer, px), photoPattern, conn.AnalyseQueueId())
			restartTimer(shutdownIfQuiet)
			if err != nil {
				log.Println("Error during analysis", err)
			}
		case <-shutdownIfQuiet.C:
			if !*autoshutdown {
				shutdownIfQuiet.Reset(TimeBeforeShutdown)
				continue
			}
			log.Println("No work available for a while, shutting down")
			if *conntype == "aws" {
				err = pipeline.SaveLogs(conn, starttime, hostname)
				if err != nil {
					log.Println("Error saving logs", err)
				}
			}
			return
		}
	}
}
