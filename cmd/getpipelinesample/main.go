// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// getpipelinesample downloads the analysis results for a sample.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"grainpipeline"

	"grainpipeline/internal/pipeline"
)

const usage = `Usage: getpipelinesample [-a] [-c conn] [-v] samplename

Downloads the results for a sample.

By default this downloads the grain measurements, the gradation
curve, the curve graph and the PDF report. With -a the original
photographs and metadata are downloaded too.
`

// null writer to enable non-verbose logging to be discarded
type NullWriter bool

func (w NullWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}

func main() {
	all := flag.Bool("a", false, "Get all files for sample, including the photographs")
	conntype := flag.String("c", "aws", "connection type ('aws' or 'local')")
	verbose := flag.Bool("v", false, "Verbose")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		return
	}

	var verboselog *log.Logger
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

	verboselog.Println("Setting up connection")
	err := conn.Init()
	if err != nil {
		log.Fatalln("Error setting up cloud connection:", err)
	}
	verboselog.Println("Finished setting up connection")

	samplename := flag.Arg(0)

	err = os.MkdirAll(samplename, 0755)
	if err != nil {
		log.Fatalln("Failed to create directory", samplename, err)
	}

	if *all {
		verboselog.Println("Downloading all files for", samplename)
		err = pipeline.DownloadAll(samplename, samplename, conn)
		if err != nil {
			log.Fatalln(err)
		}
		return
	}

	verboselog.Println("Downloading results for", samplename)
	err = pipeline.DownloadResults(samplename, samplename, conn)
	if err != nil {
		log.Fatalln(err)
	}
}
