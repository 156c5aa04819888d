// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// rmsample removes a sample from cloud storage, and any queue
// entries still referring to it.
package main

import (
	"flag"
	"fmt"
	"log"

	"grainpipeline"
)

const usage = `Usage: rmsample samplename

Removes a sample from cloud storage, together with any entries for
it remaining on the analyse queue.
`

// null writer to enable non-verbose logging to be discarded
type NullWriter bool

func (w NullWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}

type RmPipeliner interface {
	Init() error
	WIPStorageId() string
	AnalyseQueueId() string
	DeleteObjects(bucket string, keys []string) error
	ListObjects(bucket string, prefix string) ([]string, error)
	RemovePrefixesFromQueue(url string, prefix string) error
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		return
	}

	var n NullWriter
	verboselog := log.New(n, "", log.LstdFlags)

	var conn RmPipeliner
	conn = &grainpipeline.AwsConn{Logger: verboselog}

	fmt.Println("Setting up cloud connection")
	err := conn.Init()
	if err != nil {
		log.Fatalln("Error setting up cloud connection:", err)
	}

	samplename := flag.Arg(0)

	fmt.Println("Removing any queue entries for sample")
	err = conn.RemovePrefixesFromQueue(conn.AnalyseQueueId(), samplename)
	if err != nil {
		log.Fatalln("Error removing queue entries:", err)
	}

	fmt.Println("Getting list of files for sample")
	objs, err := conn.ListObjects(conn.WIPStorageId(), samplename)
	if err != nil {
		log.Fatalln("Error in listing sample items:", err)
	}

	if len(objs) == 0 {
		log.Fatalln("No files found for sample:", samplename)
	}

	fmt.Println("Deleting all files for sample")
	err = conn.DeleteObjects(conn.WIPStorageId(), objs)
	if err != nil {
		log.Fatalln("Error deleting sample files:", err)
	}

	fmt.Println("Finished deleting files")
}
