// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// trimqueue deletes any messages in the analyse queue that match
// a specified prefix.
package main

import (
	"flag"
	"fmt"
	"log"

	"grainpipeline"
)

const usage = `Usage: trimqueue prefix

trimqueue deletes any messages in the analyse queue that match a
specified prefix.
`

type QueuePipeliner interface {
	Init() error
	RemovePrefixesFromQueue(url string, prefix string) error
	AnalyseQueueId() string
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return
	}

	var conn QueuePipeliner
	conn = &grainpipeline.AwsConn{}

	err := conn.Init()
	if err != nil {
		log.Fatalln("Error setting up cloud connection:", err)
	}

	err = conn.RemovePrefixesFromQueue(conn.AnalyseQueueId(), flag.Arg(0))
	if err != nil {
		log.Fatalln("Error removing prefixes from analyse queue:", err)
	}
}
