// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// logwholequeue gets all messages in the analyse queue. This can
// be useful for debugging queue issues.
package main

import (
	"flag"
	"fmt"
	"log"

	"grainpipeline"
)

const usage = `Usage: logwholequeue

logwholequeue gets all messages in the analyse queue.

This can be useful for debugging queue issues.
`

type QueuePipeliner interface {
	Init() error
	LogQueue(url string) error
	AnalyseQueueId() string
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 0 {
		flag.Usage()
		return
	}

	var conn QueuePipeliner
	conn = &grainpipeline.AwsConn{}

	err := conn.Init()
	if err != nil {
		log.Fatalln("Error setting up cloud connection:", err)
	}

	err = conn.LogQueue(conn.AnalyseQueueId())
	if err != nil {
		log.Fatalln("Error getting analyse queue:", err)
	}
}
