// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// lspipeline lists useful things related to the grain pipeline.
package main

import (
	"flag"
	"fmt"
	"log"
	"sort"
	"strings"

	"grainpipeline"
)

const usage = `Usage: lspipeline [-nosamples]

Lists useful things related to the pipeline.

- Messages in the analyse queue
- Samples not completed
- Samples done
`

type LsPipeliner interface {
	Init() error
	AnalyseQueueId() string
	GetQueueDetails(url string) (string, string, error)
	ListObjectsWithMeta(bucket string, prefix string) ([]grainpipeline.ObjMeta, error)
	ListObjectPrefixes(bucket string) ([]string, error)
	WIPStorageId() string
}

// NullWriter is used so non-verbose logging may be discarded
type NullWriter bool

func (w NullWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}

type queueDetails struct {
	name, numAvailable, numInProgress string
}

func getQueueDetails(conn LsPipeliner, qdetails chan queueDetails) {
	queues := []struct{ name, id string }{
		{"analyse", conn.AnalyseQueueId()},
	}
	for _, q := range queues {
		avail, inprog, err := conn.GetQueueDetails(q.id)
		if err != nil {
			log.Println("Error getting queue details:", err)
		}
		var qd queueDetails
		qd.name = q.name
		qd.numAvailable = avail
		qd.numInProgress = inprog
		qdetails <- qd
	}
	close(qdetails)
}

type ObjMetas []grainpipeline.ObjMeta

// used by sort.Sort
func (o ObjMetas) Len() int {
	return len(o)
}

// used by sort.Sort
func (o ObjMetas) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
}

// used by sort.Sort
func (o ObjMetas) Less(i, j int) bool {
	return o[i].Date.Before(o[j].Date)
}

// getSampleStatus returns a list of in progress and done samples.
// It determines this by finding all prefixes, and splitting them
// into two lists, those which have a 'report.pdf' file (the done
// list, as the report is the last thing uploaded), and those which
// do not (the inprogress list). They are sorted according to the
// date of the report.pdf file, or the date of a random file with
// the prefix if no report.pdf was found.
func getSampleStatus(conn LsPipeliner) (inprogress []string, done []string, err error) {
	prefixes, err := conn.ListObjectPrefixes(conn.WIPStorageId())
	var inprogressmeta, donemeta ObjMetas
	if err != nil {
		log.Println("Error getting object prefixes:", err)
		return
	}
	for _, p := range prefixes {
		objs, err := conn.ListObjectsWithMeta(conn.WIPStorageId(), p+"report.pdf")
		if err != nil || len(objs) == 0 {
			inprogressmeta = append(inprogressmeta, grainpipeline.ObjMeta{Name: p})
		} else {
			donemeta = append(donemeta, grainpipeline.ObjMeta{Name: p, Date: objs[0].Date})
		}
	}
	// Get a random file from the inprogress list to get a date to sort by
	for _, i := range inprogressmeta {
		objs, err := conn.ListObjectsWithMeta(conn.WIPStorageId(), i.Name)
		if err != nil || len(objs) == 0 {
			continue
		}
		i.Date = objs[0].Date
	}
	sort.Sort(donemeta)
	for _, i := range donemeta {
		done = append(done, strings.TrimSuffix(i.Name, "/"))
	}
	sort.Sort(inprogressmeta)
	for _, i := range inprogressmeta {
		inprogress = append(inprogress, strings.TrimSuffix(i.Name, "/"))
	}

	return
}

// getSampleStatusChan runs getSampleStatus and sends its results to
// channels for the done and in progress lists.
func getSampleStatusChan(conn LsPipeliner, inprogressc chan string, donec chan string) {
	inprogress, done, err := getSampleStatus(conn)
	if err != nil {
		log.Println("Error getting sample status:", err)
		close(inprogressc)
		close(donec)
		return
	}
	for _, i := range inprogress {
		inprogressc <- i
	}
	close(inprogressc)
	for _, i := range done {
		donec <- i
	}
	close(donec)
}

func main() {
	nosamples := flag.Bool("nosamples", false, "disable listing samples completed and not completed (which takes some time)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	var verboselog *log.Logger
	var n NullWriter
	verboselog = log.New(n, "", 0)

	var conn LsPipeliner
	conn = &grainpipeline.AwsConn{Logger: verboselog}
	err := conn.Init()
	if err != nil {
		log.Fatalln("Failed to set up cloud connection:", err)
	}

	queues := make(chan queueDetails)
	inprogress := make(chan string, 100)
	done := make(chan string, 100)

	go getQueueDetails(conn, queues)
	if !*nosamples {
		go getSampleStatusChan(conn, inprogress, done)
	}

	fmt.Println("# Queues")
	for i := range queues {
		fmt.Printf("%s: %s available, %s in progress\n", i.name, i.numAvailable, i.numInProgress)
	}

	if !*nosamples {
		fmt.Println("\n# Samples not completed")
		for i := range inprogress {
			fmt.Println(i)
		}

		fmt.Println("\n# Samples done")
		for i := range done {
			fmt.Println(i)
		}
	}
}
