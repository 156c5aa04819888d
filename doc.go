// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

/*
The grainpipeline package contains tools and functions to measure the
grain size distribution of crushed rock from photographs. A photo of a
sample is segmented into individual grains, each grain is measured,
and the measurements are combined into a sieve-analysis gradation
curve and report, the same outputs a physical sieve stack would give.

Introduction

The grain pipeline splits the work of analysing rock samples into
small jobs, which can be processed whenever a computer is ready for
them. It is currently implemented with Amazon's AWS cloud systems, and
can scale from zero to many computers, with jobs being processed
faster when more servers are available. There is also a fully local
mode, and a standalone tool to analyse a single photograph with no
job queue at all.

Central to the pipeline in terms of software is the grainpipeline
command. Presuming you have the go tools installed, you can install
it, and useful tools to control the system, with this command:
  go get -u grainpipeline/...

All of the tools provided in the grainpipeline package will give
information on what they do and how they work with the '-h' flag, so
for example to get usage information on the sampletopipeline tool
simply run the following:
  sampletopipeline -h

To get the pipeline tools to work for you, you'll need to change the
settings in cloudsettings.go, and set up your ~/.aws/credentials
appropriately.

Using the pipeline

Samples can be added to the pipeline using the "sampletopipeline"
tool. This takes a directory of sample photographs as input, and
uploads them all to S3, adding a job to the analyse queue to start
processing them. Calibration and sample metadata are given as flags:
  sampletopipeline -px-per-mm 12.4 -location "Quarry NW face" GraniteSampleA/

The pixels per millimetre factor is determined externally, by
measuring a reference object of known size in the photograph. If it
is omitted the sample is still segmented and measured, but the
measurements stay in pixel units and no gradation curve is produced,
as sieve sizes are physical quantities.

Getting a finished sample

Once a sample has been analysed, its results can be downloaded using
the "getpipelinesample" tool. The default case will download the
grain measurements, the gradation curve, the curve graph and the PDF
report. Use it like this:
  getpipelinesample GraniteSampleA

Analysing a single photo

The "gradsample" tool runs the whole analysis on one photograph
locally, writing the same output files next to the input:
  gradsample -px-per-mm 12.4 photo.jpg

How the pipeline works

The pipeline is coordinated through an SQS queue, which contains jobs
which need to be done by a server running grainpipeline. Each message
on the queue is a sample name, optionally followed by a space and the
pixels per millimetre calibration factor for its photographs. The
queue is checked at least once every couple of minutes on any server
that isn't currently processing a job.

  example message: GraniteSampleA
  example message: GraniteSampleA 12.4

When a job is taken from the queue by a process, it is hidden from
the queue for 2 minutes so that no other process can take it. Once
per minute when processing a job the process sends a message updating
the queue, to tell it to keep the job hidden for two minutes. This is
called the "heartbeat", as if the process fails for any reason the
heartbeat will stop, and in 2 minutes the job will reappear on the
queue for another process to have a go at. Once a job is completed
successfully it is deleted from the queue.

Processing a job consists of downloading each photograph of the
sample, segmenting it into a binary grain mask (using an ONNX
segmentation model if one is available, and adaptive thresholding
otherwise), cleaning the mask up, labeling and measuring every grain,
and uploading grains.csv, gradation.csv, graph.png and report.pdf for
the sample.

Queue manipulation

The queue should generally only be messed with by the grainpipeline
and sampletopipeline tools, but the rmsample tool can be used to
remove a sample, and its queue entries, completely.

Remember that messages in a queue are hidden for a few minutes when
they are read, so for example you couldn't straightforwardly delete a
message which was currently being processed by a server, as you
wouldn't be able to see it.

Local operation

While grainpipeline was built with cloud based operation in mind,
there is also a local mode that can be used to run analysis jobs from
a single computer, with all the benefits of queueing, report and
graph creation and so on that the pipeline provides.

You can use this by passing the '-c local' flag to the core
grainpipeline commands. Here is a simple example run:

  sampletopipeline -c local -px-per-mm 12.4 GraniteSampleA
  grainpipeline -v -c local       # run until GraniteSampleA has finished processing
  getpipelinesample -c local GraniteSampleA
*/
package grainpipeline
