// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// pipeline is a package used by the grainpipeline command, which
// handles the core functionality, using channels heavily to
// coordinate jobs. Note that it is considered an "internal" package,
// not intended for external use, and no guarantee is made of the
// stability of any interfaces provided.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/ioutil"
	"log"
	"net/smtp"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"grainpipeline"
	"grainpipeline/analyse"
	"grainpipeline/gradation"
	"grainpipeline/mask"
	"grainpipeline/measure"
)

const HeartbeatSeconds = 60

type Lister interface {
	ListObjects(bucket string, prefix string) ([]string, error)
	Log(v ...interface{})
	WIPStorageId() string
}

type Downloader interface {
	Download(bucket string, key string, fn string) error
	Log(v ...interface{})
	WIPStorageId() string
}

type DownloadLister interface {
	Download(bucket string, key string, fn string) error
	ListObjects(bucket string, prefix string) ([]string, error)
	Log(v ...interface{})
	WIPStorageId() string
}

type Uploader interface {
	Log(v ...interface{})
	Upload(bucket string, key string, path string) error
	WIPStorageId() string
}

type Queuer interface {
	AddToQueue(url string, msg string) error
	AnalyseQueueId() string
	CheckQueue(url string, timeout int64) (grainpipeline.Qmsg, error)
	DelFromQueue(url string, handle string) error
	Log(v ...interface{})
	QueueHeartbeat(msg grainpipeline.Qmsg, qurl string, duration int64) (grainpipeline.Qmsg, error)
}

type Pipeliner interface {
	AddToQueue(url string, msg string) error
	AnalyseQueueId() string
	CheckQueue(url string, timeout int64) (grainpipeline.Qmsg, error)
	DelFromQueue(url string, handle string) error
	Download(bucket string, key string, fn string) error
	GetLogger() *log.Logger
	Init() error
	ListObjects(bucket string, prefix string) ([]string, error)
	Log(v ...interface{})
	QueueHeartbeat(msg grainpipeline.Qmsg, qurl string, duration int64) (grainpipeline.Qmsg, error)
	Upload(bucket string, key string, path string) error
	WIPStorageId() string
}

type MinPipeliner interface {
	Pipeliner
	MinimalInit() error
}

type mailSettings struct {
	server, port, user, pass, from, to string
}

func GetMailSettings() (mailSettings, error) {
	p := filepath.Join(os.Getenv("HOME"), ".config", "grainpipeline", "mailsettings")
	b, err := ioutil.ReadFile(p)
	if err != nil {
		return mailSettings{}, fmt.Errorf("Error reading mailsettings from %s: %v", p, err)
	}
	f := strings.Fields(string(b))
	if len(f) != 6 {
		return mailSettings{}, fmt.Errorf("Error parsing mailsettings, need %d fields, got %d", 6, len(f))
	}
	return mailSettings{f[0], f[1], f[2], f[3], f[4], f[5]}, nil
}

// download reads file names from a channel and downloads them into
// dir, putting each successfully downloaded file name into the
// process channel. If an error occurs it is sent to the errc channel
// and the function returns early.
func download(ctx context.Context, dl chan string, process chan string, conn Downloader, dir string, errc chan error, logger *log.Logger) {
	for key := range dl {
		select {
		case <-ctx.Done():
			for range dl {
			} // consume the rest of the receiving channel so it isn't blocked
			errc <- ctx.Err()
			close(process)
			return
		default:
		}
		fn := filepath.Join(dir, filepath.Base(key))
		logger.Println("Downloading", key)
		err := conn.Download(conn.WIPStorageId(), key, fn)
		if err != nil {
			for range dl {
			} // consume the rest of the receiving channel so it isn't blocked
			errc <- err
			close(process)
			return
		}
		process <- fn
	}
	close(process)
}

// up reads file names from a channel and uploads them with
// the samplename/ prefix, removing the local copy of each file
// once it has been successfully uploaded. The done channel is
// then written to to signal completion. If an error occurs it
// is sent to the errc channel and the function returns early.
func up(ctx context.Context, c chan string, done chan bool, conn Uploader, samplename string, errc chan error, logger *log.Logger) {
	for path := range c {
		select {
		case <-ctx.Done():
			for range c {
			} // consume the rest of the receiving channel so it isn't blocked
			errc <- ctx.Err()
			return
		default:
		}
		name := filepath.Base(path)
		key := samplename + "/" + name
		logger.Println("Uploading", key)
		err := conn.Upload(conn.WIPStorageId(), key, path)
		if err != nil {
			for range c {
			} // consume the rest of the receiving channel so it isn't blocked
			errc <- err
			return
		}
		err = os.Remove(path)
		if err != nil {
			for range c {
			} // consume the rest of the receiving channel so it isn't blocked
			errc <- err
			return
		}
	}

	done <- true
}

// Analyse returns a process function which measures the grains in
// every photograph it receives, pools the measurements and writes
// the sample outputs: grains.csv always, and gradation.csv,
// graph.png and report.pdf when a calibration factor is available.
// Grains from all photographs of a sample are pooled into one
// population before the gradation curve is built, as they are
// different views of the same material.
func Analyse(conn Downloader, producer mask.Producer, pxPerMm float64) func(context.Context, chan string, chan string, chan error, *log.Logger) {
	return func(ctx context.Context, toanalyse chan string, up chan string, errc chan error, logger *log.Logger) {
		var grains []measure.GrainStats
		savedir := ""

		opts := analyse.DefaultOptions()
		// calibration is applied to the pooled population below,
		// not per photograph
		opts.PxPerMm = 0

		for path := range toanalyse {
			select {
			case <-ctx.Done():
				for range toanalyse {
				} // consume the rest of the receiving channel so it isn't blocked
				errc <- ctx.Err()
				return
			default:
			}
			if savedir == "" {
				savedir = filepath.Dir(path)
			}
			logger.Println("Measuring grains in", path)
			f, err := os.Open(path)
			if err != nil {
				for range toanalyse {
				} // consume the rest of the receiving channel so it isn't blocked
				errc <- fmt.Errorf("Error opening photo %s: %v", path, err)
				return
			}
			img, _, err := image.Decode(f)
			f.Close()
			if err != nil {
				for range toanalyse {
				} // consume the rest of the receiving channel so it isn't blocked
				errc <- fmt.Errorf("Error decoding photo %s: %v", path, err)
				return
			}
			res, err := analyse.Run(img, producer, opts)
			if err != nil {
				for range toanalyse {
				} // consume the rest of the receiving channel so it isn't blocked
				errc <- fmt.Errorf("Error measuring photo %s: %v", path, err)
				return
			}
			if res.Conf >= 0 {
				logger.Printf("Found %d grains (model confidence %.2f)\n", len(res.Grains), res.Conf)
			} else {
				logger.Printf("Found %d grains (threshold fallback)\n", len(res.Grains))
			}
			grains = append(grains, res.Grains...)
		}

		select {
		case <-ctx.Done():
			errc <- ctx.Err()
			return
		default:
		}

		// pooled grains get fresh sequential ids
		for i := range grains {
			grains[i].ID = i + 1
		}

		samplename, err := filepath.Rel(os.TempDir(), savedir)
		if err != nil {
			errc <- fmt.Errorf("Failed to do filepath.Rel of %s to %s: %s", os.TempDir(), savedir, err)
			return
		}

		calibrated := pxPerMm > 0
		if calibrated {
			err = measure.Calibrate(grains, pxPerMm)
			if err != nil {
				errc <- fmt.Errorf("Error calibrating grains: %v", err)
				return
			}
		}

		fn := filepath.Join(savedir, "grains.csv")
		logger.Println("Saving grain measurements in file", fn)
		f, err := os.Create(fn)
		if err != nil {
			errc <- fmt.Errorf("Error creating file %s: %s", fn, err)
			return
		}
		err = grainpipeline.WriteGrainCSV(f, grains, calibrated)
		f.Close()
		if err != nil {
			errc <- fmt.Errorf("Error writing grains file: %s", err)
			return
		}
		up <- fn

		var curve gradation.Curve
		var sum gradation.Summary
		graphfn := ""
		if calibrated {
			curve, err = gradation.Convert(grains, pxPerMm)
			if err != nil {
				errc <- fmt.Errorf("Error building gradation curve: %v", err)
				return
			}
			sum = gradation.Summarise(curve)

			select {
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			default:
			}

			fn = filepath.Join(savedir, "gradation.csv")
			logger.Println("Saving gradation curve in file", fn)
			f, err = os.Create(fn)
			if err != nil {
				errc <- fmt.Errorf("Error creating file %s: %s", fn, err)
				return
			}
			err = grainpipeline.WriteGradationCSV(f, curve)
			f.Close()
			if err != nil {
				errc <- fmt.Errorf("Error writing gradation file: %s", err)
				return
			}
			up <- fn

			logger.Println("Creating graph")
			graphfn = filepath.Join(savedir, "graph.png")
			f, err = os.Create(graphfn)
			if err != nil {
				errc <- fmt.Errorf("Error creating file %s: %s", graphfn, err)
				return
			}
			err = grainpipeline.Graph(curve, samplename, f)
			f.Close()
			if err != nil {
				errc <- fmt.Errorf("Error rendering graph: %s", err)
				return
			}
			up <- graphfn
		} else {
			sum.Count = len(grains)
		}

		select {
		case <-ctx.Done():
			errc <- ctx.Err()
			return
		default:
		}

		// metadata is optional; a missing meta.txt just means a
		// report with no location / contact / rock type lines
		var meta grainpipeline.ReportMeta
		metafn := filepath.Join(savedir, "meta.txt")
		err = conn.Download(conn.WIPStorageId(), samplename+"/meta.txt", metafn)
		if err == nil {
			meta, _, err = ReadMeta(metafn)
			if err != nil {
				logger.Println("Could not parse metadata, report will omit it:", err)
			}
		} else {
			logger.Println("No metadata found for sample")
		}

		logger.Println("Creating report")
		report := new(grainpipeline.Report)
		err = report.Setup()
		if err != nil {
			errc <- fmt.Errorf("Failed to set up PDF: %s", err)
			return
		}
		report.AddSummary(samplename, meta, sum, calibrated)
		if calibrated {
			report.AddCurve(curve)
			err = report.AddGraph(graphfn)
			if err != nil {
				errc <- fmt.Errorf("Failed to add graph to PDF: %s", err)
				return
			}
		}
		fn = filepath.Join(savedir, "report.pdf")
		err = report.Save(fn)
		if err != nil {
			errc <- fmt.Errorf("Failed to save report pdf: %s", err)
			return
		}
		up <- fn

		close(up)
	}
}

func heartbeat(conn Queuer, t *time.Ticker, msg grainpipeline.Qmsg, queue string, msgc chan grainpipeline.Qmsg, errc chan error) {
	currentmsg := msg
	for range t.C {
		m, err := conn.QueueHeartbeat(currentmsg, queue, HeartbeatSeconds*2)
		if err != nil {
			// This is for better debugging of the heartbeat issue
			conn.Log("Error with heartbeat", err)
			os.Exit(1)
		}
		if m.Id != "" {
			conn.Log("Replaced message handle as visibilitytimeout limit was reached")
			currentmsg = m
			// TODO: maybe handle communicating new msg more gracefully than this
			for range msgc {
			} // throw away any old msgc
			msgc <- m
		}
	}
}

// ProcessSample processes a sample based on a queue message, which
// names the sample and optionally its calibration factor. The
// sample's photographs are downloaded, analysed, and the results
// uploaded, with a heartbeat keeping the message hidden from other
// workers for the duration.
func ProcessSample(ctx context.Context, msg grainpipeline.Qmsg, conn Pipeliner, process func(context.Context, chan string, chan string, chan error, *log.Logger), match *regexp.Regexp, fromQueue string) error {
	dl := make(chan string)
	msgc := make(chan grainpipeline.Qmsg)
	processc := make(chan string)
	upc := make(chan string)
	done := make(chan bool)
	errc := make(chan error)

	msgparts := strings.Split(msg.Body, " ")
	samplename := msgparts[0]

	d := filepath.Join(os.TempDir(), samplename)
	err := os.MkdirAll(d, 0755)
	if err != nil {
		return fmt.Errorf("Failed to create directory %s: %s", d, err)
	}

	t := time.NewTicker(HeartbeatSeconds * time.Second)
	go heartbeat(conn, t, msg, fromQueue, msgc, errc)

	// these functions will do their jobs when their channels have data
	go download(ctx, dl, processc, conn, d, errc, conn.GetLogger())
	go process(ctx, processc, upc, errc, conn.GetLogger())
	go up(ctx, upc, done, conn, samplename, errc, conn.GetLogger())

	conn.Log("Getting list of objects to download")
	objs, err := conn.ListObjects(conn.WIPStorageId(), samplename)
	if err != nil {
		t.Stop()
		_ = os.RemoveAll(d)
		return fmt.Errorf("Failed to get list of files for sample %s: %s", samplename, err)
	}
	var todl []string
	for _, n := range objs {
		if !match.MatchString(n) {
			conn.Log("Skipping item that doesn't match target", n)
			continue
		}
		todl = append(todl, n)
	}
	for _, a := range todl {
		dl <- a
	}
	close(dl)

	// wait for either the done or errc channel to be sent to
	select {
	case err = <-errc:
		t.Stop()
		_ = os.RemoveAll(d)
		// analysis is deterministic, so a sample that failed will
		// never complete however often it goes around the queue;
		// delete the message and notify us instead.
		conn.Log("Deleting message from queue due to a bad error", fromQueue)
		err2 := conn.DelFromQueue(fromQueue, msg.Handle)
		if err2 != nil {
			conn.Log("Error deleting message from queue", err2)
		}
		ms, err2 := GetMailSettings()
		if err2 != nil {
			conn.Log("Failed to get mail settings ", err2)
		}
		if err2 == nil && ms.server != "" {
			logs, err2 := getLogs()
			if err2 != nil {
				conn.Log("Failed to get logs ", err2)
				logs = ""
			}
			mailmsg := fmt.Sprintf("To: %s\r\nFrom: %s\r\n"+
				"Subject: [grainpipeline] Error processing sample %s\r\n\r\n"+
				" Fail message: %s\r\nFull log:\r\n%s\r\n",
				ms.to, ms.from, samplename, err, logs)
			host := fmt.Sprintf("%s:%s", ms.server, ms.port)
			auth := smtp.PlainAuth("", ms.user, ms.pass, ms.server)
			err2 = smtp.SendMail(host, auth, ms.from, []string{ms.to}, []byte(mailmsg))
			if err2 != nil {
				conn.Log("Error sending email ", err2)
			}
		}
		return err
	case <-ctx.Done():
		t.Stop()
		_ = os.RemoveAll(d)
		return ctx.Err()
	case <-done:
	}

	t.Stop()

	// check whether we're using a newer msg handle
	select {
	case m, ok := <-msgc:
		if ok {
			msg = m
			conn.Log("Using new message handle to delete message from queue")
		}
	default:
		conn.Log("Using original message handle to delete message from queue")
	}

	conn.Log("Deleting original message from queue", fromQueue)
	err = conn.DelFromQueue(fromQueue, msg.Handle)
	if err != nil {
		_ = os.RemoveAll(d)
		return fmt.Errorf("Error deleting message from queue: %s", err)
	}

	err = os.RemoveAll(d)
	if err != nil {
		return fmt.Errorf("Failed to remove directory %s: %s", d, err)
	}

	return nil
}

// SampleMsg splits a queue message into the sample name and the
// calibration factor, which is 0 if the message doesn't carry one.
func SampleMsg(body string) (string, float64) {
	parts := strings.Fields(body)
	if len(parts) < 2 {
		return body, 0
	}
	var px float64
	_, err := fmt.Sscanf(parts[1], "%f", &px)
	if err != nil || px <= 0 {
		return parts[0], 0
	}
	return parts[0], px
}

func getLogs() (string, error) {
	cmd := exec.Command("journalctl", "-u", "grainpipeline", "-n", "all")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), err
}

func SaveLogs(conn Uploader, starttime int64, hostname string) error {
	logs, err := getLogs()
	if err != nil {
		return fmt.Errorf("Error getting logs, error: %v", err)
	}
	key := fmt.Sprintf("grainpipeline.log.%d.%s", starttime, hostname)
	path := filepath.Join(os.TempDir(), key)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("Error creating log file: %v", err)
	}
	defer f.Close()
	_, err = f.WriteString(logs)
	if err != nil {
		return fmt.Errorf("Error saving log file: %v", err)
	}
	_ = f.Close()
	err = conn.Upload(conn.WIPStorageId(), key, path)
	if err != nil {
		return fmt.Errorf("Error uploading log: %v", err)
	}
	conn.Log("Log saved to", key)
	return nil
}
