// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"grainpipeline"
)

// Sample metadata travels with the photographs as a meta.txt file of
// "key: value" lines. The pipeline only passes it through into the
// report; none of it affects the measurements except px_per_mm,
// which is used as the calibration factor when the queue message
// doesn't carry one.

// WriteMeta saves sample metadata to path. Empty fields are omitted.
func WriteMeta(path string, meta grainpipeline.ReportMeta, pxPerMm float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("Failed to create metadata file %s: %v", path, err)
	}
	defer f.Close()

	for _, kv := range []struct{ k, v string }{
		{"location", meta.Location},
		{"contact", meta.Contact},
		{"rock_type", meta.RockType},
	} {
		if kv.v == "" {
			continue
		}
		_, err = fmt.Fprintf(f, "%s: %s\n", kv.k, kv.v)
		if err != nil {
			return fmt.Errorf("Failed to write metadata file %s: %v", path, err)
		}
	}
	if pxPerMm > 0 {
		_, err = fmt.Fprintf(f, "px_per_mm: %g\n", pxPerMm)
		if err != nil {
			return fmt.Errorf("Failed to write metadata file %s: %v", path, err)
		}
	}
	return nil
}

// ReadMeta loads sample metadata from path. Unknown keys are
// ignored, so the format can grow without breaking older workers.
func ReadMeta(path string) (grainpipeline.ReportMeta, float64, error) {
	var meta grainpipeline.ReportMeta
	var pxPerMm float64

	f, err := os.Open(path)
	if err != nil {
		return meta, 0, fmt.Errorf("Failed to open metadata file %s: %v", path, err)
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		line := s.Text()
		i := strings.Index(line, ":")
		if i == -1 {
			continue
		}
		key := strings.TrimSpace(line[:i])
		val := strings.TrimSpace(line[i+1:])
		switch key {
		case "location":
			meta.Location = val
		case "contact":
			meta.Contact = val
		case "rock_type":
			meta.RockType = val
		case "px_per_mm":
			n, err := strconv.ParseFloat(val, 64)
			if err == nil && n > 0 {
				pxPerMm = n
			}
		}
	}
	if err = s.Err(); err != nil {
		return meta, 0, fmt.Errorf("Failed to read metadata file %s: %v", path, err)
	}
	return meta, pxPerMm, nil
}
