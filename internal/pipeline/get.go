// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// DownloadResults downloads the analysis results for a sample:
// grains.csv always, and gradation.csv, graph.png and report.pdf
// when the sample was calibrated. Missing calibrated outputs are
// tolerated, as they will not exist for an uncalibrated sample.
func DownloadResults(dir string, name string, conn Downloader) error {
	for _, a := range []string{"grains.csv", "gradation.csv", "graph.png", "report.pdf"} {
		key := filepath.Join(name, a)
		fn := filepath.Join(dir, a)
		err := conn.Download(conn.WIPStorageId(), key, fn)
		if err != nil && a == "grains.csv" {
			return fmt.Errorf("Failed to download results file %s: %v", key, err)
		}
		if err != nil {
			_ = os.Remove(fn)
			conn.Log("Skipping missing results file", key)
		}
	}
	return nil
}

// DownloadAll downloads every file for a sample, including the
// original photographs and metadata.
func DownloadAll(dir string, name string, conn DownloadLister) error {
	objs, err := conn.ListObjects(conn.WIPStorageId(), name)
	if err != nil {
		return fmt.Errorf("Failed to get list of files for sample %s: %v", name, err)
	}
	for _, i := range objs {
		base := filepath.Base(i)
		fn := filepath.Join(dir, base)
		conn.Log("Downloading", i)
		err = conn.Download(conn.WIPStorageId(), i, fn)
		if err != nil {
			return fmt.Errorf("Failed to download file %s: %v", i, err)
		}
	}
	return nil
}
