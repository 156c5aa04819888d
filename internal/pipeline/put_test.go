// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// writeTestPng writes a small valid png to path
func writeTestPng(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Error creating test image %s: %v", path, err)
	}
	defer f.Close()
	err = png.Encode(f, image.NewGray(image.Rect(0, 0, 8, 8)))
	if err != nil {
		t.Fatalf("Error encoding test image %s: %v", path, err)
	}
}

func Test_CheckImages(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()

	good := filepath.Join(base, "good")
	bad := filepath.Join(base, "bad")
	notreadable := filepath.Join(base, "notreadable")
	empty := filepath.Join(base, "empty")
	for _, d := range []string{good, bad, notreadable, empty} {
		err := os.Mkdir(d, 0755)
		if err != nil {
			t.Fatalf("Error creating test directory %s: %v", d, err)
		}
	}

	writeTestPng(t, filepath.Join(good, "1.png"))
	err := os.WriteFile(filepath.Join(bad, "bad.png"), []byte("not a png at all"), 0644)
	if err != nil {
		t.Fatalf("Error creating bad test image: %v", err)
	}
	writeTestPng(t, filepath.Join(notreadable, "1.png"))

	cases := []struct {
		dir string
		err error
	}{
		{good, nil},
		{bad, errors.New("Decoding image")},
		{notreadable, errors.New("Opening image")},
		{empty, errors.New("No images found")},
	}

	for _, c := range cases {
		t.Run(filepath.Base(c.dir), func(t *testing.T) {
			if c.dir == notreadable {
				err := os.Chmod(filepath.Join(notreadable, "1.png"), 0000)
				if err != nil {
					t.Fatalf("Error preparing test by setting file to be unreadable: %v", err)
				}
			}

			err := CheckImages(ctx, c.dir)
			if err == nil && c.err != nil {
				t.Fatalf("Expected error '%v', got no error", c.err)
			}
			if err != nil && c.err == nil {
				t.Fatalf("Expected no error, got error '%v'", err)
			}

			if c.dir == notreadable {
				err := os.Chmod(filepath.Join(notreadable, "1.png"), 0644)
				if err != nil {
					t.Fatalf("Error resetting test by setting file to be readable: %v", err)
				}
			}
		})
	}
}
