// Copyright 2025 the grainpipeline authors.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package grainpipeline

// This file contains various cloud account specific stuff; change this if
// you want to use the cloud functionality on your own site.

// Queue names
const (
	queueAnalyse = "grainanalyse"
)

// Storage bucket names
const (
	storageWip = "graininprogress"
)
