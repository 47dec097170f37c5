// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dataset

import "errors"

// Sentinel errors for the dataset package.
var (
	// ErrInvalidInput indicates invalid input parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateRun indicates two runs sharing an identity tuple
	// with different content.
	ErrDuplicateRun = errors.New("duplicate run identity with different content")

	// ErrMergeCollision indicates that two batches contain the same
	// run identity with different parameter content. The data was
	// double-processed with different extraction settings; merging
	// must not silently pick a side.
	ErrMergeCollision = errors.New("merge collision: same identity, different content")

	// ErrEmptyMerge indicates an attempt to merge zero partial
	// datasets.
	ErrEmptyMerge = errors.New("cannot merge an empty list of datasets")

	// ErrBadSnapshot indicates a snapshot file that could not be
	// decoded.
	ErrBadSnapshot = errors.New("malformed dataset snapshot")
)
