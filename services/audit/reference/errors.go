// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package reference

import "errors"

// Sentinel errors for the reference package.
var (
	// ErrInvalidInput indicates invalid input parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCannotComputeMajority indicates too little data for a
	// statistically meaningful majority: fewer than three runs, an
	// empty input, or runs carrying none of the requested parameters.
	ErrCannotComputeMajority = errors.New("cannot compute majority")

	// ErrUnsupportedFormat indicates a reference protocol file in a
	// format other than JSON or YAML.
	ErrUnsupportedFormat = errors.New("unsupported reference protocol format")
)
