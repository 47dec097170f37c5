// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ncindex

import "errors"

var (
	// ErrInvalidInput is returned when an entry is missing a required
	// identifier.
	ErrInvalidInput = errors.New("ncindex: invalid input")

	// ErrSelfReference is returned when a vertical entry names the
	// same sequence on both sides.
	ErrSelfReference = errors.New("ncindex: sequence compared against itself")

	// ErrSubjectMismatch reports misaligned subjects between the two
	// sides of a vertical pair. It indicates an orchestration bug,
	// not a data problem.
	ErrSubjectMismatch = errors.New("ncindex: paired subjects do not align")
)
