// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package batch

import "errors"

var (
	// ErrInvalidInput is returned for empty subject lists or a
	// non-positive batch count.
	ErrInvalidInput = errors.New("batch: invalid input")

	// ErrNoPartials is returned when a merge directory holds no
	// usable partial snapshots.
	ErrNoPartials = errors.New("batch: no partial snapshots found")
)
