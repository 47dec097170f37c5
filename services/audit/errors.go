// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package audit

import "errors"

var (
	// ErrInvalidInput is returned when a nil dataset or config is
	// supplied.
	ErrInvalidInput = errors.New("audit: invalid input")

	// ErrEmptyDataset is returned when the dataset to audit holds no
	// runs.
	ErrEmptyDataset = errors.New("audit: dataset is empty")

	// ErrNoVerticalConfig is returned when a vertical audit is
	// requested without a vertical_audit config section.
	ErrNoVerticalConfig = errors.New("audit: no vertical audit configured")
)
