// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import "errors"

var (
	// ErrInvalidInput is returned for an empty config path.
	ErrInvalidInput = errors.New("config: invalid input")

	// ErrUnsupportedFormat is returned for config files that are
	// neither JSON nor YAML.
	ErrUnsupportedFormat = errors.New("config: unsupported file format")
)
