// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package param

import "errors"

// Sentinel errors for the param package.
var (
	// ErrUnsupportedType indicates a raw value that cannot be
	// represented as a parameter Value.
	ErrUnsupportedType = errors.New("unsupported parameter value type")
)
