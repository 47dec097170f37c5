// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package compare checks one run's acquisition parameters against a
// reference parameter set.
//
// The comparison is total: malformed or missing values become
// deviations, never errors, so a single bad run cannot abort an
// audit.
package compare

import (
	"sort"

	"github.com/neuroscan-labs/scanqa/services/audit/param"
)

// Options configures a comparison.
type Options struct {
	// Tolerance is the relative numeric tolerance. Zero means exact
	// equality after rounding.
	Tolerance float64

	// Decimals rounds numeric values before comparison. Negative
	// disables rounding.
	Decimals int

	// ExcludeParameters are reference parameter names skipped
	// entirely, e.g. identifiers that legitimately vary run to run.
	ExcludeParameters []string
}

// DefaultOptions returns the comparison defaults: exact matching
// after rounding to three decimal places.
func DefaultOptions() Options {
	return Options{Tolerance: 0, Decimals: 3}
}

// Deviation is one mismatching parameter.
type Deviation struct {
	// Parameter is the mismatching parameter name.
	Parameter string

	// Expected is the reference value.
	Expected param.Value

	// Actual is the run's value; Unspecified when the run lacks the
	// parameter.
	Actual param.Value

	// TieAmbiguity is set when the reference value is the majority
	// tie sentinel, so the mismatch reflects an undecidable
	// reference rather than a deviant run.
	TieAmbiguity bool
}

// Result is the outcome of comparing one run against a reference.
type Result struct {
	// Compliant is true iff every compared parameter matched.
	Compliant bool

	// Deviations lists mismatching parameters in sorted parameter
	// name order.
	Deviations []Deviation
}

// Compare checks a run's parameters against a reference parameter
// set.
//
// # Description
//
// Every reference parameter not excluded is compared; reference
// iteration is in sorted parameter name order so deviation lists are
// deterministic. A parameter absent from the run compares as
// Unspecified. A reference value of EqualCount always produces a
// deviation, flagged with TieAmbiguity.
//
// # Thread Safety
//
// Pure function of its inputs.
func Compare(run, ref map[string]param.Value, opts Options) Result {
	excluded := make(map[string]struct{}, len(opts.ExcludeParameters))
	for _, name := range opts.ExcludeParameters {
		excluded[name] = struct{}{}
	}

	names := make([]string, 0, len(ref))
	for name := range ref {
		if _, skip := excluded[name]; skip {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	result := Result{Compliant: true}
	for _, name := range names {
		expected := ref[name]
		actual := run[name] // zero value is Unspecified

		if expected.IsEqualCount() {
			result.Compliant = false
			result.Deviations = append(result.Deviations, Deviation{
				Parameter:    name,
				Expected:     expected,
				Actual:       actual,
				TieAmbiguity: true,
			})
			continue
		}
		if !actual.WithinTolerance(expected, opts.Tolerance, opts.Decimals) {
			result.Compliant = false
			result.Deviations = append(result.Deviations, Deviation{
				Parameter: name,
				Expected:  expected,
				Actual:    actual,
			})
		}
	}
	return result
}
