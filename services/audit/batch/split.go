// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package batch splits a dataset into subject batches, audits them
// as independent partials and folds the partial snapshots back
// together for the pooled audit.
package batch

import "fmt"

// SplitSubjects partitions a subject list into chunks of
// floor(n/k)+1 subjects. The final chunk may be shorter, and fewer
// than k chunks may come back when the division is uneven.
func SplitSubjects(subjects []string, batches int) ([][]string, error) {
	if len(subjects) == 0 {
		return nil, fmt.Errorf("%w: no subjects to split", ErrInvalidInput)
	}
	if batches < 1 {
		return nil, fmt.Errorf("%w: batch count %d", ErrInvalidInput, batches)
	}

	size := len(subjects)/batches + 1
	var out [][]string
	for start := 0; start < len(subjects); start += size {
		end := start + size
		if end > len(subjects) {
			end = len(subjects)
		}
		out = append(out, subjects[start:end])
	}
	return out, nil
}
