// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dataset

import "fmt"

// Merge combines two datasets into a new one without mutating either
// input.
//
// # Description
//
// The result is the union of the two record sets, named after a. If
// both sides contain the same run identity the records must be
// structurally identical; a collision with differing content aborts
// with ErrMergeCollision because it means the same acquisition was
// processed twice with different extraction settings.
//
// Merge is commutative and associative up to the result name, so N
// partial batches can be folded in any order and grouping. Reference
// inference depends on the pooled population: audits computed on
// partials before a merge are provisional and must be recomputed on
// the merged dataset.
func Merge(a, b *Dataset) (*Dataset, error) {
	if a == nil || b == nil {
		return nil, ErrInvalidInput
	}
	out := New(a.name, a.source)
	for id, rec := range a.records {
		out.records[id] = rec
	}
	for id, rec := range b.records {
		if existing, ok := out.records[id]; ok {
			if !equalContent(existing, rec) {
				return nil, fmt.Errorf("%w: %s (batches %q, %q)",
					ErrMergeCollision, id, a.name, b.name)
			}
			continue
		}
		out.records[id] = rec
	}
	return out, nil
}

// MergeAll folds a list of partial datasets into one named dataset.
//
// An empty list is an error: the batch runner always has at least one
// partial, so an empty fold signals a wiring bug upstream.
func MergeAll(parts []*Dataset, name string) (*Dataset, error) {
	if len(parts) == 0 {
		return nil, ErrEmptyMerge
	}
	merged := parts[0]
	for _, next := range parts[1:] {
		var err error
		merged, err = Merge(merged, next)
		if err != nil {
			return nil, err
		}
	}
	out := New(name, merged.source)
	for id, rec := range merged.records {
		out.records[id] = rec
	}
	return out, nil
}

// Equal reports whether two datasets contain structurally identical
// record sets. Names and sources are ignored; Equal compares content,
// which is what the merge equivalence properties are stated over.
func Equal(a, b *Dataset) bool {
	if a.Len() != b.Len() {
		return false
	}
	for id, rec := range a.records {
		other, ok := b.records[id]
		if !ok || !equalContent(rec, other) {
			return false
		}
	}
	return true
}
