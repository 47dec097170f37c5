// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package reference computes and represents the reference protocol a
// dataset is audited against.
//
// # Description
//
// A reference parameter set per sequence comes from one of two
// places: majority voting over the pooled runs of that sequence
// (optionally stratified by a secondary key such as echo time), or an
// externally authored protocol file. Majority voting surfaces ties as
// the EqualCount sentinel instead of resolving them arbitrarily, and
// refuses to vote at all below three runs.
//
// All functions here are pure: no global state, no logging. Callers
// decide how to react to per-sequence inference failures.
package reference

import (
	"fmt"
	"sort"

	"github.com/neuroscan-labs/scanqa/services/audit/dataset"
	"github.com/neuroscan-labs/scanqa/services/audit/param"
)

// MinRunsForMajority is the smallest population a majority vote is
// defined over. Below this a winner is statistically meaningless.
const MinRunsForMajority = 3

// tally counts occurrences of one parameter's values across runs,
// keyed by canonical encoding, keeping a representative original
// Value per key so the winner can be returned un-normalized.
type tally struct {
	counts map[string]int
	sample map[string]param.Value
}

func newTally() *tally {
	return &tally{
		counts: make(map[string]int),
		sample: make(map[string]param.Value),
	}
}

func (c *tally) add(v param.Value) {
	key := v.Key()
	c.counts[key]++
	if _, ok := c.sample[key]; !ok {
		c.sample[key] = v
	}
}

// winner applies the majority rule to one parameter's tally.
//
// A single distinct value wins outright (even if it is Unspecified:
// a parameter absent everywhere is "compliant by absence"). With
// multiple distinct values the Unspecified bucket is dropped before
// ranking; if the top two surviving frequencies are equal the result
// is EqualCount rather than either candidate.
func (c *tally) winner() param.Value {
	if len(c.counts) == 1 {
		for key := range c.counts {
			return c.sample[key]
		}
	}

	unspecifiedKey := param.Unspecified().Key()
	type entry struct {
		key   string
		count int
	}
	var ranked []entry
	for key, count := range c.counts {
		if key == unspecifiedKey {
			continue
		}
		ranked = append(ranked, entry{key, count})
	}
	if len(ranked) == 0 {
		return param.Unspecified()
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].key < ranked[j].key
	})
	if len(ranked) > 1 && ranked[0].count == ranked[1].count {
		return param.EqualCount()
	}
	return c.sample[ranked[0].key]
}

// MajorityValues computes the most frequent value of each included
// parameter across the supplied runs.
//
// # Inputs
//
//   - runs: one parameter mapping per run of a single sequence (or
//     stratum).
//   - include: parameter names to vote on; must be non-empty.
//
// # Outputs
//
//   - map of parameter name to majority value; ties yield EqualCount.
//   - ErrCannotComputeMajority when fewer than MinRunsForMajority
//     runs are supplied, or no run carries any included parameter.
//   - ErrInvalidInput when include is empty.
//
// A parameter missing from a run counts as Unspecified rather than
// being silently dropped, so "mostly absent" is distinguishable from
// "absent everywhere".
func MajorityValues(runs []map[string]param.Value, include []string) (map[string]param.Value, error) {
	if len(include) == 0 {
		return nil, fmt.Errorf("%w: no parameters to include", ErrInvalidInput)
	}
	if len(runs) < MinRunsForMajority {
		return nil, fmt.Errorf("%w: got %d runs, need at least %d",
			ErrCannotComputeMajority, len(runs), MinRunsForMajority)
	}
	anyKey := false
	for _, run := range runs {
		for _, name := range include {
			if _, ok := run[name]; ok {
				anyKey = true
				break
			}
		}
		if anyKey {
			break
		}
	}
	if !anyKey {
		return nil, fmt.Errorf("%w: no run carries any of the requested parameters",
			ErrCannotComputeMajority)
	}

	tallies := make(map[string]*tally, len(include))
	for _, name := range include {
		tallies[name] = newTally()
	}
	for _, run := range runs {
		for _, name := range include {
			value, ok := run[name]
			if !ok {
				value = param.Unspecified()
			}
			tallies[name].add(value)
		}
	}

	out := make(map[string]param.Value, len(include))
	for name, counter := range tallies {
		out[name] = counter.winner()
	}
	return out, nil
}

// InferOptions configures reference inference.
type InferOptions struct {
	// IncludeParameters are the parameter names voted on.
	IncludeParameters []string

	// StratifyBy optionally names a secondary parameter (e.g. an echo
	// time) whose value partitions a sequence's runs into separate
	// inference groups.
	StratifyBy string
}

// Infer computes the majority reference protocol for every sequence
// in the dataset that has enough subjects.
//
// # Description
//
// Sequences with fewer than MinRunsForMajority subjects are skipped;
// the audit routes their runs to Undetermined when it finds no
// reference entry for them. Per-stratum groups that individually fall
// below the threshold are skipped the same way. Inference failures
// never abort the whole protocol.
func Infer(ds *dataset.Dataset, opts InferOptions) (*Protocol, error) {
	if ds == nil {
		return nil, ErrInvalidInput
	}
	if len(opts.IncludeParameters) == 0 {
		return nil, fmt.Errorf("%w: no parameters to include", ErrInvalidInput)
	}

	protocol := NewProtocol("reference_for_" + ds.Name())
	for _, seqID := range ds.SequenceIDs() {
		if len(ds.SubjectIDs(seqID)) < MinRunsForMajority {
			continue
		}

		groups := map[string][]map[string]param.Value{}
		for _, rec := range ds.TraverseHorizontal(seqID) {
			stratID := StratifiedSequenceID(rec, opts.StratifyBy)
			groups[stratID] = append(groups[stratID], rec.Params)
		}

		for stratID, runs := range groups {
			values, err := MajorityValues(runs, opts.IncludeParameters)
			if err != nil {
				continue
			}
			protocol.Add(&SequenceRef{
				SequenceID: stratID,
				Source:     ProvenanceInferred,
				Params:     values,
			})
		}
	}
	return protocol, nil
}

// attributeSeparator joins a sequence name with its stratification
// value, e.g. "rs-fMRI__0.03".
const attributeSeparator = "__"

// StratifiedSequenceID returns the sequence id a record is grouped
// under for inference and comparison.
//
// With an empty stratifyBy the plain sequence id is returned. When
// stratifyBy names a parameter present on the record, its value is
// appended; the special name "EchoTime" falls back to the record's
// extraction-time echo time key when the parameter is absent. Records
// lacking the stratification value keep the plain id.
func StratifiedSequenceID(rec *dataset.RunRecord, stratifyBy string) string {
	if stratifyBy == "" {
		return rec.Sequence
	}
	if v, ok := rec.Params[stratifyBy]; ok && v.IsConcrete() {
		return rec.Sequence + attributeSeparator + v.String()
	}
	if stratifyBy == "EchoTime" && rec.EchoTime != "" {
		return rec.Sequence + attributeSeparator + rec.EchoTime
	}
	return rec.Sequence
}
