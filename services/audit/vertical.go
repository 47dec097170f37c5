// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package audit

import (
	"sort"
	"strings"
	"time"

	"github.com/neuroscan-labs/scanqa/services/audit/compare"
	"github.com/neuroscan-labs/scanqa/services/audit/config"
	"github.com/neuroscan-labs/scanqa/services/audit/dataset"
	"github.com/neuroscan-labs/scanqa/services/audit/ncindex"
)

// VerticalAudit compares paired sequences of the same subject and
// session against each other.
//
// # Description
//
// Pairs come from the vertical_audit config section; with no pairs
// declared, echo-planar sequences are paired with the session's
// field maps automatically. Each deviation is recorded twice in the
// index, once per direction, with the paired sequence as the
// reference, so either side can be queried.
func (a *Auditor) VerticalAudit(ds *dataset.Dataset) (*VerticalResult, error) {
	if err := validateDataset(ds); err != nil {
		return nil, err
	}
	if a.cfg.Vertical == nil {
		return nil, ErrNoVerticalConfig
	}

	auditID := newAuditID()
	log := a.log.With("audit_id", auditID, "dataset", ds.Name())

	pairs := a.cfg.Vertical.SequencePairs
	if len(pairs) == 0 {
		pairs = EPIFieldMapPairs(ds.SequenceIDs())
		log.Info("no sequence pairs declared, using epi/fieldmap pairing",
			"pairs", len(pairs))
	}

	result := &VerticalResult{
		AuditID:     auditID,
		DatasetName: ds.Name(),
		Pairs:       pairs,
		Index:       ncindex.New(),
	}
	opts := compare.Options{
		Tolerance: a.cfg.Vertical.Tolerance,
		Decimals:  a.cfg.Vertical.Decimals,
	}

	for _, pair := range pairs {
		dirty, err := a.auditPair(ds, pair, opts, result.Index)
		if err != nil {
			return nil, err
		}
		if dirty {
			result.NonCompliantPairs = append(result.NonCompliantPairs, pair)
		}
	}

	result.CompletedAt = time.Now().UTC()
	log.Info("vertical audit finished",
		"pairs", len(result.Pairs),
		"non_compliant_pairs", len(result.NonCompliantPairs),
		"flagged_observations", result.Index.Len())
	return result, nil
}

// auditPair compares one sequence pair across every shared subject
// and session.
func (a *Auditor) auditPair(
	ds *dataset.Dataset,
	pair config.SequencePair,
	opts compare.Options,
	index *ncindex.Index,
) (bool, error) {
	include := a.cfg.Vertical.IncludeParameters
	dirty := false

	for _, visit := range ds.TraverseVerticalPair(pair.A, pair.B) {
		refParams := includeOnly(visit.B.Params, include)
		cmp := compare.Compare(visit.A.Params, refParams, opts)
		if cmp.Compliant {
			continue
		}
		dirty = true
		for _, dev := range cmp.Deviations {
			err := index.Add(ncindex.Key{
				Parameter:   dev.Parameter,
				Subject:     visit.Subject,
				Session:     visit.Session,
				Sequence:    pair.A,
				RefSequence: ncindex.VerticalRef(pair.B),
				Run:         visit.A.Run,
			}, dev.Actual, visit.A.Path)
			if err != nil {
				return false, err
			}
			err = index.Add(ncindex.Key{
				Parameter:   dev.Parameter,
				Subject:     visit.Subject,
				Session:     visit.Session,
				Sequence:    pair.B,
				RefSequence: ncindex.VerticalRef(pair.A),
				Run:         visit.B.Run,
			}, dev.Expected, visit.B.Path)
			if err != nil {
				return false, err
			}
		}
	}
	return dirty, nil
}

// fieldMapMarkers and epiMarkers drive the automatic pairing of
// functional acquisitions with their field maps.
var (
	fieldMapMarkers = []string{"fmap", "field_map", "fieldmap", "gre"}
	epiMarkers      = []string{"epi", "bold", "fmri", "rest", "task"}
)

func matchesAny(id string, markers []string) bool {
	lower := strings.ToLower(id)
	for _, marker := range markers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// EPIFieldMapPairs pairs every echo-planar sequence id with every
// field-map id, judged side first. Output is sorted for
// deterministic audits.
func EPIFieldMapPairs(sequenceIDs []string) []config.SequencePair {
	var epis, fmaps []string
	for _, id := range sequenceIDs {
		switch {
		case matchesAny(id, fieldMapMarkers):
			fmaps = append(fmaps, id)
		case matchesAny(id, epiMarkers):
			epis = append(epis, id)
		}
	}
	sort.Strings(epis)
	sort.Strings(fmaps)

	var pairs []config.SequencePair
	for _, epi := range epis {
		for _, fm := range fmaps {
			pairs = append(pairs, config.SequencePair{A: epi, B: fm})
		}
	}
	return pairs
}
