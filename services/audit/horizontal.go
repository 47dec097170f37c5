// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package audit

import (
	"fmt"
	"time"

	"github.com/neuroscan-labs/scanqa/services/audit/compare"
	"github.com/neuroscan-labs/scanqa/services/audit/dataset"
	"github.com/neuroscan-labs/scanqa/services/audit/ncindex"
	"github.com/neuroscan-labs/scanqa/services/audit/param"
	"github.com/neuroscan-labs/scanqa/services/audit/reference"
)

// HorizontalAudit judges every run of every sequence against that
// sequence's own reference.
//
// # Description
//
// The reference comes from the configured protocol file when one is
// set, otherwise it is inferred by majority vote over the pooled
// runs. Runs of a sequence with no reference entry land in
// Undetermined; a sequence enters the Compliant partition only when
// every one of its runs was judged and none deviated.
//
// # Inputs
//
//   - ds: the dataset to audit; must be non-nil and non-empty.
//
// # Outputs
//
//   - *HorizontalResult with the three partitions, the reference and
//     the populated non-compliance index.
//   - error on invalid input or an unloadable reference protocol.
func (a *Auditor) HorizontalAudit(ds *dataset.Dataset) (*HorizontalResult, error) {
	if err := validateDataset(ds); err != nil {
		return nil, err
	}

	auditID := newAuditID()
	log := a.log.With("audit_id", auditID, "dataset", ds.Name())
	state := phaseInitialized
	log.Info("horizontal audit starting",
		"phase", state.String(), "runs", ds.Len(), "sequences", len(ds.SequenceIDs()))

	state = phaseInferring
	protocol, err := a.resolveReference(ds)
	if err != nil {
		return nil, err
	}
	log.Info("reference resolved",
		"phase", state.String(), "reference_sequences", protocol.Len())

	state = phaseComparing
	log.Debug("comparing runs", "phase", state.String())
	result := &HorizontalResult{
		AuditID:      auditID,
		DatasetName:  ds.Name(),
		Reference:    protocol,
		Compliant:    dataset.New(ds.Name()+"_compliant", ds.Source()),
		NonCompliant: dataset.New(ds.Name()+"_non_compliant", ds.Source()),
		Undetermined: dataset.New(ds.Name()+"_undetermined", ds.Source()),
		Index:        ncindex.New(),
	}
	opts := a.horizontalOptions()
	include := a.cfg.Horizontal.IncludeParameters

	for _, seqID := range ds.SequenceIDs() {
		if err := a.auditSequence(ds, seqID, protocol, opts, include, result); err != nil {
			return nil, err
		}
	}

	state = phasePartitioned
	result.CompletedAt = time.Now().UTC()
	log.Info("horizontal audit partitioned",
		"phase", state.String(),
		"complete", result.Complete(),
		"compliant_runs", result.Compliant.Len(),
		"non_compliant_runs", result.NonCompliant.Len(),
		"undetermined_runs", result.Undetermined.Len(),
		"flagged_observations", result.Index.Len())
	return result, nil
}

// resolveReference loads the configured protocol file or infers one
// from the dataset.
func (a *Auditor) resolveReference(ds *dataset.Dataset) (*reference.Protocol, error) {
	if path := a.cfg.Horizontal.ReferenceProtocol; path != "" {
		protocol, err := reference.LoadProtocol(path)
		if err != nil {
			return nil, fmt.Errorf("loading reference protocol: %w", err)
		}
		return protocol, nil
	}
	return reference.Infer(ds, reference.InferOptions{
		IncludeParameters: a.cfg.Horizontal.IncludeParameters,
		StratifyBy:        a.cfg.Horizontal.StratifyBy,
	})
}

// auditSequence judges one sequence's runs and commits them to the
// proper partitions.
//
// Compliant runs are staged first and committed only if the whole
// sequence stayed clean: one deviating run moves every judged run of
// the sequence into NonCompliant, and an undetermined run keeps the
// staged runs out of Compliant without attributing them anywhere.
func (a *Auditor) auditSequence(
	ds *dataset.Dataset,
	seqID string,
	protocol *reference.Protocol,
	opts compare.Options,
	include []string,
	result *HorizontalResult,
) error {
	var staged []*dataset.RunRecord
	var deviant []*dataset.RunRecord
	undetermined := false

	for _, rec := range ds.TraverseHorizontal(seqID) {
		stratID := reference.StratifiedSequenceID(rec, a.cfg.Horizontal.StratifyBy)
		ref, ok := protocol.Get(stratID)
		if !ok {
			undetermined = true
			if err := result.Undetermined.Add(rec); err != nil {
				return err
			}
			continue
		}

		cmp := compare.Compare(rec.Params, includeOnly(ref.Params, include), opts)
		if cmp.Compliant {
			staged = append(staged, rec)
			continue
		}
		deviant = append(deviant, rec)
		for _, dev := range cmp.Deviations {
			err := result.Index.Add(ncindex.Key{
				Parameter: dev.Parameter,
				Subject:   rec.Subject,
				Session:   rec.Session,
				Sequence:  stratID,
				Run:       rec.Run,
			}, dev.Actual, rec.Path)
			if err != nil {
				return err
			}
		}
	}

	switch {
	case len(deviant) > 0:
		// A partially compliant sequence is wholly non-compliant.
		for _, rec := range append(staged, deviant...) {
			if err := result.NonCompliant.Add(rec); err != nil {
				return err
			}
		}
	case undetermined:
		// Staged runs stay out of Compliant: the sequence could not
		// be fully judged.
	default:
		for _, rec := range staged {
			if err := result.Compliant.Add(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// includeOnly restricts a reference parameter map to the configured
// include list. User-supplied protocols may carry more parameters
// than the audit considers.
func includeOnly(ref map[string]param.Value, include []string) map[string]param.Value {
	out := make(map[string]param.Value, len(include))
	for _, name := range include {
		if value, ok := ref[name]; ok {
			out[name] = value
		}
	}
	return out
}
