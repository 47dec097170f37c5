// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package audit runs protocol compliance audits over acquisition
// datasets.
//
// A horizontal audit infers (or loads) a per-sequence reference and
// partitions the dataset's runs into Compliant, NonCompliant and
// Undetermined. A vertical audit compares paired sequences of the
// same session against each other. Both populate a non-compliance
// index consumed by the reporting helpers.
package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/neuroscan-labs/scanqa/pkg/logging"
	"github.com/neuroscan-labs/scanqa/services/audit/compare"
	"github.com/neuroscan-labs/scanqa/services/audit/config"
	"github.com/neuroscan-labs/scanqa/services/audit/dataset"
	"github.com/neuroscan-labs/scanqa/services/audit/ncindex"
	"github.com/neuroscan-labs/scanqa/services/audit/reference"
)

// =============================================================================
// AUDIT PHASES
// =============================================================================

// phase tracks where a horizontal audit is in its lifecycle. The
// audit only moves forward: initialized, inferring, comparing,
// partitioned.
type phase int

const (
	phaseInitialized phase = iota
	phaseInferring
	phaseComparing
	phasePartitioned
)

func (p phase) String() string {
	switch p {
	case phaseInitialized:
		return "initialized"
	case phaseInferring:
		return "inferring"
	case phaseComparing:
		return "comparing"
	case phasePartitioned:
		return "partitioned"
	default:
		return "unknown"
	}
}

// =============================================================================
// AUDITOR
// =============================================================================

// Auditor runs compliance audits with a fixed configuration.
//
// # Thread Safety
//
// Safe for concurrent use: each audit call builds its own state and
// the configuration is never mutated.
type Auditor struct {
	cfg *config.Config
	log *logging.Logger
}

// NewAuditor creates an Auditor. A nil config uses the defaults; a
// nil logger uses the process default.
func NewAuditor(cfg *config.Config, log *logging.Logger) (*Auditor, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Default()
	}
	return &Auditor{cfg: cfg, log: log}, nil
}

// Config returns the auditor's configuration.
func (a *Auditor) Config() *config.Config { return a.cfg }

// horizontalOptions maps the horizontal config onto comparator
// options.
func (a *Auditor) horizontalOptions() compare.Options {
	return compare.Options{
		Tolerance:         a.cfg.Horizontal.Tolerance,
		Decimals:          a.cfg.Horizontal.Decimals,
		ExcludeParameters: a.cfg.Horizontal.ExcludeParameters,
	}
}

// =============================================================================
// RESULT TYPES
// =============================================================================

// HorizontalResult is the terminal partition of a horizontal audit.
type HorizontalResult struct {
	// AuditID uniquely identifies this audit invocation.
	AuditID string

	// DatasetName is the name of the audited dataset.
	DatasetName string

	// Reference is the protocol the runs were judged against.
	Reference *reference.Protocol

	// Compliant holds every run of each fully clean sequence. A
	// sequence with any non-compliant or undetermined run
	// contributes nothing here.
	Compliant *dataset.Dataset

	// NonCompliant holds all runs of each sequence that had at least
	// one deviating run, compliant runs of that sequence included.
	NonCompliant *dataset.Dataset

	// Undetermined holds runs that could not be judged because no
	// reference exists for their sequence.
	Undetermined *dataset.Dataset

	// Index records every non-compliant parameter observation.
	Index *ncindex.Index

	// CompletedAt is when the partition was finalized.
	CompletedAt time.Time
}

// Complete reports whether every run was judged compliant.
func (r *HorizontalResult) Complete() bool {
	return r.NonCompliant.IsEmpty() && r.Undetermined.IsEmpty()
}

// VerticalResult is the outcome of a vertical audit.
type VerticalResult struct {
	// AuditID uniquely identifies this audit invocation.
	AuditID string

	// DatasetName is the name of the audited dataset.
	DatasetName string

	// Pairs lists the audited sequence pairs, judged side first.
	Pairs []config.SequencePair

	// NonCompliantPairs lists the pairs with at least one deviating
	// subject.
	NonCompliantPairs []config.SequencePair

	// Index records each deviation twice, once per direction, with
	// the paired sequence as the reference.
	Index *ncindex.Index

	// CompletedAt is when the audit finished.
	CompletedAt time.Time
}

// newAuditID returns a fresh invocation id.
func newAuditID() string {
	return uuid.NewString()
}

func validateDataset(ds *dataset.Dataset) error {
	if ds == nil {
		return fmt.Errorf("%w: nil dataset", ErrInvalidInput)
	}
	if ds.IsEmpty() {
		return fmt.Errorf("%w: %s", ErrEmptyDataset, ds.Name())
	}
	return nil
}
