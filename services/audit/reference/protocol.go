// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package reference

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/neuroscan-labs/scanqa/services/audit/param"
)

// Provenance records where a sequence reference came from.
type Provenance int

const (
	// ProvenanceInferred marks a reference computed by majority vote.
	ProvenanceInferred Provenance = iota

	// ProvenanceUserSupplied marks a reference loaded from an
	// externally authored protocol file.
	ProvenanceUserSupplied
)

// String returns the provenance name.
func (p Provenance) String() string {
	switch p {
	case ProvenanceInferred:
		return "inferred"
	case ProvenanceUserSupplied:
		return "user_supplied"
	default:
		return "unknown"
	}
}

// SequenceRef is the reference parameter set for one sequence.
type SequenceRef struct {
	SequenceID string
	Source     Provenance
	Params     map[string]param.Value
}

// Protocol maps sequence ids to their reference parameter sets.
type Protocol struct {
	name      string
	sequences map[string]*SequenceRef
}

// NewProtocol creates an empty protocol.
func NewProtocol(name string) *Protocol {
	return &Protocol{
		name:      name,
		sequences: make(map[string]*SequenceRef),
	}
}

// Name returns the protocol name.
func (p *Protocol) Name() string { return p.name }

// Add inserts or replaces the reference for a sequence.
func (p *Protocol) Add(ref *SequenceRef) {
	if ref == nil || ref.SequenceID == "" {
		return
	}
	p.sequences[ref.SequenceID] = ref
}

// Get returns the reference for a sequence id.
func (p *Protocol) Get(sequenceID string) (*SequenceRef, bool) {
	ref, ok := p.sequences[sequenceID]
	return ref, ok
}

// SequenceIDs returns all sequence ids with a reference, sorted.
func (p *Protocol) SequenceIDs() []string {
	out := make([]string, 0, len(p.sequences))
	for id := range p.sequences {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of sequences with a reference.
func (p *Protocol) Len() int { return len(p.sequences) }

// IsEmpty reports whether the protocol has no sequences.
func (p *Protocol) IsEmpty() bool { return len(p.sequences) == 0 }

// protocolFile is the on-disk form of a user-supplied protocol:
//
//	{
//	  "sequences": {
//	    "T1w": {"RepetitionTime": 2.0, "Manufacturer": "SIEMENS"},
//	    "rs-fMRI": {"RepetitionTime": 0.8}
//	  }
//	}
//
// The same shape is accepted in YAML.
type protocolFile struct {
	Sequences map[string]map[string]any `json:"sequences" yaml:"sequences"`
}

// LoadProtocol reads an externally authored reference protocol.
//
// # Description
//
// The file must exist and end in .json, .yaml or .yml. Parameter
// values are plain scalars or lists and are converted to typed
// values; an unconvertible value fails the load rather than silently
// auditing against garbage. Sequences present in the file but not in
// the dataset are simply never looked up; that mismatch surfaces in
// the orchestrator's Undetermined partition.
func LoadProtocol(path string) (*Protocol, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty reference protocol path", ErrInvalidInput)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading reference protocol: %w", err)
	}

	var in protocolFile
	switch ext := filepath.Ext(path); ext {
	case ".json":
		if err := json.Unmarshal(data, &in); err != nil {
			return nil, fmt.Errorf("parsing reference protocol %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &in); err != nil {
			return nil, fmt.Errorf("parsing reference protocol %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if len(in.Sequences) == 0 {
		return nil, fmt.Errorf("%w: reference protocol %s has no sequences",
			ErrInvalidInput, path)
	}

	protocol := NewProtocol(filepath.Base(path))
	for seqID, rawParams := range in.Sequences {
		params := make(map[string]param.Value, len(rawParams))
		for name, raw := range rawParams {
			value, err := param.FromAny(raw)
			if err != nil {
				return nil, fmt.Errorf("reference protocol %s, sequence %s, parameter %s: %w",
					path, seqID, name, err)
			}
			params[name] = value
		}
		protocol.Add(&SequenceRef{
			SequenceID: seqID,
			Source:     ProvenanceUserSupplied,
			Params:     params,
		})
	}
	return protocol, nil
}
