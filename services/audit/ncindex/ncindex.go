// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ncindex records every non-compliant parameter observation
// of an audit, queryable both as a flat log and by sequence.
package ncindex

import (
	"fmt"
	"sort"

	"github.com/neuroscan-labs/scanqa/services/audit/param"
)

// horizontalLabel is the serialized reference-sequence marker for
// horizontal entries, where a run is compared against its own
// sequence's reference.
const horizontalLabel = "__NOT_SPECIFIED__"

// RefSequence identifies which reference a run was compared against.
// The zero value means the run's own sequence (a horizontal audit);
// VerticalRef names the paired sequence of a vertical audit.
type RefSequence struct {
	id  string
	set bool
}

// VerticalRef returns the reference marker for a vertical comparison
// against the named sequence.
func VerticalRef(sequenceID string) RefSequence {
	return RefSequence{id: sequenceID, set: sequenceID != ""}
}

// IsVertical reports whether the entry came from a vertical audit.
func (r RefSequence) IsVertical() bool { return r.set }

// ID returns the paired sequence id, empty for horizontal entries.
func (r RefSequence) ID() string { return r.id }

// Label returns the serialized form used in non-compliance logs.
func (r RefSequence) Label() string {
	if !r.set {
		return horizontalLabel
	}
	return r.id
}

// Key locates one non-compliant observation.
type Key struct {
	Parameter   string
	Subject     string
	Session     string
	Sequence    string
	RefSequence RefSequence
	Run         string
}

func (k Key) validate() error {
	if k.Parameter == "" || k.Subject == "" || k.Session == "" ||
		k.Sequence == "" || k.Run == "" {
		return fmt.Errorf("%w: parameter, subject, session, sequence and run are required",
			ErrInvalidInput)
	}
	if k.RefSequence.IsVertical() && k.RefSequence.ID() == k.Sequence {
		return fmt.Errorf("%w: %s", ErrSelfReference, k.Sequence)
	}
	return nil
}

// Entry is one recorded observation.
type Entry struct {
	Key   Key
	Value param.Value

	// Path is the source location of the run, carried through for
	// reporting.
	Path string
}

// seqNode groups one sequence/reference pair's observations by
// parameter, then subject.
type seqNode map[string]map[string][]Entry

type seqKey struct {
	sequence string
	refLabel string
}

// Index is the non-compliance index. Writes go through to both the
// flat log and the per-sequence view atomically.
//
// # Thread Safety
//
// Not safe for concurrent use. Each audit owns its own index.
type Index struct {
	flat  map[Key]Entry
	bySeq map[seqKey]seqNode
}

// New creates an empty index.
func New() *Index {
	return &Index{
		flat:  make(map[Key]Entry),
		bySeq: make(map[seqKey]seqNode),
	}
}

// Len returns the number of recorded observations.
func (x *Index) Len() int { return len(x.flat) }

// Add records one non-compliant observation. Re-adding the same key
// overwrites the previous entry.
func (x *Index) Add(key Key, value param.Value, path string) error {
	if err := key.validate(); err != nil {
		return err
	}

	entry := Entry{Key: key, Value: value, Path: path}
	x.flat[key] = entry

	sk := seqKey{sequence: key.Sequence, refLabel: key.RefSequence.Label()}
	node, ok := x.bySeq[sk]
	if !ok {
		node = make(seqNode)
		x.bySeq[sk] = node
	}
	bySubject, ok := node[key.Parameter]
	if !ok {
		bySubject = make(map[string][]Entry)
		node[key.Parameter] = bySubject
	}
	for i, existing := range bySubject[key.Subject] {
		if existing.Key == key {
			bySubject[key.Subject][i] = entry
			return nil
		}
	}
	bySubject[key.Subject] = append(bySubject[key.Subject], entry)
	return nil
}

// Parameters returns the sorted set of parameter names ever flagged
// for a sequence, across horizontal and vertical entries.
func (x *Index) Parameters(sequenceID string) []string {
	seen := map[string]struct{}{}
	for sk, node := range x.bySeq {
		if sk.sequence != sequenceID {
			continue
		}
		for name := range node {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Values returns the observations for one sequence, parameter and
// reference, sorted by subject, session and run. Absent paths yield
// an empty slice, never an error.
func (x *Index) Values(sequenceID, parameter string, ref RefSequence) []Entry {
	node, ok := x.bySeq[seqKey{sequence: sequenceID, refLabel: ref.Label()}]
	if !ok {
		return nil
	}
	bySubject, ok := node[parameter]
	if !ok {
		return nil
	}
	var out []Entry
	for _, entries := range bySubject {
		out = append(out, entries...)
	}
	sortEntries(out)
	return out
}

// Pair is one aligned vertical observation: the same subject's values
// on both sides of a sequence pair.
type Pair struct {
	Subject string
	A       Entry
	B       Entry
}

// PairValues zips the two directions of a vertical pair for one
// parameter. The A side holds runs of seqA judged against seqB's
// values, and vice versa. Misaligned subjects return
// ErrSubjectMismatch.
func (x *Index) PairValues(seqA, seqB, parameter string) ([]Pair, error) {
	left := x.Values(seqA, parameter, VerticalRef(seqB))
	right := x.Values(seqB, parameter, VerticalRef(seqA))
	if len(left) != len(right) {
		return nil, fmt.Errorf("%w: %s vs %s for %s: %d entries against %d",
			ErrSubjectMismatch, seqA, seqB, parameter, len(left), len(right))
	}

	pairs := make([]Pair, 0, len(left))
	for i := range left {
		if left[i].Key.Subject != right[i].Key.Subject {
			return nil, fmt.Errorf("%w: %s vs %s for %s: subject %s against %s",
				ErrSubjectMismatch, seqA, seqB, parameter,
				left[i].Key.Subject, right[i].Key.Subject)
		}
		pairs = append(pairs, Pair{
			Subject: left[i].Key.Subject,
			A:       left[i],
			B:       right[i],
		})
	}
	return pairs, nil
}

// Subjects returns the sorted unique subjects flagged for a sequence
// across all parameters.
func (x *Index) Subjects(sequenceID string) []string {
	seen := map[string]struct{}{}
	for key := range x.flat {
		if key.Sequence == sequenceID {
			seen[key.Subject] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for subject := range seen {
		out = append(out, subject)
	}
	sort.Strings(out)
	return out
}

// SubjectCount returns the number of unique subjects flagged for a
// sequence. A subject flagged for several parameters counts once.
func (x *Index) SubjectCount(sequenceID string) int {
	return len(x.Subjects(sequenceID))
}

// Entries returns every observation in deterministic order, for
// serialization into non-compliance logs.
func (x *Index) Entries() []Entry {
	out := make([]Entry, 0, len(x.flat))
	for _, entry := range x.flat {
		out = append(out, entry)
	}
	sortEntries(out)
	return out
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Key, entries[j].Key
		if a.Sequence != b.Sequence {
			return a.Sequence < b.Sequence
		}
		if a.Parameter != b.Parameter {
			return a.Parameter < b.Parameter
		}
		if la, lb := a.RefSequence.Label(), b.RefSequence.Label(); la != lb {
			return la < lb
		}
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Session != b.Session {
			return a.Session < b.Session
		}
		return a.Run < b.Run
	})
}
