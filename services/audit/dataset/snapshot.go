// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/neuroscan-labs/scanqa/services/audit/param"
)

// SnapshotExt is the extension of persisted dataset snapshots. Batch
// workers write one snapshot per partition; the merge step reloads
// them.
const SnapshotExt = ".scanqa.json"

// snapshotRecord is the wire form of a RunRecord.
type snapshotRecord struct {
	Identity
	EchoTime string                 `json:"echo_time,omitempty"`
	Path     string                 `json:"path,omitempty"`
	Params   map[string]param.Value `json:"params"`
}

// snapshotFile is the wire form of a Dataset.
type snapshotFile struct {
	Name    string           `json:"name"`
	Source  string           `json:"source,omitempty"`
	Records []snapshotRecord `json:"records"`
}

// Save persists the dataset as a JSON snapshot at path.
//
// The path must end in SnapshotExt so partial files are recognizable
// to the merge step; parent directories are created as needed.
func Save(ds *Dataset, path string) error {
	if ds == nil || path == "" {
		return ErrInvalidInput
	}
	if !strings.HasSuffix(path, SnapshotExt) {
		return fmt.Errorf("%w: expected extension %q, got %q",
			ErrInvalidInput, SnapshotExt, filepath.Ext(path))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	out := snapshotFile{Name: ds.name, Source: ds.source}
	for _, id := range ds.Identities() {
		rec := ds.records[id]
		out.Records = append(out.Records, snapshotRecord{
			Identity: id,
			EchoTime: rec.EchoTime,
			Path:     rec.Path,
			Params:   rec.Params,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	// Write via a temp file and rename so a crashed worker never
	// leaves a half-written snapshot for the merge step to trip on.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0640); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load reads a snapshot produced by Save.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var in snapshotFile
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadSnapshot, path, err)
	}
	ds := New(in.Name, in.Source)
	for _, rec := range in.Records {
		err := ds.Add(&RunRecord{
			Subject:  rec.Subject,
			Session:  rec.Session,
			Sequence: rec.Sequence,
			Run:      rec.Run,
			EchoTime: rec.EchoTime,
			Path:     rec.Path,
			Params:   rec.Params,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrBadSnapshot, path, err)
		}
	}
	return ds, nil
}
