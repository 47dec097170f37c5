// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/neuroscan-labs/scanqa/pkg/logging"
	"github.com/neuroscan-labs/scanqa/services/audit"
	"github.com/neuroscan-labs/scanqa/services/audit/dataset"
)

// Runner audits a dataset in subject batches.
//
// Each batch is staged as its own partial snapshot; the partials are
// folded back together and the pooled dataset is audited once.
// Reference inference depends on the full population, so per-batch
// audit results are provisional and are discarded after the merge.
type Runner struct {
	auditor *audit.Auditor
	log     *logging.Logger
	workers int
}

// NewRunner creates a Runner. Workers below 1 use one worker per
// CPU.
func NewRunner(auditor *audit.Auditor, log *logging.Logger, workers int) (*Runner, error) {
	if auditor == nil {
		return nil, fmt.Errorf("%w: nil auditor", ErrInvalidInput)
	}
	if log == nil {
		log = logging.Default()
	}
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Runner{auditor: auditor, log: log, workers: workers}, nil
}

// partialPath names one batch's snapshot inside the staging
// directory.
func partialPath(dir, name string, batch int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_part%03d%s", name, batch, dataset.SnapshotExt))
}

// Run splits the dataset into batches, stages each batch's snapshot
// concurrently, folds the partials back together and runs the pooled
// audit.
//
// # Inputs
//
//   - ctx: cancels in-flight batch staging.
//   - ds: the full dataset.
//   - batches: how many subject chunks to stage.
//   - stagingDir: where partial snapshots land.
//   - outputDir: where the pooled audit writes its artifacts.
func (r *Runner) Run(
	ctx context.Context,
	ds *dataset.Dataset,
	batches int,
	stagingDir, outputDir string,
) (*audit.Report, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: nil dataset", ErrInvalidInput)
	}
	chunks, err := SplitSubjects(ds.AllSubjectIDs(), batches)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stagingDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}

	r.log.Info("staging subject batches",
		"dataset", ds.Name(), "batches", len(chunks), "workers", r.workers)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, subjects := range chunks {
		i, subjects := i, subjects
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			name := fmt.Sprintf("%s_part%03d", ds.Name(), i)
			part := ds.Subset(name, subjects)
			return dataset.Save(part, partialPath(stagingDir, ds.Name(), i))
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("staging batches: %w", err)
	}

	merged, err := r.MergePartials(stagingDir, ds.Name())
	if err != nil {
		return nil, err
	}
	return r.auditor.CheckCompliance(merged, outputDir)
}

// MergePartials loads every partial snapshot in a directory and
// folds them into one dataset named mergedName.
//
// Zero-length snapshot files are skipped with a warning: an
// interrupted writer leaves them behind and they carry no runs.
func (r *Runner) MergePartials(dir, mergedName string) (*dataset.Dataset, error) {
	pattern := filepath.Join(dir, "*"+dataset.SnapshotExt)
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("listing partial snapshots: %w", err)
	}

	var parts []*dataset.Dataset
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("checking partial snapshot: %w", err)
		}
		if info.Size() == 0 {
			r.log.Warn("skipping zero-length partial snapshot", "path", path)
			continue
		}
		part, err := dataset.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading partial snapshot %s: %w", path, err)
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPartials, dir)
	}

	merged, err := dataset.MergeAll(parts, mergedName)
	if err != nil {
		return nil, err
	}
	r.log.Info("merged partial snapshots",
		"dir", dir, "partials", len(parts), "runs", merged.Len())
	return merged, nil
}
