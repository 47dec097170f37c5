// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/neuroscan-labs/scanqa/services/audit/dataset"
)

// monitorSettleDelay batches bursts of filesystem events from one
// writer into a single re-audit.
const monitorSettleDelay = 2 * time.Second

// Monitor watches a staging directory for new partial snapshots and
// re-runs the pooled audit whenever one lands.
type Monitor struct {
	runner     *Runner
	stagingDir string
	outputDir  string
	mergedName string

	// settle overrides monitorSettleDelay in tests.
	settle time.Duration
}

// NewMonitor creates a Monitor re-auditing into outputDir under the
// given merged dataset name.
func NewMonitor(runner *Runner, stagingDir, outputDir, mergedName string) (*Monitor, error) {
	if runner == nil {
		return nil, fmt.Errorf("%w: nil runner", ErrInvalidInput)
	}
	if stagingDir == "" || outputDir == "" || mergedName == "" {
		return nil, fmt.Errorf("%w: staging dir, output dir and merged name are required",
			ErrInvalidInput)
	}
	return &Monitor{
		runner:     runner,
		stagingDir: stagingDir,
		outputDir:  outputDir,
		mergedName: mergedName,
		settle:     monitorSettleDelay,
	}, nil
}

// Watch blocks until the context is cancelled, re-merging and
// re-auditing after each burst of snapshot writes. An audit failure
// is logged and watching continues: a half-written partial becomes
// consistent on the writer's next event.
func (m *Monitor) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating snapshot watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(m.stagingDir); err != nil {
		return fmt.Errorf("watching %s: %w", m.stagingDir, err)
	}
	m.runner.log.Info("monitoring for partial snapshots",
		"staging_dir", m.stagingDir, "merged_name", m.mergedName)

	// Audit whatever is already staged before waiting for events.
	m.reauditIfReady(ctx)

	var settle *time.Timer
	var settleC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isSnapshotWrite(event) {
				continue
			}
			m.runner.log.Debug("snapshot activity", "path", event.Name, "op", event.Op.String())
			if settle == nil {
				settle = time.NewTimer(m.settle)
				settleC = settle.C
			} else {
				settle.Reset(m.settle)
			}

		case <-settleC:
			settle = nil
			settleC = nil
			m.reauditIfReady(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.runner.log.Warn("snapshot watcher error", "error", err)
		}
	}
}

func isSnapshotWrite(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Rename) {
		return false
	}
	return strings.HasSuffix(event.Name, dataset.SnapshotExt)
}

// reauditIfReady merges the staged partials and runs the pooled
// audit, tolerating an empty or mid-write staging directory.
func (m *Monitor) reauditIfReady(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	merged, err := m.runner.MergePartials(m.stagingDir, m.mergedName)
	if err != nil {
		if errors.Is(err, ErrNoPartials) {
			m.runner.log.Debug("nothing staged yet", "staging_dir", m.stagingDir)
		} else {
			m.runner.log.Warn("merge failed, waiting for next snapshot", "error", err)
		}
		return
	}
	report, err := m.runner.auditor.CheckCompliance(merged, m.outputDir)
	if err != nil {
		m.runner.log.Warn("re-audit failed, waiting for next snapshot", "error", err)
		return
	}
	m.runner.log.Info("re-audit finished", "summary", report.Summary.String())
}
