// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neuroscan-labs/scanqa/pkg/logging"
	"github.com/neuroscan-labs/scanqa/services/audit"
	"github.com/neuroscan-labs/scanqa/services/audit/batch"
	"github.com/neuroscan-labs/scanqa/services/audit/config"
	"github.com/neuroscan-labs/scanqa/services/audit/dataset"
)

var (
	configPath string
	quiet      bool
	verbose    bool

	outputDir  string
	refPath    string
	listsDir   string
	mergeOut   string
	batchCount int
	workers    int
	stagingDir string
	mergedName string

	rootCmd = &cobra.Command{
		Use:          "scanqa",
		Short:        "Audit MRI acquisition protocols for compliance",
		Long:         "scanqa checks that every scan in a neuroimaging dataset was acquired with consistent protocol parameters, flagging runs that deviate from the majority or from a reference protocol.",
		SilenceUsage: true,
	}

	auditCmd = &cobra.Command{
		Use:   "audit [dataset snapshot]",
		Short: "Run the compliance audit over a dataset snapshot",
		Long:  "Loads a dataset snapshot, infers (or loads) the reference protocol, audits every run and writes the non-compliance log, audit history and dataset snapshot to the output directory.",
		Args:  cobra.ExactArgs(1),
		RunE:  runAudit,
	}

	mergeCmd = &cobra.Command{
		Use:   "merge [partial snapshots...]",
		Short: "Merge partial dataset snapshots into one",
		Long:  "Folds two or more partial snapshots into a single dataset. Colliding runs with different parameters abort the merge.",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runMerge,
	}

	parallelCmd = &cobra.Command{
		Use:   "parallel [dataset snapshot]",
		Short: "Audit a dataset in parallel subject batches",
		Long:  "Splits the dataset's subjects into batches, stages each batch as a partial snapshot concurrently, then merges the partials and runs the pooled audit once.",
		Args:  cobra.ExactArgs(1),
		RunE:  runParallel,
	}

	monitorCmd = &cobra.Command{
		Use:   "monitor",
		Short: "Watch a staging directory and re-audit on new partials",
		Long:  "Blocks watching the staging directory; whenever a partial snapshot lands, the partials are re-merged and the pooled audit is re-run.",
		RunE:  runMonitor,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "audit config file (json or yaml)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress console logging")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	auditCmd.Flags().StringVarP(&outputDir, "output", "o", "scanqa_output", "output directory for audit artifacts")
	auditCmd.Flags().StringVar(&refPath, "reference", "", "reference protocol file, overrides majority inference")
	auditCmd.Flags().StringVar(&listsDir, "subject-lists", "", "also export per-sequence non-compliant subject lists here")

	mergeCmd.Flags().StringVarP(&mergeOut, "out", "o", "merged"+dataset.SnapshotExt, "output snapshot path")

	parallelCmd.Flags().StringVarP(&outputDir, "output", "o", "scanqa_output", "output directory for audit artifacts")
	parallelCmd.Flags().IntVarP(&batchCount, "batches", "b", 4, "number of subject batches")
	parallelCmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent batch workers (0 = one per cpu)")
	parallelCmd.Flags().StringVar(&stagingDir, "staging", "scanqa_staging", "directory for partial snapshots")

	monitorCmd.Flags().StringVarP(&outputDir, "output", "o", "scanqa_output", "output directory for audit artifacts")
	monitorCmd.Flags().StringVar(&stagingDir, "staging", "scanqa_staging", "directory watched for partial snapshots")
	monitorCmd.Flags().StringVar(&mergedName, "name", "pooled", "name of the merged dataset")

	rootCmd.AddCommand(auditCmd, mergeCmd, parallelCmd, monitorCmd)
}

// newLogger builds the process logger from the persistent flags.
func newLogger() *logging.Logger {
	level := logging.LevelInfo
	if verbose {
		level = logging.LevelDebug
	}
	return logging.New(logging.Config{Level: level, Quiet: quiet})
}

// loadConfig reads the configured audit config, or the defaults when
// no file was given.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(configPath)
}

func newAuditor(log *logging.Logger) (*audit.Auditor, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if refPath != "" {
		cfg.Horizontal.ReferenceProtocol = refPath
	}
	return audit.NewAuditor(cfg, log)
}

func runAudit(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Close()

	auditor, err := newAuditor(log)
	if err != nil {
		return err
	}
	ds, err := dataset.Load(args[0])
	if err != nil {
		return err
	}

	report, err := auditor.CheckCompliance(ds, outputDir)
	if err != nil {
		return err
	}
	if listsDir != "" {
		if _, err := audit.ExportSubjectLists(report.Horizontal, listsDir); err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.Summary.String())
	if !report.Summary.Complete {
		fmt.Fprintln(cmd.OutOrStdout(), "Details:", report.NCLogPath)
	}
	return nil
}

func runMerge(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Close()

	parts := make([]*dataset.Dataset, 0, len(args))
	for _, path := range args {
		part, err := dataset.Load(path)
		if err != nil {
			return err
		}
		parts = append(parts, part)
	}

	merged, err := dataset.MergeAll(parts, "merged")
	if err != nil {
		return err
	}
	if err := dataset.Save(merged, mergeOut); err != nil {
		return err
	}

	log.Info("merged snapshots", "partials", len(parts), "runs", merged.Len(), "out", mergeOut)
	fmt.Fprintf(cmd.OutOrStdout(), "Merged %d snapshots (%d runs) into %s\n",
		len(parts), merged.Len(), mergeOut)
	return nil
}

func runParallel(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Close()

	auditor, err := newAuditor(log)
	if err != nil {
		return err
	}
	runner, err := batch.NewRunner(auditor, log, workers)
	if err != nil {
		return err
	}
	ds, err := dataset.Load(args[0])
	if err != nil {
		return err
	}

	report, err := runner.Run(cmd.Context(), ds, batchCount, stagingDir, outputDir)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), report.Summary.String())
	return nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Close()

	auditor, err := newAuditor(log)
	if err != nil {
		return err
	}
	runner, err := batch.NewRunner(auditor, log, workers)
	if err != nil {
		return err
	}
	monitor, err := batch.NewMonitor(runner, stagingDir, outputDir, mergedName)
	if err != nil {
		return err
	}
	return monitor.Watch(cmd.Context())
}
