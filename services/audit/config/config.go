// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads and validates audit configuration files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// validate is the shared struct validator.
var validate = validator.New()

// SequencePair declares one vertical-audit pairing.
type SequencePair struct {
	// A is the sequence whose runs are judged.
	A string `json:"a" yaml:"a" validate:"required"`

	// B is the sequence providing the reference values.
	B string `json:"b" yaml:"b" validate:"required,nefield=A"`
}

// HorizontalConfig configures the within-sequence audit.
type HorizontalConfig struct {
	// IncludeParameters are the parameter names considered for
	// compliance. Parameters not listed are ignored.
	IncludeParameters []string `json:"include_parameters" yaml:"include_parameters" validate:"required,min=1,dive,required"`

	// StratifyBy optionally names a secondary parameter whose value
	// splits a sequence into separate inference groups.
	// Default: "" (no stratification)
	StratifyBy string `json:"stratify_by,omitempty" yaml:"stratify_by,omitempty"`

	// Tolerance is the relative numeric tolerance. Zero means exact
	// equality after rounding.
	// Default: 0
	Tolerance float64 `json:"tolerance" yaml:"tolerance" validate:"gte=0"`

	// Decimals rounds numeric values before comparison. Negative
	// disables rounding.
	// Default: 3
	Decimals int `json:"decimals" yaml:"decimals"`

	// ExcludeParameters are reference parameters skipped during
	// comparison even when included for inference.
	ExcludeParameters []string `json:"exclude_parameters,omitempty" yaml:"exclude_parameters,omitempty"`

	// ReferenceProtocol optionally points to a user-authored
	// protocol file. When set, inference is skipped and runs are
	// audited against the file instead.
	// Default: "" (infer the reference by majority vote)
	ReferenceProtocol string `json:"reference_protocol,omitempty" yaml:"reference_protocol,omitempty"`
}

// VerticalConfig configures the cross-sequence audit.
type VerticalConfig struct {
	// IncludeParameters are the parameter names compared between the
	// two sides of each pair.
	IncludeParameters []string `json:"include_parameters" yaml:"include_parameters" validate:"required,min=1,dive,required"`

	// SequencePairs declares which sequences are compared. Empty
	// pairs fall back to automatic pairing of echo-planar sequences
	// with field maps.
	SequencePairs []SequencePair `json:"sequence_pairs,omitempty" yaml:"sequence_pairs,omitempty" validate:"dive"`

	// Tolerance is the relative numeric tolerance.
	// Default: 0
	Tolerance float64 `json:"tolerance" yaml:"tolerance" validate:"gte=0"`

	// Decimals rounds numeric values before comparison. Zero is
	// treated as the default; negative disables rounding.
	// Default: 3
	Decimals int `json:"decimals" yaml:"decimals"`
}

// Config is the full audit configuration.
type Config struct {
	Horizontal HorizontalConfig `json:"horizontal_audit" yaml:"horizontal_audit"`
	Vertical   *VerticalConfig  `json:"vertical_audit,omitempty" yaml:"vertical_audit,omitempty"`
}

// DefaultConfig returns a Config auditing the parameters that most
// often drift between scanner sessions.
func DefaultConfig() *Config {
	return &Config{
		Horizontal: HorizontalConfig{
			IncludeParameters: []string{
				"RepetitionTime",
				"EchoTime",
				"FlipAngle",
				"EchoTrainLength",
				"PixelBandwidth",
				"ScanningSequence",
				"SequenceVariant",
				"MRAcquisitionType",
				"PhaseEncodingDirection",
				"ShimSetting",
			},
			Tolerance: 0,
			Decimals:  3,
		},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid audit config: %w", err)
	}
	return nil
}

// Load reads a configuration file. The format follows the extension:
// .json, .yaml or .yml. The loaded config is validated before being
// returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty config path", ErrInvalidInput)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading audit config: %w", err)
	}

	// Unmarshal over the defaults so omitted fields keep them.
	cfg := DefaultConfig()
	switch ext := filepath.Ext(path); ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing audit config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing audit config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if cfg.Vertical != nil && cfg.Vertical.Decimals == 0 {
		cfg.Vertical.Decimals = 3
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
