// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuroscan-labs/scanqa/services/audit/param"
)

func refParams() map[string]param.Value {
	return map[string]param.Value{
		"RepetitionTime": param.Number(2.0),
		"FlipAngle":      param.Number(90),
		"Manufacturer":   param.String_("SIEMENS"),
		"ShimSetting":    param.Tuple(param.Number(0.1), param.Number(0.2)),
	}
}

func TestCompare_Reflexive(t *testing.T) {
	ref := refParams()
	for _, tolerance := range []float64{0, 0.01, 0.5} {
		result := Compare(ref, ref, Options{Tolerance: tolerance, Decimals: 3})
		assert.True(t, result.Compliant)
		assert.Empty(t, result.Deviations)
	}
}

func TestCompare_ExactMismatch(t *testing.T) {
	run := refParams()
	run["RepetitionTime"] = param.Number(1.5)

	result := Compare(run, refParams(), DefaultOptions())
	assert.False(t, result.Compliant)
	require.Len(t, result.Deviations, 1)

	dev := result.Deviations[0]
	assert.Equal(t, "RepetitionTime", dev.Parameter)
	assert.True(t, param.Number(2.0).Equal(dev.Expected))
	assert.True(t, param.Number(1.5).Equal(dev.Actual))
	assert.False(t, dev.TieAmbiguity)
}

func TestCompare_ToleranceMonotonicity(t *testing.T) {
	run := refParams()
	run["RepetitionTime"] = param.Number(2.02)

	// 1% off the reference: non-compliant at tolerance 0, compliant
	// at 2%, and widening further never flips it back.
	tolerances := []float64{0, 0.001, 0.02, 0.1, 0.5}
	prevCompliant := false
	for _, tolerance := range tolerances {
		result := Compare(run, refParams(), Options{Tolerance: tolerance, Decimals: 3})
		if prevCompliant {
			assert.True(t, result.Compliant, "tolerance %v regressed to non-compliant", tolerance)
		}
		prevCompliant = result.Compliant
	}
	assert.True(t, prevCompliant)
}

func TestCompare_RoundingAbsorbsNoise(t *testing.T) {
	run := refParams()
	run["RepetitionTime"] = param.Number(2.0004)

	assert.True(t, Compare(run, refParams(), Options{Decimals: 3}).Compliant)
	assert.False(t, Compare(run, refParams(), Options{Decimals: 5}).Compliant)
}

func TestCompare_MissingParameterIsDeviation(t *testing.T) {
	run := refParams()
	delete(run, "Manufacturer")

	result := Compare(run, refParams(), DefaultOptions())
	assert.False(t, result.Compliant)
	require.Len(t, result.Deviations, 1)
	assert.Equal(t, "Manufacturer", result.Deviations[0].Parameter)
	assert.True(t, result.Deviations[0].Actual.IsUnspecified())
}

func TestCompare_BothUnspecifiedIsCompliant(t *testing.T) {
	ref := map[string]param.Value{"MultibandFactor": param.Unspecified()}
	run := map[string]param.Value{"MultibandFactor": param.Unspecified()}
	assert.True(t, Compare(run, ref, DefaultOptions()).Compliant)

	// Absent from the run entirely still counts as Unspecified.
	assert.True(t, Compare(map[string]param.Value{}, ref, DefaultOptions()).Compliant)

	// A concrete run value against an Unspecified reference is a
	// mismatch.
	run["MultibandFactor"] = param.Number(2)
	assert.False(t, Compare(run, ref, DefaultOptions()).Compliant)
}

func TestCompare_EqualCountReferenceFlagsTie(t *testing.T) {
	ref := refParams()
	ref["EchoTrainLength"] = param.EqualCount()
	run := refParams()
	run["EchoTrainLength"] = param.Number(4)

	result := Compare(run, ref, DefaultOptions())
	assert.False(t, result.Compliant)
	require.Len(t, result.Deviations, 1)

	dev := result.Deviations[0]
	assert.Equal(t, "EchoTrainLength", dev.Parameter)
	assert.True(t, dev.TieAmbiguity)
	assert.True(t, dev.Expected.IsEqualCount())
}

func TestCompare_TypeMismatchIsDeviation(t *testing.T) {
	run := refParams()
	run["RepetitionTime"] = param.String_("2.0")

	result := Compare(run, refParams(), DefaultOptions())
	assert.False(t, result.Compliant)
	require.Len(t, result.Deviations, 1)
	assert.Equal(t, "RepetitionTime", result.Deviations[0].Parameter)
}

func TestCompare_ExcludedParametersSkipped(t *testing.T) {
	run := refParams()
	run["RepetitionTime"] = param.Number(1.5)
	run["Manufacturer"] = param.String_("GE")

	result := Compare(run, refParams(), Options{
		Decimals:          3,
		ExcludeParameters: []string{"RepetitionTime", "Manufacturer"},
	})
	assert.True(t, result.Compliant)
}

func TestCompare_DeviationsSortedByParameter(t *testing.T) {
	run := map[string]param.Value{}
	result := Compare(run, refParams(), DefaultOptions())

	require.Len(t, result.Deviations, 4)
	names := make([]string, 0, len(result.Deviations))
	for _, dev := range result.Deviations {
		names = append(names, dev.Parameter)
	}
	assert.Equal(t, []string{"FlipAngle", "Manufacturer", "RepetitionTime", "ShimSetting"}, names)
}

func TestCompare_TupleTolerance(t *testing.T) {
	ref := map[string]param.Value{
		"ShimSetting": param.Tuple(param.Number(1.0), param.Number(2.0)),
	}
	run := map[string]param.Value{
		"ShimSetting": param.Tuple(param.Number(1.005), param.Number(2.0)),
	}

	assert.False(t, Compare(run, ref, Options{Tolerance: 0, Decimals: 5}).Compliant)
	assert.True(t, Compare(run, ref, Options{Tolerance: 0.01, Decimals: 5}).Compliant)

	// Length mismatch is never within tolerance.
	run["ShimSetting"] = param.Tuple(param.Number(1.0))
	assert.False(t, Compare(run, ref, Options{Tolerance: 0.5, Decimals: 5}).Compliant)
}
