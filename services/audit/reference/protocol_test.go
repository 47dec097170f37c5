// Copyright (C) 2026 NeuroScan Labs (eng@neuroscan-labs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package reference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuroscan-labs/scanqa/services/audit/param"
)

func writeRef(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestProtocol_AddGet(t *testing.T) {
	p := NewProtocol("site_a")
	assert.True(t, p.IsEmpty())

	p.Add(&SequenceRef{
		SequenceID: "T1w",
		Source:     ProvenanceInferred,
		Params:     map[string]param.Value{"RepetitionTime": param.Number(2.0)},
	})
	p.Add(&SequenceRef{SequenceID: "DWI", Source: ProvenanceInferred})
	p.Add(nil)
	p.Add(&SequenceRef{})

	assert.Equal(t, 2, p.Len())
	assert.Equal(t, []string{"DWI", "T1w"}, p.SequenceIDs())

	ref, ok := p.Get("T1w")
	require.True(t, ok)
	assert.True(t, param.Number(2.0).Equal(ref.Params["RepetitionTime"]))

	_, ok = p.Get("rs-fMRI")
	assert.False(t, ok)
}

func TestProtocol_AddReplaces(t *testing.T) {
	p := NewProtocol("site_a")
	p.Add(&SequenceRef{
		SequenceID: "T1w",
		Params:     map[string]param.Value{"RepetitionTime": param.Number(2.0)},
	})
	p.Add(&SequenceRef{
		SequenceID: "T1w",
		Params:     map[string]param.Value{"RepetitionTime": param.Number(2.3)},
	})

	ref, ok := p.Get("T1w")
	require.True(t, ok)
	assert.Equal(t, 1, p.Len())
	assert.True(t, param.Number(2.3).Equal(ref.Params["RepetitionTime"]))
}

func TestLoadProtocol_JSON(t *testing.T) {
	path := writeRef(t, "ref.json", `{
		"sequences": {
			"T1w": {
				"RepetitionTime": 2.0,
				"Manufacturer": "SIEMENS",
				"MultibandFactor": null,
				"ShimSetting": [0.1, 0.2]
			},
			"rs-fMRI": {"RepetitionTime": 0.8}
		}
	}`)

	p, err := LoadProtocol(path)
	require.NoError(t, err)
	assert.Equal(t, "ref.json", p.Name())
	assert.Equal(t, []string{"T1w", "rs-fMRI"}, p.SequenceIDs())

	ref, ok := p.Get("T1w")
	require.True(t, ok)
	assert.Equal(t, ProvenanceUserSupplied, ref.Source)
	assert.True(t, param.Number(2.0).Equal(ref.Params["RepetitionTime"]))
	assert.True(t, param.String_("SIEMENS").Equal(ref.Params["Manufacturer"]))
	assert.True(t, ref.Params["MultibandFactor"].IsUnspecified())
	assert.True(t, param.Tuple(param.Number(0.1), param.Number(0.2)).Equal(ref.Params["ShimSetting"]))
}

func TestLoadProtocol_YAML(t *testing.T) {
	path := writeRef(t, "ref.yaml", `
sequences:
  T1w:
    RepetitionTime: 2.0
    FlipAngle: 9
`)

	p, err := LoadProtocol(path)
	require.NoError(t, err)

	ref, ok := p.Get("T1w")
	require.True(t, ok)
	assert.Equal(t, ProvenanceUserSupplied, ref.Source)
	assert.True(t, param.Number(2.0).Equal(ref.Params["RepetitionTime"]))
	assert.True(t, param.Number(9).Equal(ref.Params["FlipAngle"]))
}

func TestLoadProtocol_Errors(t *testing.T) {
	_, err := LoadProtocol("")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = LoadProtocol(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadProtocol(writeRef(t, "ref.txt", "whatever"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = LoadProtocol(writeRef(t, "broken.json", `{"sequences": {`))
	assert.Error(t, err)

	_, err = LoadProtocol(writeRef(t, "empty.json", `{"sequences": {}}`))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestProvenanceString(t *testing.T) {
	assert.Equal(t, "inferred", ProvenanceInferred.String())
	assert.Equal(t, "user_supplied", ProvenanceUserSupplied.String())
	assert.Equal(t, "unknown", Provenance(99).String())
}
