// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/sra-harvester/pkg/types"
)

func TestParse_WholeResponse(t *testing.T) {
	p := Parse(`{"species": "Homo sapiens", "cell_line_name": "LNCaP"}`)
	assert.True(t, p.Structured)
	assert.Equal(t, "Homo sapiens", p.Fields[types.FieldSpecies])
	assert.Equal(t, "LNCaP", p.Fields[types.FieldCellLine])
}

func TestParse_FencedBlock(t *testing.T) {
	raw := "Here is the extraction:\n```json\n{\"species\": \"Mus musculus\"}\n```\nLet me know if you need more."
	p := Parse(raw)
	assert.True(t, p.Structured)
	assert.Equal(t, "Mus musculus", p.Fields[types.FieldSpecies])
}

func TestParse_ProseWrappedSpan(t *testing.T) {
	raw := `Sure! Here is the data: {"species":"Homo sapiens", "sequencing_technique":"RNA-Seq"} as requested.`
	p := Parse(raw)
	assert.True(t, p.Structured)
	assert.Equal(t, "Homo sapiens", p.Fields[types.FieldSpecies])
	assert.Equal(t, "RNA-Seq", p.Fields[types.FieldTechnique])
}

func TestParse_LargestSpanWins(t *testing.T) {
	raw := `{"note": 1} and the real answer {"species": "Homo sapiens", "treatment": "control", "cell_line_name": "PC3"}`
	p := Parse(raw)
	assert.True(t, p.Structured)
	assert.Equal(t, "PC3", p.Fields[types.FieldCellLine])
}

func TestParse_Unstructured(t *testing.T) {
	p := Parse("I could not find any information about this sample.")
	assert.False(t, p.Structured)
	assert.Equal(t, "I could not find any information about this sample.", p.Raw)
}

func TestParse_ScalarCoercion(t *testing.T) {
	p := Parse(`{"is_chipseq_related_experiment": true, "species": "Homo sapiens"}`)
	assert.True(t, p.Structured)
	assert.Equal(t, "yes", p.Fields[types.FieldIsChIPSeq])
}

func TestParse_UnknownKeysIgnored(t *testing.T) {
	p := Parse(`{"bogus_key": "x", "species": "Homo sapiens"}`)
	assert.True(t, p.Structured)
	_, ok := p.Fields["bogus_key"]
	assert.False(t, ok)
}

func TestParse_ObjectWithNoKnownFieldsFallsThrough(t *testing.T) {
	p := Parse(`{"bogus_key": "x"}`)
	assert.False(t, p.Structured)
}
