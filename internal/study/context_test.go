// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package study

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/sra-harvester/pkg/types"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name      string
		accession string
		gse       string
		want      string
	}{
		{"gse wins", "SRX29141268", "GSE12345", "GSE12345"},
		{"prefix grouping", "SRX29141268", "N/A", "SRX29141"},
		{"empty gse", "ERX1234567", "", "ERX12345"},
		{"short accession", "SRX12", "N/A", "SRX12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.accession, tt.gse))
		})
	}
}

func TestRepair_SingleHistoricalValue(t *testing.T) {
	c := NewContext("GSE1")
	r := types.NewRecord("kw", "SRX100")
	r.Species = "Homo sapiens"
	c.Observe(&r)

	// Unavailable candidate is replaced.
	got, repaired := c.Repair(types.FieldSpecies, types.NotAvailable)
	assert.True(t, repaired)
	assert.Equal(t, "Homo sapiens", got)

	// Conflicting candidate is replaced.
	got, repaired = c.Repair(types.FieldSpecies, "Mus musculus")
	assert.True(t, repaired)
	assert.Equal(t, "Homo sapiens", got)

	// Matching candidate passes through.
	got, repaired = c.Repair(types.FieldSpecies, "Homo sapiens")
	assert.False(t, repaired)
	assert.Equal(t, "Homo sapiens", got)
}

func TestRepair_AmbiguousHistoryLeavesCandidate(t *testing.T) {
	c := NewContext("GSE1")
	for _, sp := range []string{"Homo sapiens", "Mus musculus"} {
		r := types.NewRecord("kw", "SRX100")
		r.Species = sp
		c.Observe(&r)
	}

	got, repaired := c.Repair(types.FieldSpecies, "Rattus norvegicus")
	assert.False(t, repaired)
	assert.Equal(t, "Rattus norvegicus", got)
}

func TestRepair_NoHistoryLeavesCandidate(t *testing.T) {
	c := NewContext("GSE1")
	got, repaired := c.Repair(types.FieldSpecies, types.NotAvailable)
	assert.False(t, repaired)
	assert.Equal(t, types.NotAvailable, got)
}

func TestRepairRecord(t *testing.T) {
	c := NewContext("GSE1")
	prior := types.NewRecord("kw", "SRX100")
	prior.Species = "Homo sapiens"
	prior.CellLine = "LNCaP"
	c.Observe(&prior)

	r := types.NewRecord("kw", "SRX101")
	r.Species = types.NotAvailable
	r.CellLine = "LNCaP"
	repaired := c.RepairRecord(&r)

	assert.Equal(t, []string{types.FieldSpecies}, repaired)
	assert.Equal(t, "Homo sapiens", r.Species)
	assert.Equal(t, "LNCaP", r.CellLine)
}

func TestObserve_DeduplicatesAndSkipsUnavailable(t *testing.T) {
	c := NewContext("GSE1")
	for i := 0; i < 3; i++ {
		r := types.NewRecord("kw", "SRX100")
		r.Species = "Homo sapiens"
		r.CellLine = types.NotAvailable
		c.Observe(&r)
	}

	assert.Equal(t, 3, c.Samples())
	assert.Equal(t, []string{"Homo sapiens"}, c.Values(types.FieldSpecies))
	assert.Empty(t, c.Values(types.FieldCellLine))
}

func TestHints_InstrumentGroupedByTechnique(t *testing.T) {
	c := NewContext("GSE1")
	r1 := types.NewRecord("kw", "SRX100")
	r1.Technique = "RNA-Seq"
	r1.Instrument = "Illumina NovaSeq 6000"
	c.Observe(&r1)
	r2 := types.NewRecord("kw", "SRX101")
	r2.Technique = "ChIP-Seq"
	r2.Instrument = "Illumina HiSeq 2500"
	c.Observe(&r2)

	hints := c.Hints()
	assert.Contains(t, hints, "instrument for RNA-Seq: Illumina NovaSeq 6000")
	assert.Contains(t, hints, "instrument for ChIP-Seq: Illumina HiSeq 2500")
}

func TestHints_EmptyContext(t *testing.T) {
	assert.Empty(t, NewContext("GSE1").Hints())
}

func TestSummaryReuse(t *testing.T) {
	c := NewContext("GSE1")
	assert.Equal(t, types.NotAvailable, c.Summary())

	r := types.NewRecord("kw", "SRX100")
	r.Summary = "CRISPR screen in prostate cancer cells."
	c.Observe(&r)

	// First captured summary sticks.
	r2 := types.NewRecord("kw", "SRX101")
	r2.Summary = "A different summary."
	c.Observe(&r2)
	assert.Equal(t, "CRISPR screen in prostate cancer cells.", c.Summary())
}

func TestSessions_RefreshOnGroupChange(t *testing.T) {
	s := NewSessions(30)

	c1, refresh := s.ContextFor("SRX29141268", "N/A")
	assert.True(t, refresh)

	// Same prefix group: no refresh, same context.
	c2, refresh := s.ContextFor("SRX29141269", "N/A")
	assert.False(t, refresh)
	assert.Same(t, c1, c2)

	// New group: refresh with a fresh context.
	c3, refresh := s.ContextFor("SRX99900001", "N/A")
	assert.True(t, refresh)
	assert.NotSame(t, c1, c3)
}

func TestSessions_PeriodicRefreshPreservesContext(t *testing.T) {
	s := NewSessions(3)

	c1, _ := s.ContextFor("SRX10000001", "GSE7")
	refreshes := 0
	for i := 0; i < 6; i++ {
		c, refresh := s.ContextFor("SRX10000002", "GSE7")
		assert.Same(t, c1, c, "context must survive intra-group rotation")
		if refresh {
			refreshes++
		}
	}
	assert.Equal(t, 2, refreshes)
}
