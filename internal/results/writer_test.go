// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package results

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/sra-harvester/pkg/types"
)

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriter_HeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	w, err := NewWriter(path, false)
	require.NoError(t, err)

	rec := types.NewRecord("prostate cancer", "SRX100")
	rec.Species = "Homo sapiens"
	rec.Status = types.StatusOK
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())

	rows := readAll(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, "SRX100", rows[1][1])
	assert.Equal(t, "Homo sapiens", rows[1][5])
	assert.Equal(t, "ok", rows[1][len(Header)-1])
}

func TestWriter_AppendKeepsExistingRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")

	w, err := NewWriter(path, false)
	require.NoError(t, err)
	require.NoError(t, w.Write(types.NewRecord("kw", "SRX100")))
	require.NoError(t, w.Close())

	w, err = NewWriter(path, true)
	require.NoError(t, err)
	require.NoError(t, w.Write(types.NewRecord("kw", "SRX200")))
	require.NoError(t, w.Close())

	rows := readAll(t, path)
	require.Len(t, rows, 3) // one header, two rows
	assert.Equal(t, "SRX100", rows[1][1])
	assert.Equal(t, "SRX200", rows[2][1])
}

func TestWriter_NoSamplesMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	w, err := NewWriter(path, false)
	require.NoError(t, err)
	require.NoError(t, w.WriteNoSamples("obscure keyword"))
	require.NoError(t, w.Close())

	rows := readAll(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, "obscure keyword", rows[1][0])
	assert.Equal(t, types.NoSamplesMarker, rows[1][1])
}

func TestLoadResumeIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	w, err := NewWriter(path, false)
	require.NoError(t, err)

	ok := types.NewRecord("kw", "SRX100")
	ok.Status = types.StatusOK
	require.NoError(t, w.Write(ok))

	fb := types.NewRecord("kw", "SRX200")
	fb.Status = types.StatusFallback
	require.NoError(t, w.Write(fb))

	failed := types.NewRecord("kw", "SRX300")
	failed.Status = types.StatusFetchFailed
	require.NoError(t, w.Write(failed))

	degraded := types.NewRecord("kw", "SRX400")
	degraded.Status = types.StatusBackendFailed
	require.NoError(t, w.Write(degraded))

	require.NoError(t, w.WriteNoSamples("empty keyword"))
	require.NoError(t, w.Close())

	seen, err := LoadResumeIndex(path)
	require.NoError(t, err)

	// Completed rows are skipped on resume; failures and markers are not.
	assert.True(t, seen["SRX100"])
	assert.True(t, seen["SRX200"])
	assert.False(t, seen["SRX300"])
	assert.False(t, seen["SRX400"])
	assert.False(t, seen[types.NoSamplesMarker])
	assert.Len(t, seen, 2)
}

func TestLoadResumeIndex_MissingFile(t *testing.T) {
	seen, err := LoadResumeIndex(filepath.Join(t.TempDir(), "absent.csv"))
	require.NoError(t, err)
	assert.Empty(t, seen)
}
