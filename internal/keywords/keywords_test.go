// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package keywords

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keywords.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_HeaderedColumn(t *testing.T) {
	path := writeFile(t, "id,keyword\n1,prostate cancer\n2,histone h3\n")
	got, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"prostate cancer", "histone h3"}, got)
}

func TestLoad_BareFirstColumn(t *testing.T) {
	path := writeFile(t, "prostate cancer\nhistone h3\n")
	got, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"prostate cancer", "histone h3"}, got)
}

func TestLoad_DeduplicatesPreservingOrder(t *testing.T) {
	path := writeFile(t, "keyword\nb\na\nb\nc\na\n")
	got, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, got)
}

func TestLoad_NamedColumn(t *testing.T) {
	path := writeFile(t, "term,count\nenzalutamide,5\n")
	got, err := Load(path, "term")
	require.NoError(t, err)
	assert.Equal(t, []string{"enzalutamide"}, got)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.csv"), "")
	assert.Error(t, err)

	_, err = Load(writeFile(t, "keyword\n"), "")
	assert.Error(t, err)
}
