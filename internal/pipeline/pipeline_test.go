// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/sra-harvester/internal/entrez"
	"github.com/pdiddy/sra-harvester/internal/results"
	"github.com/pdiddy/sra-harvester/pkg/types"
)

const scratchPayload = "Run,Experiment,LibraryStrategy,ScientificName\n" +
	"SRR1,SRX100,RNA-Seq,Homo sapiens\n" +
	"SRR2,SRX101,ChIP-Seq,Homo sapiens\n"

// fakeProcess finishes as soon as it is created; the payload is written
// synchronously by StartFetch.
type fakeProcess struct{ killed bool }

func (p *fakeProcess) Done() bool  { return true }
func (p *fakeProcess) Wait() error { return nil }
func (p *fakeProcess) Kill()       { p.killed = true }

// fakeRunner serves canned runinfo CSV and experiment XML.
type fakeRunner struct {
	available bool
	payload   string
}

func (r *fakeRunner) Available() bool { return r.available }

func (r *fakeRunner) StartFetch(_ context.Context, _ string, out io.Writer) (entrez.Process, error) {
	if _, err := io.WriteString(out, r.payload); err != nil {
		return nil, err
	}
	return &fakeProcess{}, nil
}

func (r *fakeRunner) ExperimentXML(_ context.Context, accession string) (string, error) {
	return "<EXPERIMENT accession=\"" + accession + "\"><TITLE>LNCaP RNA-seq</TITLE></EXPERIMENT>", nil
}

// fakeBackend returns one canned structured response for every prompt.
type fakeBackend struct {
	response string
	calls    int
}

func (b *fakeBackend) Generate(context.Context, string) (string, error) {
	b.calls++
	return b.response, nil
}

func (b *fakeBackend) Ping(context.Context) error { return nil }
func (b *fakeBackend) Refresh()                   {}

type fakeSummarizer struct{}

func (fakeSummarizer) Fetch(context.Context, string) string { return "N/A" }

func testConfig(workDir string) types.PipelineConfig {
	return types.PipelineConfig{
		Acquisition: types.AcquisitionConfig{
			FetchTimeout:    5 * time.Second,
			PollInterval:    time.Millisecond,
			GrowthThreshold: 1,
			WorkDir:         workDir,
		},
		Corpus: types.CorpusConfig{
			BatchSize:     10,
			CreateTimeout: time.Second,
			PollInterval:  time.Millisecond,
			MaxIdleCycles: 2,
		},
		Extraction: types.ExtractionConfig{
			AIConfig: types.AIConfig{
				Model:       "test",
				MaxRetries:  1,
				CallTimeout: time.Second,
				MinInterval: time.Millisecond,
			},
		},
		Workers: 2,
	}
}

func testDeps(runner entrez.Runner, backend *fakeBackend) Deps {
	return Deps{
		Entrez:     runner,
		Backend:    backend,
		Summarizer: fakeSummarizer{},
		Progress:   &bytes.Buffer{},
	}
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRunProcessesKeyword(t *testing.T) {
	dir := t.TempDir()
	resultPath := filepath.Join(dir, "results.csv")
	runner := &fakeRunner{available: true, payload: scratchPayload}
	backend := &fakeBackend{response: `{"species": "Homo sapiens", "cell_line_name": "LNCaP", "sequencing_technique": "RNA-Seq"}`}

	summary, err := Run(context.Background(), []string{"prostate cancer"}, resultPath, testConfig(dir), testDeps(runner, backend))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Keywords)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 2, backend.calls)

	rows := readRows(t, resultPath)
	require.Len(t, rows, 3) // header + two samples
	accessions := []string{rows[1][1], rows[2][1]}
	assert.ElementsMatch(t, []string{"SRX100", "SRX101"}, accessions)
	assert.Equal(t, string(types.StatusOK), rows[1][len(rows[1])-1])
}

func TestRunSkipsResumedSamples(t *testing.T) {
	dir := t.TempDir()
	resultPath := filepath.Join(dir, "results.csv")

	w, err := results.NewWriter(resultPath, false)
	require.NoError(t, err)
	rec := types.NewRecord("prostate cancer", "SRX100")
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())

	runner := &fakeRunner{available: true, payload: scratchPayload}
	backend := &fakeBackend{response: `{"species": "Homo sapiens"}`}
	cfg := testConfig(dir)
	cfg.Append = true

	summary, err := Run(context.Background(), []string{"prostate cancer"}, resultPath, cfg, testDeps(runner, backend))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, backend.calls)

	rows := readRows(t, resultPath)
	require.Len(t, rows, 3)
	assert.Equal(t, "SRX101", rows[2][1])
}

func TestRunDegradedModeWritesMarker(t *testing.T) {
	dir := t.TempDir()
	resultPath := filepath.Join(dir, "results.csv")
	runner := &fakeRunner{available: false}
	backend := &fakeBackend{}

	summary, err := Run(context.Background(), []string{"obscure keyword"}, resultPath, testConfig(dir), testDeps(runner, backend))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.NoSamples)
	assert.Equal(t, 0, summary.Processed)
	assert.Zero(t, backend.calls)

	rows := readRows(t, resultPath)
	require.Len(t, rows, 2)
	assert.Equal(t, types.NoSamplesMarker, rows[1][1])
}

func TestRunKeywordFailureDoesNotAbortRun(t *testing.T) {
	dir := t.TempDir()
	resultPath := filepath.Join(dir, "results.csv")

	// A regular file where the work directory should be makes setup fail for
	// every keyword.
	blocker := filepath.Join(dir, "work")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	cfg := testConfig(blocker)
	runner := &fakeRunner{available: true, payload: scratchPayload}
	backend := &fakeBackend{response: "{}"}

	summary, err := Run(context.Background(), []string{"first", "second"}, resultPath, cfg, testDeps(runner, backend))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Keywords)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 0, summary.Processed)
}

func TestRunContextCancellation(t *testing.T) {
	dir := t.TempDir()
	resultPath := filepath.Join(dir, "results.csv")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &fakeRunner{available: true, payload: scratchPayload}
	backend := &fakeBackend{response: "{}"}

	_, err := Run(ctx, []string{"prostate cancer"}, resultPath, testConfig(dir), testDeps(runner, backend))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCorpusFileName(t *testing.T) {
	assert.Equal(t, "corpus-prostate-cancer.csv", CorpusFileName("Prostate Cancer"))
	assert.Equal(t, "corpus-h3k27ac.csv", CorpusFileName("H3K27ac"))
}
