// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire supervises the external search pipeline that populates a
// keyword's corpus file. The worker streams runinfo rows into a scratch file,
// merges them incrementally into the corpus while the download is still
// running, and performs an authoritative final merge when it finishes.
package acquire

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pdiddy/sra-harvester/internal/corpus"
	"github.com/pdiddy/sra-harvester/internal/entrez"
	"github.com/pdiddy/sra-harvester/pkg/types"
)

// Worker launches and supervises one acquisition per keyword.
type Worker struct {
	runner   entrez.Runner
	cfg      types.AcquisitionConfig
	progress io.Writer
}

// NewWorker returns a Worker using runner for the external tooling. Zero
// config fields get conservative defaults.
func NewWorker(runner entrez.Runner, cfg types.AcquisitionConfig, progress io.Writer) *Worker {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 5 * time.Minute
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.GrowthThreshold <= 0 {
		cfg.GrowthThreshold = 10 * 1024
	}
	if progress == nil {
		progress = io.Discard
	}
	return &Worker{runner: runner, cfg: cfg, progress: progress}
}

// Handle tracks a running acquisition. Consumers poll Done to couple their
// own exit conditions to the producer's liveness, and Wait for the outcome.
type Handle struct {
	done     chan struct{}
	err      error
	rows     int
	degraded bool
}

// Done reports whether the acquisition has finished, successfully or not.
func (h *Handle) Done() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the acquisition finishes and returns its error, if any.
// A non-nil error does not mean the corpus is empty: rows merged before the
// failure remain valid.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Rows returns the number of rows merged into the corpus. Only meaningful
// after Done reports true.
func (h *Handle) Rows() int {
	return h.rows
}

// Degraded reports whether the worker ran without the external tools and
// only wrote a header-only corpus.
func (h *Handle) Degraded() bool {
	return h.degraded
}

// Start begins acquiring rows for keyword into corpusPath. The corpus file
// exists by the time Start returns, so downstream readers can begin tailing
// immediately. When the external tools are missing, the worker degrades to
// writing a header-only corpus and finishes at once.
func (w *Worker) Start(ctx context.Context, keyword, corpusPath string) (*Handle, error) {
	h := &Handle{done: make(chan struct{})}

	if !w.runner.Available() {
		fmt.Fprintf(w.progress, "warning: E-utilities not available, writing header-only corpus\n")
		if err := os.WriteFile(corpusPath, []byte(corpus.FallbackHeader()), 0o644); err != nil {
			return nil, fmt.Errorf("writing fallback corpus: %w", err)
		}
		h.degraded = true
		close(h.done)
		return h, nil
	}

	// Touch the corpus so the tailer never waits on file creation. An empty
	// file is still "fresh" to the merger, which writes the header on the
	// first append.
	f, err := os.OpenFile(corpusPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating corpus file: %w", err)
	}
	f.Close()

	workDir := w.cfg.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	scratch, err := os.CreateTemp(workDir, "sra-scratch-*.csv")
	if err != nil {
		return nil, fmt.Errorf("creating scratch file: %w", err)
	}

	query := entrez.BuildQuery(keyword)
	proc, err := w.runner.StartFetch(ctx, query, scratch)
	if err != nil {
		scratch.Close()
		os.Remove(scratch.Name())
		return nil, fmt.Errorf("starting fetch pipeline: %w", err)
	}

	fmt.Fprintf(w.progress, "acquiring %q -> %s\n", keyword, corpusPath)
	go w.supervise(ctx, proc, scratch, corpusPath, h)
	return h, nil
}

// supervise polls the scratch file while the pipeline runs, merging whenever
// it has grown past the threshold, and finishes with an authoritative full
// merge. The scratch file is removed afterwards; the corpus is the only
// durable artifact.
func (w *Worker) supervise(ctx context.Context, proc entrez.Process, scratch *os.File, corpusPath string, h *Handle) {
	merger := corpus.NewMerger(corpusPath, corpus.ExcludedStrategies)
	deadline := time.Now().Add(w.cfg.FetchTimeout)

	var (
		offset     int64
		lastMerged int64
		timedOut   bool
	)

	for !proc.Done() {
		if time.Now().After(deadline) {
			fmt.Fprintf(w.progress, "warning: fetch exceeded %s, killing pipeline\n", w.cfg.FetchTimeout)
			proc.Kill()
			timedOut = true
			break
		}

		select {
		case <-ctx.Done():
			proc.Kill()
		case <-time.After(w.cfg.PollInterval):
		}
		if ctx.Err() != nil {
			break
		}

		info, err := os.Stat(scratch.Name())
		if err != nil || info.Size()-lastMerged < w.cfg.GrowthThreshold {
			continue
		}
		added, newOffset, err := merger.MergeIncremental(scratch.Name(), offset)
		if err != nil {
			fmt.Fprintf(w.progress, "warning: incremental merge failed: %v\n", err)
			continue
		}
		offset = newOffset
		lastMerged = info.Size()
		h.rows += added
		if added > 0 {
			fmt.Fprintf(w.progress, "merged %d new rows (total %d)\n", added, h.rows)
		}
	}

	procErr := proc.Wait()
	scratch.Close()

	added, mergeErr := merger.MergeFinal(scratch.Name())
	h.rows += added
	os.Remove(scratch.Name())

	switch {
	case timedOut:
		h.err = fmt.Errorf("fetch timed out after %s", w.cfg.FetchTimeout)
	case ctx.Err() != nil:
		h.err = ctx.Err()
	case mergeErr != nil:
		h.err = fmt.Errorf("final merge: %w", mergeErr)
	case procErr != nil:
		h.err = fmt.Errorf("fetch pipeline: %w", procErr)
	}

	fmt.Fprintf(w.progress, "acquisition finished: %d rows in corpus\n", h.rows)
	close(h.done)
}
