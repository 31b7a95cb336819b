// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates one harvest run: per keyword it launches the
// acquisition worker, tails the growing corpus into batches, extracts each
// sample, and appends records to the result table. All cross-stage
// coordination is through the filesystem, so an interrupted run resumes from
// whatever reached the corpus and result files.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/sra-harvester/internal/acquire"
	"github.com/pdiddy/sra-harvester/internal/corpus"
	"github.com/pdiddy/sra-harvester/internal/entrez"
	"github.com/pdiddy/sra-harvester/internal/extract"
	"github.com/pdiddy/sra-harvester/internal/results"
	"github.com/pdiddy/sra-harvester/pkg/types"
)

// Deps are the external collaborators a run needs. Tests substitute fakes.
type Deps struct {
	Entrez     entrez.Runner
	Backend    extract.Backend
	Summarizer extract.SummaryFetcher
	Progress   io.Writer
}

// Summary holds the counts from one run.
type Summary struct {
	Keywords  int
	Processed int
	Skipped   int
	Failed    int
	NoSamples int
}

// Run harvests every keyword into resultPath. Keywords are processed
// sequentially; within a keyword, acquisition runs concurrently with
// extraction, and samples may fan out to a small worker pool. Individual
// keyword failures are contained: the run continues and reports them in the
// summary.
func Run(ctx context.Context, keywordList []string, resultPath string, cfg types.PipelineConfig, deps Deps) (Summary, error) {
	if deps.Progress == nil {
		deps.Progress = io.Discard
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	resume, err := results.LoadResumeIndex(resultPath)
	if err != nil {
		return Summary{}, fmt.Errorf("loading resume index: %w", err)
	}
	if len(resume) > 0 {
		fmt.Fprintf(deps.Progress, "resume: %d samples already processed\n", len(resume))
	}

	writer, err := results.NewWriter(resultPath, cfg.Append)
	if err != nil {
		return Summary{}, err
	}
	defer writer.Close()

	var summary Summary
	for _, keyword := range keywordList {
		summary.Keywords++
		if err := runKeyword(ctx, keyword, cfg, deps, resume, writer, &summary); err != nil {
			if errors.Is(err, context.Canceled) {
				return summary, err
			}
			fmt.Fprintf(deps.Progress, "keyword %q failed: %v\n", keyword, err)
			summary.Failed++
		}
	}

	fmt.Fprintf(deps.Progress, "\nRun summary: %d keywords, %d processed, %d skipped, %d empty, %d failed\n",
		summary.Keywords, summary.Processed, summary.Skipped, summary.NoSamples, summary.Failed)
	return summary, nil
}

// runKeyword drives one keyword end to end.
func runKeyword(ctx context.Context, keyword string, cfg types.PipelineConfig, deps Deps, resume map[string]bool, writer *results.Writer, summary *Summary) error {
	workDir := cfg.Acquisition.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("creating work directory: %w", err)
	}
	corpusPath := filepath.Join(workDir, CorpusFileName(keyword))

	fmt.Fprintf(deps.Progress, "== keyword: %s\n", keyword)

	worker := acquire.NewWorker(deps.Entrez, cfg.Acquisition, deps.Progress)
	handle, err := worker.Start(ctx, keyword, corpusPath)
	if err != nil {
		return fmt.Errorf("starting acquisition: %w", err)
	}

	engine := extract.NewEngine(deps.Entrez, deps.Summarizer, deps.Backend, cfg.Extraction, deps.Progress)
	tailer := corpus.NewTailer(corpusPath, cfg.Corpus, handle.Done, deps.Progress)

	var (
		mu        sync.Mutex
		processed int
		skipped   int
		writeErr  error
	)

	for {
		batch, err := tailer.Next(ctx)
		if err != nil {
			handle.Wait()
			return err
		}
		if batch == nil {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Workers)
		for _, accession := range batch {
			if resume[accession] {
				skipped++
				continue
			}
			acc := accession
			g.Go(func() error {
				rec := engine.Process(gctx, keyword, acc)

				mu.Lock()
				defer mu.Unlock()
				if err := writer.Write(rec); err != nil {
					writeErr = err
					return err
				}
				processed++
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			handle.Wait()
			if writeErr != nil {
				return fmt.Errorf("writing results: %w", writeErr)
			}
			return err
		}
	}

	if err := handle.Wait(); err != nil {
		fmt.Fprintf(deps.Progress, "warning: acquisition for %q: %v\n", keyword, err)
	}

	if processed == 0 && skipped == 0 {
		if err := writer.WriteNoSamples(keyword); err != nil {
			return err
		}
		summary.NoSamples++
		fmt.Fprintf(deps.Progress, "no samples found for %q\n", keyword)
	}

	summary.Processed += processed
	summary.Skipped += skipped
	fmt.Fprintf(deps.Progress, "keyword %q done: %d processed, %d skipped\n", keyword, processed, skipped)
	return nil
}

// CorpusFileName derives a stable per-keyword corpus filename.
func CorpusFileName(keyword string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, keyword)
	return "corpus-" + slug + ".csv"
}
