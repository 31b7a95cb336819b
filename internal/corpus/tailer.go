// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pdiddy/sra-harvester/pkg/types"
)

// ErrCorpusTimeout means the corpus file never appeared within the creation
// window. That only happens when acquisition tooling failed to even produce a
// degraded header-only file, so callers treat it as fatal for the keyword.
var ErrCorpusTimeout = errors.New("timed out waiting for corpus file")

// createPollInterval is how often the tailer re-checks for the corpus file
// while waiting for its creation. Var for test substitution.
var createPollInterval = time.Second

// Stats counts what the tailer has seen so far.
type Stats struct {
	Rows      int // data rows consumed
	Eligible  int // accessions yielded (or queued) for processing
	Excluded  int // rows dropped by the library-strategy filter
	Malformed int // rows skipped as unparseable
}

// Tailer incrementally reads the growing corpus file and yields fixed-size
// batches of eligible accessions. It tracks a row cursor rather than a byte
// offset, so the header is parsed exactly once and each re-read resumes from
// the first unprocessed row.
type Tailer struct {
	path         string
	cfg          types.CorpusConfig
	producerDone func() bool
	progress     io.Writer

	waited       bool
	headerParsed bool
	expCol       int
	stratCol     int
	rowCursor    int
	lastSize     int64
	idleCycles   int
	finished     bool
	queue        []string
	stats        Stats
}

// NewTailer returns a Tailer over path. producerDone reports whether the
// acquisition worker has exited; it gates the end-of-stream decision so a
// slow producer is never mistaken for a finished one.
func NewTailer(path string, cfg types.CorpusConfig, producerDone func() bool, progress io.Writer) *Tailer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.CreateTimeout <= 0 {
		cfg.CreateTimeout = 120 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxIdleCycles <= 0 {
		cfg.MaxIdleCycles = 10
	}
	if producerDone == nil {
		producerDone = func() bool { return true }
	}
	if progress == nil {
		progress = io.Discard
	}
	return &Tailer{path: path, cfg: cfg, producerDone: producerDone, progress: progress}
}

// Stats returns the counters accumulated so far.
func (t *Tailer) Stats() Stats {
	return t.stats
}

// Next blocks until a full batch is available, the stream ends, or ctx is
// cancelled. It returns (nil, nil) once the corpus is exhausted and the
// producer has finished; the last batch may be shorter than the batch size.
func (t *Tailer) Next(ctx context.Context) ([]string, error) {
	if t.finished {
		return t.drain(), nil
	}
	if !t.waited {
		if err := t.waitForFile(ctx); err != nil {
			return nil, err
		}
		t.waited = true
	}

	for {
		if len(t.queue) >= t.cfg.BatchSize {
			return t.pop(), nil
		}

		grew, err := t.scan()
		if err != nil {
			fmt.Fprintf(t.progress, "warning: corpus read failed: %v\n", err)
		}

		if grew {
			t.idleCycles = 0
			continue
		}

		t.idleCycles++
		if t.idleCycles > t.cfg.MaxIdleCycles {
			if t.producerDone() {
				t.finished = true
				fmt.Fprintf(t.progress, "acquisition complete: %d rows, %d eligible, %d excluded\n",
					t.stats.Rows, t.stats.Eligible, t.stats.Excluded)
				return t.drain(), nil
			}
			// The producer is alive, just slow. Keep waiting.
			t.idleCycles = 0
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(t.cfg.PollInterval):
		}
	}
}

// waitForFile blocks until the corpus file exists, bounded by CreateTimeout.
func (t *Tailer) waitForFile(ctx context.Context) error {
	deadline := time.Now().Add(t.cfg.CreateTimeout)
	for {
		if _, err := os.Stat(t.path); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s absent after %s", ErrCorpusTimeout, t.path, t.cfg.CreateTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(createPollInterval):
		}
	}
}

// scan re-reads the corpus from the row cursor if the file has grown (or the
// header has not been parsed yet), queueing eligible accessions. It reports
// whether new rows were consumed.
func (t *Tailer) scan() (bool, error) {
	info, err := os.Stat(t.path)
	if err != nil {
		return false, nil // transiently absent; the poll loop retries
	}
	if info.Size() <= t.lastSize && t.headerParsed {
		return false, nil
	}
	t.lastSize = info.Size()

	f, err := os.Open(t.path)
	if err != nil {
		return false, fmt.Errorf("opening corpus: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	if !t.headerParsed {
		header, err := r.Read()
		if err != nil {
			return false, nil // header not written yet
		}
		exp := columnIndex(header, ColumnExperiment)
		strat := columnIndex(header, ColumnLibraryStrategy)
		if exp < 0 || strat < 0 {
			return false, fmt.Errorf("corpus header lacks %s/%s columns", ColumnExperiment, ColumnLibraryStrategy)
		}
		t.expCol, t.stratCol = exp, strat
		t.headerParsed = true
	} else {
		if _, err := r.Read(); err != nil {
			return false, nil
		}
	}

	// Skip rows already consumed in earlier cycles. Malformed rows still
	// advance the cursor, so they are only counted once.
	for i := 0; i < t.rowCursor; i++ {
		if _, err := r.Read(); err == io.EOF {
			return false, nil
		}
	}

	consumed := 0
	for {
		row, err := r.Read()
		if err != nil {
			if err != io.EOF {
				t.rowCursor++
				consumed++
				t.stats.Rows++
				t.stats.Malformed++
				continue
			}
			break
		}
		t.rowCursor++
		consumed++
		t.stats.Rows++
		t.classify(row)
	}

	if consumed > 0 {
		fmt.Fprintf(t.progress, "corpus: +%d rows (eligible %d, excluded %d)\n",
			consumed, t.stats.Eligible, t.stats.Excluded)
	}
	return consumed > 0, nil
}

// classify applies the eligibility rules to one row.
func (t *Tailer) classify(row []string) {
	if len(row) <= t.expCol || len(row) <= t.stratCol {
		t.stats.Malformed++
		return
	}
	acc := strings.TrimSpace(row[t.expCol])
	if !IsAccession(acc) {
		t.stats.Malformed++
		return
	}
	if ExcludedStrategies[strings.TrimSpace(row[t.stratCol])] {
		t.stats.Excluded++
		return
	}
	t.stats.Eligible++
	t.queue = append(t.queue, acc)
}

func (t *Tailer) pop() []string {
	batch := t.queue[:t.cfg.BatchSize:t.cfg.BatchSize]
	t.queue = t.queue[t.cfg.BatchSize:]
	return batch
}

// drain returns whatever remains in the queue, batch-size bounded.
func (t *Tailer) drain() []string {
	if len(t.queue) == 0 {
		return nil
	}
	if len(t.queue) >= t.cfg.BatchSize {
		return t.pop()
	}
	batch := t.queue
	t.queue = nil
	return batch
}
