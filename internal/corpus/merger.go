// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// incrementalLineBudget bounds how many scratch lines one incremental merge
// may process, so merging never stalls the poll loop for long.
const incrementalLineBudget = 1000

// Merger appends rows from a scratch file into the stable corpus file,
// deduplicated by experiment accession. The dedup set is rebuilt from the
// corpus file on every invocation rather than cached: merges are infrequent
// relative to row volume, and rebuilding keeps the merge correct across
// process restarts and concurrent readers.
type Merger struct {
	corpusPath string
	excluded   map[string]bool

	// Scratch header state survives across incremental calls because the
	// header line is only ever read once, in the first chunk.
	expCol   int
	stratCol int
	hasCols  bool
}

// NewMerger returns a Merger targeting corpusPath. Rows whose library
// strategy is in excluded are dropped; pass nil to keep everything.
func NewMerger(corpusPath string, excluded map[string]bool) *Merger {
	return &Merger{corpusPath: corpusPath, excluded: excluded, expCol: -1, stratCol: -1}
}

// MergeIncremental processes scratch-file bytes from offset onward, appending
// complete, previously unseen rows to the corpus. It is line-oriented and
// best-effort: at most incrementalLineBudget lines are consumed per call, and
// a trailing partial line is left for the next call. It returns the number of
// rows appended and the new offset.
func (m *Merger) MergeIncremental(scratchPath string, offset int64) (int, int64, error) {
	f, err := os.Open(scratchPath)
	if err != nil {
		return 0, offset, fmt.Errorf("opening scratch file: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return 0, offset, fmt.Errorf("seeking scratch file: %w", err)
	}

	seen, corpusHeader, err := m.loadSeen()
	if err != nil {
		return 0, offset, err
	}
	m.adoptHeader(corpusHeader)

	var (
		newRows [][]string
		header  []string = corpusHeader
		reader           = bufio.NewReader(f)
		lines   int
	)

	for lines < incrementalLineBudget {
		line, err := reader.ReadString('\n')
		if err != nil {
			// Partial trailing line: the producer is still writing it.
			// Leave it for the next call.
			break
		}
		lines++
		offset += int64(len(line))

		row, ok := m.parseLine(line)
		if !ok {
			continue
		}
		if header == nil && m.hasCols {
			header = row // first scratch header becomes the corpus header
			continue
		}
		if acc := m.eligible(row, seen); acc != "" {
			newRows = append(newRows, row)
			seen[acc] = true
		}
	}

	added, err := m.append(header, corpusHeader != nil, newRows)
	return added, offset, err
}

// MergeFinal reprocesses the entire scratch file, stripping any interleaved
// diagnostic XML the fetch tool emits mid-stream, and appends every complete
// unseen row. Running it after incremental merges is a no-op for rows already
// captured: the dedup set contains them.
func (m *Merger) MergeFinal(scratchPath string) (int, error) {
	data, err := os.ReadFile(scratchPath)
	if err != nil {
		return 0, fmt.Errorf("reading scratch file: %w", err)
	}

	seen, corpusHeader, err := m.loadSeen()
	if err != nil {
		return 0, err
	}
	m.adoptHeader(corpusHeader)

	var (
		newRows  [][]string
		header   []string = corpusHeader
		inMarkup bool
	)

	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "<?xml"):
			inMarkup = true
			continue
		case inMarkup && strings.HasPrefix(trimmed, "</eFetchResult>"):
			inMarkup = false
			continue
		case inMarkup || trimmed == "":
			continue
		}

		row, ok := m.parseLine(line)
		if !ok {
			continue
		}
		if header == nil && m.hasCols {
			header = row
			continue
		}
		if acc := m.eligible(row, seen); acc != "" {
			newRows = append(newRows, row)
			seen[acc] = true
		}
	}

	return m.append(header, corpusHeader != nil, newRows)
}

// adoptHeader fixes the column indices from an existing corpus header, so a
// Merger restarted mid-download can resume without re-reading the scratch
// header it already consumed.
func (m *Merger) adoptHeader(header []string) {
	if m.hasCols || header == nil {
		return
	}
	if exp := columnIndex(header, ColumnExperiment); exp >= 0 {
		m.expCol = exp
		m.stratCol = columnIndex(header, ColumnLibraryStrategy)
		m.hasCols = true
	}
}

// parseLine parses one CSV line. Header detection happens here: the first
// line containing the Experiment column fixes the column indices for all
// subsequent calls. Diagnostic markup and short fragments are rejected.
func (m *Merger) parseLine(line string) ([]string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "<") {
		return nil, false
	}

	r := csv.NewReader(strings.NewReader(trimmed))
	r.FieldsPerRecord = -1
	row, err := r.Read()
	if err != nil {
		return nil, false
	}

	if !m.hasCols {
		if exp := columnIndex(row, ColumnExperiment); exp >= 0 {
			m.expCol = exp
			m.stratCol = columnIndex(row, ColumnLibraryStrategy)
			m.hasCols = true
			return row, true
		}
		return nil, false
	}
	return row, true
}

// eligible returns the row's accession if the row should be appended:
// well-formed accession, not yet in the corpus, strategy not excluded.
func (m *Merger) eligible(row []string, seen map[string]bool) string {
	if !m.hasCols || len(row) <= m.expCol {
		return ""
	}
	acc := strings.TrimSpace(row[m.expCol])
	if !IsAccession(acc) || seen[acc] {
		return ""
	}
	if m.excluded != nil && m.stratCol >= 0 && len(row) > m.stratCol {
		if m.excluded[strings.TrimSpace(row[m.stratCol])] {
			return ""
		}
	}
	return acc
}

// loadSeen rebuilds the dedup set from the corpus file's current contents and
// returns the corpus header, if any.
func (m *Merger) loadSeen() (map[string]bool, []string, error) {
	seen := make(map[string]bool)

	f, err := os.Open(m.corpusPath)
	if err != nil {
		if os.IsNotExist(err) {
			return seen, nil, nil
		}
		return nil, nil, fmt.Errorf("opening corpus file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return seen, nil, nil // empty or unreadable corpus: treat as fresh
	}
	expCol := columnIndex(header, ColumnExperiment)
	if expCol < 0 {
		return seen, header, nil
	}

	for {
		row, err := r.Read()
		if err != nil {
			break
		}
		if len(row) > expCol {
			if acc := strings.TrimSpace(row[expCol]); IsAccession(acc) {
				seen[acc] = true
			}
		}
	}
	return seen, header, nil
}

// append writes the header (for a fresh corpus) and the new rows, then
// flushes and syncs so a crash between merges loses at most this increment.
func (m *Merger) append(header []string, corpusHasHeader bool, rows [][]string) (int, error) {
	if len(rows) == 0 && (corpusHasHeader || header == nil) {
		return 0, nil
	}

	f, err := os.OpenFile(m.corpusPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("opening corpus for append: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if !corpusHasHeader && header != nil {
		if err := w.Write(header); err != nil {
			return 0, fmt.Errorf("writing corpus header: %w", err)
		}
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return 0, fmt.Errorf("writing corpus row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("flushing corpus: %w", err)
	}
	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("syncing corpus: %w", err)
	}
	return len(rows), nil
}
