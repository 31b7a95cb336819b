// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package results persists extracted metadata records to the append-only
// result table and rebuilds the resume set from it on startup.
package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/pdiddy/sra-harvester/pkg/types"
)

// Header is the result-table column order. Existing result files are only
// appendable when their header matches.
var Header = []string{
	"keyword",
	"experiment_accession",
	"gse_accession",
	"gsm_accession",
	"experiment_title",
	"species",
	"sequencing_technique",
	"sample_type",
	"cell_line_name",
	"tissue_type",
	"disease_description",
	"treatment",
	"library_source",
	"instrument_model",
	"is_chipseq_related_experiment",
	"chipseq_antibody_target",
	"scientific_sample_summary",
	"status",
}

// Writer appends records to the result CSV. Every record is flushed and
// synced immediately: a crash mid-run loses at most the in-flight sample,
// and the file stays a valid resume source.
type Writer struct {
	f *os.File
	w *csv.Writer
}

// NewWriter opens path for appending, creating it with a header when fresh.
// With appendMode false an existing file is truncated first.
func NewWriter(path string, appendMode bool) (*Writer, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening result file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat result file: %w", err)
	}

	w := &Writer{f: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := w.w.Write(Header); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing result header: %w", err)
		}
		if err := w.flush(); err != nil {
			f.Close()
			return nil, err
		}
	}
	return w, nil
}

// Write appends one record.
func (w *Writer) Write(rec types.MetadataRecord) error {
	if err := w.w.Write(row(rec)); err != nil {
		return fmt.Errorf("writing result row: %w", err)
	}
	return w.flush()
}

// WriteNoSamples appends the explicit marker row for a keyword whose
// acquisition produced no eligible samples, so an empty keyword is
// distinguishable from an unprocessed one.
func (w *Writer) WriteNoSamples(keyword string) error {
	rec := types.NewRecord(keyword, types.NoSamplesMarker)
	return w.Write(rec)
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

func (w *Writer) flush() error {
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return fmt.Errorf("flushing result file: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("syncing result file: %w", err)
	}
	return nil
}

func row(rec types.MetadataRecord) []string {
	return []string{
		rec.Keyword,
		rec.Accession,
		rec.GSE,
		rec.GSM,
		rec.ExperimentTitle,
		rec.Species,
		rec.Technique,
		rec.SampleType,
		rec.CellLine,
		rec.TissueType,
		rec.Disease,
		rec.Treatment,
		rec.LibrarySource,
		rec.Instrument,
		rec.IsChIPSeq,
		rec.AntibodyTarget,
		rec.Summary,
		string(rec.Status),
	}
}

// errorStatuses mark rows whose samples should be reattempted on resume.
var errorStatuses = map[string]bool{
	string(types.StatusFetchFailed):   true,
	string(types.StatusBackendFailed): true,
}

// LoadResumeIndex rebuilds the set of already-processed accessions from an
// existing result file. Rows with an error status are excluded so failed
// samples get another chance; marker rows are excluded because they name no
// sample. A missing file yields an empty set.
func LoadResumeIndex(path string) (map[string]bool, error) {
	seen := make(map[string]bool)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return seen, nil
		}
		return nil, fmt.Errorf("opening result file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	accCol, statusCol := 1, len(Header)-1
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // damaged row, likely a crash artifact
		}
		if first {
			first = false
			if len(rec) > 0 && rec[0] == Header[0] {
				continue
			}
		}
		if len(rec) <= accCol {
			continue
		}
		acc := rec[accCol]
		if acc == "" || acc == types.NoSamplesMarker {
			continue
		}
		if len(rec) > statusCol && errorStatuses[rec[statusCol]] {
			continue
		}
		seen[acc] = true
	}
	return seen, nil
}
