// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive persists extracted sample metadata in a SQLite database and
// builds a full-text index over it, so completed harvests can be searched and
// exported without re-running the pipeline.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/sra-harvester/internal/results"
	"github.com/pdiddy/sra-harvester/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "archive.db"
)

// Store manages the sample archive SQLite database.
type Store struct {
	db         *sql.DB
	archiveDir string
	maxResults int
}

// NewStore opens or creates the archive database at dir/index/archive.db,
// creating the schema if it does not exist.
func NewStore(cfg types.ArchiveConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.Dir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, archiveDir: cfg.Dir, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS samples (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			accession TEXT NOT NULL UNIQUE,
			keyword TEXT,
			gse TEXT,
			gsm TEXT,
			title TEXT,
			species TEXT,
			technique TEXT,
			sample_type TEXT,
			cell_line TEXT,
			tissue TEXT,
			disease TEXT,
			treatment TEXT,
			library_source TEXT,
			instrument TEXT,
			chipseq TEXT,
			chip_target TEXT,
			summary TEXT,
			status TEXT,
			source_file TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_samples_gse ON samples(gse)`,
		`CREATE INDEX IF NOT EXISTS idx_samples_keyword ON samples(keyword)`,
		`CREATE TABLE IF NOT EXISTS ingest_status (
			source_file TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='samples_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE samples_fts USING fts5(title, summary, treatment, disease, content=samples, content_rowid=rowid)`,
			`CREATE TRIGGER samples_ai AFTER INSERT ON samples BEGIN
				INSERT INTO samples_fts(rowid, title, summary, treatment, disease)
				VALUES (new.rowid, new.title, new.summary, new.treatment, new.disease);
			END`,
			`CREATE TRIGGER samples_ad AFTER DELETE ON samples BEGIN
				INSERT INTO samples_fts(samples_fts, rowid, title, summary, treatment, disease)
				VALUES('delete', old.rowid, old.title, old.summary, old.treatment, old.disease);
			END`,
			`CREATE TRIGGER samples_au AFTER UPDATE ON samples BEGIN
				INSERT INTO samples_fts(samples_fts, rowid, title, summary, treatment, disease)
				VALUES('delete', old.rowid, old.title, old.summary, old.treatment, old.disease);
				INSERT INTO samples_fts(rowid, title, summary, treatment, disease)
				VALUES (new.rowid, new.title, new.summary, new.treatment, new.disease);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IngestSummary holds counts from an archive indexing run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of result files processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest reads result CSV files from dir and populates the database. Files
// whose modification time matches the last indexing run are skipped, so
// re-running after an appended harvest only touches the changed files.
func (s *Store) Ingest(ctx context.Context, dir string, w io.Writer) (IngestSummary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading result directory %s: %w", dir, err)
	}

	var summary IngestSummary

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		name := entry.Name()
		path := filepath.Join(dir, name)

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM ingest_status WHERE source_file = ?`, name,
		).Scan(&storedModTime)

		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", name)
			summary.Skipped++
			continue
		}
		isUpdate := err == nil

		records, err := results.ReadFile(path)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		if err := s.ingestFile(ctx, name, records, modTime, isUpdate); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d samples)\n", name, len(records))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d samples)\n", name, len(records))
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	if summary.Indexed > 0 || summary.Updated > 0 {
		if err := s.ExportYAML(ctx, QueryOptions{}); err != nil {
			fmt.Fprintf(w, "warning: export.yaml write failed: %v\n", err)
		}
	}

	return summary, nil
}

func (s *Store) ingestFile(ctx context.Context, sourceFile string, records []types.MetadataRecord, modTime string, isUpdate bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Re-ingesting a file replaces everything it contributed before.
	if isUpdate {
		if _, err := tx.ExecContext(ctx, `DELETE FROM samples WHERE source_file = ?`, sourceFile); err != nil {
			return fmt.Errorf("deleting old samples: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO samples (accession, keyword, gse, gsm, title, species, technique,
			sample_type, cell_line, tissue, disease, treatment, library_source,
			instrument, chipseq, chip_target, summary, status, source_file)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(accession) DO UPDATE SET
			keyword=excluded.keyword, gse=excluded.gse, gsm=excluded.gsm,
			title=excluded.title, species=excluded.species, technique=excluded.technique,
			sample_type=excluded.sample_type, cell_line=excluded.cell_line,
			tissue=excluded.tissue, disease=excluded.disease, treatment=excluded.treatment,
			library_source=excluded.library_source, instrument=excluded.instrument,
			chipseq=excluded.chipseq, chip_target=excluded.chip_target,
			summary=excluded.summary, status=excluded.status, source_file=excluded.source_file`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		// Error-status rows carry no usable metadata; a later resumed run
		// replaces them in the result file, not here.
		if rec.Status == types.StatusFetchFailed || rec.Status == types.StatusBackendFailed {
			continue
		}
		_, err := stmt.ExecContext(ctx,
			rec.Accession, rec.Keyword, rec.GSE, rec.GSM, rec.ExperimentTitle,
			rec.Species, rec.Technique, rec.SampleType, rec.CellLine,
			rec.TissueType, rec.Disease, rec.Treatment, rec.LibrarySource,
			rec.Instrument, rec.IsChIPSeq, rec.AntibodyTarget, rec.Summary,
			string(rec.Status), sourceFile,
		)
		if err != nil {
			return fmt.Errorf("inserting sample %s: %w", rec.Accession, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ingest_status (source_file, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(source_file) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		sourceFile, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating ingest status: %w", err)
	}

	return tx.Commit()
}
