// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/sra-harvester/pkg/types"
)

// QueryOptions holds parameters for archive queries.
type QueryOptions struct {
	// Query is the FTS5 full-text search string, matched against titles,
	// summaries, treatments, and disease descriptions.
	Query string

	// Keyword filters by the harvest keyword a sample was found under.
	Keyword string

	// Species filters by scientific name.
	Species string

	// Technique filters by sequencing technique.
	Technique string

	// GSE filters by study group.
	GSE string

	// CellLine filters by cell line name.
	CellLine string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Keyword == "" && q.Species == "" &&
		q.Technique == "" && q.GSE == "" && q.CellLine == ""
}

// Search queries the archive with optional full-text search and structured
// filters. Results are ranked by relevance for full-text queries or sorted by
// study group and accession otherwise.
func (s *Store) Search(ctx context.Context, opts QueryOptions) ([]types.MetadataRecord, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	const columns = `t.accession, t.keyword, t.gse, t.gsm, t.title, t.species,
		t.technique, t.sample_type, t.cell_line, t.tissue, t.disease,
		t.treatment, t.library_source, t.instrument, t.chipseq, t.chip_target,
		t.summary, t.status`

	if useFTS {
		qb.WriteString(`SELECT ` + columns + `
			FROM samples_fts
			JOIN samples t ON t.rowid = samples_fts.rowid
			WHERE samples_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(`SELECT ` + columns + `
			FROM samples t
			WHERE 1=1`)
	}

	filters := []struct {
		column string
		value  string
	}{
		{"t.keyword", opts.Keyword},
		{"t.species", opts.Species},
		{"t.technique", opts.Technique},
		{"t.gse", opts.GSE},
		{"t.cell_line", opts.CellLine},
	}
	for _, f := range filters {
		if f.value == "" {
			continue
		}
		qb.WriteString(` AND ` + f.column + ` = ?`)
		args = append(args, f.value)
	}

	if useFTS {
		qb.WriteString(` ORDER BY samples_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY t.gse, t.accession`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying archive: %w", err)
	}
	defer rows.Close()

	var recs []types.MetadataRecord
	for rows.Next() {
		var rec types.MetadataRecord
		var status string
		if err := rows.Scan(
			&rec.Accession, &rec.Keyword, &rec.GSE, &rec.GSM,
			&rec.ExperimentTitle, &rec.Species, &rec.Technique, &rec.SampleType,
			&rec.CellLine, &rec.TissueType, &rec.Disease, &rec.Treatment,
			&rec.LibrarySource, &rec.Instrument, &rec.IsChIPSeq,
			&rec.AntibodyTarget, &rec.Summary, &status,
		); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		rec.Status = types.RecordStatus(status)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
