// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package keywords reads the search keyword list driving a pipeline run.
package keywords

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// DefaultColumn is the header name looked for when no column is specified.
const DefaultColumn = "keyword"

// Load reads search keywords from a CSV file. The keyword column is found by
// header name (column, defaulting to "keyword"); a file without a recognized
// header is read as bare keywords in the first column. Duplicates are dropped
// preserving first-seen order, since each keyword fans out to one acquisition
// run.
func Load(path, column string) ([]string, error) {
	if column == "" {
		column = DefaultColumn
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening keyword file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading keyword file: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("keyword file %s is empty", path)
	}

	col := 0
	start := 0
	for i, cell := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(cell), column) {
			col = i
			start = 1
			break
		}
	}

	seen := make(map[string]bool)
	var keywords []string
	for _, row := range rows[start:] {
		if len(row) <= col {
			continue
		}
		kw := strings.TrimSpace(row[col])
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		keywords = append(keywords, kw)
	}
	if len(keywords) == 0 {
		return nil, fmt.Errorf("keyword file %s contains no keywords", path)
	}
	return keywords, nil
}
