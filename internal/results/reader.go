// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/pdiddy/sra-harvester/pkg/types"
)

// ReadFile parses a result CSV back into records. Marker rows are skipped;
// damaged rows are dropped the same way LoadResumeIndex drops them.
func ReadFile(path string) ([]types.MetadataRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening result file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var records []types.MetadataRecord
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if first {
			first = false
			if len(row) > 0 && row[0] == Header[0] {
				continue
			}
		}
		if len(row) < len(Header) {
			continue
		}
		if row[1] == types.NoSamplesMarker {
			continue
		}
		records = append(records, fromRow(row))
	}
	return records, nil
}

func fromRow(row []string) types.MetadataRecord {
	return types.MetadataRecord{
		Keyword:         row[0],
		Accession:       row[1],
		GSE:             row[2],
		GSM:             row[3],
		ExperimentTitle: row[4],
		Species:         row[5],
		Technique:       row[6],
		SampleType:      row[7],
		CellLine:        row[8],
		TissueType:      row[9],
		Disease:         row[10],
		Treatment:       row[11],
		LibrarySource:   row[12],
		Instrument:      row[13],
		IsChIPSeq:       row[14],
		AntibodyTarget:  row[15],
		Summary:         row[16],
		Status:          types.RecordStatus(row[17]),
	}
}
