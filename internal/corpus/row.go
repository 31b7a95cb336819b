// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus maintains the per-keyword corpus file: a stable, deduplicated
// table of runinfo rows. A Merger appends newly observed rows from the raw
// download scratch file, and a Tailer turns the growing corpus into batches of
// sample accessions.
package corpus

import (
	"regexp"
	"strings"
)

// Column names the search/fetch service is required to emit.
const (
	ColumnExperiment      = "Experiment"
	ColumnLibraryStrategy = "LibraryStrategy"
)

// accessionPattern matches normalized experiment accessions: a three-letter
// archive prefix (SRA, ENA, or DDBJ) followed by digits.
var accessionPattern = regexp.MustCompile(`^(SRX|ERX|DRX)\d+$`)

// IsAccession reports whether s is a well-formed experiment accession.
func IsAccession(s string) bool {
	return accessionPattern.MatchString(s)
}

// ExcludedStrategies lists library strategies that never yield useful
// metadata: cloning artifacts, validation runs, and assay types outside the
// pipeline's scope. Rows carrying one of these are filtered out.
var ExcludedStrategies = map[string]bool{
	"WGA": true, "CLONE": true, "POOLCLONE": true, "CLONEEND": true,
	"FINISHING": true, "Synthetic-Long-Read": true, "FAIRE-seq": true,
	"SELEX": true, "RIP-Seq": true, "ChIA-PET": true, "MNase-Seq": true,
	"DNase-Hypersensitivity": true, "EST": true, "FL-cDNA": true, "CTS": true,
	"MRE-Seq": true, "MeDIP-Seq": true, "MBD-Seq": true, "Tn-Seq": true,
	"VALIDATION": true, "OTHER": true,
}

// fallbackHeaderColumns is the runinfo column set written when acquisition
// runs in degraded mode and no header ever arrives from the fetch tool, so
// downstream readers always find a parseable file.
var fallbackHeaderColumns = []string{
	"Run", "ReleaseDate", "LoadDate", "spots", "bases", "spots_with_mates",
	"avgLength", "size_MB", "AssemblyName", "download_path", "Experiment",
	"LibraryName", "LibraryStrategy", "LibrarySelection", "LibrarySource",
	"LibraryLayout", "InsertSize", "InsertDev", "Platform", "Model",
	"SRAStudy", "BioProject", "Study_Pubmed_id", "ProjectID", "Sample",
	"BioSample", "SampleType", "TaxID", "ScientificName", "SampleName",
	"g1k_pop_code", "source", "g1k_analysis_group", "Subject_ID", "Sex",
	"Disease", "Tumor", "Affection_Status", "Analyte_Type",
	"Histological_Type", "Body_Site", "CenterName", "Submission",
	"dbgap_study_accession", "Consent", "RunHash", "ReadHash",
}

// FallbackHeader returns the degraded-mode header line, newline-terminated.
func FallbackHeader() string {
	return strings.Join(fallbackHeaderColumns, ",") + "\n"
}

// columnIndex returns the position of name in header, or -1.
func columnIndex(header []string, name string) int {
	for i, col := range header {
		if strings.TrimSpace(col) == name {
			return i
		}
	}
	return -1
}
