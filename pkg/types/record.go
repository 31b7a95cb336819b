// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the configuration and data types shared across stages.
package types

// NotAvailable is the canonical marker for a field whose value could not be
// determined. It is written verbatim into the result table so downstream
// consumers never see an empty cell.
const NotAvailable = "N/A"

// RecordStatus describes how a result row was produced.
type RecordStatus string

const (
	// StatusOK means the backend returned structured output that parsed.
	StatusOK RecordStatus = "ok"

	// StatusFallback means structured parsing failed and the fields were
	// recovered by deterministic pattern extraction.
	StatusFallback RecordStatus = "fallback"

	// StatusFetchFailed means the experiment description could not be fetched;
	// all metadata fields carry the unavailable marker.
	StatusFetchFailed RecordStatus = "fetch_failed"

	// StatusBackendFailed means the inference backend was exhausted for this
	// sample; metadata comes from deterministic extraction only.
	StatusBackendFailed RecordStatus = "backend_failed"
)

// NoSamplesMarker is written as the accession of the single result row emitted
// for a keyword whose acquisition produced no eligible samples.
const NoSamplesMarker = "NO_SRA_IDS_FOUND"

// MetadataRecord is one output row: a sample accession plus the synthesized
// metadata fields. Records are created once per accession and appended exactly
// once; they are never mutated afterwards.
type MetadataRecord struct {
	Keyword         string       `json:"keyword" yaml:"keyword"`
	Accession       string       `json:"accession" yaml:"accession"`
	GSE             string       `json:"gse_accession" yaml:"gse_accession"`
	GSM             string       `json:"gsm_accession" yaml:"gsm_accession"`
	ExperimentTitle string       `json:"experiment_title" yaml:"experiment_title"`
	Species         string       `json:"species" yaml:"species"`
	Technique       string       `json:"sequencing_technique" yaml:"sequencing_technique"`
	SampleType      string       `json:"sample_type" yaml:"sample_type"`
	CellLine        string       `json:"cell_line_name" yaml:"cell_line_name"`
	TissueType      string       `json:"tissue_type" yaml:"tissue_type"`
	Disease         string       `json:"disease_description" yaml:"disease_description"`
	Treatment       string       `json:"treatment" yaml:"treatment"`
	LibrarySource   string       `json:"library_source" yaml:"library_source"`
	Instrument      string       `json:"instrument_model" yaml:"instrument_model"`
	IsChIPSeq       string       `json:"is_chipseq_related_experiment" yaml:"is_chipseq_related_experiment"`
	AntibodyTarget  string       `json:"chipseq_antibody_target" yaml:"chipseq_antibody_target"`
	Summary         string       `json:"scientific_sample_summary" yaml:"scientific_sample_summary"`
	Status          RecordStatus `json:"status" yaml:"status"`
}

// NewRecord returns a record for the given accession with every metadata field
// set to the unavailable marker and the ChIP-seq flag defaulted to "no".
func NewRecord(keyword, accession string) MetadataRecord {
	return MetadataRecord{
		Keyword:         keyword,
		Accession:       accession,
		GSE:             NotAvailable,
		GSM:             NotAvailable,
		ExperimentTitle: NotAvailable,
		Species:         NotAvailable,
		Technique:       NotAvailable,
		SampleType:      NotAvailable,
		CellLine:        NotAvailable,
		TissueType:      NotAvailable,
		Disease:         NotAvailable,
		Treatment:       NotAvailable,
		LibrarySource:   NotAvailable,
		Instrument:      NotAvailable,
		IsChIPSeq:       "no",
		AntibodyTarget:  NotAvailable,
		Summary:         NotAvailable,
		Status:          StatusOK,
	}
}

// Field names used for study-context bookkeeping and response parsing. They
// match the keys the extraction prompt asks the model to emit.
const (
	FieldExperimentTitle = "experiment_title"
	FieldSpecies         = "species"
	FieldTechnique       = "sequencing_technique"
	FieldSampleType      = "sample_type"
	FieldCellLine        = "cell_line_name"
	FieldTissueType      = "tissue_type"
	FieldDisease         = "disease_description"
	FieldTreatment       = "treatment"
	FieldLibrarySource   = "library_source"
	FieldInstrument      = "instrument_model"
	FieldIsChIPSeq       = "is_chipseq_related_experiment"
	FieldAntibodyTarget  = "chipseq_antibody_target"
	FieldSummary         = "scientific_sample_summary"
)

// MetadataFields lists every model-extracted field in result-column order.
var MetadataFields = []string{
	FieldExperimentTitle,
	FieldSpecies,
	FieldTechnique,
	FieldSampleType,
	FieldCellLine,
	FieldTissueType,
	FieldDisease,
	FieldTreatment,
	FieldLibrarySource,
	FieldInstrument,
	FieldIsChIPSeq,
	FieldAntibodyTarget,
	FieldSummary,
}

// Fields returns the record's model-extracted values keyed by field name.
func (r *MetadataRecord) Fields() map[string]string {
	return map[string]string{
		FieldExperimentTitle: r.ExperimentTitle,
		FieldSpecies:         r.Species,
		FieldTechnique:       r.Technique,
		FieldSampleType:      r.SampleType,
		FieldCellLine:        r.CellLine,
		FieldTissueType:      r.TissueType,
		FieldDisease:         r.Disease,
		FieldTreatment:       r.Treatment,
		FieldLibrarySource:   r.LibrarySource,
		FieldInstrument:      r.Instrument,
		FieldIsChIPSeq:       r.IsChIPSeq,
		FieldAntibodyTarget:  r.AntibodyTarget,
		FieldSummary:         r.Summary,
	}
}

// SetField assigns a model-extracted value by field name. Unknown names are
// ignored so that extra keys in a backend response cannot corrupt a record.
func (r *MetadataRecord) SetField(name, value string) {
	switch name {
	case FieldExperimentTitle:
		r.ExperimentTitle = value
	case FieldSpecies:
		r.Species = value
	case FieldTechnique:
		r.Technique = value
	case FieldSampleType:
		r.SampleType = value
	case FieldCellLine:
		r.CellLine = value
	case FieldTissueType:
		r.TissueType = value
	case FieldDisease:
		r.Disease = value
	case FieldTreatment:
		r.Treatment = value
	case FieldLibrarySource:
		r.LibrarySource = value
	case FieldInstrument:
		r.Instrument = value
	case FieldIsChIPSeq:
		r.IsChIPSeq = value
	case FieldAntibodyTarget:
		r.AntibodyTarget = value
	case FieldSummary:
		r.Summary = value
	}
}
