// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"text/template"

	"github.com/pdiddy/sra-harvester/pkg/types"
)

// Truncation limits keep the prompt inside a small local model's useful
// context window. The XML carries the essential fields near the top.
const (
	maxPromptXML     = 6000
	maxPromptSummary = 800
)

// extractionPromptTmpl instructs the model to emit one flat JSON object with
// the metadata fields. The hint block, when present, biases it toward
// study-consistent answers.
var extractionPromptTmpl = template.Must(template.New("extraction").Parse(`You are an expert biomedical data curator with deep knowledge of sequencing archives, genomics, and cell biology. Extract metadata for one sequencing sample with scientific precision.

Rules:
- Use only information present in the provided records. Never invent values.
- Cell line names may hide in library names and sample titles (e.g. "LNP_2" means LNCaP); expand known abbreviations.
- If a tissue is named but no cell line, sample_type is "tissue", not "cell line".
- For treatments, report gene modifications as GENE_knockout / GENE_knockdown / GENE_overexpression and drug exposure as DRUG_treated; "control" or "WT" when explicitly untreated.
- A field you cannot determine is exactly "N/A".
{{if .Hints}}
{{.Hints}}{{end}}
Sample:
- Accession: {{.Accession}}
- Series: {{.GSE}}
- Sample: {{.GSM}}
- Search keyword: {{.Keyword}}

Sequencing archive record (XML):
{{.XML}}

{{if .GeoSummary}}Cross-referenced sample description:
{{.GeoSummary}}

{{end}}Respond with a single JSON object and nothing else, using exactly these keys:
{"experiment_title": "...", "species": "...", "sequencing_technique": "...", "sample_type": "...", "cell_line_name": "...", "tissue_type": "...", "disease_description": "...", "treatment": "...", "library_source": "...", "instrument_model": "...", "is_chipseq_related_experiment": "yes|no", "chipseq_antibody_target": "...", "scientific_sample_summary": "one dense sentence describing the sample"}
`))

// promptInput carries everything one prompt is assembled from.
type promptInput struct {
	Accession  string
	GSE        string
	GSM        string
	Keyword    string
	XML        string
	GeoSummary string
	Hints      string
}

// renderPrompt executes the extraction template, truncating the bulky inputs.
func renderPrompt(in promptInput) (string, error) {
	in.XML = truncate(in.XML, maxPromptXML)
	if in.GeoSummary == types.NotAvailable {
		in.GeoSummary = ""
	}
	in.GeoSummary = truncate(in.GeoSummary, maxPromptSummary)

	var buf bytes.Buffer
	if err := extractionPromptTmpl.Execute(&buf, in); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
