// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package geo discovers GEO cross-references for SRA experiments: accession
// extraction from experiment XML and the brief SOFT-format summary lookup.
// Both are deterministic and independent of the inference backend, so a
// degraded backend never blocks accession discovery.
package geo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"

	"github.com/pdiddy/sra-harvester/internal/httputil"
	"github.com/pdiddy/sra-harvester/pkg/types"
)

// Accessions are the GEO identifiers cross-referenced from one experiment.
// Either may carry the unavailable marker.
type Accessions struct {
	GSE string
	GSM string
}

// Pattern lists are ordered most-specific first; the bare-number forms at the
// end catch accessions mentioned in free text. First match wins.
var (
	gsePatterns = []*regexp.Regexp{
		regexp.MustCompile(`<STUDY_REF accession="(GSE\d+)"`),
		regexp.MustCompile(`<EXTERNAL_ID namespace="GEO">(GSE\d+)</EXTERNAL_ID>`),
		regexp.MustCompile(`alias="(GSE\d+)"`),
		regexp.MustCompile(`GSE(\d+)`),
	}
	gsmPatterns = []*regexp.Regexp{
		regexp.MustCompile(`<EXPERIMENT alias="(GSM\d+)`),
		regexp.MustCompile(`<EXTERNAL_ID namespace="GEO">(GSM\d+)</EXTERNAL_ID>`),
		regexp.MustCompile(`<SAMPLE alias="(GSM\d+)"`),
		regexp.MustCompile(`sample_name="(GSM\d+)"`),
		regexp.MustCompile(`<LIBRARY_NAME>(GSM\d+)</LIBRARY_NAME>`),
		regexp.MustCompile(`GSM(\d+)`),
	}
)

// ExtractAccessions scans experiment XML for GEO series and sample
// accessions.
func ExtractAccessions(xml string) Accessions {
	return Accessions{
		GSE: firstMatch(gsePatterns, xml, "GSE"),
		GSM: firstMatch(gsmPatterns, xml, "GSM"),
	}
}

func firstMatch(patterns []*regexp.Regexp, text, prefix string) string {
	for _, p := range patterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		acc := m[1]
		// The loose numeric patterns capture digits only.
		if acc != "" && acc[0] >= '0' && acc[0] <= '9' {
			acc = prefix + acc
		}
		return acc
	}
	return types.NotAvailable
}

// softBaseURL is the GEO accession viewer endpoint. Var for test
// substitution.
var softBaseURL = "https://www.ncbi.nlm.nih.gov/geo/query/acc.cgi"

const maxSummaryLen = 1500

// Summarizer fetches brief GEO SOFT summaries for GSM accessions.
type Summarizer struct {
	client    *http.Client
	userAgent string
}

// NewSummarizer returns a Summarizer using client; a nil client means the
// default one.
func NewSummarizer(client *http.Client, userAgent string) *Summarizer {
	if client == nil {
		client = http.DefaultClient
	}
	return &Summarizer{client: client, userAgent: userAgent}
}

// Fetch retrieves the brief SOFT text for one GSM accession, truncated to a
// prompt-friendly length. Any failure degrades to the unavailable marker:
// the summary enriches the prompt but is never required.
func (s *Summarizer) Fetch(ctx context.Context, gsm string) string {
	if gsm == "" || gsm == types.NotAvailable {
		return types.NotAvailable
	}

	u := fmt.Sprintf("%s?acc=%s&form=text&view=brief", softBaseURL, url.QueryEscape(gsm))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return types.NotAvailable
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0)
	if err != nil {
		return types.NotAvailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.NotAvailable
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSummaryLen))
	if err != nil || len(body) == 0 {
		return types.NotAvailable
	}
	return string(body)
}
