// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pdiddy/sra-harvester/pkg/types"
)

// fallback.go holds the deterministic pattern extractors used when the
// backend's response cannot be parsed, or the backend is exhausted. They are
// intentionally narrow: a wrong guess here is worse than an unavailable
// marker.

// knownCellLines maps lowercase aliases to canonical cell line names.
var knownCellLines = map[string]string{
	"lncap": "LNCaP", "pc3": "PC3", "pc-3": "PC3",
	"du145": "DU145", "du-145": "DU145", "22rv1": "22Rv1",
	"vcap": "VCaP", "c4-2": "C4-2", "c42": "C4-2",
	"mcf7": "MCF-7", "mcf-7": "MCF-7", "t47d": "T47D",
	"mda-mb-231": "MDA-MB-231", "hela": "HeLa",
	"hek293": "HEK293", "293t": "293T", "a549": "A549", "hct116": "HCT116",
}

var (
	genericCellRe  = regexp.MustCompile(`\b([A-Z0-9\-]+)\s+cells?\b`)
	cellLinePhrase = regexp.MustCompile(`\bcell\s+line\s+([A-Z0-9\-]+)\b`)
	cellStopWords  = map[string]bool{"CANCER": true, "CELLS": true, "PROSTATE": true}

	cellAliasRes = compileAliases()
)

type aliasPattern struct {
	re        *regexp.Regexp
	canonical string
}

// compileAliases builds word-bounded matchers in deterministic alias order so
// ties resolve stably.
func compileAliases() []aliasPattern {
	aliases := make([]string, 0, len(knownCellLines))
	for a := range knownCellLines {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)

	patterns := make([]aliasPattern, 0, len(aliases))
	for _, a := range aliases {
		patterns = append(patterns, aliasPattern{
			re:        regexp.MustCompile(`\b` + regexp.QuoteMeta(a) + `\b`),
			canonical: knownCellLines[a],
		})
	}
	return patterns
}

// DetectCellLine scans free text for a cell line name: the alias table first,
// then generic "<NAME> cells" / "cell line <NAME>" phrasings.
func DetectCellLine(text string) string {
	if text == "" || text == types.NotAvailable {
		return types.NotAvailable
	}
	lower := strings.ToLower(text)

	for _, p := range cellAliasRes {
		if p.re.MatchString(lower) {
			return p.canonical
		}
	}

	for _, re := range []*regexp.Regexp{genericCellRe, cellLinePhrase} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			candidate := strings.ToUpper(strings.TrimSpace(m[1]))
			if len(candidate) > 2 && !cellStopWords[candidate] {
				return candidate
			}
		}
	}
	return types.NotAvailable
}

var (
	controlRe = regexp.MustCompile(`(?i)\b(control|vehicle|pbs|sinc|sicontrol|shcontrol|scrambled|untreated|wild[-_]?type|wt|ctrl|mock|placebo|baseline)\b`)
	dmsoRe    = regexp.MustCompile(`(?i)\b(treated with dmso|dmso control|dmso vehicle)\b`)

	knockoutRes = []*regexp.Regexp{
		regexp.MustCompile(`\bsg([A-Z][A-Z0-9_]+)\b`),
		regexp.MustCompile(`\b([A-Z][A-Z0-9]+)[_\-]knockout\b`),
		regexp.MustCompile(`\bko[_\-]([A-Z][A-Z0-9]+)\b`),
		regexp.MustCompile(`\b([A-Z][A-Z0-9]+)\s+knockout\b`),
	}
	knockdownRes = []*regexp.Regexp{
		regexp.MustCompile(`\bsi([A-Z][A-Z0-9]+)\b`),
		regexp.MustCompile(`\bsh([A-Z][A-Z0-9]+)\b`),
		regexp.MustCompile(`\b([A-Z][A-Z0-9]+)[_\-]knockdown\b`),
		regexp.MustCompile(`\b([A-Z][A-Z0-9]+)\s+knockdown\b`),
	}
	overexpressionRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b([A-Z][A-Z0-9]+)[_\-]overexpress\w*\b`),
		regexp.MustCompile(`(?i)\boverexpress\w*\s+([A-Z][A-Z0-9]+)\b`),
		regexp.MustCompile(`(?i)\b([A-Z][A-Z0-9]+)\s+overexpression\b`),
	}
	drugRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\btreated with ([a-z0-9\-]+)`),
		regexp.MustCompile(`(?i)\b([a-z0-9\-]+)[-_\s]treated\b`),
		regexp.MustCompile(`(?i)\b(enzalutamide|enza|jq1|prt2527)\b`),
	}

	geneStopWords = map[string]bool{
		"SI": true, "SH": true, "RNA": true, "WERE": true, "THE": true, "AND": true,
	}
	compoundStopWords = map[string]bool{
		"cells": true, "cell": true, "dmso": true, "were": true,
		"the": true, "and": true, "with": true, "control": true, "vehicle": true,
	}
)

// DetectTreatment scans free text for treatment indicators: gene knockouts,
// knockdowns, overexpression, and drug exposure, falling back to control/WT
// classification. Multiple findings are joined; at most two are reported.
func DetectTreatment(text string) string {
	if text == "" || text == types.NotAvailable {
		return "WT"
	}

	var treatments []string
	treatments = append(treatments, geneHits(knockoutRes, text, "_knockout")...)
	treatments = append(treatments, geneHits(knockdownRes, text, "_knockdown")...)
	treatments = append(treatments, geneHits(overexpressionRes, text, "_overexpression")...)

	for _, re := range drugRes {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			compound := strings.ToLower(strings.TrimSpace(m[1]))
			switch {
			case len(compound) < 2 || compoundStopWords[compound]:
			case strings.Contains(compound, "enza"):
				treatments = appendUnique(treatments, "Enzalutamide_treated")
			case compound == "jq1":
				treatments = appendUnique(treatments, "JQ1_treated")
			case compound == "prt2527":
				treatments = appendUnique(treatments, "PRT2527_treated")
			default:
				treatments = appendUnique(treatments, strings.ToUpper(compound)+"_treated")
			}
		}
	}

	if dmsoRe.MatchString(text) && len(treatments) == 0 {
		return "DMSO_control"
	}
	if len(treatments) > 0 {
		sort.Strings(treatments)
		if len(treatments) > 2 {
			treatments = treatments[:2]
		}
		return strings.Join(treatments, " + ")
	}
	if controlRe.MatchString(text) {
		return "control"
	}
	return "WT"
}

func geneHits(patterns []*regexp.Regexp, text, suffix string) []string {
	var hits []string
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			gene := strings.ToUpper(strings.SplitN(strings.TrimSpace(m[1]), "_", 2)[0])
			if len(gene) > 1 && !geneStopWords[gene] {
				hits = appendUnique(hits, gene+suffix)
			}
		}
	}
	return hits
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

var chipTargetRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)anti-([A-Z0-9]+)`),
	regexp.MustCompile(`(?i)chip-seq\s+for\s+([A-Z0-9]+)`),
	regexp.MustCompile(`(?i)([A-Z0-9]+)\s+chip-seq`),
	regexp.MustCompile(`(H3K\d+[a-z0-9]*)`),
}

// DetectChIPSeq reports whether the text describes a ChIP-seq experiment and,
// if so, the antibody target. Input and IgG controls are not targets.
func DetectChIPSeq(text string) (isChIPSeq, target string) {
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "chip-seq") && !strings.Contains(lower, "chipseq") {
		return "no", types.NotAvailable
	}

	for _, re := range chipTargetRes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		t := strings.ToUpper(strings.TrimSpace(m[1]))
		if len(t) > 1 && t != "INPUT" && t != "IGG" {
			return "yes", t
		}
	}
	return "yes", types.NotAvailable
}

// FallbackRecord fills a record's pattern-derivable fields from the raw
// description text. Fields already populated (non-marker) are left alone.
func FallbackRecord(r *types.MetadataRecord, text string) {
	if r.CellLine == types.NotAvailable {
		r.CellLine = DetectCellLine(text)
	}
	if r.Treatment == types.NotAvailable {
		r.Treatment = DetectTreatment(text)
	}
	if r.IsChIPSeq == "no" && r.AntibodyTarget == types.NotAvailable {
		if is, target := DetectChIPSeq(text); is == "yes" {
			r.IsChIPSeq = is
			r.AntibodyTarget = target
		}
	}
}
