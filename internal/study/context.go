// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package study tracks cross-sample state per study group: observed field
// values biasing subsequent extraction prompts, a conservative repair rule for
// inconsistent backend answers, and the rotating-session policy for the
// inference backend.
package study

import (
	"fmt"
	"strings"

	"github.com/pdiddy/sra-harvester/pkg/types"
)

// keyPrefixLen is how many accession characters group sequentially assigned
// samples into one study when no cross-reference accession is known.
const keyPrefixLen = 8

// Key derives the study group key for a sample. Samples sharing a GEO series
// accession share a group; otherwise sequentially assigned accessions are
// grouped by prefix, since submissions allocate contiguous ranges.
func Key(accession, gse string) string {
	if gse != "" && gse != types.NotAvailable {
		return gse
	}
	if len(accession) > keyPrefixLen {
		return accession[:keyPrefixLen]
	}
	return accession
}

// hintFields are the record fields shared as cross-sample guidance, in the
// order they render in the hint block.
var hintFields = []string{
	types.FieldSpecies,
	types.FieldCellLine,
	types.FieldSampleType,
	types.FieldTechnique,
	types.FieldDisease,
	types.FieldTreatment,
}

// Context accumulates multi-valued field observations for one study group.
// Values are kept in first-seen order with no arity cap, so a genuinely
// heterogeneous study surfaces as a multi-valued hint instead of being
// collapsed to one answer.
type Context struct {
	key       string
	values    map[string][]string
	perTech   map[string][]string // instrument models keyed by technique
	techOrder []string
	summary   string
	samples   int
}

// NewContext returns an empty context for one study group.
func NewContext(key string) *Context {
	return &Context{
		key:     key,
		values:  make(map[string][]string),
		perTech: make(map[string][]string),
	}
}

// Key returns the group key this context is scoped to.
func (c *Context) Key() string { return c.key }

// Samples returns how many records have been observed.
func (c *Context) Samples() int { return c.samples }

// Values returns the distinct observed values for a field, in first-seen
// order.
func (c *Context) Values(field string) []string {
	return c.values[field]
}

// Observe folds one finished record into the context. Unavailable values are
// never recorded; instrument models are additionally grouped by sequencing
// technique, since one study may mix techniques across machines.
func (c *Context) Observe(r *types.MetadataRecord) {
	c.samples++
	fields := r.Fields()
	for _, f := range hintFields {
		c.observe(f, fields[f])
	}
	if r.Instrument != types.NotAvailable && r.Technique != types.NotAvailable {
		if !contains(c.perTech[r.Technique], r.Instrument) {
			if _, ok := c.perTech[r.Technique]; !ok {
				c.techOrder = append(c.techOrder, r.Technique)
			}
			c.perTech[r.Technique] = append(c.perTech[r.Technique], r.Instrument)
		}
	}
	if c.summary == "" && r.Summary != types.NotAvailable {
		c.summary = r.Summary
	}
}

func (c *Context) observe(field, value string) {
	if value == "" || value == types.NotAvailable {
		return
	}
	if !contains(c.values[field], value) {
		c.values[field] = append(c.values[field], value)
	}
}

// Summary returns the study-level summary captured from the first sample that
// produced one, or the unavailable marker.
func (c *Context) Summary() string {
	if c.summary == "" {
		return types.NotAvailable
	}
	return c.summary
}

// Hints renders the prompt block listing what earlier samples in this study
// established. It returns "" for a context with no observations.
func (c *Context) Hints() string {
	var b strings.Builder
	for _, f := range hintFields {
		vals := c.values[f]
		if len(vals) == 0 {
			continue
		}
		fmt.Fprintf(&b, "- Previous %s values in this study: %s\n", f, strings.Join(vals, ", "))
	}
	for _, tech := range c.techOrder {
		fmt.Fprintf(&b, "- Previous instrument for %s: %s\n", tech, strings.Join(c.perTech[tech], ", "))
	}
	if b.Len() == 0 {
		return ""
	}
	return "Known values from earlier samples in the same study (use as guidance, " +
		"samples in one study usually share these unless stated otherwise):\n" + b.String()
}

// Repair applies the conservative consistency rule to one candidate value:
// when the group's history holds exactly one distinct value and the candidate
// disagrees with it or is the unavailable marker, the historical value wins.
// With two or more historical values the study is ambiguous and the candidate
// stands. It returns the final value and whether a repair happened.
func (c *Context) Repair(field, candidate string) (string, bool) {
	vals := c.values[field]
	if len(vals) != 1 {
		return candidate, false
	}
	if candidate == vals[0] {
		return candidate, false
	}
	return vals[0], true
}

// RepairRecord runs Repair over every hint field of a record, mutating it in
// place, and returns the names of the repaired fields.
func (c *Context) RepairRecord(r *types.MetadataRecord) []string {
	var repaired []string
	fields := r.Fields()
	for _, f := range hintFields {
		if v, ok := c.Repair(f, fields[f]); ok {
			r.SetField(f, v)
			repaired = append(repaired, f)
		}
	}
	return repaired
}

func contains(vals []string, v string) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}
