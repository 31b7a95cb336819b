// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/sra-harvester/pkg/types"
)

// Parsed is the tagged outcome of interpreting one backend response: either a
// structured field map or the raw text for deterministic fallback.
type Parsed struct {
	Structured bool
	Fields     map[string]string
	Raw        string
}

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// Parse interprets a backend response with an ordered extractor chain: the
// whole response as JSON, then a fenced code block, then the largest
// brace-balanced span. The first extractor that yields a JSON object wins;
// when all fail the raw text is returned for pattern-based fallback.
func Parse(raw string) Parsed {
	for _, extract := range []func(string) (map[string]string, bool){
		parseWhole,
		parseFenced,
		parseLargestSpan,
	} {
		if fields, ok := extract(raw); ok {
			return Parsed{Structured: true, Fields: fields, Raw: raw}
		}
	}
	return Parsed{Raw: raw}
}

func parseWhole(raw string) (map[string]string, bool) {
	return decodeObject(strings.TrimSpace(raw))
}

func parseFenced(raw string) (map[string]string, bool) {
	m := fencedBlockRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, false
	}
	return decodeObject(m[1])
}

// parseLargestSpan scans for brace-balanced spans and tries the longest ones
// first, so prose-wrapped answers like "Sure! Here is the data: {...}" still
// parse.
func parseLargestSpan(raw string) (map[string]string, bool) {
	spans := braceSpans(raw)
	for _, span := range spans {
		if fields, ok := decodeObject(span); ok {
			return fields, true
		}
	}
	return nil, false
}

// braceSpans returns the balanced {...} substrings of raw, longest first.
// Nesting is respected; unbalanced braces simply end the scan of that span.
func braceSpans(raw string) []string {
	var spans []string
	depth := 0
	start := -1
	for i, r := range raw {
		switch r {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					spans = append(spans, raw[start:i+1])
				}
			}
		}
	}
	// Longest first: the outermost object usually carries every field.
	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			if len(spans[j]) > len(spans[i]) {
				spans[i], spans[j] = spans[j], spans[i]
			}
		}
	}
	return spans
}

// decodeObject parses a JSON object and keeps only known metadata fields,
// stringifying scalar values so numeric or boolean answers still land.
func decodeObject(text string) (map[string]string, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, false
	}

	fields := make(map[string]string)
	for _, name := range types.MetadataFields {
		v, ok := obj[name]
		if !ok {
			continue
		}
		s := stringify(v)
		if s == "" {
			continue
		}
		fields[name] = s
	}
	if len(fields) == 0 {
		return nil, false
	}
	return fields, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case bool:
		if t {
			return "yes"
		}
		return "no"
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%v", t), ".0")
	case nil:
		return ""
	default:
		return ""
	}
}
