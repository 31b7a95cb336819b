// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package entrez

import (
	"fmt"
	"strings"
)

// queryFields are the SRA search fields the broadened query fans out over.
// Archive search relevance is inexact, so recall is maximized by qualifying
// the keyword against every descriptive field.
var queryFields = []string{
	"All Fields", "Title", "Abstract", "Study Title", "Study Abstract",
	"Sample Name", "Organism", "Strain", "Cell Line", "Cell Type",
	"Tissue", "Source Name",
}

// BuildQuery expands a free-text keyword into a broadened boolean query:
// for each field, the exact phrase OR the conjunction of its words.
func BuildQuery(keyword string) string {
	keyword = strings.TrimSpace(keyword)
	words := strings.Fields(keyword)

	parts := make([]string, 0, len(queryFields))
	for _, field := range queryFields {
		if len(words) > 1 {
			phrase := fmt.Sprintf("%q[%s]", keyword, field)
			qualified := make([]string, len(words))
			for i, w := range words {
				qualified[i] = fmt.Sprintf("%q[%s]", w, field)
			}
			parts = append(parts, fmt.Sprintf("(%s OR (%s))", phrase, strings.Join(qualified, " AND ")))
		} else {
			parts = append(parts, fmt.Sprintf("%q[%s]", keyword, field))
		}
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}
