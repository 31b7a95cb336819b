// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/sra-harvester/pkg/types"
)

// Audit persists every raw backend response verbatim next to its parsed
// interpretation. Extraction is a probabilistic step; the sidecars keep it
// inspectable offline.
type Audit struct {
	dir string
}

// NewAudit returns an Audit writing into dir. An empty dir disables auditing.
func NewAudit(dir string) *Audit {
	return &Audit{dir: dir}
}

// auditEntry is the YAML sidecar layout.
type auditEntry struct {
	Accession   string               `yaml:"accession"`
	Structured  bool                 `yaml:"structured"`
	RawResponse string               `yaml:"raw_response"`
	Parsed      types.MetadataRecord `yaml:"parsed"`
}

// Write persists one sample's raw response and parsed record. A nil receiver
// or disabled audit is a no-op so callers never need to branch.
func (a *Audit) Write(accession, raw string, structured bool, rec types.MetadataRecord) error {
	if a == nil || a.dir == "" {
		return nil
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("creating audit directory: %w", err)
	}

	data, err := yaml.Marshal(auditEntry{
		Accession:   accession,
		Structured:  structured,
		RawResponse: raw,
		Parsed:      rec,
	})
	if err != nil {
		return fmt.Errorf("marshaling audit entry: %w", err)
	}

	path := filepath.Join(a.dir, accession+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing audit entry: %w", err)
	}
	return nil
}
