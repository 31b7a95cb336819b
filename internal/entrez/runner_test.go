// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package entrez

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"
)

func init() {
	xmlRetryDelay = time.Millisecond
}

// fakeExecutor scripts tool behavior without spawning processes.
type fakeExecutor struct {
	missing     map[string]bool // tools absent from PATH
	failHelp    map[string]bool // tools that exist but fail the probe
	outputs     []string        // successive Output results
	outputErrs  []error
	outputCalls int
	lastArgs    []string
}

func (f *fakeExecutor) LookPath(file string) (string, error) {
	if f.missing[file] {
		return "", fmt.Errorf("%s: executable file not found in $PATH", file)
	}
	return "/usr/local/bin/" + file, nil
}

func (f *fakeExecutor) RunSilent(_ context.Context, _ []string, name string, _ ...string) error {
	if f.failHelp[name] {
		return fmt.Errorf("exit status 1")
	}
	return nil
}

func (f *fakeExecutor) Output(_ context.Context, _ []string, _ string, args ...string) (string, error) {
	f.lastArgs = args
	i := f.outputCalls
	f.outputCalls++
	if i >= len(f.outputs) {
		i = len(f.outputs) - 1
	}
	var err error
	if i < len(f.outputErrs) {
		err = f.outputErrs[i]
	}
	return f.outputs[i], err
}

func (f *fakeExecutor) StartPipeline(context.Context, []string, io.Writer, []string, []string) (Process, error) {
	return nil, fmt.Errorf("not scripted")
}

func TestAvailable(t *testing.T) {
	tests := []struct {
		name string
		exec *fakeExecutor
		want bool
	}{
		{"both working", &fakeExecutor{}, true},
		{"esearch missing", &fakeExecutor{missing: map[string]bool{"esearch": true}}, false},
		{"efetch missing", &fakeExecutor{missing: map[string]bool{"efetch": true}}, false},
		{"found but broken", &fakeExecutor{failHelp: map[string]bool{"efetch": true}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &toolRunner{exec: tt.exec}
			if got := r.Available(); got != tt.want {
				t.Errorf("Available() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExperimentXML_RetriesThenSucceeds(t *testing.T) {
	exec := &fakeExecutor{
		outputs:    []string{"", "", "<EXPERIMENT_PACKAGE/>"},
		outputErrs: []error{fmt.Errorf("exit status 1"), nil, nil},
	}
	r := &toolRunner{exec: exec}

	xml, err := r.ExperimentXML(context.Background(), "SRX1000001")
	if err != nil {
		t.Fatalf("ExperimentXML: %v", err)
	}
	if xml != "<EXPERIMENT_PACKAGE/>" {
		t.Errorf("unexpected XML: %q", xml)
	}
	if exec.outputCalls != 3 {
		t.Errorf("expected 3 attempts, got %d", exec.outputCalls)
	}
}

func TestExperimentXML_Exhausted(t *testing.T) {
	exec := &fakeExecutor{
		outputs:    []string{""},
		outputErrs: []error{fmt.Errorf("exit status 1")},
	}
	r := &toolRunner{exec: exec}

	_, err := r.ExperimentXML(context.Background(), "SRX1000001")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if exec.outputCalls != xmlRetryAttempts {
		t.Errorf("expected %d attempts, got %d", xmlRetryAttempts, exec.outputCalls)
	}
}

func TestExperimentXML_EmptyAccession(t *testing.T) {
	r := &toolRunner{exec: &fakeExecutor{outputs: []string{""}}}
	if _, err := r.ExperimentXML(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty accession")
	}
}

func TestBuildQuery_SingleWord(t *testing.T) {
	q := BuildQuery("melanoma")

	if !strings.HasPrefix(q, "(") || !strings.HasSuffix(q, ")") {
		t.Errorf("query not parenthesized: %q", q)
	}
	for _, want := range []string{`"melanoma"[All Fields]`, `"melanoma"[Cell Line]`, `"melanoma"[Organism]`} {
		if !strings.Contains(q, want) {
			t.Errorf("query missing %q", want)
		}
	}
	if strings.Contains(q, " AND ") {
		t.Errorf("single-word query should not contain AND: %q", q)
	}
}

func TestBuildQuery_MultiWord(t *testing.T) {
	q := BuildQuery("prostate cancer")

	if !strings.Contains(q, `"prostate cancer"[Title]`) {
		t.Errorf("query missing phrase variant: %q", q)
	}
	if !strings.Contains(q, `"prostate"[Title] AND "cancer"[Title]`) {
		t.Errorf("query missing word conjunction: %q", q)
	}
}
