// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package entrez drives the NCBI E-utilities as external processes: the
// esearch|efetch pipeline that streams runinfo rows into a scratch file, and
// per-accession experiment XML fetches.
package entrez

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	binSearch = "esearch"
	binFetch  = "efetch"
)

// Retry settings for experiment XML fetches. Package-level vars so tests can
// avoid real sleeps.
var (
	xmlRetryAttempts = 3
	xmlRetryDelay    = 2 * time.Second
	xmlFetchTimeout  = 30 * time.Second
)

// Process is a handle on a running esearch|efetch pipeline.
type Process interface {
	// Done reports whether both external processes have exited.
	Done() bool

	// Wait blocks until both processes exit and returns the first error.
	Wait() error

	// Kill terminates both processes. Safe to call after exit.
	Kill()
}

// Runner provides E-utilities operations: checking tool availability,
// launching the search/fetch pipeline, and fetching experiment XML.
type Runner interface {
	// Available reports whether esearch and efetch exist on PATH and respond
	// to a help probe.
	Available() bool

	// StartFetch launches esearch|efetch for the given query, streaming
	// runinfo CSV into out. The returned Process outlives ctx only for
	// cleanup; cancelling ctx kills both tools.
	StartFetch(ctx context.Context, query string, out io.Writer) (Process, error)

	// ExperimentXML fetches the SRA experiment XML for one accession, with
	// bounded retries.
	ExperimentXML(ctx context.Context, accession string) (string, error)
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(ctx context.Context, env []string, name string, args ...string) error
	Output(ctx context.Context, env []string, name string, args ...string) (string, error)
	StartPipeline(ctx context.Context, env []string, out io.Writer, search, fetch []string) (Process, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunSilent(ctx context.Context, env []string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = env
	return cmd.Run()
}

func (o *osExecutor) Output(ctx context.Context, env []string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = env
	out, err := cmd.Output()
	return string(out), err
}

func (o *osExecutor) StartPipeline(ctx context.Context, env []string, out io.Writer, search, fetch []string) (Process, error) {
	searchCmd := exec.CommandContext(ctx, search[0], search[1:]...)
	fetchCmd := exec.CommandContext(ctx, fetch[0], fetch[1:]...)
	searchCmd.Env = env
	fetchCmd.Env = env

	pipe, err := searchCmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("connecting %s to %s: %w", search[0], fetch[0], err)
	}
	fetchCmd.Stdin = pipe
	fetchCmd.Stdout = out

	if err := searchCmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", search[0], err)
	}
	if err := fetchCmd.Start(); err != nil {
		searchCmd.Process.Kill()
		searchCmd.Wait()
		return nil, fmt.Errorf("starting %s: %w", fetch[0], err)
	}

	p := &osProcess{search: searchCmd, fetch: fetchCmd, done: make(chan struct{})}
	go p.run()
	return p, nil
}

// osProcess supervises the two pipeline processes.
type osProcess struct {
	search *exec.Cmd
	fetch  *exec.Cmd
	done   chan struct{}
	err    error
}

func (p *osProcess) run() {
	// The downstream reader finishing is what matters; collect the upstream
	// exit afterwards so neither becomes a zombie.
	fetchErr := p.fetch.Wait()
	searchErr := p.search.Wait()
	if fetchErr != nil {
		p.err = fmt.Errorf("%s: %w", binFetch, fetchErr)
	} else if searchErr != nil {
		p.err = fmt.Errorf("%s: %w", binSearch, searchErr)
	}
	close(p.done)
}

func (p *osProcess) Done() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *osProcess) Wait() error {
	<-p.done
	return p.err
}

func (p *osProcess) Kill() {
	if p.search.Process != nil {
		p.search.Process.Kill()
	}
	if p.fetch.Process != nil {
		p.fetch.Process.Kill()
	}
}

// toolRunner implements Runner against real E-utilities binaries.
type toolRunner struct {
	exec   executor
	apiKey string
}

// NewRunner returns a Runner for the installed E-utilities. apiKey, when
// non-empty, is exported to the child processes as NCBI_API_KEY for higher
// rate limits.
func NewRunner(apiKey string) Runner {
	return &toolRunner{exec: &osExecutor{}, apiKey: apiKey}
}

func (r *toolRunner) env() []string {
	env := os.Environ()
	if r.apiKey != "" {
		env = append(env, "NCBI_API_KEY="+r.apiKey)
	}
	return env
}

func (r *toolRunner) Available() bool {
	for _, tool := range []string{binSearch, binFetch} {
		if _, err := r.exec.LookPath(tool); err != nil {
			return false
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := r.exec.RunSilent(ctx, r.env(), tool, "-help")
		cancel()
		if err != nil {
			return false
		}
	}
	return true
}

func (r *toolRunner) StartFetch(ctx context.Context, query string, out io.Writer) (Process, error) {
	search := []string{binSearch, "-db", "sra", "-query", query}
	fetch := []string{binFetch, "-format", "runinfo"}
	return r.exec.StartPipeline(ctx, r.env(), out, search, fetch)
}

func (r *toolRunner) ExperimentXML(ctx context.Context, accession string) (string, error) {
	if accession == "" {
		return "", fmt.Errorf("empty accession")
	}

	var lastErr error
	for attempt := 0; attempt < xmlRetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(xmlRetryDelay):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, xmlFetchTimeout)
		out, err := r.exec.Output(callCtx, r.env(),
			binFetch, "-db", "sra", "-id", accession, "-format", "xml")
		cancel()
		if err == nil && strings.TrimSpace(out) != "" {
			return out, nil
		}
		if err == nil {
			err = fmt.Errorf("empty response")
		}
		lastErr = err
	}
	return "", fmt.Errorf("fetching XML for %s after %d attempts: %w", accession, xmlRetryAttempts, lastErr)
}
