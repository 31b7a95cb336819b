// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns one sample accession into a normalized metadata
// record: it fetches the experiment description, discovers GEO
// cross-references, and drives the inference backend with study-context
// guidance, retry classification, and deterministic fallback.
package extract

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/sra-harvester/internal/geo"
	"github.com/pdiddy/sra-harvester/internal/study"
	"github.com/pdiddy/sra-harvester/pkg/types"
)

// DescriptionFetcher supplies the raw experiment XML for one accession.
// entrez.Runner satisfies it.
type DescriptionFetcher interface {
	ExperimentXML(ctx context.Context, accession string) (string, error)
}

// SummaryFetcher supplies the cross-referenced GEO summary for one sample.
// geo.Summarizer satisfies it.
type SummaryFetcher interface {
	Fetch(ctx context.Context, gsm string) string
}

// Engine processes samples one at a time. It owns the study sessions and the
// request throttle, both scoped to one keyword's run; it must not be shared
// across keywords.
type Engine struct {
	fetcher    DescriptionFetcher
	summarizer SummaryFetcher
	backend    Backend
	sessions   *study.Sessions
	audit      *Audit
	limiter    *rate.Limiter
	cfg        types.ExtractionConfig
	progress   io.Writer

	// mu guards the study sessions and contexts, which a worker pool would
	// otherwise race on. Backend calls happen outside the lock.
	mu sync.Mutex
}

// NewEngine returns an Engine with defaults applied to zero config fields.
func NewEngine(fetcher DescriptionFetcher, summarizer SummaryFetcher, backend Backend, cfg types.ExtractionConfig, progress io.Writer) *Engine {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 120 * time.Second
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = time.Second
	}
	if progress == nil {
		progress = io.Discard
	}
	return &Engine{
		fetcher:    fetcher,
		summarizer: summarizer,
		backend:    backend,
		sessions:   study.NewSessions(cfg.SessionRefreshEvery),
		audit:      NewAudit(cfg.AuditDir),
		limiter:    rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		cfg:        cfg,
		progress:   progress,
	}
}

// Process produces the metadata record for one accession. It never returns an
// error: every failure mode yields an explicit record with a status that says
// what degraded, so no sample is silently dropped.
func (e *Engine) Process(ctx context.Context, keyword, accession string) types.MetadataRecord {
	rec := types.NewRecord(keyword, accession)

	xml, err := e.fetcher.ExperimentXML(ctx, accession)
	if err != nil {
		fmt.Fprintf(e.progress, "failed  %s: %v\n", accession, err)
		rec.Status = types.StatusFetchFailed
		e.writeAudit(accession, "", false, rec)
		return rec
	}

	accs := geo.ExtractAccessions(xml)
	rec.GSE, rec.GSM = accs.GSE, accs.GSM

	summary := types.NotAvailable
	if e.summarizer != nil {
		summary = e.summarizer.Fetch(ctx, rec.GSM)
	}

	e.mu.Lock()
	sctx, refresh := e.sessions.ContextFor(accession, rec.GSE)
	hints := sctx.Hints()
	e.mu.Unlock()
	if refresh {
		e.backend.Refresh()
	}

	raw, err := e.invoke(ctx, promptInput{
		Accession:  accession,
		GSE:        rec.GSE,
		GSM:        rec.GSM,
		Keyword:    keyword,
		XML:        xml,
		GeoSummary: summary,
		Hints:      hints,
	})

	description := xml
	if summary != types.NotAvailable {
		description += "\n" + summary
	}

	var structured bool
	switch {
	case err != nil:
		fmt.Fprintf(e.progress, "degraded %s: backend exhausted: %v\n", accession, err)
		rec.Status = types.StatusBackendFailed
		FallbackRecord(&rec, description)
	default:
		parsed := Parse(raw)
		structured = parsed.Structured
		if parsed.Structured {
			for name, value := range parsed.Fields {
				rec.SetField(name, value)
			}
		} else {
			fmt.Fprintf(e.progress, "fallback %s: unparseable response\n", accession)
			rec.Status = types.StatusFallback
			FallbackRecord(&rec, description)
		}
	}

	normalize(&rec)

	// One summary per study: the first sample's sticks, later samples reuse
	// it instead of generating a drifting variant.
	e.mu.Lock()
	if s := sctx.Summary(); s != types.NotAvailable {
		rec.Summary = s
	}
	repaired := sctx.RepairRecord(&rec)
	sctx.Observe(&rec)
	e.mu.Unlock()
	if len(repaired) > 0 {
		fmt.Fprintf(e.progress, "repaired %s: %s\n", accession, strings.Join(repaired, ", "))
	}

	e.writeAudit(accession, raw, structured, rec)
	return rec
}

// invoke calls the backend with throttling and the classified retry policy.
// A crashed backend gets a bounded wait-and-reconnect before the next
// attempt; other failures back off per their kind.
func (e *Engine) invoke(ctx context.Context, in promptInput) (string, error) {
	prompt, err := renderPrompt(in)
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			kind := classify(lastErr)
			fmt.Fprintf(e.progress, "retrying %s (%s failure, attempt %d/%d)\n",
				in.Accession, kind, attempt+1, e.cfg.MaxRetries)

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(kind.wait()):
			}

			if kind == failureCrashed {
				if err := waitReady(ctx, e.backend); err != nil {
					lastErr = err
					continue
				}
			}
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return "", err
		}

		callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
		raw, err := e.backend.Generate(callCtx, prompt)
		cancel()
		if err == nil {
			return raw, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d attempts: %w", e.cfg.MaxRetries, lastErr)
}

// normalize enforces field-level conventions the backend tends to drift on.
func normalize(rec *types.MetadataRecord) {
	switch strings.ToLower(strings.TrimSpace(rec.IsChIPSeq)) {
	case "yes", "true":
		rec.IsChIPSeq = "yes"
	default:
		rec.IsChIPSeq = "no"
	}
	if rec.IsChIPSeq == "no" {
		rec.AntibodyTarget = types.NotAvailable
	}
}

func (e *Engine) writeAudit(accession, raw string, structured bool, rec types.MetadataRecord) {
	if err := e.audit.Write(accession, raw, structured, rec); err != nil {
		fmt.Fprintf(e.progress, "warning: audit write failed for %s: %v\n", accession, err)
	}
}
