// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/sra-harvester/internal/entrez"
	"github.com/pdiddy/sra-harvester/internal/extract"
	"github.com/pdiddy/sra-harvester/internal/geo"
	"github.com/pdiddy/sra-harvester/internal/keywords"
	"github.com/pdiddy/sra-harvester/internal/pipeline"
	"github.com/pdiddy/sra-harvester/pkg/types"
)

const (
	defaultUserAgent  = "sra-harvester/0.1"
	defaultOllamaHost = "http://localhost:11434"
	defaultModel      = "qwen3:8b"
	defaultOutput     = "sra_metadata.csv"
)

var runCmd = &cobra.Command{
	Use:   "run [keywords...]",
	Short: "Run the full harvest pipeline for one or more keywords",
	Long: `Run searches the SRA for each keyword, downloads run metadata into a
per-keyword corpus file, and extracts structured per-sample metadata with the
inference backend while the download is still in flight. Results append to a
single CSV table; with --append, samples already present in the table are
skipped so an interrupted run resumes where it stopped.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().String("keywords", "", "CSV file of search keywords (column \"keyword\")")
	runCmd.Flags().String("output", defaultOutput, "result CSV path")
	runCmd.Flags().String("work-dir", "work", "directory for corpus and scratch files")
	runCmd.Flags().String("audit-dir", "", "directory for per-sample backend response audits")
	runCmd.Flags().String("model", defaultModel, "Ollama model identifier")
	runCmd.Flags().String("host", "", "Ollama base URL (default from .secrets/ollama-host or localhost)")
	runCmd.Flags().String("api-key", "", "NCBI API key (default from .secrets/ncbi-api-key)")
	runCmd.Flags().Duration("fetch-timeout", 0, "wall-clock ceiling per keyword download (default 5m)")
	runCmd.Flags().Int("workers", 1, "extraction worker pool size")
	runCmd.Flags().Bool("append", false, "append to an existing result file and skip processed samples")

	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	keywordFile, _ := cmd.Flags().GetString("keywords")

	var keywordList []string
	switch {
	case keywordFile != "":
		var err error
		keywordList, err = keywords.Load(keywordFile, keywords.DefaultColumn)
		if err != nil {
			return err
		}
	case len(args) > 0:
		keywordList = args
	default:
		return fmt.Errorf("provide keywords as arguments or via --keywords")
	}

	output, _ := cmd.Flags().GetString("output")
	workDir, _ := cmd.Flags().GetString("work-dir")
	auditDir, _ := cmd.Flags().GetString("audit-dir")
	model, _ := cmd.Flags().GetString("model")
	workers, _ := cmd.Flags().GetInt("workers")
	appendMode, _ := cmd.Flags().GetBool("append")
	fetchTimeout, _ := cmd.Flags().GetDuration("fetch-timeout")

	hostFlag, _ := cmd.Flags().GetString("host")
	host := secretDefault("ollama-host", hostFlag)
	if host == "" {
		host = defaultOllamaHost
	}
	apiKeyFlag, _ := cmd.Flags().GetString("api-key")
	apiKey := secretDefault("ncbi-api-key", apiKeyFlag)

	cfg := types.PipelineConfig{
		HTTP: types.HTTPConfig{
			Timeout:   60 * time.Second,
			UserAgent: defaultUserAgent,
		},
		Acquisition: types.AcquisitionConfig{
			FetchTimeout: fetchTimeout,
			WorkDir:      workDir,
		},
		Extraction: types.ExtractionConfig{
			AIConfig: types.AIConfig{
				Model: model,
				Host:  host,
			},
			AuditDir: auditDir,
		},
		Workers: workers,
		Append:  appendMode,
	}

	client := &http.Client{Timeout: cfg.HTTP.Timeout}
	deps := pipeline.Deps{
		Entrez: entrez.NewRunner(apiKey),
		// No client timeout on the backend: the per-call ceiling is enforced
		// through the request context.
		Backend:    &extract.OllamaBackend{Host: host, Model: model, Client: &http.Client{}},
		Summarizer: geo.NewSummarizer(client, cfg.HTTP.UserAgent),
		Progress:   os.Stdout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := pipeline.Run(ctx, keywordList, output, cfg, deps)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d keyword(s) failed", summary.Failed)
	}
	return nil
}
