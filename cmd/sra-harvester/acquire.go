// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/sra-harvester/internal/acquire"
	"github.com/pdiddy/sra-harvester/internal/entrez"
	"github.com/pdiddy/sra-harvester/internal/pipeline"
	"github.com/pdiddy/sra-harvester/pkg/types"
)

var acquireCmd = &cobra.Command{
	Use:   "acquire <keyword>",
	Short: "Download the run-metadata corpus for one keyword",
	Long: `Acquire searches the SRA for a keyword and downloads the matching run
metadata into a corpus CSV without extracting anything. Useful for inspecting
what a keyword matches before committing backend time, or for pre-fetching
corpora on a machine without the inference backend.`,
	Args: cobra.ExactArgs(1),
	RunE: runAcquireCorpus,
}

func init() {
	acquireCmd.Flags().String("work-dir", "work", "directory for corpus and scratch files")
	acquireCmd.Flags().String("api-key", "", "NCBI API key (default from .secrets/ncbi-api-key)")
	acquireCmd.Flags().Duration("fetch-timeout", 0, "wall-clock ceiling for the download (default 5m)")

	rootCmd.AddCommand(acquireCmd)
}

func runAcquireCorpus(cmd *cobra.Command, args []string) error {
	keyword := args[0]

	workDir, _ := cmd.Flags().GetString("work-dir")
	fetchTimeout, _ := cmd.Flags().GetDuration("fetch-timeout")
	apiKeyFlag, _ := cmd.Flags().GetString("api-key")
	apiKey := secretDefault("ncbi-api-key", apiKeyFlag)

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("creating work directory: %w", err)
	}

	cfg := types.AcquisitionConfig{
		FetchTimeout: fetchTimeout,
		WorkDir:      workDir,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	corpusPath := filepath.Join(workDir, pipeline.CorpusFileName(keyword))
	worker := acquire.NewWorker(entrez.NewRunner(apiKey), cfg, os.Stdout)
	handle, err := worker.Start(ctx, keyword, corpusPath)
	if err != nil {
		return err
	}

	if err := handle.Wait(); err != nil {
		return err
	}
	if handle.Degraded() {
		fmt.Printf("E-utilities unavailable; wrote header-only corpus to %s\n", corpusPath)
		return nil
	}
	fmt.Printf("Merged %d rows into %s\n", handle.Rows(), corpusPath)
	return nil
}
