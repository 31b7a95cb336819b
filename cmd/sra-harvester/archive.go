// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/sra-harvester/internal/archive"
	"github.com/pdiddy/sra-harvester/pkg/types"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage the sample archive (index, search, export)",
	Long: `Archive manages a local SQLite database built from finished result
tables. Use subcommands to index result files, search samples, or export.`,
}

// --- index subcommand ---

var archiveIndexCmd = &cobra.Command{
	Use:   "index <results-dir>",
	Short: "Ingest result CSV files into the archive",
	Long: `Index reads result CSV files from a directory, ingests their samples
into a SQLite database with FTS5 indexing, and writes an export file.
Unchanged files are skipped on subsequent runs.`,
	Args: cobra.ExactArgs(1),
	RunE: runArchiveIndex,
}

func runArchiveIndex(cmd *cobra.Command, args []string) error {
	store, err := archive.NewStore(archiveConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(context.Background(), args[0], os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d file(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- search subcommand ---

var archiveSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the archive with full-text search and filters",
	Long: `Search queries the archive using FTS5 full-text search over titles,
summaries, treatments, and disease descriptions, structured filters
(species, technique, study, cell line), or a combination of both.`,
	RunE: runArchiveSearch,
}

func runArchiveSearch(cmd *cobra.Command, args []string) error {
	store, err := archive.NewStore(archiveConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd, args)
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query, --species, --technique, --gse, or --cell-line")
	}

	recs, err := store.Search(context.Background(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatSearchOutput(recs, jsonOutput)
}

func formatSearchOutput(recs []types.MetadataRecord, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}

	if len(recs) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-12s  %-10s  %-12s  %-14s  %-12s  %s\n",
		"Accession", "Study", "Technique", "Cell line", "Species", "Title")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))

	for _, r := range recs {
		title := r.ExperimentTitle
		if len(title) > 36 {
			title = title[:33] + "..."
		}
		species := r.Species
		if len(species) > 12 {
			species = species[:9] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-12s  %-10s  %-12s  %-14s  %-12s  %s\n",
			r.Accession, r.GSE, r.Technique, r.CellLine, species, title)
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(recs))
	return nil
}

// --- export subcommand ---

var archiveExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the archive to YAML or JSON",
	Long: `Export writes the full archive (or a filtered subset) to
<archive-dir>/index/export.yaml or export.json. Supports the same filter
flags as search for partial exports.`,
	RunE: runArchiveExport,
}

func runArchiveExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := archive.NewStore(archiveConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd, args)

	switch format {
	case "yaml", "":
		if err := store.ExportYAML(context.Background(), opts); err != nil {
			return err
		}
		fmt.Println("Exported to index/export.yaml")
	case "json":
		if err := store.ExportJSON(context.Background(), opts); err != nil {
			return err
		}
		fmt.Println("Exported to index/export.json")
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	return nil
}

// --- shared helpers ---

func archiveConfig(cmd *cobra.Command) types.ArchiveConfig {
	dir, _ := cmd.Flags().GetString("archive-dir")
	if dir == "" {
		dir = "archive"
	}
	maxResults, _ := cmd.Flags().GetInt("max-results")

	return types.ArchiveConfig{
		Dir:        dir,
		MaxResults: maxResults,
	}
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) archive.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}

	keyword, _ := cmd.Flags().GetString("keyword")
	species, _ := cmd.Flags().GetString("species")
	technique, _ := cmd.Flags().GetString("technique")
	gse, _ := cmd.Flags().GetString("gse")
	cellLine, _ := cmd.Flags().GetString("cell-line")
	limit, _ := cmd.Flags().GetInt("limit")

	return archive.QueryOptions{
		Query:      queryText,
		Keyword:    keyword,
		Species:    species,
		Technique:  technique,
		GSE:        gse,
		CellLine:   cellLine,
		MaxResults: limit,
	}
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	archiveCmd.PersistentFlags().String("archive-dir", "archive", "base directory for the archive (contains index/)")
	archiveCmd.PersistentFlags().Int("max-results", 20, "maximum number of query results")

	// Search flags.
	archiveSearchCmd.Flags().String("query", "", "full-text search query")
	archiveSearchCmd.Flags().String("keyword", "", "filter by harvest keyword")
	archiveSearchCmd.Flags().String("species", "", "filter by scientific name")
	archiveSearchCmd.Flags().String("technique", "", "filter by sequencing technique")
	archiveSearchCmd.Flags().String("gse", "", "filter by study group accession")
	archiveSearchCmd.Flags().String("cell-line", "", "filter by cell line name")
	archiveSearchCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	archiveSearchCmd.Flags().Bool("json", false, "output results as JSON")

	// Export flags.
	archiveExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	archiveExportCmd.Flags().String("query", "", "full-text search filter for partial export")
	archiveExportCmd.Flags().String("keyword", "", "filter by harvest keyword")
	archiveExportCmd.Flags().String("species", "", "filter by scientific name")
	archiveExportCmd.Flags().String("technique", "", "filter by sequencing technique")
	archiveExportCmd.Flags().String("gse", "", "filter by study group accession")
	archiveExportCmd.Flags().String("cell-line", "", "filter by cell line name")

	archiveCmd.AddCommand(archiveIndexCmd)
	archiveCmd.AddCommand(archiveSearchCmd)
	archiveCmd.AddCommand(archiveExportCmd)
	rootCmd.AddCommand(archiveCmd)
}
