package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"ragkit/internal/adapter/chunker"
	"ragkit/internal/adapter/extract"
	"ragkit/internal/adapter/fs"
	"ragkit/internal/usecase"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Index documents for retrieval",
	Long: `Extract, chunk and embed documents in the given directory. Unchanged
files are skipped on re-runs.

Examples:
  ragkit ingest                  # Index the configured knowledge directory
  ragkit ingest ./docs           # Index a specific directory`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := cfg.KnowledgeDir
	if len(args) > 0 {
		path = args[0]
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	logger := slog.Default()

	corpus, err := openCorpus(cfg, logger)
	if err != nil {
		return err
	}

	manifest, err := openManifest(cfg)
	if err != nil {
		return err
	}
	defer manifest.Close()

	registry := extract.DefaultRegistry(cfg.Extract.RecoveryKeywords)
	walker := fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes, registry.Extensions())
	chk := chunker.NewStructureChunker(cfg.Chunking)

	ingestUC := usecase.NewIngestUseCase(walker, registry, chk, corpus, manifest, cfg.Ingest.Workers, logger)

	fmt.Printf("Scanning %s...\n", path)

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Ingesting"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	ingestUC.Progress = func(name string) {
		bar.Describe(fmt.Sprintf("Ingesting %s", name))
		bar.Add(1)
	}

	result, err := ingestUC.Ingest(cmd.Context(), path)
	bar.Finish()
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	fmt.Printf("Processed %d files (%d chunks), skipped %d unchanged, %d failed\n",
		result.FilesProcessed, result.ChunksAdded, result.FilesSkipped, result.FilesFailed)
	if result.KeywordOnly {
		fmt.Println("Embedding backend unavailable: corpus stored for keyword search only")
	}
	for _, w := range result.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	return nil
}
