package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	corpus, err := openCorpus(cfg, slog.Default())
	if err != nil {
		return err
	}

	fmt.Printf("Collection:  %s\n", cfg.Collection)
	fmt.Printf("Chunks:      %d\n", corpus.Count())
	mode := "vector"
	if corpus.KeywordOnly() {
		mode = "keyword-only"
	}
	fmt.Printf("Search mode: %s\n", mode)

	manifest, err := openManifest(cfg)
	if err != nil {
		return err
	}
	defer manifest.Close()

	entries, err := manifest.All()
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}
	fmt.Printf("Documents:   %d\n", len(entries))
	return nil
}
