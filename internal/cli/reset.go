package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the corpus and its ingest manifest",
	RunE:  runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "skip confirmation")
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetForce {
		fmt.Printf("Delete collection %q and all indexed data? [y/N] ", cfg.Collection)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	corpus, err := openCorpus(cfg, slog.Default())
	if err != nil {
		return err
	}
	if !corpus.DeleteCollection() {
		return fmt.Errorf("failed to delete collection %q", cfg.Collection)
	}

	manifest, err := openManifest(cfg)
	if err != nil {
		return err
	}
	defer manifest.Close()
	if err := manifest.Clear(); err != nil {
		return fmt.Errorf("failed to clear manifest: %w", err)
	}

	fmt.Printf("Collection %q deleted.\n", cfg.Collection)
	return nil
}
