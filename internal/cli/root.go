// Package cli wires the adapters together behind a cobra command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ragkit/config"
)

var (
	cfgFile  string
	cfg      *config.Config
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "ragkit",
	Short: "Document retrieval core - ingest documents and query them semantically",
	Long: `ragkit extracts text from PDF, Word and plain-text documents, chunks it
with structure awareness, embeds the chunks and serves ranked context for
retrieval-augmented answering. Without a reachable embedding backend it
degrades to keyword search over the same corpus.

Example usage:
  ragkit ingest ./knowledge          # Index a document directory
  ragkit query -q "vacation policy"  # Retrieve ranked context
  ragkit stats                       # Show corpus statistics`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Missing .env is the common case outside development.
		_ = godotenv.Load()

		var err error
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(".")
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: parseLevel(cfg.Logging.Level),
		})))
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ragkit.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
