package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"ragkit/internal/domain"
	"ragkit/internal/engine"
	"ragkit/internal/usecase"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Retrieve ranked context for a question",
	Long: `Run the multi-strategy retrieval pipeline and print the assembled
context with its sources and a confidence assessment.

Examples:
  ragkit query -q "how many vacation days do I get"
  ragkit query -q "who is the head of engineering" --top-k 10 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "question (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "results per strategy (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	corpus, err := openCorpus(cfg, logger)
	if err != nil {
		return err
	}
	if corpus.Count() == 0 {
		return fmt.Errorf("corpus is empty. Run 'ragkit ingest' first")
	}
	corpus.Warmup()

	eng := engine.New(corpus, cfg.Retrieval, logger)
	queryUC := usecase.NewQueryUseCase(eng)

	result := queryUC.Answer(cmd.Context(), queryText, queryTopK)

	if queryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(result)
	return nil
}

func printResult(result domain.QueryResult) {
	fmt.Println(result.Context)
	fmt.Printf("\nConfidence: %s\n", result.Confidence)
	if len(result.Sources) > 0 {
		fmt.Println("Sources:")
		for _, s := range result.Sources {
			fmt.Printf("  %s (%s, relevance %.2f)\n", s.Title, s.Type, s.Relevance)
		}
	}
}
