package graphrag

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	retrieveQueries []string
	retrieveTopK    int
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "retrieve the top-k passages for one or more queries",
	RunE:  runRetrieve,
}

func init() {
	rootCmd.AddCommand(retrieveCmd)
	retrieveCmd.Flags().StringArrayVar(&retrieveQueries, "queries", nil, "a query string; repeatable")
	retrieveCmd.Flags().IntVar(&retrieveTopK, "top_k", 5, "number of passages to retrieve per query")
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if len(retrieveQueries) == 0 {
		return usageErrorf("retrieve requires at least one --queries value")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	session, err := newSession(cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	solutions, err := session.Retrieve(cmd.Context(), retrieveQueries, retrieveTopK)
	if err != nil {
		return fmt.Errorf("retrieve: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(solutions)
}
