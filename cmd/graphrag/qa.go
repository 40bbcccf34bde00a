package graphrag

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oakmoss/graphrag/pkg/qa"
)

var (
	qaQueries  []string
	qaTopK     int
	qaGoldFile string
)

var qaCmd = &cobra.Command{
	Use:   "qa",
	Short: "answer one or more questions against the indexed corpus",
	RunE:  runQA,
}

func init() {
	rootCmd.AddCommand(qaCmd)
	qaCmd.Flags().StringArrayVar(&qaQueries, "queries", nil, "a question string; repeatable")
	qaCmd.Flags().IntVar(&qaTopK, "top_k", 5, "number of passages retrieved per question")
	qaCmd.Flags().StringVar(&qaGoldFile, "gold_answers", "", "path to a JSON file of gold answer alias lists, one per query, for scoring")
}

func runQA(cmd *cobra.Command, args []string) error {
	if len(qaQueries) == 0 {
		return usageErrorf("qa requires at least one --queries value")
	}

	var goldAnswers [][]string
	if qaGoldFile != "" {
		path, err := canonicalizeWithinCWD(qaGoldFile)
		if err != nil {
			return err
		}
		if goldAnswers, err = readGoldAnswers(path); err != nil {
			return err
		}
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

	results, scores, err := session.RagQA(cmd.Context(), qaQueries, qaTopK, goldAnswers)
	if err != nil {
		return fmt.Errorf("qa: %w", err)
	}

	out := struct {
		Results []qa.Result `json:"results"`
		Scores  []qa.Score  `json:"scores,omitempty"`
	}{Results: results, Scores: scores}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func readGoldAnswers(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gold answers %s: %w", path, err)
	}
	var goldAnswers [][]string
	if err := json.Unmarshal(data, &goldAnswers); err != nil {
		return nil, fmt.Errorf("parse gold answers %s: %w", path, err)
	}
	return goldAnswers, nil
}
