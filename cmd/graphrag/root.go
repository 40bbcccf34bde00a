// Package graphrag implements the graphrag command-line surface: index,
// retrieve, qa, and serve subcommands over the root Session type,
// wired through cobra and viper the way the teacher framework's CLI is.
package graphrag

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oakmoss/graphrag/pkg/config"
	"github.com/oakmoss/graphrag/pkg/logger"
)

var (
	cfgFile string

	flagSaveDir                string
	flagLLMName                string
	flagLLMBaseURL             string
	flagEmbeddingName          string
	flagOpenIEMode             string
	flagForceIndexFromScratch  bool
	flagForceOpenIEFromScratch bool
	flagRerankDSPyFilePath     string
	flagDataset                string
)

var rootCmd = &cobra.Command{
	Use:   "graphrag",
	Short: "graph-indexed hybrid retrieval over a corpus of documents",
	Long: `graphrag builds an incrementally maintained property graph of
chunks, entities, and OpenIE-extracted triples over a document corpus,
then answers questions against it with dense retrieval fused against
personalized PageRank over the graph.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI, returning a non-nil error on usage or runtime
// failure. Callers map the error to exit code 2 for usage errors and 1
// otherwise (spec §6 documents 0/2; runtime failures beyond usage exit
// with 1, consistent with cobra's default).
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a graphrag.yaml config file")
	rootCmd.PersistentFlags().StringVar(&flagSaveDir, "save_dir", "", "working directory root (overrides work_dir.save_dir)")
	rootCmd.PersistentFlags().StringVar(&flagLLMName, "llm_name", "", "chat model name (overrides llm.model)")
	rootCmd.PersistentFlags().StringVar(&flagLLMBaseURL, "llm_base_url", "", "chat API base URL (overrides llm.base_url)")
	rootCmd.PersistentFlags().StringVar(&flagEmbeddingName, "embedding_name", "", "embedding model name (overrides embedding.model)")
	rootCmd.PersistentFlags().StringVar(&flagOpenIEMode, "openie_mode", "", "online, offline, or transformers-offline")
	rootCmd.PersistentFlags().BoolVar(&flagForceIndexFromScratch, "force_index_from_scratch", false, "discard existing vector stores and graph before indexing")
	rootCmd.PersistentFlags().BoolVar(&flagForceOpenIEFromScratch, "force_openie_from_scratch", false, "discard the existing OpenIE cache before indexing")
	rootCmd.PersistentFlags().StringVar(&flagRerankDSPyFilePath, "rerank_dspy_file_path", "", "path to a JSON/YAML file of rerank few-shot demos")
	rootCmd.PersistentFlags().StringVar(&flagDataset, "dataset", "musique", "QA chat template dataset key (rag_qa_<dataset>)")
}

func initLogger() {
	level := logger.ParseLevel(os.Getenv("GRAPHRAG_LOG_LEVEL"))
	slog.SetDefault(logger.NewDefaultLogger(level))
}

// loadConfig layers Default(), an optional --config file, environment
// variables, and this command's persistent flags, in that priority
// order (flags win).
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	if flagSaveDir != "" {
		cfg.WorkDir.SaveDir = flagSaveDir
	}
	if flagLLMName != "" {
		cfg.LLM.Model = flagLLMName
	}
	if flagLLMBaseURL != "" {
		cfg.LLM.BaseURL = flagLLMBaseURL
	}
	if flagEmbeddingName != "" {
		cfg.Embedding.Model = flagEmbeddingName
	}
	if flagOpenIEMode != "" {
		cfg.Retrieval.OpenIEMode = flagOpenIEMode
	}
	if flagForceIndexFromScratch {
		cfg.Retrieval.ForceIndexFromScratch = true
	}
	if flagForceOpenIEFromScratch {
		cfg.Retrieval.ForceOpenIEFromScratch = true
	}
	if flagRerankDSPyFilePath != "" {
		cfg.Retrieval.RerankDemosPath = flagRerankDSPyFilePath
	}
	return cfg, nil
}

// usageErrorf reports a usage error; callers should exit with code 2.
func usageErrorf(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

// IsUsageError reports whether err (or one it wraps) is a usage error,
// so cmd/main.go can pick the exit code spec §6 documents.
func IsUsageError(err error) bool {
	var ue *usageError
	return errors.As(err, &ue)
}

// canonicalizeWithinCWD resolves path to an absolute, symlink-free form
// and rejects anything outside the process's current working directory
// (spec §6: "File paths are canonicalized and must resolve within the
// current working directory.").
func canonicalizeWithinCWD(path string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	cwd, err = filepath.EvalSymlinks(cwd)
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}

	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(cwd, abs)
	}
	abs = filepath.Clean(abs)

	resolved := abs
	if _, err := os.Lstat(abs); err == nil {
		if real, err := filepath.EvalSymlinks(abs); err == nil {
			resolved = real
		}
	}

	rel, err := filepath.Rel(cwd, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", usageErrorf("path %q resolves outside the current working directory", path)
	}
	return abs, nil
}
