package graphrag

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	indexDocs []string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "index one or more documents into the working directory's graph",
	RunE:  runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringArrayVar(&indexDocs, "docs", nil, "a document's literal text, or @path to read it from a file; repeatable")
}

func runIndex(cmd *cobra.Command, args []string) error {
	if len(indexDocs) == 0 {
		return usageErrorf("index requires at least one --docs value")
	}

	docs, err := resolveDocs(indexDocs)
	if err != nil {
		return err
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

	if err := session.Index(cmd.Context(), docs); err != nil {
		return fmt.Errorf("index: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d document(s) into %s\n", len(docs), session.WorkDir())
	return nil
}

// resolveDocs expands @path arguments into file contents, canonicalizing
// each path within the working directory (spec §6), and passes literal
// text through unchanged.
func resolveDocs(values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !strings.HasPrefix(v, "@") {
			out = append(out, v)
			continue
		}
		path, err := canonicalizeWithinCWD(v[1:])
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		out = append(out, string(data))
	}
	return out, nil
}
