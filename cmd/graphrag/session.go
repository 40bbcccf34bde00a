package graphrag

import (
	rag "github.com/oakmoss/graphrag"
	"github.com/oakmoss/graphrag/pkg/config"
)

// newSession opens the working directory Session for cfg, wiring the
// LLM/embedding clients described by (spec §5, §6).
func newSession(cfg *config.Config) (*rag.Session, error) {
	return rag.New(cfg, flagDataset)
}
