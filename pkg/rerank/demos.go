package rerank

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Demo is one few-shot example rendered into the reranker prompt (spec
// §4.5's DSPy-style template: "system message and few-shot demos").
type Demo struct {
	Question string     `json:"question" yaml:"question"`
	Facts    [][]string `json:"fact" yaml:"fact"`
}

// DefaultDemos is the compiled-in few-shot set used when no
// --rerank_dspy_file_path is configured.
func DefaultDemos() []Demo {
	return []Demo{
		{
			Question: "Which country is the Eiffel Tower located in?",
			Facts: [][]string{
				{"eiffel tower", "located in", "paris"},
				{"paris", "capital of", "france"},
			},
		},
	}
}

// LoadDemos reads few-shot demos from a JSON or YAML file, selected by
// extension. Returns DefaultDemos() if path is empty.
func LoadDemos(path string) ([]Demo, error) {
	if path == "" {
		return DefaultDemos(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rerank: read demos file %s: %w", path, err)
	}

	var demos []Demo
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &demos); err != nil {
			return nil, fmt.Errorf("rerank: decode yaml demos file %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &demos); err != nil {
			return nil, fmt.Errorf("rerank: decode json demos file %s: %w", path, err)
		}
	}

	return demos, nil
}
