package qa

import (
	"fmt"
	"strings"
)

// Template is a dataset-specific chat template for the QA prompt (spec
// §4.8). System carries the instruction shown once as a system message;
// the per-query passages and question are rendered into the user
// message by BuildPrompt.
type Template struct {
	Name   string
	System string
}

const defaultTemplateName = "rag_qa_musique"

const defaultSystem = `As an advanced reading comprehension assistant, your task is to analyze text passages and corresponding questions meticulously. Your response start after "Thought: ", where you will methodically break down the reasoning process, illustrating how you arrive at conclusions. Conclude with "Answer: " to present a concise, definitive response, devoid of additional elaborations.`

// DefaultTemplates returns the built-in template registry. Multi-hop QA
// benchmarks (musique, hotpotqa, 2wikimultihopqa) share the same
// chain-of-thought instruction; each dataset gets its own registry
// entry so a future dataset-specific rewrite doesn't disturb the
// others.
func DefaultTemplates() map[string]Template {
	names := []string{defaultTemplateName, "rag_qa_hotpotqa", "rag_qa_2wikimultihopqa"}
	out := make(map[string]Template, len(names))
	for _, n := range names {
		out[n] = Template{Name: n, System: defaultSystem}
	}
	return out
}

// SelectTemplate looks up "rag_qa_<dataset>" in templates, falling back
// to "rag_qa_musique" when the dataset has no dedicated entry (spec
// §4.8).
func SelectTemplate(templates map[string]Template, dataset string) Template {
	key := "rag_qa_" + dataset
	if t, ok := templates[key]; ok {
		return t
	}
	return templates[defaultTemplateName]
}

// BuildPrompt renders the retrieved passages and question into the
// user-message body: "Wikipedia Title: <doc>\n\n" once per doc, followed
// by "Question: <q>\nThought: " (spec §4.8).
func BuildPrompt(docs []string, question string) string {
	var b strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&b, "Wikipedia Title: %s\n\n", d)
	}
	fmt.Fprintf(&b, "Question: %s\nThought: ", question)
	return b.String()
}
