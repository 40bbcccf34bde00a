package openie

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/oakmoss/graphrag/pkg/llmclient"
)

// ReferenceExtractor implements Extractor by rendering two prompt
// templates (ner, then triple_extraction) through an LLM chat client
// (spec §6). It is a reference implementation of the OpenIE collaborator
// contract; other implementations (offline, transformers-offline) share
// the same contract but differ in when extraction happens.
type ReferenceExtractor struct {
	client llmclient.Client
	log    *slog.Logger
}

// NewReferenceExtractor wraps client as an Extractor.
func NewReferenceExtractor(client llmclient.Client) *ReferenceExtractor {
	return &ReferenceExtractor{
		client: client,
		log:    slog.Default().With("component", "openie"),
	}
}

// BatchOpenIE implements Extractor. Extraction failures for a single
// chunk are Content errors: logged and the chunk gets an empty result,
// but the batch as a whole still completes (spec §7).
func (e *ReferenceExtractor) BatchOpenIE(ctx context.Context, rows map[string]string) (map[string]NerOut, map[string]TripleOut, error) {
	ner := make(map[string]NerOut, len(rows))
	triples := make(map[string]TripleOut, len(rows))

	ids := make([]string, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		content := rows[id]

		nerOut, err := e.extractNER(ctx, id, content)
		if err != nil {
			e.log.Warn("ner extraction failed", "chunk_id", id, "error", err)
			nerOut = NerOut{ChunkID: id, Metadata: map[string]any{"error": err.Error()}}
		}
		ner[id] = nerOut

		tripleOut, err := e.extractTriples(ctx, id, content, nerOut.UniqueEntities)
		if err != nil {
			e.log.Warn("triple extraction failed", "chunk_id", id, "error", err)
			tripleOut = TripleOut{ChunkID: id, Metadata: map[string]any{"error": err.Error()}}
		}
		triples[id] = tripleOut
	}

	return ner, triples, nil
}

func (e *ReferenceExtractor) extractNER(ctx context.Context, chunkID, content string) (NerOut, error) {
	sysPrompt := `You are a careful information extraction assistant. Your only job is to list the named entities mentioned in a passage of text.`
	userPrompt := fmt.Sprintf(`<PASSAGE>
%s
</PASSAGE>

Extract every named entity explicitly mentioned in the passage above: people, places, organizations, dates, works, and other proper nouns or specific concepts. Do not invent entities that are not in the text.

Respond with a single JSON object of the form:
{"named_entities": ["entity one", "entity two", ...]}

Respond with the JSON object only, no commentary.`, content)

	resp, err := e.client.Infer(ctx, []llmclient.Message{
		llmclient.NewSystemMessage(sysPrompt),
		llmclient.NewUserMessage(userPrompt),
	})
	if err != nil {
		return NerOut{}, fmt.Errorf("openie: ner inference: %w", err)
	}

	entities, parseErr := extractStringArray(resp.Content, "named_entities")
	if parseErr != nil {
		return NerOut{}, fmt.Errorf("openie: parse ner response: %w", parseErr)
	}

	return NerOut{
		ChunkID:        chunkID,
		Response:       resp.Content,
		UniqueEntities: dedupeStrings(entities),
		Metadata:       resp.Metadata,
	}, nil
}

func (e *ReferenceExtractor) extractTriples(ctx context.Context, chunkID, content string, entities []string) (TripleOut, error) {
	sysPrompt := `You are a careful information extraction assistant. Your only job is to extract relational triples from a passage of text, given a list of entities already found in it.`
	userPrompt := fmt.Sprintf(`<PASSAGE>
%s
</PASSAGE>

<ENTITIES>
%s
</ENTITIES>

Extract relational triples (subject, relation, object) between the ENTITIES above, based only on what is stated or clearly implied in the PASSAGE. Every subject and object must be one of the listed entities (or a close surface form of one). Do not invent facts not supported by the passage.

Respond with a single JSON object of the form:
{"triples": [["subject", "relation", "object"], ...]}

Respond with the JSON object only, no commentary.`, content, strings.Join(entities, ", "))

	resp, err := e.client.Infer(ctx, []llmclient.Message{
		llmclient.NewSystemMessage(sysPrompt),
		llmclient.NewUserMessage(userPrompt),
	})
	if err != nil {
		return TripleOut{}, fmt.Errorf("openie: triple inference: %w", err)
	}

	raw, parseErr := extractTripleArray(resp.Content)
	if parseErr != nil {
		return TripleOut{}, fmt.Errorf("openie: parse triple response: %w", parseErr)
	}

	return TripleOut{
		ChunkID:  chunkID,
		Response: resp.Content,
		Triples:  raw,
		Metadata: resp.Metadata,
	}, nil
}

var jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// extractStringArray tolerantly parses an LLM response for
// {"<key>": [...]}: direct decode first, then jsonrepair, then a regex
// scan for the first brace-delimited object in the text.
func extractStringArray(response, key string) ([]string, error) {
	candidates := []string{response}
	if repaired, err := jsonrepair.JSONRepair(response); err == nil {
		candidates = append(candidates, repaired)
	}
	if m := jsonObjectPattern.FindString(response); m != "" {
		candidates = append(candidates, m)
		if repaired, err := jsonrepair.JSONRepair(m); err == nil {
			candidates = append(candidates, repaired)
		}
	}

	for _, c := range candidates {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(c), &obj); err != nil {
			continue
		}
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			continue
		}
		return list, nil
	}

	return nil, fmt.Errorf("no JSON object with key %q found in response", key)
}

// extractTripleArray tolerantly parses {"triples": [[s,r,o], ...]}.
func extractTripleArray(response string) ([][]string, error) {
	candidates := []string{response}
	if repaired, err := jsonrepair.JSONRepair(response); err == nil {
		candidates = append(candidates, repaired)
	}
	if m := jsonObjectPattern.FindString(response); m != "" {
		candidates = append(candidates, m)
		if repaired, err := jsonrepair.JSONRepair(m); err == nil {
			candidates = append(candidates, repaired)
		}
	}

	for _, c := range candidates {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(c), &obj); err != nil {
			continue
		}
		raw, ok := obj["triples"]
		if !ok {
			continue
		}
		var list [][]string
		if err := json.Unmarshal(raw, &list); err != nil {
			continue
		}
		return list, nil
	}

	return nil, fmt.Errorf("no JSON object with key \"triples\" found in response")
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
