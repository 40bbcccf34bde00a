package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/oakmoss/graphrag/pkg/contentid"
	"github.com/oakmoss/graphrag/pkg/graph"
	"github.com/oakmoss/graphrag/pkg/openie"
	"github.com/oakmoss/graphrag/pkg/utils"
	"github.com/oakmoss/graphrag/pkg/vectorstore"
)

// ErrOfflineOpenIERequired is returned by Index when Config.OpenIEMode is
// "offline" and the chunk set has entries with no cached OpenIE result:
// offline mode requires PreOpenIE to have populated the cache first
// (spec §4.6, §5).
var ErrOfflineOpenIERequired = errors.New("indexer: openie_mode is offline; run PreOpenIE on these documents first")

// Config carries the graph-construction knobs from spec §4.6.
type Config struct {
	OpenIEMode               string // "online", "offline", "transformers-offline"
	SynonymyEdgeTopK         int
	SynonymyEdgeSimThreshold float64
}

// Indexer builds and maintains the chunk/entity/fact embedding stores and
// the property graph from a corpus of documents (spec §4.6).
type Indexer struct {
	chunkStore  *vectorstore.Store
	entityStore *vectorstore.Store
	factStore   *vectorstore.Store
	graph       *graph.Graph
	graphPath   string
	openie      *openie.Store
	extractor   openie.Extractor
	cfg         Config
	log         *slog.Logger
}

// New constructs an Indexer over already-open stores. graphPath is where
// Save persists the graph after each Index/Delete call.
func New(chunkStore, entityStore, factStore *vectorstore.Store, g *graph.Graph, graphPath string, openieStore *openie.Store, extractor openie.Extractor, cfg Config) *Indexer {
	return &Indexer{
		chunkStore:  chunkStore,
		entityStore: entityStore,
		factStore:   factStore,
		graph:       g,
		graphPath:   graphPath,
		openie:      openieStore,
		extractor:   extractor,
		cfg:         cfg,
		log:         slog.Default().With("component", "indexer"),
	}
}

// PreOpenIE runs OpenIE extraction for docs and persists the results
// without touching the graph, for offline_mode's separate extraction
// pass (spec §5).
func (idx *Indexer) PreOpenIE(ctx context.Context, docs []string) error {
	_, err := idx.ensureOpenIE(ctx, nonBlank(docs), true)
	return err
}

// Index runs the full incremental index procedure (spec §4.6):
//  1. Insert every document into the chunk embedding store.
//  2. Partition against the OpenIE cache; extract what is missing.
//  3. Text-process triples and collect per-chunk entities.
//  4. Insert distinct entities and stringified facts into their stores.
//  5. Accumulate triple co-occurrence and passage edge weights.
//  6. Link entities via synonymy K-nearest-neighbors.
//  7. Add new vertices and edges to the graph, then persist it.
//
// Chunks that are already graph vertices do not contribute new edges:
// their triples were already folded into edge weights on a prior call.
func (idx *Indexer) Index(ctx context.Context, docs []string) error {
	nonBlankDocs := nonBlank(docs)
	if len(nonBlankDocs) == 0 {
		return nil
	}

	if _, err := idx.chunkStore.Insert(ctx, nonBlankDocs); err != nil {
		return fmt.Errorf("indexer: insert chunks: %w", err)
	}

	chunkIDToContent, err := idx.ensureOpenIE(ctx, nonBlankDocs, false)
	if err != nil {
		return err
	}

	var newChunkIDs []string
	for id := range chunkIDToContent {
		if !idx.graph.HasVertex(id) {
			newChunkIDs = append(newChunkIDs, id)
		}
	}
	sort.Strings(newChunkIDs)
	if len(newChunkIDs) == 0 {
		return nil
	}

	entityTexts := make(map[string]string) // entity id -> processed text
	factTexts := make(map[string]string)   // fact id -> stringified triple
	weightDelta := make(map[edgeKeyT]float64)

	for _, chunkID := range newChunkIDs {
		doc, ok := idx.openie.Get(chunkID)
		if !ok {
			idx.log.Warn("openie record missing for new chunk, skipping", "chunk_id", chunkID)
			continue
		}

		filtered := openie.FilterInvalidTriples(doc.ExtractedTriples)
		mentioned := make(map[string]bool)

		for _, t := range filtered {
			pt := openie.ProcessTriple(t)
			if pt.Subject == "" || pt.Object == "" {
				continue
			}
			subjID := contentid.Entity(pt.Subject)
			objID := contentid.Entity(pt.Object)
			entityTexts[subjID] = pt.Subject
			entityTexts[objID] = pt.Object
			mentioned[subjID] = true
			mentioned[objID] = true

			factID := contentid.Fact(pt.Subject, pt.Relation, pt.Object)
			factTexts[factID] = contentid.StringifyTriple(pt.Subject, pt.Relation, pt.Object)

			weightDelta[edgeKeyT{subjID, objID}]++
			weightDelta[edgeKeyT{objID, subjID}]++
		}

		for entityID := range mentioned {
			weightDelta[edgeKeyT{chunkID, entityID}]++
		}
	}

	if err := idx.insertSorted(ctx, idx.entityStore, entityTexts); err != nil {
		return fmt.Errorf("indexer: insert entities: %w", err)
	}
	if err := idx.insertSorted(ctx, idx.factStore, factTexts); err != nil {
		return fmt.Errorf("indexer: insert facts: %w", err)
	}

	idx.linkSynonyms(entityTexts, weightDelta)

	if err := idx.applyGraphUpdate(chunkIDToContent, newChunkIDs, entityTexts, weightDelta); err != nil {
		return err
	}

	return idx.graph.Save(idx.graphPath)
}

// ensureOpenIE partitions docs against the cache, extracts the missing
// subset, merges the results in, and returns the full chunk id -> content
// map for docs (spec §4.6 steps 2-3). In offline mode extraction runs
// only when extractOffline is set (the PreOpenIE pass); otherwise a
// missing cache entry yields ErrOfflineOpenIERequired.
func (idx *Indexer) ensureOpenIE(ctx context.Context, docs []string, extractOffline bool) (map[string]string, error) {
	chunkIDToContent := make(map[string]string, len(docs))
	for _, d := range docs {
		chunkIDToContent[contentid.Chunk(d)] = d
	}

	_, toExtract := idx.openie.Partition(chunkIDToContent)
	if len(toExtract) == 0 {
		return chunkIDToContent, nil
	}

	if idx.cfg.OpenIEMode == "offline" && !extractOffline {
		return nil, ErrOfflineOpenIERequired
	}

	ner, triples, err := idx.extractor.BatchOpenIE(ctx, toExtract)
	if err != nil {
		return nil, fmt.Errorf("indexer: openie extraction: %w", err)
	}

	ids := make([]string, 0, len(toExtract))
	for id := range toExtract {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	newDocs := make([]openie.DocRecord, 0, len(ids))
	for _, id := range ids {
		newDocs = append(newDocs, openie.DocRecord{
			Idx:               id,
			Passage:           toExtract[id],
			ExtractedEntities: ner[id].UniqueEntities,
			ExtractedTriples:  triples[id].Triples,
		})
	}
	if err := idx.openie.Merge(newDocs); err != nil {
		return nil, fmt.Errorf("indexer: merge openie results: %w", err)
	}

	return chunkIDToContent, nil
}

func (idx *Indexer) insertSorted(ctx context.Context, store *vectorstore.Store, texts map[string]string) error {
	if len(texts) == 0 {
		return nil
	}
	ids := make([]string, 0, len(texts))
	for id := range texts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	ordered := make([]string, len(ids))
	for i, id := range ids {
		ordered[i] = texts[id]
	}
	_, err := store.Insert(ctx, ordered)
	return err
}

var alnumOnly = regexp.MustCompile(`[^a-z0-9]`)

// linkSynonyms runs exact K-NN over the entity embedding space for every
// entity introduced by this call, adding entity -> neighbor edges to
// weightDelta for neighbors at or above SynonymyEdgeSimThreshold (spec
// §4.6 step 6). Entities whose processed form has 2 or fewer alphanumeric
// characters are skipped: short generic phrases produce noisy neighbors.
func (idx *Indexer) linkSynonyms(newEntities map[string]string, weightDelta map[edgeKeyT]float64) {
	if len(newEntities) == 0 {
		return
	}

	allIDs := idx.entityStore.AllIDs()
	if len(allIDs) < 2 {
		return
	}
	allVectors := idx.entityStore.Embeddings(allIDs)

	newIDs := make([]string, 0, len(newEntities))
	for id := range newEntities {
		newIDs = append(newIDs, id)
	}
	sort.Strings(newIDs)

	for _, id := range newIDs {
		if len(alnumOnly.ReplaceAllString(newEntities[id], "")) <= 2 {
			continue
		}
		vec, ok := idx.entityStore.Embedding(id)
		if !ok {
			continue
		}

		items := make([]utils.ScoredItem[string], 0, len(allIDs))
		for i, otherID := range allIDs {
			if otherID == id {
				continue
			}
			score := utils.CosineSimilarity64(vec, allVectors[i])
			if score < idx.cfg.SynonymyEdgeSimThreshold {
				continue
			}
			items = append(items, utils.ScoredItem[string]{Item: otherID, Score: score})
		}

		top := utils.TopKByScore(items, idx.cfg.SynonymyEdgeTopK)
		for _, n := range top {
			// Synonymy edges are undirected (spec §4.6): store both arcs
			// explicitly, matching the triple-edge storage convention.
			weightDelta[edgeKeyT{id, n.Item}] += n.Score
			weightDelta[edgeKeyT{n.Item, id}] += n.Score
		}
	}
}

type edgeKeyT struct{ from, to string }

// applyGraphUpdate adds vertices for new chunks and new entities, then
// flushes weightDelta into graph edges (spec §4.6 step 7). Vertices must
// exist before edges are added, since AddEdges silently drops edges with
// unknown endpoints.
func (idx *Indexer) applyGraphUpdate(chunkIDToContent map[string]string, newChunkIDs []string, entityTexts map[string]string, weightDelta map[edgeKeyT]float64) error {
	chunkNames := make([]string, 0, len(newChunkIDs))
	chunkHashes := make([]string, 0, len(newChunkIDs))
	chunkContents := make([]string, 0, len(newChunkIDs))
	for _, id := range newChunkIDs {
		chunkNames = append(chunkNames, id)
		chunkHashes = append(chunkHashes, id)
		chunkContents = append(chunkContents, chunkIDToContent[id])
	}
	if len(chunkNames) > 0 {
		if err := idx.graph.AddVertices(chunkNames, chunkHashes, chunkContents); err != nil {
			return fmt.Errorf("indexer: add chunk vertices: %w", err)
		}
	}

	var newEntityIDs []string
	for id := range entityTexts {
		if !idx.graph.HasVertex(id) {
			newEntityIDs = append(newEntityIDs, id)
		}
	}
	sort.Strings(newEntityIDs)
	if len(newEntityIDs) > 0 {
		entityHashes := make([]string, len(newEntityIDs))
		entityContents := make([]string, len(newEntityIDs))
		for i, id := range newEntityIDs {
			entityHashes[i] = id
			entityContents[i] = entityTexts[id]
		}
		if err := idx.graph.AddVertices(newEntityIDs, entityHashes, entityContents); err != nil {
			return fmt.Errorf("indexer: add entity vertices: %w", err)
		}
	}

	if len(weightDelta) == 0 {
		return nil
	}
	keys := make([]edgeKeyT, 0, len(weightDelta))
	for k := range weightDelta {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].from != keys[j].from {
			return keys[i].from < keys[j].from
		}
		return keys[i].to < keys[j].to
	})

	sources := make([]string, len(keys))
	targets := make([]string, len(keys))
	weights := make([]float64, len(keys))
	for i, k := range keys {
		sources[i] = k.from
		targets[i] = k.to
		weights[i] = weightDelta[k]
	}
	idx.graph.AddEdges(sources, targets, weights)
	return nil
}

// Delete removes docs from the chunk store and cascades removal to any
// entity or fact no surviving chunk still references (spec §4.6):
//  1. Resolve docs to existing chunk ids; no-op if none exist.
//  2. Recompute entity/fact -> chunks accounting from the OpenIE cache
//     as it stands before removal.
//  3. Partition the OpenIE cache, persisting the kept subset.
//  4. An entity or fact is only truly removable if every chunk that
//     referenced it is being deleted.
//  5. Delete rows from the chunk/entity/fact stores and cascade the
//     entity and chunk vertex removal in the graph, then persist it.
func (idx *Indexer) Delete(docs []string) error {
	var deleteIDs []string
	for _, d := range nonBlank(docs) {
		id := contentid.Chunk(d)
		if _, ok := idx.chunkStore.Row(id); ok {
			deleteIDs = append(deleteIDs, id)
		}
	}
	if len(deleteIDs) == 0 {
		return nil
	}
	deleteSet := make(map[string]bool, len(deleteIDs))
	for _, id := range deleteIDs {
		deleteSet[id] = true
	}

	entityToChunks, factToChunks := openie.EntityToChunks(idx.openie.Docs())

	if _, err := idx.openie.Delete(deleteIDs); err != nil {
		return fmt.Errorf("indexer: delete openie cache: %w", err)
	}

	removableFactIDs := removableKeys(factToChunks, deleteSet)
	removableEntityIDs := removableKeys(entityToChunks, deleteSet)

	if err := idx.chunkStore.Delete(deleteIDs); err != nil {
		return fmt.Errorf("indexer: delete chunks: %w", err)
	}
	if len(removableFactIDs) > 0 {
		if err := idx.factStore.Delete(removableFactIDs); err != nil {
			return fmt.Errorf("indexer: delete facts: %w", err)
		}
	}
	if len(removableEntityIDs) > 0 {
		if err := idx.entityStore.Delete(removableEntityIDs); err != nil {
			return fmt.Errorf("indexer: delete entities: %w", err)
		}
	}

	idx.graph.DeleteVertices(append(append([]string{}, deleteIDs...), removableEntityIDs...))
	return idx.graph.Save(idx.graphPath)
}

// removableKeys returns the keys whose entire set of referencing chunks
// is contained in deleteSet.
func removableKeys(chunksByKey map[string]map[string]bool, deleteSet map[string]bool) []string {
	var out []string
	for key, chunks := range chunksByKey {
		removable := true
		for chunkID := range chunks {
			if !deleteSet[chunkID] {
				removable = false
				break
			}
		}
		if removable {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

func nonBlank(docs []string) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}
