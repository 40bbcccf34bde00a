package contentid_test

import (
	"testing"

	"github.com/oakmoss/graphrag/pkg/contentid"
	"github.com/stretchr/testify/assert"
)

func TestHashDeterministic(t *testing.T) {
	a := contentid.Hash("Paris is the capital of France.", contentid.ChunkPrefix)
	b := contentid.Hash("Paris is the capital of France.", contentid.ChunkPrefix)
	assert.Equal(t, a, b)
	assert.Equal(t, contentid.ChunkPrefix, a[:len(contentid.ChunkPrefix)])
}

func TestHashDiffersByPrefix(t *testing.T) {
	a := contentid.Hash("paris", contentid.ChunkPrefix)
	b := contentid.Hash("paris", contentid.EntityPrefix)
	assert.NotEqual(t, a, b)
}

func TestChunkAndEntityHelpers(t *testing.T) {
	assert.Equal(t, contentid.Hash("hello", contentid.ChunkPrefix), contentid.Chunk("hello"))
	assert.Equal(t, contentid.Hash("hello", contentid.EntityPrefix), contentid.Entity("hello"))
}

func TestProcessLowercasesAndStripsPunctuation(t *testing.T) {
	assert.Equal(t, "us", contentid.Process("US"))
	assert.Equal(t, "usa", contentid.Process("USA."))
	assert.Equal(t, "the eiffel tower", contentid.Process("  The, Eiffel-Tower!  "))
}

func TestProcessCollapsesRunsOfSpace(t *testing.T) {
	assert.Equal(t, "a b", contentid.Process("a   b"))
}

func TestProcessDistinctSpellingsCollapse(t *testing.T) {
	assert.Equal(t, contentid.Process("U.S."), contentid.Process("U S"))
}

func TestFactIdentity(t *testing.T) {
	f1 := contentid.Fact("paris", "capital of", "france")
	f2 := contentid.Fact("paris", "capital of", "france")
	f3 := contentid.Fact("france", "capital of", "paris")
	assert.Equal(t, f1, f2)
	assert.NotEqual(t, f1, f3)
}
