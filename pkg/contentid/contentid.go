// Package contentid derives deterministic, content-addressed identifiers
// for the objects the graph indexes: passage chunks, phrases, and facts.
//
// An id is a namespace prefix followed by the hex MD5 digest of the UTF-8
// text it identifies. Hashing is pure and platform-independent: the same
// text and prefix always produce the same id, in this process or any
// other.
package contentid

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
)

const (
	// ChunkPrefix namespaces passage chunk ids.
	ChunkPrefix = "chunk-"
	// EntityPrefix namespaces phrase (entity) ids.
	EntityPrefix = "entity-"
	// FactPrefix namespaces triple (fact) ids.
	FactPrefix = "fact-"
)

// Hash returns prefix + hex(md5(text)).
func Hash(text, prefix string) string {
	sum := md5.Sum([]byte(text))
	return prefix + hex.EncodeToString(sum[:])
}

// Chunk returns the content-addressed id of a passage chunk.
func Chunk(text string) string {
	return Hash(text, ChunkPrefix)
}

// Entity returns the content-addressed id of an already-processed phrase.
// Callers must run Process on raw entity text before calling Entity so
// that distinct spellings that share a processed form collapse to the
// same id.
func Entity(processed string) string {
	return Hash(processed, EntityPrefix)
}

// Fact returns the content-addressed id of a processed (subject, relation,
// object) triple, keyed by its canonical stringified form.
func Fact(subject, relation, object string) string {
	return Hash(StringifyTriple(subject, relation, object), FactPrefix)
}

// StringifyTriple renders a triple into the canonical form hashed for fact
// identity: a JSON-array-like literal so that (a,b,c) and (a·b·c) via naive
// concatenation never collide.
func StringifyTriple(subject, relation, object string) string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(subject)
	b.WriteByte('|')
	b.WriteString(relation)
	b.WriteByte('|')
	b.WriteString(object)
	b.WriteByte(']')
	return b.String()
}

var (
	nonAlnumSpace = regexp.MustCompile(`[^a-z0-9 ]`)
	runsOfSpace   = regexp.MustCompile(` +`)
)

// Process lower-cases s, replaces every character outside [A-Za-z0-9 ]
// with a space, collapses runs of spaces to one, and trims surrounding
// whitespace. Two distinct raw spellings collapse to the same phrase iff
// their processed forms are byte-equal.
func Process(s string) string {
	lower := strings.ToLower(s)
	replaced := nonAlnumSpace.ReplaceAllString(lower, " ")
	collapsed := runsOfSpace.ReplaceAllString(replaced, " ")
	return strings.TrimSpace(collapsed)
}
