// Package ttl defines the domain types of the corpus annotation store:
// the corpus → document → sentence hierarchy, the token/concept/tag
// annotation layers scoped to a sentence, the concept-word link rows
// connecting concepts to the tokens they span, and the key-value metadata
// records attachable at global, document, and corpus scope.
//
// These are plain data carriers; all persistence and integrity enforcement
// lives in the store package.
package ttl

// Corpus is the root of the hierarchy: a named collection of documents.
type Corpus struct {
	ID    int64
	Name  string // globally unique
	Title string
}

// Document is a named unit of text within a corpus, in a given language.
type Document struct {
	ID       int64
	Name     string // globally unique
	Title    string
	Lang     string
	CorpusID int64
}

// Sentence is a unit of text within a document. Flag and Comment are
// free-form passthrough fields with no engine-level interpretation.
//
// Tokens, Concepts, and Tags are populated when a sentence is hydrated by
// Store.GetSentence, and consumed wholesale by Store.SaveSentence.
type Sentence struct {
	ID      int64
	Ident   string // external identifier assigned by the importer
	Text    string
	DocID   int64
	Flag    string
	Comment string

	Tokens   []*Token
	Concepts []*Concept
	Tags     []*Tag
}

// Token is a surface word/unit within a sentence, positioned by its
// sentence-local index (Widx) and character span (Cfrom, Cto).
//
// The character span is advisory: the engine does not validate spans for
// overlap or ordering; that discipline belongs to the importer.
type Token struct {
	ID         int64
	SentenceID int64
	Widx       int // sentence-local index, dense from 0
	Cfrom      int
	Cto        int
	Text       string
	Lemma      string
	POS        string
	Comment    string

	Tags []*Tag // token-level tags, populated on hydration
}

// Concept is a span-level semantic annotation scoped to a sentence,
// linked to the tokens it covers. Flag is a free-form passthrough field.
type Concept struct {
	ID         int64
	SentenceID int64
	Cidx       int // sentence-local index
	Lemma      string
	Tag        string
	Flag       string
	Comment    string

	Tokens []*Token // linked tokens, ordered by Widx when hydrated
}

// CWLink associates a concept with one token it covers. The concept and
// token must belong to the same sentence as the link row itself.
type CWLink struct {
	SentenceID int64
	ConceptID  int64
	TokenID    int64
}

// SpanUnset marks an absent character boundary on a Tag. Tags created with
// SpanUnset boundaries are persisted with NULL spans.
const SpanUnset = -1

// Tag is a generic labeled span scoped to a sentence, optionally narrowed
// to one token. A nil TokenID designates a sentence-level tag. The span is
// independent of any token's span, so a tag may cover a stretch of text
// that coincides with no single token. TagType is a free-form discriminator
// with no engine-level interpretation.
type Tag struct {
	ID         int64
	SentenceID int64
	TokenID    *int64 // nil ⇒ sentence-level tag
	Cfrom      int    // SpanUnset if absent
	Cto        int    // SpanUnset if absent
	Label      string
	Source     string // provenance, e.g. the converter that produced the tag
	TagType    string
}

// SentenceLevel reports whether the tag applies to the whole sentence.
func (t *Tag) SentenceLevel() bool {
	return t.TokenID == nil
}

// SplitTags partitions tags into sentence-level and token-level subsets,
// preserving input order.
func SplitTags(tags []*Tag) (sentence []*Tag, token []*Tag) {
	for _, t := range tags {
		if t.SentenceLevel() {
			sentence = append(sentence, t)
		} else {
			token = append(token, t)
		}
	}
	return sentence, token
}

// Meta is a process-wide key/value pair.
type Meta struct {
	Key   string
	Value string
}

// DocMeta is a key/value pair scoped to a document, addressed by the
// document's globally unique name.
type DocMeta struct {
	DocumentName string
	Key          string
	Value        string
}

// CorpusMeta is a key/value pair scoped to a corpus, addressed by the
// corpus's globally unique name.
type CorpusMeta struct {
	CorpusName string
	Key        string
	Value      string
}
