package domain

// VectorEntry is an embedded chunk ready to be written to a vector store.
type VectorEntry struct {
	// ID is the store-assigned identifier.
	ID string

	// Embedding is the chunk's vector representation.
	Embedding []float32

	// Chunk is the stored text and metadata.
	Chunk Chunk
}

// ScoredChunk is a single similarity search hit.
type ScoredChunk struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Distance is the cosine distance to the query (lower is closer).
	Distance float64
}

// RetrievedDoc is a chunk returned for one query, labelled with an
// identifier that is only meaningful within that query's evidence set.
type RetrievedDoc struct {
	ID       string
	Content  string
	Metadata Metadata
}

// EvidenceSet is the retrieval result for a single query.
type EvidenceSet struct {
	// Query is the user's original question.
	Query string

	// Queries are the queries actually searched, in order.
	Queries []string

	// Docs are the retrieved documents after de-duplication.
	Docs []RetrievedDoc
}

// Map indexes the evidence by identifier.
func (e *EvidenceSet) Map() map[string]RetrievedDoc {
	out := make(map[string]RetrievedDoc, len(e.Docs))
	for _, d := range e.Docs {
		out[d.ID] = d
	}
	return out
}

// Citation identifies a source document that supports an answer.
type Citation struct {
	Source string `json:"source"`
	Domain string `json:"domain"`
}

// Answer is the response to a natural-language query.
type Answer struct {
	// Query is the question that was asked.
	Query string `json:"query"`

	// Response is the generated answer text.
	Response string `json:"response"`

	// Citations are the de-duplicated sources backing the answer.
	Citations []Citation `json:"citations,omitempty"`

	// References are page-level citation strings ("source (page N)").
	References []string `json:"references,omitempty"`

	// Evidence is the retrieved context the answer was generated from.
	Evidence []RetrievedDoc `json:"-"`
}
