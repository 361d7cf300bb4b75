package models

// RetrievedContext is the ephemeral result of hybrid retrieval: vector
// chunks plus graph relation hints, already capped and formatted. It is
// never persisted; every query reconstructs it from the stores.
type RetrievedContext struct {
	// Chunks are the ranked vector matches, at most topK entries.
	Chunks []ChunkMatch `json:"chunks"`

	// RelationHints are natural-language renderings of graph facts,
	// capped at MaxRelationHints entries.
	RelationHints []string `json:"relation_hints"`

	// Text is the prompt-ready wire format: numbered chunk blocks carrying
	// "(Source: url, Score: 0.000)" suffixes followed by the relation list.
	// Downstream citation extraction regex-matches the source suffixes.
	Text string `json:"text"`
}

// MaxRelationHints bounds how many graph facts reach the prompt.
const MaxRelationHints = 12

// DefaultTopK is the vector search depth used during context assembly.
const DefaultTopK = 5
