package vectorstore

import (
	"context"
	"time"
)

// ChunkRecord is the unit of retrievable knowledge: one chunk of a source
// document together with its embedding and provenance metadata. Records are
// immutable once stored.
type ChunkRecord struct {
	Content    string
	Embedding  []float32
	Filename   string
	FileType   string
	UploadDate time.Time
}

// Match pairs a stored chunk with its similarity to a query embedding.
type Match struct {
	Chunk ChunkRecord
	Score float32
}

// Store persists chunk records and answers nearest-neighbor queries.
// Similarity is cosine similarity in [0,1] for both backends; embeddings are
// only comparable when ingestion and query use the same embedding model.
type Store interface {
	// Add persists all records in a single batch. Either every record is
	// stored or none.
	Add(ctx context.Context, records []ChunkRecord) error

	// Search returns at most k records with similarity >= minScore,
	// ordered by descending similarity. An empty result is not an error.
	Search(ctx context.Context, queryEmbedding []float32, k int, minScore float32) ([]Match, error)
}
