package chromemdb

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/philippgille/chromem-go"

	"glass-rag/internal/helper"
	"glass-rag/internal/vectorstore"
)

const compress = false

// Store is the embedded chromem-go vector store backend. chromem computes
// cosine similarity over normalized embeddings, matching the pgvector
// backend's metric.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
}

var _ vectorstore.Store = (*Store)(nil)

// NewStore opens (or creates) a chromem database at path and binds the named
// collection. An empty path selects an in-memory database.
func NewStore(path, collectionName string) (*Store, error) {
	var db *chromem.DB
	var err error
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	// nil embedding func: documents always arrive with embeddings attached.
	collection, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}

	return &Store{db: db, collection: collection}, nil
}

func (s *Store) Add(ctx context.Context, records []vectorstore.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		id, err := helper.GenerateUUID()
		if err != nil {
			return err
		}
		docs[i] = chromem.Document{
			ID:        id,
			Content:   r.Content,
			Embedding: r.Embedding,
			Metadata: map[string]string{
				"filename":    r.Filename,
				"file_type":   r.FileType,
				"upload_date": r.UploadDate.Format(time.RFC3339),
			},
		}
	}
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, queryEmbedding []float32, k int, minScore float32) ([]vectorstore.Match, error) {
	// chromem rejects queries asking for more results than stored documents.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := s.collection.QueryEmbedding(ctx, queryEmbedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	var matches []vectorstore.Match
	for _, res := range results {
		if res.Similarity < minScore {
			continue
		}
		uploadDate, _ := time.Parse(time.RFC3339, res.Metadata["upload_date"])
		matches = append(matches, vectorstore.Match{
			Chunk: vectorstore.ChunkRecord{
				Content:    res.Content,
				Embedding:  res.Embedding,
				Filename:   res.Metadata["filename"],
				FileType:   res.Metadata["file_type"],
				UploadDate: uploadDate,
			},
			Score: res.Similarity,
		})
	}
	return matches, nil
}
