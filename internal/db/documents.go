package db

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"glass-rag/internal/vectorstore"
)

// Document is one stored chunk record.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Content       string    `bun:"content,notnull"`
	Embedding     Vector    `bun:"embedding,notnull,type:vector(768)"`
	Filename      string    `bun:"filename,notnull"`
	FileType      string    `bun:"file_type,notnull"`
	UploadDate    time.Time `bun:"upload_date,notnull"`
}

type documentMatch struct {
	Document
	Score float32 `bun:"score,scanonly"`
}

// DocumentStore is the pgvector-backed vector store. Similarity is cosine:
// score = 1 - (embedding <=> query), which pgvector keeps in [0,1] for
// normalized embeddings.
type DocumentStore struct {
	db *bun.DB
}

var _ vectorstore.Store = (*DocumentStore)(nil)

func NewDocumentStore(db *bun.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Add persists all records in one multi-row insert, so a failure stores
// nothing.
func (s *DocumentStore) Add(ctx context.Context, records []vectorstore.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]Document, len(records))
	for i, r := range records {
		docs[i] = Document{
			Content:    r.Content,
			Embedding:  Vector(r.Embedding),
			Filename:   r.Filename,
			FileType:   r.FileType,
			UploadDate: r.UploadDate,
		}
	}
	_, err := s.db.NewInsert().Model(&docs).Exec(ctx)
	return err
}

func (s *DocumentStore) Search(ctx context.Context, queryEmbedding []float32, k int, minScore float32) ([]vectorstore.Match, error) {
	vec := Vector(queryEmbedding).String()

	var rows []documentMatch
	err := s.db.NewSelect().
		Model(&rows).
		ColumnExpr("d.*").
		ColumnExpr("1 - (d.embedding <=> ?::vector) AS score", vec).
		Where("1 - (d.embedding <=> ?::vector) >= ?", vec, minScore).
		OrderExpr("d.embedding <=> ?::vector", vec).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([]vectorstore.Match, len(rows))
	for i, row := range rows {
		matches[i] = vectorstore.Match{
			Chunk: vectorstore.ChunkRecord{
				Content:    row.Content,
				Embedding:  row.Embedding,
				Filename:   row.Filename,
				FileType:   row.FileType,
				UploadDate: row.UploadDate,
			},
			Score: row.Score,
		}
	}
	return matches, nil
}
