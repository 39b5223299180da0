package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"glass-rag/internal/chunker"
	"glass-rag/internal/config"
	"glass-rag/internal/embedding"
	"glass-rag/internal/parser"
	"glass-rag/internal/vectorstore"
)

// Embedding calls are independent of each other, so they fan out; the limit
// keeps one big document from flooding the embedding service.
const maxConcurrentEmbeds = 8

// Ingestor turns one uploaded document into stored chunk records:
// extract -> chunk -> embed -> batch write.
type Ingestor struct {
	embedder  embedding.Embedder
	store     vectorstore.Store
	chunkSize int
	overlap   int
}

func NewIngestor(embedder embedding.Embedder, store vectorstore.Store, cfg *config.RAGConfig) *Ingestor {
	return &Ingestor{
		embedder:  embedder,
		store:     store,
		chunkSize: cfg.ChunkSize,
		overlap:   cfg.ChunkOverlap,
	}
}

// Ingest processes one uploaded document and returns the number of chunks
// stored. Ingestion is all-or-nothing: if any embedding call fails, no
// records are written, so a document is never partially searchable.
func (ing *Ingestor) Ingest(ctx context.Context, data []byte, mimeType, filename string) (int, error) {
	text, err := parser.Extract(data, mimeType)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("%w: %s", parser.ErrEmptyDocument, filename)
	}

	chunks, err := chunker.Split(text, ing.chunkSize, ing.overlap)
	if err != nil {
		return 0, err
	}

	log.Debug().Str("file", filename).Int("chunks", len(chunks)).Msg("Split document")

	// Results land at their chunk index, so document order is preserved no
	// matter which embedding call finishes first.
	embeddings := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentEmbeds)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			vec, err := ing.embedder.EmbedQuery(gctx, chunk)
			if err != nil {
				return err
			}
			embeddings[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	now := time.Now()
	records := make([]vectorstore.ChunkRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = vectorstore.ChunkRecord{
			Content:    chunk,
			Embedding:  embeddings[i],
			Filename:   filename,
			FileType:   mimeType,
			UploadDate: now,
		}
	}

	if err := ing.store.Add(ctx, records); err != nil {
		return 0, fmt.Errorf("error storing chunk records: %w", err)
	}

	log.Info().Str("file", filename).Int("chunks", len(chunks)).Msg("Document ingested")
	return len(chunks), nil
}
