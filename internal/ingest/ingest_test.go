package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glass-rag/internal/config"
	"glass-rag/internal/parser"
	"glass-rag/internal/vectorstore"
)

type fakeEmbedder struct {
	mu     sync.Mutex
	calls  int
	failOn string
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, errors.New("embedding service unavailable")
	}
	// Deterministic vector derived from the text so tests can check the
	// chunk/embedding pairing.
	return []float32{float32(len(text)), float32(text[0])}, nil
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := f.EmbedQuery(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

type fakeStore struct {
	mu    sync.Mutex
	added [][]vectorstore.ChunkRecord
}

func (f *fakeStore) Add(_ context.Context, records []vectorstore.ChunkRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, records)
	return nil
}

func (f *fakeStore) Search(context.Context, []float32, int, float32) ([]vectorstore.Match, error) {
	return nil, nil
}

func ragConfig() *config.RAGConfig {
	return &config.RAGConfig{ChunkSize: 1000, ChunkOverlap: 200}
}

func TestIngestSplitsAndStores(t *testing.T) {
	store := &fakeStore{}
	ing := NewIngestor(&fakeEmbedder{}, store, ragConfig())

	// 2500 chars with size 1000 / overlap 200 -> windows at 0, 800, 1600, 2400.
	data := []byte(strings.Repeat("x", 2500))
	count, err := ing.Ingest(context.Background(), data, "text/plain", "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	require.Len(t, store.added, 1)
	records := store.added[0]
	require.Len(t, records, 4)
	assert.Len(t, records[0].Content, 1000)
	assert.Len(t, records[3].Content, 100)
	for _, r := range records {
		assert.Equal(t, "doc.txt", r.Filename)
		assert.Equal(t, "text/plain", r.FileType)
		assert.False(t, r.UploadDate.IsZero())
	}
}

func TestIngestPairsEmbeddingsWithChunks(t *testing.T) {
	store := &fakeStore{}
	ing := NewIngestor(&fakeEmbedder{}, store, &config.RAGConfig{ChunkSize: 10, ChunkOverlap: 2})

	var sb strings.Builder
	for i := 0; i < 20; i++ {
		sb.WriteString(fmt.Sprintf("%c234567", 'a'+i))
	}
	_, err := ing.Ingest(context.Background(), []byte(sb.String()), "text/plain", "doc.txt")
	require.NoError(t, err)

	// The fan-out may complete out of order; each record must still carry
	// the vector of its own content.
	for _, r := range store.added[0] {
		require.Len(t, r.Embedding, 2)
		assert.Equal(t, float32(len(r.Content)), r.Embedding[0])
		assert.Equal(t, float32(r.Content[0]), r.Embedding[1])
	}
}

func TestIngestAllOrNothing(t *testing.T) {
	store := &fakeStore{}
	emb := &fakeEmbedder{failOn: "zz"}
	ing := NewIngestor(emb, store, &config.RAGConfig{ChunkSize: 10, ChunkOverlap: 0})

	data := []byte(strings.Repeat("abcdefghij", 5) + "zz trailing chunk")
	_, err := ing.Ingest(context.Background(), data, "text/plain", "doc.txt")
	require.Error(t, err)
	assert.Empty(t, store.added, "no chunk records may be persisted when any embedding fails")
}

func TestIngestEmptyDocument(t *testing.T) {
	store := &fakeStore{}
	ing := NewIngestor(&fakeEmbedder{}, store, ragConfig())

	_, err := ing.Ingest(context.Background(), []byte("   \n\t  "), "text/plain", "blank.txt")
	assert.ErrorIs(t, err, parser.ErrEmptyDocument)
	assert.Empty(t, store.added)
}

func TestIngestUnsupportedType(t *testing.T) {
	store := &fakeStore{}
	ing := NewIngestor(&fakeEmbedder{}, store, ragConfig())

	_, err := ing.Ingest(context.Background(), []byte{0x00, 0x01}, "application/octet-stream", "blob.bin")
	assert.ErrorIs(t, err, parser.ErrUnsupportedType)
	assert.Empty(t, store.added)
}
