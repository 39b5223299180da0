package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"glass-rag/internal/config"
	"glass-rag/internal/embedding"
	"glass-rag/internal/llmservice"
	"glass-rag/internal/models"
	"glass-rag/internal/vectorstore"
)

// ErrRetrieval marks vector store query failures. No context is fabricated
// on failure; the chat turn aborts.
var ErrRetrieval = errors.New("retrieval error")

// HistoryStore is the slice of conversation persistence the chat turn needs:
// read the history snapshot, append turns, set the derived title.
type HistoryStore interface {
	Messages(ctx context.Context, chatID int64) ([]models.Message, error)
	Append(ctx context.Context, chatID int64, msg models.Message) error
	SetTitle(ctx context.Context, chatID int64, title string) error
}

// Service answers chat turns with retrieval-augmented completions.
type Service struct {
	store    vectorstore.Store
	history  HistoryStore
	embedder embedding.Embedder
	llm      *llmservice.Client
	cfg      *config.RAGConfig
}

func NewService(store vectorstore.Store, history HistoryStore, embedder embedding.Embedder, llm *llmservice.Client, cfg *config.RAGConfig) *Service {
	return &Service{store: store, history: history, embedder: embedder, llm: llm, cfg: cfg}
}

// Retrieve embeds the query and returns the top-K most similar chunks above
// the relevance threshold. Zero matches is a valid outcome, not an error.
func (s *Service) Retrieve(ctx context.Context, query string) ([]vectorstore.Match, error) {
	queryEmbedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	matches, err := s.store.Search(ctx, queryEmbedding, s.cfg.TopK, s.cfg.MinScore)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	return matches, nil
}

// Chat runs one turn: persist the user message, retrieve context, complete,
// derive a title on the first user turn, persist the reply.
func (s *Service) Chat(ctx context.Context, chatID int64, message string) (*models.ChatTurn, error) {
	history, err := s.history.Messages(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("error reading chat history: %w", err)
	}

	firstUserTurn := true
	for _, m := range history {
		if m.Role == models.RoleUser {
			firstUserTurn = false
			break
		}
	}

	// The user's input is durably recorded before the completion call, so a
	// crash mid-call cannot lose it.
	userMsg := models.Message{Role: models.RoleUser, Content: message}
	if err := s.history.Append(ctx, chatID, userMsg); err != nil {
		return nil, fmt.Errorf("error persisting user message: %w", err)
	}

	matches, err := s.Retrieve(ctx, message)
	if err != nil {
		return nil, err
	}
	log.Debug().Int64("chat_id", chatID).Int("matches", len(matches)).Msg("Retrieved context")

	prompt := BuildPrompt(matches, history, message, s.cfg.HistoryLimit)
	reply, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	turn := &models.ChatTurn{Reply: reply}
	if firstUserTurn {
		// Title failure never fails the turn; the chat keeps its old title.
		title, err := s.llm.GenerateTitle(ctx, message)
		if err != nil {
			log.Warn().Err(err).Int64("chat_id", chatID).Msg("Title generation failed")
		} else if err := s.history.SetTitle(ctx, chatID, title); err != nil {
			log.Warn().Err(err).Int64("chat_id", chatID).Msg("Title update failed")
		} else {
			turn.Title = title
		}
	}

	if err := s.history.Append(ctx, chatID, reply); err != nil {
		return nil, fmt.Errorf("error persisting assistant reply: %w", err)
	}
	return turn, nil
}
