package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"glass-rag/internal/config"
	"glass-rag/internal/llmservice"
	"glass-rag/internal/models"
	"glass-rag/internal/vectorstore"
)

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func (fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

type fakeVectorStore struct {
	matches []vectorstore.Match
	err     error
}

func (f *fakeVectorStore) Add(context.Context, []vectorstore.ChunkRecord) error { return nil }

func (f *fakeVectorStore) Search(_ context.Context, _ []float32, k int, minScore float32) ([]vectorstore.Match, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []vectorstore.Match
	for _, m := range f.matches {
		if m.Score >= minScore && len(out) < k {
			out = append(out, m)
		}
	}
	return out, nil
}

// fakeHistory records every mutation in order so tests can assert on the
// persistence sequence.
type fakeHistory struct {
	messages  []models.Message
	events    []string
	appendErr error
}

func (f *fakeHistory) Messages(context.Context, int64) ([]models.Message, error) {
	return append([]models.Message(nil), f.messages...), nil
}

func (f *fakeHistory) Append(_ context.Context, _ int64, msg models.Message) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.messages = append(f.messages, msg)
	f.events = append(f.events, "append:"+msg.Role)
	return nil
}

func (f *fakeHistory) SetTitle(_ context.Context, _ int64, title string) error {
	f.events = append(f.events, "title:"+title)
	return nil
}

type scriptedLLM struct {
	replies []string
	errs    []error
	calls   int
	prompts [][]llms.MessageContent
}

func (s *scriptedLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	s.prompts = append(s.prompts, messages)
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	reply := "ok"
	if i < len(s.replies) {
		reply = s.replies[i]
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func newService(store vectorstore.Store, history HistoryStore, llm llmservice.Completer) *Service {
	cfg := &config.RAGConfig{TopK: 5, MinScore: 0.1, HistoryLimit: 20}
	return NewService(store, history, fakeEmbedder{}, llmservice.NewClient(llm), cfg)
}

func TestRetrieveRespectsBounds(t *testing.T) {
	store := &fakeVectorStore{matches: []vectorstore.Match{
		match("a", 0.9), match("b", 0.8), match("c", 0.7),
		match("d", 0.6), match("e", 0.5), match("f", 0.4),
		match("below threshold", 0.05),
	}}
	svc := newService(store, &fakeHistory{}, &scriptedLLM{})

	got, err := svc.Retrieve(context.Background(), "query")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(got), 5)
	for _, m := range got {
		assert.GreaterOrEqual(t, m.Score, float32(0.1))
	}
}

func TestRetrieveWrapsStoreError(t *testing.T) {
	store := &fakeVectorStore{err: errors.New("connection reset")}
	svc := newService(store, &fakeHistory{}, &scriptedLLM{})

	_, err := svc.Retrieve(context.Background(), "query")
	assert.ErrorIs(t, err, ErrRetrieval)
}

func TestChatFirstTurnDerivesTitle(t *testing.T) {
	history := &fakeHistory{}
	llm := &scriptedLLM{replies: []string{"the answer", "\"Trip Planning\""}}
	svc := newService(&fakeVectorStore{}, history, llm)

	turn, err := svc.Chat(context.Background(), 1, "help me plan a trip")
	require.NoError(t, err)
	assert.Equal(t, "the answer", turn.Reply.Content)
	assert.Equal(t, models.RoleAssistant, turn.Reply.Role)
	assert.Equal(t, "Trip Planning", turn.Title)
	assert.Equal(t, 2, llm.calls, "completion plus one title call")

	// User message recorded before any completion result, title set before
	// the assistant reply lands.
	assert.Equal(t, []string{"append:user", "title:Trip Planning", "append:assistant"}, history.events)
}

func TestChatLaterTurnSkipsTitle(t *testing.T) {
	history := &fakeHistory{messages: []models.Message{
		{Role: models.RoleUser, Content: "first question"},
		{Role: models.RoleAssistant, Content: "first answer"},
	}}
	llm := &scriptedLLM{replies: []string{"second answer"}}
	svc := newService(&fakeVectorStore{}, history, llm)

	turn, err := svc.Chat(context.Background(), 1, "second question")
	require.NoError(t, err)
	assert.Empty(t, turn.Title)
	assert.Equal(t, 1, llm.calls, "no title call on a conversation with prior user messages")
}

func TestChatTitleFailureIsNonFatal(t *testing.T) {
	history := &fakeHistory{}
	llm := &scriptedLLM{replies: []string{"the answer"}, errs: []error{nil, errors.New("model overloaded")}}
	svc := newService(&fakeVectorStore{}, history, llm)

	turn, err := svc.Chat(context.Background(), 1, "hello")
	require.NoError(t, err)
	assert.Empty(t, turn.Title)
	assert.Equal(t, []string{"append:user", "append:assistant"}, history.events)
}

func TestChatCompletionFailureKeepsUserMessage(t *testing.T) {
	history := &fakeHistory{}
	llm := &scriptedLLM{errs: []error{errors.New("bad gateway")}}
	svc := newService(&fakeVectorStore{}, history, llm)

	_, err := svc.Chat(context.Background(), 1, "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, llmservice.ErrCompletion)

	// The user message was a real action and stays recorded; no assistant
	// reply is added.
	assert.Equal(t, []string{"append:user"}, history.events)
}

func TestChatEmptyRetrievalStillPromptsFallback(t *testing.T) {
	history := &fakeHistory{messages: []models.Message{
		{Role: models.RoleUser, Content: "anything"},
	}}
	llm := &scriptedLLM{replies: []string{FallbackSentence}}
	svc := newService(&fakeVectorStore{}, history, llm)

	turn, err := svc.Chat(context.Background(), 1, "what does my contract say?")
	require.NoError(t, err)
	assert.Equal(t, FallbackSentence, turn.Reply.Content)

	require.NotEmpty(t, llm.prompts)
	system := llm.prompts[0][0]
	text := messageText(system)
	assert.Contains(t, text, FallbackSentence)
}

func TestChatRetrievalFailureAborts(t *testing.T) {
	history := &fakeHistory{}
	svc := newService(&fakeVectorStore{err: errors.New("rpc failed")}, history, &scriptedLLM{})

	_, err := svc.Chat(context.Background(), 1, "hello")
	assert.ErrorIs(t, err, ErrRetrieval)
}

func messageText(m llms.MessageContent) string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(llms.TextContent); ok {
			sb.WriteString(t.Text)
		}
	}
	return sb.String()
}
