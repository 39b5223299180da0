package llmservice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"glass-rag/internal/models"
)

type fakeLLM struct {
	reply string
	err   error
	seen  []llms.MessageContent
}

func (f *fakeLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.seen = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.reply}},
	}, nil
}

func TestCompleteMapsRoles(t *testing.T) {
	llmFake := &fakeLLM{reply: "hello"}
	client := NewClient(llmFake)

	reply, err := client.Complete(context.Background(), []models.Message{
		{Role: models.RoleSystem, Content: "rules"},
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "earlier reply"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAssistant, reply.Role)
	assert.Equal(t, "hello", reply.Content)

	require.Len(t, llmFake.seen, 3)
	assert.Equal(t, schema.ChatMessageTypeSystem, llmFake.seen[0].Role)
	assert.Equal(t, schema.ChatMessageTypeHuman, llmFake.seen[1].Role)
	assert.Equal(t, schema.ChatMessageTypeAI, llmFake.seen[2].Role)
}

func TestCompleteWrapsServiceError(t *testing.T) {
	client := NewClient(&fakeLLM{err: errors.New("connection refused")})

	_, err := client.Complete(context.Background(), []models.Message{{Role: models.RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrCompletion)
}

func TestGenerateTitleNormalizes(t *testing.T) {
	client := NewClient(&fakeLLM{reply: "\"Project Kickoff Notes\"\n"})

	title, err := client.GenerateTitle(context.Background(), "let's plan the kickoff")
	require.NoError(t, err)
	assert.Equal(t, "Project Kickoff Notes", title)
}

func TestNormalizeTitle(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"plain", "Quarterly Report", "Quarterly Report"},
		{"double quotes", `"Quarterly Report"`, "Quarterly Report"},
		{"single quotes", "'Quarterly Report'", "Quarterly Report"},
		{"curly quotes", "“Quarterly Report”", "Quarterly Report"},
		{"surrounding whitespace", "  Quarterly Report \n", "Quarterly Report"},
		{"quotes inside kept", `Report on "Q3" results`, `Report on "Q3" results`},
		{"more than five words", "one two three four five six seven", "one two three four five"},
		{"empty", "  \"\" ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeTitle(tc.in))
		})
	}
}
