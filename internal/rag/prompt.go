package rag

import (
	"fmt"
	"strings"

	"glass-rag/internal/models"
	"glass-rag/internal/vectorstore"
)

// FallbackSentence is the literal reply the model is instructed to give when
// the retrieved context does not contain the answer.
const FallbackSentence = "I don't have that information in your uploaded documents."

const contextDelimiter = "\n\n---\n\n"

const systemPromptFormat = `You are a helpful AI assistant that formats responses cleanly.

RULES:
- Always use bullet points, headings, and separation for readability.
- Highlight technologies, roles, skills, and achievements in **bold**.
- If listing items, use numbered or bullet lists.
- Include a short summary if the content is long.
- If the answer is not in the documents, say: "%s"

CONTEXT (use only this information):
%s
`

// BuildPrompt assembles the message sequence for the completion call: one
// system message carrying the formatting rules, the fallback instruction and
// the retrieved context, then the prior history verbatim, then the current
// user message. It is a pure function over its snapshots; when the history
// exceeds historyLimit only the most recent messages are replayed.
func BuildPrompt(matches []vectorstore.Match, history []models.Message, userMessage string, historyLimit int) []models.Message {
	var contextBlock strings.Builder
	for i, m := range matches {
		if i > 0 {
			contextBlock.WriteString(contextDelimiter)
		}
		contextBlock.WriteString(m.Chunk.Content)
	}

	if historyLimit > 0 && len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}

	messages := make([]models.Message, 0, len(history)+2)
	messages = append(messages, models.Message{
		Role:    models.RoleSystem,
		Content: fmt.Sprintf(systemPromptFormat, FallbackSentence, contextBlock.String()),
	})
	messages = append(messages, history...)
	messages = append(messages, models.Message{Role: models.RoleUser, Content: userMessage})
	return messages
}
