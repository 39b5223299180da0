package models

import "time"

// Roles replayed verbatim into the completion call.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message" binding:"required,min=1"`
	ChatID  int64  `json:"chat_id" binding:"required"`
}

// ChatTurn is the result envelope of one chat turn: the assistant reply plus
// the title derived on the first user turn (empty otherwise).
type ChatTurn struct {
	Reply Message `json:"message"`
	Title string  `json:"title,omitempty"`
}

// UploadResponse is the body returned by POST /api/upload.
type UploadResponse struct {
	Success bool   `json:"success"`
	File    string `json:"file"`
	Chunks  int    `json:"chunks"`
}

// ChatSummary is one entry in the history sidebar listing.
type ChatSummary struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}
