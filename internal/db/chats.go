package db

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"glass-rag/internal/models"
)

// Chat is one conversation. The title is set once, on the first user turn.
type Chat struct {
	bun.BaseModel `bun:"table:chats,alias:c"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Title         string    `bun:"title,notnull" json:"title"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// ChatMessage is one persisted turn of a conversation.
type ChatMessage struct {
	bun.BaseModel `bun:"table:messages,alias:m"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	ChatID        int64     `bun:"chat_id,notnull" json:"chat_id"`
	Role          string    `bun:"role,notnull" json:"role"`
	Content       string    `bun:"content,notnull" json:"content"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// ChatStore owns conversation history: chats and their append-only messages.
type ChatStore struct {
	db *bun.DB
}

func NewChatStore(db *bun.DB) *ChatStore {
	return &ChatStore{db: db}
}

func (s *ChatStore) CreateChat(ctx context.Context, title string) (*Chat, error) {
	if title == "" {
		title = "New Chat"
	}
	chat := &Chat{Title: title, CreatedAt: time.Now()}
	if _, err := s.db.NewInsert().Model(chat).Exec(ctx); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *ChatStore) ListChats(ctx context.Context) ([]Chat, error) {
	var chats []Chat
	err := s.db.NewSelect().
		Model(&chats).
		Order("created_at DESC").
		Scan(ctx)
	return chats, err
}

func (s *ChatStore) SetTitle(ctx context.Context, chatID int64, title string) error {
	_, err := s.db.NewUpdate().
		Model((*Chat)(nil)).
		Set("title = ?", title).
		Where("id = ?", chatID).
		Exec(ctx)
	return err
}

// DeleteChat removes a chat and all of its messages in one transaction.
func (s *ChatStore) DeleteChat(ctx context.Context, chatID int64) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*ChatMessage)(nil)).Where("chat_id = ?", chatID).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model((*Chat)(nil)).Where("id = ?", chatID).Exec(ctx)
		return err
	})
}

func (s *ChatStore) Append(ctx context.Context, chatID int64, msg models.Message) error {
	row := &ChatMessage{
		ChatID:    chatID,
		Role:      msg.Role,
		Content:   msg.Content,
		CreatedAt: time.Now(),
	}
	_, err := s.db.NewInsert().Model(row).Exec(ctx)
	return err
}

// GetMessages returns the full message rows of a chat, oldest first.
func (s *ChatStore) GetMessages(ctx context.Context, chatID int64) ([]ChatMessage, error) {
	var msgs []ChatMessage
	err := s.db.NewSelect().
		Model(&msgs).
		Where("chat_id = ?", chatID).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	return msgs, err
}

// Messages returns the conversation as role/content pairs, oldest first,
// the shape replayed into the completion call.
func (s *ChatStore) Messages(ctx context.Context, chatID int64) ([]models.Message, error) {
	rows, err := s.GetMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}
	msgs := make([]models.Message, len(rows))
	for i, row := range rows {
		msgs[i] = models.Message{Role: row.Role, Content: row.Content}
	}
	return msgs, nil
}
