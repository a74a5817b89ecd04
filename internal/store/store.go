package store

import (
	"context"
	"errors"

	"savvybot-backend/internal/models"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// CreateConversationParams contains parameters for creating a conversation.
// The ID is assigned by the service layer.
type CreateConversationParams struct {
	ID      string
	Title   string
	Preview string
}

// CreateMessageParams contains parameters for appending a message to a conversation.
type CreateMessageParams struct {
	ID             string
	ConversationID string
	Text           string
	IsUser         bool
}

// Store defines the interface for persistence operations.
// This allows for mocking in tests and switching between Postgres and the local fallback.
type Store interface {
	// Conversation operations
	ListConversations(ctx context.Context) ([]models.ConversationRecord, error) // newest first
	CreateConversation(ctx context.Context, arg CreateConversationParams) (*models.ConversationRecord, error)
	DeleteConversation(ctx context.Context, id string) error

	// Message operations
	ListMessages(ctx context.Context, conversationID string) ([]models.MessageRecord, error) // oldest first
	CreateMessage(ctx context.Context, arg CreateMessageParams) (*models.MessageRecord, error)

	Ping(ctx context.Context) error
	Close() error
}
