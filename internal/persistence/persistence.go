// Package persistence stores conversations and messages for the client, either
// through the REST API or on the device, with a fallback between the two.
package persistence

import (
	"context"
	"errors"
	"time"

	"savvybot-backend/internal/models"
)

// ErrNotFound is returned when a conversation doesn't exist.
var ErrNotFound = errors.New("conversation not found")

// Store is the conversation persistence contract shared by every backend.
type Store interface {
	List(ctx context.Context) ([]models.Conversation, error)
	Create(ctx context.Context, title, preview string) (models.Conversation, error)
	Delete(ctx context.Context, id string) error
	Messages(ctx context.Context, conversationID string) ([]models.Message, error)
	AddMessage(ctx context.Context, conversationID, text string, isUser bool) (models.Message, error)
}

func conversationRecord(c models.Conversation, fallback time.Time) models.ConversationRecord {
	ts, err := time.Parse(time.RFC3339, c.Timestamp)
	if err != nil {
		ts = fallback
	}
	return models.ConversationRecord{ID: c.ID, Title: c.Title, Preview: c.Preview, Timestamp: ts}
}

func messageRecord(conversationID string, m models.Message) models.MessageRecord {
	return models.MessageRecord{
		ID:             m.ID,
		ConversationID: conversationID,
		Text:           m.Text,
		IsUser:         m.IsUser(),
		Timestamp:      m.Timestamp,
	}
}
