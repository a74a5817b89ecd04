package models

import (
	"time"
)

// ConversationRecord represents a row in the conversations table.
type ConversationRecord struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	Preview   string    `db:"preview"`
	Timestamp time.Time `db:"timestamp"`
}

// MessageRecord represents a row in the messages table.
type MessageRecord struct {
	ID             string    `db:"id"`
	ConversationID string    `db:"conversation_id"`
	Text           string    `db:"text"`
	IsUser         bool      `db:"is_user"`
	Timestamp      time.Time `db:"timestamp"`
}
