package models

import (
	"time"
)

// --- Request Structs ---

// CreateConversationRequest defines the body for POST /conversations.
type CreateConversationRequest struct {
	Title   string `json:"title"`
	Preview string `json:"preview"`
}

// CreateMessageRequest defines the body for POST /conversations/{id}/messages.
// Text is a pointer so a missing field can be told apart from an empty one.
type CreateMessageRequest struct {
	Text   *string `json:"text"`
	IsUser bool    `json:"isUser"`
}

// --- Response Structs ---

// ConversationResponse is the wire form of a conversation row.
type ConversationResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Preview   string    `json:"preview"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageResponse is the wire form of a message row. Note the snake_case is_user,
// which is what the persistence API has always returned.
type MessageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Text           string    `json:"text"`
	IsUser         bool      `json:"is_user"`
	Timestamp      time.Time `json:"timestamp"`
}

// DeleteResponse is returned by DELETE /conversations/{id}.
type DeleteResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ConversationToResponse maps a DB row to its API DTO.
func ConversationToResponse(r ConversationRecord) ConversationResponse {
	return ConversationResponse{
		ID:        r.ID,
		Title:     r.Title,
		Preview:   r.Preview,
		Timestamp: r.Timestamp,
	}
}

// MessageToResponse maps a DB row to its API DTO.
func MessageToResponse(r MessageRecord) MessageResponse {
	return MessageResponse{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		Text:           r.Text,
		IsUser:         r.IsUser,
		Timestamp:      r.Timestamp,
	}
}
