package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies who authored a chat message.
type Role int

const (
	RoleUser Role = iota
	RoleAssistant
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Message is a single chat message in the active conversation.
// Messages are immutable once created.
type Message struct {
	ID        string
	Text      string
	Role      Role
	Timestamp time.Time
}

// IsUser reports whether the message was written by the user.
func (m Message) IsUser() bool { return m.Role == RoleUser }

// messageJSON is the client wire form: {id, text, isUser, timestamp}.
type messageJSON struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	IsUser    bool      `json:"isUser"`
	Timestamp time.Time `json:"timestamp"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(messageJSON{
		ID:        m.ID,
		Text:      m.Text,
		IsUser:    m.IsUser(),
		Timestamp: m.Timestamp,
	})
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var raw messageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Message{ID: raw.ID, Text: raw.Text, Role: RoleAssistant, Timestamp: raw.Timestamp}
	if raw.IsUser {
		m.Role = RoleUser
	}
	return nil
}

// MessageFromResponse converts a persistence API row into a chat message.
func MessageFromResponse(r MessageResponse) Message {
	role := RoleAssistant
	if r.IsUser {
		role = RoleUser
	}
	return Message{ID: r.ID, Text: r.Text, Role: role, Timestamp: r.Timestamp}
}

// Conversation is the client-side view of a conversation. Timestamp is kept as a
// display string because the local fallback seeds relative values like "2d ago".
type Conversation struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Preview   string `json:"preview"`
	Timestamp string `json:"timestamp"`
}

// ConversationFromResponse converts a persistence API row for display.
func ConversationFromResponse(r ConversationResponse) Conversation {
	return Conversation{
		ID:        r.ID,
		Title:     r.Title,
		Preview:   r.Preview,
		Timestamp: r.Timestamp.Format(time.RFC3339),
	}
}
