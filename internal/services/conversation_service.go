package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"savvybot-backend/internal/logging"
	"savvybot-backend/internal/models"
	"savvybot-backend/internal/store"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrConversationNotFound = errors.New("conversation not found")
)

// DefaultConversationTitle is used when a conversation is created without a title.
const DefaultConversationTitle = "New Conversation"

// ConversationService handles conversation and message business logic.
type ConversationService struct {
	store store.Store
	ids   IDGenerator
	log   zerolog.Logger
}

// NewConversationService creates a new ConversationService.
func NewConversationService(s store.Store, ids IDGenerator, log zerolog.Logger) *ConversationService {
	return &ConversationService{
		store: s,
		ids:   ids,
		log:   logging.Component(log, "conversation-service"),
	}
}

// ListConversations returns every conversation, newest first.
func (s *ConversationService) ListConversations(ctx context.Context) ([]models.ConversationResponse, error) {
	recs, err := s.store.ListConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations from store: %w", err)
	}

	resp := make([]models.ConversationResponse, 0, len(recs))
	for _, r := range recs {
		resp = append(resp, models.ConversationToResponse(r))
	}
	return resp, nil
}

// CreateConversation creates a conversation with a server-assigned id.
// Title and preview are stored as given; no title is derived from messages.
func (s *ConversationService) CreateConversation(ctx context.Context, req models.CreateConversationRequest) (*models.ConversationResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = DefaultConversationTitle
	}

	rec, err := s.store.CreateConversation(ctx, store.CreateConversationParams{
		ID:      s.ids.New("conv"),
		Title:   title,
		Preview: req.Preview,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation in store: %w", err)
	}

	s.log.Info().Str("conversation_id", rec.ID).Msg("conversation created")
	resp := models.ConversationToResponse(*rec)
	return &resp, nil
}

// DeleteConversation removes a conversation and its messages.
func (s *ConversationService) DeleteConversation(ctx context.Context, id string) error {
	if err := s.store.DeleteConversation(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrConversationNotFound
		}
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	s.log.Info().Str("conversation_id", id).Msg("conversation deleted")
	return nil
}

// ListMessages returns a conversation's messages, oldest first.
func (s *ConversationService) ListMessages(ctx context.Context, conversationID string) ([]models.MessageResponse, error) {
	recs, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages from store: %w", err)
	}

	resp := make([]models.MessageResponse, 0, len(recs))
	for _, r := range recs {
		resp = append(resp, models.MessageToResponse(r))
	}
	return resp, nil
}

// AddMessage appends a message to a conversation.
func (s *ConversationService) AddMessage(ctx context.Context, conversationID string, req models.CreateMessageRequest) (*models.MessageResponse, error) {
	if req.Text == nil || strings.TrimSpace(*req.Text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrValidation)
	}

	rec, err := s.store.CreateMessage(ctx, store.CreateMessageParams{
		ID:             s.ids.New("msg"),
		ConversationID: conversationID,
		Text:           *req.Text,
		IsUser:         req.IsUser,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to add message to conversation: %w", err)
	}

	resp := models.MessageToResponse(*rec)
	return &resp, nil
}
