package persistence

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"savvybot-backend/internal/models"
	"savvybot-backend/internal/services"
	"savvybot-backend/internal/store/local"
)

var _ Store = (*Local)(nil)

// Local keeps conversations on the device, under the same ids and validation
// rules the API applies.
type Local struct {
	store *local.Store
	svc   *services.ConversationService
}

func NewLocal(st *local.Store, log zerolog.Logger) *Local {
	return &Local{store: st, svc: services.NewConversationService(st, services.DefaultIDGenerator, log)}
}

func (l *Local) List(ctx context.Context) ([]models.Conversation, error) {
	rows, err := l.svc.ListConversations(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Conversation, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.ConversationFromResponse(row))
	}
	return out, nil
}

func (l *Local) Create(ctx context.Context, title, preview string) (models.Conversation, error) {
	row, err := l.svc.CreateConversation(ctx, models.CreateConversationRequest{Title: title, Preview: preview})
	if err != nil {
		return models.Conversation{}, err
	}
	return models.ConversationFromResponse(*row), nil
}

func (l *Local) Delete(ctx context.Context, id string) error {
	return mapNotFound(l.svc.DeleteConversation(ctx, id))
}

func (l *Local) Messages(ctx context.Context, conversationID string) ([]models.Message, error) {
	rows, err := l.svc.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.MessageFromResponse(row))
	}
	return out, nil
}

func (l *Local) AddMessage(ctx context.Context, conversationID, text string, isUser bool) (models.Message, error) {
	row, err := l.svc.AddMessage(ctx, conversationID, models.CreateMessageRequest{Text: &text, IsUser: isUser})
	if err != nil {
		return models.Message{}, mapNotFound(err)
	}
	return models.MessageFromResponse(*row), nil
}

// cacheConversations mirrors a remote list on the device.
func (l *Local) cacheConversations(ctx context.Context, convs []models.Conversation) error {
	now := time.Now()
	records := make([]models.ConversationRecord, 0, len(convs))
	for _, c := range convs {
		records = append(records, conversationRecord(c, now))
	}
	return l.store.ReplaceConversations(ctx, records)
}

func (l *Local) cacheMessages(ctx context.Context, conversationID string, msgs []models.Message) error {
	records := make([]models.MessageRecord, 0, len(msgs))
	for _, m := range msgs {
		records = append(records, messageRecord(conversationID, m))
	}
	return l.store.ReplaceMessages(ctx, conversationID, records)
}

func (l *Local) markPending(ctx context.Context, id string) error {
	return l.store.MarkPending(ctx, id)
}

func (l *Local) pending(ctx context.Context) ([]string, error) {
	return l.store.Pending(ctx)
}

func (l *Local) clearPending(ctx context.Context, id string) error {
	return l.store.ClearPending(ctx, id)
}

func (l *Local) isPending(ctx context.Context, id string) bool {
	ids, err := l.store.Pending(ctx)
	return err == nil && slices.Contains(ids, id)
}

// conversation returns the stored record of one conversation.
func (l *Local) conversation(ctx context.Context, id string) (models.Conversation, error) {
	convs, err := l.List(ctx)
	if err != nil {
		return models.Conversation{}, err
	}
	for _, c := range convs {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Conversation{}, ErrNotFound
}

func mapNotFound(err error) error {
	if errors.Is(err, services.ErrConversationNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
