package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"savvybot-backend/internal/models"
	"savvybot-backend/internal/notify"
)

// ErrNotInDeleteMode is returned by Home.Delete unless EnterDeleteMode was called first.
var ErrNotInDeleteMode = errors.New("not in delete mode")

// New conversations start with this static metadata.
const (
	NewConversationTitle   = "New Conversation"
	NewConversationPreview = "Started a new conversation with Savvy Bot"
)

// Home is the conversation list shown on the home view.
type Home struct {
	store    Store
	notifier notify.Sink

	mu         sync.Mutex
	convs      []models.Conversation
	deleteMode bool
}

func NewHome(store Store, notifier notify.Sink) *Home {
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Home{store: store, notifier: notifier}
}

// Refresh reloads the list from the store.
func (h *Home) Refresh(ctx context.Context) error {
	convs, err := h.store.List(ctx)
	if err != nil {
		h.notifier.Notify(notify.Notification{Title: "Error", Description: "Failed to load conversations"})
		return fmt.Errorf("load conversations: %w", err)
	}
	h.mu.Lock()
	h.convs = convs
	h.mu.Unlock()
	return nil
}

// Conversations returns a copy of the current list.
func (h *Home) Conversations() []models.Conversation {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]models.Conversation(nil), h.convs...)
}

// Start creates a conversation and puts it at the top of the list.
func (h *Home) Start(ctx context.Context) (models.Conversation, error) {
	conv, err := h.store.Create(ctx, NewConversationTitle, NewConversationPreview)
	if err != nil {
		h.notifier.Notify(notify.Notification{Title: "Error", Description: "Failed to create conversation"})
		return models.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	h.mu.Lock()
	h.convs = append([]models.Conversation{conv}, h.convs...)
	h.mu.Unlock()
	return conv, nil
}

func (h *Home) EnterDeleteMode() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deleteMode = true
}

func (h *Home) ExitDeleteMode() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deleteMode = false
}

func (h *Home) DeleteMode() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.deleteMode
}

// Delete removes one conversation and leaves delete mode. The others keep their order.
func (h *Home) Delete(ctx context.Context, id string) error {
	h.mu.Lock()
	if !h.deleteMode {
		h.mu.Unlock()
		return ErrNotInDeleteMode
	}
	h.deleteMode = false
	h.mu.Unlock()

	if err := h.store.Delete(ctx, id); err != nil {
		h.notifier.Notify(notify.Notification{Title: "Error", Description: "Failed to delete conversation"})
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	kept := make([]models.Conversation, 0, len(h.convs))
	for _, c := range h.convs {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	h.convs = kept
	return nil
}
