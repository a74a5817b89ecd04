// Package local is the offline persistence driver: conversations and messages kept
// in a local key-value store, seeded with the default conversations on first run.
package local

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"savvybot-backend/internal/kv"
	"savvybot-backend/internal/logging"
	"savvybot-backend/internal/models"
	"savvybot-backend/internal/store"
)

var _ store.Store = (*Store)(nil)

// Keys match the ones the web client used in localStorage.
const (
	ConversationsKey  = "savvy-conversations"
	PendingKey        = "savvy-pending-sync"
	messageKeyPrefix  = "savvy-chat-"
	seedRelativeDelay = 48 * time.Hour
)

// MessagesKey returns the key holding one conversation's message list.
func MessagesKey(conversationID string) string {
	return messageKeyPrefix + conversationID
}

// DefaultConversations are written on first run.
func DefaultConversations(now time.Time) []models.ConversationRecord {
	return []models.ConversationRecord{
		{ID: "1", Title: "Tips on Savings", Preview: "How can I improve my savings rate?", Timestamp: now.Add(-seedRelativeDelay)},
		{ID: "2", Title: "Analysis on your Budget", Preview: "Please analyze my monthly expenses", Timestamp: now.Add(-seedRelativeDelay - time.Minute)},
	}
}

// Store implements store.Store on top of a kv.Store.
type Store struct {
	mu  sync.Mutex // serialises read-modify-write cycles
	kv  kv.Store
	log zerolog.Logger
	now func() time.Time
}

// Open wraps kvStore and seeds the defaults when no conversation list exists yet.
func Open(ctx context.Context, kvStore kv.Store, log zerolog.Logger) (*Store, error) {
	s := &Store{kv: kvStore, log: logging.Component(log, "local-store"), now: time.Now}

	var existing []models.ConversationRecord
	err := kv.GetJSON(ctx, kvStore, ConversationsKey, &existing)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		if err := kv.SetJSON(ctx, kvStore, ConversationsKey, DefaultConversations(s.now())); err != nil {
			return nil, fmt.Errorf("failed to seed default conversations: %w", err)
		}
		s.log.Info().Msg("seeded default conversations")
	case err != nil:
		return nil, fmt.Errorf("failed to read conversations: %w", err)
	}

	return s, nil
}

func (s *Store) loadConversations(ctx context.Context) ([]models.ConversationRecord, error) {
	var items []models.ConversationRecord
	err := kv.GetJSON(ctx, s.kv, ConversationsKey, &items)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return nil, err
	}
	return items, nil
}

func (s *Store) loadMessages(ctx context.Context, conversationID string) ([]models.MessageRecord, error) {
	var items []models.MessageRecord
	err := kv.GetJSON(ctx, s.kv, MessagesKey(conversationID), &items)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListConversations(ctx context.Context) ([]models.ConversationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.loadConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading conversations: %w", err)
	}
	out := append([]models.ConversationRecord{}, items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (s *Store) CreateConversation(ctx context.Context, arg store.CreateConversationParams) (*models.ConversationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.loadConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading conversations: %w", err)
	}

	rec := models.ConversationRecord{ID: arg.ID, Title: arg.Title, Preview: arg.Preview, Timestamp: s.now().UTC()}
	items = append([]models.ConversationRecord{rec}, items...)
	if err := kv.SetJSON(ctx, s.kv, ConversationsKey, items); err != nil {
		return nil, fmt.Errorf("error saving conversations: %w", err)
	}
	return &rec, nil
}

func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.loadConversations(ctx)
	if err != nil {
		return fmt.Errorf("error loading conversations: %w", err)
	}

	kept := make([]models.ConversationRecord, 0, len(items))
	for _, c := range items {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(items) {
		return store.ErrNotFound
	}

	if err := kv.SetJSON(ctx, s.kv, ConversationsKey, kept); err != nil {
		return fmt.Errorf("error saving conversations: %w", err)
	}
	if err := s.kv.Delete(ctx, MessagesKey(id)); err != nil {
		s.log.Warn().Err(err).Str("conversation_id", id).Msg("failed to drop messages of deleted conversation")
	}
	if err := s.dropPending(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("conversation_id", id).Msg("failed to clear pending mark of deleted conversation")
	}
	return nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]models.MessageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.loadMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("error loading messages: %w", err)
	}
	out := append([]models.MessageRecord{}, items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *Store) CreateMessage(ctx context.Context, arg store.CreateMessageParams) (*models.MessageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversations, err := s.loadConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading conversations: %w", err)
	}
	found := false
	for _, c := range conversations {
		if c.ID == arg.ConversationID {
			found = true
			break
		}
	}
	if !found {
		return nil, store.ErrNotFound
	}

	items, err := s.loadMessages(ctx, arg.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("error loading messages: %w", err)
	}

	rec := models.MessageRecord{
		ID:             arg.ID,
		ConversationID: arg.ConversationID,
		Text:           arg.Text,
		IsUser:         arg.IsUser,
		Timestamp:      s.now().UTC(),
	}
	items = append(items, rec)
	if err := kv.SetJSON(ctx, s.kv, MessagesKey(arg.ConversationID), items); err != nil {
		return nil, fmt.Errorf("error saving messages: %w", err)
	}
	return &rec, nil
}

// ReplaceConversations overwrites the conversation list, e.g. with a copy of the
// remote list. Conversations marked pending are kept, and so are stored messages.
func (s *Store) ReplaceConversations(ctx context.Context, items []models.ConversationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.loadPending(ctx)
	if err != nil {
		return fmt.Errorf("error loading pending conversations: %w", err)
	}
	merged := append([]models.ConversationRecord{}, items...)
	if len(pending) > 0 {
		current, err := s.loadConversations(ctx)
		if err != nil {
			return fmt.Errorf("error loading conversations: %w", err)
		}
		seen := make(map[string]bool, len(items))
		for _, c := range items {
			seen[c.ID] = true
		}
		for _, c := range current {
			if slices.Contains(pending, c.ID) && !seen[c.ID] {
				merged = append(merged, c)
			}
		}
	}
	if err := kv.SetJSON(ctx, s.kv, ConversationsKey, merged); err != nil {
		return fmt.Errorf("error saving conversations: %w", err)
	}
	return nil
}

func (s *Store) loadPending(ctx context.Context) ([]string, error) {
	var ids []string
	err := kv.GetJSON(ctx, s.kv, PendingKey, &ids)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return nil, err
	}
	return ids, nil
}

// MarkPending records that a conversation exists only on this device.
func (s *Store) MarkPending(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.loadPending(ctx)
	if err != nil {
		return fmt.Errorf("error loading pending conversations: %w", err)
	}
	if slices.Contains(ids, id) {
		return nil
	}
	return kv.SetJSON(ctx, s.kv, PendingKey, append(ids, id))
}

// Pending returns the ids of conversations not yet pushed to the server.
func (s *Store) Pending(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.loadPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading pending conversations: %w", err)
	}
	return ids, nil
}

// ClearPending drops the pending mark of a conversation.
func (s *Store) ClearPending(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropPending(ctx, id)
}

func (s *Store) dropPending(ctx context.Context, id string) error {
	ids, err := s.loadPending(ctx)
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(ids, func(p string) bool { return p == id })
	if len(kept) == len(ids) {
		return nil
	}
	return kv.SetJSON(ctx, s.kv, PendingKey, kept)
}

// ReplaceMessages overwrites the message list of one conversation.
func (s *Store) ReplaceMessages(ctx context.Context, conversationID string, items []models.MessageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if items == nil {
		items = []models.MessageRecord{}
	}
	if err := kv.SetJSON(ctx, s.kv, MessagesKey(conversationID), items); err != nil {
		return fmt.Errorf("error saving messages: %w", err)
	}
	return nil
}

// Ping checks the underlying key-value store.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.kv.Get(ctx, ConversationsKey)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return err
	}
	return nil
}

func (s *Store) Close() error {
	return s.kv.Close()
}
