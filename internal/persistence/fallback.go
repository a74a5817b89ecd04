package persistence

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"savvybot-backend/internal/gateway"
	"savvybot-backend/internal/logging"
	"savvybot-backend/internal/models"
	"savvybot-backend/internal/notify"
)

var _ Store = (*Fallback)(nil)

// OfflineNotice is raised the first time the remote store is unreachable.
var OfflineNotice = notify.Notification{
	Title:       "Working offline",
	Description: "Couldn't reach the server. Conversations are kept on this device for now.",
}

// Fallback serves the remote store and switches to the local one, per call, when
// the remote is unreachable or failing. Successful remote reads are cached locally.
// Conversations created while offline stay on the device until a later List
// reaches the remote, which pushes them under server-assigned ids.
type Fallback struct {
	remote   Store
	local    *Local
	notifier notify.Sink
	log      zerolog.Logger
	warnOnce sync.Once

	mu      sync.Mutex
	renamed map[string]string // offline id -> server id
}

func NewFallback(remote Store, local *Local, notifier notify.Sink, log zerolog.Logger) *Fallback {
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Fallback{
		remote:   remote,
		local:    local,
		notifier: notifier,
		log:      logging.Component(log, "persistence-fallback"),
		renamed:  make(map[string]string),
	}
}

func (f *Fallback) degrade(op string, err error) {
	f.log.Warn().Err(err).Str("op", op).Msg("remote store unavailable, using local store")
	f.warnOnce.Do(func() { f.notifier.Notify(OfflineNotice) })
}

// resolve maps an id created offline to the one the server assigned it.
func (f *Fallback) resolve(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if to, ok := f.renamed[id]; ok {
		return to
	}
	return id
}

func (f *Fallback) List(ctx context.Context) ([]models.Conversation, error) {
	convs, err := f.remote.List(ctx)
	if err != nil {
		if !gateway.IsUnavailable(err) {
			return nil, err
		}
		f.degrade("list", err)
		return f.local.List(ctx)
	}

	if f.pushPending(ctx) > 0 {
		if again, err := f.remote.List(ctx); err == nil {
			convs = again
		} else {
			f.log.Warn().Err(err).Msg("failed to reload conversations after sync")
		}
	}
	if cacheErr := f.local.cacheConversations(ctx, convs); cacheErr != nil {
		f.log.Warn().Err(cacheErr).Msg("failed to cache conversations")
	}
	if left, err := f.local.pending(ctx); err == nil && len(left) > 0 {
		return f.local.List(ctx)
	}
	return convs, nil
}

// pushPending copies every offline conversation to the remote and reports how
// many made it. Failed ones stay pending for the next List.
func (f *Fallback) pushPending(ctx context.Context) int {
	ids, err := f.local.pending(ctx)
	if err != nil {
		f.log.Warn().Err(err).Msg("failed to read pending conversations")
		return 0
	}
	pushed := 0
	for _, id := range ids {
		if err := f.push(ctx, id); err != nil {
			f.log.Warn().Err(err).Str("conversation_id", id).Msg("failed to push offline conversation")
			continue
		}
		pushed++
	}
	return pushed
}

func (f *Fallback) push(ctx context.Context, id string) error {
	conv, err := f.local.conversation(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return f.local.clearPending(ctx, id)
	}
	if err != nil {
		return err
	}
	msgs, err := f.local.Messages(ctx, id)
	if err != nil {
		return err
	}

	created, err := f.remote.Create(ctx, conv.Title, conv.Preview)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		if _, err := f.remote.AddMessage(ctx, created.ID, m.Text, m.IsUser()); err != nil {
			if delErr := f.remote.Delete(ctx, created.ID); delErr != nil {
				f.log.Warn().Err(delErr).Str("conversation_id", created.ID).Msg("failed to roll back partial push")
			}
			return err
		}
	}

	f.mu.Lock()
	f.renamed[id] = created.ID
	f.mu.Unlock()
	f.log.Info().Str("conversation_id", id).Str("server_id", created.ID).Int("messages", len(msgs)).Msg("pushed offline conversation")
	return f.local.Delete(ctx, id)
}

func (f *Fallback) Create(ctx context.Context, title, preview string) (models.Conversation, error) {
	conv, err := f.remote.Create(ctx, title, preview)
	if err == nil || !gateway.IsUnavailable(err) {
		return conv, err
	}
	f.degrade("create", err)
	conv, err = f.local.Create(ctx, title, preview)
	if err != nil {
		return conv, err
	}
	if err := f.local.markPending(ctx, conv.ID); err != nil {
		f.log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("failed to mark conversation for sync")
	}
	return conv, nil
}

func (f *Fallback) Delete(ctx context.Context, id string) error {
	id = f.resolve(id)
	if f.local.isPending(ctx, id) {
		return f.local.Delete(ctx, id)
	}
	err := f.remote.Delete(ctx, id)
	if err == nil || !gateway.IsUnavailable(err) {
		return err
	}
	f.degrade("delete", err)
	return f.local.Delete(ctx, id)
}

func (f *Fallback) Messages(ctx context.Context, conversationID string) ([]models.Message, error) {
	conversationID = f.resolve(conversationID)
	if f.local.isPending(ctx, conversationID) {
		return f.local.Messages(ctx, conversationID)
	}
	msgs, err := f.remote.Messages(ctx, conversationID)
	if err == nil {
		if cacheErr := f.local.cacheMessages(ctx, conversationID, msgs); cacheErr != nil {
			f.log.Warn().Err(cacheErr).Str("conversation_id", conversationID).Msg("failed to cache messages")
		}
		return msgs, nil
	}
	if !gateway.IsUnavailable(err) {
		return nil, err
	}
	f.degrade("messages", err)
	return f.local.Messages(ctx, conversationID)
}

func (f *Fallback) AddMessage(ctx context.Context, conversationID, text string, isUser bool) (models.Message, error) {
	conversationID = f.resolve(conversationID)
	if f.local.isPending(ctx, conversationID) {
		return f.local.AddMessage(ctx, conversationID, text, isUser)
	}
	msg, err := f.remote.AddMessage(ctx, conversationID, text, isUser)
	if err == nil || !gateway.IsUnavailable(err) {
		return msg, err
	}
	f.degrade("add-message", err)
	return f.local.AddMessage(ctx, conversationID, text, isUser)
}
