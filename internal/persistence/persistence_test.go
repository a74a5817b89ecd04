package persistence_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savvybot-backend/internal/api"
	"savvybot-backend/internal/gateway"
	"savvybot-backend/internal/handlers"
	"savvybot-backend/internal/kv"
	"savvybot-backend/internal/logging"
	"savvybot-backend/internal/models"
	"savvybot-backend/internal/notify"
	"savvybot-backend/internal/persistence"
	"savvybot-backend/internal/services"
	"savvybot-backend/internal/store/local"
)

func newLocal(t *testing.T) *persistence.Local {
	t.Helper()
	st, err := local.Open(context.Background(), kv.NewMemory(), logging.Nop())
	require.NoError(t, err)
	return persistence.NewLocal(st, logging.Nop())
}

// newAPIServer runs the real REST API over an in-memory store.
func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := local.Open(context.Background(), kv.NewMemory(), logging.Nop())
	require.NoError(t, err)
	svc := services.NewConversationService(st, services.DefaultIDGenerator, logging.Nop())
	srv := httptest.NewServer(api.NewRouter(api.RouterDependencies{
		ConversationHandler: handlers.NewConversationHandler(svc, logging.Nop()),
		Logger:              logging.Nop(),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	return srv.URL
}

func ids(convs []models.Conversation) []string {
	out := make([]string, 0, len(convs))
	for _, c := range convs {
		out = append(out, c.ID)
	}
	return out
}

func TestRemoteAgainstAPI(t *testing.T) {
	ctx := t.Context()
	remote := persistence.NewRemote(persistence.RemoteOptions{BaseURL: newAPIServer(t).URL + "/api", Logger: logging.Nop()})

	conv, err := remote.Create(ctx, persistence.NewConversationTitle, persistence.NewConversationPreview)
	require.NoError(t, err)
	assert.Regexp(t, `^conv_\d+_[a-z0-9]{9}$`, conv.ID)

	list, err := remote.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{conv.ID, "1", "2"}, ids(list))

	_, err = remote.AddMessage(ctx, conv.ID, "Help me create a Budget", true)
	require.NoError(t, err)
	_, err = remote.AddMessage(ctx, conv.ID, "Sure", false)
	require.NoError(t, err)

	msgs, err := remote.Messages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].IsUser())
	assert.False(t, msgs[1].IsUser())

	require.NoError(t, remote.Delete(ctx, conv.ID))
	assert.ErrorIs(t, remote.Delete(ctx, conv.ID), persistence.ErrNotFound)
}

func TestRemoteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal server error"}`))
	}))
	t.Cleanup(srv.Close)

	_, err := persistence.NewRemote(persistence.RemoteOptions{BaseURL: srv.URL}).List(t.Context())
	var srvErr *gateway.ServerError
	require.True(t, errors.As(err, &srvErr))
	assert.Equal(t, "Internal server error", srvErr.Message)
}

func TestFallbackServesLocalWhenRemoteDown(t *testing.T) {
	rec := &notify.Recorder{}
	fb := persistence.NewFallback(
		persistence.NewRemote(persistence.RemoteOptions{BaseURL: deadURL(t)}),
		newLocal(t), rec, logging.Nop(),
	)

	list, err := fb.List(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids(list))

	conv, err := fb.Create(t.Context(), persistence.NewConversationTitle, persistence.NewConversationPreview)
	require.NoError(t, err)
	_, err = fb.AddMessage(t.Context(), conv.ID, "offline hello", true)
	require.NoError(t, err)
	msgs, err := fb.Messages(t.Context(), conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	assert.Equal(t, []notify.Notification{persistence.OfflineNotice}, rec.All(), "notified once")
}

// switchable forwards to a remote until it is switched off.
type switchable struct {
	persistence.Store
	down        bool
	createFails bool
}

var errRefused = &gateway.NetworkError{Op: "request", Err: errors.New("connection refused")}

func (s *switchable) List(ctx context.Context) ([]models.Conversation, error) {
	if s.down {
		return nil, errRefused
	}
	return s.Store.List(ctx)
}

func (s *switchable) Create(ctx context.Context, title, preview string) (models.Conversation, error) {
	switch {
	case s.down:
		return models.Conversation{}, errRefused
	case s.createFails:
		return models.Conversation{}, &gateway.ServerError{Status: http.StatusInternalServerError, Message: "Internal server error"}
	}
	return s.Store.Create(ctx, title, preview)
}

func (s *switchable) Delete(ctx context.Context, id string) error {
	if s.down {
		return errRefused
	}
	return s.Store.Delete(ctx, id)
}

func (s *switchable) Messages(ctx context.Context, conversationID string) ([]models.Message, error) {
	if s.down {
		return nil, errRefused
	}
	return s.Store.Messages(ctx, conversationID)
}

func (s *switchable) AddMessage(ctx context.Context, conversationID, text string, isUser bool) (models.Message, error) {
	if s.down {
		return models.Message{}, errRefused
	}
	return s.Store.AddMessage(ctx, conversationID, text, isUser)
}

func TestFallbackCachesRemoteList(t *testing.T) {
	ctx := t.Context()
	remote := persistence.NewRemote(persistence.RemoteOptions{BaseURL: newAPIServer(t).URL})
	created, err := remote.Create(ctx, "Remote only", "")
	require.NoError(t, err)

	sw := &switchable{Store: remote}
	fb := persistence.NewFallback(sw, newLocal(t), nil, logging.Nop())

	_, err = fb.List(ctx)
	require.NoError(t, err)

	sw.down = true
	list, err := fb.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{created.ID, "1", "2"}, ids(list))
}

func TestFallbackPushesOfflineConversationOnReconnect(t *testing.T) {
	ctx := t.Context()
	remote := persistence.NewRemote(persistence.RemoteOptions{BaseURL: newAPIServer(t).URL})
	loc := newLocal(t)
	sw := &switchable{Store: remote, down: true}
	fb := persistence.NewFallback(sw, loc, nil, logging.Nop())

	offline, err := fb.Create(ctx, persistence.NewConversationTitle, persistence.NewConversationPreview)
	require.NoError(t, err)
	_, err = fb.AddMessage(ctx, offline.ID, "Help me create a Budget", true)
	require.NoError(t, err)
	list, err := fb.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{offline.ID, "1", "2"}, ids(list))

	sw.down = false
	list, err = fb.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	pushed := list[0]
	assert.NotEqual(t, offline.ID, pushed.ID)
	assert.Equal(t, persistence.NewConversationTitle, pushed.Title)
	assert.Equal(t, []string{"1", "2"}, ids(list[1:]))

	msgs, err := remote.Messages(ctx, pushed.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Help me create a Budget", msgs[0].Text)

	// the offline id keeps working for the session that created it
	msgs, err = fb.Messages(ctx, offline.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	cached, err := loc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids(list), ids(cached))
}

func TestFallbackKeepsOfflineConversationWhenPushFails(t *testing.T) {
	ctx := t.Context()
	loc := newLocal(t)
	sw := &switchable{Store: persistence.NewRemote(persistence.RemoteOptions{BaseURL: newAPIServer(t).URL}), down: true}
	fb := persistence.NewFallback(sw, loc, nil, logging.Nop())

	offline, err := fb.Create(ctx, persistence.NewConversationTitle, persistence.NewConversationPreview)
	require.NoError(t, err)
	_, err = fb.AddMessage(ctx, offline.ID, "offline hello", true)
	require.NoError(t, err)

	sw.down, sw.createFails = false, true
	list, err := fb.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{offline.ID, "1", "2"}, ids(list))

	msgs, err := fb.Messages(ctx, offline.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "offline hello", msgs[0].Text)
}

func TestFallbackPassesThroughNotFound(t *testing.T) {
	remote := persistence.NewRemote(persistence.RemoteOptions{BaseURL: newAPIServer(t).URL})
	rec := &notify.Recorder{}
	fb := persistence.NewFallback(remote, newLocal(t), rec, logging.Nop())

	assert.ErrorIs(t, fb.Delete(t.Context(), "missing"), persistence.ErrNotFound)
	assert.Empty(t, rec.All())
}

func TestHomeDeleteRemovesOnlyTarget(t *testing.T) {
	ctx := t.Context()
	home := persistence.NewHome(newLocal(t), nil)
	require.NoError(t, home.Refresh(ctx))

	started, err := home.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, persistence.NewConversationTitle, started.Title)
	assert.Equal(t, []string{started.ID, "1", "2"}, ids(home.Conversations()))

	assert.ErrorIs(t, home.Delete(ctx, "1"), persistence.ErrNotInDeleteMode)

	home.EnterDeleteMode()
	require.NoError(t, home.Delete(ctx, "1"))
	assert.False(t, home.DeleteMode())
	assert.Equal(t, []string{started.ID, "2"}, ids(home.Conversations()))

	require.NoError(t, home.Refresh(ctx))
	assert.Equal(t, []string{started.ID, "2"}, ids(home.Conversations()))
}

func TestHomeDeleteFailureKeepsList(t *testing.T) {
	ctx := t.Context()
	rec := &notify.Recorder{}
	home := persistence.NewHome(newLocal(t), rec)
	require.NoError(t, home.Refresh(ctx))

	home.EnterDeleteMode()
	assert.Error(t, home.Delete(ctx, "nope"))
	assert.Equal(t, []string{"1", "2"}, ids(home.Conversations()))
	require.Len(t, rec.All(), 1)
	assert.Equal(t, "Failed to delete conversation", rec.All()[0].Description)
}
