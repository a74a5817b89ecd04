package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savvybot-backend/internal/capture"
	"savvybot-backend/internal/chat"
	"savvybot-backend/internal/config"
	"savvybot-backend/internal/logging"
	"savvybot-backend/internal/models"
	"savvybot-backend/internal/notify"
	"savvybot-backend/internal/replies"
	"savvybot-backend/internal/views"
)

func TestNormalizeMood(t *testing.T) {
	assert.Equal(t, "Stressed", normalizeMood("stressed"))
	assert.Equal(t, "Okay", normalizeMood("OKAY"))
	assert.Equal(t, "meh", normalizeMood("meh"))
}

func TestPrintMessagesSkipsUserAndPrinted(t *testing.T) {
	msgs := []models.Message{
		{Text: "hi", Role: models.RoleUser},
		{Text: "hello!", Role: models.RoleAssistant},
		{Text: "budget?", Role: models.RoleUser},
		{Text: "sure", Role: models.RoleAssistant},
	}
	var buf bytes.Buffer
	n := printMessages(&buf, msgs, 2)
	assert.Equal(t, 4, n)
	assert.Equal(t, "savvy: sure\n", buf.String())
}

type loggedMoods struct{ moods []string }

func (l *loggedMoods) Checkin(_ context.Context, mood, _ string) error {
	l.moods = append(l.moods, mood)
	return nil
}

func newTestRepl(t *testing.T) (*repl, *bytes.Buffer, *loggedMoods) {
	t.Helper()
	ctrl := views.NewController()
	moods := &loggedMoods{}
	session := chat.NewSession(chat.Options{
		Replier:  replies.Simulated{},
		Checkins: moods,
		Views:    ctrl,
		Logger:   logging.Nop(),
	})
	var out bytes.Buffer
	return &repl{out: &out, session: session, ctrl: ctrl}, &out, moods
}

func TestReplUnknownMoodLeavesNoOverlay(t *testing.T) {
	r, out, moods := newTestRepl(t)

	quit, err := r.handle(t.Context(), "/mood foo")
	require.NoError(t, err)
	assert.False(t, quit)
	assert.False(t, r.ctrl.State().HealMeOpen())
	assert.Contains(t, out.String(), "usage: /mood")
	assert.Empty(t, moods.moods)

	_, err = r.handle(t.Context(), "/mood stressed")
	require.NoError(t, err)
	assert.Equal(t, []string{"Stressed"}, moods.moods)
	assert.False(t, r.ctrl.State().HealMeOpen())
}

func TestReplAssistant(t *testing.T) {
	r, out, _ := newTestRepl(t)

	_, err := r.handle(t.Context(), "/assistant")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "budget-smarter")
	assert.Equal(t, views.ViewChat, r.ctrl.State().Active)

	_, err = r.handle(t.Context(), "/assistant retire-tomorrow")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "unknown feature")
	assert.Equal(t, views.ViewChat, r.ctrl.State().Active)

	out.Reset()
	_, err = r.handle(t.Context(), "/assistant budget-smarter")
	require.NoError(t, err)
	msgs := r.session.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Budget Smarter", msgs[0].Text)
	assert.Equal(t, "savvy: "+replies.Lookup("Budget Smarter")+"\n", out.String())
}

func TestReplVoiceSubmitsTranscript(t *testing.T) {
	r, out, _ := newTestRepl(t)
	r.transcribe = func(context.Context, string) (string, error) { return "how do I start saving", nil }

	_, err := r.handle(t.Context(), "/voice memo.webm")
	require.NoError(t, err)
	msgs := r.session.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "how do I start saving", msgs[0].Text)
	assert.Contains(t, out.String(), "you said: how do I start saving")

	quit, err := r.handle(t.Context(), "/quit")
	require.NoError(t, err)
	assert.True(t, quit)
}

// echoTranscriber returns the uploaded audio as the transcript.
type echoTranscriber struct{}

func (echoTranscriber) Transcribe(_ context.Context, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	return string(data), err
}

func TestListenOnceRecordMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memo.webm")
	require.NoError(t, os.WriteFile(path, []byte("track my spending"), 0o600))

	mic, err := capture.NewMicrophone(config.MicModeRecord, fileAudio{path: path}, echoTranscriber{}, nil, logging.Nop())
	require.NoError(t, err)
	text, err := listenOnce(t.Context(), mic, notify.Discard)
	require.NoError(t, err)
	assert.Equal(t, "track my spending", text)
}

func TestListenOnceLiveModeUnsupported(t *testing.T) {
	mic, err := capture.NewMicrophone(config.MicModeLive, nil, nil, nil, logging.Nop())
	require.NoError(t, err)

	rec := &notify.Recorder{}
	_, err = listenOnce(t.Context(), mic, rec)
	assert.ErrorIs(t, err, capture.ErrUnsupported)
	require.Len(t, rec.All(), 1)
	assert.Equal(t, capture.MsgSpeechUnsupported, rec.All()[0].Description)
}

func TestListenOnceMissingFile(t *testing.T) {
	mic, err := capture.NewMicrophone(config.MicModeRecord, fileAudio{path: filepath.Join(t.TempDir(), "gone.webm")}, echoTranscriber{}, nil, logging.Nop())
	require.NoError(t, err)

	rec := &notify.Recorder{}
	_, err = listenOnce(t.Context(), mic, rec)
	assert.ErrorIs(t, err, os.ErrNotExist)
	require.Len(t, rec.All(), 1)
	assert.Equal(t, capture.MsgMicUnavailable, rec.All()[0].Description)
}
