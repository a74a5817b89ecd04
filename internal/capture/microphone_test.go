package capture

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savvybot-backend/internal/config"
	"savvybot-backend/internal/logging"
)

const (
	timeout = time.Second
	tick    = 5 * time.Millisecond
)

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

type fakeRecording struct{ stopped bool }

func (r *fakeRecording) Stop() (io.Reader, error) {
	r.stopped = true
	return bytes.NewReader([]byte("audio")), nil
}

type fakeSource struct {
	rec *fakeRecording
	err error
}

func (s *fakeSource) Start(context.Context) (Recording, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.rec = &fakeRecording{}
	return s.rec, nil
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f fakeTranscriber) Transcribe(_ context.Context, name string, r io.Reader) (string, error) {
	return f.text, f.err
}

type events struct {
	mu          sync.Mutex
	transcripts []string
	errors      []string
}

func (e *events) attach(m Microphone) {
	m.OnTranscript(func(s string) {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.transcripts = append(e.transcripts, s)
	})
	m.OnError(func(s string) {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.errors = append(e.errors, s)
	})
}

func (e *events) snapshot() ([]string, []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.transcripts...), append([]string(nil), e.errors...)
}

func TestRecorderTranscribes(t *testing.T) {
	src := &fakeSource{}
	rec := NewRecorder(src, fakeTranscriber{text: "how do I save"}, logging.Nop())
	var ev events
	ev.attach(rec)

	require.NoError(t, rec.Toggle(t.Context()))
	assert.True(t, rec.Listening())
	require.NoError(t, rec.Toggle(t.Context()))
	assert.False(t, rec.Listening())
	assert.True(t, src.rec.stopped)

	transcripts, errs := ev.snapshot()
	assert.Equal(t, []string{"how do I save"}, transcripts)
	assert.Empty(t, errs)
}

func TestRecorderFailureLeavesInputEmpty(t *testing.T) {
	rec := NewRecorder(&fakeSource{}, fakeTranscriber{err: errors.New("503")}, logging.Nop())
	var ev events
	ev.attach(rec)

	require.NoError(t, rec.Toggle(t.Context()))
	assert.Error(t, rec.Toggle(t.Context()))

	transcripts, errs := ev.snapshot()
	assert.Equal(t, []string{""}, transcripts)
	assert.Equal(t, []string{MsgTranscriptionFailed}, errs)
}

func TestRecorderPermissionDenied(t *testing.T) {
	rec := NewRecorder(&fakeSource{err: ErrPermissionDenied}, fakeTranscriber{}, logging.Nop())
	var ev events
	ev.attach(rec)

	assert.ErrorIs(t, rec.Toggle(t.Context()), ErrPermissionDenied)
	assert.False(t, rec.Listening())
	_, errs := ev.snapshot()
	assert.Equal(t, []string{MsgMicDenied}, errs)
}

// slowSource blocks Start until release is closed and counts the starts.
type slowSource struct {
	entered chan struct{}
	release chan struct{}
	mu      sync.Mutex
	starts  int
}

func (s *slowSource) Start(context.Context) (Recording, error) {
	s.mu.Lock()
	s.starts++
	s.mu.Unlock()
	close(s.entered)
	<-s.release
	return &fakeRecording{}, nil
}

func TestRecorderConcurrentToggleStartsOnce(t *testing.T) {
	src := &slowSource{entered: make(chan struct{}), release: make(chan struct{})}
	rec := NewRecorder(src, fakeTranscriber{text: "hi"}, logging.Nop())

	first := make(chan error, 1)
	go func() { first <- rec.Toggle(t.Context()) }()
	<-src.entered

	assert.True(t, rec.Listening())
	assert.ErrorIs(t, rec.Toggle(t.Context()), ErrMicStarting)
	close(src.release)
	require.NoError(t, <-first)

	src.mu.Lock()
	assert.Equal(t, 1, src.starts)
	src.mu.Unlock()

	require.NoError(t, rec.Toggle(t.Context()))
	assert.False(t, rec.Listening())
}

type scriptedRecognizer struct {
	results []SpeechResult
}

func (s scriptedRecognizer) Recognize(ctx context.Context) (<-chan SpeechResult, error) {
	ch := make(chan SpeechResult)
	go func() {
		defer close(ch)
		for _, r := range s.results {
			select {
			case ch <- r:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return ch, nil
}

func TestLiveTranscriberStreamsResults(t *testing.T) {
	live := NewLiveTranscriber(scriptedRecognizer{results: []SpeechResult{
		{Text: "help me"},
		{Text: "help me budget", Final: true},
		{Text: " please"},
	}}, logging.Nop())
	var ev events
	ev.attach(live)

	require.NoError(t, live.Toggle(t.Context()))
	require.Eventually(t, func() bool {
		transcripts, _ := ev.snapshot()
		return len(transcripts) == 3
	}, timeout, tick)
	assert.True(t, live.Listening())

	require.NoError(t, live.Toggle(t.Context()))
	live.Wait()
	assert.False(t, live.Listening())

	transcripts, _ := ev.snapshot()
	assert.Equal(t, []string{"help me", "help me budget", "help me budget please"}, transcripts)
}

func TestLiveTranscriberUnsupported(t *testing.T) {
	live := NewLiveTranscriber(nil, logging.Nop())
	var ev events
	ev.attach(live)

	assert.ErrorIs(t, live.Toggle(t.Context()), ErrUnsupported)
	_, errs := ev.snapshot()
	assert.Equal(t, []string{MsgSpeechUnsupported}, errs)
}

func TestNewMicrophone(t *testing.T) {
	mic, err := NewMicrophone(config.MicModeRecord, &fakeSource{}, fakeTranscriber{}, nil, logging.Nop())
	require.NoError(t, err)
	assert.IsType(t, &Recorder{}, mic)

	mic, err = NewMicrophone(config.MicModeLive, nil, nil, nil, logging.Nop())
	require.NoError(t, err)
	assert.IsType(t, &LiveTranscriber{}, mic)

	_, err = NewMicrophone("telepathy", nil, nil, nil, logging.Nop())
	assert.Error(t, err)
}
