package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"savvybot-backend/internal/config"
	"savvybot-backend/internal/logging"
)

// ErrUnsupported is returned when the runtime has no speech-recognition facility.
var ErrUnsupported = errors.New("speech recognition is not supported")

// ErrMicStarting is returned by a Toggle that races one still opening the device.
var ErrMicStarting = errors.New("microphone is still starting")

const (
	MsgMicDenied           = "Microphone access denied. Please allow microphone permission."
	MsgMicUnavailable      = "Unable to access microphone."
	MsgTranscriptionFailed = "Could not transcribe audio. Please try again."
	MsgSpeechUnsupported   = "Speech recognition is not supported on this device."
)

// Microphone is the contract shared by every voice-input implementation.
type Microphone interface {
	// Toggle starts listening, or stops if already listening.
	Toggle(ctx context.Context) error
	Listening() bool
	OnTranscript(fn func(text string))
	OnError(fn func(message string))
}

// AudioSource opens the microphone for recording.
type AudioSource interface {
	Start(ctx context.Context) (Recording, error)
}

// Recording is an in-progress capture. Stop releases the device and returns the audio.
type Recording interface {
	Stop() (io.Reader, error)
}

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, name string, r io.Reader) (string, error)
}

// SpeechResult is one interim or final recognition result.
type SpeechResult struct {
	Text  string
	Final bool
}

// SpeechRecognizer streams results until ctx is cancelled, then closes the channel.
type SpeechRecognizer interface {
	Recognize(ctx context.Context) (<-chan SpeechResult, error)
}

type callbacks struct {
	mu         sync.Mutex
	transcript func(string)
	errFn      func(string)
}

func (c *callbacks) OnTranscript(fn func(string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript = fn
}

func (c *callbacks) OnError(fn func(string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errFn = fn
}

func (c *callbacks) emitTranscript(text string) {
	c.mu.Lock()
	fn := c.transcript
	c.mu.Unlock()
	if fn != nil {
		fn(text)
	}
}

func (c *callbacks) emitError(msg string) {
	c.mu.Lock()
	fn := c.errFn
	c.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

// Recorder records audio and uploads it for transcription when stopped.
type Recorder struct {
	callbacks
	source      AudioSource
	transcriber Transcriber
	log         zerolog.Logger
	now         func() time.Time

	mu        sync.Mutex
	recording Recording
	starting  bool
}

func NewRecorder(source AudioSource, transcriber Transcriber, log zerolog.Logger) *Recorder {
	return &Recorder{
		source:      source,
		transcriber: transcriber,
		log:         logging.Component(log, "recorder"),
		now:         time.Now,
	}
}

func (r *Recorder) Listening() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording != nil || r.starting
}

// Toggle starts a recording, or stops it and transcribes the audio. The transcript
// replaces the input; a failed transcription leaves the input empty.
func (r *Recorder) Toggle(ctx context.Context) error {
	r.mu.Lock()
	if r.starting {
		r.mu.Unlock()
		return ErrMicStarting
	}
	rec := r.recording
	r.recording = nil
	r.starting = rec == nil
	r.mu.Unlock()

	if rec == nil {
		started, err := r.source.Start(ctx)
		r.mu.Lock()
		r.starting = false
		if err == nil {
			r.recording = started
		}
		r.mu.Unlock()
		if err != nil {
			msg := MsgMicUnavailable
			if errors.Is(err, ErrPermissionDenied) {
				msg = MsgMicDenied
			}
			r.emitError(msg)
			return fmt.Errorf("start recording: %w", err)
		}
		return nil
	}

	audio, err := rec.Stop()
	if err == nil {
		var text string
		text, err = r.transcriber.Transcribe(ctx, fmt.Sprintf("recording-%d.webm", r.now().UnixMilli()), audio)
		if err == nil {
			r.emitTranscript(text)
			return nil
		}
	}
	r.log.Warn().Err(err).Msg("transcription failed")
	r.emitTranscript("")
	r.emitError(MsgTranscriptionFailed)
	return fmt.Errorf("transcribe: %w", err)
}

// LiveTranscriber streams on-device recognition results into the input.
type LiveTranscriber struct {
	callbacks
	recognizer SpeechRecognizer
	log        zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLiveTranscriber accepts a nil recognizer; Toggle then reports ErrUnsupported.
func NewLiveTranscriber(recognizer SpeechRecognizer, log zerolog.Logger) *LiveTranscriber {
	return &LiveTranscriber{recognizer: recognizer, log: logging.Component(log, "live-transcriber")}
}

func (l *LiveTranscriber) Listening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

// Toggle starts recognition or stops the running one. Results arrive on the
// OnTranscript callback as final text followed by the current interim text.
func (l *LiveTranscriber) Toggle(ctx context.Context) error {
	if l.recognizer == nil {
		l.emitError(MsgSpeechUnsupported)
		return ErrUnsupported
	}

	l.mu.Lock()
	if l.cancel != nil {
		cancel := l.cancel
		l.mu.Unlock()
		cancel()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	results, err := l.recognizer.Recognize(ctx)
	if err != nil {
		l.mu.Unlock()
		cancel()
		msg := MsgMicUnavailable
		switch {
		case errors.Is(err, ErrPermissionDenied):
			msg = MsgMicDenied
		case errors.Is(err, ErrUnsupported):
			msg = MsgSpeechUnsupported
		}
		l.emitError(msg)
		return fmt.Errorf("start recognition: %w", err)
	}
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done
	l.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			l.mu.Lock()
			l.cancel = nil
			l.mu.Unlock()
			cancel()
		}()

		var final strings.Builder
		for res := range results {
			if res.Final {
				final.WriteString(res.Text)
				l.emitTranscript(final.String())
				continue
			}
			l.emitTranscript(final.String() + res.Text)
		}
	}()
	return nil
}

// Wait blocks until the current recognition stream has ended.
func (l *LiveTranscriber) Wait() {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done != nil {
		<-done
	}
}

// NewMicrophone picks the implementation for the configured mode.
func NewMicrophone(mode string, source AudioSource, transcriber Transcriber, recognizer SpeechRecognizer, log zerolog.Logger) (Microphone, error) {
	switch mode {
	case config.MicModeRecord:
		return NewRecorder(source, transcriber, log), nil
	case config.MicModeLive:
		return NewLiveTranscriber(recognizer, log), nil
	default:
		return nil, fmt.Errorf("unknown microphone mode %q", mode)
	}
}
