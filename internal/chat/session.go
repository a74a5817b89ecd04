// Package chat runs a chat session: the message list, the typing indicator, the
// welcome banner, analysis and mood check-ins.
package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"savvybot-backend/internal/logging"
	"savvybot-backend/internal/models"
	"savvybot-backend/internal/notify"
	"savvybot-backend/internal/views"
)

var (
	// ErrEmptyMessage is returned for blank input. Nothing is sent.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrAnalysisInProgress is returned when Analyze is called while one is running.
	ErrAnalysisInProgress = errors.New("analysis already in progress")
	// ErrAlreadyStarted is returned by Load once the session has messages.
	ErrAlreadyStarted = errors.New("session already has messages")
	ErrUnknownMood    = errors.New("unknown mood")
)

// Texts shown in the conversation.
const (
	FallbackReply       = "Sorry, I'm having connection issues. Please try again."
	EmptyReply          = "Sorry, I had trouble responding."
	AnalysisPlaceholder = "Hold on, I'm analyzing our conversation... 🤔"
)

// StarterPrompts are offered on the welcome banner.
var StarterPrompts = []string{
	"How can I start saving money",
	"Help me create a Budget",
	"I'm feeling stressed about my finances.",
	"I want to track my spending",
}

// Moods offered by the heal-me modal.
var Moods = []string{"Good", "Okay", "Stressed", "Anxious"}

// Replier produces the assistant's reply to one user message.
type Replier interface {
	Chat(ctx context.Context, message string) (string, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, history []models.Message) (models.Analysis, error)
}

type Checkins interface {
	Checkin(ctx context.Context, mood, note string) error
}

// MessageWriter durably stores messages of a conversation.
type MessageWriter interface {
	AddMessage(ctx context.Context, conversationID, text string, isUser bool) (models.Message, error)
}

// MessageLoader reads a conversation's stored messages.
type MessageLoader interface {
	Messages(ctx context.Context, conversationID string) ([]models.Message, error)
}

// Overlays is the part of the view controller a session drives.
type Overlays interface {
	CloseFeaturesMenu()
	CloseHealMe() views.State
}

// Options wires a Session. Replier is required; everything else is optional.
type Options struct {
	Replier  Replier
	Analyzer Analyzer
	Checkins Checkins

	// ConversationID with Writer enables persistence mode.
	ConversationID string
	Writer         MessageWriter
	Loader         MessageLoader

	Views    Overlays
	Notifier notify.Sink
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Session is safe for concurrent use. Each operation blocks until its backend call settles.
type Session struct {
	store *Store
	opts  Options
	log   zerolog.Logger

	mu          sync.Mutex
	input       string
	pending     int
	showWelcome bool
	analyzing   bool
}

func NewSession(opts Options) *Session {
	if opts.Replier == nil {
		panic("chat: Replier is required")
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{
		store:       &Store{},
		opts:        opts,
		log:         logging.Component(opts.Logger, "chat"),
		showWelcome: true,
	}
}

// Messages returns a snapshot of the conversation.
func (s *Session) Messages() []models.Message { return s.store.Messages() }

// Typing reports whether any reply is outstanding.
func (s *Session) Typing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending > 0
}

func (s *Session) WelcomeVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showWelcome
}

func (s *Session) DismissWelcome() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showWelcome = false
}

// Analyzing reports whether an analysis is running.
func (s *Session) Analyzing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzing
}

func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// SetInput replaces the text input, e.g. with a transcript.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
}

// Submit sends the current input.
func (s *Session) Submit(ctx context.Context) error {
	return s.SendUserText(ctx, s.Input())
}

// Load fills an empty session with the stored history of its conversation.
func (s *Session) Load(ctx context.Context) error {
	if s.opts.Loader == nil || s.opts.ConversationID == "" {
		return nil
	}
	if s.store.Len() > 0 {
		return ErrAlreadyStarted
	}

	msgs, err := s.opts.Loader.Messages(ctx, s.opts.ConversationID)
	if err != nil {
		s.opts.Notifier.Notify(notify.Notification{Title: "Error", Description: "Failed to load conversation messages"})
		return fmt.Errorf("load messages for %s: %w", s.opts.ConversationID, err)
	}
	if !s.store.fillIfEmpty(msgs) {
		return ErrAlreadyStarted
	}
	if len(msgs) > 0 {
		s.DismissWelcome()
	}
	return nil
}

// SendUserText appends the user's message, waits for the reply and appends it.
// Backend failures are answered with a fallback message and a notification, not an error.
func (s *Session) SendUserText(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	s.store.Append(s.newMessage(text, models.RoleUser))
	s.mu.Lock()
	s.input = ""
	s.showWelcome = false
	s.pending++
	s.mu.Unlock()
	s.persist(ctx, text, true)

	reply, err := s.opts.Replier.Chat(ctx, text)
	if err != nil {
		s.log.Warn().Err(err).Msg("chat reply failed")
		reply = FallbackReply
	} else if reply == "" {
		reply = EmptyReply
	}

	s.store.Append(s.newMessage(reply, models.RoleAssistant))
	s.mu.Lock()
	s.pending--
	s.mu.Unlock()

	if err != nil {
		s.opts.Notifier.Notify(notify.Notification{Title: "Error", Description: "Failed to connect to AI. Please try again."})
		return nil
	}
	s.persist(ctx, reply, false)
	return nil
}

func (s *Session) persist(ctx context.Context, text string, isUser bool) {
	if s.opts.Writer == nil || s.opts.ConversationID == "" {
		return
	}
	if _, err := s.opts.Writer.AddMessage(ctx, s.opts.ConversationID, text, isUser); err != nil {
		s.log.Warn().Err(err).Str("conversation_id", s.opts.ConversationID).Msg("failed to persist message")
		s.opts.Notifier.Notify(notify.Notification{Title: "Error", Description: "Failed to save message"})
	}
}

// Analyze asks the backend to profile the conversation. A placeholder message
// holds the result's place until the call settles; on failure it is removed.
func (s *Session) Analyze(ctx context.Context) error {
	if s.opts.Analyzer == nil {
		return errors.New("chat: no analyzer configured")
	}

	s.mu.Lock()
	if s.analyzing {
		s.mu.Unlock()
		return ErrAnalysisInProgress
	}
	s.analyzing = true
	s.showWelcome = false
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.analyzing = false
		s.mu.Unlock()
	}()

	if s.opts.Views != nil {
		s.opts.Views.CloseFeaturesMenu()
	}

	history := s.store.Messages()
	now := s.opts.Now()
	placeholderID := fmt.Sprintf("analysis-pending-%d", now.UnixMilli())
	s.store.Append(models.Message{ID: placeholderID, Text: AnalysisPlaceholder, Role: models.RoleAssistant, Timestamp: now})

	analysis, err := s.opts.Analyzer.Analyze(ctx, history)
	if err != nil {
		s.log.Warn().Err(err).Msg("analysis failed")
		s.store.Remove(placeholderID)
		s.opts.Notifier.Notify(notify.Notification{
			Title:       "Analysis Failed",
			Description: "I couldn't complete the analysis. Please try again later.",
			Variant:     notify.VariantDestructive,
		})
		return nil
	}

	s.store.Replace(placeholderID, s.newMessage(analysis.Format(), models.RoleAssistant))
	return nil
}

// SelectMood closes the heal-me modal and records the mood. The selection stands
// even when the check-in fails.
func (s *Session) SelectMood(ctx context.Context, mood string) error {
	if !slices.Contains(Moods, mood) {
		return fmt.Errorf("%w: %q", ErrUnknownMood, mood)
	}
	if s.opts.Views != nil {
		s.opts.Views.CloseHealMe()
	}
	if s.opts.Checkins == nil {
		return errors.New("chat: no check-in backend configured")
	}

	if err := s.opts.Checkins.Checkin(ctx, mood, ""); err != nil {
		s.log.Warn().Err(err).Str("mood", mood).Msg("mood check-in failed")
		s.opts.Notifier.Notify(notify.Notification{Title: "Error", Description: "Failed to log your mood. Please try again."})
		return nil
	}
	s.opts.Notifier.Notify(notify.Notification{
		Title:       "Mood Logged",
		Description: fmt.Sprintf("Your mood (%s) has been recorded.", mood),
	})
	return nil
}

func (s *Session) newMessage(text string, role models.Role) models.Message {
	now := s.opts.Now()
	return models.Message{
		ID:        fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8]),
		Text:      text,
		Role:      role,
		Timestamp: now,
	}
}
