package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"savvybot-backend/internal/chat"
	"savvybot-backend/internal/models"
	"savvybot-backend/internal/persistence"
	"savvybot-backend/internal/replies"
	"savvybot-backend/internal/views"
)

var conversationID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long: `Start an interactive chat with Savvy Bot.

Type a message and press enter. Commands:
  /analyze        analyze the conversation so far
  /mood <mood>    log your mood (Good, Okay, Stressed, Anxious)
  /assistant [k]  list smart-assistant topics, or ask about one
  /voice <file>   send a recorded voice message
  /quit           leave the chat`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "resume an existing conversation")
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	id := conversationID
	if id == "" {
		conv, err := persistence.NewHome(a.store, a.notifier).Start(ctx)
		if err != nil {
			return err
		}
		id = conv.ID
	}

	var replier chat.Replier = a.gateway
	if offline {
		replier = replies.Simulated{}
	}
	ctrl := views.NewController()
	session := chat.NewSession(chat.Options{
		Replier:        replier,
		Analyzer:       a.gateway,
		Checkins:       a.gateway,
		ConversationID: id,
		Writer:         a.store,
		Loader:         a.store,
		Views:          ctrl,
		Notifier:       a.notifier,
		Logger:         a.log,
	})
	if err := session.Load(ctx); err != nil {
		a.log.Debug().Err(err).Msg("starting with an empty conversation")
	}

	printed := printMessages(out, session.Messages(), 0)
	if session.WelcomeVisible() {
		fmt.Fprintln(out, "Hi! I'm Savvy. Try one of these:")
		for _, p := range chat.StarterPrompts {
			fmt.Fprintf(out, "  - %s\n", p)
		}
	}

	r := &repl{
		out:     out,
		session: session,
		ctrl:    ctrl,
		printed: printed,
		transcribe: func(ctx context.Context, path string) (string, error) {
			return transcribeFile(ctx, a, path)
		},
	}
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		quit, err := r.handle(ctx, scanner.Text())
		if err != nil || quit {
			return err
		}
	}
}

// repl runs one chat prompt line at a time.
type repl struct {
	out        io.Writer
	session    *chat.Session
	ctrl       *views.Controller
	printed    int
	transcribe func(ctx context.Context, path string) (string, error)
}

// handle runs one input line and reports whether the user asked to leave.
func (r *repl) handle(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit":
		return true, nil
	case "/analyze":
		if _, err := r.ctrl.SelectFeature(views.FeatureAnalyseMe); err != nil {
			return false, err
		}
		if err := r.session.Analyze(ctx); err != nil {
			fmt.Fprintln(r.out, err)
		}
	case "/mood":
		mood := normalizeMood(arg)
		if !slices.Contains(chat.Moods, mood) {
			fmt.Fprintln(r.out, moodUsage())
			return false, nil
		}
		if _, err := r.ctrl.SelectFeature(views.FeatureHealMe); err != nil {
			return false, err
		}
		if err := r.session.SelectMood(ctx, mood); err != nil {
			r.ctrl.CloseHealMe()
			fmt.Fprintln(r.out, err)
		}
		return false, nil
	case "/assistant":
		r.ctrl.OpenSmartAssistant()
		if arg == "" {
			for _, opt := range views.SmartAssistantOptions {
				fmt.Fprintf(r.out, "  %-16s %s. %s\n", opt.Key, opt.Title, opt.Description)
			}
			r.ctrl.Back()
			return false, nil
		}
		opt, err := r.ctrl.SelectAssistantOption(arg)
		if err != nil {
			r.ctrl.Back()
			fmt.Fprintln(r.out, err)
			return false, nil
		}
		r.session.SetInput(opt.Title)
		if err := r.session.Submit(ctx); err != nil {
			return false, nil
		}
	case "/voice":
		if arg == "" || r.transcribe == nil {
			fmt.Fprintln(r.out, "usage: /voice <audio file>")
			return false, nil
		}
		text, err := r.transcribe(ctx, arg)
		if err != nil || text == "" {
			return false, nil
		}
		fmt.Fprintf(r.out, "you said: %s\n", text)
		r.session.SetInput(text)
		if err := r.session.Submit(ctx); err != nil {
			return false, nil
		}
	default:
		r.session.SetInput(line)
		if err := r.session.Submit(ctx); err != nil {
			return false, nil
		}
	}
	r.printed = printMessages(r.out, r.session.Messages(), r.printed)
	return false, nil
}

// printMessages writes messages from index `from` on and returns the new count.
func printMessages(w io.Writer, msgs []models.Message, from int) int {
	for _, m := range msgs[min(from, len(msgs)):] {
		if m.IsUser() {
			continue
		}
		fmt.Fprintf(w, "savvy: %s\n", m.Text)
	}
	return len(msgs)
}
