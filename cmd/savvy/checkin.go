package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"savvybot-backend/internal/chat"
)

var checkinCmd = &cobra.Command{
	Use:       "checkin <mood>",
	Short:     "Log how you feel (" + strings.Join(chat.Moods, ", ") + ")",
	Args:      cobra.ExactArgs(1),
	ValidArgs: chat.Moods,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		mood := normalizeMood(args[0])
		session := chat.NewSession(chat.Options{
			Replier:  a.gateway,
			Checkins: a.gateway,
			Notifier: a.notifier,
			Logger:   a.log,
		})
		return session.SelectMood(cmd.Context(), mood)
	},
}

// normalizeMood maps "stressed" to "Stressed". Unknown moods pass through unchanged.
func normalizeMood(s string) string {
	for _, m := range chat.Moods {
		if strings.EqualFold(m, s) {
			return m
		}
	}
	return s
}

func moodUsage() string {
	return fmt.Sprintf("usage: /mood <%s>", strings.Join(chat.Moods, "|"))
}
