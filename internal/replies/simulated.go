// Package replies provides canned assistant replies for running without a chat backend.
package replies

import (
	"context"
	"strings"
	"time"
)

// keywordReplies are matched in order against the lower-cased user text.
var keywordReplies = []struct {
	keyword string
	reply   string
}{
	{"saving", "Great question! I'm Savvy, your smart assistant here on SavvyBee — built to help you take control of your money, one simple step at a time. Let's start with creating a budget and identifying areas where you can cut expenses."},
	{"budget", "I'd love to help you create a budget! Let's start by understanding your monthly income and expenses. This will help us identify opportunities for savings."},
	{"stressed", "I understand that financial stress can be overwhelming. Let's break this down into manageable steps. What specific aspect of your finances is causing you the most concern?"},
	{"spending", "Tracking spending is a fantastic first step! I can help you categorize your expenses and identify patterns. Would you like to start by listing your main spending categories?"},
}

// Greeting is the reply when no keyword matches.
const Greeting = "Hey there! 👋 I'm Savvy, your smart assistant here on SavvyBee — built to help you take control of your money, one simple step at a time."

// Simulated answers from the keyword table after an optional delay.
type Simulated struct {
	Delay time.Duration
}

// Chat returns the canned reply for message. It only fails if ctx ends during the delay.
func (s Simulated) Chat(ctx context.Context, message string) (string, error) {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return Lookup(message), nil
}

// Lookup picks the reply for message without waiting.
func Lookup(message string) string {
	lower := strings.ToLower(message)
	for _, kr := range keywordReplies {
		if strings.Contains(lower, kr.keyword) {
			return kr.reply
		}
	}
	return Greeting
}
