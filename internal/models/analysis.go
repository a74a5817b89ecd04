package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingSection is returned when an analysis payload lacks one of its sections.
var ErrMissingSection = errors.New("analysis section missing")

// AnalysisSection is one titled block of a conversation analysis.
type AnalysisSection struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Emoji       string `json:"emoji"`
}

// Analysis is the structured result of POST /analyze.
type Analysis struct {
	PersonalitySketch    AnalysisSection `json:"personality_sketch"`
	SpendingHabitProfile AnalysisSection `json:"spending_habit_profile"`
	InterestsThemes      AnalysisSection `json:"interests_themes"`
	SavvyInsight         AnalysisSection `json:"savvy_insight"`
}

// ParseAnalysis decodes an analysis payload. The backend sometimes returns the
// object double-encoded as a JSON string, so both forms are accepted.
// Every section must be present.
func ParseAnalysis(data []byte) (Analysis, error) {
	var encoded string
	if err := json.Unmarshal(data, &encoded); err == nil {
		data = []byte(encoded)
	}

	var raw struct {
		PersonalitySketch    *AnalysisSection `json:"personality_sketch"`
		SpendingHabitProfile *AnalysisSection `json:"spending_habit_profile"`
		InterestsThemes      *AnalysisSection `json:"interests_themes"`
		SavvyInsight         *AnalysisSection `json:"savvy_insight"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Analysis{}, fmt.Errorf("decode analysis: %w", err)
	}

	sections := map[string]*AnalysisSection{
		"personality_sketch":     raw.PersonalitySketch,
		"spending_habit_profile": raw.SpendingHabitProfile,
		"interests_themes":       raw.InterestsThemes,
		"savvy_insight":          raw.SavvyInsight,
	}
	for name, s := range sections {
		if s == nil {
			return Analysis{}, fmt.Errorf("%w: %s", ErrMissingSection, name)
		}
	}

	return Analysis{
		PersonalitySketch:    *raw.PersonalitySketch,
		SpendingHabitProfile: *raw.SpendingHabitProfile,
		InterestsThemes:      *raw.InterestsThemes,
		SavvyInsight:         *raw.SavvyInsight,
	}, nil
}

// Sections returns the four sections in display order.
func (a Analysis) Sections() []AnalysisSection {
	return []AnalysisSection{a.PersonalitySketch, a.SpendingHabitProfile, a.InterestsThemes, a.SavvyInsight}
}

// Format renders the analysis as chat text: each section is "emoji title" on one
// line followed by its description, with a blank line between sections.
func (a Analysis) Format() string {
	blocks := make([]string, 0, 4)
	for _, s := range a.Sections() {
		blocks = append(blocks, fmt.Sprintf("%s %s\n%s", s.Emoji, s.Title, s.Description))
	}
	return strings.Join(blocks, "\n\n")
}
