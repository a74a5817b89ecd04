package views

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentsRoundTrip(t *testing.T) {
	c := NewController()
	_, err := c.ToggleFeaturesMenu()
	require.NoError(t, err)

	_, err = c.SelectFeature(FeatureDocuments)
	require.NoError(t, err)
	s := c.State()
	assert.True(t, s.DocumentsOpen())
	assert.False(t, s.FeaturesMenuOpen())

	s = c.CloseDocuments()
	assert.True(t, s.FeaturesMenuOpen())
	assert.False(t, s.DocumentsOpen())
	assert.True(t, s.FeaturesRotated())
}

func TestFullViewClosesOverlay(t *testing.T) {
	c := NewController()
	_, err := c.ToggleFeaturesMenu()
	require.NoError(t, err)

	s := c.OpenCaptureReceipt()
	assert.Equal(t, ViewCaptureReceipt, s.Active)
	assert.Equal(t, OverlayNone, s.Overlay)

	_, err = c.ToggleFeaturesMenu()
	assert.ErrorIs(t, err, ErrNotInChat)

	s = c.Back()
	assert.Equal(t, ViewChat, s.Active)

	_, err = c.SelectFeature(FeatureUploadDocument)
	require.NoError(t, err)
	assert.Equal(t, ViewUploadDocument, c.State().Active)

	c.Back()
	c.OpenSmartAssistant()
	assert.Equal(t, ViewSmartAssistant, c.State().Active)
}

func TestHealMe(t *testing.T) {
	c := NewController()
	_, _ = c.ToggleFeaturesMenu()
	_, err := c.SelectFeature(FeatureHealMe)
	require.NoError(t, err)
	s := c.State()
	assert.True(t, s.HealMeOpen())
	assert.False(t, s.FeaturesMenuOpen())

	s = c.CloseHealMe()
	assert.Equal(t, State{Active: ViewChat}, s)
}

func TestSelectAnalyse(t *testing.T) {
	c := NewController()
	_, _ = c.ToggleFeaturesMenu()

	action, err := c.SelectFeature(FeatureAnalyseMe)
	require.NoError(t, err)
	assert.Equal(t, FeatureAnalyze, action)
	assert.False(t, c.State().FeaturesMenuOpen())

	_, err = c.SelectFeature("teleport")
	assert.ErrorIs(t, err, ErrUnknownFeature)
}

func TestToggleFeaturesMenu(t *testing.T) {
	c := NewController()
	s, err := c.ToggleFeaturesMenu()
	require.NoError(t, err)
	assert.True(t, s.FeaturesRotated())

	s, err = c.ToggleFeaturesMenu()
	require.NoError(t, err)
	assert.False(t, s.FeaturesMenuOpen())
	assert.False(t, s.FeaturesRotated())
}

func TestSelectAssistantOption(t *testing.T) {
	c := NewController()
	_, err := c.SelectAssistantOption("save-money")
	assert.ErrorIs(t, err, ErrNotInAssistant)

	c.OpenSmartAssistant()
	_, err = c.SelectAssistantOption("retire-tomorrow")
	assert.ErrorIs(t, err, ErrUnknownFeature)
	assert.Equal(t, ViewSmartAssistant, c.State().Active)

	opt, err := c.SelectAssistantOption("save-money")
	require.NoError(t, err)
	assert.Equal(t, "Save More", opt.Title)
	assert.Equal(t, State{Active: ViewChat}, c.State())
	assert.Len(t, SmartAssistantOptions, 4)
}
