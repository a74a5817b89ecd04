// Package views tracks which full-screen view and which overlay are visible.
// An overlay is a single value, so two overlays can never be open together.
package views

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotInChat is returned when the features menu is toggled outside the chat view.
var ErrNotInChat = errors.New("features menu is only available in chat")

// ErrUnknownFeature is returned by SelectFeature for keys it doesn't know.
var ErrUnknownFeature = errors.New("unknown feature")

var ErrNotInAssistant = errors.New("smart assistant is not open")

// FullView is the exclusively active full-screen view.
type FullView int

const (
	ViewNone FullView = iota
	ViewChat
	ViewCaptureReceipt
	ViewUploadDocument
	ViewSmartAssistant
)

func (v FullView) String() string {
	switch v {
	case ViewNone:
		return "none"
	case ViewChat:
		return "chat"
	case ViewCaptureReceipt:
		return "capture-receipt"
	case ViewUploadDocument:
		return "upload-document"
	case ViewSmartAssistant:
		return "smart-assistant"
	default:
		return fmt.Sprintf("FullView(%d)", int(v))
	}
}

// Overlay is a modal shown above the chat view.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayFeaturesMenu
	OverlayDocuments
	OverlayHealMe
)

func (o Overlay) String() string {
	switch o {
	case OverlayNone:
		return "none"
	case OverlayFeaturesMenu:
		return "features-menu"
	case OverlayDocuments:
		return "documents"
	case OverlayHealMe:
		return "heal-me"
	default:
		return fmt.Sprintf("Overlay(%d)", int(o))
	}
}

// State is an immutable snapshot of the controller.
type State struct {
	Active  FullView
	Overlay Overlay
}

func (s State) FeaturesMenuOpen() bool { return s.Overlay == OverlayFeaturesMenu }
func (s State) DocumentsOpen() bool    { return s.Overlay == OverlayDocuments }
func (s State) HealMeOpen() bool       { return s.Overlay == OverlayHealMe }

// FeaturesRotated is the features button's rotated look. It follows the menu.
func (s State) FeaturesRotated() bool { return s.FeaturesMenuOpen() }

// Feature keys offered by the features menu and the smart assistant.
const (
	FeatureCaptureReceipt = "capture-receipt"
	FeatureDocuments      = "documents"
	FeatureHealMe         = "heal-me"
	FeatureAnalyseMe      = "analyse-me"
	FeatureUploadDocument = "upload-document"
)

// AssistantOption is one card on the smart-assistant view.
type AssistantOption struct {
	Key         string
	Title       string
	Description string
}

// SmartAssistantOptions are listed on the smart-assistant view, in display order.
var SmartAssistantOptions = []AssistantOption{
	{Key: "budget-smarter", Title: "Budget Smarter", Description: "Build a custom budget that works for you."},
	{Key: "track-spending", Title: "Track Spending", Description: "See where your money goes every month."},
	{Key: "save-money", Title: "Save More", Description: "Personalized tips to increase your savings."},
	{Key: "to-do-list", Title: "Financial To-Do List", Description: "Stay on top of important money tasks."},
}

// Action tells the caller what to do after a feature was selected, beyond the view change.
type Action int

const (
	ActionNone Action = iota
	// FeatureAnalyze means the caller should start a conversation analysis.
	FeatureAnalyze
)

// Controller is safe for concurrent use.
type Controller struct {
	mu    sync.Mutex
	state State
}

// NewController starts in the chat view with nothing open.
func NewController() *Controller {
	return &Controller{state: State{Active: ViewChat}}
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) openFull(v FullView) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{Active: v, Overlay: OverlayNone}
	return c.state
}

func (c *Controller) OpenCaptureReceipt() State { return c.openFull(ViewCaptureReceipt) }
func (c *Controller) OpenUploadDocument() State { return c.openFull(ViewUploadDocument) }
func (c *Controller) OpenSmartAssistant() State { return c.openFull(ViewSmartAssistant) }

// Back returns from a full-screen view to chat.
func (c *Controller) Back() State { return c.openFull(ViewChat) }

// ToggleFeaturesMenu opens the menu, or closes it when it is already open.
// Any other overlay is replaced.
func (c *Controller) ToggleFeaturesMenu() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Active != ViewChat {
		return c.state, ErrNotInChat
	}
	if c.state.Overlay == OverlayFeaturesMenu {
		c.state.Overlay = OverlayNone
	} else {
		c.state.Overlay = OverlayFeaturesMenu
	}
	return c.state, nil
}

// CloseFeaturesMenu closes the menu if it is open. Other overlays are left alone.
func (c *Controller) CloseFeaturesMenu() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Overlay == OverlayFeaturesMenu {
		c.state.Overlay = OverlayNone
	}
}

// SelectFeature applies the transition for a features-menu entry.
func (c *Controller) SelectFeature(key string) (Action, error) {
	switch key {
	case FeatureCaptureReceipt:
		c.OpenCaptureReceipt()
	case FeatureUploadDocument:
		c.OpenUploadDocument()
	case FeatureDocuments:
		c.setOverlay(OverlayDocuments)
	case FeatureHealMe:
		c.setOverlay(OverlayHealMe)
	case FeatureAnalyseMe:
		c.CloseFeaturesMenu()
		return FeatureAnalyze, nil
	default:
		return ActionNone, fmt.Errorf("%w: %q", ErrUnknownFeature, key)
	}
	return ActionNone, nil
}

// SelectAssistantOption picks a smart-assistant card and returns to chat.
// It only applies while the smart-assistant view is active.
func (c *Controller) SelectAssistantOption(key string) (AssistantOption, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Active != ViewSmartAssistant {
		return AssistantOption{}, ErrNotInAssistant
	}
	for _, opt := range SmartAssistantOptions {
		if opt.Key == key {
			c.state = State{Active: ViewChat}
			return opt, nil
		}
	}
	return AssistantOption{}, fmt.Errorf("%w: %q", ErrUnknownFeature, key)
}

// Overlays only sit on top of chat.
func (c *Controller) setOverlay(o Overlay) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{Active: ViewChat, Overlay: o}
}

// CloseDocuments is the documents modal's back action: it returns to the features menu.
func (c *Controller) CloseDocuments() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Overlay == OverlayDocuments {
		c.state.Overlay = OverlayFeaturesMenu
	}
	return c.state
}

// CloseHealMe dismisses the mood modal.
func (c *Controller) CloseHealMe() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Overlay == OverlayHealMe {
		c.state.Overlay = OverlayNone
	}
	return c.state
}
