package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"savvybot-backend/internal/auth"
	"savvybot-backend/internal/logging"
	"savvybot-backend/internal/models"
	"savvybot-backend/internal/services"
	"savvybot-backend/pkg/httputil"
)

// Error messages returned to clients. Internal details stay in the logs.
const (
	msgInternalError    = "Internal server error"
	msgMethodNotAllowed = "Method not allowed"
)

// ConversationService defines the interface expected from the conversation service.
type ConversationService interface {
	ListConversations(ctx context.Context) ([]models.ConversationResponse, error)
	CreateConversation(ctx context.Context, req models.CreateConversationRequest) (*models.ConversationResponse, error)
	DeleteConversation(ctx context.Context, id string) error
	ListMessages(ctx context.Context, conversationID string) ([]models.MessageResponse, error)
	AddMessage(ctx context.Context, conversationID string, req models.CreateMessageRequest) (*models.MessageResponse, error)
}

// ConversationHandler serves the conversation and message endpoints.
type ConversationHandler struct {
	service ConversationService
	log     zerolog.Logger
}

func NewConversationHandler(svc ConversationService, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{service: svc, log: logging.Component(log, "conversation-handler")}
}

// requestLog tags the handler logger with the authenticated subject, when there is one.
func (h *ConversationHandler) requestLog(r *http.Request) *zerolog.Logger {
	l := h.log
	if subject, ok := auth.GetSubjectFromContext(r.Context()); ok {
		l = l.With().Str("subject", subject).Logger()
	}
	return &l
}

// HandleListConversations handles GET /conversations
func (h *ConversationHandler) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.service.ListConversations(r.Context())
	if err != nil {
		h.requestLog(r).Error().Err(err).Msg("HandleListConversations failed")
		httputil.RespondError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, convs)
}

// HandleCreateConversation handles POST /conversations
func (h *ConversationHandler) HandleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req models.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	conv, err := h.service.CreateConversation(r.Context(), req)
	if err != nil {
		h.requestLog(r).Error().Err(err).Msg("HandleCreateConversation failed")
		httputil.RespondError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	h.requestLog(r).Info().Str("conversation_id", conv.ID).Msg("conversation created")
	httputil.RespondJSON(w, http.StatusCreated, conv)
}

// HandleDeleteConversation handles DELETE /conversations/{id}
func (h *ConversationHandler) HandleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteConversation(r.Context(), id); err != nil {
		if errors.Is(err, services.ErrConversationNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		h.requestLog(r).Error().Err(err).Str("conversation_id", id).Msg("HandleDeleteConversation failed")
		httputil.RespondError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	h.requestLog(r).Info().Str("conversation_id", id).Msg("conversation deleted")
	httputil.RespondJSON(w, http.StatusOK, models.DeleteResponse{Success: true})
}

// HandleListMessages handles GET /conversations/{id}/messages
func (h *ConversationHandler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	msgs, err := h.service.ListMessages(r.Context(), id)
	if err != nil {
		h.requestLog(r).Error().Err(err).Str("conversation_id", id).Msg("HandleListMessages failed")
		httputil.RespondError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, msgs)
}

// HandleCreateMessage handles POST /conversations/{id}/messages
func (h *ConversationHandler) HandleCreateMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	msg, err := h.service.AddMessage(r.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrConversationNotFound):
			httputil.RespondError(w, http.StatusNotFound, "Conversation not found")
		default:
			h.requestLog(r).Error().Err(err).Str("conversation_id", id).Msg("HandleCreateMessage failed")
			httputil.RespondError(w, http.StatusInternalServerError, msgInternalError)
		}
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, msg)
}

// HandleMethodNotAllowed answers verbs a route doesn't support.
func HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.RespondError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
}

// HandleNotFound answers unknown paths with the standard error body.
func HandleNotFound(w http.ResponseWriter, r *http.Request) {
	httputil.RespondError(w, http.StatusNotFound, "Not found")
}

// HandlePreflight answers OPTIONS with an empty 200. CORS headers are set by middleware.
func HandlePreflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
