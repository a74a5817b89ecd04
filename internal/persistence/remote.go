package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"savvybot-backend/internal/gateway"
	"savvybot-backend/internal/logging"
	"savvybot-backend/internal/models"
)

var _ Store = (*Remote)(nil)

// RemoteOptions configures a Remote.
type RemoteOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string // bearer token, sent when set
	Logger     zerolog.Logger
}

// Remote talks to the persistence REST API.
type Remote struct {
	baseURL    string
	httpClient *http.Client
	token      string
	log        zerolog.Logger
}

func NewRemote(opts RemoteOptions) *Remote {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Remote{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		token:      opts.Token,
		log:        logging.Component(opts.Logger, "persistence-remote"),
	}
}

func (r *Remote) List(ctx context.Context) ([]models.Conversation, error) {
	var rows []models.ConversationResponse
	if err := r.do(ctx, http.MethodGet, "/conversations", nil, &rows); err != nil {
		return nil, err
	}
	out := make([]models.Conversation, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.ConversationFromResponse(row))
	}
	return out, nil
}

func (r *Remote) Create(ctx context.Context, title, preview string) (models.Conversation, error) {
	var row models.ConversationResponse
	req := models.CreateConversationRequest{Title: title, Preview: preview}
	if err := r.do(ctx, http.MethodPost, "/conversations", req, &row); err != nil {
		return models.Conversation{}, err
	}
	return models.ConversationFromResponse(row), nil
}

func (r *Remote) Delete(ctx context.Context, id string) error {
	return r.do(ctx, http.MethodDelete, "/conversations/"+url.PathEscape(id), nil, nil)
}

func (r *Remote) Messages(ctx context.Context, conversationID string) ([]models.Message, error) {
	var rows []models.MessageResponse
	if err := r.do(ctx, http.MethodGet, "/conversations/"+url.PathEscape(conversationID)+"/messages", nil, &rows); err != nil {
		return nil, err
	}
	out := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.MessageFromResponse(row))
	}
	return out, nil
}

func (r *Remote) AddMessage(ctx context.Context, conversationID, text string, isUser bool) (models.Message, error) {
	var row models.MessageResponse
	req := models.CreateMessageRequest{Text: &text, IsUser: isUser}
	if err := r.do(ctx, http.MethodPost, "/conversations/"+url.PathEscape(conversationID)+"/messages", req, &row); err != nil {
		return models.Message{}, err
	}
	return models.MessageFromResponse(row), nil
}

func (r *Remote) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return &gateway.NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &gateway.NetworkError{Op: method + " " + path, Err: err}
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		srvErr := &gateway.ServerError{Status: resp.StatusCode}
		var errBody models.ErrorResponse
		if json.Unmarshal(data, &errBody) == nil {
			srvErr.Message = errBody.Error
		}
		r.log.Debug().Int("status", resp.StatusCode).Str("path", path).Msg("persistence API error")
		return srvErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
