// Package gateway is the client for the chat/AI backend: chat replies, mood
// check-ins, conversation analysis, uploads and transcription.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"savvybot-backend/internal/logging"
	"savvybot-backend/internal/metrics"
	"savvybot-backend/internal/models"
)

// MaxAnalyzeHistory caps how many recent messages are sent to /analyze.
const MaxAnalyzeHistory = 20

// Options configures a Client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client     // defaults to a client with no timeout
	RateLimit  float64          // requests per second; 0 disables limiting
	Metrics    *metrics.Metrics // optional
	Logger     zerolog.Logger
}

// Client calls the chat/AI backend. Calls are never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		metrics:    opts.Metrics,
		log:        logging.Component(opts.Logger, "gateway"),
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return c
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// Chat sends one user message and returns the assistant's reply.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	var resp chatResponse
	if err := c.postJSON(ctx, "chat", chatRequest{Message: message}, &resp); err != nil {
		return "", err
	}
	return resp.Reply, nil
}

type checkinRequest struct {
	Mood string `json:"mood"`
	Note string `json:"note"`
}

// Checkin records a mood. The mood is sent lower-cased.
func (c *Client) Checkin(ctx context.Context, mood, note string) error {
	return c.postJSON(ctx, "checkin", checkinRequest{Mood: strings.ToLower(mood), Note: note}, nil)
}

type analyzeRequest struct {
	ChatHistory []models.Message `json:"chat_history"`
}

// Analyze asks the backend to profile the conversation. Only the most recent
// MaxAnalyzeHistory messages are sent.
func (c *Client) Analyze(ctx context.Context, history []models.Message) (models.Analysis, error) {
	if len(history) > MaxAnalyzeHistory {
		history = history[len(history)-MaxAnalyzeHistory:]
	}
	if history == nil {
		history = []models.Message{}
	}

	var raw json.RawMessage
	if err := c.postJSON(ctx, "analyze", analyzeRequest{ChatHistory: history}, &raw); err != nil {
		return models.Analysis{}, err
	}
	analysis, err := models.ParseAnalysis(raw)
	if err != nil {
		return models.Analysis{}, fmt.Errorf("analyze: %w: %w", ErrMalformedResponse, err)
	}
	return analysis, nil
}

// UploadReceipt submits a captured receipt image.
func (c *Client) UploadReceipt(ctx context.Context, name string, r io.Reader) error {
	return c.postFile(ctx, "upload-receipt", name, r, nil)
}

// UploadDocument submits a user-selected document.
func (c *Client) UploadDocument(ctx context.Context, name string, r io.Reader) error {
	return c.postFile(ctx, "upload-document", name, r, nil)
}

type transcribeResponse struct {
	Transcript string `json:"transcript"`
}

// Transcribe uploads recorded audio and returns the transcript.
func (c *Client) Transcribe(ctx context.Context, name string, r io.Reader) (string, error) {
	var resp transcribeResponse
	if err := c.postFile(ctx, "transcribe", name, r, &resp); err != nil {
		return "", err
	}
	return resp.Transcript, nil
}

func (c *Client) postJSON(ctx context.Context, op string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", op, err)
	}
	return c.do(ctx, op, "application/json", bytes.NewReader(payload), out)
}

func (c *Client) postFile(ctx context.Context, op, name string, r io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("%s: create form file: %w", op, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("%s: read file: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("%s: close multipart body: %w", op, err)
	}
	return c.do(ctx, op, mw.FormDataContentType(), &buf, out)
}

func (c *Client) do(ctx context.Context, op, contentType string, body io.Reader, out any) (err error) {
	started := time.Now()
	defer func() { c.metrics.ObserveGateway(op, started, err) }()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &NetworkError{Op: op, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+op, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("op", op).Msg("backend unreachable")
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		srvErr := &ServerError{Status: resp.StatusCode}
		var errBody models.ErrorResponse
		if json.Unmarshal(data, &errBody) == nil {
			srvErr.Message = errBody.Error
		}
		c.log.Warn().Int("status", resp.StatusCode).Str("op", op).Msg("backend returned error status")
		return srvErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrMalformedResponse, err)
	}
	return nil
}
