package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"savvybot-backend/internal/logging"
	"savvybot-backend/internal/metrics"
	"savvybot-backend/internal/models"
)

const analysisJSON = `{
	"personality_sketch": {"title": "Planner", "description": "You like structure.", "emoji": "🧭"},
	"spending_habit_profile": {"title": "Cautious", "description": "Few impulse buys.", "emoji": "💳"},
	"interests_themes": {"title": "Travel", "description": "Trips come up often.", "emoji": "✈️"},
	"savvy_insight": {"title": "Tip", "description": "Automate savings.", "emoji": "💡"}
}`

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *metrics.Metrics) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	m := metrics.New(prometheus.NewRegistry())
	return New(Options{BaseURL: srv.URL + "/", Metrics: m, Logger: logging.Nop()}), m
}

func TestChat(t *testing.T) {
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Help me create a Budget", body["message"])
		w.Write([]byte(`{"reply":"Sure!"}`))
	})

	reply, err := c.Chat(t.Context(), "Help me create a Budget")
	require.NoError(t, err)
	assert.Equal(t, "Sure!", reply)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GatewayCallsTotal.WithLabelValues("chat", "success")))
}

func TestServerError(t *testing.T) {
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"model offline"}`))
	})

	_, err := c.Chat(t.Context(), "hi")
	var srvErr *ServerError
	require.True(t, errors.As(err, &srvErr))
	assert.Equal(t, http.StatusBadGateway, srvErr.Status)
	assert.Equal(t, "model offline", srvErr.Message)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GatewayCallsTotal.WithLabelValues("chat", "error")))
}

func TestIsUnavailable(t *testing.T) {
	assert.True(t, IsUnavailable(&NetworkError{Op: "chat", Err: errors.New("refused")}))
	assert.True(t, IsUnavailable(fmt.Errorf("list: %w", &ServerError{Status: http.StatusServiceUnavailable})))
	assert.False(t, IsUnavailable(&ServerError{Status: http.StatusNotFound}))
	assert.False(t, IsUnavailable(&ServerError{Status: http.StatusBadRequest}))
	assert.False(t, IsUnavailable(ErrMalformedResponse))
	assert.False(t, IsUnavailable(nil))
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Options{BaseURL: url, Logger: logging.Nop()})
	_, err := c.Chat(t.Context(), "hi")
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, "chat", netErr.Op)
	assert.True(t, IsUnavailable(err))
}

func TestCheckinLowercasesMood(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkin", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"mood": "stressed", "note": ""}, body)
		w.Write([]byte(`{"status":"ok"}`))
	})
	require.NoError(t, c.Checkin(t.Context(), "Stressed", ""))
}

func TestAnalyzeCapsHistory(t *testing.T) {
	var got []models.Message
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ChatHistory []models.Message `json:"chat_history"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		got = body.ChatHistory
		w.Write([]byte(analysisJSON))
	})

	history := make([]models.Message, 30)
	for i := range history {
		history[i] = models.Message{ID: string(rune('a' + i)), Text: "m", Role: models.RoleUser, Timestamp: time.Now()}
	}

	analysis, err := c.Analyze(t.Context(), history)
	require.NoError(t, err)
	require.Len(t, got, MaxAnalyzeHistory)
	assert.Equal(t, history[10].ID, got[0].ID)
	assert.Equal(t, history[29].ID, got[19].ID)
	assert.Equal(t, "Planner", analysis.PersonalitySketch.Title)
}

func TestAnalyzeAcceptsStringEncodedPayload(t *testing.T) {
	encoded, err := json.Marshal(analysisJSON)
	require.NoError(t, err)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(encoded)
	})

	analysis, err := c.Analyze(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Tip", analysis.SavvyInsight.Title)
}

func TestAnalyzeMalformed(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"personality_sketch":{"title":"x","description":"y","emoji":"z"}}`))
	})

	_, err := c.Analyze(t.Context(), nil)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.ErrorIs(t, err, models.ErrMissingSection)
}

func TestUploadsAreMultipart(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)

		switch r.URL.Path {
		case "/upload-document":
			assert.Equal(t, "statement.pdf", header.Filename)
			assert.Equal(t, "pdf-bytes", string(data))
			w.Write([]byte(`{"status":"ok"}`))
		case "/transcribe":
			assert.Equal(t, "recording.webm", header.Filename)
			w.Write([]byte(`{"transcript":"how do I save"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	require.NoError(t, c.UploadDocument(t.Context(), "statement.pdf", strings.NewReader("pdf-bytes")))
	transcript, err := c.Transcribe(t.Context(), "recording.webm", strings.NewReader("audio"))
	require.NoError(t, err)
	assert.Equal(t, "how do I save", transcript)
}

func TestRateLimiterHonoursContext(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"reply":"ok"}`))
	})
	c.limiter = rate.NewLimiter(rate.Limit(0.001), 1)

	_, err := c.Chat(t.Context(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	_, err = c.Chat(ctx, "second")
	var netErr *NetworkError
	assert.True(t, errors.As(err, &netErr))
}
