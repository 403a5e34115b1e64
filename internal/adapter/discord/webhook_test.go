package discord

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gl0bal01/discord-watchlists/internal/adapter/clock"
	"github.com/gl0bal01/discord-watchlists/internal/adapter/logging"
	"github.com/gl0bal01/discord-watchlists/internal/domain/model"
	"github.com/gl0bal01/discord-watchlists/internal/errors"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func sample() model.Notification {
	return model.Notification{
		Title:       "Example RCE",
		Description: "Remote code execution",
		URL:         "https://nvd.nist.gov/vuln/detail/CVE-2024-0001",
		Fields: []model.NotificationField{
			{Name: "CVE ID", Value: "CVE-2024-0001", Inline: true},
			{Name: "Notes", Value: strings.Repeat("n", 1500)},
		},
		Severity:     model.SeverityHigh,
		Color:        0x00FF00,
		ThumbnailURL: "https://img.example/t.png",
		Footer:       "Vulnerability Notification",
		Timestamp:    time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestSendEnvelope(t *testing.T) {
	var got map[string]any
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, Options{Clock: clock.NewFake(t0)}, logging.Nop())
	require.NoError(t, w.Send(context.Background(), sample()))

	assert.Equal(t, "application/json", contentType)
	embeds := got["embeds"].([]any)
	require.Len(t, embeds, 1)
	e := embeds[0].(map[string]any)
	assert.Equal(t, "Example RCE", e["title"])
	assert.Equal(t, float64(0x00FF00), e["color"])
	assert.Equal(t, "2024-05-01T00:00:00Z", e["timestamp"])
	assert.Equal(t, "Vulnerability Notification", e["footer"].(map[string]any)["text"])
	assert.Equal(t, "https://img.example/t.png", e["thumbnail"].(map[string]any)["url"])

	fields := e["fields"].([]any)
	require.Len(t, fields, 2)
	first := fields[0].(map[string]any)
	assert.Equal(t, "CVE ID", first["name"])
	assert.Equal(t, true, first["inline"])
	notes := fields[1].(map[string]any)["value"].(string)
	assert.Len(t, notes, 1024)
	assert.True(t, strings.HasSuffix(notes, "..."))
}

func TestSendStatusHandling(t *testing.T) {
	tests := []struct {
		status    int
		ok        bool
		retryable bool
	}{
		{http.StatusOK, true, false},
		{http.StatusNoContent, true, false},
		{http.StatusCreated, false, false},
		{http.StatusBadRequest, false, false},
		{http.StatusNotFound, false, false},
		{http.StatusTooManyRequests, false, true},
		{http.StatusInternalServerError, false, true},
		{http.StatusBadGateway, false, true},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := NewWebhook(srv.URL, Options{Clock: clock.NewFake(t0)}, logging.Nop()).Send(context.Background(), sample())
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var de *errors.DispatchError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.status, de.Status)
			assert.Equal(t, tt.retryable, de.Retryable)
		})
	}
}

func TestSendTransportFailureIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewWebhook(url, Options{Clock: clock.NewFake(t0)}, logging.Nop()).Send(context.Background(), sample())
	var de *errors.DispatchError
	require.True(t, errors.As(err, &de))
	assert.Zero(t, de.Status)
	assert.True(t, de.Retryable)
}

func TestSendTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	w := NewWebhook(srv.URL, Options{Timeout: 50 * time.Millisecond, Clock: clock.NewFake(t0)}, logging.Nop())
	err := w.Send(context.Background(), sample())
	var de *errors.DispatchError
	require.True(t, errors.As(err, &de))
	assert.True(t, de.Retryable)
}

func TestSendEmptyURL(t *testing.T) {
	err := NewWebhook("", Options{}, logging.Nop()).Send(context.Background(), sample())
	var de *errors.DispatchError
	require.True(t, errors.As(err, &de))
	assert.False(t, de.Retryable)
}

func TestMinimumSpacing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	clk := clock.NewFake(t0)
	w := NewWebhook(srv.URL, Options{Clock: clk}, logging.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, w.Send(ctx, sample()))
	}
	assert.Equal(t, []time.Duration{time.Second, time.Second}, clk.Sleeps())
	assert.Equal(t, t0.Add(2*time.Second), clk.Now())

	// Enough time has passed: no wait.
	clk.Advance(5 * time.Second)
	require.NoError(t, w.Send(ctx, sample()))
	assert.Len(t, clk.Sleeps(), 2)
}

func TestSpacingAppliesToFailedSends(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	clk := clock.NewFake(t0)
	w := NewWebhook(srv.URL, Options{Clock: clk, MinInterval: 2 * time.Second}, logging.Nop())
	assert.Error(t, w.Send(context.Background(), sample()))
	assert.Error(t, w.Send(context.Background(), sample()))
	assert.Equal(t, []time.Duration{2 * time.Second}, clk.Sleeps())
}
