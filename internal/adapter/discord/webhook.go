package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/gl0bal01/discord-watchlists/internal/adapter/clock"
	"github.com/gl0bal01/discord-watchlists/internal/domain/model"
	"github.com/gl0bal01/discord-watchlists/internal/domain/ports"
	"github.com/gl0bal01/discord-watchlists/internal/errors"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultMinInterval = time.Second
)

// Options tunes a Webhook. Zero values take the defaults.
type Options struct {
	Timeout     time.Duration
	MinInterval time.Duration
	Username    string
	Client      *http.Client
	Clock       ports.Clock
}

// Webhook is a Discord webhook notifier. Consecutive sends are spaced by at
// least MinInterval, measured on the injected clock.
type Webhook struct {
	webhookURL string
	httpClient *http.Client
	timeout    time.Duration
	username   string
	logger     ports.Logger
	clock      ports.Clock

	mu      sync.Mutex
	limiter *rate.Limiter
}

var _ ports.Notifier = (*Webhook)(nil)

// NewWebhook creates a new Discord webhook notifier.
func NewWebhook(webhookURL string, opts Options, logger ports.Logger) *Webhook {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = DefaultMinInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewSystem()
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Webhook{
		webhookURL: webhookURL,
		httpClient: client,
		timeout:    opts.Timeout,
		username:   opts.Username,
		logger:     logger,
		clock:      opts.Clock,
		limiter:    rate.NewLimiter(rate.Every(opts.MinInterval), 1),
	}
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedText struct {
	Text string `json:"text"`
}

type embedURL struct {
	URL string `json:"url"`
}

type embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
	Footer      *embedText   `json:"footer,omitempty"`
	Thumbnail   *embedURL    `json:"thumbnail,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type envelope struct {
	Username string  `json:"username,omitempty"`
	Embeds   []embed `json:"embeds"`
}

// Send posts the notification to Discord. It does not retry.
func (w *Webhook) Send(ctx context.Context, notification model.Notification) error {
	if w.webhookURL == "" {
		return errors.Dispatch(0, false, errors.New("webhook URL is empty"))
	}

	body, err := json.Marshal(w.envelope(notification))
	if err != nil {
		return errors.Dispatch(0, false, errors.Wrap(err, "marshal payload"))
	}

	if err := w.wait(ctx); err != nil {
		return errors.Dispatch(0, true, err)
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.webhookURL, bytes.NewReader(body))
	if err != nil {
		return errors.Dispatch(0, false, errors.Wrap(err, "create request"))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return errors.Dispatch(0, true, errors.Wrap(err, "perform request"))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Dispatch(resp.StatusCode, retryable(resp.StatusCode),
			errors.Newf("discord webhook returned status %d: %s", resp.StatusCode, bytes.TrimSpace(data)))
	}

	w.logger.Debug(ctx, "notification sent to discord", "title", notification.Title)
	return nil
}

// wait blocks until the minimum spacing since the previous send has elapsed.
func (w *Webhook) wait(ctx context.Context) error {
	w.mu.Lock()
	now := w.clock.Now()
	delay := w.limiter.ReserveN(now, 1).DelayFrom(now)
	w.mu.Unlock()
	return w.clock.Sleep(ctx, delay)
}

func (w *Webhook) envelope(n model.Notification) envelope {
	n = model.DiscordLimits.Apply(n)

	e := embed{
		Title:       n.Title,
		Description: n.Description,
		URL:         n.URL,
		Color:       n.Color,
	}
	for _, field := range n.Fields {
		e.Fields = append(e.Fields, embedField{Name: field.Name, Value: field.Value, Inline: field.Inline})
	}
	if n.Footer != "" {
		e.Footer = &embedText{Text: n.Footer}
	}
	if n.ThumbnailURL != "" {
		e.Thumbnail = &embedURL{URL: n.ThumbnailURL}
	}
	if !n.Timestamp.IsZero() {
		e.Timestamp = n.Timestamp.UTC().Format(time.RFC3339)
	}
	return envelope{Username: w.username, Embeds: []embed{e}}
}

// retryable reports whether a later attempt may succeed.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
