package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gl0bal01/discord-watchlists/internal/adapter/clock"
	"github.com/gl0bal01/discord-watchlists/internal/adapter/logging"
	"github.com/gl0bal01/discord-watchlists/internal/adapter/metrics"
	"github.com/gl0bal01/discord-watchlists/internal/config"
	"github.com/gl0bal01/discord-watchlists/internal/domain/model"
	"github.com/gl0bal01/discord-watchlists/internal/errors"
	"github.com/gl0bal01/discord-watchlists/internal/format"
)

type stubRunner struct {
	name string
	ran  chan struct{}
	err  error
}

func (r *stubRunner) Name() string { return r.name }

func (r *stubRunner) Run(context.Context) (model.RunReport, error) {
	select {
	case r.ran <- struct{}{}:
	default:
	}
	return model.RunReport{Monitor: r.name, Delivered: 1}, r.err
}

func testConfig(monitors ...config.MonitorConfig) *config.Config {
	cfg := &config.Config{
		Ledger:   config.LedgerConfig{Driver: "file"},
		Dispatch: config.DispatchConfig{MinInterval: time.Second, Timeout: time.Second},
		HTTP:     config.HTTPConfig{Timeout: time.Second, MaxBodyBytes: 1 << 20},
		Metrics:  config.MetricsConfig{Job: "watchlists"},
		Monitors: map[string]config.MonitorConfig{},
	}
	for _, m := range monitors {
		cfg.Monitors[m.Name] = m
	}
	return cfg
}

func readyMonitor(name string) config.MonitorConfig {
	return config.MonitorConfig{
		Name:       name,
		Source:     "kev",
		URL:        "https://kevin.gtfkd.com/kev",
		WebhookURL: "https://discord.com/api/webhooks/1/abc",
		Schedule:   "0 0 1 1 *",
	}
}

func TestRunOncePushesMetricsAndCleansUp(t *testing.T) {
	var pushed []string
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pushed = append(pushed, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer gw.Close()

	cfg := testConfig(readyMonitor("cve"))
	cfg.Metrics.PushGateway = gw.URL

	cleaned := false
	build := func(name string) (Runner, func(), error) {
		return &stubRunner{name: name, ran: make(chan struct{}, 1)}, func() { cleaned = true }, nil
	}

	a := New(cfg, build, metrics.New(), logging.Nop())
	report, err := a.RunOnce(context.Background(), "cve")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Delivered)
	assert.True(t, cleaned)
	assert.Equal(t, []string{"PUT /metrics/job/watchlists/monitor/cve"}, pushed)
}

func TestRunOnceBuildError(t *testing.T) {
	cfg := testConfig()
	build := func(name string) (Runner, func(), error) {
		return nil, nil, errors.Config("monitors."+name, errors.New("unknown"))
	}

	report, err := New(cfg, build, nil, logging.Nop()).RunOnce(context.Background(), "nope")
	assert.Equal(t, errors.ExitConfig, errors.ExitCode(err))
	assert.Equal(t, "nope", report.Monitor)
}

func TestMonitorsReportsReadiness(t *testing.T) {
	missing := readyMonitor("fbi")
	missing.Source = "fbi"
	missing.WebhookURL = ""
	disabled := readyMonitor("europol")
	disabled.Disabled = true

	a := New(testConfig(readyMonitor("cve"), missing, disabled), nil, nil, logging.Nop())
	statuses := a.Monitors()
	require.Len(t, statuses, 3)

	assert.Equal(t, "cve", statuses[0].Name)
	assert.NoError(t, statuses[0].Err)
	assert.True(t, statuses[1].Disabled)
	assert.Equal(t, "fbi", statuses[2].Name)
	assert.Error(t, statuses[2].Err)
}

func TestServeRunsReadyMonitorsUntilCancelled(t *testing.T) {
	notReady := readyMonitor("fbi")
	notReady.WebhookURL = ""
	cfg := testConfig(readyMonitor("cve"), notReady)

	var mu sync.Mutex
	var built []string
	ran := make(chan struct{}, 1)
	build := func(name string) (Runner, func(), error) {
		mu.Lock()
		built = append(built, name)
		mu.Unlock()
		return &stubRunner{name: name, ran: ran}, func() {}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(cfg, build, metrics.New(), logging.Nop()).Serve(ctx) }()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not run at startup")
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"cve"}, built)
}

func TestServeWithoutReadyMonitors(t *testing.T) {
	m := readyMonitor("cve")
	m.Schedule = ""
	err := New(testConfig(m), nil, nil, logging.Nop()).Serve(context.Background())
	assert.Equal(t, errors.ExitConfig, errors.ExitCode(err))
}

func TestMonitorFactoryEndToEnd(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"vulnerabilities":[
			{"cveID":"CVE-2025-0001","vulnerabilityName":"First","dateAdded":"2025-01-01"},
			{"cveID":"CVE-2025-0002","vulnerabilityName":"Second","dateAdded":"2025-01-02"}
		]}`))
	}))
	defer feed.Close()

	var mu sync.Mutex
	var titles []string
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Embeds []struct {
				Title string `json:"title"`
			} `json:"embeds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Embeds) != 1 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		titles = append(titles, body.Embeds[0].Title)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	m := config.MonitorConfig{
		Name:       "cve",
		Source:     "kev",
		URL:        feed.URL,
		WebhookURL: hook.URL,
		LedgerPath: filepath.Join(t.TempDir(), "cve.log"),
	}
	cfg := testConfig(m)

	formatter, err := format.NewDefault()
	require.NoError(t, err)
	recorder := metrics.New()
	clk := clock.NewFake(time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC))
	a := New(cfg, NewMonitorFactory(cfg, formatter, recorder, clk, logging.Nop(), Options{}), recorder, logging.Nop())

	report, err := a.RunOnce(context.Background(), "cve")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Delivered)
	assert.Equal(t, []string{"First", "Second"}, titles)

	report, err = a.RunOnce(context.Background(), "cve")
	require.NoError(t, err)
	assert.Zero(t, report.Unseen)
	assert.Len(t, titles, 2)
}

func TestMonitorFactoryDryRun(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"vulnerabilities":[{"cveID":"CVE-2025-0001"}]}`))
	}))
	defer feed.Close()
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("dry run must not post")
	}))
	defer hook.Close()

	cfg := testConfig(config.MonitorConfig{
		Name:       "cve",
		Source:     "kev",
		URL:        feed.URL,
		WebhookURL: hook.URL,
		LedgerPath: filepath.Join(t.TempDir(), "cve.log"),
	})
	formatter, err := format.NewDefault()
	require.NoError(t, err)

	build := NewMonitorFactory(cfg, formatter, nil, clock.NewFake(time.Now()), logging.Nop(), Options{DryRun: true})
	runner, cleanup, err := build("cve")
	require.NoError(t, err)
	defer cleanup()

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Unseen)
	assert.Zero(t, report.Delivered)
}
