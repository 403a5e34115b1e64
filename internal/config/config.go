package config

import (
	"net/url"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/gl0bal01/discord-watchlists/internal/errors"
)

// EnvPrefix prefixes every environment override, e.g. WATCHLISTS_MONITORS_CVE_WEBHOOK_URL.
const EnvPrefix = "WATCHLISTS"

// Config contains runtime configuration values.
type Config struct {
	DataDir  string                   `mapstructure:"data_dir"`
	Log      LogConfig                `mapstructure:"log"`
	Ledger   LedgerConfig             `mapstructure:"ledger"`
	Dispatch DispatchConfig           `mapstructure:"dispatch"`
	HTTP     HTTPConfig               `mapstructure:"http"`
	Metrics  MetricsConfig            `mapstructure:"metrics"`
	Monitors map[string]MonitorConfig `mapstructure:"monitors"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type LedgerConfig struct {
	Driver      string        `mapstructure:"driver"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
}

type DispatchConfig struct {
	MinInterval time.Duration `mapstructure:"min_interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Username    string        `mapstructure:"username"`
}

type HTTPConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

type MetricsConfig struct {
	// PushGateway receives metrics after every batch run when set.
	PushGateway string `mapstructure:"push_gateway"`
	Job         string `mapstructure:"job"`
	// Listen is the address of /metrics and /healthz in serve mode. Empty disables it.
	Listen string `mapstructure:"listen"`
}

// MonitorConfig describes one watchlist monitor.
type MonitorConfig struct {
	Name       string            `mapstructure:"-"`
	Source     string            `mapstructure:"source"`
	URL        string            `mapstructure:"url"`
	Headers    map[string]string `mapstructure:"headers"`
	WebhookURL string            `mapstructure:"webhook_url"`
	LedgerPath string            `mapstructure:"ledger_path"`
	CacheDir   string            `mapstructure:"cache_dir"`
	Schedule   string            `mapstructure:"schedule"`
	Disabled   bool              `mapstructure:"disabled"`
}

const (
	defaultDataDir     = "data"
	defaultLogLevel    = "info"
	defaultLogFormat   = "json"
	defaultDriver      = "file"
	defaultMinInterval = time.Second
	defaultSendTimeout = 10 * time.Second
	defaultTimeout     = 30 * time.Second
	defaultMaxBody     = 64 << 20
	defaultJob         = "watchlists"
	browserUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:68.0) Gecko/20100101 Firefox/68.0"
)

// sourceKinds mirrors the kinds the feeds package can build.
var sourceKinds = []string{"kev", "fbi", "europol", "ransomware"}

// builtin are the monitors known without a config file. Only webhook_url must be supplied.
var builtin = map[string]MonitorConfig{
	"cve": {
		Source:   "kev",
		URL:      "https://kevin.gtfkd.com/kev",
		Schedule: "0 * * * *",
	},
	"fbi": {
		Source: "fbi",
		URL:    "https://api.fbi.gov/@wanted?pageSize=15&page=1&sort_order=desc&sort_on=publication",
		Headers: map[string]string{
			"User-Agent":      browserUserAgent,
			"Accept":          "application/json",
			"Accept-Language": "en-US,en;q=0.5",
		},
		Schedule: "15 */2 * * *",
	},
	"europol": {
		Source:   "europol",
		URL:      "https://data.opensanctions.org/datasets/{date}/eu_europol_wanted/entities.ftm.json",
		Schedule: "30 7 * * *",
	},
	"ransomware": {
		Source:   "ransomware",
		URL:      "https://api.ransomware.live/recentvictims",
		Schedule: "*/30 * * * *",
	},
}

// Load builds a Config from an optional YAML file, environment overrides and defaults.
// An empty path searches for watchlists.yaml in the working directory and /etc/watchlists.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Config("config_file", err)
		}
	} else {
		v.SetConfigName("watchlists")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/watchlists")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Config("config_file", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Config("config_file", errors.Wrap(err, "decode"))
	}
	cfg.normalize()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", defaultDataDir)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.format", defaultLogFormat)
	v.SetDefault("ledger.driver", defaultDriver)
	v.SetDefault("ledger.busy_timeout", 5*time.Second)
	v.SetDefault("dispatch.min_interval", defaultMinInterval)
	v.SetDefault("dispatch.timeout", defaultSendTimeout)
	v.SetDefault("dispatch.username", "")
	v.SetDefault("http.timeout", defaultTimeout)
	v.SetDefault("http.max_body_bytes", defaultMaxBody)
	v.SetDefault("metrics.push_gateway", "")
	v.SetDefault("metrics.job", defaultJob)
	v.SetDefault("metrics.listen", "")

	// Every key is registered so that environment overrides reach it.
	for name, m := range builtin {
		prefix := "monitors." + name + "."
		v.SetDefault(prefix+"source", m.Source)
		v.SetDefault(prefix+"url", m.URL)
		v.SetDefault(prefix+"headers", m.Headers)
		v.SetDefault(prefix+"webhook_url", "")
		v.SetDefault(prefix+"ledger_path", "")
		v.SetDefault(prefix+"cache_dir", "")
		v.SetDefault(prefix+"schedule", m.Schedule)
		v.SetDefault(prefix+"disabled", false)
	}
}

func (c *Config) normalize() {
	c.Ledger.Driver = strings.ToLower(strings.TrimSpace(c.Ledger.Driver))
	if c.Ledger.Driver == "" {
		c.Ledger.Driver = defaultDriver
	}
	if c.Dispatch.MinInterval <= 0 {
		c.Dispatch.MinInterval = defaultMinInterval
	}
	if c.Dispatch.Timeout <= 0 {
		c.Dispatch.Timeout = defaultSendTimeout
	}
	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = defaultTimeout
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = defaultMaxBody
	}

	for name, m := range c.Monitors {
		m.Name = name
		m.Source = strings.ToLower(strings.TrimSpace(m.Source))
		m.WebhookURL = strings.TrimSpace(m.WebhookURL)
		if m.LedgerPath == "" {
			m.LedgerPath = filepath.Join(c.DataDir, name+ledgerExt(c.Ledger.Driver))
		}
		if m.CacheDir == "" {
			m.CacheDir = filepath.Join(c.DataDir, "cache")
		}
		c.Monitors[name] = m
	}
}

func ledgerExt(driver string) string {
	if driver == "sqlite" || driver == "sqlite3" {
		return ".db"
	}
	return ".log"
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return errors.Config("log.format", errors.Newf("unsupported format %q", c.Log.Format))
	}
	switch c.Ledger.Driver {
	case "file", "sqlite", "sqlite3":
	case "memory":
		return errors.Config("ledger.driver", errors.WithHint(
			errors.New("the memory ledger forgets every delivery when the process exits"),
			"use file or sqlite; --dry-run previews without touching the ledger"))
	default:
		return errors.Config("ledger.driver", errors.Newf("unknown driver %q", c.Ledger.Driver))
	}
	if c.Metrics.PushGateway != "" {
		if err := checkURL(c.Metrics.PushGateway); err != nil {
			return errors.Config("metrics.push_gateway", err)
		}
	}
	return nil
}

// Names lists configured monitors in lexical order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Monitors))
	for name := range c.Monitors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Monitor returns the named monitor after checking it is runnable.
func (c *Config) Monitor(name string) (MonitorConfig, error) {
	m, ok := c.Monitors[name]
	if !ok {
		return MonitorConfig{}, errors.Config("monitors."+name, errors.Newf("unknown monitor, configured: %s", strings.Join(c.Names(), ", ")))
	}
	if err := m.Validate(); err != nil {
		return MonitorConfig{}, err
	}
	return m, nil
}

// Validate reports the first missing or invalid key of m.
func (m MonitorConfig) Validate() error {
	key := func(k string) string { return "monitors." + m.Name + "." + k }

	if m.Source == "" {
		return errors.Config(key("source"), errors.New("source kind is required"))
	}
	if !slices.Contains(sourceKinds, m.Source) {
		return errors.Config(key("source"), errors.Newf("unknown source kind %q, want one of %s", m.Source, strings.Join(sourceKinds, ", ")))
	}
	if err := checkURL(m.URL); err != nil {
		return errors.Config(key("url"), err)
	}
	if m.WebhookURL == "" {
		return errors.Config(key("webhook_url"), errors.WithHintf(errors.New("webhook url is required"),
			"set %s_MONITORS_%s_WEBHOOK_URL or monitors.%s.webhook_url", EnvPrefix, strings.ToUpper(m.Name), m.Name))
	}
	if err := checkURL(m.WebhookURL); err != nil {
		return errors.Config(key("webhook_url"), err)
	}
	if m.Schedule != "" {
		if _, err := cron.ParseStandard(m.Schedule); err != nil {
			return errors.Config(key("schedule"), err)
		}
	}
	return nil
}

func checkURL(raw string) error {
	if raw == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return errors.Newf("url %q must be absolute http(s)", raw)
	}
	return nil
}
