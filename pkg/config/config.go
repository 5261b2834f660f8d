package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/gptchat/gptchat/pkg/logger"
)

const (
	// DefaultPath is where commands look for a config file when none is given.
	DefaultPath = "~/.gptchat/config.json"

	defaultEndpoint = "http://localhost:8080/GPT/P1"
	defaultFallback = "伺服器錯誤，請稍後再試"
)

type Config struct {
	Endpoint EndpointConfig `json:"endpoint" toml:"endpoint" yaml:"endpoint"`
	Widget   WidgetConfig   `json:"widget" toml:"widget" yaml:"widget"`
	Web      WebConfig      `json:"web" toml:"web" yaml:"web"`
	TUI      TUIConfig      `json:"tui" toml:"tui" yaml:"tui"`
	Log      LogConfig      `json:"log" toml:"log" yaml:"log"`
	mu       sync.RWMutex
}

type EndpointConfig struct {
	URL       string `json:"url" toml:"url" yaml:"url" env:"GPTCHAT_ENDPOINT_URL"`
	UserAgent string `json:"user_agent,omitempty" toml:"user_agent" yaml:"user_agent,omitempty" env:"GPTCHAT_ENDPOINT_USER_AGENT"`
}

type WidgetConfig struct {
	FallbackText string `json:"fallback_text" toml:"fallback_text" yaml:"fallback_text" env:"GPTCHAT_WIDGET_FALLBACK_TEXT"`
}

type WebConfig struct {
	Host            string  `json:"host" toml:"host" yaml:"host" env:"GPTCHAT_WEB_HOST"`
	Port            int     `json:"port" toml:"port" yaml:"port" env:"GPTCHAT_WEB_PORT"`
	MarkdownReplies bool    `json:"markdown_replies" toml:"markdown_replies" yaml:"markdown_replies" env:"GPTCHAT_WEB_MARKDOWN_REPLIES"`
	AcceptRate      float64 `json:"accept_rate" toml:"accept_rate" yaml:"accept_rate" env:"GPTCHAT_WEB_ACCEPT_RATE"`
	AcceptBurst     int     `json:"accept_burst" toml:"accept_burst" yaml:"accept_burst" env:"GPTCHAT_WEB_ACCEPT_BURST"`
	ShowQR          bool    `json:"show_qr" toml:"show_qr" yaml:"show_qr" env:"GPTCHAT_WEB_SHOW_QR"`
}

// Addr is the listen address of the web front end.
func (c WebConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type TUIConfig struct {
	ShowTimes bool `json:"show_times" toml:"show_times" yaml:"show_times" env:"GPTCHAT_TUI_SHOW_TIMES"`
}

type LogConfig struct {
	Level  string `json:"level" toml:"level" yaml:"level" env:"GPTCHAT_LOG_LEVEL"`
	Format string `json:"format" toml:"format" yaml:"format" env:"GPTCHAT_LOG_FORMAT"`
	// File receives log lines in the tui, which owns the terminal.
	File string `json:"file,omitempty" toml:"file" yaml:"file,omitempty" env:"GPTCHAT_LOG_FILE"`
}

func DefaultConfig() *Config {
	return &Config{
		Endpoint: EndpointConfig{
			URL: defaultEndpoint,
		},
		Widget: WidgetConfig{
			FallbackText: defaultFallback,
		},
		Web: WebConfig{
			Host:            "127.0.0.1",
			Port:            18800,
			MarkdownReplies: false,
			AcceptRate:      5,
			AcceptBurst:     10,
			ShowQR:          false,
		},
		TUI: TUIConfig{
			ShowTimes: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig reads path on top of the defaults and then applies GPTCHAT_*
// environment overrides. A missing file is not an error. GPTCHAT_CONFIG_JSON,
// when set, is used instead of the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Support full config from env var (for containers)
	if cfgJSON := os.Getenv("GPTCHAT_CONFIG_JSON"); cfgJSON != "" {
		if err := json.Unmarshal([]byte(cfgJSON), cfg); err != nil {
			return nil, fmt.Errorf("parsing GPTCHAT_CONFIG_JSON: %w", err)
		}
		if err := env.Parse(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	path = ExpandHome(path)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.DebugCF("config", "No config file, using defaults", map[string]interface{}{"path": path})
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := decode(path, data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch formatOf(path) {
	case "toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	case "yaml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return "toml"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// Marshal encodes cfg in the format implied by path's extension.
func Marshal(path string, cfg *Config) ([]byte, error) {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	switch formatOf(path) {
	case "toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case "yaml":
		return yaml.Marshal(cfg)
	default:
		return json.MarshalIndent(cfg, "", "  ")
	}
}

func SaveConfig(path string, cfg *Config) error {
	path = ExpandHome(path)
	data, err := Marshal(path, cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	u, err := url.Parse(c.Endpoint.URL)
	if err != nil {
		return fmt.Errorf("endpoint.url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("endpoint.url: %q is not an absolute http(s) URL", c.Endpoint.URL)
	}
	if c.Web.Port < 0 || c.Web.Port > 65535 {
		return fmt.Errorf("web.port: %d out of range", c.Web.Port)
	}
	if c.Web.AcceptRate < 0 || c.Web.AcceptBurst < 0 {
		return fmt.Errorf("web.accept_rate and web.accept_burst must not be negative")
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}

// EndpointURL is the answering endpoint in effect.
func (c *Config) EndpointURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Endpoint.URL == "" {
		return defaultEndpoint
	}
	return c.Endpoint.URL
}

// SetEndpointURL overrides the endpoint, e.g. from a command line flag.
func (c *Config) SetEndpointURL(u string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Endpoint.URL = u
}

// FallbackText is the bot reply shown when a request fails.
func (c *Config) FallbackText() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if strings.TrimSpace(c.Widget.FallbackText) == "" {
		return defaultFallback
	}
	return c.Widget.FallbackText
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
