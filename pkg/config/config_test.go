package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/GPT/P1", cfg.EndpointURL())
	assert.Equal(t, "伺服器錯誤，請稍後再試", cfg.FallbackText())
	assert.Equal(t, "127.0.0.1:18800", cfg.Web.Addr())
	assert.True(t, cfg.TUI.ShowTimes)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFormats(t *testing.T) {
	files := map[string]string{
		"config.json": `{"endpoint": {"url": "https://chat.example.com/ask"}, "web": {"port": 9000, "markdown_replies": true}}`,
		"config.toml": "[endpoint]\nurl = \"https://chat.example.com/ask\"\n\n[web]\nport = 9000\nmarkdown_replies = true\n",
		"config.yaml": "endpoint:\n  url: https://chat.example.com/ask\nweb:\n  port: 9000\n  markdown_replies: true\n",
	}
	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))

			cfg, err := LoadConfig(path)

			require.NoError(t, err)
			assert.Equal(t, "https://chat.example.com/ask", cfg.EndpointURL())
			assert.Equal(t, 9000, cfg.Web.Port)
			assert.True(t, cfg.Web.MarkdownReplies)
			// Untouched sections keep their defaults.
			assert.Equal(t, "127.0.0.1", cfg.Web.Host)
			assert.Equal(t, "info", cfg.Log.Level)
		})
	}
}

func TestLoadConfigBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadConfig(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"web": {"port": 9000}}`), 0644))
	t.Setenv("GPTCHAT_WEB_PORT", "9100")
	t.Setenv("GPTCHAT_ENDPOINT_URL", "http://10.0.0.2:8080/GPT/P1")
	t.Setenv("GPTCHAT_WIDGET_FALLBACK_TEXT", "server error, please try again later")

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Web.Port)
	assert.Equal(t, "http://10.0.0.2:8080/GPT/P1", cfg.EndpointURL())
	assert.Equal(t, "server error, please try again later", cfg.FallbackText())
}

func TestConfigJSONEnvReplacesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"web": {"port": 9000}}`), 0644))
	t.Setenv("GPTCHAT_CONFIG_JSON", `{"web": {"port": 7000}, "log": {"level": "debug"}}`)

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Web.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestConfigJSONEnvInvalid(t *testing.T) {
	t.Setenv("GPTCHAT_CONFIG_JSON", `{`)

	_, err := LoadConfig("")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "GPTCHAT_CONFIG_JSON")
}

func TestSaveConfigRoundTrip(t *testing.T) {
	for _, name := range []string{"out.json", "out.toml", "out.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			cfg := DefaultConfig()
			cfg.SetEndpointURL("https://answers.example.org/GPT/P1")
			cfg.Web.ShowQR = true

			require.NoError(t, SaveConfig(path, cfg))
			loaded, err := LoadConfig(path)

			require.NoError(t, err)
			assert.Equal(t, "https://answers.example.org/GPT/P1", loaded.EndpointURL())
			assert.True(t, loaded.Web.ShowQR)
		})
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"relative endpoint": func(c *Config) { c.Endpoint.URL = "/GPT/P1" },
		"ftp endpoint":      func(c *Config) { c.Endpoint.URL = "ftp://example.com/x" },
		"port":              func(c *Config) { c.Web.Port = 70000 },
		"negative rate":     func(c *Config) { c.Web.AcceptRate = -1 },
		"log level":         func(c *Config) { c.Log.Level = "chatty" },
		"log format":        func(c *Config) { c.Log.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".gptchat/config.json"), ExpandHome("~/.gptchat/config.json"))
	assert.Equal(t, "/etc/gptchat.toml", ExpandHome("/etc/gptchat.toml"))
	assert.Equal(t, "", ExpandHome(""))
}
