// Command gptchat is a minimal chat client for a remote answering endpoint,
// with browser, full-screen terminal and line-oriented front ends.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gptchat/gptchat/pkg/answer"
	"github.com/gptchat/gptchat/pkg/config"
	"github.com/gptchat/gptchat/pkg/logger"
)

var version = "dev"

type rootOptions struct {
	configPath string
	endpoint   string
	logLevel   string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "gptchat",
		Short:         "Chat with a remote answering endpoint",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "config file (.json, .toml or .yaml)")
	root.PersistentFlags().StringVar(&opts.endpoint, "endpoint", "", "answering endpoint URL (overrides config)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	root.AddCommand(
		newWebCommand(opts),
		newTUICommand(opts),
		newREPLCommand(opts),
		newAskCommand(opts),
		newConfigCommand(opts),
	)
	return root
}

// load reads the config and applies the command line overrides on top.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.endpoint != "" {
		cfg.SetEndpointURL(o.endpoint)
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setupLogger applies the log section. When the front end owns the terminal
// and no log file is configured, logging is switched off. The returned
// closer releases the log file, if any.
func setupLogger(cfg config.LogConfig, ownsTerminal bool) (io.Closer, error) {
	if err := logger.SetLevel(cfg.Level); err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}

	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	switch {
	case cfg.File != "":
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		out, closer = f, f
	case ownsTerminal:
		logger.Disable()
		return closer, nil
	}

	if cfg.Format == "json" {
		logger.SetOutput(out)
	} else {
		logger.UseConsole(out)
	}
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newAnswerClient(cfg *config.Config) *answer.Client {
	var opts []answer.Option
	if cfg.Endpoint.UserAgent != "" {
		opts = append(opts, answer.WithUserAgent(cfg.Endpoint.UserAgent))
	}
	return answer.NewClient(cfg.EndpointURL(), opts...)
}
