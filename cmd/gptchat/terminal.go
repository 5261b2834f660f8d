package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gptchat/gptchat/pkg/repl"
	"github.com/gptchat/gptchat/pkg/tui"
)

func newTUICommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Chat in a full-screen terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			closer, err := setupLogger(cfg.Log, true)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()

			ui := tui.New(newAnswerClient(cfg), tui.Options{
				FallbackText: cfg.FallbackText(),
				ShowTimes:    cfg.TUI.ShowTimes,
			})
			return ui.Run(ctx)
		},
	}
}

func newREPLCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Chat line by line; end a line with \\ to continue it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			closer, err := setupLogger(cfg.Log, false)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			interactive := term.IsTerminal(int(os.Stdin.Fd()))
			r, err := repl.New(newAnswerClient(cfg), repl.Options{
				FallbackText: cfg.FallbackText(),
				Interactive:  interactive,
				In:           cmd.InOrStdin(),
				Out:          cmd.OutOrStdout(),
				Spinner:      term.IsTerminal(int(os.Stdout.Fd())),
				HistoryFile:  historyFile(interactive),
			})
			if err != nil {
				return err
			}
			return r.Run(ctx)
		},
	}
}

func historyFile(interactive bool) string {
	if !interactive {
		return ""
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".gptchat")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ""
	}
	return filepath.Join(dir, "history")
}
