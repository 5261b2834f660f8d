package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gptchat/gptchat/pkg/widget"
)

var (
	errFallbackReply = errors.New("the answering endpoint did not reply")
	errEmptyReply    = errors.New("the answering endpoint sent an empty reply")
)

// printRenderer prints bot messages only; the question is on the command line.
type printRenderer struct {
	cmd *cobra.Command
}

func (r printRenderer) AppendMessage(m widget.Message) {
	if m.Origin == widget.Bot {
		fmt.Fprintln(r.cmd.OutOrStdout(), m.Text)
	}
}

func (printRenderer) SetSendAffordance(widget.Affordance) {}

func newAskCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask one question and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			closer, err := setupLogger(cfg.Log, false)
			if err != nil {
				return err
			}
			defer closer.Close()

			input := widget.NewTextInput(strings.Join(args, " "))
			w := widget.New(newAnswerClient(cfg), printRenderer{cmd: cmd}, input,
				widget.WithFallbackText(cfg.FallbackText()),
			)
			w.HandleSend(cmd.Context())

			last, ok := w.LastReply()
			switch {
			case !ok:
				return errEmptyReply
			case last.Text == w.FallbackText():
				return errFallbackReply
			}
			return nil
		},
	}
}
