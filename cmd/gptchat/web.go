package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gptchat/gptchat/pkg/channels"
	"github.com/gptchat/gptchat/pkg/logger"
)

func newWebCommand(root *rootOptions) *cobra.Command {
	var (
		host string
		port int
		qr   bool
	)

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the chat widget to browsers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Web.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Web.Port = port
			}
			if cmd.Flags().Changed("qr") {
				cfg.Web.ShowQR = qr
			}

			closer, err := setupLogger(cfg.Log, false)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ch := channels.NewWebChatChannel(cfg.Web, newAnswerClient(cfg), cfg.FallbackText())
			if err := ch.Start(ctx); err != nil {
				return err
			}

			url := "http://" + ch.Addr() + "/"
			printURL(cmd.OutOrStdout(), url, cfg.Web.ShowQR)

			eg, egCtx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				<-egCtx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				logger.InfoCF("web", "Shutting down", nil)
				return ch.Stop(shutdownCtx)
			})
			return eg.Wait()
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config)")
	cmd.Flags().BoolVar(&qr, "qr", false, "print a QR code of the widget URL")
	return cmd
}

func printURL(w io.Writer, url string, qr bool) {
	fmt.Fprintf(w, "Chat widget: %s\n", url)
	if qr {
		qrterminal.GenerateHalfBlock(url, qrterminal.L, w)
	}
}
