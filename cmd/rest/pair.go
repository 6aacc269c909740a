package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wa-group-gateway/internal/bootstrap"
	"wa-group-gateway/internal/config"
	"wa-group-gateway/internal/service"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var errPairTimeout = errors.New("session not ready before timeout")

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Link this gateway to a WhatsApp account from the terminal",
	Long: `pair starts only the WhatsApp session, prints each pairing QR code in the
terminal and exits once the session is ready. The linked device is stored in
the configured session store, so a later serve starts already paired.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := config.Load()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		core, err := bootstrap.NewSessionCore(ctx, cfg)
		if err != nil {
			return err
		}
		defer core.Close()

		if core.WhatsApp.Paired() {
			color.New(color.FgYellow).Fprintln(cmd.OutOrStdout(), "Device already paired, checking the connection...")
		}

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		g, gCtx := errgroup.WithContext(ctx)
		consumer := service.NewConsumerService(core.Bus, nil, nil, cmd.OutOrStdout(), core.Logger)
		g.Go(func() error {
			return consumer.Consume(gCtx)
		})
		g.Go(func() error {
			defer cancel()
			if err := core.WhatsApp.Start(gCtx); err != nil {
				return err
			}
			defer core.WhatsApp.Stop()
			return waitReady(gCtx, core.Tracker.IsReady)
		})

		if err := g.Wait(); err != nil {
			return err
		}
		color.New(color.FgGreen, color.Bold).Fprintln(cmd.OutOrStdout(), "✅ WhatsApp conectado")
		return nil
	},
}

// waitReady polls isReady until it is true or ctx ends.
func waitReady(ctx context.Context, isReady func() bool) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		if isReady() {
			return nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return errPairTimeout
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func init() {
	pairCmd.Flags().Duration("timeout", 3*time.Minute, "Give up if the session is not ready after this long")
	rootCmd.AddCommand(pairCmd)
}
