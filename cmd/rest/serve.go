package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wa-group-gateway/internal/bootstrap"
	"wa-group-gateway/internal/config"
	"wa-group-gateway/internal/server"
	"wa-group-gateway/internal/tracer"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway and the WhatsApp session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// 1. Load Configuration
		cfg := config.Load()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		// 2. Bootstrap Dependencies (Container)
		container, err := bootstrap.NewContainer(ctx, cfg)
		if err != nil {
			return err
		}
		defer container.Close()

		if cfg.Auth.BotSecretHash == "" && cfg.Auth.BotSecret == "CAMBIA_ESTO" {
			container.Logger.Warn("BOOTSTRAP", "BOT_SECRET is still the default value, set it before exposing /send", nil)
		}

		// 3. Tracing
		shutdownTracer := tracer.InitTracer(ctx, cfg.Tracing, container.Logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownTracer(shutdownCtx)
		}()

		// 4. Supervise background services and the server
		g, gCtx := errgroup.WithContext(ctx)

		g.Go(func() error {
			return container.ConsumerService.Consume(gCtx)
		})
		g.Go(func() error {
			container.WebSocketHub.Run(gCtx)
			return nil
		})
		g.Go(func() error {
			if err := container.WhatsApp.Start(gCtx); err != nil {
				return err
			}
			<-gCtx.Done()
			container.WhatsApp.Stop()
			return nil
		})
		g.Go(func() error {
			return server.New(cfg, container).Run(gCtx)
		})

		if err := g.Wait(); err != nil && ctx.Err() == nil {
			return err
		}
		container.Logger.Info("BOOTSTRAP", "Gateway stopped", nil)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
