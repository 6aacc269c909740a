package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wa-group-gateway/internal/config"
	"wa-group-gateway/pkg/events"
	pktNats "wa-group-gateway/pkg/nats"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Tail gateway events from NATS",
	Long:  `events prints session lifecycle and dispatch outcome events as they are published to the GATEWAY stream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		durable, _ := cmd.Flags().GetString("durable")

		cfg := config.Load()
		if cfg.App.NatsURL == "" {
			return fmt.Errorf("NATS_URL is not set")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			return err
		}
		defer sub.Close()

		out := cmd.OutOrStdout()
		label := color.New(color.FgCyan, color.Bold)
		err = sub.Subscribe(ctx, subject, durable, func(ctx context.Context, event events.Event) error {
			data, err := json.Marshal(event.Payload())
			if err != nil {
				return err
			}
			label.Fprintf(out, "%s %s ", event.Timestamp().Format("15:04:05"), event.EventType())
			fmt.Fprintln(out, string(data))
			return nil
		})
		if err != nil {
			return err
		}

		<-ctx.Done()
		return nil
	},
}

func init() {
	eventsCmd.Flags().String("subject", pktNats.SubjectPrefix+".>", "Subject filter")
	eventsCmd.Flags().String("durable", "", "Durable consumer name (empty for an ephemeral consumer)")
	rootCmd.AddCommand(eventsCmd)
}
