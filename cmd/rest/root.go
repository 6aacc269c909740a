package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wa-group-gateway",
	Short: "HTTP gateway that posts messages to WhatsApp groups",
	Long: `wa-group-gateway keeps a linked WhatsApp session alive and exposes
/send, /qr and /health so other systems can post messages to a group by name.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
