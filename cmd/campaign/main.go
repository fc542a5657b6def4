package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	configPath string
	email      string
	password   string
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Run outreach campaigns from the command line",
	Long: `Run a single campaign in the foreground without the HTTP server.

Credentials come from --email/--password or the OUTREACH_EMAIL and
OUTREACH_PASSWORD environment variables. Every run is recorded in the
same sqlite database the server uses.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config.yaml", "path to config.yaml")
	rootCmd.PersistentFlags().StringVar(&email, "email", "", "account e-mail (or set OUTREACH_EMAIL)")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "account password (or set OUTREACH_PASSWORD)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "stop the run after this long (0 = no limit)")

	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(messagingCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(tasksCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
