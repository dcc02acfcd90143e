// inotebookctl is an operator and client tool for the iNotebook backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var baseURL string

var rootCmd = &cobra.Command{
	Use:   "inotebookctl",
	Short: "inotebookctl - key management and API client for the iNotebook backend",
	Long: `inotebookctl generates deployment keys, hashes passwords for manual
account fixes, and talks to a running server with the same encryption the
web client uses.

Usage:
  inotebookctl <command> [flags]

Run 'inotebookctl help <command>' for details on a specific command.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", envOr("INOTEBOOK_URL", "http://localhost:8080"), "backend base URL")
	rootCmd.AddCommand(keygenCmd, hashPasswordCmd, sendMessageCmd, liveUsersCmd, sealCmd, unsealCmd)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
