// Package cli implements todoctl, the command-line client of the todo API.
// It is a full second writer next to the browser UI: every mutation it makes
// reaches other clients through the push channel.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcollina/githuman-sub002/internal/client"
)

const version = "1.0.0"

var (
	serverURL string
	authToken string
)

var rootCmd = &cobra.Command{
	Use:   "todoctl",
	Short: "Command-line client for the review todo service",
	Long:  "todoctl lists, edits and reorders review todos against a running todo service.",
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("TODO_SERVER", "http://localhost:8080"), "base URL of the todo service")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("TODO_TOKEN"), "bearer token (when the service requires auth)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(reorderCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print todoctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "todoctl version %s\n", version)
	},
}

func newClient() (*client.Client, error) {
	opts := []client.Option{}
	if authToken != "" {
		opts = append(opts, client.WithToken(authToken))
	}
	return client.New(serverURL, opts...)
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
