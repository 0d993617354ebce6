package main

import (
	"fmt"
	"os"

	"github.com/hiroki-koketsu/taskboard/internal/client"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "taskctl",
		Short:   "Command line client for the taskboard API",
		Version: Version,
	}

	rootCmd.PersistentFlags().String("server", envOr("TASKBOARD_SERVER", "http://localhost:8080"), "API base URL")
	rootCmd.PersistentFlags().String("token", os.Getenv("TASKBOARD_TOKEN"), "bearer token")

	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(editCmd())
	rootCmd.AddCommand(toggleCmd())
	rootCmd.AddCommand(rmCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func apiClient(cmd *cobra.Command) (*client.Client, error) {
	server, _ := cmd.Flags().GetString("server")
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		return nil, fmt.Errorf("a token is required: pass --token or set TASKBOARD_TOKEN")
	}
	return client.New(server, token), nil
}
