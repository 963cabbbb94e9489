package main

import (
	"fmt"
	"os"
	"time"

	"github.com/ieltsdesk/backend/client"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:5000"

func main() {
	// a missing .env is fine, flags and the environment still apply
	_ = godotenv.Load()

	var server string

	rootCmd := &cobra.Command{
		Use:          "essaycli",
		Short:        "Write and review IELTS writing practice essays",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&server, "server", envOr("IELTS_SERVER", defaultServer), "API base URL")

	newClient := func() *client.Client {
		return client.New(server, nil)
	}

	rootCmd.AddCommand(newWriteCmd(newClient))
	rootCmd.AddCommand(newReviewCmd(newClient))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newWriteCmd(newClient func() *client.Client) *cobra.Command {
	var name string
	var taskType string

	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write an essay against the clock and submit it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWriter(newClient(), name, taskType, time.Now)
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "student name")
	cmd.Flags().StringVarP(&taskType, "task", "t", "Task 2", `task type, "Task 1" or "Task 2"`)
	return cmd
}

func envOr(key string, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
