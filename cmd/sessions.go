package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docchat/backend"
	"docchat/config"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored chat sessions",
	Long:  `List the chat sessions the backend has stored, resumable with the --session flag`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}

		client := backend.NewClient(cfg.BackendURL, cfg.Timeout())
		sessions, err := client.FetchHistory(context.Background())
		if err != nil {
			fmt.Printf("Error fetching sessions: %v\n", err)
			os.Exit(1)
		}

		if len(sessions) == 0 {
			fmt.Println("No chat sessions found.")
			fmt.Println("Start a new session with: docchat")
			return
		}

		fmt.Printf("Stored sessions on %s:\n\n", cfg.BackendURL)
		for _, s := range sessions {
			preview := s.Preview
			if preview == "" {
				preview = "(empty)"
			}
			fmt.Printf("  %s  %3d msgs  %s\n", s.SessionID, s.MessageCount, preview)
		}

		fmt.Printf("\nUsage:\n")
		fmt.Printf("  docchat --session ID  # Resume a session\n")
		fmt.Printf("  docchat               # Start fresh (default)\n")
	},
}
