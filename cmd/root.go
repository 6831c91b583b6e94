package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"docchat/config"
	"docchat/logging"
	"docchat/tui"
)

var (
	resumeSessionID string
	backendURL      string
	sourcesDir      string
)

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "docchat is a terminal client for chatting with your PDFs",
	Long: `docchat is a terminal client for a document-grounded chat backend.
Point it at a directory of PDFs, upload one, and ask questions about it in a
conversation panel with a side-by-side page preview.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		if backendURL != "" {
			cfg.BackendURL = backendURL
		}
		if sourcesDir != "" {
			cfg.SourcesDir = sourcesDir
		}

		if err := logging.Setup(cfg.LogFile); err != nil {
			fmt.Printf("Warning: could not open log file: %v\n", err)
			// Continue anyway
		}
		defer logging.Sync()

		model, err := tui.NewModel(cfg, resumeSessionID)
		if err != nil {
			fmt.Printf("Error initializing: %v\n", err)
			os.Exit(1)
		}
		defer model.Close()

		p := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			fmt.Printf("Error running TUI: %v\n", err)
			os.Exit(1)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().StringVarP(&resumeSessionID, "session", "s", "", "Resume a specific session ID")
	rootCmd.Flags().StringVarP(&backendURL, "backend", "b", "", "Backend base URL (overrides config)")
	rootCmd.Flags().StringVarP(&sourcesDir, "sources", "d", "", "Directory scanned for PDF sources")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(sessionsCmd)
}
