package main

import (
	"fmt"
	"os"

	"github.com/archiva-labs/doclib/internal/cli"
	"github.com/archiva-labs/doclib/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "doclib",
		Short: "Doclib CLI - Ask questions against your document library",
		Long: `Doclib CLI provides commands to upload documents and ask questions.

Environment variables:
  DOCLIB_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.AddCmd())
	rootCmd.AddCommand(client.DocsCmd())
	rootCmd.AddCommand(client.HistoryCmd())
	rootCmd.AddCommand(client.AnalyticsCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
