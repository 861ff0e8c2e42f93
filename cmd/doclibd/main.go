package main

import (
	"fmt"
	"os"

	"github.com/archiva-labs/doclib/internal/cli"
	"github.com/archiva-labs/doclib/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "doclibd",
		Short: "Doclib daemon",
		Long:  "Doclib daemon for running the API server, the ingest worker, and index administration",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.RebuildIndexCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
