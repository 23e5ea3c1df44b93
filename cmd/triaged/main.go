package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caldermed/triage/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "triaged",
		Short: "Clinical triage daemon and CLI",
		Long:  "Clinical triage daemon for serving the risk assessment API and managing the guideline index",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.IngestCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
