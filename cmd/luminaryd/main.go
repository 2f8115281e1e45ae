package main

import (
	"fmt"
	"os"

	"github.com/luminary-chat/luminary/internal/cli"
	"github.com/luminary-chat/luminary/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "luminaryd",
		Short: "Luminary daemon and admin CLI",
		Long:  "Luminary daemon for running the API server and managing personas",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.PersonaCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
