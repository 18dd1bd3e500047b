// Command authgate runs the authentication gateway as a standalone HTTP service.
//
// Configuration comes from the environment (AUTH_*, GOOGLE_*, SMTP_*), optionally
// overlaid by a YAML file passed with --config.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "authgate: %s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "authgate",
		Short:         "Session authentication gateway",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "YAML file overlaid on the environment")

	root.AddCommand(
		serveCmd(),
		configCmd(),
		loadtestCmd(),
	)
	return root
}
