package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Load and validate configuration without starting anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			s, err := loadSettings(nil, path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config ok\n")
			fmt.Fprintf(out, "  base url:     %s%s\n", s.Auth.App.BaseURL, s.Auth.App.BasePath)
			fmt.Fprintf(out, "  google:       %t\n", s.Auth.Google.Enabled())
			fmt.Fprintf(out, "  redis:        %s/%d\n", s.Env.RedisAddr, s.Env.RedisDB)
			fmt.Fprintf(out, "  database:     %s\n", s.Env.DatabasePath)
			fmt.Fprintf(out, "  smtp:         %t\n", s.Env.SMTP.Host != "")
			fmt.Fprintf(out, "  listen:       %s\n", s.Env.HTTPAddr)
			return nil
		},
	})
	return cmd
}
