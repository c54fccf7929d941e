package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	outputFmt string
	user      string
	groups    string
)

var rootCmd = &cobra.Command{
	Use:   "buildctl",
	Short: "CLI for the PC configurator server",
	Long: `buildctl talks to a PC configurator server.

It lists the part catalog and compatibility rules, checks builds without
saving them, manages saved builds and runs maintenance jobs.

Requests carry the caller identity in X-Remote-User and X-Remote-Group, the
same headers the authenticating proxy sets in production.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("PCSHOP_SERVER", "http://localhost:8080"), "Configurator server URL")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&user, "user", os.Getenv("PCSHOP_USER"), "User sent as X-Remote-User")
	rootCmd.PersistentFlags().StringVar(&groups, "groups", os.Getenv("PCSHOP_GROUPS"), "Comma-separated groups sent as X-Remote-Group")

	rootCmd.AddCommand(typesCmd)
	rootCmd.AddCommand(attributesCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(buildsCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(seedCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
