package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health and readiness",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	client := newClient()

	var healthResp map[string]any
	if err := client.getJSON("/healthz", &healthResp); err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}

	// /readyz answers 503 with a body while the server is starting.
	var readyResp map[string]any
	if err := client.getJSON("/readyz", &readyResp); err != nil {
		var apiErr *apiError
		if !errors.As(err, &apiErr) {
			return fmt.Errorf("server unreachable: %w", err)
		}
		readyResp = map[string]any{"status": "not_ready", "error": apiErr.Message}
	}

	if structured() {
		return printOutput(map[string]any{
			"health":    healthResp,
			"readiness": readyResp,
		})
	}

	status, _ := healthResp["status"].(string)
	uptime, _ := healthResp["uptime"].(string)
	ready, _ := readyResp["status"].(string)

	rows := [][]string{
		{"Liveness", status},
		{"Uptime", uptime},
		{"Readiness", ready},
	}
	if components, ok := readyResp["components"].(map[string]any); ok {
		names := make([]string, 0, len(components))
		for name := range components {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			c, _ := components[name].(map[string]any)
			s, _ := c["status"].(string)
			rows = append(rows, []string{"  " + name, s})
		}
	}

	printTable([]string{"Check", "Status"}, rows)
	return nil
}
