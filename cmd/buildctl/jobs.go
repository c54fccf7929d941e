package main

import (
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and trigger maintenance jobs (admin)",
}

func init() {
	var kind, state string
	jobsListCmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if kind != "" {
				q.Set("kind", kind)
			}
			if state != "" {
				q.Set("state", state)
			}
			path := apiPrefix + "/jobs"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			var resp jobList
			if err := newClient().getJSON(path, &resp); err != nil {
				return err
			}
			if structured() {
				return printOutput(resp)
			}
			rows := make([][]string, 0, len(resp.Jobs))
			for _, j := range resp.Jobs {
				rows = append(rows, []string{
					j.ID,
					j.Kind,
					j.State,
					j.RequestedBy,
					strconv.Itoa(j.AttemptCount),
					truncate(j.Message+j.LastError, 50),
				})
			}
			printTable([]string{"ID", "Kind", "State", "Requested By", "Attempts", "Message"}, rows)
			return nil
		},
	}
	jobsListCmd.Flags().StringVar(&kind, "kind", "", "Only jobs of this kind")
	jobsListCmd.Flags().StringVar(&state, "state", "", "Only jobs in this state")

	jobsRunCmd := &cobra.Command{
		Use:   "run KIND",
		Short: "Enqueue a job now, for example release-abandoned-carts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var j job
			if err := newClient().postJSON(apiPrefix+"/jobs", map[string]string{"kind": args[0]}, &j); err != nil {
				return err
			}
			if structured() {
				return printOutput(j)
			}
			cmd.Printf("job %s (%s) is %s\n", j.ID, j.Kind, j.State)
			return nil
		},
	}

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsRunCmd)
}
