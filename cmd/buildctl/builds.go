package main

import (
	"strconv"

	"github.com/spf13/cobra"
)

var buildsCmd = &cobra.Command{
	Use:   "builds",
	Short: "Manage saved builds of the current user",
}

func init() {
	buildsCmd.AddCommand(buildsListCmd)
	buildsCmd.AddCommand(buildsGetCmd)
	buildsCmd.AddCommand(buildsDeleteCmd)
	buildsCmd.AddCommand(newBuildsSubmitCmd())
}

var buildsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved builds",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp buildList
		if err := newClient().getJSON(apiPrefix+"/builds", &resp); err != nil {
			return err
		}
		if structured() {
			return printOutput(resp)
		}
		rows := make([][]string, 0, len(resp.Builds))
		for _, b := range resp.Builds {
			rows = append(rows, []string{
				b.ID,
				truncate(b.Name, 30),
				strconv.Itoa(len(b.Components)),
				b.TotalPrice,
				b.CreatedAt,
			})
		}
		printTable([]string{"ID", "Name", "Components", "Total", "Created"}, rows)
		return nil
	},
}

var buildsGetCmd = &cobra.Command{
	Use:   "get BUILD_ID",
	Short: "Show a build and its compatibility report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var res buildResult
		if err := newClient().getJSON(apiPrefix+"/builds/"+args[0], &res); err != nil {
			return err
		}
		return printResult(res)
	},
}

var buildsDeleteCmd = &cobra.Command{
	Use:   "delete BUILD_ID",
	Short: "Delete a build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().delete(apiPrefix + "/builds/" + args[0]); err != nil {
			return err
		}
		cmd.Printf("build %s deleted\n", args[0])
		return nil
	},
}

func newBuildsSubmitCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "submit -f FILE",
		Short: "Save a build from a JSON or YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readBuildFile(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			var res buildResult
			if err := newClient().postJSON(apiPrefix+"/builds", req, &res); err != nil {
				return err
			}
			return printResult(res)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Build file (JSON or YAML), - for stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
