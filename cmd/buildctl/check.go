package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newCheckCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "check -f FILE",
		Short: "Check a build for compatibility without saving it",
		Long: `Check sends a build file to the server and prints the compatibility report.
The file is JSON or YAML:

  name: gaming rig
  components:
    - component_type_id: 1
      product_id: 12

Use -f - to read from stdin. The command exits non-zero when the build is
incompatible.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readBuildFile(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			var res buildResult
			if err := newClient().postJSON(apiPrefix+"/compatibility:check", req, &res); err != nil {
				return err
			}
			if err := printResult(res); err != nil {
				return err
			}
			if !res.Compatibility.IsValid {
				return fmt.Errorf("build is not compatible")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Build file (JSON or YAML), - for stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// readBuildFile decodes a build request. YAML is a superset of JSON, so one
// decoder reads both.
func readBuildFile(path string, stdin io.Reader) (*buildRequest, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open build file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var req buildRequest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("build file %s is empty", path)
		}
		return nil, fmt.Errorf("parse build file %s: %w", path, err)
	}
	if len(req.Components) == 0 {
		return nil, fmt.Errorf("build file %s lists no components", path)
	}
	return &req, nil
}

func printResult(res buildResult) error {
	if structured() {
		return printOutput(res)
	}
	if res.Build != nil {
		printBuild(*res.Build)
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "Total price: %s\n", res.TotalPrice)
	if res.Compatibility.IsValid {
		fmt.Fprintln(out, "Compatible: yes")
		return nil
	}
	fmt.Fprintln(out, "Compatible: no")
	for _, e := range res.Compatibility.Errors {
		fmt.Fprintf(out, "  - %s\n", e)
	}
	return nil
}

func printBuild(b build) {
	fmt.Fprintf(out, "Build %s (%s)\n", b.ID, b.Name)
	rows := make([][]string, 0, len(b.Components))
	for _, c := range b.Components {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(c.ComponentTypeID), 10),
			strconv.FormatUint(uint64(c.ProductID), 10),
		})
	}
	printTable([]string{"Type", "Product"}, rows)
}
