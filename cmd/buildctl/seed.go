package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pcshop/configurator/pkg/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Work with catalog seed files",
}

func init() {
	var file string
	validateCmd := &cobra.Command{
		Use:   "validate -f FILE",
		Short: "Validate a seed file offline",
		Long: `Validate parses a seed file and checks it without contacting a server:
attribute and type references, rule expressions, and product values
against their attribute types.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := seed.Load(file)
			if err != nil {
				return err
			}
			if err := f.Validate(); err != nil {
				var problems seed.ValidationErrors
				if errors.As(err, &problems) {
					for _, p := range problems {
						fmt.Fprintln(out, p.String())
					}
					return fmt.Errorf("%s: %d problem(s)", file, len(problems))
				}
				return err
			}
			fmt.Fprintf(out, "%s: %d attributes, %d component types, %d rules, %d products\n",
				file, len(f.Attributes), len(f.ComponentTypes), len(f.Rules), len(f.Products))
			return nil
		},
	}
	validateCmd.Flags().StringVarP(&file, "file", "f", "", "Seed file")
	_ = validateCmd.MarkFlagRequired("file")
	seedCmd.AddCommand(validateCmd)
}
