package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"crost/internal/version"
)

func newVersionCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:         "version",
		Short:       "Print build information",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output, outputPlain, outputJSON, outputYAML)
			if err != nil {
				return err
			}
			if format.structured() {
				return writeStructured(cmd, format, version.GetInfo())
			}
			fmt.Fprintln(cmd.OutOrStdout(), "crost "+version.GetFullVersion())
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", string(outputPlain), "Output format (plain, json, yaml)")
	return cmd
}
