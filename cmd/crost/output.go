package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type outputFormat string

const (
	outputPlain outputFormat = "plain"
	outputTable outputFormat = "table"
	outputJSON  outputFormat = "json"
	outputYAML  outputFormat = "yaml"
)

// parseOutputFormat accepts one of allowed, case-insensitively.
func parseOutputFormat(value string, allowed ...outputFormat) (outputFormat, error) {
	format := outputFormat(strings.ToLower(strings.TrimSpace(value)))
	names := make([]string, 0, len(allowed))
	for _, a := range allowed {
		if format == a {
			return format, nil
		}
		names = append(names, string(a))
	}
	return "", fmt.Errorf("--output must be one of %s, got %q", strings.Join(names, ", "), value)
}

// structured reports whether the format is machine readable.
func (f outputFormat) structured() bool {
	return f == outputJSON || f == outputYAML
}

// writeStructured encodes v as JSON or YAML to the command's stdout.
func writeStructured(cmd *cobra.Command, format outputFormat, v any) error {
	switch format {
	case outputJSON:
		return writeJSON(cmd, v)
	case outputYAML:
		return writeYAML(cmd, v)
	default:
		return fmt.Errorf("format %q is not structured", format)
	}
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML encodes v as YAML to the command's stdout.
func writeYAML(cmd *cobra.Command, v any) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
