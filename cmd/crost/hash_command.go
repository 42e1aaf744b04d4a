package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"crost/internal/moviehash"
	"crost/internal/services"
)

type hashEntry struct {
	Path        string `json:"path" yaml:"path"`
	Fingerprint string `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	Size        int64  `json:"size,omitempty" yaml:"size,omitempty"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newHashCommand(ctx *commandContext) *cobra.Command {
	var (
		short   bool
		workers int
		output  string
	)

	cmd := &cobra.Command{
		Use:   "hash FILE...",
		Short: "Print the OpenSubtitles movie hash of each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output, outputPlain, outputTable, outputJSON, outputYAML)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("workers") {
				workers = cfg.Scan.Workers
			}
			if workers < 1 {
				return fmt.Errorf("--workers must be positive, got %d", workers)
			}

			results := moviehash.HashFiles(cmd.Context(), args, workers)
			if err := cmd.Context().Err(); err != nil {
				return err
			}

			entries := make([]hashEntry, 0, len(results))
			failed := 0
			for _, r := range results {
				entry := hashEntry{Path: r.Path}
				if r.OK() {
					entry.Fingerprint = r.Fingerprint.String()
					if short {
						entry.Fingerprint = r.Fingerprint.Short()
					}
					entry.Size = r.Size
				} else {
					entry.Error = r.Err.Error()
					failed++
				}
				entries = append(entries, entry)
			}

			switch {
			case format.structured():
				if err := writeStructured(cmd, format, entries); err != nil {
					return err
				}
			case format == outputTable:
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					value := e.Fingerprint
					if e.Error != "" {
						value = "error: " + e.Error
					}
					rows = append(rows, []string{value, e.Path})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(tableSpec{
					Headers: []string{"Fingerprint", "Path"},
					Rows:    rows,
				}))
			default:
				out := cmd.OutOrStdout()
				errOut := cmd.ErrOrStderr()
				for _, e := range entries {
					if e.Error != "" {
						fmt.Fprintf(errOut, "%s: %s\n", e.Path, e.Error)
						continue
					}
					fmt.Fprintf(out, "%s\t%s\n", e.Fingerprint, e.Path)
				}
			}

			if failed > 0 {
				return services.Wrap(services.ErrValidation, "hash", "hash files", fmt.Sprintf("%d of %d files could not be hashed", failed, len(entries)), nil)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print the 8-digit short form")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Number of files hashed concurrently")
	cmd.Flags().StringVarP(&output, "output", "o", string(outputPlain), "Output format (plain, table, json, yaml)")
	return cmd
}
