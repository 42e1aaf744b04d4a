package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"crost/internal/identification"
	"crost/internal/logging"
	"crost/internal/media"
	"crost/internal/moviehash"
	"crost/internal/services"
)

type lookupEntry struct {
	Path        string        `json:"path" yaml:"path"`
	Fingerprint string        `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	Error       string        `json:"error,omitempty" yaml:"error,omitempty"`
	Candidates  []media.Title `json:"candidates" yaml:"candidates"`
}

func newLookupCommand(ctx *commandContext) *cobra.Command {
	var (
		workers int
		output  string
	)

	cmd := &cobra.Command{
		Use:   "lookup FILE...",
		Short: "Show the titles OpenSubtitles knows for each file",
		Long:  "Hash the files and print every candidate title without prompting or reporting.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output, outputTable, outputJSON, outputYAML)
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
			logger := ctx.loggerFor()
			client, err := newLookupClient(cfg, logger)
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "", "opensubtitles", "", err)
			}

			results := moviehash.HashFiles(cmd.Context(), args, workers)
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			entries := make([]lookupEntry, len(results))
			var hashed []moviehash.Result
			for i, r := range results {
				entries[i] = lookupEntry{Path: r.Path, Candidates: []media.Title{}}
				if !r.OK() {
					entries[i].Error = r.Err.Error()
					logging.WarnWithContext(logger, "could not hash file", "hash_failed",
						logging.String(logging.FieldFilePath, r.Path),
						logging.Error(r.Err),
						logging.String(logging.FieldImpact, "file is listed without candidates"),
					)
					continue
				}
				entries[i].Fingerprint = r.Fingerprint.String()
				hashed = append(hashed, r)
			}

			groups := identification.GroupResults(hashed)
			candidates, err := client.LookupHashes(cmd.Context(), identification.Hashes(groups))
			if err != nil {
				return err
			}
			for i := range entries {
				if titles, ok := candidates[entries[i].Fingerprint]; ok {
					entries[i].Candidates = titles
				}
			}

			if format.structured() {
				return writeStructured(cmd, format, entries)
			}
			var rows [][]string
			for _, e := range entries {
				switch {
				case e.Error != "":
					rows = append(rows, []string{e.Path, "", "", "error: " + e.Error})
				case len(e.Candidates) == 0:
					rows = append(rows, []string{e.Path, e.Fingerprint, "", "no match"})
				default:
					for n, title := range e.Candidates {
						rows = append(rows, []string{e.Path, e.Fingerprint, strconv.Itoa(n), title.Display()})
					}
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(tableSpec{
				Headers: []string{"File", "Fingerprint", "#", "Candidate"},
				Rows:    rows,
				Aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			}))
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Number of files hashed concurrently")
	cmd.Flags().StringVarP(&output, "output", "o", string(outputTable), "Output format (table, json, yaml)")
	return cmd
}
