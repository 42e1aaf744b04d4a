package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"crost/internal/config"
	"crost/internal/identification"
	"crost/internal/logging"
	"crost/internal/notifications"
	"crost/internal/scrobble"
	"crost/internal/services"
)

func newScrobbleCommand(ctx *commandContext) *cobra.Command {
	var (
		dryRun      bool
		noInput     bool
		workers     int
		onError     string
		afterReport string
		moveDir     string
		output      string
	)

	cmd := &cobra.Command{
		Use:   "scrobble FILE...",
		Short: "Identify files and add them to the Trakt watch history",
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

			flags := cmd.Flags()
			if flags.Changed("dry-run") {
				cfg.Trakt.DryRun = dryRun
			}
			if noInput {
				cfg.Scan.Interactive = false
			}
			if flags.Changed("workers") {
				cfg.Scan.Workers = workers
			}
			if flags.Changed("on-error") {
				cfg.Scan.OnError = strings.ToLower(strings.TrimSpace(onError))
			}
			if flags.Changed("after-report") {
				cfg.Scan.AfterReport = strings.ToLower(strings.TrimSpace(afterReport))
			}
			if flags.Changed("move-dir") {
				if cfg.Scan.MoveDir, err = config.ExpandPath(moveDir); err != nil {
					return fmt.Errorf("resolve --move-dir: %w", err)
				}
			}
			if err := cfg.Validate(); err != nil {
				return services.Wrap(services.ErrConfiguration, "", "flags", "", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			logger := ctx.loggerFor()
			lookup, err := newLookupClient(cfg, logger)
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "", "opensubtitles", "", err)
			}
			reporter, err := newReportClient(cfg, cfg.Trakt.DryRun, logger)
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "", "trakt", "", err)
			}

			// Prompts share stdout with table output but move to stderr when
			// stdout carries JSON or YAML.
			promptOut := cmd.OutOrStdout()
			if format.structured() {
				promptOut = cmd.ErrOrStderr()
			}
			var prompter identification.Prompter
			if cfg.Scan.Interactive {
				prompter = identification.NewConsolePrompter(cmd.InOrStdin(), promptOut)
			}

			runner, err := scrobble.NewRunner(scrobble.OptionsFromConfig(cfg), scrobble.Dependencies{
				Lookup:   lookup,
				Reporter: reporter,
				Prompter: prompter,
				Notifier: notifications.NewService(cfg),
				Logger:   logger,
			})
			if err != nil {
				return err
			}

			runID := uuid.NewString()
			runCtx := services.WithRequestID(cmd.Context(), runID)
			logging.WithContext(runCtx, logger).Debug("scrobble run starting", logging.Int("files", len(args)))

			summary, runErr := runner.Run(runCtx, args)
			if errors.Is(runErr, scrobble.ErrLocked) {
				return runErr
			}
			if len(summary.Files) > 0 {
				if err := renderSummary(cmd, format, summary); err != nil {
					return err
				}
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log what would be reported without contacting Trakt")
	cmd.Flags().BoolVar(&noInput, "no-input", false, "Never prompt; skip files with ambiguous matches")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Number of files hashed concurrently")
	cmd.Flags().StringVar(&onError, "on-error", "", "Policy for files that cannot be hashed (abort, skip)")
	cmd.Flags().StringVar(&afterReport, "after-report", "", "What to do with reported files (keep, remove, move)")
	cmd.Flags().StringVar(&moveDir, "move-dir", "", "Destination for --after-report move")
	cmd.Flags().StringVarP(&output, "output", "o", string(outputTable), "Output format (table, json, yaml)")
	return cmd
}

func renderSummary(cmd *cobra.Command, format outputFormat, summary scrobble.Summary) error {
	if format.structured() {
		return writeStructured(cmd, format, summary)
	}

	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(summary.Files))
	for _, f := range summary.Files {
		rows = append(rows, []string{
			filepath.Base(f.Path),
			f.Fingerprint,
			string(f.Outcome),
			fileDetail(f),
			dispositionText(f),
		})
	}
	title := "Scrobble summary"
	if summary.DryRun {
		title += " (dry run)"
	}
	fmt.Fprintln(out, renderTable(tableSpec{
		Title:   title,
		Headers: []string{"File", "Fingerprint", "Outcome", "Title / Error", "After report"},
		Rows:    rows,
		Footer: []string{
			fmt.Sprintf("%d files", len(summary.Files)),
			"",
			fmt.Sprintf("%d resolved", summary.Count(scrobble.OutcomeResolved)),
			fmt.Sprintf("%d unmatched, %d skipped, %d failed",
				summary.Count(scrobble.OutcomeUnmatched),
				summary.Count(scrobble.OutcomeSkipped),
				summary.Count(scrobble.OutcomeFailed)),
			summary.Duration().Round(time.Millisecond).String(),
		},
	}))
	writeReportLine(out, summary)
	return nil
}

func fileDetail(f scrobble.FileReport) string {
	switch {
	case f.Error != "":
		return f.Error
	case f.Title != nil:
		return f.Title.Display()
	default:
		return ""
	}
}

func dispositionText(f scrobble.FileReport) string {
	switch {
	case f.DispositionError != "":
		return "error: " + f.DispositionError
	case f.Disposition == scrobble.DispositionMoved:
		return "moved to " + f.MovedTo
	default:
		return string(f.Disposition)
	}
}

func writeReportLine(out io.Writer, summary scrobble.Summary) {
	if summary.Report == nil {
		return
	}
	r := summary.Report
	if r.DryRun {
		fmt.Fprintf(out, "Would have reported %d movies and %d episodes\n", r.Submitted.Movies, r.Submitted.Episodes)
		return
	}
	fmt.Fprintf(out, "Trakt added %d movies and %d episodes", r.Added.Movies, r.Added.Episodes)
	if len(r.NotFound) > 0 {
		fmt.Fprintf(out, "; not found: %s", strings.Join(r.NotFound, ", "))
	}
	fmt.Fprintln(out)
	if len(r.Ignored) > 0 {
		fmt.Fprintf(out, "Not reported (no IMDb id): %s\n", strings.Join(r.Ignored, ", "))
	}
}
