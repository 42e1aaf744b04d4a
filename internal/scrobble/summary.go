package scrobble

import (
	"time"

	"crost/internal/identification"
	"crost/internal/media"
	"crost/internal/notifications"
	"crost/internal/trakt"
)

// Outcome is the final state of one input file.
type Outcome string

const (
	OutcomeFailed    Outcome = "failed"
	OutcomeResolved  Outcome = Outcome(identification.OutcomeResolved)
	OutcomeUnmatched Outcome = Outcome(identification.OutcomeUnmatched)
	OutcomeSkipped   Outcome = Outcome(identification.OutcomeSkipped)
)

// Disposition names what happened to a file after reporting.
type Disposition string

const (
	DispositionKept    Disposition = "kept"
	DispositionRemoved Disposition = "removed"
	DispositionMoved   Disposition = "moved"
)

// FileReport is the per-file record of a run.
type FileReport struct {
	Path             string       `json:"path" yaml:"path"`
	Fingerprint      string       `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	Size             int64        `json:"size,omitempty" yaml:"size,omitempty"`
	Outcome          Outcome      `json:"outcome" yaml:"outcome"`
	Title            *media.Title `json:"title,omitempty" yaml:"title,omitempty"`
	Error            string       `json:"error,omitempty" yaml:"error,omitempty"`
	Disposition      Disposition  `json:"disposition,omitempty" yaml:"disposition,omitempty"`
	MovedTo          string       `json:"moved_to,omitempty" yaml:"moved_to,omitempty"`
	DispositionError string       `json:"disposition_error,omitempty" yaml:"disposition_error,omitempty"`
}

// Summary describes a completed or aborted run.
type Summary struct {
	RunID    string        `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	DryRun   bool          `json:"dry_run" yaml:"dry_run"`
	Files    []FileReport  `json:"files" yaml:"files"`
	Titles   []media.Title `json:"titles" yaml:"titles"`
	Report   *trakt.Result `json:"report,omitempty" yaml:"report,omitempty"`
	Started  time.Time     `json:"started" yaml:"started"`
	Finished time.Time     `json:"finished" yaml:"finished"`
}

// Count returns how many files ended with the given outcome.
func (s Summary) Count(outcome Outcome) int {
	n := 0
	for _, f := range s.Files {
		if f.Outcome == outcome {
			n++
		}
	}
	return n
}

// Duration is the wall time of the run.
func (s Summary) Duration() time.Duration {
	if s.Finished.IsZero() || s.Started.IsZero() {
		return 0
	}
	return s.Finished.Sub(s.Started)
}

// Paths returns the files with the given outcome in input order.
func (s Summary) Paths(outcome Outcome) []string {
	var out []string
	for _, f := range s.Files {
		if f.Outcome == outcome {
			out = append(out, f.Path)
		}
	}
	return out
}

func (s Summary) stats() notifications.RunStats {
	reported := len(s.Titles)
	if s.Report != nil {
		reported = s.Report.Submitted.Movies + s.Report.Submitted.Episodes
	}
	return notifications.RunStats{
		Reported:  reported,
		Unmatched: s.Count(OutcomeUnmatched),
		Skipped:   s.Count(OutcomeSkipped),
		Failed:    s.Count(OutcomeFailed),
		DryRun:    s.DryRun,
		Duration:  s.Duration(),
	}
}
