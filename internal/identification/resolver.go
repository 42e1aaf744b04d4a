package identification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"crost/internal/logging"
	"crost/internal/media"
	"crost/internal/services"
)

// ErrSkipped is returned by a Prompter when the user declines to pick a title.
var ErrSkipped = errors.New("identification: file skipped")

// Prompter asks which of several candidates a file is. It returns the index of
// the chosen candidate or ErrSkipped.
type Prompter interface {
	Choose(ctx context.Context, filename string, candidates []media.Title) (int, error)
}

// Outcome is the per-file identification result.
type Outcome string

const (
	OutcomeResolved  Outcome = "resolved"
	OutcomeUnmatched Outcome = "unmatched"
	OutcomeSkipped   Outcome = "skipped"
)

// FileOutcome records how one input file was identified.
type FileOutcome struct {
	Path        string       `json:"path" yaml:"path"`
	Fingerprint string       `json:"fingerprint" yaml:"fingerprint"`
	Outcome     Outcome      `json:"outcome" yaml:"outcome"`
	Title       *media.Title `json:"title,omitempty" yaml:"title,omitempty"`
	Candidates  int          `json:"candidates" yaml:"candidates"`
}

// Resolution is the result of resolving every group.
type Resolution struct {
	Titles []media.Title
	Files  []FileOutcome
}

// ResolvedPaths lists the files whose title was resolved, in input order.
func (r Resolution) ResolvedPaths() []string {
	var out []string
	for _, f := range r.Files {
		if f.Outcome == OutcomeResolved {
			out = append(out, f.Path)
		}
	}
	return out
}

// Count returns how many files ended with the given outcome.
func (r Resolution) Count(outcome Outcome) int {
	n := 0
	for _, f := range r.Files {
		if f.Outcome == outcome {
			n++
		}
	}
	return n
}

// Resolver picks one title per file.
type Resolver struct {
	prompter Prompter
	logger   *slog.Logger
}

// NewResolver builds a Resolver. A nil prompter disables prompting, so files
// with several candidates are skipped.
func NewResolver(prompter Prompter, logger *slog.Logger) *Resolver {
	return &Resolver{
		prompter: prompter,
		logger:   logging.NewComponentLogger(logger, "identification"),
	}
}

// Resolve walks groups in order and resolves each file against the candidates
// found for its fingerprint. Prompt failures other than ErrSkipped abort.
func (r *Resolver) Resolve(ctx context.Context, groups []Group, candidates map[string][]media.Title) (Resolution, error) {
	var res Resolution
	seen := make(map[string]struct{})
	add := func(title media.Title) {
		key := title.Key()
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		res.Titles = append(res.Titles, title)
	}

	for _, group := range groups {
		hash := group.Hash()
		options := candidates[hash]
		for _, path := range group.Paths {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			logger := logging.WithContext(services.WithFilePath(ctx, path), r.logger)
			outcome := FileOutcome{Path: path, Fingerprint: hash, Candidates: len(options)}

			switch {
			case len(options) == 0:
				logging.WarnWithContext(logger, "couldn't find a match", "identification_unmatched",
					logging.String("hash", hash),
					logging.String(logging.FieldErrorHint, "file may be a rip the lookup service does not know"),
					logging.String(logging.FieldImpact, "file will not be reported"),
				)
				outcome.Outcome = OutcomeUnmatched
			case len(options) == 1:
				title := options[0]
				outcome.Outcome = OutcomeResolved
				outcome.Title = &title
				add(title)
				logger.Info("identified", logging.String("title", title.Display()))
			default:
				idx, err := r.choose(ctx, path, options)
				if errors.Is(err, ErrSkipped) {
					logger.Warn("ambiguous match skipped", logging.Int("candidates", len(options)))
					outcome.Outcome = OutcomeSkipped
					break
				}
				if err != nil {
					return res, fmt.Errorf("choose title for %s: %w", path, err)
				}
				title := options[idx]
				outcome.Outcome = OutcomeResolved
				outcome.Title = &title
				add(title)
				logger.Info("identified by choice", logging.String("title", title.Display()))
			}
			res.Files = append(res.Files, outcome)
		}
	}
	return res, nil
}

func (r *Resolver) choose(ctx context.Context, path string, options []media.Title) (int, error) {
	if r.prompter == nil {
		return 0, ErrSkipped
	}
	idx, err := r.prompter.Choose(ctx, path, options)
	if err != nil {
		return 0, err
	}
	if idx < 0 || idx >= len(options) {
		return 0, fmt.Errorf("choice %d out of range [0,%d)", idx, len(options))
	}
	return idx, nil
}
