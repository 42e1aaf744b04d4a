package scrobble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"crost/internal/config"
	"crost/internal/fileutil"
	"crost/internal/identification"
	"crost/internal/logging"
	"crost/internal/media"
	"crost/internal/moviehash"
	"crost/internal/notifications"
	"crost/internal/services"
	"crost/internal/trakt"
)

// ErrLocked is returned when another run holds the state directory lock.
var ErrLocked = errors.New("another crost run is in progress")

// Lookup resolves fingerprints to candidate titles.
type Lookup interface {
	LookupHashes(ctx context.Context, hashes []string) (map[string][]media.Title, error)
}

// Reporter submits resolved titles to the watch history.
type Reporter interface {
	Report(ctx context.Context, titles []media.Title) (trakt.Result, error)
}

// HashFunc fingerprints paths with a bounded number of workers.
type HashFunc func(ctx context.Context, paths []string, workers int) []moviehash.Result

// Options controls a run.
type Options struct {
	Workers     int
	OnError     string
	AfterReport string
	MoveDir     string
	DryRun      bool
	LockPath    string
}

// OptionsFromConfig derives run options from the scan section of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Workers:     cfg.Scan.Workers,
		OnError:     cfg.Scan.OnError,
		AfterReport: cfg.Scan.AfterReport,
		MoveDir:     cfg.Scan.MoveDir,
		DryRun:      cfg.Trakt.DryRun,
		LockPath:    cfg.LockPath(),
	}
}

// Dependencies are the collaborators of a Runner. Prompter may be nil to
// skip ambiguous files; Notifier may be nil.
type Dependencies struct {
	Lookup   Lookup
	Reporter Reporter
	Prompter identification.Prompter
	Notifier notifications.Service
	Hash     HashFunc
	Logger   *slog.Logger
	Now      func() time.Time
}

// Runner executes scrobble runs.
type Runner struct {
	opts     Options
	lookup   Lookup
	reporter Reporter
	resolver *identification.Resolver
	notifier notifications.Service
	hash     HashFunc
	logger   *slog.Logger
	now      func() time.Time
}

// NewRunner validates opts and wires the collaborators.
func NewRunner(opts Options, deps Dependencies) (*Runner, error) {
	if deps.Lookup == nil {
		return nil, errors.New("scrobble: lookup is required")
	}
	if deps.Reporter == nil {
		return nil, errors.New("scrobble: reporter is required")
	}
	if opts.OnError == "" {
		opts.OnError = config.OnErrorAbort
	}
	if opts.AfterReport == "" {
		opts.AfterReport = config.AfterReportKeep
	}
	switch opts.OnError {
	case config.OnErrorAbort, config.OnErrorSkip:
	default:
		return nil, services.Wrap(services.ErrConfiguration, "scrobble", "options", fmt.Sprintf("unknown on_error policy %q", opts.OnError), nil)
	}
	switch opts.AfterReport {
	case config.AfterReportKeep, config.AfterReportRemove:
	case config.AfterReportMove:
		if opts.MoveDir == "" {
			return nil, services.Wrap(services.ErrConfiguration, "scrobble", "options", "move requires a target directory", nil)
		}
	default:
		return nil, services.Wrap(services.ErrConfiguration, "scrobble", "options", fmt.Sprintf("unknown after_report action %q", opts.AfterReport), nil)
	}

	hash := deps.Hash
	if hash == nil {
		hash = moviehash.HashFiles
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{
		opts:     opts,
		lookup:   deps.Lookup,
		reporter: deps.Reporter,
		resolver: identification.NewResolver(deps.Prompter, deps.Logger),
		notifier: notifier,
		hash:     hash,
		logger:   logging.NewComponentLogger(deps.Logger, "scrobble"),
		now:      now,
	}, nil
}

// Run processes paths end to end. The returned Summary is populated as far as
// the run got, even when an error is returned.
func (r *Runner) Run(ctx context.Context, paths []string) (Summary, error) {
	summary := Summary{DryRun: r.opts.DryRun, Started: r.now()}
	if id, ok := services.RequestIDFromContext(ctx); ok {
		summary.RunID = id
	}

	unlock, err := r.acquireLock()
	if err != nil {
		return summary, err
	}
	defer unlock()

	err = r.run(ctx, paths, &summary)
	summary.Finished = r.now()
	logger := logging.WithContext(ctx, r.logger)

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			if nerr := r.notifier.NotifyError(ctx, err, "scrobble run"); nerr != nil {
				r.warnNotify(logger, nerr)
			}
		}
		return summary, err
	}

	if nerr := r.notifier.NotifyScrobbleCompleted(ctx, summary.stats()); nerr != nil {
		r.warnNotify(logger, nerr)
	}
	if unmatched := summary.Paths(OutcomeUnmatched); len(unmatched) > 0 {
		if nerr := r.notifier.NotifyUnidentifiedMedia(ctx, unmatched); nerr != nil {
			r.warnNotify(logger, nerr)
		}
	}
	logger.Info("scrobble run complete",
		logging.Int("files", len(summary.Files)),
		logging.Int("titles", len(summary.Titles)),
		logging.Int("unmatched", summary.Count(OutcomeUnmatched)),
		logging.Int("skipped", summary.Count(OutcomeSkipped)),
		logging.Int("failed", summary.Count(OutcomeFailed)),
		logging.Bool("dry_run", summary.DryRun),
		logging.Duration("duration", summary.Duration()),
	)
	return summary, nil
}

func (r *Runner) run(ctx context.Context, paths []string, summary *Summary) error {
	if len(paths) == 0 {
		return services.Wrap(services.ErrValidation, "scrobble", "input", "no files given", nil)
	}

	hashCtx := services.WithStage(ctx, "hash")
	results := r.hash(hashCtx, paths, r.opts.Workers)
	if err := ctx.Err(); err != nil {
		return err
	}

	index := make(map[string][]int, len(results))
	for _, res := range results {
		report := FileReport{Path: res.Path, Size: res.Size}
		if !res.OK() {
			fileCtx := services.WithFilePath(hashCtx, res.Path)
			if r.opts.OnError == config.OnErrorAbort {
				summary.Files = append(summary.Files, FileReport{Path: res.Path, Outcome: OutcomeFailed, Error: res.Err.Error()})
				return services.Wrap(services.ErrValidation, "hash", "fingerprint", res.Path, res.Err)
			}
			logging.WarnWithContext(logging.WithContext(fileCtx, r.logger), "cannot fingerprint file", "hash_failed",
				logging.Error(res.Err),
				logging.String(logging.FieldErrorHint, "files must be regular and at least 128 KiB"),
				logging.String(logging.FieldImpact, "file skipped"),
			)
			report.Outcome = OutcomeFailed
			report.Error = res.Err.Error()
		} else {
			report.Fingerprint = res.Fingerprint.String()
		}
		index[res.Path] = append(index[res.Path], len(summary.Files))
		summary.Files = append(summary.Files, report)
	}

	groups := identification.GroupResults(results)
	if len(groups) == 0 {
		r.logger.Info("no files to look up")
		return nil
	}

	lookupCtx := services.WithStage(ctx, "lookup")
	candidates, err := r.lookup.LookupHashes(lookupCtx, identification.Hashes(groups))
	if err != nil {
		return fmt.Errorf("look up fingerprints: %w", err)
	}

	resolution, err := r.resolver.Resolve(services.WithStage(ctx, "identify"), groups, candidates)
	for _, outcome := range resolution.Files {
		slots := index[outcome.Path]
		if len(slots) == 0 {
			continue
		}
		i := slots[0]
		index[outcome.Path] = slots[1:]
		summary.Files[i].Outcome = Outcome(outcome.Outcome)
		summary.Files[i].Title = outcome.Title
	}
	summary.Titles = resolution.Titles
	if err != nil {
		return err
	}

	report, err := r.reporter.Report(services.WithStage(ctx, "report"), resolution.Titles)
	if err != nil {
		return fmt.Errorf("report titles: %w", err)
	}
	summary.Report = &report
	if report.DryRun {
		summary.DryRun = true
	}

	r.dispose(services.WithStage(ctx, "dispose"), summary)
	return nil
}

// dispose applies the after-report action to files whose title was accepted.
// Nothing happens on dry runs.
func (r *Runner) dispose(ctx context.Context, summary *Summary) {
	if summary.DryRun || summary.Report == nil {
		return
	}
	rejected := make(map[string]struct{}, len(summary.Report.NotFound))
	for _, tag := range summary.Report.NotFound {
		rejected[tag] = struct{}{}
	}

	for i := range summary.Files {
		file := &summary.Files[i]
		if file.Outcome != OutcomeResolved || file.Title == nil {
			continue
		}
		tag := file.Title.IMDBTag()
		if tag == "" {
			continue
		}
		if _, ok := rejected[tag]; ok {
			continue
		}

		logger := logging.WithContext(services.WithFilePath(ctx, file.Path), r.logger)
		switch r.opts.AfterReport {
		case config.AfterReportKeep:
			file.Disposition = DispositionKept
		case config.AfterReportRemove:
			if err := fileutil.RemoveFile(file.Path); err != nil {
				file.DispositionError = err.Error()
				logging.WarnWithContext(logger, "remove failed", "dispose_failed", logging.Error(err),
					logging.String(logging.FieldImpact, "file left in place"))
				continue
			}
			file.Disposition = DispositionRemoved
			logger.Info("removed reported file")
		case config.AfterReportMove:
			dst, err := fileutil.MoveFile(file.Path, r.opts.MoveDir)
			if err != nil {
				file.DispositionError = err.Error()
				logging.WarnWithContext(logger, "move failed", "dispose_failed", logging.Error(err),
					logging.String(logging.FieldImpact, "file left in place"))
				continue
			}
			file.Disposition = DispositionMoved
			file.MovedTo = dst
			logger.Info("moved reported file", logging.String("destination", dst))
		}
	}
}

func (r *Runner) acquireLock() (func(), error) {
	if r.opts.LockPath == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(r.opts.LockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(r.opts.LockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock held at %s)", ErrLocked, r.opts.LockPath)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("release run lock failed", logging.Error(err))
		}
	}, nil
}

func (r *Runner) warnNotify(logger *slog.Logger, err error) {
	logging.WarnWithContext(logger, "notification failed", "notify_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		logging.String(logging.FieldImpact, "no push notification sent"),
	)
}
