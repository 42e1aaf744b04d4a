package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"crost/internal/config"
)

const userAgent = "crost/0.1.0"

// RunStats summarises a scrobble run for notification purposes.
type RunStats struct {
	Reported  int
	Unmatched int
	Skipped   int
	Failed    int
	DryRun    bool
	Duration  time.Duration
}

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyScrobbleCompleted(ctx context.Context, stats RunStats) error
	NotifyUnidentifiedMedia(ctx context.Context, paths []string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := cfg.NotificationTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether svc delivers anything.
func Enabled(svc Service) bool {
	if svc == nil {
		return false
	}
	_, noop := svc.(noopService)
	return !noop
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyScrobbleCompleted(ctx context.Context, stats RunStats) error {
	duration := stats.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	verb := "Scrobbled"
	if stats.DryRun {
		verb = "Would have scrobbled"
	}
	message := fmt.Sprintf("%s %d %s in %s", verb, stats.Reported, plural(stats.Reported, "title", "titles"), duration)
	var extras []string
	if stats.Unmatched > 0 {
		extras = append(extras, fmt.Sprintf("%d unmatched", stats.Unmatched))
	}
	if stats.Skipped > 0 {
		extras = append(extras, fmt.Sprintf("%d skipped", stats.Skipped))
	}
	if stats.Failed > 0 {
		extras = append(extras, fmt.Sprintf("%d failed", stats.Failed))
	}
	if len(extras) > 0 {
		message += " (" + strings.Join(extras, ", ") + ")"
	}

	title := "crost - Scrobbled"
	if stats.Failed > 0 || stats.Unmatched > 0 {
		title = "crost - Scrobbled (with problems)"
	}
	data := payload{
		title:   title,
		message: message,
		tags:    []string{"crost", "scrobble", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyUnidentifiedMedia(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	data := payload{
		title:   "crost - Unidentified Media",
		message: fmt.Sprintf("Could not identify:\n%s", strings.Join(names, "\n")),
		tags:    []string{"crost", "unidentified"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "crost - Error",
		message:  builder.String(),
		tags:     []string{"crost", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "crost - Test",
		message:  "Notification system test",
		tags:     []string{"crost", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

type noopService struct{}

func (noopService) NotifyScrobbleCompleted(context.Context, RunStats) error { return nil }
func (noopService) NotifyUnidentifiedMedia(context.Context, []string) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error        { return nil }
func (noopService) TestNotification(context.Context) error                  { return nil }
