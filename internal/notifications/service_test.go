package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"crost/internal/config"
	"crost/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		got.title = r.Header.Get("Title")
		got.tags = r.Header.Get("Tags")
		got.priority = r.Header.Get("Priority")
		got.body = string(body)
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, got
}

func serviceFor(url string) notifications.Service {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = url
	return notifications.NewService(&cfg)
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if notifications.Enabled(svc) {
		t.Fatal("expected noop service")
	}
	if err := svc.NotifyScrobbleCompleted(context.Background(), notifications.RunStats{Reported: 1}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if notifications.Enabled(notifications.NewService(nil)) {
		t.Fatal("nil config should yield noop service")
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "scrobble completed",
			send: func(s notifications.Service) error {
				return s.NotifyScrobbleCompleted(context.Background(), notifications.RunStats{Reported: 3, Duration: 2400 * time.Millisecond})
			},
			expectTitle:   "crost - Scrobbled",
			expectMessage: "Scrobbled 3 titles in 2s",
			expectTags:    "crost,scrobble,completed",
		},
		{
			name: "scrobble with problems",
			send: func(s notifications.Service) error {
				return s.NotifyScrobbleCompleted(context.Background(), notifications.RunStats{Reported: 1, Unmatched: 2, Failed: 1, DryRun: true})
			},
			expectTitle:   "crost - Scrobbled (with problems)",
			expectMessage: "Would have scrobbled 1 title in 0s (2 unmatched, 1 failed)",
			expectTags:    "crost,scrobble,completed",
		},
		{
			name: "unidentified",
			send: func(s notifications.Service) error {
				return s.NotifyUnidentifiedMedia(context.Background(), []string{"/media/a.mkv", "/media/b.avi"})
			},
			expectTitle:   "crost - Unidentified Media",
			expectMessage: "Could not identify:\na.mkv\nb.avi",
			expectTags:    "crost,unidentified",
		},
		{
			name: "error",
			send: func(s notifications.Service) error {
				return s.NotifyError(context.Background(), errors.New("boom"), "trakt report")
			},
			expectTitle:    "crost - Error",
			expectMessage:  "Error with trakt report: boom",
			expectTags:     "crost,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			send:           func(s notifications.Service) error { return s.TestNotification(context.Background()) },
			expectTitle:    "crost - Test",
			expectMessage:  "Notification system test",
			expectTags:     "crost,test",
			expectPriority: "low",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, got := newCaptureServer(t, http.StatusOK)
			if err := tt.send(serviceFor(server.URL)); err != nil {
				t.Fatalf("send: %v", err)
			}
			if got.title != tt.expectTitle {
				t.Errorf("title = %q, want %q", got.title, tt.expectTitle)
			}
			if got.body != tt.expectMessage {
				t.Errorf("message = %q, want %q", got.body, tt.expectMessage)
			}
			if got.tags != tt.expectTags {
				t.Errorf("tags = %q, want %q", got.tags, tt.expectTags)
			}
			if got.priority != tt.expectPriority {
				t.Errorf("priority = %q, want %q", got.priority, tt.expectPriority)
			}
		})
	}
}

func TestNtfyServiceSkipsEmptyUnidentified(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer server.Close()

	if err := serviceFor(server.URL).NotifyUnidentifiedMedia(context.Background(), nil); err != nil {
		t.Fatalf("NotifyUnidentifiedMedia: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no request, got %d", calls)
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	err := serviceFor(server.URL).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "topic forbidden") {
		t.Fatalf("expected status error, got %v", err)
	}
}
