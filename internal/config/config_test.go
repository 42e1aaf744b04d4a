package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"crost/internal/config"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_STATE_HOME", "")
	for _, key := range []string{"OPENSUBTITLES_API_KEY", "OPENSUBTITLES_USER_TOKEN", "TRAKT_CLIENT_ID", "TRAKT_ACCESS_TOKEN", "NTFY_TOPIC"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Chdir(home)
	return home
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	home := isolate(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(home, ".config", "crost", "config.toml"); resolved != want {
		t.Fatalf("resolved = %q, want %q", resolved, want)
	}
	if want := filepath.Join(home, ".local", "state", "crost"); cfg.Paths.StateDir != want {
		t.Fatalf("state dir = %q, want %q", cfg.Paths.StateDir, want)
	}
	if cfg.Scan.Workers != 4 || cfg.Scan.OnError != config.OnErrorAbort || cfg.Scan.AfterReport != config.AfterReportKeep {
		t.Fatalf("unexpected scan defaults: %+v", cfg.Scan)
	}
	if !cfg.Scan.Interactive {
		t.Fatal("expected interactive prompting by default")
	}
	if cfg.OpenSubtitles.RequestsPerSecond != 1 {
		t.Fatalf("requests_per_second = %v, want 1", cfg.OpenSubtitles.RequestsPerSecond)
	}
	if len(cfg.OpenSubtitles.Languages) != 1 || cfg.OpenSubtitles.Languages[0] != "en" {
		t.Fatalf("unexpected languages: %v", cfg.OpenSubtitles.Languages)
	}
	if cfg.Trakt.BaseURL != "https://api.trakt.tv" {
		t.Fatalf("unexpected trakt base url: %q", cfg.Trakt.BaseURL)
	}
	if want := filepath.Join(home, ".trakt_api"); cfg.Trakt.CredentialsFile != want {
		t.Fatalf("credentials file = %q, want %q", cfg.Trakt.CredentialsFile, want)
	}
	if cfg.LockPath() != filepath.Join(cfg.Paths.StateDir, "crost.lock") {
		t.Fatalf("unexpected lock path %q", cfg.LockPath())
	}
}

func TestLoadUsesProjectConfig(t *testing.T) {
	home := isolate(t)
	body := "[scan]\nworkers = 8\n"
	if err := os.WriteFile(filepath.Join(home, "crost.toml"), []byte(body), 0o600); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || filepath.Base(resolved) != "crost.toml" {
		t.Fatalf("expected project config, got %q exists=%v", resolved, exists)
	}
	if cfg.Scan.Workers != 8 {
		t.Fatalf("workers = %d, want 8", cfg.Scan.Workers)
	}
}

func TestLoadEnvFallbacks(t *testing.T) {
	isolate(t)
	t.Setenv("OPENSUBTITLES_API_KEY", " os-key ")
	t.Setenv("OPENSUBTITLES_USER_TOKEN", "os-token")
	t.Setenv("TRAKT_CLIENT_ID", "trakt-id")
	t.Setenv("TRAKT_ACCESS_TOKEN", "trakt-token")
	t.Setenv("NTFY_TOPIC", "https://ntfy.sh/test")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.OpenSubtitles.APIKey != "os-key" || cfg.OpenSubtitles.UserToken != "os-token" {
		t.Fatalf("unexpected opensubtitles credentials: %+v", cfg.OpenSubtitles)
	}
	if cfg.Trakt.ClientID != "trakt-id" || cfg.Trakt.AccessToken != "trakt-token" {
		t.Fatalf("unexpected trakt credentials: %+v", cfg.Trakt)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/test" {
		t.Fatalf("unexpected ntfy topic %q", cfg.Notifications.NtfyTopic)
	}
	if err := cfg.RequireOpenSubtitles(); err != nil {
		t.Fatalf("RequireOpenSubtitles: %v", err)
	}
	if err := cfg.RequireTrakt(false); err != nil {
		t.Fatalf("RequireTrakt: %v", err)
	}
}

func TestFileValuesWinOverEnv(t *testing.T) {
	isolate(t)
	t.Setenv("OPENSUBTITLES_API_KEY", "from-env")
	path := writeConfig(t, "[opensubtitles]\napi_key = \"from-file\"\n")

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected explicit config to exist")
	}
	if cfg.OpenSubtitles.APIKey != "from-file" {
		t.Fatalf("api key = %q, want from-file", cfg.OpenSubtitles.APIKey)
	}
}

func TestTraktClientIDFromCredentialsFile(t *testing.T) {
	home := isolate(t)
	if err := os.WriteFile(filepath.Join(home, ".trakt_api"), []byte("\n  abc123  \n"), 0o600); err != nil {
		t.Fatalf("write credentials: %v", err)
	}

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Trakt.ClientID != "abc123" {
		t.Fatalf("client id = %q, want abc123", cfg.Trakt.ClientID)
	}
	if err := cfg.RequireTrakt(true); err != nil {
		t.Fatalf("dry run should only need client id: %v", err)
	}
	if err := cfg.RequireTrakt(false); err == nil {
		t.Fatal("expected access token requirement")
	}
}

func TestRequireOpenSubtitlesWithoutKey(t *testing.T) {
	isolate(t)
	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	err = cfg.RequireOpenSubtitles()
	if err == nil || !strings.Contains(err.Error(), "OPENSUBTITLES_API_KEY") {
		t.Fatalf("expected api key hint, got %v", err)
	}
}

func TestLoadNormalizesLanguagesAndEnums(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
[opensubtitles]
languages = [" EN ", "pt-br", "en", ""]

[scan]
on_error = " SKIP "
after_report = "Remove"

[logging]
format = "JSON"
level = "Debug"
`)

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := strings.Join(cfg.OpenSubtitles.Languages, ","); got != "en,pt-br" {
		t.Fatalf("languages = %q", got)
	}
	if cfg.Scan.OnError != config.OnErrorSkip || cfg.Scan.AfterReport != config.AfterReportRemove {
		t.Fatalf("unexpected scan enums: %+v", cfg.Scan)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging: %+v", cfg.Logging)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"workers too high", "[scan]\nworkers = 65\n", "scan.workers"},
		{"workers negative", "[scan]\nworkers = -1\n", "scan.workers"},
		{"bad on_error", "[scan]\non_error = \"retry\"\n", "scan.on_error"},
		{"bad after_report", "[scan]\nafter_report = \"archive\"\n", "scan.after_report"},
		{"move without dir", "[scan]\nafter_report = \"move\"\n", "scan.move_dir"},
		{"bad rate", "[opensubtitles]\nrequests_per_second = 0\n", "requests_per_second"},
		{"bad language", "[opensubtitles]\nlanguages = [\"not a tag!\"]\n", "opensubtitles.languages"},
		{"bad log format", "[logging]\nformat = \"xml\"\n", "logging.format"},
		{"bad log level", "[logging]\nlevel = \"loud\"\n", "logging.level"},
		{"unknown key", "[scan]\nthreads = 2\n", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			_, _, _, err := config.Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestMoveDirExpandedAndCreated(t *testing.T) {
	home := isolate(t)
	path := writeConfig(t, "[scan]\nafter_report = \"move\"\nmove_dir = \"~/watched\"\n")

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if want := filepath.Join(home, "watched"); cfg.Scan.MoveDir != want {
		t.Fatalf("move dir = %q, want %q", cfg.Scan.MoveDir, want)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Scan.MoveDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}

func TestCreateSampleLoadsCleanly(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	if err := config.CreateSample(path, false); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if err := config.CreateSample(path, false); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}
	if err := config.CreateSample(path, true); err != nil {
		t.Fatalf("CreateSample overwrite: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}

func TestEncodeMasksSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.OpenSubtitles.APIKey = "supersecretkey"
	cfg.Trakt.AccessToken = "abc"

	out, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	text := string(out)
	if strings.Contains(text, "supersecretkey") {
		t.Fatalf("api key leaked: %s", text)
	}
	if !strings.Contains(text, "supe********") || !strings.Contains(text, "****") {
		t.Fatalf("expected masked values in %s", text)
	}
}
