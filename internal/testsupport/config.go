package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"crost/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with a unique temp state directory and
// dummy credentials. Remote endpoints are left at their defaults unless an
// option points them at a test server.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.OpenSubtitles.APIKey = "test-api-key"
	cfgVal.OpenSubtitles.RequestsPerSecond = 1000
	cfgVal.Trakt.ClientID = "test-client-id"
	cfgVal.Trakt.AccessToken = "test-access-token"
	cfgVal.Trakt.CredentialsFile = filepath.Join(base, "trakt_api")
	cfgVal.Scan.Interactive = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithOpenSubtitlesURL points hash lookups at url.
func WithOpenSubtitlesURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.OpenSubtitles.BaseURL = url
	}
}

// WithTraktURL points history submissions at url.
func WithTraktURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Trakt.BaseURL = url
	}
}

// WithNtfyTopic enables notifications to the given topic URL.
func WithNtfyTopic(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = url
	}
}

// WithMoveDir selects the move disposition into a directory under the base dir.
func WithMoveDir(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scan.AfterReport = config.AfterReportMove
		b.cfg.Scan.MoveDir = filepath.Join(b.baseDir, name)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// WriteConfig encodes cfg as TOML under the base dir and returns its path.
// Credentials are written in clear so the file loads back unchanged.
func WriteConfig(t testing.TB, cfg *config.Config) string {
	t.Helper()

	data, err := cfg.EncodeRaw()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	path := filepath.Join(BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
