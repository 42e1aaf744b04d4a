package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local state locations.
type Paths struct {
	StateDir string `toml:"state_dir"`
}

// OpenSubtitles contains configuration for the hash lookup service.
type OpenSubtitles struct {
	APIKey            string   `toml:"api_key"`
	UserToken         string   `toml:"user_token"`
	UserAgent         string   `toml:"user_agent"`
	BaseURL           string   `toml:"base_url"`
	Languages         []string `toml:"languages"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	RequestTimeout    int      `toml:"request_timeout"`
}

// Trakt contains configuration for watch-history reporting.
type Trakt struct {
	ClientID        string `toml:"client_id"`
	AccessToken     string `toml:"access_token"`
	CredentialsFile string `toml:"credentials_file"`
	BaseURL         string `toml:"base_url"`
	RequestTimeout  int    `toml:"request_timeout"`
	DryRun          bool   `toml:"dry_run"`
}

// Scan contains configuration for a scrobble run.
type Scan struct {
	Workers     int    `toml:"workers"`
	OnError     string `toml:"on_error"`
	Interactive bool   `toml:"interactive"`
	AfterReport string `toml:"after_report"`
	MoveDir     string `toml:"move_dir"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for crost.
//
// Configuration sections by subsystem:
//   - Paths: run lock location
//   - OpenSubtitles: movie hash lookups
//   - Trakt: watch-history reporting
//   - Scan: hashing workers and per-file policies
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and optional file
type Config struct {
	Paths         Paths         `toml:"paths"`
	OpenSubtitles OpenSubtitles `toml:"opensubtitles"`
	Trakt         Trakt         `toml:"trakt"`
	Scan          Scan          `toml:"scan"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state directory, and the move target when
// processed files are moved after reporting.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.StateDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.StateDir, err)
	}
	if c.Scan.AfterReport == AfterReportMove {
		if err := os.MkdirAll(c.Scan.MoveDir, 0o755); err != nil {
			return fmt.Errorf("create move directory %q: %w", c.Scan.MoveDir, err)
		}
	}
	return nil
}

// LockPath returns the location of the run lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, lockFileName)
}

// OpenSubtitlesTimeout returns the HTTP timeout for hash lookups.
func (c *Config) OpenSubtitlesTimeout() time.Duration {
	return time.Duration(c.OpenSubtitles.RequestTimeout) * time.Second
}

// TraktTimeout returns the HTTP timeout for history submissions.
func (c *Config) TraktTimeout() time.Duration {
	return time.Duration(c.Trakt.RequestTimeout) * time.Second
}

// NotificationTimeout returns the HTTP timeout for ntfy pushes.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultStateDir() string {
	if base, ok := os.LookupEnv("XDG_STATE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "crost")
	}
	return "~/.local/state/crost"
}

// CreateSample writes a sample configuration file to the specified location.
// An existing file is left untouched unless overwrite is set.
func CreateSample(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML with credentials masked.
func (c *Config) Encode() ([]byte, error) {
	masked := *c
	masked.OpenSubtitles.APIKey = maskSecret(masked.OpenSubtitles.APIKey)
	masked.OpenSubtitles.UserToken = maskSecret(masked.OpenSubtitles.UserToken)
	masked.Trakt.ClientID = maskSecret(masked.Trakt.ClientID)
	masked.Trakt.AccessToken = maskSecret(masked.Trakt.AccessToken)
	out, err := toml.Marshal(masked)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return out, nil
}

func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****"
	}
	return value[:4] + strings.Repeat("*", 8)
}

// EncodeRaw renders the configuration as TOML without masking.
func (c *Config) EncodeRaw() ([]byte, error) {
	out, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return out, nil
}
