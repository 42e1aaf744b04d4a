package config

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
//
// Credentials are not required here so commands that never reach a remote
// service (hash, config) work without them; see RequireOpenSubtitles and
// RequireTrakt.
func (c *Config) Validate() error {
	if err := c.validateOpenSubtitles(); err != nil {
		return err
	}
	if err := c.validateTrakt(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateOpenSubtitles() error {
	if c.OpenSubtitles.RequestsPerSecond <= 0 {
		return errors.New("opensubtitles.requests_per_second must be positive")
	}
	if strings.TrimSpace(c.OpenSubtitles.UserAgent) == "" {
		return errors.New("opensubtitles.user_agent must be set")
	}
	for _, lang := range c.OpenSubtitles.Languages {
		if _, err := language.Parse(lang); err != nil {
			return fmt.Errorf("opensubtitles.languages: invalid language tag %q: %w", lang, err)
		}
	}
	return nil
}

func (c *Config) validateTrakt() error {
	if c.Trakt.RequestTimeout <= 0 {
		return errors.New("trakt.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateScan() error {
	if c.Scan.Workers < 1 || c.Scan.Workers > maxScanWorkers {
		return fmt.Errorf("scan.workers must be between 1 and %d", maxScanWorkers)
	}
	switch c.Scan.OnError {
	case OnErrorAbort, OnErrorSkip:
	default:
		return fmt.Errorf("scan.on_error must be %q or %q, got %q", OnErrorAbort, OnErrorSkip, c.Scan.OnError)
	}
	switch c.Scan.AfterReport {
	case AfterReportKeep, AfterReportRemove:
	case AfterReportMove:
		if c.Scan.MoveDir == "" {
			return errors.New("scan.move_dir must be set when scan.after_report is \"move\"")
		}
	default:
		return fmt.Errorf("scan.after_report must be one of keep, remove, move; got %q", c.Scan.AfterReport)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error; got %q", c.Logging.Level)
	}
	return nil
}

// RequireOpenSubtitles reports whether hash lookups can be performed.
func (c *Config) RequireOpenSubtitles() error {
	if c.OpenSubtitles.APIKey == "" {
		return fmt.Errorf("opensubtitles.api_key is required. Set OPENSUBTITLES_API_KEY env var or edit %s (create with 'crost config init')", configHint())
	}
	return nil
}

// RequireTrakt reports whether watch history can be submitted. Dry runs only
// need the client id.
func (c *Config) RequireTrakt(dryRun bool) error {
	if c.Trakt.ClientID == "" {
		return fmt.Errorf("trakt.client_id is required. Set TRAKT_CLIENT_ID, write it to %s, or edit %s", c.Trakt.CredentialsFile, configHint())
	}
	if !dryRun && c.Trakt.AccessToken == "" {
		return fmt.Errorf("trakt.access_token is required. Set TRAKT_ACCESS_TOKEN env var or edit %s", configHint())
	}
	return nil
}

func configHint() string {
	path, err := DefaultConfigPath()
	if err != nil {
		return defaultConfigPath
	}
	return path
}
