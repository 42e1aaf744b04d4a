package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOpenSubtitles()
	if err := c.normalizeTrakt(); err != nil {
		return err
	}
	if err := c.normalizeScan(); err != nil {
		return err
	}
	c.normalizeNotifications()
	return c.normalizeLogging()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir()
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeOpenSubtitles() {
	c.OpenSubtitles.APIKey = strings.TrimSpace(c.OpenSubtitles.APIKey)
	if c.OpenSubtitles.APIKey == "" {
		if value, ok := os.LookupEnv("OPENSUBTITLES_API_KEY"); ok {
			c.OpenSubtitles.APIKey = strings.TrimSpace(value)
		}
	}
	c.OpenSubtitles.UserToken = strings.TrimSpace(c.OpenSubtitles.UserToken)
	if c.OpenSubtitles.UserToken == "" {
		if value, ok := os.LookupEnv("OPENSUBTITLES_USER_TOKEN"); ok {
			c.OpenSubtitles.UserToken = strings.TrimSpace(value)
		}
	}
	c.OpenSubtitles.UserAgent = strings.TrimSpace(c.OpenSubtitles.UserAgent)
	if c.OpenSubtitles.UserAgent == "" {
		c.OpenSubtitles.UserAgent = defaultOpenSubtitlesUserAgent
	}
	c.OpenSubtitles.BaseURL = strings.TrimRight(strings.TrimSpace(c.OpenSubtitles.BaseURL), "/")
	if c.OpenSubtitles.BaseURL == "" {
		c.OpenSubtitles.BaseURL = defaultOpenSubtitlesBaseURL
	}
	langs := make([]string, 0, len(c.OpenSubtitles.Languages))
	seen := make(map[string]struct{}, len(c.OpenSubtitles.Languages))
	for _, lang := range c.OpenSubtitles.Languages {
		normalized := strings.ToLower(strings.TrimSpace(lang))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		langs = append(langs, normalized)
	}
	if len(langs) == 0 {
		langs = []string{"en"}
	}
	c.OpenSubtitles.Languages = langs
	if c.OpenSubtitles.RequestTimeout <= 0 {
		c.OpenSubtitles.RequestTimeout = defaultOpenSubtitlesTimeout
	}
}

func (c *Config) normalizeTrakt() error {
	var err error
	c.Trakt.ClientID = strings.TrimSpace(c.Trakt.ClientID)
	if c.Trakt.ClientID == "" {
		if value, ok := os.LookupEnv("TRAKT_CLIENT_ID"); ok {
			c.Trakt.ClientID = strings.TrimSpace(value)
		}
	}
	c.Trakt.AccessToken = strings.TrimSpace(c.Trakt.AccessToken)
	if c.Trakt.AccessToken == "" {
		if value, ok := os.LookupEnv("TRAKT_ACCESS_TOKEN"); ok {
			c.Trakt.AccessToken = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Trakt.CredentialsFile) == "" {
		c.Trakt.CredentialsFile = defaultTraktCredentialsFile
	}
	if c.Trakt.CredentialsFile, err = expandPath(strings.TrimSpace(c.Trakt.CredentialsFile)); err != nil {
		return fmt.Errorf("trakt.credentials_file: %w", err)
	}
	if c.Trakt.ClientID == "" {
		id, err := readCredentialsFile(c.Trakt.CredentialsFile)
		if err != nil {
			return fmt.Errorf("trakt.credentials_file: %w", err)
		}
		c.Trakt.ClientID = id
	}
	c.Trakt.BaseURL = strings.TrimRight(strings.TrimSpace(c.Trakt.BaseURL), "/")
	if c.Trakt.BaseURL == "" {
		c.Trakt.BaseURL = defaultTraktBaseURL
	}
	if c.Trakt.RequestTimeout <= 0 {
		c.Trakt.RequestTimeout = defaultTraktTimeout
	}
	return nil
}

// readCredentialsFile returns the first non-empty line of path. A missing file
// yields an empty value.
func readCredentialsFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", nil
}

func (c *Config) normalizeScan() error {
	var err error
	if c.Scan.Workers == 0 {
		c.Scan.Workers = defaultScanWorkers
	}
	c.Scan.OnError = strings.ToLower(strings.TrimSpace(c.Scan.OnError))
	if c.Scan.OnError == "" {
		c.Scan.OnError = OnErrorAbort
	}
	c.Scan.AfterReport = strings.ToLower(strings.TrimSpace(c.Scan.AfterReport))
	if c.Scan.AfterReport == "" {
		c.Scan.AfterReport = AfterReportKeep
	}
	if c.Scan.MoveDir, err = expandPath(strings.TrimSpace(c.Scan.MoveDir)); err != nil {
		return fmt.Errorf("scan.move_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotificationRequestTimeout
	}
}

func (c *Config) normalizeLogging() error {
	var err error
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	return nil
}
