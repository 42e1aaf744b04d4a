package config

// Per-file error policies.
const (
	OnErrorAbort = "abort"
	OnErrorSkip  = "skip"
)

// Post-report file dispositions.
const (
	AfterReportKeep   = "keep"
	AfterReportRemove = "remove"
	AfterReportMove   = "move"
)

const (
	defaultConfigPath                 = "~/.config/crost/config.toml"
	projectConfigName                 = "crost.toml"
	lockFileName                      = "crost.lock"
	defaultOpenSubtitlesBaseURL       = "https://api.opensubtitles.com/api/v1"
	defaultOpenSubtitlesUserAgent     = "crost/dev"
	defaultOpenSubtitlesRPS           = 1.0
	defaultOpenSubtitlesTimeout       = 45
	defaultTraktBaseURL               = "https://api.trakt.tv"
	defaultTraktCredentialsFile       = "~/.trakt_api"
	defaultTraktTimeout               = 30
	defaultScanWorkers                = 4
	maxScanWorkers                    = 64
	defaultNotificationRequestTimeout = 10
	defaultLogFormat                  = "console"
	defaultLogLevel                   = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir(),
		},
		OpenSubtitles: OpenSubtitles{
			UserAgent:         defaultOpenSubtitlesUserAgent,
			BaseURL:           defaultOpenSubtitlesBaseURL,
			Languages:         []string{"en"},
			RequestsPerSecond: defaultOpenSubtitlesRPS,
			RequestTimeout:    defaultOpenSubtitlesTimeout,
		},
		Trakt: Trakt{
			CredentialsFile: defaultTraktCredentialsFile,
			BaseURL:         defaultTraktBaseURL,
			RequestTimeout:  defaultTraktTimeout,
		},
		Scan: Scan{
			Workers:     defaultScanWorkers,
			OnError:     OnErrorAbort,
			Interactive: true,
			AfterReport: AfterReportKeep,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotificationRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
