package main

import (
	"log/slog"
	"net/http"

	"crost/internal/config"
	"crost/internal/opensubtitles"
	"crost/internal/trakt"
)

func newLookupClient(cfg *config.Config, logger *slog.Logger) (*opensubtitles.Client, error) {
	if err := cfg.RequireOpenSubtitles(); err != nil {
		return nil, err
	}
	return opensubtitles.New(opensubtitles.Config{
		APIKey:            cfg.OpenSubtitles.APIKey,
		UserAgent:         cfg.OpenSubtitles.UserAgent,
		UserToken:         cfg.OpenSubtitles.UserToken,
		BaseURL:           cfg.OpenSubtitles.BaseURL,
		Languages:         cfg.OpenSubtitles.Languages,
		RequestsPerSecond: cfg.OpenSubtitles.RequestsPerSecond,
		HTTPClient:        &http.Client{Timeout: cfg.OpenSubtitlesTimeout()},
		Logger:            logger,
	})
}

func newReportClient(cfg *config.Config, dryRun bool, logger *slog.Logger) (*trakt.Client, error) {
	if err := cfg.RequireTrakt(dryRun); err != nil {
		return nil, err
	}
	return trakt.New(trakt.Config{
		ClientID:    cfg.Trakt.ClientID,
		AccessToken: cfg.Trakt.AccessToken,
		BaseURL:     cfg.Trakt.BaseURL,
		DryRun:      dryRun,
		HTTPClient:  &http.Client{Timeout: cfg.TraktTimeout()},
		Logger:      logger,
	})
}
