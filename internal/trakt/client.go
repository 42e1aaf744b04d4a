package trakt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"crost/internal/logging"
	"crost/internal/media"
	"crost/internal/services"
)

const (
	defaultBaseURL     = "https://api.trakt.tv"
	defaultHTTPTimeout = 30 * time.Second
	apiVersion         = "2"
)

// Config describes the Trakt client configuration.
type Config struct {
	ClientID    string
	AccessToken string
	BaseURL     string
	DryRun      bool
	HTTPClient  *http.Client
	Logger      *slog.Logger
	Now         func() time.Time
}

// Client posts watch history to Trakt.
type Client struct {
	clientID    string
	accessToken string
	baseURL     *url.URL
	dryRun      bool
	http        *http.Client
	logger      *slog.Logger
	now         func() time.Time
}

// Counts holds per-kind totals.
type Counts struct {
	Movies   int `json:"movies" yaml:"movies"`
	Episodes int `json:"episodes" yaml:"episodes"`
}

// Result describes the outcome of a Report call.
type Result struct {
	DryRun    bool     `json:"dry_run" yaml:"dry_run"`
	Submitted Counts   `json:"submitted" yaml:"submitted"`
	Added     Counts   `json:"added" yaml:"added"`
	NotFound  []string `json:"not_found,omitempty" yaml:"not_found,omitempty"`
	Ignored   []string `json:"ignored,omitempty" yaml:"ignored,omitempty"`
}

// New creates a Client. The access token may be empty for dry runs.
func New(cfg Config) (*Client, error) {
	clientID := strings.TrimSpace(cfg.ClientID)
	if clientID == "" {
		return nil, services.Wrap(services.ErrConfiguration, "report", "trakt", "client id is required", nil)
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" && !cfg.DryRun {
		return nil, services.Wrap(services.ErrConfiguration, "report", "trakt", "access token is required", nil)
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("trakt: parse base url: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		clientID:    clientID,
		accessToken: token,
		baseURL:     baseURL,
		dryRun:      cfg.DryRun,
		http:        client,
		logger:      logging.NewComponentLogger(cfg.Logger, "trakt"),
		now:         now,
	}, nil
}

// DryRun reports whether the client only logs what it would send.
func (c *Client) DryRun() bool {
	return c != nil && c.dryRun
}

// Report adds titles to the user's watch history. Titles without an IMDb id
// cannot be keyed and are returned in Result.Ignored. An empty set sends
// nothing.
func (c *Client) Report(ctx context.Context, titles []media.Title) (Result, error) {
	if c == nil {
		return Result{}, errors.New("trakt: client is nil")
	}
	payload, ignored := c.buildPayload(titles)
	result := Result{
		DryRun:    c.dryRun,
		Submitted: Counts{Movies: len(payload.Movies), Episodes: len(payload.Episodes)},
		Ignored:   ignored,
	}
	for _, name := range ignored {
		logging.WarnWithContext(c.logger, "title has no imdb id", "trakt_title_ignored",
			logging.String("title", name),
			logging.String(logging.FieldImpact, "title will not be reported"),
		)
	}
	if payload.empty() {
		c.logger.Info("nothing to report")
		return result, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return result, fmt.Errorf("trakt: encode history: %w", err)
	}
	if c.dryRun {
		c.logger.Info("would have posted", logging.String("payload", string(body)))
		return result, nil
	}

	endpoint := c.baseURL.JoinPath("sync", "history")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return result, fmt.Errorf("trakt: build history request: %w", err)
	}
	c.applyHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return result, services.Wrap(services.ErrTransient, "report", "trakt history", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return result, services.Wrap(services.ErrExternalService, "report", "trakt history",
			fmt.Sprintf("%s: %s", resp.Status, strings.TrimSpace(string(snippet))), nil)
	}

	var decoded historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return result, services.Wrap(services.ErrExternalService, "report", "trakt history", "decode response", err)
	}
	result.Added = decoded.Added
	result.NotFound = decoded.NotFound.ids()
	c.logger.Info("history updated",
		logging.Int("movies_added", result.Added.Movies),
		logging.Int("episodes_added", result.Added.Episodes),
		logging.Int("not_found", len(result.NotFound)),
	)
	return result, nil
}

func (c *Client) applyHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("trakt-api-version", apiVersion)
	req.Header.Set("trakt-api-key", c.clientID)
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
}

func (c *Client) buildPayload(titles []media.Title) (historyRequest, []string) {
	var payload historyRequest
	var ignored []string
	seen := make(map[string]struct{}, len(titles))
	watchedAt := c.now().UTC().Format(time.RFC3339)
	for _, title := range titles {
		tag := title.IMDBTag()
		if tag == "" {
			ignored = append(ignored, title.Display())
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		item := historyItem{IDs: itemIDs{IMDB: tag}, WatchedAt: watchedAt}
		if title.IsEpisode() {
			payload.Episodes = append(payload.Episodes, item)
		} else {
			payload.Movies = append(payload.Movies, item)
		}
	}
	return payload, ignored
}

type historyRequest struct {
	Movies   []historyItem `json:"movies,omitempty"`
	Episodes []historyItem `json:"episodes,omitempty"`
}

func (r historyRequest) empty() bool {
	return len(r.Movies) == 0 && len(r.Episodes) == 0
}

type historyItem struct {
	IDs       itemIDs `json:"ids"`
	WatchedAt string  `json:"watched_at,omitempty"`
}

type itemIDs struct {
	IMDB string `json:"imdb"`
}

type historyResponse struct {
	Added    Counts   `json:"added"`
	NotFound notFound `json:"not_found"`
}

type notFound struct {
	Movies   []historyItem `json:"movies"`
	Episodes []historyItem `json:"episodes"`
}

func (n notFound) ids() []string {
	var out []string
	for _, item := range n.Movies {
		out = append(out, item.IDs.IMDB)
	}
	for _, item := range n.Episodes {
		out = append(out, item.IDs.IMDB)
	}
	return out
}
