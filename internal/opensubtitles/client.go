package opensubtitles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"crost/internal/logging"
	"crost/internal/media"
	"crost/internal/services"
)

const (
	defaultBaseURL     = "https://api.opensubtitles.com/api/v1"
	defaultUserAgent   = "crost/dev"
	defaultHTTPTimeout = 45 * time.Second
)

// Config describes the OpenSubtitles client configuration.
type Config struct {
	APIKey            string
	UserAgent         string
	UserToken         string
	BaseURL           string
	Languages         []string
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// Client wraps the OpenSubtitles REST API.
type Client struct {
	apiKey    string
	userAgent string
	userToken string
	languages string
	baseURL   *url.URL
	http      *http.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("opensubtitles: api key is required")
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("opensubtitles: parse base url: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	languages := make([]string, 0, len(cfg.Languages))
	for _, lang := range cfg.Languages {
		if lang = strings.ToLower(strings.TrimSpace(lang)); lang != "" {
			languages = append(languages, lang)
		}
	}
	return &Client{
		apiKey:    apiKey,
		userAgent: userAgent,
		userToken: strings.TrimSpace(cfg.UserToken),
		languages: strings.Join(languages, ","),
		baseURL:   baseURL,
		http:      client,
		limiter:   newLimiter(cfg.RequestsPerSecond),
		logger:    logging.NewComponentLogger(cfg.Logger, "opensubtitles"),
	}, nil
}

// LookupHashes resolves each distinct fingerprint to its candidate titles.
// Fingerprints without any hash-matched result are absent from the map. The
// first failing request aborts the batch.
func (c *Client) LookupHashes(ctx context.Context, hashes []string) (map[string][]media.Title, error) {
	if c == nil {
		return nil, errors.New("opensubtitles: client is nil")
	}
	out := make(map[string][]media.Title, len(hashes))
	seen := make(map[string]struct{}, len(hashes))
	for _, hash := range hashes {
		hash = strings.ToLower(strings.TrimSpace(hash))
		if hash == "" {
			continue
		}
		if _, ok := seen[hash]; ok {
			continue
		}
		seen[hash] = struct{}{}

		titles, err := c.SearchByHash(ctx, hash)
		if err != nil {
			return nil, err
		}
		if len(titles) > 0 {
			out[hash] = titles
		}
	}
	return out, nil
}

// SearchByHash returns the distinct features whose subtitles were matched by
// moviehash, in the order the service ranked them.
func (c *Client) SearchByHash(ctx context.Context, hash string) ([]media.Title, error) {
	if c == nil {
		return nil, errors.New("opensubtitles: client is nil")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("opensubtitles: wait for rate limiter: %w", err)
	}

	endpoint := c.baseURL.JoinPath("subtitles")
	params := url.Values{}
	params.Set("moviehash", hash)
	if c.languages != "" {
		params.Set("languages", c.languages)
	}
	endpoint.RawQuery = params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("opensubtitles: build search request: %w", err)
	}
	c.applyHeaders(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "lookup", "opensubtitles search", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, services.Wrap(services.ErrExternalService, "lookup", "opensubtitles search",
			fmt.Sprintf("%s: %s", resp.Status, strings.TrimSpace(string(body))), nil)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "lookup", "opensubtitles search", "decode response", err)
	}

	titles := payload.hashMatches()
	c.logger.Debug("moviehash lookup complete",
		logging.String("moviehash", hash),
		logging.Int("results", len(payload.Data)),
		logging.Int("candidates", len(titles)),
	)
	return titles, nil
}

func (c *Client) applyHeaders(req *http.Request) {
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if c.userToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.userToken)
	}
}

type searchResponse struct {
	Data []struct {
		ID         string           `json:"id"`
		Attributes searchAttributes `json:"attributes"`
	} `json:"data"`
	Meta struct {
		Total int `json:"total_count"`
	} `json:"meta"`
}

type searchAttributes struct {
	Language       string         `json:"language"`
	MoviehashMatch bool           `json:"moviehash_match"`
	FeatureDetails featureDetails `json:"feature_details"`
}

type featureDetails struct {
	FeatureID     int64  `json:"feature_id"`
	FeatureType   string `json:"feature_type"`
	Year          int    `json:"year"`
	Title         string `json:"title"`
	MovieName     string `json:"movie_name"`
	IMDBID        int64  `json:"imdb_id"`
	SeasonNumber  int    `json:"season_number"`
	EpisodeNumber int    `json:"episode_number"`
	ParentTitle   string `json:"parent_title"`
}

func (r searchResponse) hashMatches() []media.Title {
	titles := make([]media.Title, 0, len(r.Data))
	seen := make(map[string]struct{}, len(r.Data))
	for _, entry := range r.Data {
		if !entry.Attributes.MoviehashMatch {
			continue
		}
		title := entry.Attributes.FeatureDetails.title()
		key := title.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		titles = append(titles, title)
	}
	return titles
}

func (f featureDetails) title() media.Title {
	kind := media.KindMovie
	if strings.EqualFold(f.FeatureType, "episode") || f.EpisodeNumber > 0 {
		kind = media.KindEpisode
	}

	name := strings.TrimSpace(f.Title)
	if kind == media.KindEpisode {
		if parent := strings.TrimSpace(f.ParentTitle); parent != "" {
			name = strings.TrimSpace(`"` + parent + `" ` + name)
		}
	}
	if name == "" {
		name = strings.TrimSpace(f.MovieName)
	}

	var imdb string
	if f.IMDBID > 0 {
		imdb = strconv.FormatInt(f.IMDBID, 10)
	}
	return media.Title{
		Name:      name,
		Kind:      kind,
		Year:      f.Year,
		Season:    f.SeasonNumber,
		Episode:   f.EpisodeNumber,
		IMDBID:    imdb,
		FeatureID: f.FeatureID,
	}
}
