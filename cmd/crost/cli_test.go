package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"crost/internal/config"
	"crost/internal/moviehash"
	"crost/internal/scrobble"
	"crost/internal/services"
	"crost/internal/testsupport"
)

// zeroFingerprint is the fingerprint of 2*ChunkSize zero bytes.
const zeroFingerprint = "0000000000020000"

func runCLI(t *testing.T, args []string, stdin string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := newRootCommand()
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

type remoteStub struct {
	mu        sync.Mutex
	lookups   []string
	history   []map[string]any
	subtitles *httptest.Server
	trakt     *httptest.Server
}

// newRemoteStub serves OpenSubtitles search results keyed by moviehash and
// accepts every Trakt history submission.
func newRemoteStub(t *testing.T, matches map[string][]map[string]any) *remoteStub {
	t.Helper()
	stub := &remoteStub{}
	stub.subtitles = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hash := r.URL.Query().Get("moviehash")
		stub.mu.Lock()
		stub.lookups = append(stub.lookups, hash)
		stub.mu.Unlock()

		data := make([]map[string]any, 0)
		for _, details := range matches[hash] {
			data = append(data, map[string]any{
				"id": "1",
				"attributes": map[string]any{
					"moviehash_match": true,
					"feature_details": details,
				},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	stub.trakt = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		stub.mu.Lock()
		stub.history = append(stub.history, body)
		stub.mu.Unlock()
		_, _ = io.WriteString(w, `{"added":{"movies":1,"episodes":0},"not_found":{"movies":[],"episodes":[]}}`)
	}))
	t.Cleanup(stub.subtitles.Close)
	t.Cleanup(stub.trakt.Close)
	return stub
}

func movie(id int64, title string, year int, imdb int64) map[string]any {
	return map[string]any{
		"feature_id":   id,
		"feature_type": "Movie",
		"title":        title,
		"year":         year,
		"imdb_id":      imdb,
	}
}

func writeStubConfig(t *testing.T, stub *remoteStub, opts ...testsupport.ConfigOption) (*config.Config, string) {
	t.Helper()
	opts = append([]testsupport.ConfigOption{
		testsupport.WithOpenSubtitlesURL(stub.subtitles.URL),
		testsupport.WithTraktURL(stub.trakt.URL),
	}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	return cfg, testsupport.WriteConfig(t, cfg)
}

func TestHashCommandPlainOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := testsupport.WriteConfig(t, cfg)
	dir := t.TempDir()
	zero := filepath.Join(dir, "zero.bin")
	testsupport.WriteFile(t, zero, 2*moviehash.ChunkSize, 0)

	out, _, err := runCLI(t, []string{"-c", configPath, "hash", zero}, "")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if want := zeroFingerprint + "\t" + zero + "\n"; out != want {
		t.Fatalf("hash output = %q, want %q", out, want)
	}

	out, _, err = runCLI(t, []string{"-c", configPath, "hash", "--short", zero}, "")
	if err != nil {
		t.Fatalf("hash --short: %v", err)
	}
	requireContains(t, out, "00020000\t"+zero)
}

func TestHashCommandReportsFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := testsupport.WriteConfig(t, cfg)
	dir := t.TempDir()
	zero := filepath.Join(dir, "zero.bin")
	small := filepath.Join(dir, "small.bin")
	testsupport.WriteFile(t, zero, 2*moviehash.ChunkSize, 0)
	testsupport.WriteFile(t, small, 100, 0)

	out, stderr, err := runCLI(t, []string{"-c", configPath, "hash", small, zero}, "")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	requireContains(t, out, zeroFingerprint)
	requireContains(t, stderr, small)
}

func TestHashCommandJSON(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := testsupport.WriteConfig(t, cfg)
	zero := filepath.Join(t.TempDir(), "zero.bin")
	testsupport.WriteFile(t, zero, 2*moviehash.ChunkSize, 0)

	out, _, err := runCLI(t, []string{"-c", configPath, "hash", "-o", "json", zero}, "")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	var entries []hashEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(entries) != 1 || entries[0].Fingerprint != zeroFingerprint || entries[0].Size != 2*moviehash.ChunkSize {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestScrobbleReportsAndRemoves(t *testing.T) {
	stub := newRemoteStub(t, map[string][]map[string]any{
		zeroFingerprint: {movie(10, "Blade Runner", 1982, 83658)},
	})
	_, configPath := writeStubConfig(t, stub)

	dir := t.TempDir()
	known := filepath.Join(dir, "known.mkv")
	unknown := filepath.Join(dir, "unknown.mkv")
	testsupport.WriteFile(t, known, 2*moviehash.ChunkSize, 0)
	testsupport.WriteFile(t, unknown, 2*moviehash.ChunkSize, 1)

	out, _, err := runCLI(t, []string{"-c", configPath, "scrobble", "--no-input", "--after-report", "remove", "-o", "json", known, unknown}, "")
	if err != nil {
		t.Fatalf("scrobble: %v", err)
	}

	var summary scrobble.Summary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if len(summary.Files) != 2 {
		t.Fatalf("expected 2 files, got %+v", summary.Files)
	}
	if summary.Files[0].Outcome != scrobble.OutcomeResolved || summary.Files[0].Disposition != scrobble.DispositionRemoved {
		t.Fatalf("known file report = %+v", summary.Files[0])
	}
	if summary.Files[1].Outcome != scrobble.OutcomeUnmatched {
		t.Fatalf("unknown file report = %+v", summary.Files[1])
	}
	if summary.RunID == "" {
		t.Fatal("expected a run id")
	}

	if _, err := os.Stat(known); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected reported file to be removed, stat err = %v", err)
	}
	if _, err := os.Stat(unknown); err != nil {
		t.Fatalf("unmatched file should remain: %v", err)
	}
	if len(stub.history) != 1 {
		t.Fatalf("expected one history post, got %d", len(stub.history))
	}
	movies, _ := stub.history[0]["movies"].([]any)
	if len(movies) != 1 {
		t.Fatalf("unexpected history body: %v", stub.history[0])
	}
}

func TestScrobbleDryRunLeavesFiles(t *testing.T) {
	stub := newRemoteStub(t, map[string][]map[string]any{
		zeroFingerprint: {movie(10, "Blade Runner", 1982, 83658)},
	})
	_, configPath := writeStubConfig(t, stub)
	file := filepath.Join(t.TempDir(), "movie.mkv")
	testsupport.WriteFile(t, file, 2*moviehash.ChunkSize, 0)

	out, _, err := runCLI(t, []string{"-c", configPath, "scrobble", "--dry-run", "--after-report", "remove", file}, "")
	if err != nil {
		t.Fatalf("scrobble: %v", err)
	}
	requireContains(t, out, "dry run")
	requireContains(t, out, "Would have reported 1 movies")
	if len(stub.history) != 0 {
		t.Fatalf("dry run must not post, got %v", stub.history)
	}
	if _, err := os.Stat(file); err != nil {
		t.Fatalf("dry run must keep files: %v", err)
	}
}

func TestScrobblePromptsForAmbiguousMatch(t *testing.T) {
	stub := newRemoteStub(t, map[string][]map[string]any{
		zeroFingerprint: {
			movie(10, "Blade Runner", 1982, 83658),
			movie(11, "Blade Runner 2049", 2017, 1856101),
		},
	})
	cfg, _ := writeStubConfig(t, stub)
	cfg.Scan.Interactive = true
	configPath := testsupport.WriteConfig(t, cfg)
	file := filepath.Join(t.TempDir(), "movie.mkv")
	testsupport.WriteFile(t, file, 2*moviehash.ChunkSize, 0)

	out, _, err := runCLI(t, []string{"-c", configPath, "scrobble", file}, "1\n")
	if err != nil {
		t.Fatalf("scrobble: %v", err)
	}
	requireContains(t, out, "movie.mkv?")
	requireContains(t, out, "Blade Runner 2049")
	if len(stub.history) != 1 {
		t.Fatalf("expected one history post, got %d", len(stub.history))
	}
	movies, _ := stub.history[0]["movies"].([]any)
	item, _ := movies[0].(map[string]any)
	ids, _ := item["ids"].(map[string]any)
	if ids["imdb"] != "tt1856101" {
		t.Fatalf("reported %v, want tt1856101", ids)
	}
}

func TestScrobbleAbortsOnUnreadableFile(t *testing.T) {
	stub := newRemoteStub(t, nil)
	_, configPath := writeStubConfig(t, stub)
	missing := filepath.Join(t.TempDir(), "missing.mkv")

	_, _, err := runCLI(t, []string{"-c", configPath, "scrobble", "--no-input", missing}, "")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(stub.lookups) != 0 {
		t.Fatalf("abort must happen before lookups, got %v", stub.lookups)
	}
}

func TestScrobbleRequiresCredentials(t *testing.T) {
	t.Setenv("OPENSUBTITLES_API_KEY", "")
	cfg := testsupport.NewConfig(t)
	cfg.OpenSubtitles.APIKey = ""
	configPath := testsupport.WriteConfig(t, cfg)
	file := filepath.Join(t.TempDir(), "movie.mkv")
	testsupport.WriteFile(t, file, 2*moviehash.ChunkSize, 0)

	_, _, err := runCLI(t, []string{"-c", configPath, "scrobble", file}, "")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLookupCommandListsCandidates(t *testing.T) {
	stub := newRemoteStub(t, map[string][]map[string]any{
		zeroFingerprint: {
			movie(10, "Blade Runner", 1982, 83658),
			movie(11, "Blade Runner 2049", 2017, 1856101),
		},
	})
	_, configPath := writeStubConfig(t, stub)
	file := filepath.Join(t.TempDir(), "movie.mkv")
	testsupport.WriteFile(t, file, 2*moviehash.ChunkSize, 0)

	out, _, err := runCLI(t, []string{"-c", configPath, "lookup", "-o", "json", file}, "")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	var entries []lookupEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(entries) != 1 || len(entries[0].Candidates) != 2 {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if len(stub.history) != 0 {
		t.Fatal("lookup must not report")
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, "state"))
	t.Setenv("OPENSUBTITLES_API_KEY", "key")
	t.Setenv("TRAKT_CLIENT_ID", "client")
	t.Setenv("TRAKT_ACCESS_TOKEN", "")

	target := filepath.Join(home, "crost.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}

	out, _, err = runCLI(t, []string{"-c", target, "config", "validate"}, "")
	if err != nil {
		t.Fatalf("config validate: %v\n%s", err, out)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "only --dry-run will work")
}

func TestConfigShowMasksSecrets(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := testsupport.WriteConfig(t, cfg)

	out, _, err := runCLI(t, []string{"-c", configPath, "config", "show"}, "")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "test-access-token") {
		t.Fatalf("secret leaked:\n%s", out)
	}
	requireContains(t, out, configPath)
}

func TestTestNotifyCommand(t *testing.T) {
	var got int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	configPath := testsupport.WriteConfig(t, cfg)
	out, _, err := runCLI(t, []string{"-c", configPath, "test-notify"}, "")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Test notification sent")
	if got != 1 {
		t.Fatalf("expected one notification, got %d", got)
	}

	cfg = testsupport.NewConfig(t)
	configPath = testsupport.WriteConfig(t, cfg)
	if _, _, err := runCLI(t, []string{"-c", configPath, "test-notify"}, ""); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error without topic, got %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := runCLI(t, []string{"version", "-o", "yaml"}, "")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, "version:")
}
