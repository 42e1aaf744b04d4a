package media

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind distinguishes movies from TV episodes.
type Kind string

const (
	KindMovie   Kind = "movie"
	KindEpisode Kind = "episode"
)

// Title is one identification of a video file.
type Title struct {
	Name      string `json:"name" yaml:"name"`
	Kind      Kind   `json:"kind" yaml:"kind"`
	Year      int    `json:"year,omitempty" yaml:"year,omitempty"`
	Season    int    `json:"season,omitempty" yaml:"season,omitempty"`
	Episode   int    `json:"episode,omitempty" yaml:"episode,omitempty"`
	IMDBID    string `json:"imdb_id,omitempty" yaml:"imdb_id,omitempty"`
	FeatureID int64  `json:"feature_id,omitempty" yaml:"feature_id,omitempty"`
}

// Key identifies the title for deduplication. IMDb ids win; titles without
// one fall back to the lookup service feature id, then to the display string.
func (t Title) Key() string {
	if id := NormalizeIMDBID(t.IMDBID); id != "" {
		return "imdb:" + id
	}
	if t.FeatureID > 0 {
		return "feature:" + strconv.FormatInt(t.FeatureID, 10)
	}
	return "name:" + t.Display()
}

// IsEpisode reports whether the title is a TV episode.
func (t Title) IsEpisode() bool {
	return t.Kind == KindEpisode || t.Episode > 0
}

// Display renders "Name[ SxE] (Year, IMDB:id)".
func (t Title) Display() string {
	var b strings.Builder
	name := strings.TrimSpace(t.Name)
	if name == "" {
		name = "Unknown"
	}
	b.WriteString(name)
	if t.Episode > 0 {
		fmt.Fprintf(&b, " %dx%d", t.Season, t.Episode)
	}
	year := "?"
	if t.Year > 0 {
		year = strconv.Itoa(t.Year)
	}
	id := NormalizeIMDBID(t.IMDBID)
	if id == "" {
		id = "?"
	}
	fmt.Fprintf(&b, " (%s, IMDB:%s)", year, id)
	return b.String()
}

// IMDBTag returns the "tt"-prefixed IMDb id, zero padded to seven digits, or
// an empty string when the title has no IMDb id.
func (t Title) IMDBTag() string {
	id := NormalizeIMDBID(t.IMDBID)
	if id == "" {
		return ""
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("tt%07d", n)
}

// NormalizeIMDBID strips a "tt" prefix and leading zeros, returning the bare
// digits. Values that are not numeric yield "".
func NormalizeIMDBID(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	value = strings.TrimPrefix(value, "tt")
	if value == "" {
		return ""
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		return ""
	}
	return strconv.FormatInt(n, 10)
}
