package models

import (
	"strings"
	"time"
)

// SearchParams carries a catalog search request. Both the direct call path
// and the assistant tool calls produce this struct.
type SearchParams struct {
	Title    string `json:"title"`
	Year     int    `json:"year,omitempty"`
	Region   string `json:"region,omitempty"`
	Language string `json:"language,omitempty"`
}

// ResolvedMediaInfo is the resolver's output: one concrete release date plus
// the metadata needed to build a MediaRecord.
type ResolvedMediaInfo struct {
	Title       string      `json:"title"`
	ReleaseDate time.Time   `json:"release_date"`
	ContentType ContentType `json:"content_type"`
	Overview    string      `json:"overview,omitempty"`
	Distributor string      `json:"distributor,omitempty"`
	Director    string      `json:"director,omitempty"`
	Cast        []string    `json:"cast,omitempty"`
	Genres      []string    `json:"genre,omitempty"`
	PosterURL   string      `json:"poster_url,omitempty"`
	Source      string      `json:"source"`
	ExternalID  string      `json:"external_id"`
	IsReRelease bool        `json:"is_re_release"`
}

func (m *ResolvedMediaInfo) CastAsString() string {
	return strings.Join(m.Cast, ", ")
}

func (m *ResolvedMediaInfo) GenresAsString() string {
	return strings.Join(m.Genres, ", ")
}
