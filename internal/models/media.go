package models

import "time"

type ContentType string

const (
	ContentMovie ContentType = "movie"
	ContentTV    ContentType = "tv"
)

// MediaRecord is a de-duplicated catalog title. (source, external_id) is
// unique; concurrent registrations of the same title converge on one row.
type MediaRecord struct {
	ID          int64       `json:"id" db:"id"`
	Source      string      `json:"source" db:"source"`
	ExternalID  string      `json:"external_id" db:"external_id"`
	Title       string      `json:"title" db:"title"`
	ContentType ContentType `json:"content_type" db:"content_type"`
	ReleaseDate time.Time   `json:"release_date" db:"release_date"`
	Director    *string     `json:"director" db:"director"`
	Distributor *string     `json:"distributor" db:"distributor"`
	CastNames   *string     `json:"cast" db:"cast_names"`
	Genres      *string     `json:"genre" db:"genres"`
	PosterURL   *string     `json:"poster_url" db:"poster_url"`
	IsReRelease bool        `json:"is_re_release" db:"is_re_release"`
	LastUpdated time.Time   `json:"last_updated" db:"last_updated"`
}

// WaitEntry is one user's subscription to a MediaRecord. (user_id, media_id)
// is unique. DDayLabel is a cache from creation time; views recompute it.
type WaitEntry struct {
	ID        int64     `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	MediaID   int64     `json:"media_id" db:"media_id"`
	QueryName string    `json:"query_name" db:"query_name"`
	DDayLabel string    `json:"dday_label" db:"dday_label"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// WaitEntryDetail joins a WaitEntry with its MediaRecord and the live count
// of users waiting on the same record.
type WaitEntryDetail struct {
	Entry        WaitEntry   `json:"entry"`
	Media        MediaRecord `json:"media"`
	WaitingCount int64       `json:"waiting_count"`
}

// DDayView is the user-facing rendering of a wait entry. The label is always
// freshly computed for "today" when the view is built.
type DDayView struct {
	Name           string      `json:"name"`
	Title          string      `json:"title"`
	ContentType    ContentType `json:"content_type"`
	ReleaseDate    string      `json:"release_date"`
	DDay           string      `json:"dday"`
	WaitingCount   int64       `json:"waiting_count"`
	AlreadyWaiting bool        `json:"already_waiting"`
	Message        string      `json:"message,omitempty"`
	PosterURL      *string     `json:"poster_url,omitempty"`
	Distributor    *string     `json:"distributor,omitempty"`
	Director       *string     `json:"director,omitempty"`
	Cast           []string    `json:"cast,omitempty"`
	Genre          []string    `json:"genre,omitempty"`
	Source         string      `json:"source"`
	ExternalID     string      `json:"external_id"`
}
