package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"waitwith/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	sourceTMDb = "tmdb"

	defaultTimeout  = 10 * time.Second
	maxResponseSize = 5 * 1024 * 1024

	searchCachePrefix  = "tmdb:search:"
	detailsCachePrefix = "tmdb:details:"
	searchCacheTTL     = 4 * time.Hour
	detailsCacheTTL    = 1 * time.Hour

	// TMDb release type 5 marks a re-release.
	releaseTypeReRelease = 5

	castLimit = 5
)

var (
	ErrEmptyQuery        = errors.New("query must not be empty")
	ErrNotFound          = errors.New("no matching title found")
	ErrNoUpcomingRelease = errors.New("no upcoming release date")
	ErrUpstream          = errors.New("catalog request failed")
)

type TMDbClient struct {
	apiKey    string
	baseURL   string
	imageBase string
	language  string
	region    string

	httpClient *http.Client
	limiter    *rate.Limiter
	redis      *redis.Client
	logger     *logrus.Logger
	now        func() time.Time
}

type TMDbConfig struct {
	APIKey    string
	BaseURL   string
	ImageBase string
	Language  string
	Region    string
	Timeout   time.Duration
	Redis     *redis.Client
	Logger    *logrus.Logger
	Now       func() time.Time
}

func NewTMDbClient(cfg *TMDbConfig) *TMDbClient {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &TMDbClient{
		apiKey:    cfg.APIKey,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		imageBase: strings.TrimRight(cfg.ImageBase, "/"),
		language:  cfg.Language,
		region:    cfg.Region,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Every(time.Second/4), 4),
		redis:   cfg.Redis,
		logger:  cfg.Logger,
		now:     cfg.Now,
	}
}

// SearchMovie resolves a free-text movie query to one concrete upcoming
// release with display metadata.
func (c *TMDbClient) SearchMovie(ctx context.Context, params models.SearchParams) (*models.ResolvedMediaInfo, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, ErrEmptyQuery
	}

	region := orDefault(params.Region, c.region)
	language := orDefault(params.Language, c.language)

	c.logger.WithFields(logrus.Fields{"title": title, "region": region}).Info("Searching TMDb for movie")

	query := url.Values{}
	query.Set("query", title)
	query.Set("include_adult", "false")
	query.Set("language", language)
	if params.Year > 0 {
		query.Set("year", strconv.Itoa(params.Year))
	}
	if region != "" {
		query.Set("region", region)
	}

	var search models.TMDbSearchResponse
	if err := c.get(ctx, "/search/movie", query, searchCachePrefix+"movie:"+query.Encode(), searchCacheTTL, &search); err != nil {
		return nil, err
	}
	if len(search.Results) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, title)
	}

	candidate := c.selectCandidate(search.Results, func(r models.TMDbSearchResult) string { return r.ReleaseDate })

	detailsQuery := url.Values{}
	detailsQuery.Set("language", language)
	detailsQuery.Set("append_to_response", "credits,release_dates")
	path := fmt.Sprintf("/movie/%d", candidate.ID)

	var details models.TMDbMovieDetails
	if err := c.get(ctx, path, detailsQuery, detailsCachePrefix+"movie:"+strconv.Itoa(candidate.ID)+":"+language, detailsCacheTTL, &details); err != nil {
		return nil, err
	}

	release := c.selectRelease(details.ReleaseDates, region)
	if release == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoUpcomingRelease, title)
	}

	resolvedTitle := details.Title
	if resolvedTitle == "" {
		resolvedTitle = candidate.Title
	}
	if resolvedTitle == "" {
		resolvedTitle = title
	}

	return &models.ResolvedMediaInfo{
		Title:       resolvedTitle,
		ReleaseDate: release.date,
		ContentType: models.ContentMovie,
		Overview:    details.Overview,
		Distributor: joinCompanies(details.ProductionCompanies),
		Director:    extractDirector(details.Credits),
		Cast:        extractCast(details.Credits),
		Genres:      genreNames(details.Genres),
		PosterURL:   c.posterURL(details.PosterPath, candidate.PosterPath),
		Source:      sourceTMDb,
		ExternalID:  strconv.Itoa(details.ID),
		IsReRelease: release.reRelease,
	}, nil
}

// SearchTV resolves a TV series query. TMDb has no per-region release type
// taxonomy for series, so the first air date is the release date and a series
// already on air cannot seed a countdown.
func (c *TMDbClient) SearchTV(ctx context.Context, params models.SearchParams) (*models.ResolvedMediaInfo, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, ErrEmptyQuery
	}

	language := orDefault(params.Language, c.language)
	c.logger.WithField("title", title).Info("Searching TMDb for TV series")

	query := url.Values{}
	query.Set("query", title)
	query.Set("include_adult", "false")
	query.Set("language", language)
	if params.Year > 0 {
		query.Set("first_air_date_year", strconv.Itoa(params.Year))
	}

	var search models.TMDbSearchResponse
	if err := c.get(ctx, "/search/tv", query, searchCachePrefix+"tv:"+query.Encode(), searchCacheTTL, &search); err != nil {
		return nil, err
	}
	if len(search.Results) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, title)
	}

	candidate := c.selectCandidate(search.Results, func(r models.TMDbSearchResult) string { return r.FirstAirDate })

	detailsQuery := url.Values{}
	detailsQuery.Set("language", language)
	detailsQuery.Set("append_to_response", "credits")
	path := fmt.Sprintf("/tv/%d", candidate.ID)

	var details models.TMDbTVDetails
	if err := c.get(ctx, path, detailsQuery, detailsCachePrefix+"tv:"+strconv.Itoa(candidate.ID)+":"+language, detailsCacheTTL, &details); err != nil {
		return nil, err
	}

	airDate, ok := parseDate(details.FirstAirDate)
	if !ok {
		airDate, ok = parseDate(candidate.FirstAirDate)
	}
	if !ok || airDate.Before(dateOnly(c.now())) {
		return nil, fmt.Errorf("%w: %q", ErrNoUpcomingRelease, title)
	}

	resolvedTitle := details.Name
	if resolvedTitle == "" {
		resolvedTitle = candidate.Name
	}
	if resolvedTitle == "" {
		resolvedTitle = title
	}

	var director string
	if len(details.CreatedBy) > 0 {
		director = details.CreatedBy[0].Name
	}

	return &models.ResolvedMediaInfo{
		Title:       resolvedTitle,
		ReleaseDate: airDate,
		ContentType: models.ContentTV,
		Overview:    details.Overview,
		Distributor: joinCompanies(details.Networks),
		Director:    director,
		Cast:        extractCast(details.Credits),
		Genres:      genreNames(details.Genres),
		PosterURL:   c.posterURL(details.PosterPath, candidate.PosterPath),
		Source:      sourceTMDb,
		ExternalID:  strconv.Itoa(details.ID),
		IsReRelease: false,
	}, nil
}

// selectCandidate prefers the soonest upcoming title; with nothing upcoming
// it falls back to the most recently released one. Candidates without a
// parsable date only matter when no candidate has one at all.
func (c *TMDbClient) selectCandidate(results []models.TMDbSearchResult, dateOf func(models.TMDbSearchResult) string) models.TMDbSearchResult {
	today := dateOnly(c.now())

	type dated struct {
		date   time.Time
		result models.TMDbSearchResult
	}
	var future, past []dated

	for _, r := range results {
		d, ok := parseDate(dateOf(r))
		if !ok {
			continue
		}
		if !d.Before(today) {
			future = append(future, dated{d, r})
		} else {
			past = append(past, dated{d, r})
		}
	}

	if len(future) > 0 {
		earliest := future[0]
		for _, item := range future[1:] {
			if item.date.Before(earliest.date) {
				earliest = item
			}
		}
		return earliest.result
	}
	if len(past) > 0 {
		latest := past[0]
		for _, item := range past[1:] {
			if item.date.After(latest.date) {
				latest = item
			}
		}
		return latest.result
	}
	return results[0]
}

type resolvedRelease struct {
	date      time.Time
	reRelease bool
}

// selectRelease picks the earliest date from the first non-empty bucket, in
// strict priority order: requested-region original, requested-region
// re-release, any-region original, any-region re-release. Only dates from
// today onward qualify.
func (c *TMDbClient) selectRelease(payload models.TMDbReleaseDates, region string) *resolvedRelease {
	today := dateOnly(c.now())

	var preferredOriginal, preferredReRelease, fallbackOriginal, fallbackReRelease []resolvedRelease

	for _, entry := range payload.Results {
		preferred := region == "" || entry.Region == region
		for _, info := range entry.ReleaseDates {
			parsed, ok := parseDate(info.ReleaseDate)
			if !ok {
				// Upstream sometimes ships undated entries; skip but keep a trace.
				c.logger.WithFields(logrus.Fields{
					"region": entry.Region,
					"raw":    info.ReleaseDate,
				}).Debug("Skipping release entry with unparsable date")
				continue
			}
			if parsed.Before(today) {
				continue
			}

			release := resolvedRelease{date: parsed, reRelease: info.Type == releaseTypeReRelease}
			switch {
			case preferred && !release.reRelease:
				preferredOriginal = append(preferredOriginal, release)
			case preferred && release.reRelease:
				preferredReRelease = append(preferredReRelease, release)
			case !release.reRelease:
				fallbackOriginal = append(fallbackOriginal, release)
			default:
				fallbackReRelease = append(fallbackReRelease, release)
			}
		}
	}

	for _, bucket := range [][]resolvedRelease{preferredOriginal, preferredReRelease, fallbackOriginal, fallbackReRelease} {
		if len(bucket) == 0 {
			continue
		}
		earliest := bucket[0]
		for _, release := range bucket[1:] {
			if release.date.Before(earliest.date) {
				earliest = release
			}
		}
		return &earliest
	}
	return nil
}

func (c *TMDbClient) get(ctx context.Context, path string, query url.Values, cacheKey string, ttl time.Duration, out any) error {
	if c.apiKey == "" {
		return fmt.Errorf("%w: TMDB_API_KEY is not configured", ErrUpstream)
	}

	if c.redis != nil {
		cached, err := c.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			if jsonErr := json.Unmarshal([]byte(cached), out); jsonErr == nil {
				c.logger.WithField("key", cacheKey).Debug("TMDb response served from cache")
				return nil
			}
			c.logger.WithField("key", cacheKey).Warn("Failed to unmarshal cached TMDb response")
		} else if err != redis.Nil {
			c.logger.WithError(err).Warn("Failed to read from Redis")
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	query.Set("api_key", c.apiKey)
	requestURL := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: TMDb returned status %d", ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if c.redis != nil {
		if err := c.redis.Set(ctx, cacheKey, body, ttl).Err(); err != nil {
			c.logger.WithError(err).Warn("Failed to write TMDb response to cache")
		}
	}
	return nil
}

func (c *TMDbClient) posterURL(paths ...string) string {
	for _, p := range paths {
		if p != "" {
			return c.imageBase + p
		}
	}
	return ""
}

// parseDate reads the leading YYYY-MM-DD of a TMDb date string. Empty or
// unparsable values mean "no date", never an error.
func parseDate(raw string) (time.Time, bool) {
	if len(raw) < 10 {
		return time.Time{}, false
	}
	parsed, err := time.Parse("2006-01-02", raw[:10])
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func joinCompanies(companies []models.TMDbCompany) string {
	names := make([]string, 0, len(companies))
	for _, company := range companies {
		if company.Name != "" {
			names = append(names, company.Name)
		}
	}
	return strings.Join(names, ", ")
}

func extractDirector(credits models.TMDbCredits) string {
	for _, member := range credits.Crew {
		if member.Job == "Director" && member.Name != "" {
			return member.Name
		}
	}
	return ""
}

func extractCast(credits models.TMDbCredits) []string {
	var names []string
	for _, person := range credits.Cast {
		if person.Name == "" {
			continue
		}
		names = append(names, person.Name)
		if len(names) == castLimit {
			break
		}
	}
	return names
}

func genreNames(genres []models.TMDbGenre) []string {
	names := make([]string, 0, len(genres))
	for _, genre := range genres {
		names = append(names, genre.Name)
	}
	return names
}
