package repository

import (
	"context"
	"errors"
	"time"

	"waitwith/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WaitRepository interface {
	GetByUserAndMedia(ctx context.Context, userID string, mediaID int64) (*models.WaitEntry, error)
	Create(ctx context.Context, entry *models.WaitEntry) (*models.WaitEntry, error)
	ListByUser(ctx context.Context, userID string) ([]models.WaitEntryDetail, error)
	LongestByUser(ctx context.Context, userID string) (*models.WaitEntryDetail, error)
	CountByMedia(ctx context.Context, mediaID int64) (int64, error)
}

type waitRepository struct {
	db *pgxpool.Pool
}

func NewWaitRepository(db *pgxpool.Pool) WaitRepository {
	return &waitRepository{db: db}
}

func (r *waitRepository) GetByUserAndMedia(ctx context.Context, userID string, mediaID int64) (*models.WaitEntry, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, media_id, query_name, dday_label, created_at
		FROM wait_entries
		WHERE user_id = $1 AND media_id = $2`,
		userID, mediaID)

	entry, err := scanWaitEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

// Create inserts a wait entry. A concurrent insert of the same
// (user_id, media_id) pair resolves to the existing entry.
func (r *waitRepository) Create(ctx context.Context, entry *models.WaitEntry) (*models.WaitEntry, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO wait_entries (user_id, media_id, query_name, dday_label, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, media_id, query_name, dday_label, created_at`,
		entry.UserID, entry.MediaID, entry.QueryName, entry.DDayLabel, time.Now())

	created, err := scanWaitEntry(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return r.GetByUserAndMedia(ctx, entry.UserID, entry.MediaID)
		}
		return nil, err
	}
	return created, nil
}

const waitDetailQuery = `
	SELECT w.id, w.user_id, w.media_id, w.query_name, w.dday_label, w.created_at,
	       m.id, m.source, m.external_id, m.title, m.content_type, m.release_date,
	       m.director, m.distributor, m.cast_names, m.genres, m.poster_url,
	       m.is_re_release, m.last_updated,
	       (SELECT COUNT(DISTINCT user_id) FROM wait_entries WHERE media_id = m.id) AS waiting_count
	FROM wait_entries w
	JOIN media m ON w.media_id = m.id
	WHERE w.user_id = $1`

func (r *waitRepository) ListByUser(ctx context.Context, userID string) ([]models.WaitEntryDetail, error) {
	rows, err := r.db.Query(ctx, waitDetailQuery+` ORDER BY m.release_date ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []models.WaitEntryDetail
	for rows.Next() {
		detail, err := scanWaitDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, *detail)
	}
	return details, rows.Err()
}

// LongestByUser returns the user's entry with the furthest future release
// date, or nil when the user has no future-dated entries.
func (r *waitRepository) LongestByUser(ctx context.Context, userID string) (*models.WaitEntryDetail, error) {
	row := r.db.QueryRow(ctx,
		waitDetailQuery+` AND m.release_date >= CURRENT_DATE ORDER BY m.release_date DESC LIMIT 1`,
		userID)

	detail, err := scanWaitDetail(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return detail, nil
}

func (r *waitRepository) CountByMedia(ctx context.Context, mediaID int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(DISTINCT user_id) FROM wait_entries WHERE media_id = $1`,
		mediaID).Scan(&count)
	return count, err
}

func scanWaitEntry(row pgx.Row) (*models.WaitEntry, error) {
	var entry models.WaitEntry
	err := row.Scan(&entry.ID, &entry.UserID, &entry.MediaID, &entry.QueryName,
		&entry.DDayLabel, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func scanWaitDetail(row pgx.Row) (*models.WaitEntryDetail, error) {
	var detail models.WaitEntryDetail
	var director, distributor, castNames, genres, posterURL pgtype.Text

	err := row.Scan(
		&detail.Entry.ID, &detail.Entry.UserID, &detail.Entry.MediaID,
		&detail.Entry.QueryName, &detail.Entry.DDayLabel, &detail.Entry.CreatedAt,
		&detail.Media.ID, &detail.Media.Source, &detail.Media.ExternalID,
		&detail.Media.Title, &detail.Media.ContentType, &detail.Media.ReleaseDate,
		&director, &distributor, &castNames, &genres, &posterURL,
		&detail.Media.IsReRelease, &detail.Media.LastUpdated,
		&detail.WaitingCount,
	)
	if err != nil {
		return nil, err
	}

	detail.Media.Director = textPtr(director)
	detail.Media.Distributor = textPtr(distributor)
	detail.Media.CastNames = textPtr(castNames)
	detail.Media.Genres = textPtr(genres)
	detail.Media.PosterURL = textPtr(posterURL)
	return &detail, nil
}
