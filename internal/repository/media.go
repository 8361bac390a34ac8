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

// Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

type MediaRepository interface {
	GetByID(ctx context.Context, id int64) (*models.MediaRecord, error)
	GetBySourceID(ctx context.Context, source, externalID string) (*models.MediaRecord, error)
	Create(ctx context.Context, record *models.MediaRecord) (*models.MediaRecord, error)
}

type mediaRepository struct {
	db *pgxpool.Pool
}

func NewMediaRepository(db *pgxpool.Pool) MediaRepository {
	return &mediaRepository{db: db}
}

const mediaColumns = `id, source, external_id, title, content_type, release_date,
	director, distributor, cast_names, genres, poster_url, is_re_release, last_updated`

func (r *mediaRepository) GetByID(ctx context.Context, id int64) (*models.MediaRecord, error) {
	row := r.db.QueryRow(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = $1`, id)
	return scanMedia(row)
}

func (r *mediaRepository) GetBySourceID(ctx context.Context, source, externalID string) (*models.MediaRecord, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE source = $1 AND external_id = $2`,
		source, externalID)
	return scanMedia(row)
}

// Create inserts a new media record. A concurrent insert of the same
// (source, external_id) is not an error: the existing row is re-fetched and
// returned instead.
func (r *mediaRepository) Create(ctx context.Context, record *models.MediaRecord) (*models.MediaRecord, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO media (source, external_id, title, content_type, release_date,
			director, distributor, cast_names, genres, poster_url, is_re_release, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+mediaColumns,
		record.Source, record.ExternalID, record.Title, record.ContentType, record.ReleaseDate,
		record.Director, record.Distributor, record.CastNames, record.Genres, record.PosterURL,
		record.IsReRelease, time.Now())

	created, err := scanMedia(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return r.GetBySourceID(ctx, record.Source, record.ExternalID)
		}
		return nil, err
	}
	return created, nil
}

func scanMedia(row pgx.Row) (*models.MediaRecord, error) {
	var record models.MediaRecord
	var director, distributor, castNames, genres, posterURL pgtype.Text

	err := row.Scan(
		&record.ID, &record.Source, &record.ExternalID, &record.Title, &record.ContentType,
		&record.ReleaseDate, &director, &distributor, &castNames, &genres, &posterURL,
		&record.IsReRelease, &record.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	record.Director = textPtr(director)
	record.Distributor = textPtr(distributor)
	record.CastNames = textPtr(castNames)
	record.Genres = textPtr(genres)
	record.PosterURL = textPtr(posterURL)
	return &record, nil
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}
