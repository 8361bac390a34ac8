package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"waitwith/internal/models"
)

// In-memory repositories mirroring the postgres behavior, including the
// "unique violation resolves to the existing row" recovery.

type fakeMediaRepo struct {
	records []*models.MediaRecord
	nextID  int64
}

func newFakeMediaRepo() *fakeMediaRepo {
	return &fakeMediaRepo{nextID: 1}
}

func (f *fakeMediaRepo) GetByID(_ context.Context, id int64) (*models.MediaRecord, error) {
	for _, r := range f.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeMediaRepo) GetBySourceID(_ context.Context, source, externalID string) (*models.MediaRecord, error) {
	for _, r := range f.records {
		if r.Source == source && r.ExternalID == externalID {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeMediaRepo) Create(ctx context.Context, record *models.MediaRecord) (*models.MediaRecord, error) {
	if existing, _ := f.GetBySourceID(ctx, record.Source, record.ExternalID); existing != nil {
		return existing, nil
	}
	stored := *record
	stored.ID = f.nextID
	stored.LastUpdated = time.Now()
	f.nextID++
	f.records = append(f.records, &stored)
	return &stored, nil
}

type fakeWaitRepo struct {
	media   *fakeMediaRepo
	entries []*models.WaitEntry
	nextID  int64
	now     func() time.Time
}

func newFakeWaitRepo(media *fakeMediaRepo) *fakeWaitRepo {
	return &fakeWaitRepo{media: media, nextID: 1, now: time.Now}
}

func (f *fakeWaitRepo) GetByUserAndMedia(_ context.Context, userID string, mediaID int64) (*models.WaitEntry, error) {
	for _, e := range f.entries {
		if e.UserID == userID && e.MediaID == mediaID {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeWaitRepo) Create(ctx context.Context, entry *models.WaitEntry) (*models.WaitEntry, error) {
	if existing, _ := f.GetByUserAndMedia(ctx, entry.UserID, entry.MediaID); existing != nil {
		return existing, nil
	}
	stored := *entry
	stored.ID = f.nextID
	stored.CreatedAt = time.Now()
	f.nextID++
	f.entries = append(f.entries, &stored)
	return &stored, nil
}

func (f *fakeWaitRepo) ListByUser(ctx context.Context, userID string) ([]models.WaitEntryDetail, error) {
	var details []models.WaitEntryDetail
	for _, e := range f.entries {
		if e.UserID != userID {
			continue
		}
		record, _ := f.media.GetByID(ctx, e.MediaID)
		if record == nil {
			return nil, fmt.Errorf("missing media %d", e.MediaID)
		}
		count, _ := f.CountByMedia(ctx, e.MediaID)
		details = append(details, models.WaitEntryDetail{Entry: *e, Media: *record, WaitingCount: count})
	}
	sort.Slice(details, func(i, j int) bool {
		return details[i].Media.ReleaseDate.Before(details[j].Media.ReleaseDate)
	})
	return details, nil
}

func (f *fakeWaitRepo) LongestByUser(ctx context.Context, userID string) (*models.WaitEntryDetail, error) {
	details, err := f.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := dateOnly(f.now())
	var longest *models.WaitEntryDetail
	for i := range details {
		if details[i].Media.ReleaseDate.Before(today) {
			continue
		}
		if longest == nil || details[i].Media.ReleaseDate.After(longest.Media.ReleaseDate) {
			longest = &details[i]
		}
	}
	return longest, nil
}

func (f *fakeWaitRepo) CountByMedia(_ context.Context, mediaID int64) (int64, error) {
	seen := map[string]bool{}
	for _, e := range f.entries {
		if e.MediaID == mediaID {
			seen[e.UserID] = true
		}
	}
	return int64(len(seen)), nil
}

type fakeResolver struct {
	info  *models.ResolvedMediaInfo
	err   error
	calls int
}

func (f *fakeResolver) Resolve(_ context.Context, _ string) (*models.ResolvedMediaInfo, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

type panicResolver struct{}

func (panicResolver) Resolve(_ context.Context, _ string) (*models.ResolvedMediaInfo, error) {
	panic("resolver exploded")
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func sampleInfo() *models.ResolvedMediaInfo {
	return &models.ResolvedMediaInfo{
		Title:       "프로젝트 헤일메리",
		ReleaseDate: date(2026, time.March, 18),
		ContentType: models.ContentMovie,
		Overview:    "테스트",
		Distributor: "테스트 배급",
		Director:    "테스트 감독",
		Cast:        []string{"배우 A", "배우 B"},
		Genres:      []string{"SF"},
		PosterURL:   "https://image.example/t/poster.jpg",
		Source:      "tmdb",
		ExternalID:  "123",
	}
}
