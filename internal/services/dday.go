package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"waitwith/internal/models"
	"waitwith/internal/repository"

	"github.com/sirupsen/logrus"
)

const (
	msgAlreadyWaiting = "이미 등록된 개봉일입니다. 모두 함께 기다리고 있어요."
	msgNewDDay        = "새로운 D-Day를 기록했습니다."
)

// Label returns the canonical D-Day label for a release date: "D-n" before
// the day, "D-DAY" on the day, "D+n" after. Whole calendar days only.
func Label(release, today time.Time) string {
	delta := int(dateOnly(release).Sub(dateOnly(today)).Hours() / 24)
	if delta > 0 {
		return fmt.Sprintf("D-%d", delta)
	}
	if delta == 0 {
		return "D-DAY"
	}
	return fmt.Sprintf("D+%d", -delta)
}

// MediaResolver turns a free-text query into release metadata. Two
// implementations exist: a direct TMDb lookup and an assistant-mediated one.
type MediaResolver interface {
	Resolve(ctx context.Context, query string) (*models.ResolvedMediaInfo, error)
}

type DDayService struct {
	resolver MediaResolver
	media    repository.MediaRepository
	waits    repository.WaitRepository
	logger   *logrus.Logger
	now      func() time.Time
}

func NewDDayService(resolver MediaResolver, media repository.MediaRepository, waits repository.WaitRepository, logger *logrus.Logger) *DDayService {
	return &DDayService{
		resolver: resolver,
		media:    media,
		waits:    waits,
		logger:   logger,
		now:      time.Now,
	}
}

// Register resolves a query and subscribes the user to the result. A second
// registration of the same title by the same user returns the existing entry.
func (s *DDayService) Register(ctx context.Context, userID, rawQuery string) (*models.DDayView, error) {
	name := strings.TrimSpace(rawQuery)
	if name == "" {
		return nil, ErrEmptyQuery
	}

	info, err := s.resolver.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	return s.RegisterResolved(ctx, userID, name, info)
}

// RegisterResolved persists an already-resolved title for the user. The
// chat stream calls this after the user confirms a preview.
func (s *DDayService) RegisterResolved(ctx context.Context, userID, name string, info *models.ResolvedMediaInfo) (*models.DDayView, error) {
	record, err := s.media.GetBySourceID(ctx, info.Source, info.ExternalID)
	if err != nil {
		return nil, err
	}

	if record != nil {
		entry, err := s.waits.GetByUserAndMedia(ctx, userID, record.ID)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			return s.buildView(ctx, name, record, true, msgAlreadyWaiting)
		}
	} else {
		record, err = s.media.Create(ctx, s.recordFromInfo(info))
		if err != nil {
			return nil, err
		}
	}

	entry := &models.WaitEntry{
		UserID:    userID,
		MediaID:   record.ID,
		QueryName: name,
		DDayLabel: Label(record.ReleaseDate, s.now()),
	}
	if _, err := s.waits.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":     userID,
		"title":       record.Title,
		"external_id": record.ExternalID,
	}).Info("Wait entry created")

	return s.buildView(ctx, name, record, false, msgNewDDay)
}

// Preview reports whether the resolved title already has a record and
// whether this user already waits on it, without writing anything.
func (s *DDayService) Preview(ctx context.Context, userID string, info *models.ResolvedMediaInfo) (record *models.MediaRecord, hasEntry bool, count int64, err error) {
	record, err = s.media.GetBySourceID(ctx, info.Source, info.ExternalID)
	if err != nil || record == nil {
		return record, false, 0, err
	}

	entry, err := s.waits.GetByUserAndMedia(ctx, userID, record.ID)
	if err != nil {
		return nil, false, 0, err
	}

	count, err = s.waits.CountByMedia(ctx, record.ID)
	if err != nil {
		return nil, false, 0, err
	}
	return record, entry != nil, count, nil
}

// Confirm creates the wait entry a streaming preview deferred. The record
// must already exist.
func (s *DDayService) Confirm(ctx context.Context, userID, source, externalID, query string) (*models.DDayView, error) {
	record, err := s.media.GetBySourceID(ctx, source, externalID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, source, externalID)
	}

	name := strings.TrimSpace(query)
	if name == "" {
		name = record.Title
	}

	entry, err := s.waits.GetByUserAndMedia(ctx, userID, record.ID)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		return s.buildView(ctx, name, record, true, msgAlreadyWaiting)
	}

	newEntry := &models.WaitEntry{
		UserID:    userID,
		MediaID:   record.ID,
		QueryName: name,
		DDayLabel: Label(record.ReleaseDate, s.now()),
	}
	if _, err := s.waits.Create(ctx, newEntry); err != nil {
		return nil, err
	}
	return s.buildView(ctx, name, record, false, msgNewDDay)
}

// ListMine returns the user's entries ordered by release date, labels
// recomputed for today.
func (s *DDayService) ListMine(ctx context.Context, userID string) ([]models.DDayView, error) {
	details, err := s.waits.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]models.DDayView, 0, len(details))
	for _, detail := range details {
		views = append(views, *s.viewFromDetail(&detail))
	}
	return views, nil
}

// Longest returns the user's entry with the furthest future release date.
func (s *DDayService) Longest(ctx context.Context, userID string) (*models.DDayView, error) {
	detail, err := s.waits.LongestByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, fmt.Errorf("%w: no upcoming entries", ErrNotFound)
	}
	return s.viewFromDetail(detail), nil
}

func (s *DDayService) recordFromInfo(info *models.ResolvedMediaInfo) *models.MediaRecord {
	return &models.MediaRecord{
		Source:      info.Source,
		ExternalID:  info.ExternalID,
		Title:       info.Title,
		ContentType: info.ContentType,
		ReleaseDate: info.ReleaseDate,
		Director:    strPtr(info.Director),
		Distributor: strPtr(info.Distributor),
		CastNames:   strPtr(info.CastAsString()),
		Genres:      strPtr(info.GenresAsString()),
		PosterURL:   strPtr(info.PosterURL),
		IsReRelease: info.IsReRelease,
	}
}

func (s *DDayService) buildView(ctx context.Context, name string, record *models.MediaRecord, alreadyWaiting bool, message string) (*models.DDayView, error) {
	count, err := s.waits.CountByMedia(ctx, record.ID)
	if err != nil {
		return nil, err
	}

	return &models.DDayView{
		Name:           name,
		Title:          record.Title,
		ContentType:    record.ContentType,
		ReleaseDate:    record.ReleaseDate.Format("2006-01-02"),
		DDay:           Label(record.ReleaseDate, s.now()),
		WaitingCount:   count,
		AlreadyWaiting: alreadyWaiting,
		Message:        message,
		PosterURL:      record.PosterURL,
		Distributor:    record.Distributor,
		Director:       record.Director,
		Cast:           splitListField(record.CastNames),
		Genre:          splitListField(record.Genres),
		Source:         record.Source,
		ExternalID:     record.ExternalID,
	}, nil
}

func (s *DDayService) viewFromDetail(detail *models.WaitEntryDetail) *models.DDayView {
	record := &detail.Media
	return &models.DDayView{
		Name:         detail.Entry.QueryName,
		Title:        record.Title,
		ContentType:  record.ContentType,
		ReleaseDate:  record.ReleaseDate.Format("2006-01-02"),
		DDay:         Label(record.ReleaseDate, s.now()),
		WaitingCount: detail.WaitingCount,
		PosterURL:    record.PosterURL,
		Distributor:  record.Distributor,
		Director:     record.Director,
		Cast:         splitListField(record.CastNames),
		Genre:        splitListField(record.Genres),
		Source:       record.Source,
		ExternalID:   record.ExternalID,
	}
}

func splitListField(raw *string) []string {
	if raw == nil {
		return nil
	}
	var values []string
	for _, chunk := range strings.Split(*raw, ",") {
		if trimmed := strings.TrimSpace(chunk); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
