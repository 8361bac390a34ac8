package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"waitwith/internal/models"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
)

// Chat stream event types, emitted in this order: analysis, tool_started,
// then one of movie/confirm/error, then token(s) and final. The done
// sentinel always closes the stream.
const (
	EventAnalysis    = "analysis"
	EventToolStarted = "tool_started"
	EventMovie       = "movie"
	EventConfirm     = "confirm"
	EventToken       = "token"
	EventFinal       = "final"
	EventError       = "error"
	EventDone        = "done"
)

const (
	msgAnalyzing    = "요청을 분석 중입니다."
	msgToolStarted  = "TMDB에서 개봉 정보를 찾는 중..."
	msgAskForTitle  = "어떤 영화를 기다리고 싶은지 알려주세요."
	msgNotFound     = "영화를 찾지 못했습니다. 제목이나 연도를 다시 알려주세요."
	msgNoUpcoming   = "예정된 개봉일이 없어 D-Day를 만들 수 없어요."
	msgUpstreamDown = "영화 정보를 불러오는 중 문제가 발생했습니다."
)

type ChatEvent struct {
	Type         string                    `json:"type"`
	Message      string                    `json:"message,omitempty"`
	View         *models.DDayView          `json:"dday,omitempty"`
	Preview      *models.ResolvedMediaInfo `json:"preview,omitempty"`
	WaitingCount int64                     `json:"waiting_count,omitempty"`
}

type EmitFunc func(ChatEvent)

// ChatService drives the streaming registration flow. With no Gemini model
// configured it still emits the full event sequence from a direct lookup.
type ChatService struct {
	dday     *DDayService
	resolver MediaResolver
	tmdb     *TMDbClient
	model    *genai.GenerativeModel
	logger   *logrus.Logger
	now      func() time.Time
}

func NewChatService(dday *DDayService, resolver MediaResolver, tmdb *TMDbClient, model *genai.GenerativeModel, logger *logrus.Logger) *ChatService {
	return &ChatService{
		dday:     dday,
		resolver: resolver,
		tmdb:     tmdb,
		model:    model,
		logger:   logger,
		now:      time.Now,
	}
}

// Stream runs one chat turn, pushing ordered events through emit. The done
// sentinel is always the last event, whichever path was taken.
func (s *ChatService) Stream(ctx context.Context, userID, rawQuery string, emit EmitFunc) {
	defer emit(ChatEvent{Type: EventDone})
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.WithField("panic", rec).Error("Chat stream panicked")
			emit(ChatEvent{Type: EventError, Message: msgUpstreamDown})
		}
	}()

	name := strings.TrimSpace(rawQuery)
	if name == "" {
		emit(ChatEvent{Type: EventError, Message: msgAskForTitle})
		return
	}

	emit(ChatEvent{Type: EventAnalysis, Message: msgAnalyzing})

	if s.model == nil {
		s.streamDirect(ctx, userID, name, emit)
		return
	}
	s.streamAssistant(ctx, userID, name, emit)
}

func (s *ChatService) streamDirect(ctx context.Context, userID, name string, emit EmitFunc) {
	emit(ChatEvent{Type: EventToolStarted, Message: msgToolStarted})

	info, err := s.resolver.Resolve(ctx, name)
	if err != nil {
		emit(errorEvent(err))
		return
	}
	s.emitResolution(ctx, userID, name, info, emit)
}

func (s *ChatService) streamAssistant(ctx context.Context, userID, name string, emit EmitFunc) {
	iter := s.model.GenerateContentStream(ctx, genai.Text(name))

	var collected strings.Builder
	var call *genai.FunctionCall
	toolStarted := false

	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			s.logger.WithError(err).Warn("Assistant stream failed, falling back to direct lookup")
			s.streamDirect(ctx, userID, name, emit)
			return
		}

		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				switch p := part.(type) {
				case genai.Text:
					collected.WriteString(string(p))
					emit(ChatEvent{Type: EventToken, Message: collected.String()})
				case genai.FunctionCall:
					if !toolStarted {
						toolStarted = true
						emit(ChatEvent{Type: EventToolStarted, Message: msgToolStarted})
					}
					if call == nil && p.Name != "" {
						c := p
						call = &c
					}
				}
			}
		}
	}

	if call == nil {
		final := collected.String()
		if final == "" {
			final = msgAskForTitle
			emit(ChatEvent{Type: EventToken, Message: final})
		}
		emit(ChatEvent{Type: EventFinal, Message: final})
		return
	}

	info, err := resolveToolCall(ctx, s.tmdb, *call, name)
	if err != nil {
		emit(errorEvent(err))
		return
	}
	s.emitResolution(ctx, userID, name, info, emit)
}

// emitResolution is the shared terminal stage: with a record but no wait
// entry it defers the write behind a confirm event; otherwise it registers
// and reports the view.
func (s *ChatService) emitResolution(ctx context.Context, userID, name string, info *models.ResolvedMediaInfo, emit EmitFunc) {
	record, hasEntry, count, err := s.dday.Preview(ctx, userID, info)
	if err != nil {
		s.logger.WithError(err).Error("Failed to look up existing record")
		emit(ChatEvent{Type: EventError, Message: msgUpstreamDown})
		return
	}

	if record != nil && !hasEntry {
		emit(ChatEvent{
			Type:         EventConfirm,
			Message:      fmt.Sprintf("%s 정보를 찾았어요. 함께 기다릴까요?", info.Title),
			Preview:      info,
			WaitingCount: count,
		})
		final := s.releaseSentence(info)
		emit(ChatEvent{Type: EventToken, Message: final})
		emit(ChatEvent{Type: EventFinal, Message: final})
		return
	}

	view, err := s.dday.RegisterResolved(ctx, userID, name, info)
	if err != nil {
		emit(errorEvent(err))
		return
	}

	emit(ChatEvent{
		Type:    EventMovie,
		Message: fmt.Sprintf("%s 정보를 찾았어요.", view.Title),
		View:    view,
	})
	final := s.releaseSentence(info)
	emit(ChatEvent{Type: EventToken, Message: final})
	emit(ChatEvent{Type: EventFinal, Message: final})
}

func (s *ChatService) releaseSentence(info *models.ResolvedMediaInfo) string {
	label := Label(info.ReleaseDate, s.now())
	return fmt.Sprintf("%s은 %s 개봉 예정이라 %s입니다.",
		info.Title, info.ReleaseDate.Format("2006-01-02"), label)
}

func errorEvent(err error) ChatEvent {
	switch {
	case errors.Is(err, ErrEmptyQuery):
		return ChatEvent{Type: EventError, Message: msgAskForTitle}
	case errors.Is(err, ErrNotFound):
		return ChatEvent{Type: EventError, Message: msgNotFound}
	case errors.Is(err, ErrNoUpcomingRelease):
		return ChatEvent{Type: EventError, Message: msgNoUpcoming}
	default:
		return ChatEvent{Type: EventError, Message: msgUpstreamDown}
	}
}
