package services

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChat(resolver MediaResolver) (*ChatService, *fakeMediaRepo, *fakeWaitRepo) {
	dday, media, waits := newTestService(resolver)
	chat := NewChatService(dday, resolver, nil, nil, logrus.New())
	chat.now = func() time.Time { return date(2026, time.March, 8) }
	return chat, media, waits
}

func collectEvents(t *testing.T, chat *ChatService, userID, query string) []ChatEvent {
	t.Helper()
	var events []ChatEvent
	chat.Stream(context.Background(), userID, query, func(ev ChatEvent) {
		events = append(events, ev)
	})
	return events
}

func eventTypes(events []ChatEvent) []string {
	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func TestStreamRegistersAndEmitsOrderedEvents(t *testing.T) {
	chat, media, waits := newTestChat(&fakeResolver{info: sampleInfo()})

	events := collectEvents(t, chat, "user-1", "프로젝트 헤일메리 언제 개봉해?")

	assert.Equal(t, []string{
		EventAnalysis, EventToolStarted, EventMovie, EventToken, EventFinal, EventDone,
	}, eventTypes(events))

	movie := events[2]
	require.NotNil(t, movie.View)
	assert.Equal(t, "프로젝트 헤일메리", movie.View.Title)
	assert.Equal(t, "D-10", movie.View.DDay)

	final := events[4]
	assert.Contains(t, final.Message, "2026-03-18")
	assert.Contains(t, final.Message, "D-10")

	assert.Len(t, media.records, 1)
	assert.Len(t, waits.entries, 1)
}

func TestStreamEmptyQuery(t *testing.T) {
	chat, media, _ := newTestChat(&fakeResolver{info: sampleInfo()})

	events := collectEvents(t, chat, "user-1", "   ")

	assert.Equal(t, []string{EventError, EventDone}, eventTypes(events))
	assert.Equal(t, msgAskForTitle, events[0].Message)
	assert.Empty(t, media.records)
}

func TestStreamResolverNotFound(t *testing.T) {
	chat, _, _ := newTestChat(&fakeResolver{err: ErrNotFound})

	events := collectEvents(t, chat, "user-1", "없는 영화")

	assert.Equal(t, []string{
		EventAnalysis, EventToolStarted, EventError, EventDone,
	}, eventTypes(events))
	assert.Equal(t, msgNotFound, events[2].Message)
}

func TestStreamErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrNotFound, msgNotFound},
		{ErrNoUpcomingRelease, msgNoUpcoming},
		{ErrUpstream, msgUpstreamDown},
	}

	for _, tt := range tests {
		chat, _, _ := newTestChat(&fakeResolver{err: tt.err})
		events := collectEvents(t, chat, "user-1", "영화")
		require.Len(t, events, 4)
		assert.Equal(t, EventError, events[2].Type)
		assert.Equal(t, tt.want, events[2].Message)
	}
}

func TestStreamKnownRecordAsksForConfirmation(t *testing.T) {
	info := sampleInfo()
	chat, media, waits := newTestChat(&fakeResolver{info: info})

	// Another user already seeded the record.
	_, err := chat.dday.RegisterResolved(context.Background(), "user-2", "헤일메리", info)
	require.NoError(t, err)

	events := collectEvents(t, chat, "user-1", "프로젝트 헤일메리")

	assert.Equal(t, []string{
		EventAnalysis, EventToolStarted, EventConfirm, EventToken, EventFinal, EventDone,
	}, eventTypes(events))

	confirm := events[2]
	require.NotNil(t, confirm.Preview)
	assert.Equal(t, info.Title, confirm.Preview.Title)
	assert.Equal(t, int64(1), confirm.WaitingCount)

	// The confirm path must not write an entry for the asking user.
	assert.Len(t, media.records, 1)
	assert.Len(t, waits.entries, 1)
	assert.Equal(t, "user-2", waits.entries[0].UserID)
}

func TestStreamSameUserReRegisters(t *testing.T) {
	info := sampleInfo()
	chat, _, waits := newTestChat(&fakeResolver{info: info})

	_, err := chat.dday.RegisterResolved(context.Background(), "user-1", "헤일메리", info)
	require.NoError(t, err)

	// The user already waits, so the flow re-registers instead of confirming.
	events := collectEvents(t, chat, "user-1", "프로젝트 헤일메리")

	assert.Equal(t, []string{
		EventAnalysis, EventToolStarted, EventMovie, EventToken, EventFinal, EventDone,
	}, eventTypes(events))
	require.NotNil(t, events[2].View)
	assert.True(t, events[2].View.AlreadyWaiting)
	assert.Len(t, waits.entries, 1)
}

func TestStreamPanicStillEmitsDone(t *testing.T) {
	chat, _, _ := newTestChat(&panicResolver{})

	events := collectEvents(t, chat, "user-1", "영화")

	types := eventTypes(events)
	require.NotEmpty(t, types)
	assert.Equal(t, EventDone, types[len(types)-1])
	assert.Contains(t, types, EventError)
}
