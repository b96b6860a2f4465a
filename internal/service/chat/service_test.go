package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huyng1801/restobot/backend/internal/model/chat"
	"github.com/huyng1801/restobot/backend/internal/model/suggestion"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(suggestion.NewMemoryStore(suggestion.Seed()), 16, time.Hour)
}

func TestServiceCreateSession(t *testing.T) {
	svc := newTestService(t)

	session := svc.Create()

	assert.True(t, strings.HasPrefix(session.Token(), "user_"))
	assert.Equal(t, 1, session.Transcript().Len())
	assert.ElementsMatch(t, suggestion.Seed(), session.Suggestions())
	assert.Equal(t, 1, svc.Len())
}

func TestServiceGetOrCreateIsIdempotent(t *testing.T) {
	svc := newTestService(t)

	first := svc.GetOrCreate("")
	second := svc.GetOrCreate(first.Token())

	assert.Same(t, first, second)
	assert.Equal(t, 1, svc.Len())
}

func TestServiceGetOrCreateUnknownToken(t *testing.T) {
	svc := newTestService(t)

	session := svc.GetOrCreate("user_missing")

	assert.NotEqual(t, "user_missing", session.Token())
}

func TestServiceGetMissing(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get("nope")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestServiceResetIssuesNewToken(t *testing.T) {
	svc := newTestService(t)
	old := svc.Create()
	old.Transcript().Append(chat.NewUserEntry("Đặt bàn"))
	events, _ := old.Subscribe()

	fresh := svc.Reset(old.Token())

	assert.NotEqual(t, old.Token(), fresh.Token())
	assert.Equal(t, 1, fresh.Transcript().Len())
	_, err := svc.Get(old.Token())
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, open := <-events
	assert.False(t, open, "subscribers of the forgotten session are closed")
}

func TestServiceCapacityEvictsOldest(t *testing.T) {
	svc := NewService(suggestion.NewMemoryStore(suggestion.Seed()), 2, time.Hour)

	first := svc.Create()
	svc.Create()
	svc.Create()

	_, err := svc.Get(first.Token())
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 2, svc.Len())
}

func TestSessionPendingOrderID(t *testing.T) {
	session := newTestService(t).Create()

	_, ok := session.PendingOrderID().Get()
	assert.False(t, ok)

	session.SetPendingOrderID("42")
	id, ok := session.PendingOrderID().Get()
	require.True(t, ok)
	assert.Equal(t, "42", id)
	assert.Equal(t, "42", session.Snapshot().PendingOrderID)

	session.ClearPendingOrderID()
	_, ok = session.PendingOrderID().Get()
	assert.False(t, ok)
}

func TestSessionTypingCounter(t *testing.T) {
	session := newTestService(t).Create()
	events, cancel := session.Subscribe()
	defer cancel()

	releaseA := session.beginTyping()
	releaseB := session.beginTyping()
	assert.True(t, session.Typing())

	releaseA()
	releaseA()
	assert.True(t, session.Typing())

	releaseB()
	assert.False(t, session.Typing())

	first := <-events
	assert.Equal(t, EventTyping, first.Type)
	assert.True(t, first.Typing)
	second := <-events
	assert.Equal(t, EventTyping, second.Type)
	assert.False(t, second.Typing)
}

func TestSessionSubscribeReceivesEntries(t *testing.T) {
	session := newTestService(t).Create()
	events, cancel := session.Subscribe()
	defer cancel()

	session.Transcript().Append(chat.NewUserEntry("Xem thực đơn"))
	session.Transcript().Clear()

	appended := <-events
	assert.Equal(t, EventEntry, appended.Type)
	require.NotNil(t, appended.Entry)
	assert.Equal(t, "Xem thực đơn", appended.Entry.Text)

	reset := <-events
	assert.Equal(t, EventReset, reset.Type)
	require.NotNil(t, reset.Entry)
	assert.Equal(t, WelcomeText, reset.Entry.Text)
}
