package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huyng1801/restobot/backend/internal/model/auth"
	"github.com/huyng1801/restobot/backend/internal/model/chat"
	"github.com/huyng1801/restobot/backend/internal/service/dialogue"
)

type fakeChannel struct {
	name string

	mu    sync.Mutex
	calls []dialogue.Request

	reply dialogue.Reply
	err   error
	// hook runs inside Send before the reply is returned.
	hook func(ctx context.Context)
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Send(ctx context.Context, req dialogue.Request) (dialogue.Reply, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.hook != nil {
		f.hook(ctx)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func (f *fakeChannel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signedIn() *auth.SessionContext {
	return auth.NewSessionContext(&auth.User{ID: 7, Username: "lan", FullName: "Nguyễn Lan"}, "token-abc")
}

type dispatchFixture struct {
	session    *Session
	primary    *fakeChannel
	fallback   *fakeChannel
	dispatcher *Dispatcher
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()
	primary := &fakeChannel{name: "rasa", reply: dialogue.Flat{Message: "Xin chào! Tôi có thể giúp gì?"}}
	fallback := &fakeChannel{name: "rest", reply: dialogue.Flat{Message: "fallback"}}
	return &dispatchFixture{
		session:    newTestService(t).Create(),
		primary:    primary,
		fallback:   fallback,
		dispatcher: NewDispatcher(primary, fallback, time.Second, quietLogger()),
	}
}

func (f *dispatchFixture) botEntries() []chat.Entry {
	entries := f.session.Transcript().Entries()[1:]
	var bots []chat.Entry
	for _, e := range entries {
		if e.Sender == chat.SenderBot {
			bots = append(bots, e)
		}
	}
	return bots
}

func TestDispatchGreetingScenario(t *testing.T) {
	f := newDispatchFixture(t)

	result, err := f.dispatcher.Dispatch(context.Background(), f.session, signedIn(), "Xin chào")
	require.NoError(t, err)

	entries := f.session.Transcript().Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, chat.SenderUser, entries[1].Sender)
	assert.Equal(t, "Xin chào", entries[1].Text)
	assert.Equal(t, chat.SenderBot, entries[2].Sender)
	assert.NotEmpty(t, entries[2].Text)

	assert.Equal(t, OutcomeReplied, result.Outcome)
	assert.Equal(t, "rasa", result.Channel)
	assert.Len(t, result.Entries, 2)
	assert.Equal(t, 0, f.fallback.callCount())
	assert.False(t, f.session.Typing())
}

func TestDispatchPassesIdentity(t *testing.T) {
	f := newDispatchFixture(t)

	_, err := f.dispatcher.Dispatch(context.Background(), f.session, signedIn(), "  Đặt bàn cho 4 người  ")
	require.NoError(t, err)

	require.Equal(t, 1, f.primary.callCount())
	req := f.primary.calls[0]
	assert.Equal(t, f.session.Token(), req.Sender)
	assert.Equal(t, "Đặt bàn cho 4 người", req.Message)
	assert.Equal(t, "token-abc", req.AuthToken)
	require.NotNil(t, req.UserInfo)
	assert.Equal(t, int64(7), req.UserInfo.UserID)
	assert.False(t, req.Timestamp.IsZero())
}

func TestDispatchMenuScenario(t *testing.T) {
	f := newDispatchFixture(t)
	f.primary.reply = dialogue.Resolve([]dialogue.Frame{
		{Custom: &dialogue.CustomPayload{Dishes: []chat.DishCard{{Name: "Phở Bò"}}}},
		{Text: "Bạn muốn gọi món nào?"},
	})

	_, err := f.dispatcher.Dispatch(context.Background(), f.session, signedIn(), "Cho tôi xem thực đơn")
	require.NoError(t, err)

	bots := f.botEntries()
	require.Len(t, bots, 2)
	assert.Empty(t, bots[0].Text)
	require.Len(t, bots[0].Dishes, 1)
	assert.Equal(t, "Phở Bò", bots[0].Dishes[0].Name)
	assert.Equal(t, "Bạn muốn gọi món nào?", bots[1].Text)
	assert.Empty(t, bots[1].Dishes)
}

func TestDispatchEmptyInputIsNoop(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t "} {
		f := newDispatchFixture(t)

		_, err := f.dispatcher.Dispatch(context.Background(), f.session, signedIn(), input)
		require.ErrorIs(t, err, ErrEmptyMessage)

		assert.Equal(t, 1, f.session.Transcript().Len())
		assert.Equal(t, 0, f.primary.callCount())
		assert.Equal(t, 0, f.fallback.callCount())
	}
}

func TestDispatchUnauthenticatedScenario(t *testing.T) {
	f := newDispatchFixture(t)

	result, err := f.dispatcher.Dispatch(context.Background(), f.session, auth.Anonymous(), "Xin chào")
	require.NoError(t, err)

	assert.Equal(t, OutcomeLoginRequired, result.Outcome)
	entries := f.session.Transcript().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, chat.SenderBot, entries[1].Sender)
	assert.Equal(t, LoginPromptText, entries[1].Text)
	assert.Equal(t, 0, f.primary.callCount())
	assert.Equal(t, 0, f.fallback.callCount())
}

func TestGuardAcceptsSignedInUser(t *testing.T) {
	session := newTestService(t).Create()

	_, ok := Guard(session, signedIn())

	assert.True(t, ok)
	assert.Equal(t, 1, session.Transcript().Len())
}

func TestDispatchFallsBackOnce(t *testing.T) {
	f := newDispatchFixture(t)
	f.primary.err = errors.New("connection refused")
	f.fallback.reply = dialogue.Flat{Message: "Trả lời từ FastAPI"}

	result, err := f.dispatcher.Dispatch(context.Background(), f.session, signedIn(), "Giờ mở cửa?")
	require.NoError(t, err)

	assert.Equal(t, 1, f.primary.callCount())
	assert.Equal(t, 1, f.fallback.callCount())
	assert.Equal(t, "rest", result.Channel)
	bots := f.botEntries()
	require.Len(t, bots, 1)
	assert.Equal(t, "Trả lời từ FastAPI", bots[0].Text)
}

func TestDispatchFallsBackOnBadStatus(t *testing.T) {
	f := newDispatchFixture(t)
	f.primary.err = fmt.Errorf("%w: HTTP 500", dialogue.ErrBadStatus)

	_, err := f.dispatcher.Dispatch(context.Background(), f.session, signedIn(), "Menu")
	require.NoError(t, err)

	assert.Equal(t, 1, f.fallback.callCount())
}

func TestDispatchBothChannelsFail(t *testing.T) {
	f := newDispatchFixture(t)
	f.primary.err = errors.New("dial tcp: connection refused")
	f.fallback.err = errors.New("dial tcp: connection refused")

	result, err := f.dispatcher.Dispatch(context.Background(), f.session, signedIn(), "Xin chào")
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, 1, f.primary.callCount())
	assert.Equal(t, 1, f.fallback.callCount())
	bots := f.botEntries()
	require.Len(t, bots, 1)
	assert.Equal(t, allDownText, bots[0].Text)
	assert.False(t, f.session.Typing())
}

func TestDispatchFallbackBadStatusMessage(t *testing.T) {
	f := newDispatchFixture(t)
	f.primary.err = errors.New("timeout")
	f.fallback.err = fmt.Errorf("%w: HTTP 502", dialogue.ErrBadStatus)

	_, err := f.dispatcher.Dispatch(context.Background(), f.session, signedIn(), "Xin chào")
	require.NoError(t, err)

	bots := f.botEntries()
	require.Len(t, bots, 1)
	assert.Equal(t, sendFailedText, bots[0].Text)
}

func TestDispatchUnauthorizedClearsTokens(t *testing.T) {
	f := newDispatchFixture(t)
	f.primary.err = errors.New("rasa down")
	f.fallback.err = dialogue.ErrUnauthorized
	sc := signedIn()

	result, err := f.dispatcher.Dispatch(context.Background(), f.session, sc, "Đơn hàng của tôi")
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.False(t, sc.Authenticated())
	assert.Empty(t, sc.Token())
	bots := f.botEntries()
	require.Len(t, bots, 1)
	assert.Equal(t, sessionEndedText, bots[0].Text)

	// the next message is stopped by the guard
	_, err = f.dispatcher.Dispatch(context.Background(), f.session, sc, "Xin chào")
	require.NoError(t, err)
	assert.Equal(t, 1, f.primary.callCount())
}

type revokedTokens struct {
	mu     sync.Mutex
	tokens []string
}

func (r *revokedTokens) Revoke(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, token)
}

func TestDispatchUnauthorizedRevokesToken(t *testing.T) {
	f := newDispatchFixture(t)
	f.primary.err = errors.New("rasa down")
	f.fallback.err = dialogue.ErrUnauthorized
	revoker := &revokedTokens{}
	f.dispatcher.RevokeTokensWith(revoker)

	_, err := f.dispatcher.Dispatch(context.Background(), f.session, signedIn(), "Đơn hàng của tôi")
	require.NoError(t, err)
	assert.Equal(t, []string{"token-abc"}, revoker.tokens)

	f.fallback.err = errors.New("rest down")
	_, err = f.dispatcher.Dispatch(context.Background(), f.session, signedIn(), "Đơn hàng của tôi")
	require.NoError(t, err)
	assert.Len(t, revoker.tokens, 1)
}

func TestDispatchWithoutFallback(t *testing.T) {
	primary := &fakeChannel{name: "rasa", err: errors.New("down")}
	session := newTestService(t).Create()
	d := NewDispatcher(primary, nil, time.Second, quietLogger())

	_, err := d.Dispatch(context.Background(), session, signedIn(), "Xin chào")
	require.NoError(t, err)

	entries := session.Transcript().Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, sendFailedText, entries[2].Text)
}

func TestDispatchTimeoutTriggersFallback(t *testing.T) {
	f := newDispatchFixture(t)
	f.primary.hook = func(ctx context.Context) { <-ctx.Done() }
	f.primary.err = context.DeadlineExceeded
	f.dispatcher.timeout = 20 * time.Millisecond

	start := time.Now()
	result, err := f.dispatcher.Dispatch(context.Background(), f.session, signedIn(), "Xin chào")
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, "rest", result.Channel)
}

func TestDispatchEmptyReplyDegradesToDefault(t *testing.T) {
	f := newDispatchFixture(t)
	f.primary.reply = dialogue.Multi{Frames: []dialogue.Frame{{}, {}}}

	result, err := f.dispatcher.Dispatch(context.Background(), f.session, signedIn(), "???")
	require.NoError(t, err)

	assert.Equal(t, OutcomeReplied, result.Outcome)
	bots := f.botEntries()
	require.Len(t, bots, 1)
	assert.Equal(t, dialogue.DefaultReplyText, bots[0].Text)
}

func TestDispatchUserEntryPrecedesReply(t *testing.T) {
	f := newDispatchFixture(t)
	f.primary.hook = func(context.Context) {
		entries := f.session.Transcript().Entries()
		assert.Len(t, entries, 2)
		assert.Equal(t, chat.SenderUser, entries[len(entries)-1].Sender)
		assert.True(t, f.session.Typing())
	}

	_, err := f.dispatcher.Dispatch(context.Background(), f.session, signedIn(), "Xin chào")
	require.NoError(t, err)
	assert.False(t, f.session.Typing())
}

func TestDispatchStashesPaymentOrderID(t *testing.T) {
	f := newDispatchFixture(t)
	f.primary.reply = dialogue.Flat{Message: "Đơn hàng #128 đã được tạo. Vui lòng thanh toán."}

	_, err := f.dispatcher.Dispatch(context.Background(), f.session, signedIn(), "Xác nhận")
	require.NoError(t, err)

	id, ok := f.session.PendingOrderID().Get()
	require.True(t, ok)
	assert.Equal(t, "128", id)
}

func TestDispatchIgnoresOrderIDWithoutTrigger(t *testing.T) {
	f := newDispatchFixture(t)
	f.primary.reply = dialogue.Flat{Message: "Bàn #5 đã được giữ cho bạn."}

	_, err := f.dispatcher.Dispatch(context.Background(), f.session, signedIn(), "Đặt bàn")
	require.NoError(t, err)

	_, ok := f.session.PendingOrderID().Get()
	assert.False(t, ok)
	assert.Len(t, f.botEntries(), 1)
}

func TestDispatchConcurrentSendsKeepAllEntries(t *testing.T) {
	f := newDispatchFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.dispatcher.Dispatch(context.Background(), f.session, signedIn(), fmt.Sprintf("tin nhắn %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// interleaving across sends is allowed; counts are not
	entries := f.session.Transcript().Entries()
	assert.Len(t, entries, 1+8*2)
	assert.False(t, f.session.Typing())
}
