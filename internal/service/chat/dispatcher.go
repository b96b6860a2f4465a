package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/samber/lo"

	"github.com/huyng1801/restobot/backend/internal/analysis/payment"
	"github.com/huyng1801/restobot/backend/internal/model/auth"
	"github.com/huyng1801/restobot/backend/internal/model/chat"
	"github.com/huyng1801/restobot/backend/internal/service/dialogue"
)

var ErrEmptyMessage = errors.New("message is empty")

const (
	sendFailedText   = "Không thể gửi tin nhắn. Vui lòng thử lại sau."
	allDownText      = "Cả Rasa và FastAPI đều không khả dụng. Vui lòng thử lại sau."
	sessionEndedText = "Phiên đăng nhập đã hết hạn. Vui lòng đăng nhập lại."
)

// Outcome 描述一次发送的结局。
type Outcome string

const (
	OutcomeReplied       Outcome = "replied"
	OutcomeLoginRequired Outcome = "login_required"
	OutcomeFailed        Outcome = "failed"
)

// Result lists the entries a single dispatch appended, user entry first.
type Result struct {
	Entries []chat.Entry `json:"entries"`
	Channel string       `json:"channel,omitempty"`
	Outcome Outcome      `json:"outcome"`
}

// TokenRevoker 撤销被后端拒绝的令牌，使后续请求直接走登录提示。
type TokenRevoker interface {
	Revoke(token string)
}

// Dispatcher sends user messages to the dialogue engine and falls back to a second
// channel at most once per message.
type Dispatcher struct {
	primary  dialogue.Channel
	fallback dialogue.Channel
	timeout  time.Duration
	logger   *slog.Logger
	revoker  TokenRevoker
}

// NewDispatcher 组装调度器；fallback 可以为 nil。
func NewDispatcher(primary, fallback dialogue.Channel, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		primary:  primary,
		fallback: fallback,
		timeout:  timeout,
		logger:   logger,
	}
}

// RevokeTokensWith registers where tokens rejected with 401 are revoked.
// Call it before the dispatcher starts serving.
func (d *Dispatcher) RevokeTokensWith(revoker TokenRevoker) {
	d.revoker = revoker
}

// Dispatch appends the user's message and the bot's reply to the session.
// The only error it returns is ErrEmptyMessage; backend failures end up in the
// transcript as a bot entry.
func (d *Dispatcher) Dispatch(ctx context.Context, session *Session, sc *auth.SessionContext, message string) (Result, error) {
	text := strings.TrimSpace(message)
	if text == "" {
		return Result{}, ErrEmptyMessage
	}

	if prompt, ok := Guard(session, sc); !ok {
		return Result{Entries: []chat.Entry{prompt}, Outcome: OutcomeLoginRequired}, nil
	}

	userEntry := chat.NewUserEntry(text)
	session.Transcript().Append(userEntry)

	release := session.beginTyping()
	defer release()

	req := dialogue.Request{
		Sender:    session.Token(),
		Message:   text,
		UserInfo:  sc.User().Info(),
		AuthToken: sc.Token(),
		Timestamp: time.Now().UTC(),
	}

	reply, channel, err := d.send(ctx, req)
	if err != nil {
		if errors.Is(err, dialogue.ErrUnauthorized) {
			if d.revoker != nil {
				d.revoker.Revoke(sc.Token())
			}
			sc.Clear()
		}
		d.logger.Warn("dispatch failed", "session", session.Token(), "error", err)

		failure := chat.NewBotEntry(failureText(err))
		session.Transcript().Append(failure)
		return Result{Entries: []chat.Entry{userEntry, failure}, Outcome: OutcomeFailed}, nil
	}

	entries := lo.Filter(reply.Entries(), func(entry chat.Entry, _ int) bool {
		return entry.HasContent()
	})
	if len(entries) == 0 {
		d.logger.Error("reply produced no entries", "session", session.Token(), "channel", channel, "reply", fmt.Sprintf("%T", reply))
		entries = dialogue.Flat{Message: dialogue.DefaultReplyText}.Entries()
	}
	for _, entry := range entries {
		session.Transcript().Append(entry)
	}

	if orderID, ok := payment.Detect(reply.Text()).Get(); ok {
		d.logger.Info("payment order detected", "session", session.Token(), "order_id", orderID)
		session.SetPendingOrderID(orderID)
	}

	return Result{
		Entries: append([]chat.Entry{userEntry}, entries...),
		Channel: channel,
		Outcome: OutcomeReplied,
	}, nil
}

func (d *Dispatcher) send(ctx context.Context, req dialogue.Request) (dialogue.Reply, string, error) {
	reply, primaryErr := d.call(ctx, d.primary, req)
	if primaryErr == nil {
		return reply, d.primary.Name(), nil
	}
	d.logger.Warn("primary channel failed, falling back", "channel", d.primary.Name(), "error", primaryErr)

	if d.fallback == nil {
		return nil, "", fault.Wrap(primaryErr, fctx.With(ctx), fmsg.WithDesc("primary channel failed", sendFailedText))
	}

	reply, fallbackErr := d.call(ctx, d.fallback, req)
	if fallbackErr == nil {
		return reply, d.fallback.Name(), nil
	}

	switch {
	case errors.Is(fallbackErr, dialogue.ErrUnauthorized):
		return nil, "", fault.Wrap(fallbackErr, fctx.With(ctx), fmsg.WithDesc("fallback rejected credentials", sessionEndedText))
	case errors.Is(fallbackErr, dialogue.ErrBadStatus):
		return nil, "", fault.Wrap(fallbackErr, fctx.With(ctx), fmsg.WithDesc("fallback channel failed", sendFailedText))
	default:
		return nil, "", fault.Wrap(fallbackErr, fctx.With(ctx), fmsg.WithDesc("all channels failed", allDownText))
	}
}

func (d *Dispatcher) call(ctx context.Context, channel dialogue.Channel, req dialogue.Request) (dialogue.Reply, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	return channel.Send(ctx, req)
}

func failureText(err error) string {
	if issue := fmsg.GetIssue(err); issue != "" {
		return issue
	}
	return sendFailedText
}
