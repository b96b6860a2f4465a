package dialogue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"

	"github.com/huyng1801/restobot/backend/internal/model/auth"
)

const webhookPath = "/webhooks/rest/webhook"

// RasaClient talks to the dialogue engine's REST webhook channel.
type RasaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRasaClient 创建对话引擎客户端，httpClient 为空时使用默认客户端。
func NewRasaClient(baseURL string, httpClient *http.Client) *RasaClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RasaClient{baseURL: baseURL, httpClient: httpClient}
}

// Name 通道名称。
func (c *RasaClient) Name() string { return "rasa" }

type webhookMetadata struct {
	UserInfo  *auth.UserInfo `json:"user_info"`
	AuthToken string         `json:"auth_token,omitempty"`
	Timestamp string         `json:"timestamp"`
}

type webhookRequest struct {
	Sender   string          `json:"sender"`
	Message  string          `json:"message"`
	Metadata webhookMetadata `json:"metadata"`
}

// Send posts the message to the webhook and resolves the returned frames.
func (c *RasaClient) Send(ctx context.Context, req Request) (Reply, error) {
	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	body, err := json.Marshal(webhookRequest{
		Sender:  req.Sender,
		Message: req.Message,
		Metadata: webhookMetadata{
			UserInfo:  req.UserInfo,
			AuthToken: req.AuthToken,
			Timestamp: ts.UTC().Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("marshal webhook request"))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+webhookPath, bytes.NewReader(body))
	if err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("create webhook request"))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("send webhook request"))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fault.Wrap(fmt.Errorf("%w: HTTP %d", ErrBadStatus, resp.StatusCode), fctx.With(ctx))
	}

	var frames []Frame
	if err := json.NewDecoder(resp.Body).Decode(&frames); err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("decode webhook response"))
	}

	return Resolve(frames), nil
}
