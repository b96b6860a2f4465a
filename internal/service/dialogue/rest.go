package dialogue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"

	"github.com/huyng1801/restobot/backend/internal/model/auth"
)

const chatPath = "/chat"

// RestClient is the fallback channel: the restaurant REST API's /chat endpoint.
type RestClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRestClient 创建 REST 备用通道客户端。
func NewRestClient(baseURL string, httpClient *http.Client) *RestClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RestClient{baseURL: baseURL, httpClient: httpClient}
}

// Name 通道名称。
func (c *RestClient) Name() string { return "rest" }

type restChatRequest struct {
	Message   string         `json:"message"`
	Sender    string         `json:"sender"`
	UserInfo  *auth.UserInfo `json:"user_info"`
	AuthToken string         `json:"auth_token,omitempty"`
}

type restChatResponse struct {
	Response string `json:"response"`
	Text     string `json:"text"`
}

// Send posts the message to /chat. A 401 is reported as ErrUnauthorized.
func (c *RestClient) Send(ctx context.Context, req Request) (Reply, error) {
	body, err := json.Marshal(restChatRequest{
		Message:   req.Message,
		Sender:    req.Sender,
		UserInfo:  req.UserInfo,
		AuthToken: req.AuthToken,
	})
	if err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("marshal chat request"))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("create chat request"))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.AuthToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.AuthToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("send chat request"))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fault.Wrap(ErrUnauthorized, fctx.With(ctx))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fault.Wrap(fmt.Errorf("%w: HTTP %d", ErrBadStatus, resp.StatusCode), fctx.With(ctx))
	}

	var payload restChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx), fmsg.With("decode chat response"))
	}

	text := payload.Response
	if text == "" {
		text = payload.Text
	}
	if text == "" {
		text = "Xin lỗi, tôi không hiểu. Bạn có thể nói rõ hơn không?"
	}
	return Flat{Message: text}, nil
}
