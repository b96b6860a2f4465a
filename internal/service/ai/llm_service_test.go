package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huyng1801/restobot/backend/internal/model/auth"
	"github.com/huyng1801/restobot/backend/internal/service/dialogue"
)

type stubChatModel struct {
	content string
	err     error
	input   []*schema.Message
}

func (m *stubChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.input = input
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.content, nil), nil
}

func (m *stubChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func newTestConcierge(t *testing.T, chatModel *stubChatModel) *Concierge {
	t.Helper()
	concierge, err := newConcierge(context.Background(), chatModel, nil)
	require.NoError(t, err)
	return concierge
}

func TestConciergeSendRendersPrompt(t *testing.T) {
	chatModel := &stubChatModel{content: "  Nhà hàng mở cửa từ 10h đến 22h.  "}
	concierge := newTestConcierge(t, chatModel)

	reply, err := concierge.Send(context.Background(), dialogue.Request{
		Message:  "Giờ mở cửa?",
		UserInfo: &auth.UserInfo{FullName: "Phạm Hà"},
	})
	require.NoError(t, err)

	assert.Equal(t, dialogue.Flat{Message: "Nhà hàng mở cửa từ 10h đến 22h."}, reply)
	require.Len(t, chatModel.input, 2)
	assert.Equal(t, schema.System, chatModel.input[0].Role)
	assert.Contains(t, chatModel.input[0].Content, "Phạm Hà")
	assert.Equal(t, "Giờ mở cửa?", chatModel.input[1].Content)
}

func TestConciergeSendEmptyOutput(t *testing.T) {
	concierge := newTestConcierge(t, &stubChatModel{content: " \n"})

	reply, err := concierge.Send(context.Background(), dialogue.Request{Message: "..."})
	require.NoError(t, err)
	assert.Equal(t, dialogue.DefaultReplyText, reply.Text())
}

func TestConciergeSendModelError(t *testing.T) {
	concierge := newTestConcierge(t, &stubChatModel{err: errors.New("ark quota exceeded")})

	reply, err := concierge.Send(context.Background(), dialogue.Request{Message: "Xin chào"})
	require.ErrorContains(t, err, "ark quota exceeded")
	assert.Nil(t, reply)
}
