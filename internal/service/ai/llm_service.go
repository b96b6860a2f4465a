package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/huyng1801/restobot/backend/internal/config"
	"github.com/huyng1801/restobot/backend/internal/service/dialogue"
)

// Concierge answers chat messages with an Ark chat model. It is used as the fallback
// channel when CHAT_FALLBACK=ark, in place of the REST API's /chat endpoint.
type Concierge struct {
	chain  compose.Runnable[map[string]any, *schema.Message]
	logger *slog.Logger
}

// NewConcierge creates the chat model from cfg and compiles the prompt chain.
func NewConcierge(ctx context.Context, cfg config.AIConfig, logger *slog.Logger) (*Concierge, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return newConcierge(ctx, chatModel, logger)
}

func newConcierge(ctx context.Context, chatModel model.BaseChatModel, logger *slog.Logger) (*Concierge, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile concierge chain: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Concierge{
		chain:  runnable,
		logger: logger,
	}, nil
}

// Name 通道名称。
func (c *Concierge) Name() string { return "ark" }

// Send runs the chain once and returns the model output as a flat reply.
func (c *Concierge) Send(ctx context.Context, req dialogue.Request) (dialogue.Reply, error) {
	response, err := c.chain.Invoke(ctx, buildChainInput(req))
	if err != nil {
		return nil, fault.Wrap(err, fctx.With(ctx))
	}

	text := strings.TrimSpace(response.Content)
	c.logger.Debug("concierge generated reply", "sender", req.Sender, "length", len(text))
	if text == "" {
		text = dialogue.DefaultReplyText
	}
	return dialogue.Flat{Message: text}, nil
}

func buildChainInput(req dialogue.Request) map[string]any {
	return map[string]any{
		"system": BuildSystemPrompt(req.UserInfo),
		"query":  req.Message,
	}
}
