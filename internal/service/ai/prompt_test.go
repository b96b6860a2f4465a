package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/huyng1801/restobot/backend/internal/model/auth"
	"github.com/huyng1801/restobot/backend/internal/service/dialogue"
)

func TestBuildSystemPromptAnonymous(t *testing.T) {
	assert.Equal(t, conciergeRules, BuildSystemPrompt(nil))
	assert.Equal(t, conciergeRules, BuildSystemPrompt(&auth.UserInfo{}))
}

func TestBuildSystemPromptPrefersFullName(t *testing.T) {
	prompt := BuildSystemPrompt(&auth.UserInfo{Username: "lan99", FullName: "Nguyễn Thị Lan"})
	assert.Contains(t, prompt, "Nguyễn Thị Lan")
	assert.NotContains(t, prompt, "lan99")

	prompt = BuildSystemPrompt(&auth.UserInfo{Username: "lan99"})
	assert.Contains(t, prompt, "lan99")
}

func TestBuildChainInput(t *testing.T) {
	input := buildChainInput(dialogue.Request{Message: "Giờ mở cửa", UserInfo: &auth.UserInfo{FullName: "Minh"}})
	assert.Equal(t, "Giờ mở cửa", input["query"])
	assert.Contains(t, input["system"], "Minh")
}
