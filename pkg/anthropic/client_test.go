package anthropic

import (
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
)

func TestToSDKMessagesRoles(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
		{Role: "", Content: "fallback is user"},
	})

	assert.Len(t, msgs, 3)
	assert.Equal(t, sdk.MessageParamRoleUser, msgs[0].Role)
	assert.Equal(t, sdk.MessageParamRoleAssistant, msgs[1].Role)
	assert.Equal(t, sdk.MessageParamRoleUser, msgs[2].Role)
}

func TestResponseText(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "part one "},
		{Type: "tool_use", Text: "ignored"},
		{Type: "text", Text: "part two"},
	}}
	assert.Equal(t, "part one part two", resp.Text())
}

func TestEstimateCostKnownModel(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 500_000}
	cost := u.EstimateCost("claude-haiku-4-5")
	assert.InDelta(t, 0.80+2.00, cost, 0.001)
}

func TestEstimateCostUnknownModel(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000}
	assert.Zero(t, u.EstimateCost("some-other-model"))
}
