package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatMessageText(t *testing.T) {
	t.Run("concatenates text parts in source order", func(t *testing.T) {
		msg := ChatMessage{Role: RoleUser, Parts: []MessagePart{
			{Type: PartTypeText, Text: "What is the weather "},
			{Type: "file"},
			{Type: PartTypeText, Text: "in Copenhagen?"},
		}}
		assert.Equal(t, "What is the weather in Copenhagen?", msg.Text())
	})

	t.Run("no text parts yields empty string", func(t *testing.T) {
		msg := ChatMessage{Role: RoleUser, Parts: []MessagePart{{Type: "file"}}}
		assert.Equal(t, "", msg.Text())
	})
}

func TestLastUserText(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		wantText string
		wantOK   bool
	}{
		{
			name: "newest user message wins",
			body: `{"messages": [
				{"role": "user", "parts": [{"type": "text", "text": "old question"}]},
				{"role": "assistant", "parts": [{"type": "text", "text": "old answer"}]},
				{"role": "user", "parts": [{"type": "text", "text": "new question"}]}
			]}`,
			wantText: "new question",
			wantOK:   true,
		},
		{
			name: "trailing assistant message is skipped",
			body: `{"messages": [
				{"role": "user", "parts": [{"type": "text", "text": "question"}]},
				{"role": "assistant", "parts": [{"type": "text", "text": "answer"}]}
			]}`,
			wantText: "question",
			wantOK:   true,
		},
		{
			name:   "unparsable body fails open",
			body:   `{"messages": [`,
			wantOK: false,
		},
		{
			name:   "no user message fails open",
			body:   `{"messages": [{"role": "assistant", "parts": [{"type": "text", "text": "hi"}]}]}`,
			wantOK: false,
		},
		{
			name:   "user message without text fails open",
			body:   `{"messages": [{"role": "user", "parts": [{"type": "file"}]}]}`,
			wantOK: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text, ok := LastUserText([]byte(tc.body))
			require.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantText, text)
		})
	}
}

func TestUsageAdd(t *testing.T) {
	u := Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	u.Add(Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5})

	assert.Equal(t, Usage{PromptTokens: 13, CompletionTokens: 7, TotalTokens: 20}, u)
}
