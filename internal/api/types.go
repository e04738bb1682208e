// Package api defines the public request/response types for the chat
// endpoint and the streaming wire format emitted to the browser client.
package api

import "encoding/json"

// Message roles and part types recognized in inbound chat requests.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	PartTypeText = "text"
)

// MessagePart is one typed fragment of a chat message. Only text parts are
// meaningful to the assistant; other part types are carried but ignored.
type MessagePart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ChatMessage is a single entry in the conversation history.
type ChatMessage struct {
	ID    string        `json:"id,omitempty"`
	Role  string        `json:"role"`
	Parts []MessagePart `json:"parts"`
}

// Text concatenates the message's text parts in source order.
func (m ChatMessage) Text() string {
	var out string
	for _, p := range m.Parts {
		if p.Type == PartTypeText {
			out += p.Text
		}
	}
	return out
}

// ChatRequest is the body posted by the chat UI for every turn. Messages are
// ordered oldest-first; the last user message is the one being answered.
type ChatRequest struct {
	ID       string        `json:"id,omitempty"`
	Model    string        `json:"model,omitempty"`
	Messages []ChatMessage `json:"messages"`
}

// LastUserText parses a raw request body and returns the text of the most
// recent user-authored message. ok is false when the body does not parse as
// a chat request or no user message with text exists; callers treat that as
// a pass-through, not an error.
func LastUserText(body []byte) (text string, ok bool) {
	var req ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", false
	}
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			t := req.Messages[i].Text()
			return t, t != ""
		}
	}
	return "", false
}

// Usage holds token accounting reported by a model provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another usage report, for multi-call turns.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}
