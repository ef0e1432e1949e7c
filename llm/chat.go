// Package llm defines the chat-completion contract consumed by RAG.
package llm

import (
	"context"
	"fmt"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatModel produces a completion for an ordered list of messages.
type ChatModel interface {
	Chat(ctx context.Context, messages []Message) (*ChatResponse, error)
}

// Message represents a single message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse represents a chat completion response.
type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice represents a completion choice.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage represents token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionText returns the first choice's content, or "" when there is none.
func (r *ChatResponse) CompletionText() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// Error represents a chat provider failure.
type Error struct {
	Provider   string
	Code       string
	Message    string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s chat: %s", e.Provider, e.Message)
	if e.Code != "" {
		msg = fmt.Sprintf("%s chat [%s]: %s", e.Provider, e.Code, e.Message)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// ChatFunc adapts a function to ChatModel.
type ChatFunc func(ctx context.Context, messages []Message) (*ChatResponse, error)

// Chat calls f.
func (f ChatFunc) Chat(ctx context.Context, messages []Message) (*ChatResponse, error) {
	return f(ctx, messages)
}
