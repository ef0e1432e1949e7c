package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChatResponse_CompletionText(t *testing.T) {
	var empty *ChatResponse
	assert.Equal(t, "", empty.CompletionText())
	assert.Equal(t, "", (&ChatResponse{}).CompletionText())
	resp := &ChatResponse{Choices: []Choice{{Message: Message{Role: RoleAssistant, Content: "answer"}}, {Message: Message{Content: "other"}}}}
	assert.Equal(t, "answer", resp.CompletionText())
}

func TestError(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := &Error{Provider: "openai", Code: "HTTP_ERROR", Message: "request failed", Cause: cause}
	assert.Equal(t, "openai chat [HTTP_ERROR]: request failed: dial tcp: timeout", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "openai chat: bad", (&Error{Provider: "openai", Message: "bad"}).Error())
}

func TestChatFunc(t *testing.T) {
	fn := ChatFunc(func(ctx context.Context, messages []Message) (*ChatResponse, error) {
		return &ChatResponse{Choices: []Choice{{Message: Message{Content: messages[0].Content}}}}, nil
	})
	resp, err := fn.Chat(context.Background(), []Message{{Role: RoleUser, Content: "echo"}})
	assert.NoError(t, err)
	assert.Equal(t, "echo", resp.CompletionText())
}
