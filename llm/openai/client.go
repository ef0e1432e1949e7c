package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/viant/vecrag/llm"
)

const (
	providerName        = "openai"
	defaultBaseURL      = "https://api.openai.com/v1"
	completionsEndpoint = "/chat/completions"
	defaultChatModel    = "gpt-4o-mini"
	defaultHTTPClientTO = 60 * time.Second
)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.BaseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) ClientOption {
	return func(c *Client) { c.Temperature = &temperature }
}

// WithMaxTokens limits the completion length.
func WithMaxTokens(n int) ClientOption {
	return func(c *Client) { c.MaxTokens = n }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.HTTPClient = client
		}
	}
}

// Client calls the OpenAI chat completions API. It implements llm.ChatModel.
type Client struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature *float64
	MaxTokens   int
	HTTPClient  *http.Client
}

// NewClient creates a chat client; an empty apiKey falls back to OPENAI_API_KEY.
func NewClient(apiKey, model string, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL:    defaultBaseURL,
		APIKey:     apiKey,
		Model:      model,
		HTTPClient: &http.Client{Timeout: defaultHTTPClientTO},
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Model == "" {
		c.Model = defaultChatModel
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chat performs a single chat completion request.
func (c *Client) Chat(ctx context.Context, messages []llm.Message) (*llm.ChatResponse, error) {
	reqBody, err := json.Marshal(chatRequest{
		Model:       c.Model,
		Messages:    messages,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	})
	if err != nil {
		return nil, &llm.Error{Provider: providerName, Code: "MARSHAL_ERROR", Message: "failed to marshal request", Cause: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+completionsEndpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, &llm.Error{Provider: providerName, Code: "REQUEST_ERROR", Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, &llm.Error{Provider: providerName, Code: "HTTP_ERROR", Message: "HTTP request failed", Cause: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &llm.Error{Provider: providerName, Code: "READ_ERROR", Message: "failed to read response", StatusCode: resp.StatusCode, Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		msg := resp.Status
		code := "API_ERROR"
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Message
			if errResp.Error.Code != "" {
				code = errResp.Error.Code
			} else if errResp.Error.Type != "" {
				code = errResp.Error.Type
			}
		}
		return nil, &llm.Error{Provider: providerName, Code: code, Message: msg, StatusCode: resp.StatusCode}
	}
	var out llm.ChatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &llm.Error{Provider: providerName, Code: "UNMARSHAL_ERROR", Message: "failed to unmarshal response", StatusCode: resp.StatusCode, Cause: err}
	}
	return &out, nil
}
