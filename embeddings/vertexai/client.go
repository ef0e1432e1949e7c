package vertexai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/viant/vecrag/embeddings"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	providerName      = "vertexai"
	defaultLocation   = "us-central1"
	defaultModel      = "text-embedding-004"
	defaultHTTPTO     = 30 * time.Second
	defaultScopeCloud = "https://www.googleapis.com/auth/cloud-platform"
)

type ClientOption func(*Client)

func WithLocation(location string) ClientOption {
	return func(c *Client) {
		if location != "" {
			c.Location = location
		}
	}
}

func WithScopes(scopes ...string) ClientOption {
	return func(c *Client) {
		c.Scopes = append(c.Scopes, scopes...)
	}
}

// WithBaseURL overrides the regional endpoint, e.g. for a private service connect address.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.BaseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithTokenSource replaces application default credentials.
func WithTokenSource(ts oauth2.TokenSource) ClientOption {
	return func(c *Client) {
		c.tokenSource = ts
	}
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

type Client struct {
	ProjectID string
	Location  string
	Model     string
	BaseURL   string
	Scopes    []string

	httpClient  *http.Client
	tokenSource oauth2.TokenSource
}

type predictRequest struct {
	Instances []predictInstance `json:"instances"`
}

type predictInstance struct {
	Content string `json:"content"`
}

type predictResponse struct {
	Predictions []predictEmbedding `json:"predictions"`
}

type predictEmbedding struct {
	Embeddings predictEmbeddingValues `json:"embeddings"`
}

type predictEmbeddingValues struct {
	Values     []float32 `json:"values"`
	Statistics struct {
		TokenCount float64 `json:"token_count"`
	} `json:"statistics"`
}

// NewClient creates a Vertex AI text embedding client. Without WithTokenSource
// it authenticates with application default credentials.
func NewClient(ctx context.Context, projectID, model string, opts ...ClientOption) (*Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("vertexai project id is required")
	}
	c := &Client{
		ProjectID:  projectID,
		Location:   defaultLocation,
		Model:      model,
		httpClient: &http.Client{Timeout: defaultHTTPTO},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.BaseURL == "" {
		c.BaseURL = fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1", c.Location)
	}
	if len(c.Scopes) == 0 {
		c.Scopes = []string{defaultScopeCloud}
	}
	if c.tokenSource == nil {
		ts, err := google.DefaultTokenSource(ctx, c.Scopes...)
		if err != nil {
			return nil, fmt.Errorf("vertexai token source: %w", err)
		}
		c.tokenSource = ts
	}
	c.tokenSource = oauth2.ReuseTokenSource(nil, c.tokenSource)
	return c, nil
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/projects/%s/locations/%s/publishers/google/models/%s:predict",
		c.BaseURL, c.ProjectID, c.Location, c.Model)
}

// Embed returns one vector per text in input order plus the reported token count.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, int, error) {
	if c == nil {
		return nil, 0, fmt.Errorf("vertexai client is nil")
	}
	if len(texts) == 0 {
		return nil, 0, fmt.Errorf("no input texts provided")
	}
	instances := make([]predictInstance, 0, len(texts))
	for _, t := range texts {
		instances = append(instances, predictInstance{Content: t})
	}
	body, err := json.Marshal(predictRequest{Instances: instances})
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	token, err := c.tokenSource.Token()
	if err != nil {
		return nil, 0, &embeddings.Error{Provider: providerName, Message: "token", Err: err}
	}
	token.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &embeddings.Error{Provider: providerName, Message: "send request", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = resp.Status
		}
		return nil, 0, &embeddings.Error{Provider: providerName, StatusCode: resp.StatusCode, Message: msg}
	}
	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, 0, &embeddings.Error{Provider: providerName, Message: "decode response", Err: err}
	}
	if len(out.Predictions) != len(texts) {
		return nil, 0, &embeddings.Error{Provider: providerName, Message: fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(out.Predictions))}
	}
	vecs := make([][]float32, 0, len(out.Predictions))
	tokens := 0
	for _, p := range out.Predictions {
		vecs = append(vecs, p.Embeddings.Values)
		tokens += int(p.Embeddings.Statistics.TokenCount)
	}
	return vecs, tokens, nil
}
