package vertexai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/vecrag/embeddings"
	"golang.org/x/oauth2"
)

func staticToken() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok", TokenType: "Bearer"})
}

func TestEmbedder_EmbedDocuments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/proj/locations/europe-west4/publishers/google/models/text-embedding-004:predict", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var req predictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []predictInstance{{Content: "a"}, {Content: "b"}}, req.Instances)
		_, _ = w.Write([]byte(`{"predictions":[
			{"embeddings":{"values":[0.1,0.2],"statistics":{"token_count":1}}},
			{"embeddings":{"values":[0.3,0.4],"statistics":{"token_count":2}}}]}`))
	}))
	defer server.Close()

	emb := NewEmbedder("proj", "", WithLocation("europe-west4"), WithBaseURL(server.URL+"/"), WithTokenSource(staticToken()))
	vecs, err := emb.EmbedDocuments(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.1, 0.2}, {0.3, 0.4}}, vecs)
}

func TestClient_Embed(t *testing.T) {
	testCases := []struct {
		description string
		status      int
		body        string
		expectErr   string
		expectCode  int
		expectToken int
	}{
		{description: "ok", status: http.StatusOK, body: `{"predictions":[{"embeddings":{"values":[1,0],"statistics":{"token_count":3}}}]}`, expectToken: 3},
		{description: "api error", status: http.StatusForbidden, body: `{"error":{"message":"denied"}}`, expectErr: "denied", expectCode: http.StatusForbidden},
		{description: "count mismatch", status: http.StatusOK, body: `{"predictions":[]}`, expectErr: "expected 1 embeddings, got 0"},
	}
	for _, testCase := range testCases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(testCase.status)
			_, _ = w.Write([]byte(testCase.body))
		}))
		client, err := NewClient(context.Background(), "proj", "m", WithBaseURL(server.URL), WithTokenSource(staticToken()))
		require.NoError(t, err, testCase.description)
		vecs, tokens, err := client.Embed(context.Background(), []string{"q"})
		server.Close()
		if testCase.expectErr != "" {
			var embErr *embeddings.Error
			require.True(t, errors.As(err, &embErr), testCase.description)
			assert.Contains(t, embErr.Error(), testCase.expectErr, testCase.description)
			assert.Equal(t, testCase.expectCode, embErr.StatusCode, testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		assert.Equal(t, [][]float32{{1, 0}}, vecs, testCase.description)
		assert.Equal(t, testCase.expectToken, tokens, testCase.description)
	}
}

func TestNewClient_RequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), "", "m", WithTokenSource(staticToken()))
	assert.EqualError(t, err, "vertexai project id is required")

	_, err = NewEmbedder("", "m").EmbedQuery(context.Background(), "q")
	assert.EqualError(t, err, "vertexai project id is required")
}

func TestClient_TokenError(t *testing.T) {
	failing := oauth2.ReuseTokenSource(nil, tokenFunc(func() (*oauth2.Token, error) {
		return nil, errors.New("no credentials")
	}))
	client, err := NewClient(context.Background(), "proj", "m", WithBaseURL("http://127.0.0.1:0"), WithTokenSource(failing))
	require.NoError(t, err)
	_, _, err = client.Embed(context.Background(), []string{"q"})
	assert.ErrorContains(t, err, "no credentials")
}

type tokenFunc func() (*oauth2.Token, error)

func (f tokenFunc) Token() (*oauth2.Token, error) { return f() }
