package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContentPipeline/internal/config"
	"ContentPipeline/internal/domain"
)

func newClient(url string) *OpenAIClient {
	return NewOpenAIClient(config.OpenAIConfig{
		Endpoint:    url,
		Model:       "gpt-test",
		APIKey:      "secret",
		Temperature: 0.7,
	}, 2, nil)
}

func TestCompleteSendsChatPayload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]any
		require.NoError(t, json.Unmarshal(raw, &req))
		assert.Equal(t, "gpt-test", req["model"])
		assert.InDelta(t, 0.7, req["temperature"], 1e-9)
		assert.InDelta(t, 500, req["max_tokens"], 1e-9)
		messages := req["messages"].([]any)
		require.Len(t, messages, 1)
		assert.Equal(t, "user", messages[0].(map[string]any)["role"])
		assert.Equal(t, "write", messages[0].(map[string]any)["content"])

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  # Title\nBody  "}}]}`))
	}))
	defer srv.Close()

	out, err := newClient(srv.URL).Complete(context.Background(), "write", 500)
	require.NoError(t, err)
	assert.Equal(t, "# Title\nBody", out)
}

func TestCompleteClassifiesFailures(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		status int
		body   string
		want   error
	}{
		"server error":  {status: http.StatusBadGateway, body: `oops`, want: domain.ErrTransientExternal},
		"rate limited":  {status: http.StatusTooManyRequests, body: `{}`, want: domain.ErrTransientExternal},
		"no choices":    {status: http.StatusOK, body: `{"choices":[]}`, want: domain.ErrParse},
		"empty content": {status: http.StatusOK, body: `{"choices":[{"message":{"content":" "}}]}`, want: domain.ErrParse},
		"not json":      {status: http.StatusOK, body: `<html>`, want: domain.ErrParse},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := newClient(srv.URL).Complete(context.Background(), "p", 10)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCompleteRequiresCredentials(t *testing.T) {
	t.Parallel()

	c := NewOpenAIClient(config.OpenAIConfig{Endpoint: "http://unused", Model: "m"}, 1, nil)
	_, err := c.Complete(context.Background(), "p", 10)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Equal(t, "OpenAI", c.Name())
}
