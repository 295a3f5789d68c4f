package storyverse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMClient_SendMessage(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"Once upon a time"}}]}`))
	}))
	defer srv.Close()

	client := NewLLMClient("key", srv.URL, "test-model")
	reply, err := client.SendMessage(context.Background(), "be brief", "continue")
	require.NoError(t, err)
	assert.Equal(t, "Once upon a time", reply)

	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "continue", got.Messages[1].Content)
}

func TestLLMClient_Errors(t *testing.T) {
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer empty.Close()
	_, err := NewLLMClient("key", empty.URL, "m").SendMessage(context.Background(), "", "hi")
	assert.ErrorContains(t, err, "empty response")

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer failing.Close()
	_, err = NewLLMClient("key", failing.URL, "m").SendMessage(context.Background(), "", "hi")
	assert.ErrorContains(t, err, "chat completion")
}

type countingGenerator struct{ calls int }

func (c *countingGenerator) SendMessage(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	c.calls++
	return "ok", nil
}

func TestRateLimited(t *testing.T) {
	next := &countingGenerator{}
	assert.Same(t, next, NewRateLimited(next, 0))

	limited := NewRateLimited(next, 1)
	_, err := limited.SendMessage(context.Background(), "", "first")
	require.NoError(t, err)

	// The next token is a minute away.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = limited.SendMessage(ctx, "", "second")
	assert.ErrorContains(t, err, "rate limiter")
	assert.Equal(t, 1, next.calls)
}

func TestConfig_NewTextGenerator(t *testing.T) {
	cfg := Config{TextProvider: "openai", OpenAIModel: "m"}
	gen, err := cfg.NewTextGenerator(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &LLMClient{}, gen)

	cfg = Config{TextProvider: "claude", ClaudeAPIKey: "k", RequestsPerMinute: 30}
	gen, err = cfg.NewTextGenerator(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &RateLimited{}, gen)

	cfg = Config{TextProvider: "parrot"}
	_, err = cfg.NewTextGenerator(context.Background())
	assert.ErrorContains(t, err, "unknown text provider")
}
