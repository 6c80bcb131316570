package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRouterProvider_SendsSystemFirst(t *testing.T) {
	var got openRouterChatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "fin-advisor", r.Header.Get("X-Title"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}],"usage":{"total_tokens":42}}`))
	}))
	defer srv.Close()

	p := NewOpenRouterProvider(srv.URL, "secret", "openai/gpt-4o-mini", "", "fin-advisor")
	c, err := p.Chat(context.Background(), &Request{
		System:   "persona",
		Messages: []Message{{Role: "user", Content: "q"}, {Role: "assistant", Content: "a"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", c.Content)
	assert.Equal(t, 42, c.TokensUsed)
	assert.Equal(t, "stop", c.FinishReason)

	require.Len(t, got.Messages, 3)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "persona", got.Messages[0].Content)
	assert.Equal(t, "openai/gpt-4o-mini", got.Model)
}

func TestOpenRouterProvider_ClassifiesFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   FailureKind
	}{
		{"auth", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, FailureAuth},
		{"rate limit", http.StatusTooManyRequests, `slow down`, FailureRateLimit},
		{"quota", http.StatusBadRequest, `daily quota exceeded for free models`, FailureQuota},
		{"server", http.StatusBadGateway, ``, FailureStatus},
		{"malformed", http.StatusOK, `not json`, FailureMalformed},
		{"no choices", http.StatusOK, `{"choices":[]}`, FailureMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			p := NewOpenRouterProvider(srv.URL, "k", "m", "", "")
			_, err := p.Chat(context.Background(), &Request{Messages: []Message{{Role: "user", Content: "q"}}})
			var pe *ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tc.kind, pe.Kind)
		})
	}
}

func TestOpenRouterProvider_RequiresKey(t *testing.T) {
	p := NewOpenRouterProvider("http://unused", "", "m", "", "")
	_, err := p.Chat(context.Background(), &Request{})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, FailureAuth, pe.Kind)
}

func TestOllamaProvider_Chat(t *testing.T) {
	var got ollamaChatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"local"},"done_reason":"stop","prompt_eval_count":3,"eval_count":4}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3")
	c, err := p.Chat(context.Background(), &Request{System: "sys", Messages: []Message{{Role: "user", Content: "q"}}})
	require.NoError(t, err)
	assert.Equal(t, "local", c.Content)
	assert.Equal(t, 7, c.TokensUsed)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
}

func TestGeminiProvider_SeparatesSystemAndMapsRoles(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.0-flash-exp:generateContent", r.URL.Path)
		assert.Equal(t, "gk", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"part one, "},{"text":"part two"}]},"finishReason":"STOP"}],"usageMetadata":{"totalTokenCount":11}}`))
	}))
	defer srv.Close()

	p := NewGeminiProvider(srv.URL, "gk", "google/gemini-2.0-flash-exp:free")
	c, err := p.Chat(context.Background(), &Request{
		System: "persona",
		Messages: []Message{
			{Role: "user", Content: "q1"},
			{Role: "assistant", Content: "a1"},
			{Role: "user", Content: "q2"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "part one, part two", c.Content)
	assert.Equal(t, 11, c.TokensUsed)
	assert.Equal(t, "STOP", c.FinishReason)

	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "persona", got.SystemInstruction.Parts[0].Text)
	require.Len(t, got.Contents, 3)
	assert.Equal(t, []string{"user", "model", "user"}, []string{got.Contents[0].Role, got.Contents[1].Role, got.Contents[2].Role})
}

func TestGeminiModelName(t *testing.T) {
	assert.Equal(t, "gemini-2.0-flash-exp", GeminiModelName("google/gemini-2.0-flash-exp:free"))
	assert.Equal(t, "gemini-1.5-pro", GeminiModelName("gemini-1.5-pro"))
	assert.Equal(t, "gemini-1.5-flash", GeminiModelName("deepseek/deepseek-chat"))
	assert.Equal(t, "gemini-1.5-flash", GeminiModelName(""))
}

func TestAnthropicProvider_SeparatesSystem(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "ak", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"hi "},{"type":"tool_use"},{"type":"text","text":"there"}],"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":4}}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider(srv.URL, "ak", "claude-3-haiku-20240307")
	c, err := p.Chat(context.Background(), &Request{
		System: "persona",
		Messages: []Message{
			{Role: "assistant", Content: "greeting"},
			{Role: "system", Content: "ignored"},
			{Role: "user", Content: "q1"},
			{Role: "user", Content: "q2"},
			{Role: "assistant", Content: "a"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi there", c.Content)
	assert.Equal(t, 7, c.TokensUsed)
	assert.Equal(t, "end_turn", c.FinishReason)

	assert.Equal(t, "persona", got.System)
	assert.Equal(t, "claude-3-haiku-20240307", got.Model)
	assert.Equal(t, 1024, got.MaxTokens)
	assert.Nil(t, got.Temperature)
	assert.Equal(t, []anthropicMessage{
		{Role: "user", Content: "q1\n\nq2"},
		{Role: "assistant", Content: "a"},
	}, got.Messages)
}

func TestAnthropicProvider_Failures(t *testing.T) {
	t.Run("no key", func(t *testing.T) {
		p := NewAnthropicProvider("http://unused", "", "m")
		_, err := p.Chat(context.Background(), &Request{Messages: []Message{{Role: "user", Content: "q"}}})
		var pe *ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, FailureAuth, pe.Kind)
	})
	t.Run("no user turn", func(t *testing.T) {
		p := NewAnthropicProvider("http://unused", "k", "m")
		_, err := p.Chat(context.Background(), &Request{Messages: []Message{{Role: "assistant", Content: "a"}}})
		var pe *ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, FailureConfig, pe.Kind)
	})
	t.Run("overloaded", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()
		_, err := NewAnthropicProvider(srv.URL, "k", "m").Chat(context.Background(), &Request{Messages: []Message{{Role: "user", Content: "q"}}})
		var pe *ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, FailureRateLimit, pe.Kind)
	})
	t.Run("no text", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"content":[],"stop_reason":"end_turn"}`))
		}))
		defer srv.Close()
		_, err := NewAnthropicProvider(srv.URL, "k", "m").Chat(context.Background(), &Request{Messages: []Message{{Role: "user", Content: "q"}}})
		var pe *ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, FailureMalformed, pe.Kind)
	})
}

func TestProviders_SendZeroTemperature(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body = nil
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch r.URL.Path {
		case "/chat/completions":
			_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
		default:
			_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
		}
	}))
	defer srv.Close()

	zero := 0.0
	msgs := []Message{{Role: "user", Content: "q"}}

	_, err := NewOpenRouterProvider(srv.URL, "k", "m", "", "").Chat(context.Background(), &Request{Messages: msgs, Temperature: &zero})
	require.NoError(t, err)
	assert.Contains(t, body, "temperature")
	assert.EqualValues(t, 0, body["temperature"])

	_, err = NewGeminiProvider(srv.URL, "k", "gemini-1.5-flash").Chat(context.Background(), &Request{Messages: msgs, Temperature: &zero})
	require.NoError(t, err)
	gen, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, gen, "temperature")
	assert.EqualValues(t, 0, gen["temperature"])

	_, err = NewOpenRouterProvider(srv.URL, "k", "m", "", "").Chat(context.Background(), &Request{Messages: msgs})
	require.NoError(t, err)
	assert.NotContains(t, body, "temperature")
}
