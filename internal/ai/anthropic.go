package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 1024
)

// AnthropicProvider uses the Messages API: the system prompt is a top-level
// field and turns must alternate, starting with the user.
type AnthropicProvider struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

func NewAnthropicProvider(baseURL, apiKey, model string) *AnthropicProvider {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	return &AnthropicProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// anthropicTurns drops system messages and leading assistant turns and merges
// consecutive turns of one role.
func anthropicTurns(msgs []Message) []anthropicMessage {
	out := make([]anthropicMessage, 0, len(msgs))
	for _, m := range msgs {
		role := "user"
		switch m.Role {
		case "system":
			continue
		case "assistant":
			role = "assistant"
		}
		if len(out) == 0 && role == "assistant" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content += "\n\n" + m.Content
			continue
		}
		out = append(out, anthropicMessage{Role: role, Content: m.Content})
	}
	return out
}

func (p *AnthropicProvider) Chat(ctx context.Context, r *Request) (*Completion, error) {
	model := strings.TrimSpace(r.Model)
	if model == "" {
		model = p.Model
	}
	if p.Client == nil {
		return nil, newProviderError("anthropic", model, FailureConfig, errors.New("http client is nil"))
	}
	if strings.TrimSpace(p.APIKey) == "" {
		return nil, newProviderError("anthropic", model, FailureAuth, errors.New("api key is required"))
	}
	turns := anthropicTurns(r.Messages)
	if len(turns) == 0 {
		return nil, newProviderError("anthropic", model, FailureConfig, errors.New("no user turn"))
	}

	ar := anthropicRequest{
		Model:       model,
		System:      r.System,
		Messages:    turns,
		MaxTokens:   r.MaxTokens,
		Temperature: r.Temperature,
	}
	if ar.MaxTokens <= 0 {
		ar.MaxTokens = anthropicMaxTokens
	}

	b, err := json.Marshal(ar)
	if err != nil {
		return nil, newProviderError("anthropic", model, FailureConfig, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(p.BaseURL, "/")+"/messages", bytes.NewReader(b))
	if err != nil {
		return nil, newProviderError("anthropic", model, FailureConfig, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, transportError(ctx, "anthropic", model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError("anthropic", model, resp)
	}

	var decoded anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, malformed("anthropic", model, err)
	}
	var sb strings.Builder
	for _, block := range decoded.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, malformed("anthropic", model, errors.New("no text content in response"))
	}
	return &Completion{
		Content:      sb.String(),
		TokensUsed:   decoded.Usage.InputTokens + decoded.Usage.OutputTokens,
		FinishReason: decoded.StopReason,
	}, nil
}
