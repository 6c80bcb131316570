package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OpenRouterProvider talks to any OpenAI-compatible chat/completions endpoint.
type OpenRouterProvider struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
	SiteURL string
	AppName string
	Client  *http.Client
}

type openRouterMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterChatReq struct {
	Model       string          `json:"model"`
	Messages    []openRouterMsg `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	Stream      bool            `json:"stream"`
}

type openRouterChatResp struct {
	Choices []struct {
		Message      openRouterMsg `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewOpenRouterProvider(baseURL, apiKey, model, siteURL, appName string) *OpenRouterProvider {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	return &OpenRouterProvider{
		Name:    "openrouter",
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		SiteURL: siteURL,
		AppName: appName,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

func (p *OpenRouterProvider) Chat(ctx context.Context, r *Request) (*Completion, error) {
	model := strings.TrimSpace(r.Model)
	if model == "" {
		model = strings.TrimSpace(p.Model)
	}
	if p.Client == nil {
		return nil, newProviderError(p.Name, model, FailureConfig, errors.New("http client is nil"))
	}
	if strings.TrimSpace(p.APIKey) == "" {
		return nil, newProviderError(p.Name, model, FailureAuth, errors.New("api key is required"))
	}
	if model == "" {
		return nil, newProviderError(p.Name, model, FailureConfig, errors.New("model is required"))
	}

	// chat/completions takes the system prompt as the first message
	msgs := make([]openRouterMsg, 0, len(r.Messages)+1)
	if r.System != "" {
		msgs = append(msgs, openRouterMsg{Role: "system", Content: r.System})
	}
	for _, m := range r.Messages {
		msgs = append(msgs, openRouterMsg{Role: m.Role, Content: m.Content})
	}

	b, err := json.Marshal(openRouterChatReq{
		Model:       model,
		Messages:    msgs,
		MaxTokens:   r.MaxTokens,
		Temperature: r.Temperature,
	})
	if err != nil {
		return nil, newProviderError(p.Name, model, FailureConfig, err)
	}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(p.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, newProviderError(p.Name, model, FailureConfig, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	if p.SiteURL != "" {
		req.Header.Set("HTTP-Referer", p.SiteURL)
	}
	if p.AppName != "" {
		req.Header.Set("X-Title", p.AppName)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, transportError(ctx, p.Name, model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(p.Name, model, resp)
	}

	var decoded openRouterChatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, malformed(p.Name, model, err)
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return nil, newProviderError(p.Name, model, kindForStatus(0, decoded.Error.Message), errors.New(decoded.Error.Message))
	}
	if len(decoded.Choices) == 0 {
		return nil, malformed(p.Name, model, errors.New("empty response"))
	}

	out := &Completion{
		Content:      decoded.Choices[0].Message.Content,
		FinishReason: decoded.Choices[0].FinishReason,
	}
	if decoded.Usage != nil {
		out.TokensUsed = decoded.Usage.TotalTokens
	}
	return out, nil
}
