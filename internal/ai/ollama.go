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

// OllamaProvider calls a local Ollama daemon. Transaction data never leaves
// the host when it is the only candidate in the chain.
type OllamaProvider struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3:latest"
	}
	return &OllamaProvider{
		BaseURL: baseURL,
		Model:   model,
		Client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type ollamaChatReq struct {
	Model    string         `json:"model"`
	Messages []ollamaMsg    `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type ollamaMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResp struct {
	Message         *ollamaMsg `json:"message"`
	Response        string     `json:"response"`
	DoneReason      string     `json:"done_reason"`
	PromptEvalCount int        `json:"prompt_eval_count"`
	EvalCount       int        `json:"eval_count"`
	Error           string     `json:"error,omitempty"`
}

func (p *OllamaProvider) Chat(ctx context.Context, r *Request) (*Completion, error) {
	model := strings.TrimSpace(r.Model)
	if model == "" {
		model = p.Model
	}
	if p.Client == nil {
		return nil, newProviderError("ollama", model, FailureConfig, errors.New("http client is nil"))
	}

	msgs := make([]ollamaMsg, 0, len(r.Messages)+1)
	if r.System != "" {
		msgs = append(msgs, ollamaMsg{Role: "system", Content: r.System})
	}
	for _, m := range r.Messages {
		msgs = append(msgs, ollamaMsg{Role: m.Role, Content: m.Content})
	}
	reqBody := ollamaChatReq{Model: model, Messages: msgs}
	if r.MaxTokens > 0 || r.Temperature != nil {
		reqBody.Options = &ollamaOptions{NumPredict: r.MaxTokens, Temperature: r.Temperature}
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, newProviderError("ollama", model, FailureConfig, err)
	}

	url := fmt.Sprintf("%s/api/chat", strings.TrimRight(p.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, newProviderError("ollama", model, FailureConfig, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, transportError(ctx, "ollama", model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError("ollama", model, resp)
	}

	var decoded ollamaChatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, malformed("ollama", model, err)
	}
	if decoded.Error != "" {
		return nil, newProviderError("ollama", model, FailureStatus, errors.New(decoded.Error))
	}

	// older daemons answer /api/chat with the generate envelope
	content := decoded.Response
	if decoded.Message != nil {
		content = decoded.Message.Content
	}
	if decoded.Message == nil && decoded.Response == "" {
		return nil, malformed("ollama", model, errors.New("response has neither message nor response"))
	}
	return &Completion{
		Content:      content,
		TokensUsed:   decoded.PromptEvalCount + decoded.EvalCount,
		FinishReason: decoded.DoneReason,
	}, nil
}
