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

// GeminiProvider uses the generateContent API, which frames the system prompt
// as a separate instruction and the history as user/model turns.
type GeminiProvider struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

func NewGeminiProvider(baseURL, apiKey, model string) *GeminiProvider {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &GeminiProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// GeminiModelName strips an OpenRouter-style vendor prefix and a ":free" tag,
// so "google/gemini-2.0-flash-exp:free" becomes "gemini-2.0-flash-exp".
func GeminiModelName(model string) string {
	m := strings.TrimSpace(model)
	if i := strings.LastIndex(m, "/"); i >= 0 {
		m = m[i+1:]
	}
	if i := strings.Index(m, ":"); i >= 0 {
		m = m[:i]
	}
	if m == "" || !strings.Contains(strings.ToLower(m), "gemini") {
		return "gemini-1.5-flash"
	}
	return m
}

func geminiRole(role string) string {
	if role == "user" {
		return "user"
	}
	return "model"
}

func (p *GeminiProvider) Chat(ctx context.Context, r *Request) (*Completion, error) {
	model := r.Model
	if strings.TrimSpace(model) == "" {
		model = p.Model
	}
	model = GeminiModelName(model)
	if p.Client == nil {
		return nil, newProviderError("gemini", model, FailureConfig, errors.New("http client is nil"))
	}
	if strings.TrimSpace(p.APIKey) == "" {
		return nil, newProviderError("gemini", model, FailureAuth, errors.New("api key is required"))
	}
	if len(r.Messages) == 0 {
		return nil, newProviderError("gemini", model, FailureConfig, errors.New("empty conversation"))
	}

	gr := geminiRequest{
		Contents: make([]geminiContent, 0, len(r.Messages)),
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: r.MaxTokens,
			Temperature:     r.Temperature,
		},
	}
	if r.System != "" {
		gr.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: r.System}}}
	}
	for _, m := range r.Messages {
		if m.Role == "system" {
			continue
		}
		gr.Contents = append(gr.Contents, geminiContent{
			Role:  geminiRole(m.Role),
			Parts: []geminiPart{{Text: m.Content}},
		})
	}

	b, err := json.Marshal(gr)
	if err != nil {
		return nil, newProviderError("gemini", model, FailureConfig, err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(p.BaseURL, "/"), model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, newProviderError("gemini", model, FailureConfig, err)
	}
	req.Header.Set("Content-Type", "application/json")
	// key in a header keeps it out of access logs
	req.Header.Set("x-goog-api-key", p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, transportError(ctx, "gemini", model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError("gemini", model, resp)
	}

	var decoded geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, malformed("gemini", model, err)
	}
	if len(decoded.Candidates) == 0 {
		return nil, malformed("gemini", model, errors.New("no candidates in response"))
	}

	var sb strings.Builder
	for _, part := range decoded.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return &Completion{
		Content:      sb.String(),
		TokensUsed:   decoded.UsageMetadata.TotalTokenCount,
		FinishReason: decoded.Candidates[0].FinishReason,
	}, nil
}
