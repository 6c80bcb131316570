package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// maxErrorBody caps how much of a failed response body is kept in an error.
const maxErrorBody = 4 * 1024

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one completion call. System is kept apart from Messages so that
// each provider can frame it the way its API expects.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature *float64 // nil leaves the provider's default
}

// Completion is the provider-neutral result of a successful call.
type Completion struct {
	Content      string
	TokensUsed   int
	FinishReason string
}

// Provider is a single completion backend bound to one model.
type Provider interface {
	Chat(ctx context.Context, req *Request) (*Completion, error)
}

type FailureKind string

const (
	FailureNetwork   FailureKind = "network"
	FailureTimeout   FailureKind = "timeout"
	FailureAuth      FailureKind = "auth"
	FailureRateLimit FailureKind = "rate_limit"
	FailureQuota     FailureKind = "quota"
	FailureStatus    FailureKind = "status"
	FailureMalformed FailureKind = "malformed"
	FailureConfig    FailureKind = "config"
	FailureCanceled  FailureKind = "canceled"
)

// FallsThrough reports whether the dispatcher should move on to the next
// candidate. Only a caller cancellation stops the chain.
func (k FailureKind) FallsThrough() bool {
	return k != FailureCanceled
}

// ProviderError is the failure of one provider call.
type ProviderError struct {
	Provider string
	Model    string
	Kind     FailureKind
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	if e.Model != "" {
		b.WriteString("/")
		b.WriteString(e.Model)
	}
	b.WriteString(": ")
	b.WriteString(string(e.Kind))
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Err }

func newProviderError(provider, model string, kind FailureKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Model: model, Kind: kind, Err: err}
}

// transportError classifies an error returned by http.Client.Do.
func transportError(ctx context.Context, provider, model string, err error) *ProviderError {
	kind := FailureNetwork
	var ne net.Error
	switch {
	case errors.Is(err, context.Canceled):
		kind = FailureCanceled
	case errors.Is(err, context.DeadlineExceeded):
		kind = FailureTimeout
	case errors.As(err, &ne) && ne.Timeout():
		kind = FailureTimeout
	}
	if ctx.Err() == context.Canceled {
		kind = FailureCanceled
	}
	return newProviderError(provider, model, kind, err)
}

// statusError reads a bounded part of a non-2xx body and classifies it.
func statusError(provider, model string, resp *http.Response) *ProviderError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	e := newProviderError(provider, model, kindForStatus(resp.StatusCode, msg), errors.New(msg))
	e.Status = resp.StatusCode
	return e
}

func kindForStatus(status int, msg string) FailureKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return FailureAuth
	case status == http.StatusTooManyRequests:
		return FailureRateLimit
	case status == http.StatusPaymentRequired:
		return FailureQuota
	}
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "quota") || strings.Contains(lower, "rate limit") {
		return FailureQuota
	}
	return FailureStatus
}

func malformed(provider, model string, err error) *ProviderError {
	return newProviderError(provider, model, FailureMalformed, err)
}
