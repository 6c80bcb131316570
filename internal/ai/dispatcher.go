package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/suPer8Hu/fin-advisor/internal/metrics"
)

// Reply is a successful dispatch.
type Reply struct {
	Content      string
	Provider     string
	Model        string
	TokensUsed   int
	FinishReason string
	// Attempts counts candidates tried, including the successful one.
	Attempts int
}

type AttemptFailure struct {
	Spec ProviderSpec
	Err  *ProviderError
}

// ExhaustedError is returned when every candidate in the chain failed.
type ExhaustedError struct {
	Failures []AttemptFailure
}

func (e *ExhaustedError) Error() string {
	if len(e.Failures) == 0 {
		return "no ai providers configured"
	}
	return fmt.Sprintf("all %d ai providers failed, last: %v", len(e.Failures), e.Last())
}

// Last is the most recent failure reason.
func (e *ExhaustedError) Last() error {
	if len(e.Failures) == 0 {
		return nil
	}
	return e.Failures[len(e.Failures)-1].Err
}

func (e *ExhaustedError) Unwrap() error { return e.Last() }

type DispatchOptions struct {
	MaxTokens   int
	Temperature float64
}

// Dispatcher sends one conversation to the primary provider and walks the
// fallback chain until a candidate answers.
type Dispatcher struct {
	registry  *Registry
	primary   ProviderSpec
	fallbacks FallbackChain
	opts      DispatchOptions
	log       zerolog.Logger
}

func NewDispatcher(registry *Registry, primary ProviderSpec, fallbacks FallbackChain, opts DispatchOptions, log zerolog.Logger) *Dispatcher {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4000
	}
	return &Dispatcher{
		registry:  registry,
		primary:   primary,
		fallbacks: append(FallbackChain(nil), fallbacks...),
		opts:      opts,
		log:       log.With().Str("component", "dispatcher").Logger(),
	}
}

// Candidates returns the primary followed by the fallback chain.
func (d *Dispatcher) Candidates() []ProviderSpec {
	out := make([]ProviderSpec, 0, len(d.fallbacks)+1)
	out = append(out, d.primary)
	return append(out, d.fallbacks...)
}

type attemptResult struct {
	spec       ProviderSpec
	completion *Completion
	err        *ProviderError
	took       time.Duration
}

func (d *Dispatcher) Dispatch(ctx context.Context, systemPrompt string, history []Message) (*Reply, error) {
	var failures []AttemptFailure
	for i, spec := range d.Candidates() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("dispatch aborted after %d attempts: %w", i, err)
		}

		res := d.attempt(ctx, spec, systemPrompt, history)
		metrics.ProviderLatency.WithLabelValues(spec.Name).Observe(res.took.Seconds())

		if res.err == nil {
			metrics.ProviderAttempts.WithLabelValues(spec.Name, spec.Model, "ok").Inc()
			if i > 0 {
				d.log.Info().Str("provider", spec.Name).Str("model", spec.Model).Int("attempt", i+1).Msg("fallback provider answered")
			}
			return &Reply{
				Content:      res.completion.Content,
				Provider:     spec.Name,
				Model:        spec.Model,
				TokensUsed:   res.completion.TokensUsed,
				FinishReason: res.completion.FinishReason,
				Attempts:     i + 1,
			}, nil
		}

		metrics.ProviderAttempts.WithLabelValues(spec.Name, spec.Model, string(res.err.Kind)).Inc()
		d.log.Warn().
			Str("provider", spec.Name).
			Str("model", spec.Model).
			Str("kind", string(res.err.Kind)).
			Dur("took", res.took).
			Err(res.err.Err).
			Msg("provider attempt failed")

		if !res.err.Kind.FallsThrough() {
			return nil, fmt.Errorf("dispatch aborted: %w", res.err)
		}
		failures = append(failures, AttemptFailure{Spec: spec, Err: res.err})
	}

	metrics.DispatchExhausted.Inc()
	return nil, &ExhaustedError{Failures: failures}
}

func (d *Dispatcher) attempt(ctx context.Context, spec ProviderSpec, system string, history []Message) attemptResult {
	start := time.Now()
	res := attemptResult{spec: spec}

	p, err := d.registry.Get(ctx, spec)
	if err != nil {
		res.err = newProviderError(spec.Name, spec.Model, FailureConfig, err)
		res.took = time.Since(start)
		return res
	}

	actx, cancel := context.WithTimeout(ctx, spec.timeout())
	defer cancel()

	temperature := d.opts.Temperature
	c, err := p.Chat(actx, &Request{
		Model:       spec.Model,
		System:      system,
		Messages:    history,
		MaxTokens:   d.opts.MaxTokens,
		Temperature: &temperature,
	})
	res.took = time.Since(start)

	switch {
	case err != nil:
		res.err = asProviderError(ctx, actx, spec, err)
	case c == nil || strings.TrimSpace(c.Content) == "":
		res.err = malformed(spec.Name, spec.Model, errors.New("empty completion"))
	default:
		res.completion = c
	}
	return res
}

// asProviderError normalises any client error, and lets the two contexts decide
// between a timeout of this attempt and a cancellation by the caller.
func asProviderError(parent, attempt context.Context, spec ProviderSpec, err error) *ProviderError {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		pe = newProviderError(spec.Name, spec.Model, FailureNetwork, err)
	}
	switch {
	case parent.Err() != nil:
		pe.Kind = FailureCanceled
	case errors.Is(attempt.Err(), context.DeadlineExceeded):
		pe.Kind = FailureTimeout
	}
	return pe
}
