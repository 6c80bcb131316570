package advisor

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/suPer8Hu/fin-advisor/internal/chat"
	"github.com/suPer8Hu/fin-advisor/internal/metrics"
)

type MatchKind string

const (
	MatchExactHash   MatchKind = "exact-hash"
	MatchSnippetHash MatchKind = "snippet-hash"
	MatchContainment MatchKind = "substring-containment"
	MatchNone        MatchKind = "none"
)

// RegenerationAmendment is appended to the system prompt for the single retry.
const RegenerationAmendment = "Avoid repeating prior advice; produce a new unique recommendation that has not been given in this conversation."

// Snippets shorter than this never match by containment.
const minContainmentChars = 20

type Verdict struct {
	Duplicate bool      `json:"duplicate"`
	MatchedOn MatchKind `json:"matched_on"`
}

var listMarker = regexp.MustCompile(`^(?:[-*•]|\d+\.)`)

// Snippets splits text into paragraph or list-item units. A blank line ends a
// snippet; a line starting with a list marker opens a new one.
func Snippets(text string) []string {
	var out, cur []string
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, " "))
			cur = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			flush()
		case listMarker.MatchString(line):
			flush()
			cur = []string{line}
		default:
			cur = append(cur, line)
		}
	}
	flush()
	return out
}

type snippet struct {
	norm string
	hash string
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// snippetsOf compares items by their text alone, so "- x" and "1. x" match.
func snippetsOf(text string) []snippet {
	raw := Snippets(text)
	out := make([]snippet, 0, len(raw))
	for _, s := range raw {
		body := strings.TrimSpace(listMarker.ReplaceAllString(s, ""))
		if body == "" {
			continue
		}
		out = append(out, snippet{norm: normalize(body), hash: chat.ContentHash(body)})
	}
	return out
}

// Check compares a draft against every prior assistant reply. Exact matches
// are reported before snippet matches.
func Check(candidate string, prior []string) Verdict {
	h := chat.ContentHash(candidate)
	for _, p := range prior {
		if chat.ContentHash(p) == h {
			return Verdict{Duplicate: true, MatchedOn: MatchExactHash}
		}
	}

	cand := snippetsOf(candidate)
	for _, p := range prior {
		prev := snippetsOf(p)
		for _, c := range cand {
			for _, q := range prev {
				if c.hash == q.hash {
					return Verdict{Duplicate: true, MatchedOn: MatchSnippetHash}
				}
				if utf8.RuneCountInString(c.norm) > minContainmentChars &&
					utf8.RuneCountInString(q.norm) > minContainmentChars &&
					(strings.Contains(c.norm, q.norm) || strings.Contains(q.norm, c.norm)) {
					return Verdict{Duplicate: true, MatchedOn: MatchContainment}
				}
			}
		}
	}
	return Verdict{MatchedOn: MatchNone}
}

// RegenerateFunc produces a new draft with amendment added to the system prompt.
type RegenerateFunc func(ctx context.Context, amendment string) (string, error)

type Guard struct {
	log zerolog.Logger
}

func NewGuard(log zerolog.Logger) *Guard {
	return &Guard{log: log.With().Str("component", "duplicate_guard").Logger()}
}

// Resolve returns the reply to keep. A duplicate draft gets exactly one
// regeneration, whose output is accepted even if it repeats again. When the
// regeneration itself fails the original draft is kept.
func (g *Guard) Resolve(ctx context.Context, candidate string, prior []string, regenerate RegenerateFunc) (string, Verdict, bool) {
	v := Check(candidate, prior)
	if !v.Duplicate {
		return candidate, v, false
	}
	metrics.DuplicatesDetected.WithLabelValues(string(v.MatchedOn)).Inc()

	retry, err := regenerate(ctx, RegenerationAmendment)
	if err != nil || strings.TrimSpace(retry) == "" {
		metrics.Regenerations.WithLabelValues("failed").Inc()
		g.log.Warn().Err(err).Str("matched_on", string(v.MatchedOn)).Msg("regeneration failed, keeping first draft")
		return candidate, v, false
	}

	if Check(retry, prior).Duplicate {
		metrics.Regenerations.WithLabelValues("still_duplicate").Inc()
		g.log.Info().Str("matched_on", string(v.MatchedOn)).Msg("regenerated reply still repeats prior advice")
	} else {
		metrics.Regenerations.WithLabelValues("unique").Inc()
	}
	return retry, v, true
}
