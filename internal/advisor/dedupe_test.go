package advisor

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSnippets(t *testing.T) {
	text := "## NOW\n\n- Cut grocery spending by 10%\n- Move 200 to savings\n  every payday\n\nA closing paragraph\nthat wraps.\n1. Numbered item"
	assert.Equal(t, []string{
		"## NOW",
		"- Cut grocery spending by 10%",
		"- Move 200 to savings every payday",
		"A closing paragraph that wraps.",
		"1. Numbered item",
	}, Snippets(text))
	assert.Empty(t, Snippets("  \n\n "))
}

func TestCheck(t *testing.T) {
	prior := []string{
		"## Advice\n\n- Cut grocery spending by 10%\n- Review subscriptions",
		"Your rent takes almost half of your monthly expenses, consider a cheaper flat.",
	}
	cases := []struct {
		name      string
		candidate string
		want      MatchKind
	}{
		{"exact modulo case and spacing", "## advice\n\n-  Cut grocery spending by 10%\n- review   subscriptions", MatchExactHash},
		{"shared bullet", "## Plan\n\n- Cut grocery spending by 10%\n- Open a deposit", MatchSnippetHash},
		{"same item under another marker", "## Plan\n\n1. Cut grocery spending by 10%\n2. Open a deposit", MatchSnippetHash},
		{"numbered versus bulleted, different case", "3. cut GROCERY spending by 10%", MatchSnippetHash},
		{"containment", "Note: your rent takes almost half of your monthly expenses, consider a cheaper flat. Start today.", MatchContainment},
		{"unique", "## Plan\n\n- Open a deposit with 5% interest\n- Track taxi rides for a week", MatchNone},
		{"short snippets never contain", "## Plan\n\n- Review", MatchNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Check(tc.candidate, prior)
			assert.Equal(t, tc.want, v.MatchedOn)
			assert.Equal(t, tc.want != MatchNone, v.Duplicate)
		})
	}

	assert.Equal(t, MatchNone, Check("anything", nil).MatchedOn)
}

type scriptedRegen struct {
	replies []string
	err     error
	calls   int
	amends  []string
}

func (s *scriptedRegen) fn(_ context.Context, amendment string) (string, error) {
	s.calls++
	s.amends = append(s.amends, amendment)
	if s.err != nil {
		return "", s.err
	}
	return s.replies[s.calls-1], nil
}

func TestGuardResolve(t *testing.T) {
	g := NewGuard(zerolog.Nop())
	prior := []string{"- Cut grocery spending by 10%"}

	t.Run("unique draft is kept without regeneration", func(t *testing.T) {
		r := &scriptedRegen{}
		out, v, regen := g.Resolve(context.Background(), "- Open a deposit", prior, r.fn)
		assert.Equal(t, "- Open a deposit", out)
		assert.False(t, v.Duplicate)
		assert.False(t, regen)
		assert.Zero(t, r.calls)
	})

	t.Run("duplicate is regenerated once", func(t *testing.T) {
		r := &scriptedRegen{replies: []string{"- Open a deposit"}}
		out, v, regen := g.Resolve(context.Background(), "- cut grocery spending by 10%", prior, r.fn)
		assert.Equal(t, "- Open a deposit", out)
		assert.Equal(t, MatchExactHash, v.MatchedOn)
		assert.True(t, regen)
		assert.Equal(t, 1, r.calls)
		assert.Equal(t, []string{RegenerationAmendment}, r.amends)
	})

	t.Run("second duplicate is accepted", func(t *testing.T) {
		r := &scriptedRegen{replies: []string{"- Cut grocery spending by 10%"}}
		out, _, regen := g.Resolve(context.Background(), "- Cut grocery spending by 10%", prior, r.fn)
		assert.Equal(t, "- Cut grocery spending by 10%", out)
		assert.True(t, regen)
		assert.Equal(t, 1, r.calls)
	})

	t.Run("failed regeneration keeps first draft", func(t *testing.T) {
		r := &scriptedRegen{err: errors.New("all providers down")}
		out, v, regen := g.Resolve(context.Background(), "- Cut grocery spending by 10%", prior, r.fn)
		assert.Equal(t, "- Cut grocery spending by 10%", out)
		assert.True(t, v.Duplicate)
		assert.False(t, regen)
		assert.Equal(t, 1, r.calls)
	})

	t.Run("empty regeneration keeps first draft", func(t *testing.T) {
		r := &scriptedRegen{replies: []string{"   "}}
		out, _, regen := g.Resolve(context.Background(), "- Cut grocery spending by 10%", prior, r.fn)
		assert.Equal(t, "- Cut grocery spending by 10%", out)
		assert.False(t, regen)
	})
}
