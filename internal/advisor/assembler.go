package advisor

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/suPer8Hu/fin-advisor/internal/finance"
	"github.com/suPer8Hu/fin-advisor/internal/metrics"
)

const (
	DefaultContextChars = 10000
	minContextChars     = 64

	TruncationMarker = "[content truncated]"
	sectionSeparator = "\n\n"

	topTrendCategories = 5
	topAlerts          = 5
	txFetchLimit       = 10
	txShowLimit        = 5
)

// FinanceStore is the read side of a user's financial memory.
type FinanceStore interface {
	Aggregates(ctx context.Context, userID uint64) (*finance.Aggregates, error)
	Transactions(ctx context.Context, userID uint64, f finance.Filter) ([]finance.Transaction, error)
	Goals(ctx context.Context, userID uint64) ([]finance.Goal, error)
}

type Section struct {
	Kind    SectionKind `json:"kind"`
	Text    string      `json:"text"`
	Ordinal int         `json:"ordinal"`
}

// Bundle is the rendered context. TotalChars counts runes of Text().
type Bundle struct {
	Sections   []Section `json:"sections"`
	TotalChars int       `json:"total_chars"`
	Truncated  bool      `json:"truncated"`
}

func (b Bundle) Text() string {
	parts := make([]string, 0, len(b.Sections)+1)
	for _, s := range b.Sections {
		parts = append(parts, s.Text)
	}
	if b.Truncated {
		parts = append(parts, TruncationMarker)
	}
	return strings.Join(parts, sectionSeparator)
}

type Assembler struct {
	store    FinanceStore
	maxChars int
	now      func() time.Time
	log      zerolog.Logger
}

func NewAssembler(store FinanceStore, maxChars int, log zerolog.Logger) *Assembler {
	if maxChars <= 0 {
		maxChars = DefaultContextChars
	}
	if maxChars < minContextChars {
		maxChars = minContextChars
	}
	return &Assembler{
		store:    store,
		maxChars: maxChars,
		now:      time.Now,
		log:      log.With().Str("component", "assembler").Logger(),
	}
}

// aggregatesOnce loads aggregates at most once per assembly.
type aggregatesOnce struct {
	load func() (*finance.Aggregates, error)
	done bool
	agg  *finance.Aggregates
	err  error
}

func (o *aggregatesOnce) get() (*finance.Aggregates, error) {
	if !o.done {
		o.agg, o.err = o.load()
		o.done = true
	}
	return o.agg, o.err
}

// Assemble renders the profile followed by the sections named in
// analysis.Priority. Section failures become placeholder text.
func (a *Assembler) Assemble(ctx context.Context, userID uint64, analysis Analysis) Bundle {
	aggs := &aggregatesOnce{load: func() (*finance.Aggregates, error) {
		return a.store.Aggregates(ctx, userID)
	}}

	sections := []Section{{Kind: SectionProfile, Text: a.profileSection(aggs)}}
	seen := map[SectionKind]bool{SectionProfile: true}
	for _, kind := range analysis.Priority {
		if seen[kind] {
			continue
		}
		seen[kind] = true

		var text string
		switch kind {
		case SectionTables:
			text = a.tablesSection(aggs, analysis.Window)
		case SectionTrends:
			text = a.trendsSection(aggs)
		case SectionAnomalies:
			text = a.anomaliesSection(aggs)
		case SectionTransactions:
			text = a.transactionsSection(ctx, userID, analysis)
		case SectionGoals:
			text = a.goalsSection(ctx, userID)
		default:
			continue
		}
		sections = append(sections, Section{Kind: kind, Text: text})
	}

	b := fit(sections, a.maxChars)
	if b.Truncated {
		metrics.ContextTruncations.Inc()
		a.log.Debug().Uint64("user_id", userID).Int("budget", a.maxChars).Int("kept", len(b.Sections)).Msg("context truncated")
	}
	return b
}

// fit keeps whole sections while they and the marker stay within budget.
func fit(sections []Section, budget int) Bundle {
	for i := range sections {
		sections[i].Ordinal = i
	}
	b := Bundle{Sections: sections}
	if total := utf8.RuneCountInString(b.Text()); total <= budget {
		b.TotalChars = total
		return b
	}

	sepLen := utf8.RuneCountInString(sectionSeparator)
	markerLen := utf8.RuneCountInString(TruncationMarker)

	var kept []Section
	used := 0
	for _, s := range sections {
		add := utf8.RuneCountInString(s.Text)
		if len(kept) > 0 {
			add += sepLen
		}
		if used+add+sepLen+markerLen > budget {
			break
		}
		kept = append(kept, s)
		used += add
	}

	if len(kept) == 0 {
		room := budget - markerLen - sepLen
		if room > 0 {
			first := sections[0]
			first.Text = cutRunes(first.Text, room)
			kept = append(kept, first)
		}
	}

	b = Bundle{Sections: kept, Truncated: true}
	b.TotalChars = utf8.RuneCountInString(b.Text())
	return b
}

func cutRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func placeholder(title string, err error) string {
	return fmt.Sprintf("## %s\n\n_Could not load this section: %v_", title, err)
}

func (a *Assembler) profileSection(aggs *aggregatesOnce) string {
	const title = "User profile"
	agg, err := aggs.get()
	if err != nil {
		return placeholder(title, err)
	}
	p := agg.Profile

	lines := []string{"## " + title, ""}
	lines = append(lines,
		fmt.Sprintf("**Months active:** %d", p.MonthsActive),
		fmt.Sprintf("**Total transactions:** %d", p.TxCount),
	)
	if p.AvgIncome > 0 {
		lines = append(lines, "**Average income:** "+finance.FormatCurrency(p.AvgIncome))
	}
	if p.AvgExpense > 0 {
		lines = append(lines, "**Average expense:** "+finance.FormatCurrency(p.AvgExpense))
	}
	if t := p.BehaviourType(); t != "" {
		lines = append(lines, "**Financial type:** "+t)
	}
	if h := p.Health.Line(); h != "" {
		lines = append(lines, h)
	}
	return strings.Join(lines, "\n")
}

// hasExplicitWindow reports whether the query named a period; without one the
// full history is used.
func hasExplicitWindow(w TimeWindow) bool {
	return w.Kind == WindowRelativeDays || w.Kind == WindowNamedMonth
}

func (a *Assembler) tablesSection(aggs *aggregatesOnce, w TimeWindow) string {
	const title = "Financial statistics"
	agg, err := aggs.get()
	if err != nil {
		return placeholder(title, err)
	}

	months := agg.Months
	if hasExplicitWindow(w) {
		months = agg.MonthsBetween(w.Start, w.End)
	}

	var b strings.Builder
	b.WriteString("## " + title + "\n\n")
	if len(months) == 0 {
		b.WriteString("_No data for the selected period_")
	} else {
		b.WriteString("| Month | Income | Expenses | Balance |\n|---|---|---|---|")
		for _, m := range months {
			fmt.Fprintf(&b, "\n| %s | %s | %s | %s |", m.Key,
				finance.FormatCurrency(m.Income), finance.FormatCurrency(m.Expense), finance.FormatCurrency(m.Balance))
		}
	}
	b.WriteString("\n\n**Summary:** " + agg.SummaryLine())
	return b.String()
}

func (a *Assembler) trendsSection(aggs *aggregatesOnce) string {
	const title = "Trends"
	agg, err := aggs.get()
	if err != nil {
		return placeholder(title, err)
	}
	tr := agg.Trends
	if !tr.HasEnoughData {
		return "## " + title + "\n\n_Not enough data for trend analysis (at least 3 months required)_"
	}

	lines := []string{
		"## " + title,
		"",
		"**Overall:**",
		"- Income: " + string(tr.Income),
		"- Expenses: " + string(tr.Expense),
	}
	if len(tr.Categories) > 0 {
		lines = append(lines, "", "**Expense categories:**")
		for i, c := range tr.Categories {
			if i == topTrendCategories {
				break
			}
			lines = append(lines, fmt.Sprintf("- %s: %s %+.1f%%, average %s",
				c.Category, c.Direction, c.ChangePct, finance.FormatCurrency(c.Average)))
		}
	}
	return strings.Join(lines, "\n")
}

func (a *Assembler) anomaliesSection(aggs *aggregatesOnce) string {
	agg, err := aggs.get()
	if err != nil {
		return placeholder("Anomalies", err)
	}
	if len(agg.Alerts) == 0 {
		return "## Anomalies\n\n_No anomalies detected_"
	}
	lines := []string{"## Anomalies and unusual spending", ""}
	for i, al := range agg.Alerts {
		if i == topAlerts {
			break
		}
		lines = append(lines, "- "+al.Message)
	}
	return strings.Join(lines, "\n")
}

func (a *Assembler) transactionsSection(ctx context.Context, userID uint64, analysis Analysis) string {
	const title = "Recent transactions"
	f := finance.Filter{Categories: analysis.Categories, Limit: txFetchLimit}
	if hasExplicitWindow(analysis.Window) {
		f.From, f.To = analysis.Window.Start, analysis.Window.End
	}

	f.Kind = finance.KindIncome
	incomes, err := a.store.Transactions(ctx, userID, f)
	if err != nil {
		return placeholder(title, err)
	}
	f.Kind = finance.KindExpense
	expenses, err := a.store.Transactions(ctx, userID, f)
	if err != nil {
		return placeholder(title, err)
	}

	lines := []string{"## " + title}
	if len(analysis.Categories) > 0 {
		lines = append(lines, "", "**Filter:** "+strings.Join(analysis.Categories, ", "))
	}
	render := func(label string, txs []finance.Transaction) {
		if len(txs) == 0 {
			return
		}
		lines = append(lines, "", "**"+label+":**")
		for i, tx := range txs {
			if i == txShowLimit {
				break
			}
			desc := tx.Description
			if desc == "" {
				desc = "no description"
			}
			lines = append(lines, fmt.Sprintf("- %s: %s (%s) - %s",
				tx.Date.Format("02.01.2006"), finance.FormatCurrency(tx.Amount), tx.Category, desc))
		}
	}
	render("Income", incomes)
	render("Expenses", expenses)
	if len(incomes) == 0 && len(expenses) == 0 {
		lines = append(lines, "", "_No transactions match the filters_")
	}
	return strings.Join(lines, "\n")
}

func (a *Assembler) goalsSection(ctx context.Context, userID uint64) string {
	const title = "Financial goals"
	goals, err := a.store.Goals(ctx, userID)
	if err != nil {
		return placeholder(title, err)
	}
	if len(goals) == 0 {
		return "## " + title + "\n\n_No active goals_"
	}

	now := a.now()
	lines := []string{"## " + title, ""}
	for _, g := range goals {
		line := fmt.Sprintf("- %s: %s of %s (%.1f%%), deadline %s, needs %s/month",
			g.Title, finance.FormatCurrency(g.CurrentAmount), finance.FormatCurrency(g.TargetAmount),
			g.Progress(), g.Deadline.Format("2006-01-02"), finance.FormatCurrency(g.RequiredMonthly(now)))
		if g.MonthlyContribution > 0 {
			if g.MonthlyContribution >= g.RequiredMonthly(now) {
				line += ", on track"
			} else {
				line += ", behind plan"
			}
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
