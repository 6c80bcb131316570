package advisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestClassify_MarketingExpenses(t *testing.T) {
	a := ClassifyAt("Why are marketing expenses so high this month?", fixedNow)

	assert.Contains(t, []Intent{IntentAnomalies, IntentAdvice}, a.Intent)
	assert.Equal(t, IntentAnomalies, a.Intent)
	assert.Contains(t, a.Categories, "marketing")
	assert.Equal(t, WindowRelativeDays, a.Window.Kind)
	assert.Equal(t, 30, a.Window.Days)
	assert.Equal(t, date(2024, 5, 16), a.Window.Start)
	assert.Equal(t, date(2024, 6, 15), a.Window.End)
	assert.Equal(t, []SectionKind{SectionAnomalies, SectionTransactions, SectionTables}, a.Priority)
	assert.True(t, a.Flags.NeedsDeepSearch)
}

func TestClassify_Intents(t *testing.T) {
	cases := []struct {
		query string
		want  Intent
	}{
		{"Какой тренд у моих расходов? Как изменились траты?", IntentTrends},
		{"Дай совет, как сэкономить", IntentAdvice},
		{"Compare my spending versus last spring", IntentComparison},
		{"Can you forecast my balance? What do you predict?", IntentForecast},
		{"How much did I spend in the groceries category", IntentSpecific},
		{"I want to save up for a car, is that goal realistic", IntentGoals},
		{"Сколько потратил на еду", IntentSpecific},
		{"hello there", IntentGeneral},
		{"", IntentGeneral},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyAt(tc.query, fixedNow).Intent)
		})
	}
}

func TestClassify_TieGoesToFirstDeclared(t *testing.T) {
	// one trends keyword, one forecast keyword
	a := ClassifyAt("growth forecast", fixedNow)
	assert.Equal(t, IntentTrends, a.Intent)
}

func TestClassify_RelativeMarkerOrder(t *testing.T) {
	cases := map[string]int{
		"what did I spend today":             0,
		"что я купил позавчера":              2,
		"что я купил вчера":                  1,
		"spending this week and this month":  7,
		"за последний квартал":               90,
		"how did this year go":               365,
		"расходы за месяц":                   30,
		"today or yesterday, whichever":      0,
		"траты за неделю по сравнению с годом": 7,
	}
	for q, days := range cases {
		a := ClassifyAt(q, fixedNow)
		require.Equal(t, WindowRelativeDays, a.Window.Kind, q)
		assert.Equal(t, days, a.Window.Days, q)
		assert.Equal(t, fixedNow.Format("2006-01-02"), a.Window.End.Format("2006-01-02"), q)
	}
}

func TestClassify_NamedMonth(t *testing.T) {
	a := ClassifyAt("Сколько я потратил в марте?", fixedNow)
	assert.Equal(t, WindowNamedMonth, a.Window.Kind)
	assert.Equal(t, date(2024, 3, 1), a.Window.Start)
	assert.Equal(t, date(2024, 3, 31), a.Window.End)

	a = ClassifyAt("Что было в феврале прошлого года", fixedNow)
	assert.Equal(t, WindowNamedMonth, a.Window.Kind)
	assert.Equal(t, date(2023, 2, 1), a.Window.Start)
	assert.Equal(t, date(2023, 2, 28), a.Window.End)

	a = ClassifyAt("expenses in December last year", fixedNow)
	assert.Equal(t, WindowNamedMonth, a.Window.Kind)
	assert.Equal(t, date(2023, 12, 1), a.Window.Start)
	assert.Equal(t, date(2023, 12, 31), a.Window.End)

	a = ClassifyAt("траты в мае", fixedNow)
	assert.Equal(t, time.May, a.Window.Start.Month())

	// "may" as a verb is not a month
	a = ClassifyAt("I may need help", fixedNow)
	assert.Equal(t, WindowDefault, a.Window.Kind)

	// a smartphone is not March
	a = ClassifyAt("купил смартфон", fixedNow)
	assert.Equal(t, WindowDefault, a.Window.Kind)
}

func TestClassify_WindowUsesLocalCalendarDate(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)
	// 22:30 UTC on March 30th, already March 31st in Moscow
	now := time.Date(2026, 3, 31, 1, 30, 0, 0, msk)

	a := ClassifyAt("what did I spend today", now)
	assert.Equal(t, date(2026, 3, 31), a.Window.Start)
	assert.Equal(t, date(2026, 3, 31), a.Window.End)
	assert.Equal(t, time.UTC, a.Window.End.Location())

	a = ClassifyAt("Сколько я потратил в марте?", now)
	assert.Equal(t, date(2026, 3, 1), a.Window.Start)
	assert.Equal(t, date(2026, 3, 31), a.Window.End)
}

func TestClassify_DefaultWindow(t *testing.T) {
	a := ClassifyAt("hello", fixedNow)
	assert.Equal(t, WindowDefault, a.Window.Kind)
	assert.Equal(t, 90, a.Window.Days)
	assert.Equal(t, date(2024, 3, 17), a.Window.Start)
	assert.Equal(t, date(2024, 6, 15), a.Window.End)
}

func TestClassify_Amounts(t *testing.T) {
	a := ClassifyAt("I spent 1500 on rent, 1 200.50 on food and 12,000 on a trip, cut 10%", fixedNow)
	assert.Equal(t, []float64{1500, 1200.5, 12000, 10}, a.Amounts)
	assert.Equal(t, []string{"food", "rent"}, a.Categories)

	assert.Empty(t, ClassifyAt("no numbers here", fixedNow).Amounts)
}

func TestClassify_AlwaysValid(t *testing.T) {
	inputs := []string{"", "   ", "???", "123", "январь февраль март", "year month week today", "ВЧЕРА"}
	for _, in := range inputs {
		a := ClassifyAt(in, fixedNow)
		assert.NotEmpty(t, a.Priority, in)
		assert.False(t, a.Window.Start.After(a.Window.End), in)
		seen := map[SectionKind]bool{}
		for _, k := range a.Priority {
			assert.False(t, seen[k], "duplicate section %s for %q", k, in)
			seen[k] = true
		}
	}
}

func TestPriorityFor(t *testing.T) {
	assert.Equal(t, []SectionKind{SectionTables, SectionTrends}, PriorityFor("unknown"))
	p := PriorityFor(IntentGoals)
	p[0] = SectionProfile
	assert.Equal(t, SectionGoals, PriorityFor(IntentGoals)[0], "table is not aliased")
}
