package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func income(d time.Time, amount float64) Transaction {
	return Transaction{Kind: KindIncome, Amount: amount, Date: d, Category: "Salary"}
}

func expense(d time.Time, amount float64, cat string) Transaction {
	return Transaction{Kind: KindExpense, Amount: amount, Date: d, Category: cat}
}

func TestSummarize_MonthTotalsAndProfile(t *testing.T) {
	txs := []Transaction{
		income(day(2024, 1, 5), 1000),
		expense(day(2024, 1, 10), 300, "Groceries"),
		expense(day(2024, 1, 12), 100, ""),
		income(day(2024, 2, 5), 1000),
		expense(day(2024, 2, 7), 500, "Groceries"),
	}
	agg := Summarize(txs, day(2024, 3, 6))

	require.Len(t, agg.Months, 2)
	assert.Equal(t, MonthTotals{Key: "2024-01", Income: 1000, Expense: 400, Balance: 600,
		ByCategory: map[string]float64{"Groceries": 300, "Other": 100}}, agg.Months[0])
	assert.Equal(t, "2024-02", agg.Months[1].Key)

	assert.Equal(t, 5, agg.Profile.TxCount)
	assert.Equal(t, 2, agg.Profile.MonthsActive)
	assert.InDelta(t, 1000, agg.Profile.AvgIncome, 1e-9)
	assert.InDelta(t, 300, agg.Profile.AvgExpense, 1e-9)
	assert.Equal(t, "Saver (spends less than 50% of income)", agg.Profile.BehaviourType())

	assert.False(t, agg.Trends.HasEnoughData)
	assert.Contains(t, agg.SummaryLine(), "2 month(s) of data")
}

func TestProfile_BehaviourThresholds(t *testing.T) {
	cases := map[float64]string{
		40:  "Saver (spends less than 50% of income)",
		50:  "Optimizer (reasonable spending)",
		80:  "Balancer (close to the limit)",
		100: "Spender (expenses exceed income!)",
	}
	for exp, want := range cases {
		assert.Equal(t, want, Profile{TotalIncome: 100, TotalExpense: exp}.BehaviourType(), "expense %v", exp)
	}
	assert.Empty(t, Profile{TotalIncome: 100}.BehaviourType())
}

func TestProfile_Health(t *testing.T) {
	now := day(2024, 6, 30)
	tagged := func(tx Transaction, cat string) Transaction {
		tx.Category = cat
		return tx
	}

	t.Run("diverse income, concentrated spending", func(t *testing.T) {
		h := Summarize([]Transaction{
			income(day(2024, 3, 1), 1e6), // outside the 90 day window
			income(day(2024, 4, 15), 1000),
			tagged(income(day(2024, 5, 1), 1000), "Freelance"),
			tagged(income(day(2024, 6, 1), 1000), "Dividends"),
			expense(day(2024, 5, 3), 900, "Rent"),
			expense(day(2024, 6, 3), 900, "Rent"),
			expense(day(2024, 6, 9), 700, "Food"),
		}, now).Profile.Health
		assert.Equal(t, Health{Score: 65, Grade: "B", Savings: 15, Stability: 25, Diversification: 20, ExpenseControl: 5}, h)
		assert.Equal(t, "**Financial health score:** 65/100 (grade B; savings 15/35, income stability 25/25, income sources 20/20, expense spread 5/20)", h.Line())
	})

	t.Run("overspending with uneven income", func(t *testing.T) {
		h := Summarize([]Transaction{
			income(day(2024, 5, 1), 1000),
			income(day(2024, 6, 1), 2000),
			expense(day(2024, 6, 2), 3500, ""),
		}, now).Profile.Health
		assert.Equal(t, Health{Score: 25, Grade: "F", Savings: 0, Stability: 15, Diversification: 5, ExpenseControl: 5}, h)
	})

	t.Run("single income, no expenses", func(t *testing.T) {
		h := Summarize([]Transaction{income(day(2024, 6, 1), 100)}, now).Profile.Health
		assert.Equal(t, Health{Score: 60, Grade: "C", Savings: 35, Stability: 10, Diversification: 5, ExpenseControl: 10}, h)
	})

	t.Run("no recent income", func(t *testing.T) {
		h := Summarize([]Transaction{income(day(2023, 1, 1), 100), expense(day(2024, 6, 1), 50, "Food")}, now).Profile.Health
		assert.Zero(t, h)
		assert.Empty(t, h.Line())
	})
}

func TestSummarize_Trends(t *testing.T) {
	var txs []Transaction
	for i, amt := range []float64{100, 100, 200, 200} {
		m := time.Month(i + 1)
		txs = append(txs,
			income(day(2024, m, 1), 1000),
			expense(day(2024, m, 2), amt, "Dining"),
			expense(day(2024, m, 3), 300, "Rent"),
		)
	}
	agg := Summarize(txs, day(2024, 5, 1))

	require.True(t, agg.Trends.HasEnoughData)
	assert.Equal(t, Stable, agg.Trends.Income)
	assert.Equal(t, Growth, agg.Trends.Expense)
	require.Len(t, agg.Trends.Categories, 2)
	assert.Equal(t, "Dining", agg.Trends.Categories[0].Category)
	assert.Equal(t, 100.0, agg.Trends.Categories[0].ChangePct)
	assert.Equal(t, Growth, agg.Trends.Categories[0].Direction)
	assert.Equal(t, Stable, agg.Trends.Categories[1].Direction)
}

func TestSummarize_Alerts(t *testing.T) {
	txs := []Transaction{
		income(day(2024, 1, 1), 1000),
		expense(day(2024, 1, 2), 100, "Groceries"),
		expense(day(2024, 1, 3), 100, "Groceries"),
		expense(day(2024, 1, 4), 100, "Transport"),
		expense(day(2024, 1, 5), 100, "Transport"),
		expense(day(2024, 1, 6), 100, "Transport"),
		income(day(2024, 2, 1), 500),
		expense(day(2024, 2, 2), 100, "Groceries"),
		expense(day(2024, 2, 3), 2000, "Electronics"),
	}
	agg := Summarize(txs, day(2024, 3, 1))

	kinds := map[AlertKind]bool{}
	for _, a := range agg.Alerts {
		kinds[a.Kind] = true
		assert.Equal(t, "2024-02", a.Month)
	}
	assert.True(t, kinds[AlertExpenseJump])
	assert.True(t, kinds[AlertIncomeDrop])
	assert.True(t, kinds[AlertCategoryShare])
	assert.True(t, kinds[AlertUnusualExpense])
	assert.False(t, kinds[AlertNegativeBalance], "one negative month is not a streak")
}

func TestSummarize_NegativeBalanceStreak(t *testing.T) {
	txs := []Transaction{
		income(day(2024, 1, 1), 100), expense(day(2024, 1, 2), 200, "Rent"),
		income(day(2024, 2, 1), 100), expense(day(2024, 2, 2), 200, "Rent"),
		income(day(2024, 3, 1), 100), expense(day(2024, 3, 2), 200, "Rent"),
	}
	agg := Summarize(txs, day(2024, 4, 1))
	var found []Alert
	for _, a := range agg.Alerts {
		if a.Kind == AlertNegativeBalance {
			found = append(found, a)
		}
	}
	require.Len(t, found, 1)
	assert.Equal(t, "Balance was negative for 3 consecutive months ending 2024-03", found[0].Message)
}

func TestGoal_Progress(t *testing.T) {
	now := day(2024, 1, 1)
	g := Goal{TargetAmount: 1200, CurrentAmount: 300, Deadline: day(2024, 7, 1)}
	assert.Equal(t, 25.0, g.Progress())
	assert.Equal(t, 900.0, g.Remaining())
	assert.Equal(t, 6, g.MonthsRemaining(now))
	assert.Equal(t, 150.0, g.RequiredMonthly(now))

	overdue := Goal{TargetAmount: 100, CurrentAmount: 150, Deadline: day(2023, 1, 1)}
	assert.Equal(t, 100.0, overdue.Progress())
	assert.Equal(t, 1, overdue.MonthsRemaining(now))
	assert.Equal(t, 0.0, overdue.RequiredMonthly(now))
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "1,234.50", FormatCurrency(1234.5))
	assert.Equal(t, "-15,000.00", FormatCurrency(-15000))
	assert.Equal(t, "0.00", FormatCurrency(0))
}
