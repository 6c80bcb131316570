package finance

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

const (
	// trendThresholdPct separates growth and decline from noise.
	trendThresholdPct = 5.0
	minTrendMonths    = 3
	trendWindowMonths = 6

	expenseJumpRatio     = 1.30
	incomeDropRatio      = 0.80
	categoryShareLimit   = 0.40
	unusualExpenseSigma  = 2.0
	unusualExpenseMinObs = 5

	healthWindowDays = 90
)

type MonthTotals struct {
	Key        string             `json:"key"` // YYYY-MM
	Income     float64            `json:"income"`
	Expense    float64            `json:"expense"`
	Balance    float64            `json:"balance"`
	ByCategory map[string]float64 `json:"by_category,omitempty"`
}

type Direction string

const (
	Growth  Direction = "growth"
	Decline Direction = "decline"
	Stable  Direction = "stable"
)

type CategoryTrend struct {
	Category  string    `json:"category"`
	ChangePct float64   `json:"change_pct"`
	Average   float64   `json:"average"`
	Direction Direction `json:"direction"`
}

type Trends struct {
	HasEnoughData bool            `json:"has_enough_data"`
	Income        Direction       `json:"income"`
	Expense       Direction       `json:"expense"`
	Categories    []CategoryTrend `json:"categories,omitempty"`
}

type AlertKind string

const (
	AlertExpenseJump     AlertKind = "expense_jump"
	AlertIncomeDrop      AlertKind = "income_drop"
	AlertNegativeBalance AlertKind = "negative_balance"
	AlertCategoryShare   AlertKind = "category_share"
	AlertUnusualExpense  AlertKind = "unusual_expense"
)

type Alert struct {
	Kind    AlertKind `json:"kind"`
	Month   string    `json:"month"`
	Message string    `json:"message"`
}

type Profile struct {
	FirstDate    time.Time `json:"first_date"`
	MonthsActive int       `json:"months_active"`
	TxCount      int       `json:"tx_count"`
	TotalIncome  float64   `json:"total_income"`
	TotalExpense float64   `json:"total_expense"`
	AvgIncome    float64   `json:"avg_income"`
	AvgExpense   float64   `json:"avg_expense"`
	Health       Health    `json:"health"`
}

// Health is a 0-100 score over the last 90 days. Savings is worth up to 35
// points, income stability 25, income diversity 20 and expense spread 20.
type Health struct {
	Score           int    `json:"score"`
	Grade           string `json:"grade"`
	Savings         int    `json:"savings"`
	Stability       int    `json:"stability"`
	Diversification int    `json:"diversification"`
	ExpenseControl  int    `json:"expense_control"`
}

// Line renders the score for the prompt. Empty when there was no income in
// the window.
func (h Health) Line() string {
	if h.Grade == "" {
		return ""
	}
	return fmt.Sprintf("**Financial health score:** %d/100 (grade %s; savings %d/35, income stability %d/25, income sources %d/20, expense spread %d/20)",
		h.Score, h.Grade, h.Savings, h.Stability, h.Diversification, h.ExpenseControl)
}

// BehaviourType classifies the expense to income ratio. Empty when either
// side has no data.
func (p Profile) BehaviourType() string {
	if p.TotalIncome <= 0 || p.TotalExpense <= 0 {
		return ""
	}
	ratio := p.TotalExpense / p.TotalIncome
	switch {
	case ratio < 0.5:
		return "Saver (spends less than 50% of income)"
	case ratio < 0.8:
		return "Optimizer (reasonable spending)"
	case ratio < 1.0:
		return "Balancer (close to the limit)"
	default:
		return "Spender (expenses exceed income!)"
	}
}

// Aggregates is the precomputed financial memory of one user.
type Aggregates struct {
	Months     []MonthTotals `json:"months"` // oldest first
	Trends     Trends        `json:"trends"`
	Alerts     []Alert       `json:"alerts"` // newest month first
	Profile    Profile       `json:"profile"`
	Freshness  string        `json:"freshness"`
	ComputedAt time.Time     `json:"computed_at"`
}

func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// Summarize builds aggregates from a user's full transaction list.
func Summarize(txs []Transaction, now time.Time) Aggregates {
	agg := Aggregates{
		Months:     monthTotals(txs),
		Profile:    profile(txs, now),
		ComputedAt: now,
	}
	agg.Trends = trends(agg.Months)
	agg.Alerts = alerts(agg.Months, txs)
	return agg
}

// MonthsBetween returns the months whose key falls in [from, to].
func (a Aggregates) MonthsBetween(from, to time.Time) []MonthTotals {
	lo, hi := MonthKey(from), MonthKey(to)
	var out []MonthTotals
	for _, m := range a.Months {
		if m.Key >= lo && m.Key <= hi {
			out = append(out, m)
		}
	}
	return out
}

// SummaryLine is a one-sentence recap of all months on record.
func (a Aggregates) SummaryLine() string {
	if len(a.Months) == 0 {
		return "No transactions on record."
	}
	var inc, exp float64
	for _, m := range a.Months {
		inc += m.Income
		exp += m.Expense
	}
	n := float64(len(a.Months))
	return fmt.Sprintf("%d month(s) of data, income %s, expenses %s, balance %s, average monthly expenses %s.",
		len(a.Months), FormatCurrency(inc), FormatCurrency(exp), FormatCurrency(inc-exp), FormatCurrency(exp/n))
}

func monthTotals(txs []Transaction) []MonthTotals {
	byKey := map[string]*MonthTotals{}
	for _, tx := range txs {
		k := MonthKey(tx.Date)
		m, ok := byKey[k]
		if !ok {
			m = &MonthTotals{Key: k, ByCategory: map[string]float64{}}
			byKey[k] = m
		}
		switch tx.Kind {
		case KindIncome:
			m.Income += tx.Amount
		case KindExpense:
			m.Expense += tx.Amount
			m.ByCategory[categoryLabel(tx.Category)] += tx.Amount
		}
	}

	out := make([]MonthTotals, 0, len(byKey))
	for _, m := range byKey {
		m.Balance = m.Income - m.Expense
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func categoryLabel(c string) string {
	c = strings.TrimSpace(c)
	if c == "" {
		return "Other"
	}
	return c
}

func profile(txs []Transaction, now time.Time) Profile {
	var p Profile
	var nInc, nExp int
	for _, tx := range txs {
		if p.FirstDate.IsZero() || tx.Date.Before(p.FirstDate) {
			p.FirstDate = tx.Date
		}
		switch tx.Kind {
		case KindIncome:
			p.TotalIncome += tx.Amount
			nInc++
		case KindExpense:
			p.TotalExpense += tx.Amount
			nExp++
		}
	}
	p.TxCount = nInc + nExp
	if nInc > 0 {
		p.AvgIncome = p.TotalIncome / float64(nInc)
	}
	if nExp > 0 {
		p.AvgExpense = p.TotalExpense / float64(nExp)
	}
	if !p.FirstDate.IsZero() && now.After(p.FirstDate) {
		p.MonthsActive = int(now.Sub(p.FirstDate).Hours()/24) / 30
	}
	p.Health = health(txs, now)
	return p
}

func health(txs []Transaction, now time.Time) Health {
	since := CalendarDay(now).AddDate(0, 0, -healthWindowDays)
	var incomes []float64
	var totalInc, totalExp float64
	incCats := map[string]bool{}
	expCats := map[string]int{}
	nExp := 0
	for _, tx := range txs {
		if tx.Date.Before(since) {
			continue
		}
		switch tx.Kind {
		case KindIncome:
			incomes = append(incomes, tx.Amount)
			totalInc += tx.Amount
			incCats[categoryLabel(tx.Category)] = true
		case KindExpense:
			totalExp += tx.Amount
			expCats[categoryLabel(tx.Category)]++
			nExp++
		}
	}
	if totalInc <= 0 {
		return Health{}
	}

	var h Health
	switch rate := (totalInc - totalExp) / totalInc; {
	case rate > 0.30:
		h.Savings = 35
	case rate > 0.20:
		h.Savings = 25
	case rate > 0.10:
		h.Savings = 15
	case rate >= 0:
		h.Savings = 5
	}

	h.Stability = 10
	if len(incomes) > 1 {
		mu := mean(incomes)
		var ss float64
		for _, a := range incomes {
			ss += (a - mu) * (a - mu)
		}
		cv := 1.0
		if mu > 0 {
			cv = math.Sqrt(ss/float64(len(incomes))) / mu
		}
		switch {
		case cv < 0.2:
			h.Stability = 25
		case cv < 0.4:
			h.Stability = 15
		default:
			h.Stability = 5
		}
	}

	switch n := len(incCats); {
	case n >= 3:
		h.Diversification = 20
	case n == 2:
		h.Diversification = 10
	default:
		h.Diversification = 5
	}

	h.ExpenseControl = 10
	if nExp > 0 {
		top := 0
		for _, n := range expCats {
			if n > top {
				top = n
			}
		}
		switch share := float64(top) / float64(nExp); {
		case share < 0.4:
			h.ExpenseControl = 20
		case share < 0.6:
			h.ExpenseControl = 10
		default:
			h.ExpenseControl = 5
		}
	}

	h.Score = h.Savings + h.Stability + h.Diversification + h.ExpenseControl
	switch {
	case h.Score >= 80:
		h.Grade = "A"
	case h.Score >= 65:
		h.Grade = "B"
	case h.Score >= 50:
		h.Grade = "C"
	case h.Score >= 35:
		h.Grade = "D"
	default:
		h.Grade = "F"
	}
	return h
}

// changePct compares the mean of the later half of series with the earlier half.
func changePct(series []float64) float64 {
	half := len(series) / 2
	early := mean(series[:half])
	late := mean(series[len(series)-half:])
	if early == 0 {
		if late == 0 {
			return 0
		}
		return 100
	}
	return (late - early) / early * 100
}

func direction(pct float64) Direction {
	switch {
	case pct > trendThresholdPct:
		return Growth
	case pct < -trendThresholdPct:
		return Decline
	default:
		return Stable
	}
}

func trends(months []MonthTotals) Trends {
	if len(months) < minTrendMonths {
		return Trends{Income: Stable, Expense: Stable}
	}
	window := months
	if len(window) > trendWindowMonths {
		window = window[len(window)-trendWindowMonths:]
	}

	inc := make([]float64, len(window))
	exp := make([]float64, len(window))
	cats := map[string][]float64{}
	for i, m := range window {
		inc[i] = m.Income
		exp[i] = m.Expense
		for c := range m.ByCategory {
			if _, ok := cats[c]; !ok {
				cats[c] = make([]float64, len(window))
			}
		}
	}
	for i, m := range window {
		for c, v := range m.ByCategory {
			cats[c][i] = v
		}
	}

	t := Trends{
		HasEnoughData: true,
		Income:        direction(changePct(inc)),
		Expense:       direction(changePct(exp)),
	}
	for c, series := range cats {
		pct := changePct(series)
		t.Categories = append(t.Categories, CategoryTrend{
			Category:  c,
			ChangePct: math.Round(pct*10) / 10,
			Average:   mean(series),
			Direction: direction(pct),
		})
	}
	sort.Slice(t.Categories, func(i, j int) bool {
		a, b := math.Abs(t.Categories[i].ChangePct), math.Abs(t.Categories[j].ChangePct)
		if a != b {
			return a > b
		}
		return t.Categories[i].Category < t.Categories[j].Category
	})
	return t
}

func alerts(months []MonthTotals, txs []Transaction) []Alert {
	var out []Alert

	for i := 1; i < len(months); i++ {
		prev, cur := months[i-1], months[i]
		if prev.Expense > 0 && cur.Expense > prev.Expense*expenseJumpRatio {
			out = append(out, Alert{
				Kind:  AlertExpenseJump,
				Month: cur.Key,
				Message: fmt.Sprintf("Expenses in %s rose %.1f%% versus %s (%s → %s)",
					cur.Key, (cur.Expense/prev.Expense-1)*100, prev.Key,
					FormatCurrency(prev.Expense), FormatCurrency(cur.Expense)),
			})
		}
		if prev.Income > 0 && cur.Income < prev.Income*incomeDropRatio {
			out = append(out, Alert{
				Kind:  AlertIncomeDrop,
				Month: cur.Key,
				Message: fmt.Sprintf("Income in %s fell %.1f%% versus %s",
					cur.Key, (1-cur.Income/prev.Income)*100, prev.Key),
			})
		}
	}

	run := 0
	for i, m := range months {
		if m.Balance < 0 {
			run++
		} else {
			run = 0
		}
		endOfRun := i == len(months)-1 || months[i+1].Balance >= 0
		if run >= 2 && endOfRun {
			out = append(out, Alert{
				Kind:    AlertNegativeBalance,
				Month:   m.Key,
				Message: fmt.Sprintf("Balance was negative for %d consecutive months ending %s", run, m.Key),
			})
		}
	}

	if n := len(months); n > 0 {
		last := months[n-1]
		if last.Expense > 0 {
			for _, c := range sortedKeys(last.ByCategory) {
				share := last.ByCategory[c] / last.Expense
				if share > categoryShareLimit {
					out = append(out, Alert{
						Kind:    AlertCategoryShare,
						Month:   last.Key,
						Message: fmt.Sprintf("%s took %.0f%% of expenses in %s", c, share*100, last.Key),
					})
				}
			}
		}
	}

	out = append(out, unusualExpenses(txs)...)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out
}

func unusualExpenses(txs []Transaction) []Alert {
	var amounts []float64
	for _, tx := range txs {
		if tx.Kind == KindExpense {
			amounts = append(amounts, tx.Amount)
		}
	}
	if len(amounts) < unusualExpenseMinObs {
		return nil
	}
	mu := mean(amounts)
	var ss float64
	for _, a := range amounts {
		ss += (a - mu) * (a - mu)
	}
	sd := math.Sqrt(ss / float64(len(amounts)))
	if sd == 0 {
		return nil
	}
	limit := mu + unusualExpenseSigma*sd

	var out []Alert
	for _, tx := range txs {
		if tx.Kind != KindExpense || tx.Amount <= limit {
			continue
		}
		desc := tx.Description
		if desc == "" {
			desc = "no description"
		}
		out = append(out, Alert{
			Kind:  AlertUnusualExpense,
			Month: MonthKey(tx.Date),
			Message: fmt.Sprintf("Unusual expense on %s: %s (%s) - %s, typical is %s",
				tx.Date.Format("2006-01-02"), FormatCurrency(tx.Amount), categoryLabel(tx.Category), desc, FormatCurrency(mu)),
		})
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}
