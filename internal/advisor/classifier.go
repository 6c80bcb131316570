package advisor

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Intent string

const (
	IntentTrends     Intent = "trends"
	IntentAnomalies  Intent = "anomalies"
	IntentAdvice     Intent = "advice"
	IntentComparison Intent = "comparison"
	IntentForecast   Intent = "forecast"
	IntentSpecific   Intent = "specific"
	IntentGoals      Intent = "goals"
	IntentGeneral    Intent = "general"
)

type SectionKind string

const (
	SectionTables       SectionKind = "tables"
	SectionTrends       SectionKind = "trends"
	SectionAnomalies    SectionKind = "anomalies"
	SectionTransactions SectionKind = "transactions"
	SectionGoals        SectionKind = "goals"
	SectionProfile      SectionKind = "profile"
)

type WindowKind string

const (
	WindowRelativeDays WindowKind = "relative-days"
	WindowNamedMonth   WindowKind = "named-month"
	WindowDefault      WindowKind = "default-90-days"
)

const defaultWindowDays = 90

// TimeWindow is an inclusive range of calendar days.
type TimeWindow struct {
	Kind  WindowKind `json:"kind"`
	Days  int        `json:"days,omitempty"`
	Start time.Time  `json:"start"`
	End   time.Time  `json:"end"`
}

type Flags struct {
	NeedsForecast   bool `json:"needs_forecast"`
	NeedsComparison bool `json:"needs_comparison"`
	NeedsDeepSearch bool `json:"needs_deep_search"`
}

// Analysis is the structured reading of one user query.
type Analysis struct {
	Intent     Intent        `json:"intent"`
	Categories []string      `json:"categories"`
	Window     TimeWindow    `json:"window"`
	Amounts    []float64     `json:"amounts"`
	Priority   []SectionKind `json:"priority"`
	Flags      Flags         `json:"flags"`
}

type intentKeywords struct {
	intent   Intent
	keywords []string
}

// Declaration order breaks score ties.
var intentTable = []intentKeywords{
	{IntentTrends, []string{
		"тренд", "динамик", "изменени", "как изменил", "рост", "падени", "увеличи", "уменьши", "что происход", "куда движ",
		"trend", "dynamic", "growth", "decline", "changed", "over time", "going up", "going down",
	}},
	{IntentAnomalies, []string{
		"аномал", "странн", "необычн", "подозрит", "неожиданн", "почему так мног", "откуда такие", "что случил",
		"anomal", "unusual", "suspicious", "strange", "so high", "so much", "spike", "what happened",
	}},
	{IntentAdvice, []string{
		"совет", "рекоменд", "что делать", "как улучш", "как сэконом", "помоги", "подскажи", "как можно",
		"advice", "advise", "recommend", "improve", "optimiz", "what should i", "how can i", "tips",
	}},
	{IntentComparison, []string{
		"сравни", "разниц", "чем отличается", "против", "по сравнению", "раньше",
		"compare", "comparison", "difference", "versus", " vs ", "than last",
	}},
	{IntentForecast, []string{
		"прогноз", "предскаж", "будущ", "ожида", "планиру", "что будет", "сколько буд", "когда дости",
		"forecast", "predict", "future", "expect", "projection", "will i",
	}},
	{IntentSpecific, []string{
		"категори", "расход", "доход", "транзакци", "платеж", "сколько потра", "сколько зараб",
		"category", "expense", "income", "transaction", "payment", "spent on", "how much did",
	}},
	{IntentGoals, []string{
		"цель", "цели", "накопи", "мечта", "хочу", "сколько нужно", "когда смогу",
		"goal", "save up", "saving for", "target", "afford", "dream",
	}},
}

var priorityTable = map[Intent][]SectionKind{
	IntentTrends:     {SectionTrends, SectionTables, SectionAnomalies},
	IntentAnomalies:  {SectionAnomalies, SectionTransactions, SectionTables},
	IntentAdvice:     {SectionTrends, SectionAnomalies, SectionGoals, SectionTables},
	IntentComparison: {SectionTables, SectionTrends},
	IntentForecast:   {SectionTrends, SectionTables, SectionGoals},
	IntentSpecific:   {SectionTransactions, SectionTables},
	IntentGoals:      {SectionGoals, SectionTrends, SectionTables},
	IntentGeneral:    {SectionTables, SectionTrends, SectionAnomalies},
}

// categoryVocabulary is matched by substring in this order. No entry
// contains another.
var categoryVocabulary = []string{
	"еда", "продукты", "питание", "food", "groceries",
	"транспорт", "бензин", "transport", "fuel",
	"развлечени", "entertainment",
	"здоровье", "медицин", "health",
	"одежд", "clothes",
	"образовани", "education",
	"жилье", "аренд", "коммунал", "housing", "rent",
	"зарплат", "salary",
	"маркетинг", "реклам", "marketing", "advertising",
	"офис", "office",
	"подписк", "subscription",
}

type relativeMarker struct {
	re   *regexp.Regexp
	days int
}

// Russian stems need an explicit letter boundary because \b is ASCII only.
func ruWord(stem string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^\p{L}])` + stem)
}

// Checked in order; the first hit wins.
var relativeMarkers = []relativeMarker{
	{ruWord("сегодня"), 0},
	{regexp.MustCompile(`\btoday\b`), 0},
	{ruWord("позавчера"), 2},
	{regexp.MustCompile(`\bday before yesterday\b`), 2},
	{ruWord("вчера"), 1},
	{regexp.MustCompile(`\byesterday\b`), 1},
	{ruWord("недел"), 7},
	{regexp.MustCompile(`\bweek`), 7},
	{ruWord("месяц"), 30},
	{regexp.MustCompile(`\bmonth`), 30},
	{ruWord("квартал"), 90},
	{regexp.MustCompile(`\bquarter`), 90},
	{ruWord("год"), 365},
	{regexp.MustCompile(`\byear`), 365},
}

type monthName struct {
	re    *regexp.Regexp
	month time.Month
}

var monthNames = []monthName{
	{ruWord("январ"), time.January},
	{ruWord("феврал"), time.February},
	{ruWord("март"), time.March},
	{ruWord("апрел"), time.April},
	{ruWord("ма[йяе](?:[^\\p{L}]|$)"), time.May},
	{ruWord("июн"), time.June},
	{ruWord("июл"), time.July},
	{ruWord("август"), time.August},
	{ruWord("сентябр"), time.September},
	{ruWord("октябр"), time.October},
	{ruWord("ноябр"), time.November},
	{ruWord("декабр"), time.December},
	{regexp.MustCompile(`\bjanuary\b`), time.January},
	{regexp.MustCompile(`\bfebruary\b`), time.February},
	{regexp.MustCompile(`\bmarch\b`), time.March},
	{regexp.MustCompile(`\bapril\b`), time.April},
	// bare "may" is usually the verb
	{regexp.MustCompile(`\b(?:in|of|during|since|for|last|previous) may\b`), time.May},
	{regexp.MustCompile(`\bjune\b`), time.June},
	{regexp.MustCompile(`\bjuly\b`), time.July},
	{regexp.MustCompile(`\baugust\b`), time.August},
	{regexp.MustCompile(`\bseptember\b`), time.September},
	{regexp.MustCompile(`\boctober\b`), time.October},
	{regexp.MustCompile(`\bnovember\b`), time.November},
	{regexp.MustCompile(`\bdecember\b`), time.December},
}

var previousYearPhrases = regexp.MustCompile(`прошл\p{L}*(?:\s+год\p{L}*)?|\b(?:last|previous|past) year\b`)

var amountPattern = regexp.MustCompile(`\b(?:\d{1,3}(?:[ ,]\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)\b`)

// Classify reads a query relative to the current time.
func Classify(text string) Analysis {
	return ClassifyAt(text, time.Now())
}

// ClassifyAt is deterministic in (text, now) and never fails.
func ClassifyAt(text string, now time.Time) Analysis {
	q := strings.ToLower(text)
	intent := detectIntent(q)
	return Analysis{
		Intent:     intent,
		Categories: extractCategories(q),
		Window:     extractWindow(q, now),
		Amounts:    extractAmounts(q),
		Priority:   PriorityFor(intent),
		Flags: Flags{
			NeedsForecast:   intent == IntentForecast,
			NeedsComparison: intent == IntentComparison,
			NeedsDeepSearch: intent == IntentSpecific || intent == IntentAnomalies,
		},
	}
}

// PriorityFor returns a fresh copy of the section order for intent.
func PriorityFor(intent Intent) []SectionKind {
	p, ok := priorityTable[intent]
	if !ok {
		p = []SectionKind{SectionTables, SectionTrends}
	}
	return append([]SectionKind(nil), p...)
}

func detectIntent(q string) Intent {
	best, bestScore := IntentGeneral, 0
	for _, row := range intentTable {
		score := 0
		for _, kw := range row.keywords {
			if strings.Contains(q, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = row.intent, score
		}
	}
	return best
}

func extractCategories(q string) []string {
	found := []string{}
	for _, c := range categoryVocabulary {
		if strings.Contains(q, c) {
			found = append(found, c)
		}
	}
	return found
}

// startOfDay is the caller's local calendar date as a UTC midnight, the form
// transaction dates are stored in.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func extractWindow(q string, now time.Time) TimeWindow {
	today := startOfDay(now)

	month, hasMonth := findMonth(q)
	scan := q
	if hasMonth {
		// "March last year" names a month, not a trailing year.
		scan = previousYearPhrases.ReplaceAllString(q, " ")
	}

	for _, m := range relativeMarkers {
		if m.re.MatchString(scan) {
			return TimeWindow{
				Kind:  WindowRelativeDays,
				Days:  m.days,
				Start: today.AddDate(0, 0, -m.days),
				End:   today,
			}
		}
	}

	if hasMonth {
		year := today.Year()
		if previousYearPhrases.MatchString(q) {
			year--
		}
		start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		return TimeWindow{
			Kind:  WindowNamedMonth,
			Start: start,
			End:   start.AddDate(0, 1, -1),
		}
	}

	return TimeWindow{
		Kind:  WindowDefault,
		Days:  defaultWindowDays,
		Start: today.AddDate(0, 0, -defaultWindowDays),
		End:   today,
	}
}

func findMonth(q string) (time.Month, bool) {
	for _, m := range monthNames {
		if m.re.MatchString(q) {
			return m.month, true
		}
	}
	return 0, false
}

func extractAmounts(q string) []float64 {
	out := []float64{}
	for _, tok := range amountPattern.FindAllString(q, -1) {
		clean := strings.NewReplacer(" ", "", ",", "").Replace(tok)
		v, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
