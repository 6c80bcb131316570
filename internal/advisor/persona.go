package advisor

import (
	"sort"
	"strings"
)

// OffTopicReply is the only text the model may return for non-financial queries.
const OffTopicReply = "This message has nothing to do with our financial project."

// InsightsQuery drives the dashboard summary when the user asked nothing.
const InsightsQuery = "Give a brief analysis of my financial situation and give 2-3 most important tips right now."

const noRepeatReminder = "Earlier advice in this conversation is listed in the history above. Do not repeat it; build on it or give something new."

// PersonaPrompt fixes the language, the answer template and the off-topic rule.
const PersonaPrompt = `**You MUST answer in English only, whatever language the question is in.**

You are a personal financial analyst and advisor for individuals and small businesses.

# PRINCIPLES
- Analyse behaviour patterns, not only totals: correlations between categories, seasonality, triggers for spending.
- Adapt advice to the user's financial type (saver, optimizer, balancer, spender) and to earlier turns of this conversation.
- Every recommendation states what to do, why it matters (with numbers from the context), the expected effect and how to start.
- No generic filler, no restating the table, no advice the user already follows.
- Be friendly, realistic and honest about bad news.

# ANSWER TEMPLATE
Use exactly these Markdown sections:

## QUICK CONCLUSION
One or two sentences with the most important insight.

## KEY FINDINGS
- Finding with numbers
- Trend
- Anomaly

## CRITICAL ALERTS
- Problem -> consequence -> urgency (omit the section when there is nothing critical)

## PRIORITY RECOMMENDATIONS

### NOW (this week):
1. Action, expected result, first step

### THIS MONTH:
1. Medium-term task

### LONG-TERM (3-6 months):
1. Strategic recommendation

## FORECAST
Where current trends lead next month, and what reaching each goal requires.

## FINANCIAL LITERACY TIP
One principle or technique the user probably does not know.

# ALERT RULES
Call out: expenses up more than 30% in a month, income down more than 20%, a negative balance two or more months running, one category above 40% of expenses, no savings while income exceeds expenses.

# OFF-TOPIC
If the request is not about money, purchases, budgeting, the economy or financial goals, and is neither small talk nor a question about this application, ignore the template and reply only:
"` + OffTopicReply + `"
Do not add headers or advice in that case.`

// BuildSystemPrompt renders persona, financial context and upload summaries.
func BuildSystemPrompt(bundle Bundle, summaries map[string]string, hasPriorAdvice bool) string {
	var b strings.Builder
	b.WriteString(PersonaPrompt)
	b.WriteString("\n\n---\n\n# USER CONTEXT\n\n")
	b.WriteString(bundle.Text())

	if len(summaries) > 0 {
		keys := make([]string, 0, len(summaries))
		for k := range summaries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\n\n## Uploaded data\n")
		for _, k := range keys {
			b.WriteString("\n- " + k + ": " + summaries[k])
		}
	}

	b.WriteString("\n\n---\n\nAnswer the user's latest question using the context above. Aim for insight the user can act on, not a recap.")
	if hasPriorAdvice {
		b.WriteString("\n" + noRepeatReminder)
	}
	return b.String()
}

// AmendPrompt appends a one-off instruction to a rendered system prompt.
func AmendPrompt(system, amendment string) string {
	return system + "\n\n" + amendment
}
