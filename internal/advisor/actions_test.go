package advisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/suPer8Hu/fin-advisor/internal/chat"
)

func TestExtractActions(t *testing.T) {
	reply := `## QUICK CONCLUSION
Spending is under control.

## PRIORITY RECOMMENDATIONS

### NOW (this week):
1. **Cancel** the unused gym subscription
2. Move 200 to savings

### THIS MONTH:
1. Compare internet plans
2) move 200 to   savings

### LONG-TERM (3-6 months):
1. Build a three month emergency fund

## FORECAST
1. Balance will reach 5,000 by August`

	got := ExtractActions(reply)
	assert.Equal(t, []ProposedAction{
		{Horizon: chat.HorizonNow, Text: "Cancel the unused gym subscription"},
		{Horizon: chat.HorizonNow, Text: "Move 200 to savings"},
		{Horizon: chat.HorizonMonth, Text: "Compare internet plans"},
		{Horizon: chat.HorizonLongTerm, Text: "Build a three month emergency fund"},
	}, got)
}

func TestExtractActions_NoPlan(t *testing.T) {
	assert.Empty(t, ExtractActions(OffTopicReply))
	assert.Empty(t, ExtractActions("1. numbered but outside any plan heading"))
}
