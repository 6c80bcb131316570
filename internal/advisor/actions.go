package advisor

import (
	"regexp"
	"strings"

	"github.com/suPer8Hu/fin-advisor/internal/chat"
)

// ProposedAction is a numbered recommendation found in a reply.
type ProposedAction struct {
	Horizon chat.Horizon `json:"horizon"`
	Text    string       `json:"text"`
}

var (
	headingLine  = regexp.MustCompile(`^#{1,6}\s*(.*)$`)
	numberedItem = regexp.MustCompile(`^\d+[.)]\s+(.+)$`)
)

func horizonOf(heading string) (chat.Horizon, bool) {
	h := strings.ToUpper(heading)
	switch {
	case strings.Contains(h, "LONG-TERM"), strings.Contains(h, "LONG TERM"):
		return chat.HorizonLongTerm, true
	case strings.Contains(h, "THIS MONTH"):
		return chat.HorizonMonth, true
	case strings.HasPrefix(strings.TrimSpace(h), "NOW"):
		return chat.HorizonNow, true
	}
	return "", false
}

// ExtractActions collects numbered items under the NOW, THIS MONTH and
// LONG-TERM headings. Duplicate texts within one reply are kept once.
func ExtractActions(reply string) []ProposedAction {
	var out []ProposedAction
	seen := map[string]bool{}
	var current chat.Horizon
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if m := headingLine.FindStringSubmatch(line); m != nil {
			current, _ = horizonOf(m[1])
			continue
		}
		if current == "" {
			continue
		}
		m := numberedItem.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		text := strings.TrimSpace(strings.ReplaceAll(m[1], "**", ""))
		key := chat.ActionKey(text)
		if text == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ProposedAction{Horizon: current, Text: text})
	}
	return out
}
