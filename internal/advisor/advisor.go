package advisor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/suPer8Hu/fin-advisor/internal/ai"
	"github.com/suPer8Hu/fin-advisor/internal/chat"
	"github.com/suPer8Hu/fin-advisor/internal/metrics"
	"gorm.io/gorm"
)

const DefaultHistoryTurns = 10

var ErrEmptyQuery = errors.New("query is empty")

// SessionStore is the conversation memory the advisor reads and appends to.
type SessionStore interface {
	Session(ctx context.Context, sessionID string) (*chat.Session, error)
	Turns(ctx context.Context, sessionID string) ([]chat.Message, error)
	Summaries(ctx context.Context, sessionID string) (map[string]string, error)
	AppendTurns(ctx context.Context, sessionID string, userID uint64, turns ...*chat.Message) (int64, error)
	RecordActions(ctx context.Context, events []chat.ActionEvent) error
}

// Completer sends a system prompt and history to the provider chain.
type Completer interface {
	Dispatch(ctx context.Context, systemPrompt string, history []ai.Message) (*ai.Reply, error)
}

type Result struct {
	Reply        string           `json:"reply"`
	Intent       Intent           `json:"intent"`
	Categories   []string         `json:"categories"`
	Window       TimeWindow       `json:"window"`
	Flags        Flags            `json:"flags"`
	Priority     []SectionKind    `json:"priority"`
	Provider     string           `json:"provider,omitempty"`
	Model        string           `json:"model,omitempty"`
	Verdict      Verdict          `json:"verdict"`
	Regenerated  bool             `json:"regenerated"`
	Failed       bool             `json:"failed"`
	ContextChars int              `json:"context_chars"`
	Truncated    bool             `json:"context_truncated"`
	Actions      []ProposedAction `json:"actions,omitempty"`

	UserMessageID      uint64 `json:"user_message_id"`
	AssistantMessageID uint64 `json:"assistant_message_id,omitempty"`
	SessionVersion     int64  `json:"session_version"`
}

type Advisor struct {
	sessions     SessionStore
	assembler    *Assembler
	completer    Completer
	guard        *Guard
	historyTurns int
	now          func() time.Time
	log          zerolog.Logger
}

func New(sessions SessionStore, assembler *Assembler, completer Completer, guard *Guard, historyTurns int, log zerolog.Logger) *Advisor {
	if historyTurns <= 0 || historyTurns > 100 {
		historyTurns = DefaultHistoryTurns
	}
	return &Advisor{
		sessions:     sessions,
		assembler:    assembler,
		completer:    completer,
		guard:        guard,
		historyTurns: historyTurns,
		now:          time.Now,
		log:          log.With().Str("component", "advisor").Logger(),
	}
}

// Advise answers query within a session and appends the exchange to it.
// Provider exhaustion is reported in the result, not as an error; store
// failures and an unknown or foreign session are returned as errors.
func (a *Advisor) Advise(ctx context.Context, userID uint64, sessionID, query string) (*Result, error) {
	start := time.Now()
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	sess, err := a.sessions.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	turns, err := a.sessions.Turns(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}
	summaries, err := a.sessions.Summaries(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load summaries: %w", err)
	}

	analysis := ClassifyAt(query, a.now())
	bundle := a.assembler.Assemble(ctx, userID, analysis)

	prior := priorAdvice(turns)
	system := BuildSystemPrompt(bundle, summaries, len(prior) > 0)
	history := a.historyWith(turns, query)

	res := &Result{
		Intent:       analysis.Intent,
		Categories:   analysis.Categories,
		Window:       analysis.Window,
		Flags:        analysis.Flags,
		Priority:     analysis.Priority,
		ContextChars: bundle.TotalChars,
		Truncated:    bundle.Truncated,
		Verdict:      Verdict{MatchedOn: MatchNone},
	}
	defer func() {
		metrics.AdviceDuration.WithLabelValues(string(res.Intent), strconv.FormatBool(res.Failed)).
			Observe(time.Since(start).Seconds())
	}()

	reply, err := a.completer.Dispatch(ctx, system, history)
	if err != nil {
		var exhausted *ai.ExhaustedError
		if !errors.As(err, &exhausted) {
			return nil, err
		}
		return a.failed(ctx, res, userID, sessionID, query, exhausted)
	}
	res.Provider, res.Model = reply.Provider, reply.Model

	regenerate := func(ctx context.Context, amendment string) (string, error) {
		r, err := a.completer.Dispatch(ctx, AmendPrompt(system, amendment), history)
		if err != nil {
			return "", err
		}
		res.Provider, res.Model = r.Provider, r.Model
		return r.Content, nil
	}
	final, verdict, regenerated := a.guard.Resolve(ctx, reply.Content, prior, regenerate)
	res.Reply, res.Verdict, res.Regenerated = final, verdict, regenerated

	userTurn := chat.NewMessage(sessionID, userID, chat.RoleUser, query)
	asstTurn := chat.NewMessage(sessionID, userID, chat.RoleAssistant, final)
	version, err := a.sessions.AppendTurns(ctx, sessionID, userID, userTurn, asstTurn)
	if err != nil {
		return nil, fmt.Errorf("append turns: %w", err)
	}
	res.UserMessageID, res.AssistantMessageID, res.SessionVersion = userTurn.ID, asstTurn.ID, version

	res.Actions = ExtractActions(final)
	a.recordActions(ctx, userID, sessionID, asstTurn.ID, res.Actions)

	a.log.Info().
		Uint64("user_id", userID).
		Str("session_id", sessionID).
		Str("intent", string(res.Intent)).
		Str("provider", res.Provider).
		Str("model", res.Model).
		Str("matched_on", string(res.Verdict.MatchedOn)).
		Bool("regenerated", res.Regenerated).
		Int("context_chars", res.ContextChars).
		Dur("took", time.Since(start)).
		Msg("advice produced")
	return res, nil
}

// failed keeps the user turn so the question is not lost, and answers with
// an apology carrying the last provider error.
func (a *Advisor) failed(ctx context.Context, res *Result, userID uint64, sessionID, query string, exhausted *ai.ExhaustedError) (*Result, error) {
	res.Failed = true
	res.Reply = fmt.Sprintf("Sorry, none of the AI providers could answer right now. Please try again in a few minutes. Last error: %v", exhausted.Last())

	userTurn := chat.NewMessage(sessionID, userID, chat.RoleUser, query)
	version, err := a.sessions.AppendTurns(ctx, sessionID, userID, userTurn)
	if err != nil {
		return nil, fmt.Errorf("append user turn: %w", err)
	}
	res.UserMessageID, res.SessionVersion = userTurn.ID, version

	a.log.Error().
		Uint64("user_id", userID).
		Str("session_id", sessionID).
		Str("intent", string(res.Intent)).
		Int("attempts", len(exhausted.Failures)).
		Err(exhausted.Last()).
		Msg("all providers failed")
	return res, nil
}

func (a *Advisor) recordActions(ctx context.Context, userID uint64, sessionID string, messageID uint64, actions []ProposedAction) {
	if len(actions) == 0 {
		return
	}
	events := make([]chat.ActionEvent, 0, len(actions))
	for _, act := range actions {
		id := messageID
		events = append(events, chat.ActionEvent{
			SessionID: sessionID,
			UserID:    userID,
			ItemKey:   chat.ActionKey(act.Text),
			Horizon:   act.Horizon,
			Text:      act.Text,
			Status:    chat.ActionProposed,
			MessageID: &id,
		})
	}
	if err := a.sessions.RecordActions(ctx, events); err != nil {
		a.log.Warn().Err(err).Str("session_id", sessionID).Msg("record action items failed")
	}
}

func priorAdvice(turns []chat.Message) []string {
	var out []string
	for _, t := range turns {
		if t.Role == chat.RoleAssistant {
			out = append(out, t.Content)
		}
	}
	return out
}

// historyWith returns the last turns of the conversation followed by query.
func (a *Advisor) historyWith(turns []chat.Message, query string) []ai.Message {
	var convo []chat.Message
	for _, t := range turns {
		if t.Role == chat.RoleUser || t.Role == chat.RoleAssistant {
			convo = append(convo, t)
		}
	}
	if len(convo) > a.historyTurns {
		convo = convo[len(convo)-a.historyTurns:]
	}
	out := make([]ai.Message, 0, len(convo)+1)
	for _, t := range convo {
		out = append(out, ai.Message{Role: t.Role, Content: t.Content})
	}
	return append(out, ai.Message{Role: chat.RoleUser, Content: query})
}

// QuickInsights asks for a short overview with the two or three most
// important tips.
func (a *Advisor) QuickInsights(ctx context.Context, userID uint64, sessionID string) (*Result, error) {
	return a.Advise(ctx, userID, sessionID, InsightsQuery)
}
