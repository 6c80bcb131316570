package chat

import "time"

type ActionStatus string

const (
	ActionProposed  ActionStatus = "proposed"
	ActionCompleted ActionStatus = "completed"
	ActionDismissed ActionStatus = "dismissed"
)

type Horizon string

const (
	HorizonNow      Horizon = "now"
	HorizonMonth    Horizon = "month"
	HorizonLongTerm Horizon = "long_term"
)

// ActionEvent is one append-only entry of a session's action log. The current
// state of an item is never stored; BuildBoard folds the events on read.
type ActionEvent struct {
	ID        uint64       `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string       `gorm:"type:varchar(26);not null;index:idx_action_session_key,priority:1" json:"session_id"`
	UserID    uint64       `gorm:"not null;index" json:"-"`
	ItemKey   string       `gorm:"type:varchar(16);not null;index:idx_action_session_key,priority:2" json:"item_key"`
	Horizon   Horizon      `gorm:"type:varchar(16)" json:"horizon,omitempty"`
	Text      string       `gorm:"type:text" json:"text,omitempty"`
	Status    ActionStatus `gorm:"type:varchar(16);not null" json:"status"`
	MessageID *uint64      `json:"message_id,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

func (ActionEvent) TableName() string { return "chat_action_events" }

// ActionKey identifies an advice item by its normalised text.
func ActionKey(text string) string {
	return ContentHash(text)[:16]
}

type ActionItem struct {
	Key        string       `json:"key"`
	Text       string       `json:"text"`
	Horizon    Horizon      `json:"horizon"`
	Status     ActionStatus `json:"status"`
	ProposedAt time.Time    `json:"proposed_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

type ActionBoard struct {
	Active    []ActionItem `json:"active"`
	Completed []ActionItem `json:"completed"`
}

// BuildBoard replays events in order. A re-proposed item keeps its state;
// dismissed items are left off the board.
func BuildBoard(events []ActionEvent) ActionBoard {
	items := map[string]*ActionItem{}
	var order []string
	for _, ev := range events {
		it, ok := items[ev.ItemKey]
		switch ev.Status {
		case ActionProposed:
			if ok {
				continue
			}
			items[ev.ItemKey] = &ActionItem{
				Key:        ev.ItemKey,
				Text:       ev.Text,
				Horizon:    ev.Horizon,
				Status:     ActionProposed,
				ProposedAt: ev.CreatedAt,
				UpdatedAt:  ev.CreatedAt,
			}
			order = append(order, ev.ItemKey)
		case ActionCompleted, ActionDismissed:
			if !ok {
				continue
			}
			it.Status = ev.Status
			it.UpdatedAt = ev.CreatedAt
		}
	}

	board := ActionBoard{Active: []ActionItem{}, Completed: []ActionItem{}}
	for _, k := range order {
		it := items[k]
		switch it.Status {
		case ActionProposed:
			board.Active = append(board.Active, *it)
		case ActionCompleted:
			board.Completed = append(board.Completed, *it)
		}
	}
	return board
}
