package finance

import (
	"math"
	"time"
)

type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Transaction is one imported income or expense record.
type Transaction struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint64    `gorm:"not null;index:idx_fin_tx_user_date,priority:1" json:"-"`
	Kind        Kind      `gorm:"type:varchar(8);not null;index" json:"kind"`
	Amount      float64   `gorm:"not null" json:"amount"`
	Date        time.Time `gorm:"type:date;not null;index:idx_fin_tx_user_date,priority:2" json:"date"`
	Category    string    `gorm:"type:varchar(50);not null" json:"category"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Transaction) TableName() string { return "finance_transactions" }

type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalPaused    GoalStatus = "paused"
	GoalCancelled GoalStatus = "cancelled"
)

type Goal struct {
	ID                  uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID              uint64     `gorm:"not null;index:idx_fin_goal_user_status,priority:1" json:"-"`
	Title               string     `gorm:"type:varchar(200);not null" json:"title"`
	GoalType            string     `gorm:"type:varchar(20);not null;default:savings" json:"goal_type"`
	TargetAmount        float64    `gorm:"not null" json:"target_amount"`
	CurrentAmount       float64    `gorm:"not null;default:0" json:"current_amount"`
	Deadline            time.Time  `gorm:"type:date;not null" json:"deadline"`
	Status              GoalStatus `gorm:"type:varchar(16);not null;default:active;index:idx_fin_goal_user_status,priority:2" json:"status"`
	MonthlyContribution float64    `gorm:"not null;default:0" json:"monthly_contribution"`
	Priority            int        `gorm:"not null;default:5" json:"priority"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (Goal) TableName() string { return "finance_goals" }

// Progress is the completed share of the target in percent, capped at 100.
func (g Goal) Progress() float64 {
	if g.TargetAmount <= 0 {
		return 0
	}
	p := math.Round(g.CurrentAmount/g.TargetAmount*10000) / 100
	return math.Min(p, 100)
}

func (g Goal) Remaining() float64 {
	return math.Max(0, g.TargetAmount-g.CurrentAmount)
}

// MonthsRemaining counts 30-day months until the deadline, at least one.
func (g Goal) MonthsRemaining(now time.Time) int {
	days := int(g.Deadline.Sub(now).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return max(1, days/30)
}

func (g Goal) RequiredMonthly(now time.Time) float64 {
	return math.Round(g.Remaining()/float64(g.MonthsRemaining(now))*100) / 100
}
