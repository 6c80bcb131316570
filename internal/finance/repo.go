package finance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Filter narrows a transaction listing. Zero values mean no constraint.
// From and To are calendar days, both inclusive; only their dates count.
type Filter struct {
	From       time.Time
	To         time.Time
	Categories []string
	Kind       Kind
	Limit      int
}

// CalendarDay keeps the date of t and drops its clock and zone. Transaction
// dates are stored as UTC midnights.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreateTransactions(ctx context.Context, txs []Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&txs).Error
}

func (r *Repo) CreateGoal(ctx context.Context, g *Goal) error {
	return r.db.WithContext(ctx).Create(g).Error
}

// ListTransactions returns matching rows newest first.
func (r *Repo) ListTransactions(ctx context.Context, userID uint64, f Filter) ([]Transaction, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if !f.From.IsZero() {
		q = q.Where("date >= ?", CalendarDay(f.From))
	}
	if !f.To.IsZero() {
		q = q.Where("date < ?", CalendarDay(f.To).AddDate(0, 0, 1))
	}
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	if len(f.Categories) > 0 {
		conds := make([]string, 0, len(f.Categories))
		args := make([]any, 0, len(f.Categories))
		for _, c := range f.Categories {
			conds = append(conds, "LOWER(category) LIKE ?")
			args = append(args, "%"+strings.ToLower(c)+"%")
		}
		q = q.Where(strings.Join(conds, " OR "), args...)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var out []Transaction
	if err := q.Order("date DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// AllTransactions returns every row of a user oldest first.
func (r *Repo) AllTransactions(ctx context.Context, userID uint64) ([]Transaction, error) {
	var out []Transaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date ASC").Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) ActiveGoals(ctx context.Context, userID uint64) ([]Goal, error) {
	var out []Goal
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, GoalActive).
		Order("priority DESC").Order("deadline ASC").Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Freshness is a token that changes whenever the user's transactions do.
func (r *Repo) Freshness(ctx context.Context, userID uint64) (string, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&Transaction{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return "", err
	}
	if count == 0 {
		return "0", nil
	}

	var latest Transaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").Order("id DESC").
		Limit(1).
		Find(&latest).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%d-%d", count, latest.ID, latest.UpdatedAt.UnixNano()), nil
}
