package chat

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// WithTx returns a repo bound to an open transaction.
func (r *Repo) WithTx(tx *gorm.DB) *Repo {
	return &Repo{db: tx}
}

func (r *Repo) Transaction(ctx context.Context, fn func(tx *Repo) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

func (r *Repo) CreateSession(ctx context.Context, s *Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *Repo) GetSessionBySessionID(ctx context.Context, sessionID string) (*Session, error) {
	var s Session
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// BumpSessionVersion increments the version of an owned session.
func (r *Repo) BumpSessionVersion(ctx context.Context, userID uint64, sessionID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Session{}).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Updates(map[string]any{
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var s Session
	if err := r.db.WithContext(ctx).Select("version").
		Where("session_id = ?", sessionID).
		First(&s).Error; err != nil {
		return 0, err
	}
	return s.Version, nil
}

func (r *Repo) SetDataSummary(ctx context.Context, userID uint64, sessionID, name, summary string) error {
	return r.Transaction(ctx, func(tx *Repo) error {
		s, err := tx.GetSessionBySessionID(ctx, sessionID)
		if err != nil {
			return err
		}
		if s.UserID != userID {
			return gorm.ErrRecordNotFound
		}
		if s.DataSummaries == nil {
			s.DataSummaries = map[string]string{}
		}
		s.DataSummaries[name] = summary
		return tx.db.WithContext(ctx).Model(s).Select("data_summaries").Updates(s).Error
	})
}

func (r *Repo) InsertMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListMessages returns messages in DESC id order (newest -> oldest).
func (r *Repo) ListMessages(ctx context.Context, userID uint64, sessionID string, limit int, beforeID uint64) ([]Message, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Order("id DESC").
		Limit(limit)

	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}

	var msgs []Message
	if err := q.Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListTurns returns every message of a session in append order.
func (r *Repo) ListTurns(ctx context.Context, sessionID string) ([]Message, error) {
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *Repo) InsertActionEvents(ctx context.Context, events []ActionEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&events).Error
}

func (r *Repo) ListActionEvents(ctx context.Context, userID uint64, sessionID string) ([]ActionEvent, error) {
	var evs []ActionEvent
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Order("id ASC").
		Find(&evs).Error; err != nil {
		return nil, err
	}
	return evs, nil
}

// FirstActionEvent returns the proposal that introduced an item.
func (r *Repo) FirstActionEvent(ctx context.Context, userID uint64, sessionID, key string) (*ActionEvent, error) {
	var ev ActionEvent
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND session_id = ? AND item_key = ? AND status = ?", userID, sessionID, key, ActionProposed).
		Order("id ASC").
		First(&ev).Error; err != nil {
		return nil, err
	}
	return &ev, nil
}

// Job CRUD
func (r *Repo) GetJobByID(ctx context.Context, id string) (*Job, error) {
	var j Job
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

// MarkJobRunning claims a queued job. It reports false when the job was not
// queued, e.g. a redelivery of a job another worker already took.
func (r *Repo) MarkJobRunning(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, JobQueued).
		Update("status", JobRunning)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repo) MarkJobSucceeded(ctx context.Context, id string, assistantMsgID uint64, intent, provider string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            JobSucceeded,
			"result_message_id": assistantMsgID,
			"intent":            intent,
			"provider":          provider,
			"error":             nil,
		}).Error
}

func (r *Repo) MarkJobFailed(ctx context.Context, id string, intent, errMsg string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            JobFailed,
			"intent":            intent,
			"error":             errMsg,
			"result_message_id": nil,
		}).Error
}

func (r *Repo) GetJobByUserAndIdempotencyKey(ctx context.Context, userID uint64, key string) (*Job, error) {
	var job Job
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// CreateJobOrGetExisting inserts job unless (user_id, idempotency_key) is
// already taken, in which case the stored job is returned with created=false.
func (r *Repo) CreateJobOrGetExisting(ctx context.Context, job *Job) (*Job, bool, error) {
	if job.IdempotencyKey != nil && *job.IdempotencyKey == "" {
		job.IdempotencyKey = nil
	}

	err := r.db.WithContext(ctx).Create(job).Error
	if err == nil {
		return job, true, nil
	}
	if job.IdempotencyKey == nil {
		return nil, false, err
	}

	existing, getErr := r.GetJobByUserAndIdempotencyKey(ctx, job.UserID, *job.IdempotencyKey)
	if getErr == nil {
		return existing, false, nil
	}
	if errors.Is(getErr, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	return nil, false, getErr
}
