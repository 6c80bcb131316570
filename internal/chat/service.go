package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/suPer8Hu/fin-advisor/internal/common"
	"gorm.io/gorm"
)

var ErrInvalidActionStatus = errors.New("action status must be completed or dismissed")

type Service struct {
	repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateSession(ctx context.Context, userID uint64, title string) (*Session, error) {
	sid, err := common.NewULID()
	if err != nil {
		return nil, err
	}

	session := &Session{
		SessionID: sid,
		UserID:    userID,
		Title:     strings.TrimSpace(title),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Service) ValidateSessionOwner(ctx context.Context, userID uint64, sessionID string) error {
	sess, err := s.repo.GetSessionBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Service) ListMessages(ctx context.Context, userID uint64, sessionID string, limit int, beforeID uint64) ([]Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListMessages(ctx, userID, sessionID, limit, beforeID)
}

// SetDataSummary stores a short description of uploaded data for the session.
func (s *Service) SetDataSummary(ctx context.Context, userID uint64, sessionID, name, summary string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("summary name is required")
	}
	return s.repo.SetDataSummary(ctx, userID, sessionID, name, strings.TrimSpace(summary))
}

func (s *Service) ActionBoard(ctx context.Context, userID uint64, sessionID string) (ActionBoard, error) {
	if err := s.ValidateSessionOwner(ctx, userID, sessionID); err != nil {
		return ActionBoard{}, err
	}
	evs, err := s.repo.ListActionEvents(ctx, userID, sessionID)
	if err != nil {
		return ActionBoard{}, err
	}
	return BuildBoard(evs), nil
}

// UpdateAction appends a completed or dismissed event for a proposed item.
func (s *Service) UpdateAction(ctx context.Context, userID uint64, sessionID, key string, status ActionStatus) error {
	if status != ActionCompleted && status != ActionDismissed {
		return ErrInvalidActionStatus
	}
	if err := s.ValidateSessionOwner(ctx, userID, sessionID); err != nil {
		return err
	}
	first, err := s.repo.FirstActionEvent(ctx, userID, sessionID, key)
	if err != nil {
		return err
	}
	return s.repo.InsertActionEvents(ctx, []ActionEvent{{
		SessionID: sessionID,
		UserID:    userID,
		ItemKey:   key,
		Horizon:   first.Horizon,
		Status:    status,
	}})
}

func (s *Service) GetJob(ctx context.Context, jobID string) (*Job, error) {
	return s.repo.GetJobByID(ctx, jobID)
}

// EnqueueJob records a queued advisory job for an owned session.
func (s *Service) EnqueueJob(ctx context.Context, userID uint64, sessionID, query string, idempotencyKey *string) (*Job, bool, error) {
	if err := s.ValidateSessionOwner(ctx, userID, sessionID); err != nil {
		return nil, false, err
	}
	id, err := common.NewULID()
	if err != nil {
		return nil, false, err
	}
	return s.repo.CreateJobOrGetExisting(ctx, &Job{
		ID:             id,
		UserID:         userID,
		SessionID:      sessionID,
		Query:          query,
		IdempotencyKey: idempotencyKey,
		Status:         JobQueued,
	})
}
