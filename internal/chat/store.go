package chat

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
)

// lockStripes bounds the append locks; sessions hashing to the same stripe
// wait for each other.
const lockStripes = 256

// SessionStore is the append-only conversation memory. Appends to one session
// are serialised.
type SessionStore struct {
	repo  *Repo
	locks [lockStripes]sync.Mutex
}

func NewSessionStore(repo *Repo) *SessionStore {
	return &SessionStore{repo: repo}
}

func stripe(sessionID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return int(h.Sum32() % lockStripes)
}

func (s *SessionStore) lock(sessionID string) func() {
	mu := &s.locks[stripe(sessionID)]
	mu.Lock()
	return mu.Unlock
}

func (s *SessionStore) Session(ctx context.Context, sessionID string) (*Session, error) {
	return s.repo.GetSessionBySessionID(ctx, sessionID)
}

// Turns returns the session's messages oldest first.
func (s *SessionStore) Turns(ctx context.Context, sessionID string) ([]Message, error) {
	return s.repo.ListTurns(ctx, sessionID)
}

func (s *SessionStore) Summaries(ctx context.Context, sessionID string) (map[string]string, error) {
	sess, err := s.repo.GetSessionBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.DataSummaries, nil
}

// AppendTurns writes turns in one transaction and bumps the session version.
// Either all turns land or none do; ids are assigned on the passed messages.
func (s *SessionStore) AppendTurns(ctx context.Context, sessionID string, userID uint64, turns ...*Message) (int64, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	var version int64
	err := s.repo.Transaction(ctx, func(tx *Repo) error {
		for _, t := range turns {
			t.SessionID = sessionID
			t.UserID = userID
			if t.ContentHash == "" {
				t.ContentHash = ContentHash(t.Content)
			}
			if err := tx.InsertMessage(ctx, t); err != nil {
				return fmt.Errorf("insert %s turn: %w", t.Role, err)
			}
		}
		v, err := tx.BumpSessionVersion(ctx, userID, sessionID)
		if err != nil {
			return err
		}
		version = v
		return nil
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

// RecordActions appends proposed action items linked to an assistant turn.
func (s *SessionStore) RecordActions(ctx context.Context, events []ActionEvent) error {
	return s.repo.InsertActionEvents(ctx, events)
}
