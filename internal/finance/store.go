package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Cache holds computed aggregates. Misses are reported with found=false.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
}

// Store is the read side of a user's financial memory.
type Store struct {
	repo  *Repo
	cache Cache
	ttl   time.Duration
	log   zerolog.Logger
	now   func() time.Time
}

type StoreOption func(*Store)

func WithCache(c Cache, ttl time.Duration) StoreOption {
	return func(s *Store) {
		s.cache = c
		s.ttl = ttl
	}
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

func NewStore(repo *Repo, log zerolog.Logger, opts ...StoreOption) *Store {
	s := &Store{
		repo: repo,
		ttl:  10 * time.Minute,
		log:  log.With().Str("component", "finance_store").Logger(),
		now:  time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func aggregatesKey(userID uint64, freshness string) string {
	return fmt.Sprintf("finagg:%d:%s", userID, freshness)
}

// Aggregates returns cached aggregates when the freshness token still matches,
// computing and caching them otherwise. Cache failures only cost a recompute.
func (s *Store) Aggregates(ctx context.Context, userID uint64) (*Aggregates, error) {
	token, err := s.repo.Freshness(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("freshness: %w", err)
	}
	key := aggregatesKey(userID, token)

	if s.cache != nil {
		var cached Aggregates
		found, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.log.Warn().Err(err).Uint64("user_id", userID).Msg("aggregate cache read failed")
		} else if found {
			return &cached, nil
		}
	}

	txs, err := s.repo.AllTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	agg := Summarize(txs, s.now())
	agg.Freshness = token

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, agg, s.ttl); err != nil {
			s.log.Warn().Err(err).Uint64("user_id", userID).Msg("aggregate cache write failed")
		}
	}
	return &agg, nil
}

func (s *Store) Transactions(ctx context.Context, userID uint64, f Filter) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, userID, f)
}

func (s *Store) Goals(ctx context.Context, userID uint64) ([]Goal, error) {
	return s.repo.ActiveGoals(ctx, userID)
}
