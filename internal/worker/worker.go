// Package worker runs queued advisory jobs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/suPer8Hu/fin-advisor/internal/advisor"
	"github.com/suPer8Hu/fin-advisor/internal/chat"
	"gorm.io/gorm"
)

// Outcome tells the consumer what to do with a delivery.
type Outcome int

const (
	// Done: the job reached a terminal state, ack it.
	Done Outcome = iota
	// Retry: a transient failure, park the job on the retry queue.
	Retry
	// Drop: the job cannot run, reject it to the dead-letter queue.
	Drop
)

func (o Outcome) String() string {
	switch o {
	case Done:
		return "done"
	case Retry:
		return "retry"
	default:
		return "drop"
	}
}

type JobAdvisor interface {
	Advise(ctx context.Context, userID uint64, sessionID, query string) (*advisor.Result, error)
}

type Runner struct {
	repo    *chat.Repo
	advisor JobAdvisor
	log     zerolog.Logger

	// MaxAttempts bounds how often a transient failure is retried.
	MaxAttempts int
}

func NewRunner(repo *chat.Repo, a JobAdvisor, log zerolog.Logger) *Runner {
	return &Runner{repo: repo, advisor: a, log: log, MaxAttempts: 3}
}

// Backoff is the retry-queue delay before attempt n (1-based).
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<(attempt-1)) * 2 * time.Second
}

// ErrInterrupted marks a job found running on its first delivery: the broker
// redelivered it after a worker died mid-run, and the session may already
// hold that run's turns.
var ErrInterrupted = errors.New("job was interrupted while running")

// Handle runs one job. attempt is the number of earlier tries. Finished jobs
// are acknowledged without running again.
func (r *Runner) Handle(ctx context.Context, jobID string, attempt int) (Outcome, error) {
	start := time.Now()
	log := r.log.With().Str("job_id", jobID).Int("attempt", attempt).Logger()

	j, err := r.repo.GetJobByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Drop, err
		}
		return r.transient(ctx, log, jobID, attempt, err)
	}

	switch j.Status {
	case chat.JobSucceeded, chat.JobFailed:
		log.Info().Str("status", string(j.Status)).Msg("job already finished, skipping")
		return Done, nil
	case chat.JobQueued:
		claimed, err := r.repo.MarkJobRunning(ctx, jobID)
		if err != nil {
			return r.transient(ctx, log, jobID, attempt, fmt.Errorf("mark running: %w", err))
		}
		if !claimed {
			log.Info().Msg("job claimed by another worker, skipping")
			return Done, nil
		}
	case chat.JobRunning:
		// retries come back as running; a first delivery must not find it so
		if attempt == 0 {
			log.Warn().Msg("job redelivered while running, not rerunning")
			_ = r.repo.MarkJobFailed(ctx, jobID, "", ErrInterrupted.Error())
			return Drop, ErrInterrupted
		}
	}

	res, err := r.advisor.Advise(ctx, j.UserID, j.SessionID, j.Query)
	if err != nil {
		if errors.Is(err, advisor.ErrEmptyQuery) || errors.Is(err, gorm.ErrRecordNotFound) {
			_ = r.repo.MarkJobFailed(ctx, jobID, "", err.Error())
			return Drop, err
		}
		return r.transient(ctx, log, jobID, attempt, err)
	}

	// From here the session holds this run's turns, so a failed status write is
	// dead-lettered instead of retried.
	if res.Failed {
		if err := r.repo.MarkJobFailed(ctx, jobID, string(res.Intent), res.Reply); err != nil {
			log.Error().Err(err).Msg("record job failure")
			return Drop, err
		}
		log.Warn().Str("intent", string(res.Intent)).Dur("cost", time.Since(start)).Msg("job finished without a provider reply")
		return Done, nil
	}

	if err := r.repo.MarkJobSucceeded(ctx, jobID, res.AssistantMessageID, string(res.Intent), res.Provider); err != nil {
		log.Error().Err(err).Uint64("assistant_message_id", res.AssistantMessageID).Msg("record job success")
		return Drop, err
	}
	log.Info().
		Str("intent", string(res.Intent)).
		Str("provider", res.Provider).
		Bool("regenerated", res.Regenerated).
		Dur("cost", time.Since(start)).
		Msg("job succeeded")
	return Done, nil
}

func (r *Runner) transient(ctx context.Context, log zerolog.Logger, jobID string, attempt int, err error) (Outcome, error) {
	if attempt+1 < r.MaxAttempts {
		log.Warn().Err(err).Msg("job failed, will retry")
		return Retry, err
	}
	log.Error().Err(err).Msg("job failed, giving up")
	_ = r.repo.MarkJobFailed(ctx, jobID, "", err.Error())
	return Drop, err
}
