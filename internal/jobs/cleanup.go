package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// PresenceSweeper is the part of the realtime hub the sweep job drives.
type PresenceSweeper interface {
	EvictStale(ctx context.Context, idle time.Duration) (int64, error)
	PrunePending(ctx context.Context, ttl time.Duration) (int64, error)
}

// PresenceSweepJob evicts sessions that stopped answering heartbeats and
// ages out pending alert summaries.
type PresenceSweepJob struct {
	hub        PresenceSweeper
	idle       time.Duration
	pendingTTL time.Duration
	interval   time.Duration
	done       chan struct{}
}

func NewPresenceSweepJob(hub PresenceSweeper, idle, pendingTTL, interval time.Duration) *PresenceSweepJob {
	return &PresenceSweepJob{
		hub:        hub,
		idle:       idle,
		pendingTTL: pendingTTL,
		interval:   interval,
		done:       make(chan struct{}),
	}
}

func (j *PresenceSweepJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("presence sweep job started")
}

func (j *PresenceSweepJob) Stop() {
	close(j.done)
	log.Info().Msg("presence sweep job stopped")
}

func (j *PresenceSweepJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *PresenceSweepJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	j.runCleanup(ctx, "stale sessions", func(ctx context.Context) (int64, error) {
		return j.hub.EvictStale(ctx, j.idle)
	})
	if j.pendingTTL > 0 {
		j.runCleanup(ctx, "pending summaries", func(ctx context.Context) (int64, error) {
			return j.hub.PrunePending(ctx, j.pendingTTL)
		})
	}
}

func (j *PresenceSweepJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
