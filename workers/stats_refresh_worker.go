// workers/stats_refresh_worker.go
package workers

import (
	"context"
	"fmt"

	"github.com/Dr-Haas/Fytli-sub000/services"
	"go.uber.org/zap"
)

// StatsRebuilder is the part of the badge service the refresh worker drives.
type StatsRebuilder interface {
	ListUsersWithStats(ctx context.Context, afterUserID string, limit int) ([]string, error)
	RebuildAggregates(ctx context.Context, userID string) (*services.Outcome, error)
}

// StatsRefreshWorker rebuilds every user's stored aggregates so streaks
// decay after missed days even when no new workout arrives.
type StatsRefreshWorker struct {
	svc       StatsRebuilder
	batchSize int
	log       *zap.Logger
}

// RefreshResult counts what one pass did.
type RefreshResult struct {
	Users    int `json:"users"`
	Failed   int `json:"failed"`
	Unlocked int `json:"unlocked"`
}

func NewStatsRefreshWorker(svc StatsRebuilder, batchSize int, log *zap.Logger) *StatsRefreshWorker {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &StatsRefreshWorker{svc: svc, batchSize: batchSize, log: log}
}

// RunOnce pages through all users with stats. A failing user is logged and
// skipped; listing errors abort the pass.
func (w *StatsRefreshWorker) RunOnce(ctx context.Context) (RefreshResult, error) {
	var res RefreshResult
	after := ""

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		ids, err := w.svc.ListUsersWithStats(ctx, after, w.batchSize)
		if err != nil {
			return res, fmt.Errorf("listing users after %q: %w", after, err)
		}
		if len(ids) == 0 {
			break
		}

		for _, userID := range ids {
			res.Users++
			out, err := w.svc.RebuildAggregates(ctx, userID)
			if err != nil {
				res.Failed++
				w.log.Error("stats_refresh_user_failed", zap.String("user_id", userID), zap.Error(err))
				continue
			}
			res.Unlocked += len(out.Unlocked)
		}

		after = ids[len(ids)-1]
		if len(ids) < w.batchSize {
			break
		}
	}

	w.log.Info("stats_refresh_done",
		zap.Int("users", res.Users),
		zap.Int("failed", res.Failed),
		zap.Int("unlocked", res.Unlocked),
	)
	return res, nil
}

// Run adapts RunOnce to a scheduler task.
func (w *StatsRefreshWorker) Run(ctx context.Context) error {
	_, err := w.RunOnce(ctx)
	return err
}
