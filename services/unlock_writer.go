package services

import (
	"context"
	"fmt"

	"github.com/Dr-Haas/Fytli-sub000/models"
	"github.com/Dr-Haas/Fytli-sub000/utils"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	SourceAuto   = "auto"
	SourceManual = "manual"
)

// ApplySummary tells apart badges unlocked by this call from badges the user
// already held when the insert ran.
type ApplySummary struct {
	UserID          string   `json:"user_id"`
	Unlocked        []string `json:"unlocked"`
	AlreadyHeld     []string `json:"already_held"`
	ProgressUpdated int      `json:"progress_updated"`
}

// UnlockWriter persists an Evaluation. The unique (user_id, badge_id) index is
// the only concurrency guard: a conflicting insert is a successful no-op.
type UnlockWriter struct {
	DB    *gorm.DB
	clock clockwork.Clock
	log   *zap.Logger
}

func NewUnlockWriter(db *gorm.DB, clock clockwork.Clock, log *zap.Logger) *UnlockWriter {
	return &UnlockWriter{DB: db, clock: clock, log: log}
}

func (w *UnlockWriter) Apply(ctx context.Context, userID string, eval Evaluation) (ApplySummary, error) {
	summary := ApplySummary{UserID: userID}

	for _, badgeID := range eval.NewlyEarned {
		_, created, err := w.Unlock(ctx, userID, badgeID, SourceAuto)
		if err != nil {
			return summary, err
		}
		if created {
			summary.Unlocked = append(summary.Unlocked, badgeID)
		} else {
			summary.AlreadyHeld = append(summary.AlreadyHeld, badgeID)
		}
	}

	if len(eval.ProgressUpdates) > 0 {
		now := w.clock.Now().UTC()
		rows := make([]models.BadgeProgress, 0, len(eval.ProgressUpdates))
		for _, p := range eval.ProgressUpdates {
			rows = append(rows, models.BadgeProgress{
				UserID:          userID,
				BadgeID:         p.BadgeID,
				ProgressValue:   p.Value,
				ProgressTarget:  p.Target,
				ProgressPercent: p.Percent,
				LastUpdated:     now,
			})
		}
		err := w.DB.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"progress_value", "progress_target", "progress_percent", "last_updated"}),
			}).
			Create(&rows).Error
		if err != nil {
			return summary, fmt.Errorf("upserting badge progress: %w", err)
		}
		summary.ProgressUpdated = len(rows)
	}

	if err := w.dropProgress(ctx, userID, eval.NewlyEarned); err != nil {
		return summary, err
	}

	return summary, nil
}

// Unlock inserts the UserBadge if absent. created is false when the user
// already held the badge; the existing row is returned in that case.
func (w *UnlockWriter) Unlock(ctx context.Context, userID, badgeID, source string) (models.UserBadge, bool, error) {
	row := models.UserBadge{
		UserID:   userID,
		BadgeID:  badgeID,
		EarnedAt: w.clock.Now().UTC(),
		Progress: 100,
		Source:   source,
	}

	res := w.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if res.Error != nil {
		return models.UserBadge{}, false, fmt.Errorf("unlocking badge %s: %w", badgeID, res.Error)
	}

	if res.RowsAffected == 1 {
		utils.BadgesUnlocked.WithLabelValues(badgeID, source).Inc()
		w.log.Info("badge_unlocked",
			zap.String("user_id", userID),
			zap.String("badge_id", badgeID),
			zap.String("source", source),
		)
		return row, true, nil
	}

	var existing models.UserBadge
	if err := w.DB.WithContext(ctx).
		Where("user_id = ? AND badge_id = ?", userID, badgeID).
		First(&existing).Error; err != nil {
		return models.UserBadge{}, false, fmt.Errorf("loading held badge %s: %w", badgeID, err)
	}
	return existing, false, nil
}

// dropProgress removes progress rows superseded by earned badges.
func (w *UnlockWriter) dropProgress(ctx context.Context, userID string, badgeIDs []string) error {
	if len(badgeIDs) == 0 {
		return nil
	}
	if err := w.DB.WithContext(ctx).
		Where("user_id = ? AND badge_id IN ?", userID, badgeIDs).
		Delete(&models.BadgeProgress{}).Error; err != nil {
		return fmt.Errorf("dropping superseded progress: %w", err)
	}
	return nil
}
