package services

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/Dr-Haas/Fytli-sub000/models"
)

// EvaluationInput is everything the evaluator reads for one user.
type EvaluationInput struct {
	Aggregates models.UserAggregates
	WeeklyGoal *WeeklyGoalView // nil when no goal is declared this week
}

type ProgressUpdate struct {
	BadgeID string `json:"badge_id"`
	Value   int64  `json:"value"`
	Target  int64  `json:"target"`
	Percent int    `json:"percent"`
}

// Evaluation is the evaluator's decision for one user, sorted by badge id.
type Evaluation struct {
	UserID          string
	NewlyEarned     []string
	ProgressUpdates []ProgressUpdate
	Skipped         []string // badges that could not be evaluated
}

// EvaluateBadges decides, for every catalog badge the user does not hold yet,
// whether it is now earned or how far along it is. secret_manual badges are
// never evaluated here. Badges whose definition cannot be evaluated are skipped
// and reported through the returned error (wrapping ErrComputation); the
// evaluation of the other badges is still returned.
func EvaluateBadges(userID string, in EvaluationInput, catalog []models.BadgeDefinition, alreadyEarned map[string]bool) (Evaluation, error) {
	eval := Evaluation{UserID: userID}
	var errs []error

	for _, badge := range catalog {
		if alreadyEarned[badge.BadgeID] || badge.ConditionType == models.ConditionSecretManual {
			continue
		}
		if badge.Threshold <= 0 {
			eval.Skipped = append(eval.Skipped, badge.BadgeID)
			errs = append(errs, fmt.Errorf("%w: badge %s has threshold %d", ErrComputation, badge.BadgeID, badge.Threshold))
			continue
		}

		if badge.ConditionType == models.ConditionWeeklyGoalMet {
			earned, value, target := weeklyGoalProgress(in.WeeklyGoal, badge.Threshold)
			if earned {
				eval.NewlyEarned = append(eval.NewlyEarned, badge.BadgeID)
			} else {
				eval.ProgressUpdates = append(eval.ProgressUpdates, ProgressUpdate{
					BadgeID: badge.BadgeID,
					Value:   value,
					Target:  target,
					Percent: ProgressPercent(value, target),
				})
			}
			continue
		}

		value, err := aggregateValue(in.Aggregates, badge.ConditionType)
		if err != nil {
			eval.Skipped = append(eval.Skipped, badge.BadgeID)
			errs = append(errs, fmt.Errorf("badge %s: %w", badge.BadgeID, err))
			continue
		}

		if value >= badge.Threshold {
			eval.NewlyEarned = append(eval.NewlyEarned, badge.BadgeID)
			continue
		}
		eval.ProgressUpdates = append(eval.ProgressUpdates, ProgressUpdate{
			BadgeID: badge.BadgeID,
			Value:   value,
			Target:  badge.Threshold,
			Percent: ProgressPercent(value, badge.Threshold),
		})
	}

	sort.Strings(eval.NewlyEarned)
	sort.Slice(eval.ProgressUpdates, func(i, j int) bool {
		return eval.ProgressUpdates[i].BadgeID < eval.ProgressUpdates[j].BadgeID
	})

	return eval, errors.Join(errs...)
}

// ProgressPercent is round(100*value/target) clamped to [0, 99]. 100 is
// reserved for earned badges.
func ProgressPercent(value, target int64) int {
	if target <= 0 || value <= 0 {
		return 0
	}
	p := int(math.Round(100 * float64(value) / float64(target)))
	if p > 99 {
		return 99
	}
	return p
}

func aggregateValue(agg models.UserAggregates, condition models.ConditionType) (int64, error) {
	switch condition {
	case models.ConditionStreakDays:
		return int64(agg.CurrentStreak), nil
	case models.ConditionTotalWorkouts:
		return agg.TotalWorkouts, nil
	case models.ConditionTotalSets:
		return agg.TotalSets, nil
	case models.ConditionMorningCount:
		return agg.MorningWorkouts, nil
	case models.ConditionEveningCount:
		return agg.EveningWorkouts, nil
	case models.ConditionProgramsCompleted:
		return agg.ProgramsCompleted, nil
	}
	return 0, fmt.Errorf("%w: unknown condition type %q", ErrComputation, condition)
}

// weeklyGoalProgress reads this week's goal. Without a goal there is nothing
// to make progress on, so progress is reported against the badge threshold.
func weeklyGoalProgress(goal *WeeklyGoalView, threshold int64) (earned bool, value, target int64) {
	if goal == nil {
		return false, 0, threshold
	}
	if goal.GoalAchieved {
		return true, goal.GoalCurrent, goal.GoalTarget
	}
	return false, goal.GoalCurrent, goal.GoalTarget
}

// SortForDisplay orders badges by category, then points descending, then id.
func SortForDisplay(badges []models.BadgeDefinition) {
	sort.SliceStable(badges, func(i, j int) bool {
		a, b := badges[i], badges[j]
		if models.CategoryOrder[a.Category] != models.CategoryOrder[b.Category] {
			return models.CategoryOrder[a.Category] < models.CategoryOrder[b.Category]
		}
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		return a.BadgeID < b.BadgeID
	})
}
