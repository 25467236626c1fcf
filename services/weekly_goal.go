package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dr-Haas/Fytli-sub000/models"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WeeklyGoalView is a goal with its progress recomputed from the week's events.
type WeeklyGoalView struct {
	UserID          string            `json:"user_id"`
	WeekStart       time.Time         `json:"week_start"`
	WeekEnd         time.Time         `json:"week_end"`
	GoalType        models.GoalType   `json:"goal_type"`
	GoalTarget      int64             `json:"goal_target"`
	GoalCurrent     int64             `json:"goal_current"`
	GoalAchieved    bool              `json:"goal_achieved"`
	ProgressPercent int               `json:"progress_percent"`
	Status          models.GoalStatus `json:"status"`
}

type WeeklyGoalTracker struct {
	DB    *gorm.DB
	clock clockwork.Clock
}

func NewWeeklyGoalTracker(db *gorm.DB, clock clockwork.Clock) *WeeklyGoalTracker {
	return &WeeklyGoalTracker{DB: db, clock: clock}
}

// WeekStart returns Monday 00:00 UTC of the ISO week containing t.
func WeekStart(t time.Time) time.Time {
	day := truncateDay(t)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}

// SetGoal declares or replaces the goal for the current week. Changing the
// type mid-week keeps the row and switches what goal_current measures.
func (t *WeeklyGoalTracker) SetGoal(ctx context.Context, userID string, goalType models.GoalType, target int64) (*WeeklyGoalView, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "is required"}
	}
	if !goalType.Valid() {
		return nil, &ValidationError{Field: "goal_type", Reason: fmt.Sprintf("must be one of workouts, duration, exercises (got %q)", goalType)}
	}
	if target <= 0 {
		return nil, &ValidationError{Field: "goal_target", Reason: "must be greater than zero"}
	}

	start := WeekStart(t.clock.Now())
	current, err := t.weekTotal(ctx, userID, goalType, start)
	if err != nil {
		return nil, err
	}

	goal := models.WeeklyGoal{
		UserID:       userID,
		WeekStart:    start,
		GoalType:     goalType,
		GoalTarget:   target,
		GoalCurrent:  current,
		GoalAchieved: current >= target,
	}
	if err := t.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "week_start"}},
			DoUpdates: clause.AssignmentColumns([]string{"goal_type", "goal_target", "goal_current", "goal_achieved", "updated_at"}),
		}).
		Create(&goal).Error; err != nil {
		return nil, fmt.Errorf("saving weekly goal: %w", err)
	}

	return t.view(goal, current), nil
}

// GetCurrent returns this week's goal, or nil when none was declared. It never writes.
func (t *WeeklyGoalTracker) GetCurrent(ctx context.Context, userID string) (*WeeklyGoalView, error) {
	return t.GetForWeek(ctx, userID, WeekStart(t.clock.Now()))
}

// GetForWeek returns the goal of the ISO week containing weekStart, or nil.
func (t *WeeklyGoalTracker) GetForWeek(ctx context.Context, userID string, weekStart time.Time) (*WeeklyGoalView, error) {
	goal, err := t.find(ctx, userID, WeekStart(weekStart))
	if err != nil || goal == nil {
		return nil, err
	}
	current, err := t.weekTotal(ctx, userID, goal.GoalType, goal.WeekStart)
	if err != nil {
		return nil, err
	}
	return t.view(*goal, current), nil
}

// RefreshCurrent recomputes and stores this week's snapshot. Returns nil when
// no goal is declared.
func (t *WeeklyGoalTracker) RefreshCurrent(ctx context.Context, userID string) (*WeeklyGoalView, error) {
	goal, err := t.find(ctx, userID, WeekStart(t.clock.Now()))
	if err != nil || goal == nil {
		return nil, err
	}
	current, err := t.weekTotal(ctx, userID, goal.GoalType, goal.WeekStart)
	if err != nil {
		return nil, err
	}
	if err := t.DB.WithContext(ctx).
		Model(&models.WeeklyGoal{}).
		Where("id = ?", goal.ID).
		Updates(map[string]interface{}{
			"goal_current":  current,
			"goal_achieved": current >= goal.GoalTarget,
		}).Error; err != nil {
		return nil, fmt.Errorf("refreshing weekly goal: %w", err)
	}
	return t.view(*goal, current), nil
}

func (t *WeeklyGoalTracker) find(ctx context.Context, userID string, start time.Time) (*models.WeeklyGoal, error) {
	var goal models.WeeklyGoal
	err := t.DB.WithContext(ctx).
		Where("user_id = ? AND week_start = ?", userID, start).
		First(&goal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading weekly goal: %w", err)
	}
	return &goal, nil
}

// weekTotal sums the goal's measure over events in [start, start+7d).
func (t *WeeklyGoalTracker) weekTotal(ctx context.Context, userID string, goalType models.GoalType, start time.Time) (int64, error) {
	q := t.DB.WithContext(ctx).
		Model(&models.WorkoutEvent{}).
		Where("user_id = ? AND completed_at >= ? AND completed_at < ?", userID, start, start.AddDate(0, 0, 7))

	var total int64
	var err error
	switch goalType {
	case models.GoalTypeWorkouts:
		err = q.Count(&total).Error
	case models.GoalTypeDuration:
		err = q.Select("COALESCE(SUM(duration_minutes), 0)").Scan(&total).Error
	case models.GoalTypeExercises:
		err = q.Select("COALESCE(SUM(exercises_completed), 0)").Scan(&total).Error
	default:
		return 0, &ValidationError{Field: "goal_type", Reason: fmt.Sprintf("unsupported %q", goalType)}
	}
	if err != nil {
		return 0, fmt.Errorf("summing week %s: %w", start.Format(dayLayout), err)
	}
	return total, nil
}

func (t *WeeklyGoalTracker) view(goal models.WeeklyGoal, current int64) *WeeklyGoalView {
	end := goal.WeekStart.AddDate(0, 0, 7)
	v := &WeeklyGoalView{
		UserID:       goal.UserID,
		WeekStart:    goal.WeekStart.UTC(),
		WeekEnd:      end.UTC(),
		GoalType:     goal.GoalType,
		GoalTarget:   goal.GoalTarget,
		GoalCurrent:  current,
		GoalAchieved: current >= goal.GoalTarget,
	}

	switch {
	case v.GoalAchieved:
		v.Status = models.GoalStatusAchieved
		v.ProgressPercent = 100
	case !t.clock.Now().Before(end):
		v.Status = models.GoalStatusExpired
		v.ProgressPercent = ProgressPercent(current, goal.GoalTarget)
	case current == 0:
		v.Status = models.GoalStatusDeclared
	default:
		v.Status = models.GoalStatusInProgress
		v.ProgressPercent = ProgressPercent(current, goal.GoalTarget)
	}
	return v
}
