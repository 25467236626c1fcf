package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GoalType string

const (
	GoalTypeWorkouts  GoalType = "workouts"
	GoalTypeDuration  GoalType = "duration"
	GoalTypeExercises GoalType = "exercises"
)

func (g GoalType) Valid() bool {
	switch g {
	case GoalTypeWorkouts, GoalTypeDuration, GoalTypeExercises:
		return true
	}
	return false
}

type GoalStatus string

const (
	GoalStatusDeclared   GoalStatus = "declared"
	GoalStatusInProgress GoalStatus = "in_progress"
	GoalStatusAchieved   GoalStatus = "achieved"
	GoalStatusExpired    GoalStatus = "expired"
)

// WeeklyGoal: one row per user per ISO week, never carried over.
// GoalCurrent and GoalAchieved are snapshots; reads recompute them from events.
type WeeklyGoal struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string    `gorm:"uniqueIndex:idx_user_week;not null" json:"user_id"`
	WeekStart    time.Time `gorm:"uniqueIndex:idx_user_week;not null" json:"week_start"`
	GoalType     GoalType  `gorm:"type:varchar(16);not null" json:"goal_type"`
	GoalTarget   int64     `gorm:"not null" json:"goal_target"`
	GoalCurrent  int64     `gorm:"default:0" json:"goal_current"`
	GoalAchieved bool      `gorm:"default:false" json:"goal_achieved"`

	Timestamps
}

func (g *WeeklyGoal) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}
