package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserAggregates holds rolling per-user workout stats (denormalized for reads).
// Always rebuildable from the user's WorkoutEvent history.
type UserAggregates struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"-"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"`

	// Activity counters
	TotalWorkouts     int64 `json:"total_workouts" gorm:"default:0"`
	TotalExercises    int64 `json:"total_exercises" gorm:"default:0"`
	TotalSets         int64 `json:"total_sets" gorm:"default:0"`
	TotalMinutes      int64 `json:"total_minutes" gorm:"default:0"`
	MorningWorkouts   int64 `json:"morning_workouts" gorm:"default:0"`
	EveningWorkouts   int64 `json:"evening_workouts" gorm:"default:0"`
	ProgramsCompleted int64 `json:"programs_completed" gorm:"default:0"`

	// Streaks, in calendar days (UTC)
	CurrentStreak int `json:"current_streak" gorm:"default:0"`
	LongestStreak int `json:"longest_streak" gorm:"default:0"`

	LastWorkoutDate *time.Time `json:"last_workout_date,omitempty"`

	Timestamps
}

func (UserAggregates) TableName() string {
	return "user_stats"
}

func (a *UserAggregates) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
