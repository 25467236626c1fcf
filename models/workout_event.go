package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkoutEvent records one completed workout session, at most once per
// (user, session). Immutable once written.
type WorkoutEvent struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string `gorm:"index:idx_workout_user_completed;uniqueIndex:idx_user_session;not null" json:"user_id"`
	SessionID string `gorm:"uniqueIndex:idx_user_session;not null" json:"session_id"`
	ProgramID string `gorm:"index" json:"program_id"`

	CompletedAt time.Time `gorm:"index:idx_workout_user_completed;not null" json:"completed_at"`
	TimeOfDay   string    `gorm:"type:varchar(5);not null" json:"time_of_day"` // "HH:MM", UTC

	DurationMinutes    int `json:"duration_minutes" gorm:"default:0"`
	ExercisesCompleted int `json:"exercises_completed" gorm:"default:0"`
	TotalSets          int `json:"total_sets" gorm:"default:0"`

	// Set by the caller when this session was the last one of its program.
	ProgramCompleted bool `json:"program_completed" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (e *WorkoutEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
