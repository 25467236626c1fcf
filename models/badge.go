package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BadgeCategory groups badges for display.
type BadgeCategory string

const (
	BadgeCategoryRoutine     BadgeCategory = "routine"
	BadgeCategoryPerformance BadgeCategory = "performance"
	BadgeCategoryHealth      BadgeCategory = "health"
	BadgeCategoryAchievement BadgeCategory = "achievement"
)

// CategoryOrder is the display order of categories.
var CategoryOrder = map[BadgeCategory]int{
	BadgeCategoryRoutine:     0,
	BadgeCategoryPerformance: 1,
	BadgeCategoryHealth:      2,
	BadgeCategoryAchievement: 3,
}

func (c BadgeCategory) Valid() bool {
	_, ok := CategoryOrder[c]
	return ok
}

// ConditionType is the predicate a badge encodes.
type ConditionType string

const (
	ConditionStreakDays        ConditionType = "streak_days"
	ConditionTotalWorkouts     ConditionType = "total_workouts"
	ConditionTotalSets         ConditionType = "total_sets"
	ConditionMorningCount      ConditionType = "morning_count"
	ConditionEveningCount      ConditionType = "evening_count"
	ConditionProgramsCompleted ConditionType = "programs_completed"
	ConditionWeeklyGoalMet     ConditionType = "weekly_goal_met"
	ConditionSecretManual      ConditionType = "secret_manual"
)

func (c ConditionType) Valid() bool {
	switch c {
	case ConditionStreakDays, ConditionTotalWorkouts, ConditionTotalSets,
		ConditionMorningCount, ConditionEveningCount, ConditionProgramsCompleted,
		ConditionWeeklyGoalMet, ConditionSecretManual:
		return true
	}
	return false
}

// BadgeDefinition: static catalog entry, loaded once at startup.
type BadgeDefinition struct {
	BadgeID       string        `gorm:"primaryKey;type:varchar(64)" json:"badge_id"` // e.g. "streak_7", "workouts_30"
	Name          string        `gorm:"not null" json:"name"`
	Description   string        `json:"description"`
	Icon          string        `gorm:"size:16" json:"icon"`
	Category      BadgeCategory `gorm:"type:varchar(16);not null" json:"category"`
	ConditionType ConditionType `gorm:"type:varchar(32);not null" json:"condition_type"`
	Threshold     int64         `gorm:"not null" json:"threshold"`
	Points        int           `gorm:"default:0" json:"points"`
	IsSecret      bool          `gorm:"default:false" json:"is_secret"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"-"`
}

// UserBadge: earned instance, unique per (user, badge). Never deleted by the engine.
type UserBadge struct {
	ID       string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID   string    `gorm:"uniqueIndex:idx_user_badge;not null" json:"user_id"`
	BadgeID  string    `gorm:"uniqueIndex:idx_user_badge;type:varchar(64);not null" json:"badge_id"`
	EarnedAt time.Time `gorm:"not null" json:"earned_at"`
	Progress int       `gorm:"default:100" json:"progress"`
	Source   string    `gorm:"type:varchar(16);default:'auto'" json:"source"` // auto, manual
}

func (b *UserBadge) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// BadgeProgress tracks a not-yet-earned badge. Superseded by UserBadge once earned.
type BadgeProgress struct {
	ID              string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID          string    `gorm:"uniqueIndex:idx_user_badge_progress;not null" json:"user_id"`
	BadgeID         string    `gorm:"uniqueIndex:idx_user_badge_progress;type:varchar(64);not null" json:"badge_id"`
	ProgressValue   int64     `json:"progress_value"`
	ProgressTarget  int64     `json:"progress_target"`
	ProgressPercent int       `json:"progress_percent"`
	LastUpdated     time.Time `json:"last_updated"`
}

func (BadgeProgress) TableName() string {
	return "badge_progress"
}

func (p *BadgeProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// DefaultBadgeCatalog is the builtin catalog, used unless a remote catalog is configured.
var DefaultBadgeCatalog = []BadgeDefinition{
	{
		BadgeID:       "first_workout",
		Name:          "First Step",
		Description:   "Completed your first workout",
		Icon:          "👟",
		Category:      BadgeCategoryAchievement,
		ConditionType: ConditionTotalWorkouts,
		Threshold:     1,
		Points:        10,
	},
	{
		BadgeID:       "workouts_10",
		Name:          "Getting Serious",
		Description:   "Completed 10 workouts",
		Icon:          "💪",
		Category:      BadgeCategoryAchievement,
		ConditionType: ConditionTotalWorkouts,
		Threshold:     10,
		Points:        25,
	},
	{
		BadgeID:       "workouts_30",
		Name:          "Thirty Strong",
		Description:   "Completed 30 workouts",
		Icon:          "🏋️",
		Category:      BadgeCategoryAchievement,
		ConditionType: ConditionTotalWorkouts,
		Threshold:     30,
		Points:        50,
	},
	{
		BadgeID:       "workouts_100",
		Name:          "Centurion",
		Description:   "Completed 100 workouts",
		Icon:          "💯",
		Category:      BadgeCategoryAchievement,
		ConditionType: ConditionTotalWorkouts,
		Threshold:     100,
		Points:        150,
	},
	{
		BadgeID:       "streak_3",
		Name:          "On a Roll",
		Description:   "Worked out 3 days in a row",
		Icon:          "🔥",
		Category:      BadgeCategoryRoutine,
		ConditionType: ConditionStreakDays,
		Threshold:     3,
		Points:        15,
	},
	{
		BadgeID:       "streak_7",
		Name:          "Constance",
		Description:   "Worked out 7 days in a row",
		Icon:          "📅",
		Category:      BadgeCategoryRoutine,
		ConditionType: ConditionStreakDays,
		Threshold:     7,
		Points:        40,
	},
	{
		BadgeID:       "streak_30",
		Name:          "Unbreakable",
		Description:   "Worked out 30 days in a row",
		Icon:          "⛓️",
		Category:      BadgeCategoryRoutine,
		ConditionType: ConditionStreakDays,
		Threshold:     30,
		Points:        200,
	},
	{
		BadgeID:       "early_bird",
		Name:          "Early Bird",
		Description:   "10 workouts before 10am",
		Icon:          "🌅",
		Category:      BadgeCategoryHealth,
		ConditionType: ConditionMorningCount,
		Threshold:     10,
		Points:        30,
	},
	{
		BadgeID:       "night_owl",
		Name:          "Night Owl",
		Description:   "10 workouts after 6pm",
		Icon:          "🦉",
		Category:      BadgeCategoryHealth,
		ConditionType: ConditionEveningCount,
		Threshold:     10,
		Points:        30,
	},
	{
		BadgeID:       "sets_500",
		Name:          "Volume King",
		Description:   "Logged 500 sets",
		Icon:          "📈",
		Category:      BadgeCategoryPerformance,
		ConditionType: ConditionTotalSets,
		Threshold:     500,
		Points:        60,
	},
	{
		BadgeID:       "program_finisher",
		Name:          "Finisher",
		Description:   "Completed a full program",
		Icon:          "🏁",
		Category:      BadgeCategoryPerformance,
		ConditionType: ConditionProgramsCompleted,
		Threshold:     1,
		Points:        50,
	},
	{
		BadgeID:       "weekly_goal",
		Name:          "Goal Getter",
		Description:   "Hit your weekly goal",
		Icon:          "🎯",
		Category:      BadgeCategoryRoutine,
		ConditionType: ConditionWeeklyGoalMet,
		Threshold:     1,
		Points:        20,
	},
	{
		BadgeID:       "founding_member",
		Name:          "Founding Member",
		Description:   "Joined during the beta",
		Icon:          "🌟",
		Category:      BadgeCategoryAchievement,
		ConditionType: ConditionSecretManual,
		Threshold:     1,
		Points:        100,
		IsSecret:      true,
	},
}
