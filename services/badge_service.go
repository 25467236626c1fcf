package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/Dr-Haas/Fytli-sub000/models"
	"github.com/Dr-Haas/Fytli-sub000/utils"
	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// WorkoutInput is a completed session as reported by the caller.
type WorkoutInput struct {
	UserID             string    `json:"user_id" validate:"required"`
	SessionID          string    `json:"session_id" validate:"required"`
	ProgramID          string    `json:"program_id"`
	CompletedAt        time.Time `json:"workout_time" validate:"required"`
	DurationMinutes    int       `json:"duration_minutes" validate:"gt=0"`
	ExercisesCompleted int       `json:"exercises_completed" validate:"gte=0"`
	TotalSets          int       `json:"total_sets" validate:"gte=0"`
	ProgramCompleted   bool      `json:"program_completed"`
}

// Outcome is the state of a user right after an evaluation pass.
type Outcome struct {
	Aggregates models.UserAggregates   `json:"aggregates"`
	WeeklyGoal *WeeklyGoalView         `json:"weekly_goal"`
	Unlocked   []models.BadgeDefinition `json:"unlocked"`
	Summary    ApplySummary            `json:"-"`
}

type RecordResult struct {
	Event models.WorkoutEvent `json:"event"`
	Outcome
}

type Overview struct {
	EarnedCount       int `json:"earned_count"`
	TotalPoints       int `json:"total_points"`
	TotalBadges       int `json:"total_badges"`
	CompletionPercent int `json:"completion_percent"`
}

// BadgeStatus is one catalog badge as seen by a user.
type BadgeStatus struct {
	BadgeID         string               `json:"badge_id"`
	Name            string               `json:"name"`
	Description     string               `json:"description"`
	Icon            string               `json:"icon"`
	Category        models.BadgeCategory `json:"category"`
	CategoryLabel   string               `json:"category_label"`
	Points          int                  `json:"points"`
	IsSecret        bool                 `json:"is_secret"`
	Earned          bool                 `json:"earned"`
	EarnedAt        *time.Time           `json:"earned_at,omitempty"`
	Source          string               `json:"source,omitempty"`
	ProgressValue   int64                `json:"progress_value"`
	ProgressTarget  int64                `json:"progress_target"`
	ProgressPercent int                  `json:"progress_percent"`
}

type UserBadgesView struct {
	UserID   string        `json:"user_id"`
	Overview Overview      `json:"overview"`
	Badges   []BadgeStatus `json:"badges"`
}

type Options struct {
	Clock    clockwork.Clock
	Buckets  TimeBuckets
	Cache    Cache
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// BadgeService runs the evaluation pipeline: record, aggregate, evaluate, unlock.
type BadgeService struct {
	DB     *gorm.DB
	Writer *UnlockWriter
	Goals  *WeeklyGoalTracker

	catalog  []models.BadgeDefinition
	byID     map[string]models.BadgeDefinition
	clock    clockwork.Clock
	buckets  TimeBuckets
	cache    Cache
	cacheTTL time.Duration
	log      *zap.Logger

	// invalidation count per user; a read that overlaps a write skips the cache fill
	genMu sync.Mutex
	gens  map[string]uint64
}

// NewBadgeService expects a catalog that already went through ValidateCatalog.
func NewBadgeService(db *gorm.DB, catalog []models.BadgeDefinition, opts Options) *BadgeService {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Buckets == (TimeBuckets{}) {
		opts.Buckets = DefaultTimeBuckets
	}
	if opts.Cache == nil {
		opts.Cache = noopCache{}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	byID := make(map[string]models.BadgeDefinition, len(catalog))
	for _, d := range catalog {
		byID[d.BadgeID] = d
	}

	return &BadgeService{
		DB:       db,
		Writer:   NewUnlockWriter(db, opts.Clock, opts.Logger),
		Goals:    NewWeeklyGoalTracker(db, opts.Clock),
		catalog:  catalog,
		byID:     byID,
		clock:    opts.Clock,
		buckets:  opts.Buckets,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		log:      opts.Logger,
		gens:     make(map[string]uint64),
	}
}

// ListCatalog returns the loaded catalog in display order.
func (s *BadgeService) ListCatalog() []models.BadgeDefinition {
	out := make([]models.BadgeDefinition, len(s.catalog))
	copy(out, s.catalog)
	SortForDisplay(out)
	return out
}

// RecordWorkout stores the event and re-evaluates the user's badges.
func (s *BadgeService) RecordWorkout(ctx context.Context, in WorkoutInput) (*RecordResult, error) {
	if err := s.validateWorkout(in); err != nil {
		return nil, err
	}

	completed := in.CompletedAt.UTC()
	event := models.WorkoutEvent{
		UserID:             in.UserID,
		SessionID:          in.SessionID,
		ProgramID:          in.ProgramID,
		CompletedAt:        completed,
		TimeOfDay:          completed.Format("15:04"),
		DurationMinutes:    in.DurationMinutes,
		ExercisesCompleted: in.ExercisesCompleted,
		TotalSets:          in.TotalSets,
		ProgramCompleted:   in.ProgramCompleted,
	}
	res := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "session_id"}},
			DoNothing: true,
		}).
		Create(&event)
	if res.Error != nil {
		return nil, fmt.Errorf("recording workout: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		utils.WorkoutsRecorded.Inc()
	} else {
		// A retried session keeps its first event; evaluation still runs.
		var existing models.WorkoutEvent
		if err := s.DB.WithContext(ctx).
			Where("user_id = ? AND session_id = ?", in.UserID, in.SessionID).
			First(&existing).Error; err != nil {
			return nil, fmt.Errorf("loading recorded workout: %w", err)
		}
		event = existing
		s.log.Info("workout_already_recorded",
			zap.String("user_id", in.UserID),
			zap.String("session_id", in.SessionID),
		)
	}

	outcome, err := s.evaluateUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	return &RecordResult{Event: event, Outcome: *outcome}, nil
}

func (s *BadgeService) validateWorkout(in WorkoutInput) error {
	if err := validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ValidationError{Field: fe.Field(), Reason: describeTag(fe)}
		}
		return &ValidationError{Field: "workout", Reason: err.Error()}
	}
	if in.CompletedAt.After(s.clock.Now()) {
		return &ValidationError{Field: "workout_time", Reason: "is in the future"}
	}
	return nil
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	}
	return "failed " + fe.Tag()
}

// RebuildAggregates recomputes a user's stats from the full history and
// re-runs evaluation. Used for recovery and by the nightly refresh.
func (s *BadgeService) RebuildAggregates(ctx context.Context, userID string) (*Outcome, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "is required"}
	}
	return s.evaluateUser(ctx, userID)
}

func (s *BadgeService) evaluateUser(ctx context.Context, userID string) (*Outcome, error) {
	started := time.Now()
	defer func() {
		utils.EvaluationDuration.Observe(time.Since(started).Seconds())
	}()

	var history []models.WorkoutEvent
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("completed_at ASC").
		Find(&history).Error; err != nil {
		return nil, fmt.Errorf("loading workout history: %w", err)
	}

	agg := RecomputeAggregates(userID, history, s.clock.Now(), s.buckets)
	stored, err := s.saveAggregates(ctx, agg)
	if err != nil {
		return nil, err
	}

	goal, err := s.Goals.RefreshCurrent(ctx, userID)
	if err != nil {
		return nil, err
	}

	earned, err := s.earnedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	eval, err := EvaluateBadges(userID, EvaluationInput{Aggregates: stored, WeeklyGoal: goal}, s.catalog, earned)
	if err != nil {
		for _, id := range eval.Skipped {
			utils.ComputationErrors.WithLabelValues(id).Inc()
		}
		s.log.Error("badge_computation_failed",
			zap.String("user_id", userID),
			zap.Strings("badge_ids", eval.Skipped),
			zap.Error(err),
		)
	}

	summary, err := s.Writer.Apply(ctx, userID, eval)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)

	out := &Outcome{Aggregates: stored, WeeklyGoal: goal, Summary: summary}
	for _, id := range summary.Unlocked {
		out.Unlocked = append(out.Unlocked, s.byID[id])
	}
	return out, nil
}

func (s *BadgeService) saveAggregates(ctx context.Context, agg models.UserAggregates) (models.UserAggregates, error) {
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_workouts", "total_exercises", "total_sets", "total_minutes",
				"morning_workouts", "evening_workouts", "programs_completed",
				"current_streak", "longest_streak", "last_workout_date", "updated_at",
			}),
		}).
		Create(&agg).Error
	if err != nil {
		return models.UserAggregates{}, fmt.Errorf("saving aggregates: %w", err)
	}

	var stored models.UserAggregates
	if err := s.DB.WithContext(ctx).Where("user_id = ?", agg.UserID).First(&stored).Error; err != nil {
		return models.UserAggregates{}, fmt.Errorf("reloading aggregates: %w", err)
	}
	return stored, nil
}

func (s *BadgeService) earnedIDs(ctx context.Context, userID string) (map[string]bool, error) {
	var ids []string
	if err := s.DB.WithContext(ctx).
		Model(&models.UserBadge{}).
		Where("user_id = ?", userID).
		Pluck("badge_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("loading earned badges: %w", err)
	}
	earned := make(map[string]bool, len(ids))
	for _, id := range ids {
		earned[id] = true
	}
	return earned, nil
}

// GetUserBadges lists every catalog badge with the user's status on it.
func (s *BadgeService) GetUserBadges(ctx context.Context, userID string) (*UserBadgesView, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "is required"}
	}

	gen := s.generation(userID)

	var cached UserBadgesView
	if err := s.cache.Get(ctx, userBadgesKey(userID), &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		s.log.Warn("badge_cache_read_failed", zap.String("user_id", userID), zap.Error(err))
	}

	var held []models.UserBadge
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&held).Error; err != nil {
		return nil, fmt.Errorf("loading user badges: %w", err)
	}
	var progress []models.BadgeProgress
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&progress).Error; err != nil {
		return nil, fmt.Errorf("loading badge progress: %w", err)
	}

	heldByID := make(map[string]models.UserBadge, len(held))
	for _, b := range held {
		heldByID[b.BadgeID] = b
	}
	progressByID := make(map[string]models.BadgeProgress, len(progress))
	for _, p := range progress {
		progressByID[p.BadgeID] = p
	}

	view := &UserBadgesView{UserID: userID, Badges: make([]BadgeStatus, 0, len(s.catalog))}
	for _, def := range s.ListCatalog() {
		st := BadgeStatus{
			BadgeID:        def.BadgeID,
			Name:           def.Name,
			Description:    def.Description,
			Icon:           def.Icon,
			Category:       def.Category,
			CategoryLabel:  CategoryLabel(def.Category),
			Points:         def.Points,
			IsSecret:       def.IsSecret,
			ProgressTarget: def.Threshold,
		}

		if ub, ok := heldByID[def.BadgeID]; ok {
			earnedAt := ub.EarnedAt.UTC()
			st.Earned = true
			st.EarnedAt = &earnedAt
			st.Source = ub.Source
			st.ProgressValue = def.Threshold
			st.ProgressPercent = 100
			view.Overview.EarnedCount++
			view.Overview.TotalPoints += def.Points
		} else if def.IsSecret {
			st.Name = "Secret badge"
			st.Description = ""
			st.Icon = "🔒"
		} else if p, ok := progressByID[def.BadgeID]; ok {
			st.ProgressValue = p.ProgressValue
			st.ProgressTarget = p.ProgressTarget
			st.ProgressPercent = p.ProgressPercent
		}
		view.Badges = append(view.Badges, st)
	}

	view.Overview.TotalBadges = len(s.catalog)
	if view.Overview.TotalBadges > 0 {
		view.Overview.CompletionPercent = int(math.Round(100 * float64(view.Overview.EarnedCount) / float64(view.Overview.TotalBadges)))
	}

	if s.generation(userID) != gen {
		return view, nil
	}
	if err := s.cache.Set(ctx, userBadgesKey(userID), view, s.cacheTTL); err != nil {
		s.log.Warn("badge_cache_write_failed", zap.String("user_id", userID), zap.Error(err))
	}
	return view, nil
}

// UnlockBadgeManually grants a badge without checking its condition. Granting
// a badge the user already holds returns the existing row.
func (s *BadgeService) UnlockBadgeManually(ctx context.Context, userID, badgeID string) (models.UserBadge, error) {
	if userID == "" {
		return models.UserBadge{}, &ValidationError{Field: "user_id", Reason: "is required"}
	}
	id := NormalizeBadgeID(badgeID)
	if _, ok := s.byID[id]; !ok {
		return models.UserBadge{}, &NotFoundError{Resource: "badge", ID: badgeID}
	}

	row, created, err := s.Writer.Unlock(ctx, userID, id, SourceManual)
	if err != nil {
		return models.UserBadge{}, err
	}
	if created {
		if err := s.Writer.dropProgress(ctx, userID, []string{id}); err != nil {
			return models.UserBadge{}, err
		}
		s.invalidate(ctx, userID)
	}
	return row, nil
}

// SetWeeklyGoal declares this week's goal. A goal that is already met on
// declaration is evaluated right away, since the week may end before the
// next workout or nightly rebuild.
func (s *BadgeService) SetWeeklyGoal(ctx context.Context, userID string, goalType models.GoalType, target int64) (*WeeklyGoalView, error) {
	goal, err := s.Goals.SetGoal(ctx, userID, goalType, target)
	if err != nil {
		return nil, err
	}
	if !goal.GoalAchieved {
		return goal, nil
	}
	out, err := s.evaluateUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if out.WeeklyGoal != nil {
		return out.WeeklyGoal, nil
	}
	return goal, nil
}

func (s *BadgeService) GetCurrentWeeklyGoal(ctx context.Context, userID string) (*WeeklyGoalView, error) {
	return s.Goals.GetCurrent(ctx, userID)
}

// GetUserStats returns the stored aggregates, or zero stats for an unknown user.
func (s *BadgeService) GetUserStats(ctx context.Context, userID string) (*models.UserAggregates, error) {
	var agg models.UserAggregates
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&agg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.UserAggregates{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading stats: %w", err)
	}
	return &agg, nil
}

// ListUsersWithStats pages through user ids that have stored aggregates,
// ordered by id, starting after afterUserID.
func (s *BadgeService) ListUsersWithStats(ctx context.Context, afterUserID string, limit int) ([]string, error) {
	var ids []string
	if err := s.DB.WithContext(ctx).
		Model(&models.UserAggregates{}).
		Where("user_id > ?", afterUserID).
		Order("user_id ASC").
		Limit(limit).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return ids, nil
}

func (s *BadgeService) generation(userID string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[userID]
}

func (s *BadgeService) invalidate(ctx context.Context, userID string) {
	s.genMu.Lock()
	s.gens[userID]++
	s.genMu.Unlock()

	if err := s.cache.Delete(ctx, userBadgesKey(userID)); err != nil {
		s.log.Warn("badge_cache_invalidate_failed", zap.String("user_id", userID), zap.Error(err))
	}
}
