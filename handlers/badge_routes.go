// handlers/badge_routes.go
package handlers

import (
	"errors"
	"time"

	"github.com/Dr-Haas/Fytli-sub000/middleware"
	"github.com/Dr-Haas/Fytli-sub000/models"
	"github.com/Dr-Haas/Fytli-sub000/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type recordWorkoutRequest struct {
	SessionID          string `json:"session_id"`
	ProgramID          string `json:"program_id"`
	WorkoutTime        string `json:"workout_time"` // RFC3339
	DurationMinutes    int    `json:"duration_minutes"`
	ExercisesCompleted int    `json:"exercises_completed"`
	TotalSets          int    `json:"total_sets"`
	ProgramCompleted   bool   `json:"program_completed"`
}

type weeklyGoalRequest struct {
	GoalType   models.GoalType `json:"goal_type"`
	GoalTarget int64           `json:"goal_target"`
}

type manualUnlockRequest struct {
	UserID  string `json:"user_id"`
	BadgeID string `json:"badge_id"`
}

type rebuildRequest struct {
	UserID string `json:"user_id"`
}

// SetupBadgeRoutes mounts the badge engine API. The gateway forwards paths
// like /api/v1/badges/s/user/badges -> /user/badges.
func SetupBadgeRoutes(app *fiber.App, badgeService *services.BadgeService, log *zap.Logger) {
	app.Get("/badges", func(c *fiber.Ctx) error {
		catalog := badgeService.ListCatalog()
		out := make([]fiber.Map, 0, len(catalog))
		for _, b := range catalog {
			entry := fiber.Map{
				"badge_id":       b.BadgeID,
				"name":           b.Name,
				"description":    b.Description,
				"icon":           b.Icon,
				"category":       b.Category,
				"category_label": services.CategoryLabel(b.Category),
				"condition_type": b.ConditionType,
				"threshold":      b.Threshold,
				"points":         b.Points,
				"is_secret":      b.IsSecret,
			}
			if b.IsSecret {
				entry["name"] = "Secret badge"
				entry["description"] = ""
				entry["condition_type"] = ""
			}
			out = append(out, entry)
		}
		return c.JSON(fiber.Map{"badges": out, "total": len(out)})
	})

	// 🔐 Secured routes: require user context
	securedGroup := app.Group("/user", middleware.UserContextMiddleware(log))

	app.Post("/workouts", middleware.UserContextMiddleware(log), func(c *fiber.Ctx) error {
		var req recordWorkoutRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		in := services.WorkoutInput{
			UserID:             middleware.UserID(c),
			SessionID:          req.SessionID,
			ProgramID:          req.ProgramID,
			DurationMinutes:    req.DurationMinutes,
			ExercisesCompleted: req.ExercisesCompleted,
			TotalSets:          req.TotalSets,
			ProgramCompleted:   req.ProgramCompleted,
		}
		if req.WorkoutTime != "" {
			t, err := time.Parse(time.RFC3339, req.WorkoutTime)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "invalid workout_time",
					"cause": err.Error(),
				})
			}
			in.CompletedAt = t
		}

		res, err := badgeService.RecordWorkout(c.UserContext(), in)
		if err != nil {
			return respondError(c, log, "failed to record workout", err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	})

	securedGroup.Get("/badges", func(c *fiber.Ctx) error {
		view, err := badgeService.GetUserBadges(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, "failed to load badges", err)
		}
		return c.JSON(view)
	})

	securedGroup.Get("/stats", func(c *fiber.Ctx) error {
		stats, err := badgeService.GetUserStats(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, "failed to load stats", err)
		}
		return c.JSON(stats)
	})

	securedGroup.Get("/weekly-goal", func(c *fiber.Ctx) error {
		goal, err := badgeService.GetCurrentWeeklyGoal(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, "failed to load weekly goal", err)
		}
		if goal == nil {
			return c.JSON(fiber.Map{"goal": nil})
		}
		return c.JSON(fiber.Map{"goal": goal})
	})

	securedGroup.Put("/weekly-goal", func(c *fiber.Ctx) error {
		var req weeklyGoalRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		goal, err := badgeService.SetWeeklyGoal(c.UserContext(), middleware.UserID(c), req.GoalType, req.GoalTarget)
		if err != nil {
			return respondError(c, log, "failed to set weekly goal", err)
		}
		return c.JSON(fiber.Map{"goal": goal})
	})

	// Admin endpoints
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(log), middleware.RequireRole("admin"))

	adminGroup.Post("/badges/unlock", func(c *fiber.Ctx) error {
		var req manualUnlockRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		badge, err := badgeService.UnlockBadgeManually(c.UserContext(), req.UserID, req.BadgeID)
		if err != nil {
			return respondError(c, log, "badge unlock failed", err)
		}

		log.Info("badge_unlocked_manually",
			zap.String("admin_id", middleware.UserID(c)),
			zap.String("user_id", req.UserID),
			zap.String("badge_id", badge.BadgeID),
		)
		return c.JSON(fiber.Map{
			"message": "badge unlocked",
			"badge":   badge,
		})
	})

	adminGroup.Post("/stats/rebuild", func(c *fiber.Ctx) error {
		var req rebuildRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		out, err := badgeService.RebuildAggregates(c.UserContext(), req.UserID)
		if err != nil {
			return respondError(c, log, "stats rebuild failed", err)
		}
		return c.JSON(out)
	})
}

// respondError maps service errors onto status codes; anything untyped is a 500.
func respondError(c *fiber.Ctx, log *zap.Logger, msg string, err error) error {
	var validationErr *services.ValidationError
	var notFoundErr *services.NotFoundError

	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": msg,
			"cause": validationErr.Error(),
		})
	case errors.As(err, &notFoundErr):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": msg,
			"cause": notFoundErr.Error(),
		})
	}

	log.Error("request_failed", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": msg,
		"cause": err.Error(),
	})
}
