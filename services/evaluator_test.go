package services

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Dr-Haas/Fytli-sub000/models"
)

func badge(id string, cond models.ConditionType, threshold int64) models.BadgeDefinition {
	return models.BadgeDefinition{
		BadgeID:       id,
		Name:          id,
		Category:      models.BadgeCategoryAchievement,
		ConditionType: cond,
		Threshold:     threshold,
	}
}

func findProgress(eval Evaluation, id string) (ProgressUpdate, bool) {
	for _, p := range eval.ProgressUpdates {
		if p.BadgeID == id {
			return p, true
		}
	}
	return ProgressUpdate{}, false
}

func TestEvaluateBadges_ThresholdBoundary(t *testing.T) {
	catalog := []models.BadgeDefinition{badge("workouts_10", models.ConditionTotalWorkouts, 10)}

	eval, err := EvaluateBadges("u1", EvaluationInput{Aggregates: models.UserAggregates{TotalWorkouts: 9}}, catalog, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(eval.NewlyEarned) != 0 {
		t.Fatalf("earned too early: %v", eval.NewlyEarned)
	}
	p, ok := findProgress(eval, "workouts_10")
	if !ok || p.Percent != 90 || p.Value != 9 || p.Target != 10 {
		t.Errorf("progress = %+v", p)
	}

	eval, _ = EvaluateBadges("u1", EvaluationInput{Aggregates: models.UserAggregates{TotalWorkouts: 10}}, catalog, nil)
	if !reflect.DeepEqual(eval.NewlyEarned, []string{"workouts_10"}) {
		t.Errorf("newly earned = %v", eval.NewlyEarned)
	}
	if len(eval.ProgressUpdates) != 0 {
		t.Errorf("earned badge still has progress: %v", eval.ProgressUpdates)
	}
}

func TestEvaluateBadges_NearMissCapsAt99(t *testing.T) {
	catalog := []models.BadgeDefinition{badge("sets_500", models.ConditionTotalSets, 500)}
	eval, _ := EvaluateBadges("u1", EvaluationInput{Aggregates: models.UserAggregates{TotalSets: 499}}, catalog, nil)
	p, ok := findProgress(eval, "sets_500")
	if !ok || p.Percent != 99 {
		t.Errorf("progress = %+v, want 99%%", p)
	}
}

func TestProgressPercent(t *testing.T) {
	cases := []struct {
		value, target int64
		want          int
	}{
		{0, 10, 0},
		{7, 30, 23},
		{1, 3, 33},
		{2, 3, 67},
		{199, 200, 99},
		{250, 100, 99},
		{-1, 10, 0},
		{5, 0, 0},
	}
	for _, c := range cases {
		if got := ProgressPercent(c.value, c.target); got != c.want {
			t.Errorf("ProgressPercent(%d, %d) = %d, want %d", c.value, c.target, got, c.want)
		}
	}
}

func TestEvaluateBadges_SkipsEarnedAndSecret(t *testing.T) {
	catalog := []models.BadgeDefinition{
		badge("first_workout", models.ConditionTotalWorkouts, 1),
		badge("founding_member", models.ConditionSecretManual, 1),
	}
	agg := models.UserAggregates{TotalWorkouts: 50}

	eval, err := EvaluateBadges("u1", EvaluationInput{Aggregates: agg}, catalog, map[string]bool{"first_workout": true})
	if err != nil {
		t.Fatal(err)
	}
	if len(eval.NewlyEarned) != 0 || len(eval.ProgressUpdates) != 0 {
		t.Errorf("expected nothing, got %+v", eval)
	}
}

func TestEvaluateBadges_WeeklyGoal(t *testing.T) {
	catalog := []models.BadgeDefinition{badge("weekly_goal", models.ConditionWeeklyGoalMet, 1)}

	eval, _ := EvaluateBadges("u1", EvaluationInput{}, catalog, nil)
	p, ok := findProgress(eval, "weekly_goal")
	if !ok || p.Value != 0 || p.Target != 1 || p.Percent != 0 {
		t.Errorf("no goal progress = %+v", p)
	}

	goal := &WeeklyGoalView{GoalTarget: 4, GoalCurrent: 3}
	eval, _ = EvaluateBadges("u1", EvaluationInput{WeeklyGoal: goal}, catalog, nil)
	p, _ = findProgress(eval, "weekly_goal")
	if p.Percent != 75 || p.Target != 4 {
		t.Errorf("in progress = %+v", p)
	}

	goal = &WeeklyGoalView{GoalTarget: 4, GoalCurrent: 4, GoalAchieved: true}
	eval, _ = EvaluateBadges("u1", EvaluationInput{WeeklyGoal: goal}, catalog, nil)
	if !reflect.DeepEqual(eval.NewlyEarned, []string{"weekly_goal"}) {
		t.Errorf("newly earned = %v", eval.NewlyEarned)
	}
}

func TestEvaluateBadges_Deterministic(t *testing.T) {
	catalog := []models.BadgeDefinition{
		badge("streak_3", models.ConditionStreakDays, 3),
		badge("first_workout", models.ConditionTotalWorkouts, 1),
		badge("early_bird", models.ConditionMorningCount, 10),
		badge("night_owl", models.ConditionEveningCount, 10),
		badge("program_finisher", models.ConditionProgramsCompleted, 1),
	}
	reversed := make([]models.BadgeDefinition, len(catalog))
	for i, b := range catalog {
		reversed[len(catalog)-1-i] = b
	}
	in := EvaluationInput{Aggregates: models.UserAggregates{TotalWorkouts: 4, CurrentStreak: 3, LongestStreak: 3, MorningWorkouts: 2, ProgramsCompleted: 1}}

	a, _ := EvaluateBadges("u1", in, catalog, nil)
	b, _ := EvaluateBadges("u1", in, reversed, nil)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("evaluation depends on catalog order:\n%+v\n%+v", a, b)
	}
	if !reflect.DeepEqual(a.NewlyEarned, []string{"first_workout", "program_finisher", "streak_3"}) {
		t.Errorf("newly earned = %v", a.NewlyEarned)
	}
}

func TestEvaluateBadges_Idempotent(t *testing.T) {
	catalog := []models.BadgeDefinition{
		badge("first_workout", models.ConditionTotalWorkouts, 1),
		badge("workouts_10", models.ConditionTotalWorkouts, 10),
	}
	in := EvaluationInput{Aggregates: models.UserAggregates{TotalWorkouts: 3}}

	first, _ := EvaluateBadges("u1", in, catalog, nil)
	earned := map[string]bool{}
	for _, id := range first.NewlyEarned {
		earned[id] = true
	}
	second, _ := EvaluateBadges("u1", in, catalog, earned)
	if len(second.NewlyEarned) != 0 {
		t.Errorf("second pass earned again: %v", second.NewlyEarned)
	}
	if !reflect.DeepEqual(first.ProgressUpdates, second.ProgressUpdates) {
		t.Errorf("progress changed between passes")
	}
}

func TestEvaluateBadges_ComputationErrorKeepsOthers(t *testing.T) {
	catalog := []models.BadgeDefinition{
		badge("broken", models.ConditionType("heart_rate"), 5),
		badge("zero", models.ConditionTotalSets, 0),
		badge("first_workout", models.ConditionTotalWorkouts, 1),
	}
	eval, err := EvaluateBadges("u1", EvaluationInput{Aggregates: models.UserAggregates{TotalWorkouts: 1}}, catalog, nil)
	if !errors.Is(err, ErrComputation) {
		t.Fatalf("err = %v, want ErrComputation", err)
	}
	if !reflect.DeepEqual(eval.NewlyEarned, []string{"first_workout"}) {
		t.Errorf("newly earned = %v", eval.NewlyEarned)
	}
	if !reflect.DeepEqual(eval.Skipped, []string{"broken", "zero"}) {
		t.Errorf("skipped = %v", eval.Skipped)
	}
}

func TestSortForDisplay(t *testing.T) {
	badges := []models.BadgeDefinition{
		{BadgeID: "a", Category: models.BadgeCategoryAchievement, Points: 10},
		{BadgeID: "b", Category: models.BadgeCategoryRoutine, Points: 10},
		{BadgeID: "c", Category: models.BadgeCategoryRoutine, Points: 40},
		{BadgeID: "d", Category: models.BadgeCategoryHealth, Points: 30},
	}
	SortForDisplay(badges)

	var got []string
	for _, b := range badges {
		got = append(got, b.BadgeID)
	}
	if want := []string{"c", "b", "d", "a"}; !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}
