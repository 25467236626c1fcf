package services

import (
	"testing"
	"time"

	"github.com/Dr-Haas/Fytli-sub000/models"
)

func day(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func eventAt(t time.Time) models.WorkoutEvent {
	return models.WorkoutEvent{UserID: "u1", CompletedAt: t, DurationMinutes: 30, ExercisesCompleted: 4, TotalSets: 12}
}

func TestRecomputeAggregates_EmptyHistory(t *testing.T) {
	agg := RecomputeAggregates("u1", nil, day(2026, 10, 14, 12), DefaultTimeBuckets)
	if agg.TotalWorkouts != 0 || agg.CurrentStreak != 0 || agg.LongestStreak != 0 {
		t.Errorf("expected zero aggregates, got %+v", agg)
	}
	if agg.LastWorkoutDate != nil {
		t.Error("expected no last workout date")
	}
	if agg.UserID != "u1" {
		t.Errorf("user id = %q", agg.UserID)
	}
}

func TestRecomputeAggregates_Totals(t *testing.T) {
	history := []models.WorkoutEvent{
		eventAt(day(2026, 10, 12, 7)),
		eventAt(day(2026, 10, 13, 12)),
		eventAt(day(2026, 10, 13, 19)),
	}
	history[2].ProgramID = "p1"
	history[2].ProgramCompleted = true

	agg := RecomputeAggregates("u1", history, day(2026, 10, 13, 20), DefaultTimeBuckets)

	if agg.TotalWorkouts != 3 {
		t.Errorf("total workouts = %d, want 3", agg.TotalWorkouts)
	}
	if agg.TotalSets != 36 || agg.TotalExercises != 12 || agg.TotalMinutes != 90 {
		t.Errorf("unexpected sums: %+v", agg)
	}
	if agg.MorningWorkouts != 1 || agg.EveningWorkouts != 1 {
		t.Errorf("morning/evening = %d/%d, want 1/1", agg.MorningWorkouts, agg.EveningWorkouts)
	}
	if agg.ProgramsCompleted != 1 {
		t.Errorf("programs completed = %d, want 1", agg.ProgramsCompleted)
	}
	if agg.LastWorkoutDate == nil || !agg.LastWorkoutDate.Equal(day(2026, 10, 13, 0)) {
		t.Errorf("last workout date = %v", agg.LastWorkoutDate)
	}
	if agg.CurrentStreak != 2 || agg.LongestStreak != 2 {
		t.Errorf("streaks = %d/%d, want 2/2", agg.CurrentStreak, agg.LongestStreak)
	}
}

func TestRecomputeAggregates_SameProgramCountsOnce(t *testing.T) {
	a := eventAt(day(2026, 10, 12, 12))
	b := eventAt(day(2026, 10, 13, 12))
	a.ProgramID, b.ProgramID = "p1", "p1"
	a.ProgramCompleted, b.ProgramCompleted = true, true

	agg := RecomputeAggregates("u1", []models.WorkoutEvent{a, b}, day(2026, 10, 13, 13), DefaultTimeBuckets)
	if agg.ProgramsCompleted != 1 {
		t.Errorf("programs completed = %d, want 1", agg.ProgramsCompleted)
	}
}

func TestRecomputeAggregates_StreakResetsAfterGap(t *testing.T) {
	// active D-2 and D, missing D-1
	history := []models.WorkoutEvent{
		eventAt(day(2026, 10, 12, 12)),
		eventAt(day(2026, 10, 14, 12)),
	}
	agg := RecomputeAggregates("u1", history, day(2026, 10, 14, 18), DefaultTimeBuckets)
	if agg.CurrentStreak != 1 {
		t.Errorf("current streak = %d, want 1", agg.CurrentStreak)
	}
	if agg.LongestStreak != 1 {
		t.Errorf("longest streak = %d, want 1", agg.LongestStreak)
	}
}

func TestRecomputeAggregates_YesterdayGrace(t *testing.T) {
	history := []models.WorkoutEvent{
		eventAt(day(2026, 10, 11, 12)),
		eventAt(day(2026, 10, 12, 12)),
		eventAt(day(2026, 10, 13, 12)),
	}
	agg := RecomputeAggregates("u1", history, day(2026, 10, 14, 9), DefaultTimeBuckets)
	if agg.CurrentStreak != 3 {
		t.Errorf("current streak = %d, want 3 (run ending yesterday)", agg.CurrentStreak)
	}

	agg = RecomputeAggregates("u1", history, day(2026, 10, 15, 9), DefaultTimeBuckets)
	if agg.CurrentStreak != 0 {
		t.Errorf("current streak = %d, want 0 after a missed day", agg.CurrentStreak)
	}
	if agg.LongestStreak != 3 {
		t.Errorf("longest streak = %d, want 3", agg.LongestStreak)
	}
}

func TestRecomputeAggregates_MultipleWorkoutsSameDay(t *testing.T) {
	history := []models.WorkoutEvent{
		eventAt(day(2026, 10, 14, 8)),
		eventAt(day(2026, 10, 14, 12)),
		eventAt(day(2026, 10, 14, 20)),
	}
	agg := RecomputeAggregates("u1", history, day(2026, 10, 14, 21), DefaultTimeBuckets)
	if agg.CurrentStreak != 1 || agg.TotalWorkouts != 3 {
		t.Errorf("got streak %d, workouts %d", agg.CurrentStreak, agg.TotalWorkouts)
	}
}

func TestRecomputeAggregates_Monotonic(t *testing.T) {
	var history []models.WorkoutEvent
	now := day(2026, 10, 20, 23)
	var prev models.UserAggregates
	for i := 0; i < 10; i++ {
		history = append(history, eventAt(day(2026, 10, 11+i, 12)))
		agg := RecomputeAggregates("u1", history, now, DefaultTimeBuckets)
		if agg.TotalWorkouts < prev.TotalWorkouts || agg.TotalSets < prev.TotalSets || agg.LongestStreak < prev.LongestStreak {
			t.Fatalf("aggregates went backwards at %d: %+v -> %+v", i, prev, agg)
		}
		if agg.CurrentStreak > agg.LongestStreak {
			t.Fatalf("current %d > longest %d", agg.CurrentStreak, agg.LongestStreak)
		}
		prev = agg
	}
}

func TestTimeBuckets_Boundaries(t *testing.T) {
	b := DefaultTimeBuckets
	cases := map[string]string{
		"00:00": "morning",
		"09:59": "morning",
		"10:00": "",
		"17:59": "",
		"18:00": "evening",
		"23:59": "evening",
		"bogus": "",
	}
	for tod, want := range cases {
		if got := b.Bucket(tod); got != want {
			t.Errorf("Bucket(%q) = %q, want %q", tod, got, want)
		}
	}

	custom := NewTimeBuckets(7, 20)
	if got := custom.Bucket("08:00"); got != "" {
		t.Errorf("custom Bucket(08:00) = %q, want none", got)
	}
	if got := custom.Bucket("06:30"); got != "morning" {
		t.Errorf("custom Bucket(06:30) = %q, want morning", got)
	}
}
