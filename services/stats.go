package services

import (
	"sort"
	"time"

	"github.com/Dr-Haas/Fytli-sub000/models"
)

const dayLayout = "2006-01-02"

// TimeBuckets are the time-of-day cutoffs, in minutes after midnight UTC.
// Morning is strictly before MorningBefore, evening at or after EveningFrom.
type TimeBuckets struct {
	MorningBefore int
	EveningFrom   int
}

var DefaultTimeBuckets = TimeBuckets{MorningBefore: 10 * 60, EveningFrom: 18 * 60}

func NewTimeBuckets(morningHour, eveningHour int) TimeBuckets {
	return TimeBuckets{MorningBefore: morningHour * 60, EveningFrom: eveningHour * 60}
}

// Bucket returns "morning", "evening" or "" for a "HH:MM" time of day.
func (b TimeBuckets) Bucket(timeOfDay string) string {
	t, err := time.Parse("15:04", timeOfDay)
	if err != nil {
		return ""
	}
	minutes := t.Hour()*60 + t.Minute()
	switch {
	case minutes < b.MorningBefore:
		return "morning"
	case minutes >= b.EveningFrom:
		return "evening"
	}
	return ""
}

// RecomputeAggregates derives a user's stats from their full history. It is
// pure: now only anchors the current streak.
func RecomputeAggregates(userID string, history []models.WorkoutEvent, now time.Time, buckets TimeBuckets) models.UserAggregates {
	agg := models.UserAggregates{UserID: userID}
	if len(history) == 0 {
		return agg
	}

	activeDays := make(map[string]struct{}, len(history))
	completedPrograms := make(map[string]struct{})
	var last time.Time

	for _, ev := range history {
		agg.TotalWorkouts++
		agg.TotalExercises += int64(ev.ExercisesCompleted)
		agg.TotalSets += int64(ev.TotalSets)
		agg.TotalMinutes += int64(ev.DurationMinutes)

		switch buckets.Bucket(timeOfDayFor(ev)) {
		case "morning":
			agg.MorningWorkouts++
		case "evening":
			agg.EveningWorkouts++
		}

		if ev.ProgramCompleted && ev.ProgramID != "" {
			completedPrograms[ev.ProgramID] = struct{}{}
		}

		completed := ev.CompletedAt.UTC()
		activeDays[completed.Format(dayLayout)] = struct{}{}
		if completed.After(last) {
			last = completed
		}
	}

	agg.ProgramsCompleted = int64(len(completedPrograms))
	lastDay := truncateDay(last)
	agg.LastWorkoutDate = &lastDay
	agg.CurrentStreak, agg.LongestStreak = streaks(activeDays, now)

	return agg
}

// streaks returns the current run (ending today, or yesterday as a one-day
// grace) and the longest run of consecutive active days.
func streaks(activeDays map[string]struct{}, now time.Time) (current, longest int) {
	days := make([]time.Time, 0, len(activeDays))
	for d := range activeDays {
		t, _ := time.Parse(dayLayout, d)
		days = append(days, t)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	run := 0
	for i, d := range days {
		if i > 0 && days[i-1].AddDate(0, 0, 1).Equal(d) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	today := truncateDay(now)
	cursor := today
	if _, ok := activeDays[cursor.Format(dayLayout)]; !ok {
		cursor = today.AddDate(0, 0, -1)
		if _, ok := activeDays[cursor.Format(dayLayout)]; !ok {
			return 0, longest
		}
	}
	for {
		if _, ok := activeDays[cursor.Format(dayLayout)]; !ok {
			break
		}
		current++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return current, longest
}

func timeOfDayFor(ev models.WorkoutEvent) string {
	if ev.TimeOfDay != "" {
		return ev.TimeOfDay
	}
	return ev.CompletedAt.UTC().Format("15:04")
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
