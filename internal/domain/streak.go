package domain

import (
	"sort"
	"time"
)

// StreakSummary reports streak and completion figures derived from the ledger.
type StreakSummary struct {
	CurrentStreak     int
	LongestStreak     int
	CheckedDays       int
	CompletionPercent float64
	LastCheckInDate   *time.Time
}

// ComputeStreaks returns the run of consecutive day numbers ending at the most
// recent check-in and the longest run anywhere in the ledger. Input need not be
// sorted; duplicates are ignored.
func ComputeStreaks(days []int) (current, longest int) {
	if len(days) == 0 {
		return 0, 0
	}

	sorted := dedupeSorted(days)

	run := 1
	longest = 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1]+1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	// The final run is the one ending at the latest check-in.
	return run, longest
}

// Summarize computes the streak summary for a challenge. A streak only counts
// as current when the latest check-in falls on ref or the day before; a missed
// day resets the current streak to zero while leaving the longest untouched.
func Summarize(days []int, durationDays int, startDate, ref time.Time) StreakSummary {
	sorted := dedupeSorted(days)

	summary := StreakSummary{CheckedDays: len(sorted)}
	if durationDays > 0 {
		summary.CompletionPercent = float64(len(sorted)) / float64(durationDays) * 100
	}
	if len(sorted) == 0 {
		return summary
	}

	current, longest := ComputeStreaks(sorted)
	summary.LongestStreak = longest

	lastDay := sorted[len(sorted)-1]
	lastDate := DateOnly(startDate).AddDate(0, 0, lastDay-1)
	summary.LastCheckInDate = &lastDate

	gap := int(DateOnly(ref).Sub(lastDate).Hours() / 24)
	if gap <= 1 {
		summary.CurrentStreak = current
	}
	return summary
}

func dedupeSorted(days []int) []int {
	sorted := make([]int, len(days))
	copy(sorted, days)
	sort.Ints(sorted)

	out := sorted[:0]
	for i, d := range sorted {
		if i == 0 || d != sorted[i-1] {
			out = append(out, d)
		}
	}
	return out
}
