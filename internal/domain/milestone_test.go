package domain

import (
	"testing"
	"time"
)

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("bad date %q: %v", value, err)
	}
	return parsed
}

func TestMilestoneAtExactMatch(t *testing.T) {
	m := MilestoneAt(7)
	if m == nil {
		t.Fatal("expected milestone at 7")
	}
	if m.Tag != "one-week" {
		t.Fatalf("unexpected tag %q", m.Tag)
	}
}

func TestMilestoneAtNonMilestoneDay(t *testing.T) {
	if m := MilestoneAt(8); m != nil {
		t.Fatalf("expected no milestone at 8 got %+v", m)
	}
}

func TestEarnedMilestones(t *testing.T) {
	earned := EarnedMilestones(30)
	if len(earned) != 5 {
		t.Fatalf("expected 5 earned milestones got %d", len(earned))
	}
	if earned[len(earned)-1].Tag != "one-month" {
		t.Fatalf("unexpected last earned tag %q", earned[len(earned)-1].Tag)
	}
}

func TestNextMilestone(t *testing.T) {
	next := NextMilestone(30)
	if next == nil {
		t.Fatal("expected next milestone after 30")
	}
	if next.Day != 50 {
		t.Fatalf("expected next milestone day 50 got %d", next.Day)
	}

	if final := NextMilestone(100); final != nil {
		t.Fatalf("expected no milestone after 100 got %+v", final)
	}
}

func TestChallengeDayNumber(t *testing.T) {
	challenge := Challenge{
		StartDate:    DateOnly(mustDate(t, "2026-01-01")),
		DurationDays: 100,
	}

	if day := challenge.DayNumber(mustDate(t, "2026-01-01")); day != 1 {
		t.Fatalf("expected day 1 got %d", day)
	}
	if day := challenge.DayNumber(mustDate(t, "2026-01-15")); day != 15 {
		t.Fatalf("expected day 15 got %d", day)
	}
	if day := challenge.DayNumber(mustDate(t, "2025-12-31")); day != 0 {
		t.Fatalf("expected day 0 before start got %d", day)
	}
	if end := challenge.EndDate(); !end.Equal(DateOnly(mustDate(t, "2026-04-10"))) {
		t.Fatalf("unexpected end date %v", end)
	}
}
