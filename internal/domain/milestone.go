package domain

// Milestone marks a notable checked-day count with a celebratory message.
type Milestone struct {
	Day     int
	Tag     string
	Message string
}

// milestones is ordered ascending by day. Badges are earned against the total
// number of checked days, not the calendar day, so gaps never grant them.
var milestones = []Milestone{
	{Day: 1, Tag: "first-step", Message: "The journey of 100 days begins with a single check-in."},
	{Day: 7, Tag: "one-week", Message: "A full week. The habit is taking root."},
	{Day: 14, Tag: "two-weeks", Message: "Two weeks strong."},
	{Day: 21, Tag: "three-weeks", Message: "21 days. They say this is where habits are made."},
	{Day: 30, Tag: "one-month", Message: "A whole month of showing up."},
	{Day: 50, Tag: "halfway", Message: "Halfway there. The summit is in sight."},
	{Day: 75, Tag: "three-quarters", Message: "75 days. The finish line is close."},
	{Day: 100, Tag: "century", Message: "100 days. You did the thing."},
}

// EarnedMilestones returns every milestone at or below the checked-day count.
func EarnedMilestones(checkedDays int) []Milestone {
	earned := make([]Milestone, 0, len(milestones))
	for _, m := range milestones {
		if m.Day > checkedDays {
			break
		}
		earned = append(earned, m)
	}
	return earned
}

// NextMilestone returns the smallest milestone above the checked-day count,
// or nil when all have been earned.
func NextMilestone(checkedDays int) *Milestone {
	for _, m := range milestones {
		if m.Day > checkedDays {
			next := m
			return &next
		}
	}
	return nil
}

// MilestoneAt returns the milestone crossed exactly at the checked-day count,
// or nil. Because every check-in raises the count by one, an exact match is
// the only way a milestone can be crossed.
func MilestoneAt(checkedDays int) *Milestone {
	for _, m := range milestones {
		if m.Day == checkedDays {
			hit := m
			return &hit
		}
		if m.Day > checkedDays {
			break
		}
	}
	return nil
}
