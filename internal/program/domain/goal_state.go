package domain

import "time"

type GoalState string

const (
	GoalStatePending    GoalState = "pending"
	GoalStateInProgress GoalState = "in_progress"
	GoalStateAchieved   GoalState = "achieved"
	GoalStateMissed     GoalState = "missed"
)

// Terminal reports whether the state only changes on retroactive edits.
func (s GoalState) Terminal() bool {
	return s == GoalStateAchieved || s == GoalStateMissed
}

// DeriveGoalState maps achievement and dates to a goal state. Dates are
// compared by UTC calendar day, so a goal is still open on its target date.
func DeriveGoalState(achievementPct float64, today, targetDate time.Time) GoalState {
	if achievementPct >= 100 {
		return GoalStateAchieved
	}
	if calendarDay(today).After(calendarDay(targetDate)) {
		return GoalStateMissed
	}
	if achievementPct > 0 {
		return GoalStateInProgress
	}
	return GoalStatePending
}

func calendarDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
