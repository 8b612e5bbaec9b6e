package engine

import (
	"time"

	"careline/internal/domain"
)

func dayStart(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Classify reduces a task to completed, overdue or pending at
// calendar-day granularity: a task due today is pending all day and
// turns overdue at the next local midnight. Completed wins regardless
// of date.
func Classify(t domain.Task, now time.Time, loc *time.Location) string {
	if t.IsCompleted {
		return domain.TimelineCompleted
	}
	if dayStart(t.DueDate, loc).Before(dayStart(now, loc)) {
		return domain.TimelineOverdue
	}
	return domain.TimelinePending
}

// classifyTimeline additionally splits out completed_late for display
// when the task closed after its due day.
func classifyTimeline(t domain.Task, now time.Time, loc *time.Location) string {
	if t.IsCompleted && t.CompletedAt != nil &&
		dayStart(*t.CompletedAt, loc).After(dayStart(t.DueDate, loc)) {
		return domain.TimelineCompletedLate
	}
	return Classify(t, now, loc)
}

// Classify applies the engine's configured location.
func (e *Engine) Classify(t domain.Task) (string, error) {
	loc, err := e.Config.Location()
	if err != nil {
		return "", err
	}
	return Classify(t, e.now(), loc), nil
}
