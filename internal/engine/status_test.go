package engine_test

import (
	"testing"
	"time"

	"careline/internal/domain"
	"careline/internal/engine"
)

func TestClassifyDayGranularity(t *testing.T) {
	now := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		task domain.Task
		want string
	}{
		{"due today is pending", domain.Task{DueDate: date(2025, time.January, 2)}, domain.TimelinePending},
		{"due later today is pending", domain.Task{DueDate: time.Date(2025, 1, 2, 23, 59, 0, 0, time.UTC)}, domain.TimelinePending},
		{"due tomorrow is pending", domain.Task{DueDate: date(2025, time.January, 3)}, domain.TimelinePending},
		{"due yesterday is overdue", domain.Task{DueDate: date(2025, time.January, 1)}, domain.TimelineOverdue},
		{"completed wins over overdue", domain.Task{DueDate: date(2024, time.June, 1), IsCompleted: true}, domain.TimelineCompleted},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := engine.Classify(c.task, now, time.UTC)
			if got != c.want {
				t.Fatalf("got %s, want %s", got, c.want)
			}
		})
	}
}
