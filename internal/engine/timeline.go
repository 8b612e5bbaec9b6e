package engine

import (
	"context"
	"sort"
	"time"

	"careline/internal/domain"
)

// Timeline orderings.
const (
	OldestFirst = "asc"
	NewestFirst = "desc"
)

func kindPriority(kind string) int {
	switch kind {
	case domain.TaskOnboarding:
		return 1
	case domain.TaskFirstLesson:
		return 2
	case domain.TaskPeriodic:
		return 3
	}
	return 4
}

// entryDate picks the ordering key: due date when set, else the
// completion or occurrence timestamp, else creation.
func taskEntryDate(t domain.Task) time.Time {
	if !t.DueDate.IsZero() {
		return t.DueDate
	}
	if t.CompletedAt != nil {
		return *t.CompletedAt
	}
	return t.CreatedAt
}

// Timeline merges the contract's tasks and care logs into one ordered
// care history. The order is total: date, then kind priority, then
// source, then id, so the same store always renders the same sequence
// regardless of insertion order.
func (e *Engine) Timeline(ctx context.Context, contractID, order string) ([]domain.TimelineEntry, error) {
	if _, err := e.Repo.GetContract(ctx, contractID); err != nil {
		return nil, err
	}
	loc, err := e.Config.Location()
	if err != nil {
		return nil, err
	}
	now := e.now()

	tasks, err := e.Repo.ListContractTasks(ctx, contractID)
	if err != nil {
		return nil, err
	}
	logs, err := e.Repo.ListCareLogs(ctx, contractID)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.TimelineEntry, 0, len(tasks)+len(logs))
	for _, t := range tasks {
		entries = append(entries, domain.TimelineEntry{
			ID:      t.ID,
			Source:  "task",
			Kind:    t.Kind,
			Date:    taskEntryDate(t),
			Status:  classifyTimeline(t, now, loc),
			Outcome: t.Outcome,
			Content: t.Note,
			Author:  t.OwnerID,
		})
	}
	for _, l := range logs {
		date := l.OccurredAt
		if date.IsZero() {
			date = l.CreatedAt
		}
		entries = append(entries, domain.TimelineEntry{
			ID:             l.ID,
			Source:         "log",
			Kind:           "log",
			Date:           date,
			Status:         domain.TimelineCompleted,
			Outcome:        l.Outcome,
			Content:        l.Content,
			Author:         l.AuthorID,
			RenewalLikely:  l.RenewalLikely,
			ReferralLikely: l.ReferralLikely,
		})
	}

	less := func(a, b domain.TimelineEntry) bool {
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if pa, pb := kindPriority(a.Kind), kindPriority(b.Kind); pa != pb {
			return pa < pb
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.ID < b.ID
	}
	sort.Slice(entries, func(i, j int) bool {
		if order == NewestFirst {
			return less(entries[j], entries[i])
		}
		return less(entries[i], entries[j])
	})
	return entries, nil
}
