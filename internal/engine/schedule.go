package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"careline/internal/config"
	"careline/internal/domain"
	"careline/internal/events"
)

// Namespace for deterministic generated-task ids. Replaying the same
// contract always derives the same ids, which is what makes the batch
// insert idempotent under at-least-once delivery.
var taskNamespace = uuid.MustParse("8a7b1c4e-52d9-4f40-9a6e-3c0d5b2e7f18")

func generatedTaskID(contractID, kind string, seq int) string {
	return uuid.NewSHA1(taskNamespace, []byte(fmt.Sprintf("%s|%s|%d", contractID, kind, seq))).String()
}

// OnContractCreated builds and persists the contract's care schedule:
// one onboarding task, one first-lesson task, and periodic tasks per
// the configured policy. Safe to invoke more than once per contract;
// duplicate rows are skipped.
func (e *Engine) OnContractCreated(ctx context.Context, c domain.Contract) ([]domain.Task, error) {
	now := e.now()
	batch := []domain.Task{
		e.generatedTask(c, domain.TaskOnboarding, 0, "Onboarding care", c.OnboardingDate, now),
		e.generatedTask(c, domain.TaskFirstLesson, 0, "First lesson care", c.FirstLessonDate, now),
	}
	switch e.Config.Schedule.Policy {
	case config.PolicyFixedDays:
		for i, d := range e.Config.Schedule.FixedDayOffsets {
			title := fmt.Sprintf("Day %d care", d)
			batch = append(batch, e.generatedTask(c, domain.TaskPeriodic, i+1, title, c.StartDate.AddDate(0, 0, d), now))
		}
	default:
		for k := 1; k <= e.Config.Schedule.Months; k++ {
			title := fmt.Sprintf("Month %d care", k)
			batch = append(batch, e.generatedTask(c, domain.TaskPeriodic, k, title, c.StartDate.AddDate(0, k, 0), now))
		}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	inserted := 0
	for _, t := range batch {
		ok, err := e.Repo.InsertTask(ctx, tx, t)
		if err != nil {
			return nil, fmt.Errorf("insert task %s: %w", t.ID, err)
		}
		if ok {
			inserted++
		}
	}
	err = e.Events.Append(ctx, tx, events.Record{
		TS: now, Type: events.TypeTaskGenerated, ContractID: c.ID,
		EntityKind: "task", ActorID: "system",
		Payload: map[string]any{"inserted": inserted, "batch": len(batch)},
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return batch, nil
}

func (e *Engine) generatedTask(c domain.Contract, kind string, seq int, title string, due, now time.Time) domain.Task {
	return domain.Task{
		ID:              generatedTaskID(c.ID, kind, seq),
		ContractID:      c.ID,
		OwnerID:         c.OwnerID,
		TeamID:          c.TeamID,
		LegacyAgentID:   c.LegacyAgentID,
		Kind:            kind,
		Seq:             seq,
		Title:           title,
		ClientName:      c.StudentName,
		DueDate:         due,
		Status:          "pending",
		SystemGenerated: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// GenerateWithRetry retries the whole batch on backend failure. The
// batch is idempotent, so a retry after a partial commit cannot
// duplicate tasks.
func (e *Engine) GenerateWithRetry(ctx context.Context, c domain.Contract) ([]domain.Task, error) {
	attempts := e.Config.Care.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		tasks, err := e.OnContractCreated(ctx, c)
		if err == nil {
			return tasks, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
