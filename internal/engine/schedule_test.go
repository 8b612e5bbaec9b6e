package engine_test

import (
	"testing"
	"time"

	"careline/internal/config"
	"careline/internal/domain"
	"careline/internal/engine"
)

func TestGenerateMonthsSchedule(t *testing.T) {
	env := newTestEnv(t)
	c, batch := newContract(t, env, agentOne)

	if len(batch) != 5 {
		t.Fatalf("expected 5 tasks, got %d", len(batch))
	}
	tasks, err := env.Engine.ListTasks(env.Ctx, director, engine.TaskQuery{ContractID: c.ID})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 5 {
		t.Fatalf("expected 5 stored tasks, got %d", len(tasks))
	}

	checks := []struct {
		kind string
		seq  int
		due  time.Time
	}{
		{domain.TaskOnboarding, 0, date(2025, time.January, 1)},
		{domain.TaskFirstLesson, 0, date(2025, time.January, 8)},
		{domain.TaskPeriodic, 1, date(2025, time.February, 1)},
		{domain.TaskPeriodic, 2, date(2025, time.March, 1)},
		{domain.TaskPeriodic, 3, date(2025, time.April, 1)},
	}
	for _, want := range checks {
		task := taskByKind(t, tasks, want.kind, want.seq)
		if !task.DueDate.Equal(want.due) {
			t.Fatalf("%s/%d due %v, want %v", want.kind, want.seq, task.DueDate, want.due)
		}
		if task.IsCompleted || task.Status != "pending" {
			t.Fatalf("%s/%d should be pending", want.kind, want.seq)
		}
		if !task.SystemGenerated {
			t.Fatalf("%s/%d should be system generated", want.kind, want.seq)
		}
		if task.OwnerID != agentOne.ID || task.TeamID != agentOne.TeamID {
			t.Fatalf("%s/%d ownership not copied from contract", want.kind, want.seq)
		}
		if task.ClientName != "Chen Xiao" {
			t.Fatalf("%s/%d client name not snapshotted", want.kind, want.seq)
		}
	}
}

func TestGenerateIdempotent(t *testing.T) {
	env := newTestEnv(t)
	c, first := newContract(t, env, agentOne)

	// Redelivery of the same creation message must not duplicate rows.
	second, err := env.Engine.OnContractCreated(env.Ctx, c)
	if err != nil {
		t.Fatalf("second generation: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("batch size changed across runs: %d vs %d", len(second), len(first))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("task id not deterministic: %s vs %s", first[i].ID, second[i].ID)
		}
	}
	tasks, err := env.Engine.ListTasks(env.Ctx, director, engine.TaskQuery{ContractID: c.ID})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 5 {
		t.Fatalf("expected 5 tasks after replay, got %d", len(tasks))
	}
}

func TestGenerateFixedDaysSchedule(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.Config.Schedule.Policy = config.PolicyFixedDays
	env.Engine.Config.Schedule.FixedDayOffsets = []int{20, 40, 60}
	c, batch := newContract(t, env, agentOne)

	if len(batch) != 5 {
		t.Fatalf("expected 5 tasks, got %d", len(batch))
	}
	tasks, err := env.Engine.ListTasks(env.Ctx, director, engine.TaskQuery{ContractID: c.ID, Kind: domain.TaskPeriodic})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 periodic tasks, got %d", len(tasks))
	}
	for i, offset := range []int{20, 40, 60} {
		want := date(2025, time.January, 1).AddDate(0, 0, offset)
		task := taskByKind(t, tasks, domain.TaskPeriodic, i+1)
		if !task.DueDate.Equal(want) {
			t.Fatalf("periodic %d due %v, want %v", i+1, task.DueDate, want)
		}
	}
}
