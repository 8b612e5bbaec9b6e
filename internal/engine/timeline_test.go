package engine_test

import (
	"reflect"
	"testing"
	"time"

	"careline/internal/domain"
	"careline/internal/engine"
)

func TestTimelineOrderAndDeterminism(t *testing.T) {
	env := newTestEnv(t)
	c, _ := newContract(t, env, agentOne)

	// A manual contact on the onboarding due day; kind priority puts
	// the onboarding task before it.
	_, err := env.Engine.AddCareLog(env.Ctx, agentOne, engine.CareLogInput{
		ContractID: c.ID,
		OccurredAt: date(2025, time.January, 1),
		Outcome:    domain.OutcomeConnected,
		Content:    "welcome call",
	})
	if err != nil {
		t.Fatalf("add care log: %v", err)
	}

	entries, err := env.Engine.Timeline(env.Ctx, c.ID, engine.OldestFirst)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(entries) != 6 {
		t.Fatalf("expected 6 entries, got %d", len(entries))
	}
	wantKinds := []string{domain.TaskOnboarding, "log", domain.TaskFirstLesson, domain.TaskPeriodic, domain.TaskPeriodic, domain.TaskPeriodic}
	for i, want := range wantKinds {
		if entries[i].Kind != want {
			t.Fatalf("entry %d kind %s, want %s", i, entries[i].Kind, want)
		}
	}

	again, err := env.Engine.Timeline(env.Ctx, c.ID, engine.OldestFirst)
	if err != nil {
		t.Fatalf("timeline again: %v", err)
	}
	if !reflect.DeepEqual(entries, again) {
		t.Fatal("timeline is not reproducible")
	}

	newest, err := env.Engine.Timeline(env.Ctx, c.ID, engine.NewestFirst)
	if err != nil {
		t.Fatalf("timeline newest: %v", err)
	}
	for i := range entries {
		if entries[i].ID != newest[len(newest)-1-i].ID {
			t.Fatal("newest-first is not the exact reverse of oldest-first")
		}
	}
}

// The merge order must not depend on which source was written first.
func TestTimelineInsertionOrderInvariant(t *testing.T) {
	env := newTestEnv(t)

	logInput := func(id string) engine.CareLogInput {
		return engine.CareLogInput{
			ContractID: id,
			OccurredAt: date(2025, time.January, 1),
			Outcome:    domain.OutcomeConnected,
			Content:    "welcome call",
		}
	}

	// Contract A: tasks generated first, then the log.
	a, _ := newContract(t, env, agentOne)
	if _, err := env.Engine.AddCareLog(env.Ctx, agentOne, logInput(a.ID)); err != nil {
		t.Fatalf("add care log: %v", err)
	}

	// Contract B: row inserted bare, log written, then generation.
	b := a
	b.ID = "contract-b"
	b.ContractNo = "C-B"
	tx, err := env.Engine.DB.Begin()
	if err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.Repo.InsertContract(env.Ctx, tx, b); err != nil {
		t.Fatalf("insert contract: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AddCareLog(env.Ctx, agentOne, logInput(b.ID)); err != nil {
		t.Fatalf("add care log: %v", err)
	}
	if _, err := env.Engine.OnContractCreated(env.Ctx, b); err != nil {
		t.Fatalf("generate: %v", err)
	}

	first, err := env.Engine.Timeline(env.Ctx, a.ID, engine.OldestFirst)
	if err != nil {
		t.Fatalf("timeline a: %v", err)
	}
	second, err := env.Engine.Timeline(env.Ctx, b.ID, engine.OldestFirst)
	if err != nil {
		t.Fatalf("timeline b: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("entry counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Source != second[i].Source || first[i].Kind != second[i].Kind || !first[i].Date.Equal(second[i].Date) {
			t.Fatalf("entry %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestTimelineCompletedLate(t *testing.T) {
	env := newTestEnv(t)
	c, batch := newContract(t, env, agentOne)
	target := taskByKind(t, batch, domain.TaskOnboarding, 0)

	// Close the task the day after it was due.
	env.Engine.Now = func() time.Time { return time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC) }
	if _, err := env.Engine.CompleteTask(env.Ctx, agentOne, target.ID, engine.CompletionReport{Outcome: domain.OutcomeConnected}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	entries, err := env.Engine.Timeline(env.Ctx, c.ID, engine.OldestFirst)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	var found bool
	for _, e := range entries {
		if e.ID == target.ID {
			found = true
			if e.Status != domain.TimelineCompletedLate {
				t.Fatalf("status %s, want %s", e.Status, domain.TimelineCompletedLate)
			}
		}
	}
	if !found {
		t.Fatal("completed task missing from timeline")
	}
}

func TestTimelineUnknownContract(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.Timeline(env.Ctx, "no-such-contract", engine.OldestFirst); err == nil {
		t.Fatal("expected error for unknown contract")
	}
}
