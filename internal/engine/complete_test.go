package engine_test

import (
	"errors"
	"testing"
	"time"

	"careline/internal/domain"
	"careline/internal/engine"
)

func TestConnectedClosesTask(t *testing.T) {
	env := newTestEnv(t)
	c, batch := newContract(t, env, agentOne)
	target := taskByKind(t, batch, domain.TaskOnboarding, 0)

	done, err := env.Engine.CompleteTask(env.Ctx, agentOne, target.ID, engine.CompletionReport{
		Outcome:    domain.OutcomeConnected,
		ServiceTag: domain.ServiceNormal,
		Note:       "all good",
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !done.IsCompleted || done.Status != "completed" || done.CompletedAt == nil {
		t.Fatalf("task not closed: %+v", done)
	}
	if done.Outcome != domain.OutcomeConnected || done.ServiceTag != domain.ServiceNormal {
		t.Fatalf("report not stored: %+v", done)
	}

	tasks, err := env.Engine.ListTasks(env.Ctx, director, engine.TaskQuery{ContractID: c.ID})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	completed := 0
	for _, task := range tasks {
		if task.IsCompleted {
			completed++
		}
	}
	if len(tasks) != 5 || completed != 1 {
		t.Fatalf("expected 5 tasks with 1 completed, got %d/%d", len(tasks), completed)
	}

	logs, err := env.Engine.ListCareLogs(env.Ctx, c.ID)
	if err != nil {
		t.Fatalf("list care logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Outcome != domain.OutcomeConnected {
		t.Fatalf("contact not journaled: %+v", logs)
	}
}

func TestConnectedWithFollowUp(t *testing.T) {
	env := newTestEnv(t)
	c, batch := newContract(t, env, agentOne)
	target := taskByKind(t, batch, domain.TaskFirstLesson, 0)

	next := date(2025, time.January, 20)
	_, err := env.Engine.CompleteTask(env.Ctx, agentOne, target.ID, engine.CompletionReport{
		Outcome:         domain.OutcomeConnected,
		NextContactDate: &next,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	tasks, err := env.Engine.ListTasks(env.Ctx, director, engine.TaskQuery{ContractID: c.ID, Kind: domain.TaskAdhoc})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 follow-up, got %d", len(tasks))
	}
	follow := tasks[0]
	if !follow.DueDate.Equal(next) || follow.IsCompleted || follow.SystemGenerated {
		t.Fatalf("bad follow-up: %+v", follow)
	}
	if follow.OwnerID != target.OwnerID || follow.ClientName != target.ClientName {
		t.Fatalf("follow-up should copy ownership and client: %+v", follow)
	}
}

func TestBusyReschedulesInPlace(t *testing.T) {
	env := newTestEnv(t)
	c, batch := newContract(t, env, agentOne)
	target := taskByKind(t, batch, domain.TaskOnboarding, 0)

	next := date(2025, time.January, 10)
	done, err := env.Engine.CompleteTask(env.Ctx, agentOne, target.ID, engine.CompletionReport{
		Outcome:         domain.OutcomeBusy,
		NextContactDate: &next,
		Note:            "call back after the holiday",
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.IsCompleted || done.Status != "pending" {
		t.Fatalf("busy report must keep the task open: %+v", done)
	}
	if !done.DueDate.Equal(next) {
		t.Fatalf("due date not moved: %v", done.DueDate)
	}
	if done.Outcome != domain.OutcomeBusy || done.Note != "call back after the holiday" {
		t.Fatalf("report not stored: %+v", done)
	}

	tasks, err := env.Engine.ListTasks(env.Ctx, director, engine.TaskQuery{ContractID: c.ID})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	for _, task := range tasks {
		if task.IsCompleted {
			t.Fatalf("no task should be completed: %+v", task)
		}
	}
	if len(tasks) != 5 {
		t.Fatalf("expected 5 tasks, got %d", len(tasks))
	}
}

func TestMissingFollowUpDateRejected(t *testing.T) {
	env := newTestEnv(t)
	_, batch := newContract(t, env, agentOne)
	target := taskByKind(t, batch, domain.TaskOnboarding, 0)

	_, err := env.Engine.CompleteTask(env.Ctx, agentOne, target.ID, engine.CompletionReport{
		Outcome: domain.OutcomeNoAnswer,
	})
	var verr engine.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}

	unchanged, err := env.Engine.Repo.GetTask(env.Ctx, target.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if unchanged.IsCompleted || !unchanged.DueDate.Equal(target.DueDate) || unchanged.Outcome != "" {
		t.Fatalf("rejected report must leave the task untouched: %+v", unchanged)
	}
}

func TestAlreadyCompletedRejected(t *testing.T) {
	env := newTestEnv(t)
	_, batch := newContract(t, env, agentOne)
	target := taskByKind(t, batch, domain.TaskOnboarding, 0)

	report := engine.CompletionReport{Outcome: domain.OutcomeConnected}
	if _, err := env.Engine.CompleteTask(env.Ctx, agentOne, target.ID, report); err != nil {
		t.Fatalf("first completion: %v", err)
	}
	_, err := env.Engine.CompleteTask(env.Ctx, agentOne, target.ID, report)
	var verr engine.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error on second completion, got %v", err)
	}
}

func TestCompletionAppliesContractTags(t *testing.T) {
	env := newTestEnv(t)
	c, batch := newContract(t, env, agentOne)
	target := taskByKind(t, batch, domain.TaskOnboarding, 0)

	_, err := env.Engine.CompleteTask(env.Ctx, agentOne, target.ID, engine.CompletionReport{
		Outcome:       domain.OutcomeConnected,
		RenewalLikely: true,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, err := env.Engine.GetContract(env.Ctx, c.ID)
	if err != nil {
		t.Fatalf("get contract: %v", err)
	}
	if !got.RenewalLikely || got.ReferralLikely {
		t.Fatalf("tags not applied: %+v", got)
	}
}

func TestCompleteUnknownTask(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CompleteTask(env.Ctx, agentOne, "no-such-task", engine.CompletionReport{
		Outcome: domain.OutcomeConnected,
	})
	if err == nil {
		t.Fatal("expected error for unknown task")
	}
	var verr engine.ValidationError
	if errors.As(err, &verr) {
		t.Fatalf("unknown task is terminal, not a validation error: %v", err)
	}
}
