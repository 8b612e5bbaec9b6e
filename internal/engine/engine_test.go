package engine_test

import (
	"context"
	"testing"
	"time"

	"careline/internal/config"
	"careline/internal/db"
	"careline/internal/domain"
	"careline/internal/engine"
	"careline/internal/migrate"
)

type testEnv struct {
	Engine *engine.Engine
	Ctx    context.Context
}

var (
	agentOne = domain.Principal{ID: "agent-1", Role: domain.RoleAgent, TeamID: "team-1"}
	agentTwo = domain.Principal{ID: "agent-2", Role: domain.RoleAgent, TeamID: "team-2"}
	manager  = domain.Principal{ID: "mgr-1", Role: domain.RoleManager, TeamID: "team-1"}
	director = domain.Principal{ID: "dir-1", Role: domain.RoleDirector}
)

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	cfg.Schedule.Months = 3
	cfg.Care.Timezone = "UTC"
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// newContract signs the worked-example contract: anchor 2025-01-01,
// onboarding defaulted to the anchor, first lesson defaulted a week
// out.
func newContract(t *testing.T, env testEnv, p domain.Principal) (domain.Contract, []domain.Task) {
	t.Helper()
	c, tasks, err := env.Engine.CreateContract(env.Ctx, p, engine.ContractInput{
		ParentName:  "Chen Mei",
		StudentName: "Chen Xiao",
		Phone:       "0912-000-111",
		Product:     "math-24",
		Kind:        "new",
		StartDate:   date(2025, time.January, 1),
	})
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}
	return c, tasks
}

func taskByKind(t *testing.T, tasks []domain.Task, kind string, seq int) domain.Task {
	t.Helper()
	for _, task := range tasks {
		if task.Kind == kind && task.Seq == seq {
			return task
		}
	}
	t.Fatalf("no %s task with seq %d", kind, seq)
	return domain.Task{}
}
