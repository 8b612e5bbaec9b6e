package engine

import (
	"context"

	"careline/internal/domain"
	"careline/internal/repo"
)

// ScopeFor maps a principal to its row predicate. Pure; the same
// principal always yields the same scope.
func ScopeFor(p domain.Principal) repo.Scope {
	switch p.Role {
	case domain.RoleDirector:
		return repo.Scope{All: true}
	case domain.RoleManager:
		return repo.Scope{TeamID: p.TeamID}
	default:
		return repo.Scope{OwnerID: p.ID}
	}
}

// TaskQuery narrows a scoped task listing.
type TaskQuery struct {
	ContractID    string
	Status        string
	Kind          string
	DueWithinDays int
	Limit         int
}

// ListTasks runs the scoped query. Rows written before ownership
// consolidation carry only the deprecated agent_id, so an empty agent
// result is retried once against that column.
func (e *Engine) ListTasks(ctx context.Context, p domain.Principal, q TaskQuery) ([]domain.Task, error) {
	f := repo.TaskFilters{
		Scope:      ScopeFor(p),
		ContractID: q.ContractID,
		Status:     q.Status,
		Kind:       q.Kind,
		Limit:      q.Limit,
	}
	if q.DueWithinDays > 0 {
		f.DueBefore = e.now().AddDate(0, 0, q.DueWithinDays)
	}
	tasks, err := e.Repo.ListTasks(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 && f.Scope.OwnerID != "" {
		f.Scope.Legacy = true
		return e.Repo.ListTasks(ctx, f)
	}
	return tasks, nil
}

func (e *Engine) ListContracts(ctx context.Context, p domain.Principal, status string, limit int) ([]domain.Contract, error) {
	f := repo.ContractFilters{Scope: ScopeFor(p), Status: status, Limit: limit}
	contracts, err := e.Repo.ListContracts(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(contracts) == 0 && f.Scope.OwnerID != "" {
		f.Scope.Legacy = true
		return e.Repo.ListContracts(ctx, f)
	}
	return contracts, nil
}
