package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"careline/internal/domain"
	"careline/internal/events"
	"careline/internal/repo"
)

// CompletionReport is one agent's account of a contact attempt.
type CompletionReport struct {
	Outcome          string
	ServiceTag       string
	Note             string
	NextContactDate  *time.Time
	SuppressFollowUp bool
	RenewalLikely    bool
	ReferralLikely   bool
}

// CompleteTask resolves a contact report against a pending task.
// connected closes the task; no_answer and busy reschedule it in place
// to the mandatory next contact date. The pending check is a
// compare-and-swap, so of two concurrent reports exactly one wins and
// the loser is rejected without side effects.
func (e *Engine) CompleteTask(ctx context.Context, p domain.Principal, taskID string, rep CompletionReport) (domain.Task, error) {
	if !validOutcome(rep.Outcome) {
		return domain.Task{}, validationf("outcome must be connected, no_answer or busy")
	}
	if !validServiceTag(rep.ServiceTag) {
		return domain.Task{}, validationf("service tag must be normal, needs_help or complaint")
	}
	if rep.Outcome != domain.OutcomeConnected && rep.NextContactDate == nil {
		return domain.Task{}, validationf("a follow-up date is required for this outcome")
	}

	now := e.now()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTaskTx(ctx, tx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if t.IsCompleted {
		return domain.Task{}, validationf("task is already completed")
	}

	if rep.Outcome == domain.OutcomeConnected {
		applied, err := e.Repo.CompleteTask(ctx, tx, taskID, repo.TaskCompletion{
			Outcome:     rep.Outcome,
			ServiceTag:  rep.ServiceTag,
			Note:        rep.Note,
			CompletedAt: now,
		})
		if err != nil {
			return domain.Task{}, err
		}
		if !applied {
			return domain.Task{}, validationf("task is already completed")
		}
		if rep.NextContactDate != nil && !rep.SuppressFollowUp {
			follow := domain.Task{
				ID:            uuid.New().String(),
				ContractID:    t.ContractID,
				OwnerID:       t.OwnerID,
				TeamID:        t.TeamID,
				LegacyAgentID: t.LegacyAgentID,
				Kind:          domain.TaskAdhoc,
				Title:         "Follow up: " + t.Title,
				ClientName:    t.ClientName,
				DueDate:       *rep.NextContactDate,
				Status:        "pending",
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if _, err := e.Repo.InsertTask(ctx, tx, follow); err != nil {
				return domain.Task{}, err
			}
			err = e.Events.Append(ctx, tx, events.Record{
				TS: now, Type: events.TypeFollowUpCreated, ContractID: t.ContractID,
				EntityKind: "task", EntityID: follow.ID, ActorID: p.ID,
				Payload: map[string]any{"from": t.ID},
			})
			if err != nil {
				return domain.Task{}, err
			}
		}
		if err := e.Repo.ApplyContractTags(ctx, tx, t.ContractID, rep.RenewalLikely, rep.ReferralLikely); err != nil {
			return domain.Task{}, err
		}
		log := domain.CareLog{
			ID:             uuid.New().String(),
			ContractID:     t.ContractID,
			OccurredAt:     now,
			Outcome:        rep.Outcome,
			Content:        rep.Note,
			RenewalLikely:  rep.RenewalLikely,
			ReferralLikely: rep.ReferralLikely,
			AuthorID:       p.ID,
			CreatedAt:      now,
		}
		if err := e.Repo.InsertCareLog(ctx, tx, log); err != nil {
			return domain.Task{}, err
		}
		err = e.Events.Append(ctx, tx, events.Record{
			TS: now, Type: events.TypeTaskCompleted, ContractID: t.ContractID,
			EntityKind: "task", EntityID: t.ID, ActorID: p.ID,
			Payload: map[string]any{"outcome": rep.Outcome, "service_tag": rep.ServiceTag},
		})
		if err != nil {
			return domain.Task{}, err
		}
	} else {
		applied, err := e.Repo.RescheduleTask(ctx, tx, taskID, repo.TaskReschedule{
			DueDate:    *rep.NextContactDate,
			Outcome:    rep.Outcome,
			ServiceTag: rep.ServiceTag,
			Note:       rep.Note,
			UpdatedAt:  now,
		})
		if err != nil {
			return domain.Task{}, err
		}
		if !applied {
			return domain.Task{}, validationf("task is already completed")
		}
		err = e.Events.Append(ctx, tx, events.Record{
			TS: now, Type: events.TypeTaskRescheduled, ContractID: t.ContractID,
			EntityKind: "task", EntityID: t.ID, ActorID: p.ID,
			Payload: map[string]any{"outcome": rep.Outcome, "due_date": rep.NextContactDate.Unix()},
		})
		if err != nil {
			return domain.Task{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return e.Repo.GetTask(ctx, taskID)
}
