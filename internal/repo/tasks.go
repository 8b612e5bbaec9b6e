package repo

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"careline/internal/domain"
)

// Scope restricts a query to the rows a principal may see. The zero
// value matches nothing; All opens every row.
type Scope struct {
	All     bool
	OwnerID string
	TeamID  string
	// Legacy switches the owner predicate to the deprecated agent_id
	// column for rows written before ownership consolidation.
	Legacy bool
}

func (s Scope) clauses() ([]string, []any) {
	switch {
	case s.All:
		return nil, nil
	case s.OwnerID != "" && s.Legacy:
		return []string{"agent_id=?"}, []any{s.OwnerID}
	case s.OwnerID != "":
		return []string{"owner_id=?"}, []any{s.OwnerID}
	case s.TeamID != "":
		return []string{"team_id=?"}, []any{s.TeamID}
	}
	return []string{"1=0"}, nil
}

const taskCols = `id,contract_id,owner_id,team_id,agent_id,kind,seq,title,client_name,due_date,is_completed,status,completed_at,outcome,service_tag,note,system_generated,created_at,updated_at`

func scanTask(row rowScanner) (domain.Task, error) {
	var t domain.Task
	var agentID, outcome, serviceTag, note sql.NullString
	var due, created, updated int64
	var completedAt sql.NullInt64
	var completed, generated int
	err := row.Scan(&t.ID, &t.ContractID, &t.OwnerID, &t.TeamID, &agentID, &t.Kind, &t.Seq, &t.Title, &t.ClientName,
		&due, &completed, &t.Status, &completedAt, &outcome, &serviceTag, &note, &generated, &created, &updated)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if agentID.Valid {
		t.LegacyAgentID = &agentID.String
	}
	t.DueDate = fromTS(due)
	t.IsCompleted = completed != 0
	if completedAt.Valid {
		at := fromTS(completedAt.Int64)
		t.CompletedAt = &at
	}
	t.Outcome = outcome.String
	t.ServiceTag = serviceTag.String
	t.Note = note.String
	t.SystemGenerated = generated != 0
	t.CreatedAt = fromTS(created)
	t.UpdatedAt = fromTS(updated)
	return t, nil
}

// InsertTask writes one task inside tx. Generated tasks carry
// deterministic ids; a duplicate id is skipped and reported as not
// inserted so replays stay idempotent.
func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) (bool, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO tasks(`+taskCols+`)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT DO NOTHING`,
		t.ID, t.ContractID, t.OwnerID, t.TeamID, nullableStringPtr(t.LegacyAgentID), t.Kind, t.Seq, t.Title, t.ClientName,
		ts(t.DueDate), boolToInt(t.IsCompleted), t.Status, nullableTimePtr(t.CompletedAt),
		nullable(t.Outcome), nullable(t.ServiceTag), nullable(t.Note),
		boolToInt(t.SystemGenerated), ts(t.CreatedAt), ts(t.UpdatedAt))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return scanTask(r.DB.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE id=?`, id))
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id string) (domain.Task, error) {
	return scanTask(tx.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE id=?`, id))
}

// TaskFilters narrow task listings. Status and Kind are exact matches;
// DueBefore is exclusive.
type TaskFilters struct {
	Scope      Scope
	ContractID string
	Status     string
	Kind       string
	DueBefore  time.Time
	Limit      int
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	clauses, args := f.Scope.clauses()
	if f.ContractID != "" {
		clauses = append(clauses, "contract_id=?")
		args = append(args, f.ContractID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Kind != "" {
		clauses = append(clauses, "kind=?")
		args = append(args, f.Kind)
	}
	if !f.DueBefore.IsZero() {
		clauses = append(clauses, "due_date<?")
		args = append(args, ts(f.DueBefore))
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + taskCols + ` FROM tasks ` + where + ` ORDER BY due_date ASC, id ASC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// ListContractTasks returns every task of one contract, oldest key
// first, for timeline assembly.
func (r Repo) ListContractTasks(ctx context.Context, contractID string) ([]domain.Task, error) {
	return r.ListTasks(ctx, TaskFilters{Scope: Scope{All: true}, ContractID: contractID})
}

// TaskCompletion is the row mutation for a closed contact.
type TaskCompletion struct {
	Outcome     string
	ServiceTag  string
	Note        string
	CompletedAt time.Time
}

// CompleteTask closes a pending task. The is_completed guard is the
// compare-and-swap: a false return with nil error means another writer
// completed the row first.
func (r Repo) CompleteTask(ctx context.Context, tx *sql.Tx, id string, c TaskCompletion) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE tasks
SET is_completed=1, status='completed', completed_at=?, outcome=?, service_tag=?, note=?, updated_at=?
WHERE id=? AND is_completed=0`,
		ts(c.CompletedAt), c.Outcome, nullable(c.ServiceTag), nullable(c.Note), ts(c.CompletedAt), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// TaskReschedule moves a pending task to a new due date after a failed
// contact, keeping it open.
type TaskReschedule struct {
	DueDate    time.Time
	Outcome    string
	ServiceTag string
	Note       string
	UpdatedAt  time.Time
}

// RescheduleTask applies the same pending guard as CompleteTask.
func (r Repo) RescheduleTask(ctx context.Context, tx *sql.Tx, id string, u TaskReschedule) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE tasks
SET due_date=?, outcome=?, service_tag=?, note=?, updated_at=?
WHERE id=? AND is_completed=0`,
		ts(u.DueDate), u.Outcome, nullable(u.ServiceTag), nullable(u.Note), ts(u.UpdatedAt), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
