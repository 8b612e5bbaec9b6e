// Package events appends to and reads the append-only journal. Rows are
// written inside the same transaction as the state change they record,
// so consumers never observe an event without its effect.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"careline/internal/domain"
)

// Event types emitted by the engine.
const (
	TypeContractCreated = "contract.created"
	TypeContractUpdated = "contract.updated"
	TypeTaskGenerated   = "task.generated"
	TypeTaskCreated     = "task.created"
	TypeTaskCompleted   = "task.completed"
	TypeTaskRescheduled = "task.rescheduled"
	TypeFollowUpCreated = "task.followup.created"
	TypeCareLogAdded    = "carelog.added"
)

type Writer struct {
	DB *sql.DB
}

// Record is an event before assignment of its journal id.
type Record struct {
	TS         time.Time
	Type       string
	ContractID string
	EntityKind string
	EntityID   string
	ActorID    string
	Payload    any
}

// Append writes one record inside tx.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, rec Record) error {
	payload := "{}"
	if rec.Payload != nil {
		data, err := json.Marshal(rec.Payload)
		if err != nil {
			return err
		}
		payload = string(data)
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO events(ts,type,contract_id,entity_kind,entity_id,actor_id,payload_json)
VALUES (?,?,?,?,?,?,?)`,
		rec.TS.Unix(), rec.Type, nullable(rec.ContractID), rec.EntityKind, nullable(rec.EntityID), rec.ActorID, payload)
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// Filters narrow journal reads. AfterID is the webhook dispatcher
// cursor.
type Filters struct {
	ContractID string
	Type       string
	AfterID    int64
	Limit      int
}

func (w Writer) List(ctx context.Context, f Filters) ([]domain.Event, error) {
	query := `SELECT id,ts,type,contract_id,entity_kind,entity_id,actor_id,payload_json FROM events WHERE id>?`
	args := []any{f.AfterID}
	if f.ContractID != "" {
		query += ` AND contract_id=?`
		args = append(args, f.ContractID)
	}
	if f.Type != "" {
		query += ` AND type=?`
		args = append(args, f.Type)
	}
	query += ` ORDER BY id ASC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := w.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var contractID, entityID sql.NullString
		var ts int64
		if err := rows.Scan(&e.ID, &ts, &e.Type, &contractID, &e.EntityKind, &entityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		e.TS = time.Unix(ts, 0).UTC()
		e.ContractID = contractID.String
		e.EntityID = entityID.String
		res = append(res, e)
	}
	return res, rows.Err()
}
