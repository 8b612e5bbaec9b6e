package repo

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"

	"careline/internal/domain"
)

// HashAPIKey derives the stored digest for a raw API key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

const agentCols = `id,name,role,team_id,created_at`

func scanAgent(row rowScanner) (domain.Agent, error) {
	var a domain.Agent
	var teamID sql.NullString
	var created int64
	err := row.Scan(&a.ID, &a.Name, &a.Role, &teamID, &created)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	a.TeamID = teamID.String
	a.CreatedAt = fromTS(created)
	return a, nil
}

func (r Repo) InsertAgent(ctx context.Context, a domain.Agent) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO agents(`+agentCols+`) VALUES (?,?,?,?,?)`,
		a.ID, a.Name, a.Role, nullable(a.TeamID), ts(a.CreatedAt))
	return err
}

func (r Repo) GetAgent(ctx context.Context, id string) (domain.Agent, error) {
	return scanAgent(r.DB.QueryRowContext(ctx, `SELECT `+agentCols+` FROM agents WHERE id=?`, id))
}

func (r Repo) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+agentCols+` FROM agents ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) InsertAPIKey(ctx context.Context, k domain.APIKey) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO api_keys(id,agent_id,name,key_hash,created_at) VALUES (?,?,?,?,?)`,
		k.ID, k.AgentID, nullable(k.Name), k.KeyHash, ts(k.CreatedAt))
	return err
}

// AgentByAPIKeyHash resolves the agent behind a presented key digest.
func (r Repo) AgentByAPIKeyHash(ctx context.Context, hash string) (domain.Agent, error) {
	return scanAgent(r.DB.QueryRowContext(ctx, `SELECT a.id,a.name,a.role,a.team_id,a.created_at
FROM api_keys k JOIN agents a ON a.id=k.agent_id WHERE k.key_hash=?`, hash))
}
