package repo

import (
	"context"
	"database/sql"

	"careline/internal/domain"
)

const careLogCols = `id,contract_id,occurred_at,outcome,content,renewal_likely,referral_likely,author_id,created_at`

func scanCareLog(row rowScanner) (domain.CareLog, error) {
	var l domain.CareLog
	var outcome, content, author sql.NullString
	var occurred, created int64
	var renewal, referral int
	err := row.Scan(&l.ID, &l.ContractID, &occurred, &outcome, &content, &renewal, &referral, &author, &created)
	if err == sql.ErrNoRows {
		return l, ErrNotFound
	}
	if err != nil {
		return l, err
	}
	l.OccurredAt = fromTS(occurred)
	l.Outcome = outcome.String
	l.Content = content.String
	l.RenewalLikely = renewal != 0
	l.ReferralLikely = referral != 0
	l.AuthorID = author.String
	l.CreatedAt = fromTS(created)
	return l, nil
}

func (r Repo) InsertCareLog(ctx context.Context, tx *sql.Tx, l domain.CareLog) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO care_logs(`+careLogCols+`)
VALUES (?,?,?,?,?,?,?,?,?)`,
		l.ID, l.ContractID, ts(l.OccurredAt), nullable(l.Outcome), nullable(l.Content),
		boolToInt(l.RenewalLikely), boolToInt(l.ReferralLikely), nullable(l.AuthorID), ts(l.CreatedAt))
	return err
}

func (r Repo) ListCareLogs(ctx context.Context, contractID string) ([]domain.CareLog, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+careLogCols+` FROM care_logs WHERE contract_id=? ORDER BY occurred_at ASC, id ASC`, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.CareLog
	for rows.Next() {
		l, err := scanCareLog(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}
