package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"careline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// Timestamps are persisted as unix seconds so ordering and day-boundary
// comparisons stay exact.
func ts(t time.Time) int64 { return t.Unix() }

func fromTS(v int64) time.Time { return time.Unix(v, 0).UTC() }

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func nullableTimePtr(v *time.Time) any {
	if v == nil || v.IsZero() {
		return nil
	}
	return ts(*v)
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

const contractCols = `id,contract_no,owner_id,team_id,agent_id,parent_name,student_name,phone,email,line_id,product,kind,payment_method,source,start_date,onboarding_date,first_lesson_date,status,renewal_likely,referral_likely,note,created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (domain.Contract, error) {
	var c domain.Contract
	var agentID, email, lineID, paymentMethod, source, note sql.NullString
	var start, onboarding, firstLesson, created int64
	var renewal, referral int
	err := row.Scan(&c.ID, &c.ContractNo, &c.OwnerID, &c.TeamID, &agentID, &c.ParentName, &c.StudentName,
		&c.Phone, &email, &lineID, &c.Product, &c.Kind, &paymentMethod, &source,
		&start, &onboarding, &firstLesson, &c.Status, &renewal, &referral, &note, &created)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if agentID.Valid {
		c.LegacyAgentID = &agentID.String
	}
	c.Email = email.String
	c.LineID = lineID.String
	c.PaymentMethod = paymentMethod.String
	c.Source = source.String
	c.Note = note.String
	c.StartDate = fromTS(start)
	c.OnboardingDate = fromTS(onboarding)
	c.FirstLessonDate = fromTS(firstLesson)
	c.RenewalLikely = renewal != 0
	c.ReferralLikely = referral != 0
	c.CreatedAt = fromTS(created)
	return c, nil
}

func (r Repo) InsertContract(ctx context.Context, tx *sql.Tx, c domain.Contract) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO contracts(`+contractCols+`)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.ContractNo, c.OwnerID, c.TeamID, nullableStringPtr(c.LegacyAgentID), c.ParentName, c.StudentName,
		c.Phone, nullable(c.Email), nullable(c.LineID), c.Product, c.Kind, nullable(c.PaymentMethod), nullable(c.Source),
		ts(c.StartDate), ts(c.OnboardingDate), ts(c.FirstLessonDate), c.Status,
		boolToInt(c.RenewalLikely), boolToInt(c.ReferralLikely), nullable(c.Note), ts(c.CreatedAt))
	return err
}

func (r Repo) GetContract(ctx context.Context, id string) (domain.Contract, error) {
	return scanContract(r.DB.QueryRowContext(ctx, `SELECT `+contractCols+` FROM contracts WHERE id=?`, id))
}

// ContractFilters scope and page contract listings.
type ContractFilters struct {
	Scope  Scope
	Status string
	Limit  int
}

func (r Repo) ListContracts(ctx context.Context, f ContractFilters) ([]domain.Contract, error) {
	clauses, args := f.Scope.clauses()
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + contractCols + ` FROM contracts ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// ContractContactUpdate carries the mutable contact fields; nil leaves a
// field unchanged.
type ContractContactUpdate struct {
	Phone  *string
	Email  *string
	LineID *string
	Note   *string
}

func (r Repo) UpdateContractContact(ctx context.Context, tx *sql.Tx, id string, u ContractContactUpdate) error {
	var fields []string
	var args []any
	if u.Phone != nil {
		fields = append(fields, "phone=?")
		args = append(args, *u.Phone)
	}
	if u.Email != nil {
		fields = append(fields, "email=?")
		args = append(args, nullable(*u.Email))
	}
	if u.LineID != nil {
		fields = append(fields, "line_id=?")
		args = append(args, nullable(*u.LineID))
	}
	if u.Note != nil {
		fields = append(fields, "note=?")
		args = append(args, nullable(*u.Note))
	}
	if len(fields) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := tx.ExecContext(ctx, `UPDATE contracts SET `+strings.Join(fields, ",")+` WHERE id=?`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpdateContractStatus(ctx context.Context, tx *sql.Tx, id, status string) error {
	res, err := tx.ExecContext(ctx, `UPDATE contracts SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyContractTags raises the renewal/referral flags; flags never drop
// back automatically.
func (r Repo) ApplyContractTags(ctx context.Context, tx *sql.Tx, id string, renewal, referral bool) error {
	if !renewal && !referral {
		return nil
	}
	_, err := tx.ExecContext(ctx, `UPDATE contracts SET renewal_likely=MAX(renewal_likely,?), referral_likely=MAX(referral_likely,?) WHERE id=?`,
		boolToInt(renewal), boolToInt(referral), id)
	return err
}
