// Package engine implements the care-task lifecycle: generation from
// contract dates, completion resolution, visibility scoping, timeline
// merging and status classification. Every command runs in one SQLite
// transaction with its journal event.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"careline/internal/config"
	"careline/internal/domain"
	"careline/internal/events"
	"careline/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	// Now is injectable for tests.
	Now func() time.Time
}

func New(db *sql.DB, cfg *config.Config) *Engine {
	return &Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e *Engine) now() time.Time {
	return e.Now().Truncate(time.Second)
}

// ValidationError marks a rejected command; the store is unchanged.
type ValidationError struct {
	Message string
}

func (v ValidationError) Error() string { return v.Message }

func validationf(format string, args ...any) error {
	return ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ContractInput carries the caller-supplied contract fields. Dates the
// caller omits are defaulted from the anchor date.
type ContractInput struct {
	ContractNo      string
	ParentName      string
	StudentName     string
	Phone           string
	Email           string
	LineID          string
	Product         string
	Kind            string
	PaymentMethod   string
	Source          string
	StartDate       time.Time
	OnboardingDate  time.Time
	FirstLessonDate time.Time
	Note            string
}

// CreateContract inserts the contract and generates its care tasks.
// The contract row commits first; generation runs with bounded retry so
// a transient failure never loses the signed contract.
func (e *Engine) CreateContract(ctx context.Context, p domain.Principal, in ContractInput) (domain.Contract, []domain.Task, error) {
	if in.ParentName == "" || in.StudentName == "" {
		return domain.Contract{}, nil, validationf("parent and student names are required")
	}
	if in.Phone == "" {
		return domain.Contract{}, nil, validationf("a contact phone is required")
	}
	if in.Product == "" {
		return domain.Contract{}, nil, validationf("a product is required")
	}
	if in.Kind != "new" && in.Kind != "renewal" {
		return domain.Contract{}, nil, validationf("contract kind must be new or renewal")
	}
	if in.StartDate.IsZero() {
		return domain.Contract{}, nil, validationf("a start date is required")
	}

	now := e.now()
	c := domain.Contract{
		ID:              uuid.New().String(),
		ContractNo:      in.ContractNo,
		OwnerID:         p.ID,
		TeamID:          p.TeamID,
		ParentName:      in.ParentName,
		StudentName:     in.StudentName,
		Phone:           in.Phone,
		Email:           in.Email,
		LineID:          in.LineID,
		Product:         in.Product,
		Kind:            in.Kind,
		PaymentMethod:   in.PaymentMethod,
		Source:          in.Source,
		StartDate:       in.StartDate,
		OnboardingDate:  in.OnboardingDate,
		FirstLessonDate: in.FirstLessonDate,
		Status:          "active",
		Note:            in.Note,
		CreatedAt:       now,
	}
	if c.ContractNo == "" {
		c.ContractNo = fmt.Sprintf("C-%d", now.UnixMilli())
	}
	if c.OnboardingDate.IsZero() {
		c.OnboardingDate = c.StartDate
	}
	if c.FirstLessonDate.IsZero() {
		c.FirstLessonDate = c.StartDate.AddDate(0, 0, e.Config.Schedule.FirstLessonLeadDays)
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Contract{}, nil, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertContract(ctx, tx, c); err != nil {
		return domain.Contract{}, nil, fmt.Errorf("insert contract: %w", err)
	}
	err = e.Events.Append(ctx, tx, events.Record{
		TS: now, Type: events.TypeContractCreated, ContractID: c.ID,
		EntityKind: "contract", EntityID: c.ID, ActorID: p.ID,
		Payload: map[string]any{"contract_no": c.ContractNo, "kind": c.Kind},
	})
	if err != nil {
		return domain.Contract{}, nil, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Contract{}, nil, err
	}

	tasks, err := e.GenerateWithRetry(ctx, c)
	if err != nil {
		return c, nil, fmt.Errorf("generate care tasks: %w", err)
	}
	return c, tasks, nil
}

func (e *Engine) GetContract(ctx context.Context, id string) (domain.Contract, error) {
	return e.Repo.GetContract(ctx, id)
}

// ContractUpdate mutates contact info and lifecycle status; the anchor
// date is immutable after creation.
type ContractUpdate struct {
	Phone  *string
	Email  *string
	LineID *string
	Note   *string
	Status *string
}

func (e *Engine) UpdateContract(ctx context.Context, p domain.Principal, id string, u ContractUpdate) (domain.Contract, error) {
	if u.Status != nil {
		switch *u.Status {
		case "active", "risk", "finished":
		default:
			return domain.Contract{}, validationf("contract status must be active, risk or finished")
		}
	}
	if _, err := e.Repo.GetContract(ctx, id); err != nil {
		return domain.Contract{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Contract{}, err
	}
	defer tx.Rollback()
	contact := repo.ContractContactUpdate{Phone: u.Phone, Email: u.Email, LineID: u.LineID, Note: u.Note}
	if err := e.Repo.UpdateContractContact(ctx, tx, id, contact); err != nil {
		return domain.Contract{}, err
	}
	if u.Status != nil {
		if err := e.Repo.UpdateContractStatus(ctx, tx, id, *u.Status); err != nil {
			return domain.Contract{}, err
		}
	}
	err = e.Events.Append(ctx, tx, events.Record{
		TS: e.now(), Type: events.TypeContractUpdated, ContractID: id,
		EntityKind: "contract", EntityID: id, ActorID: p.ID,
	})
	if err != nil {
		return domain.Contract{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Contract{}, err
	}
	return e.Repo.GetContract(ctx, id)
}

// TaskInput creates an ad-hoc task outside the generated schedule.
type TaskInput struct {
	ContractID string
	Title      string
	DueDate    time.Time
	Note       string
}

func (e *Engine) CreateAdHocTask(ctx context.Context, p domain.Principal, in TaskInput) (domain.Task, error) {
	if in.Title == "" {
		return domain.Task{}, validationf("a task title is required")
	}
	if in.DueDate.IsZero() {
		return domain.Task{}, validationf("a due date is required")
	}
	c, err := e.Repo.GetContract(ctx, in.ContractID)
	if err != nil {
		return domain.Task{}, err
	}
	now := e.now()
	t := domain.Task{
		ID:         uuid.New().String(),
		ContractID: c.ID,
		OwnerID:    c.OwnerID,
		TeamID:     c.TeamID,
		Kind:       domain.TaskAdhoc,
		Title:      in.Title,
		ClientName: c.StudentName,
		DueDate:    in.DueDate,
		Status:     "pending",
		Note:       in.Note,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	if _, err := e.Repo.InsertTask(ctx, tx, t); err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	err = e.Events.Append(ctx, tx, events.Record{
		TS: now, Type: events.TypeTaskCreated, ContractID: c.ID,
		EntityKind: "task", EntityID: t.ID, ActorID: p.ID,
		Payload: map[string]any{"kind": t.Kind, "title": t.Title},
	})
	if err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// CareLogInput appends a manual contact record.
type CareLogInput struct {
	ContractID     string
	OccurredAt     time.Time
	Outcome        string
	Content        string
	RenewalLikely  bool
	ReferralLikely bool
}

func (e *Engine) AddCareLog(ctx context.Context, p domain.Principal, in CareLogInput) (domain.CareLog, error) {
	if in.Content == "" && in.Outcome == "" {
		return domain.CareLog{}, validationf("a care log needs an outcome or content")
	}
	if in.Outcome != "" && !validOutcome(in.Outcome) {
		return domain.CareLog{}, validationf("outcome must be connected, no_answer or busy")
	}
	if _, err := e.Repo.GetContract(ctx, in.ContractID); err != nil {
		return domain.CareLog{}, err
	}
	now := e.now()
	l := domain.CareLog{
		ID:             uuid.New().String(),
		ContractID:     in.ContractID,
		OccurredAt:     in.OccurredAt,
		Outcome:        in.Outcome,
		Content:        in.Content,
		RenewalLikely:  in.RenewalLikely,
		ReferralLikely: in.ReferralLikely,
		AuthorID:       p.ID,
		CreatedAt:      now,
	}
	if l.OccurredAt.IsZero() {
		l.OccurredAt = now
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.CareLog{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertCareLog(ctx, tx, l); err != nil {
		return domain.CareLog{}, fmt.Errorf("insert care log: %w", err)
	}
	if err := e.Repo.ApplyContractTags(ctx, tx, in.ContractID, l.RenewalLikely, l.ReferralLikely); err != nil {
		return domain.CareLog{}, err
	}
	err = e.Events.Append(ctx, tx, events.Record{
		TS: now, Type: events.TypeCareLogAdded, ContractID: in.ContractID,
		EntityKind: "care_log", EntityID: l.ID, ActorID: p.ID,
	})
	if err != nil {
		return domain.CareLog{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.CareLog{}, err
	}
	return l, nil
}

func (e *Engine) ListCareLogs(ctx context.Context, contractID string) ([]domain.CareLog, error) {
	if _, err := e.Repo.GetContract(ctx, contractID); err != nil {
		return nil, err
	}
	return e.Repo.ListCareLogs(ctx, contractID)
}

func validOutcome(v string) bool {
	switch v {
	case domain.OutcomeConnected, domain.OutcomeNoAnswer, domain.OutcomeBusy:
		return true
	}
	return false
}

func validServiceTag(v string) bool {
	switch v {
	case "", domain.ServiceNormal, domain.ServiceNeedsHelp, domain.ServiceComplaint:
		return true
	}
	return false
}
