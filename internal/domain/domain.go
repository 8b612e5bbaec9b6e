package domain

import "time"

// Roles of an authenticated principal.
const (
	RoleAgent    = "agent"
	RoleManager  = "manager"
	RoleDirector = "director"
)

// Task kinds. Generated tasks are onboarding, first_lesson and periodic;
// adhoc rows come from follow-ups and manual scheduling.
const (
	TaskOnboarding  = "onboarding"
	TaskFirstLesson = "first_lesson"
	TaskPeriodic    = "periodic"
	TaskAdhoc       = "adhoc"
)

// Contact outcomes reported on completion.
const (
	OutcomeConnected = "connected"
	OutcomeNoAnswer  = "no_answer"
	OutcomeBusy      = "busy"
)

// Service tags attached to a contact.
const (
	ServiceNormal    = "normal"
	ServiceNeedsHelp = "needs_help"
	ServiceComplaint = "complaint"
)

type Contract struct {
	ID              string    `json:"id"`
	ContractNo      string    `json:"contract_no"`
	OwnerID         string    `json:"owner_id"`
	TeamID          string    `json:"team_id"`
	LegacyAgentID   *string   `json:"agent_id,omitempty"`
	ParentName      string    `json:"parent_name"`
	StudentName     string    `json:"student_name"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email,omitempty"`
	LineID          string    `json:"line_id,omitempty"`
	Product         string    `json:"product"`
	Kind            string    `json:"kind" enum:"new,renewal"`
	PaymentMethod   string    `json:"payment_method,omitempty"`
	Source          string    `json:"source,omitempty"`
	StartDate       time.Time `json:"start_date"`
	OnboardingDate  time.Time `json:"onboarding_date"`
	FirstLessonDate time.Time `json:"first_lesson_date"`
	Status          string    `json:"status" enum:"active,risk,finished"`
	RenewalLikely   bool      `json:"renewal_likely"`
	ReferralLikely  bool      `json:"referral_likely"`
	Note            string    `json:"note,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type Task struct {
	ID              string     `json:"id"`
	ContractID      string     `json:"contract_id"`
	OwnerID         string     `json:"owner_id"`
	TeamID          string     `json:"team_id"`
	LegacyAgentID   *string    `json:"agent_id,omitempty"`
	Kind            string     `json:"kind" enum:"onboarding,first_lesson,periodic,adhoc"`
	Seq             int        `json:"seq"`
	Title           string     `json:"title"`
	ClientName      string     `json:"client_name"`
	DueDate         time.Time  `json:"due_date"`
	IsCompleted     bool       `json:"is_completed"`
	Status          string     `json:"status" enum:"pending,completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Outcome         string     `json:"outcome,omitempty"`
	ServiceTag      string     `json:"service_tag,omitempty"`
	Note            string     `json:"note,omitempty"`
	SystemGenerated bool       `json:"system_generated"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CareLog is an immutable journal entry for one manual contact.
type CareLog struct {
	ID             string    `json:"id"`
	ContractID     string    `json:"contract_id"`
	OccurredAt     time.Time `json:"occurred_at"`
	Outcome        string    `json:"outcome,omitempty"`
	Content        string    `json:"content,omitempty"`
	RenewalLikely  bool      `json:"renewal_likely"`
	ReferralLikely bool      `json:"referral_likely"`
	AuthorID       string    `json:"author_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Principal is the authenticated actor; supplied by the auth collaborator
// and read-only to the engine.
type Principal struct {
	ID     string `json:"id"`
	Role   string `json:"role" enum:"agent,manager,director"`
	TeamID string `json:"team_id,omitempty"`
}

type Agent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role" enum:"agent,manager,director"`
	TeamID    string    `json:"team_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type APIKey struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	Name      string    `json:"name,omitempty"`
	KeyHash   string    `json:"key_hash"`
	CreatedAt time.Time `json:"created_at"`
}

// Timeline entry statuses; completed_late marks a task closed after its
// due day.
const (
	TimelinePending       = "pending"
	TimelineOverdue       = "overdue"
	TimelineCompleted     = "completed"
	TimelineCompletedLate = "completed_late"
)

// TimelineEntry is the normalized projection of a Task or CareLog inside
// the merged care history of one contract.
type TimelineEntry struct {
	ID             string    `json:"id"`
	Source         string    `json:"source" enum:"task,log"`
	Kind           string    `json:"kind"`
	Date           time.Time `json:"date"`
	Status         string    `json:"status" enum:"pending,overdue,completed,completed_late"`
	Outcome        string    `json:"outcome,omitempty"`
	Content        string    `json:"content,omitempty"`
	Author         string    `json:"author,omitempty"`
	RenewalLikely  bool      `json:"renewal_likely,omitempty"`
	ReferralLikely bool      `json:"referral_likely,omitempty"`
}

type Event struct {
	ID         int64     `json:"id"`
	TS         time.Time `json:"ts"`
	Type       string    `json:"type"`
	ContractID string    `json:"contract_id,omitempty"`
	EntityKind string    `json:"entity_kind"`
	EntityID   string    `json:"entity_id,omitempty"`
	ActorID    string    `json:"actor_id"`
	Payload    string    `json:"payload_json"`
}
