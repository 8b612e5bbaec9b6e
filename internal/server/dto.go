package server

import "time"

type CreateContractRequest struct {
	ContractNo      string     `json:"contract_no,omitempty"`
	ParentName      string     `json:"parent_name"`
	StudentName     string     `json:"student_name"`
	Phone           string     `json:"phone"`
	Email           string     `json:"email,omitempty"`
	LineID          string     `json:"line_id,omitempty"`
	Product         string     `json:"product"`
	Kind            string     `json:"kind" enum:"new,renewal"`
	PaymentMethod   string     `json:"payment_method,omitempty"`
	Source          string     `json:"source,omitempty"`
	StartDate       time.Time  `json:"start_date"`
	OnboardingDate  *time.Time `json:"onboarding_date,omitempty"`
	FirstLessonDate *time.Time `json:"first_lesson_date,omitempty"`
	Note            string     `json:"note,omitempty"`
}

type UpdateContractRequest struct {
	Phone  *string `json:"phone,omitempty"`
	Email  *string `json:"email,omitempty"`
	LineID *string `json:"line_id,omitempty"`
	Note   *string `json:"note,omitempty"`
	Status *string `json:"status,omitempty" enum:"active,risk,finished"`
}

type CreateTaskRequest struct {
	ContractID string    `json:"contract_id"`
	Title      string    `json:"title"`
	DueDate    time.Time `json:"due_date"`
	Note       string    `json:"note,omitempty"`
}

type CompleteTaskRequest struct {
	Outcome          string     `json:"outcome" enum:"connected,no_answer,busy"`
	ServiceTag       string     `json:"service_tag,omitempty" enum:"normal,needs_help,complaint"`
	Note             string     `json:"note,omitempty"`
	NextContactDate  *time.Time `json:"next_contact_date,omitempty"`
	SuppressFollowUp bool       `json:"suppress_follow_up,omitempty"`
	RenewalLikely    bool       `json:"renewal_likely,omitempty"`
	ReferralLikely   bool       `json:"referral_likely,omitempty"`
}

type CreateCareLogRequest struct {
	OccurredAt     *time.Time `json:"occurred_at,omitempty"`
	Outcome        string     `json:"outcome,omitempty"`
	Content        string     `json:"content,omitempty"`
	RenewalLikely  bool       `json:"renewal_likely,omitempty"`
	ReferralLikely bool       `json:"referral_likely,omitempty"`
}

type ContractCreatedHookRequest struct {
	ContractID string `json:"contract_id"`
}
