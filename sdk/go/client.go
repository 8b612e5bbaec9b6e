// Package carelinesdk is a minimal client for the Careline HTTP API.
package carelinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Contract is the API contract model (partial).
type Contract struct {
	ID             string    `json:"id"`
	ContractNo     string    `json:"contract_no"`
	OwnerID        string    `json:"owner_id"`
	TeamID         string    `json:"team_id"`
	ParentName     string    `json:"parent_name"`
	StudentName    string    `json:"student_name"`
	Phone          string    `json:"phone"`
	Product        string    `json:"product"`
	Kind           string    `json:"kind"`
	StartDate      time.Time `json:"start_date"`
	Status         string    `json:"status"`
	RenewalLikely  bool      `json:"renewal_likely"`
	ReferralLikely bool      `json:"referral_likely"`
}

// Task is the API care-task model (partial).
type Task struct {
	ID          string     `json:"id"`
	ContractID  string     `json:"contract_id"`
	OwnerID     string     `json:"owner_id"`
	Kind        string     `json:"kind"`
	Title       string     `json:"title"`
	ClientName  string     `json:"client_name"`
	DueDate     time.Time  `json:"due_date"`
	IsCompleted bool       `json:"is_completed"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Outcome     string     `json:"outcome,omitempty"`
}

type TimelineEntry struct {
	ID      string    `json:"id"`
	Source  string    `json:"source"`
	Kind    string    `json:"kind"`
	Date    time.Time `json:"date"`
	Status  string    `json:"status"`
	Outcome string    `json:"outcome,omitempty"`
	Content string    `json:"content,omitempty"`
	Author  string    `json:"author,omitempty"`
}

// NewContract are the fields for signing a contract.
type NewContract struct {
	ContractNo      string     `json:"contract_no,omitempty"`
	ParentName      string     `json:"parent_name"`
	StudentName     string     `json:"student_name"`
	Phone           string     `json:"phone"`
	Email           string     `json:"email,omitempty"`
	LineID          string     `json:"line_id,omitempty"`
	Product         string     `json:"product"`
	Kind            string     `json:"kind"`
	StartDate       time.Time  `json:"start_date"`
	OnboardingDate  *time.Time `json:"onboarding_date,omitempty"`
	FirstLessonDate *time.Time `json:"first_lesson_date,omitempty"`
	Note            string     `json:"note,omitempty"`
}

// CompletionReport is one agent's account of a contact attempt.
type CompletionReport struct {
	Outcome          string     `json:"outcome"`
	ServiceTag       string     `json:"service_tag,omitempty"`
	Note             string     `json:"note,omitempty"`
	NextContactDate  *time.Time `json:"next_contact_date,omitempty"`
	SuppressFollowUp bool       `json:"suppress_follow_up,omitempty"`
	RenewalLikely    bool       `json:"renewal_likely,omitempty"`
	ReferralLikely   bool       `json:"referral_likely,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateContract signs a contract; the response carries the generated
// care schedule.
func (c *Client) CreateContract(ctx context.Context, in NewContract) (Contract, []Task, error) {
	var resp struct {
		Contract Contract `json:"contract"`
		Tasks    []Task   `json:"tasks"`
	}
	err := c.do(ctx, http.MethodPost, "v0/contracts", in, &resp)
	return resp.Contract, resp.Tasks, err
}

// GetContract fetches one contract.
func (c *Client) GetContract(ctx context.Context, id string) (Contract, error) {
	var resp Contract
	err := c.do(ctx, http.MethodGet, "v0/contracts/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ListTasks returns the caller's visible tasks, pending by default.
func (c *Client) ListTasks(ctx context.Context, status string, dueWithinDays int) ([]Task, error) {
	endpoint := "v0/tasks"
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if dueWithinDays > 0 {
		q.Set("due_within_days", fmt.Sprintf("%d", dueWithinDays))
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []Task
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// CompleteTask resolves a contact report against a task.
func (c *Client) CompleteTask(ctx context.Context, taskID string, rep CompletionReport) (Task, error) {
	var resp Task
	endpoint := fmt.Sprintf("v0/tasks/%s/complete", url.PathEscape(taskID))
	err := c.do(ctx, http.MethodPost, endpoint, rep, &resp)
	return resp, err
}

// Timeline returns the merged care history of a contract.
func (c *Client) Timeline(ctx context.Context, contractID, order string) ([]TimelineEntry, error) {
	endpoint := fmt.Sprintf("v0/contracts/%s/timeline", url.PathEscape(contractID))
	if order != "" {
		endpoint += "?order=" + url.QueryEscape(order)
	}
	var resp []TimelineEntry
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
