// Package server exposes the careline engine over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"careline/internal/domain"
	"careline/internal/engine"
	"careline/internal/events"
	"careline/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   *engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"validation_failed"`
	Message string         `json:"message" example:"a follow-up date is required for this outcome"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Careline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Careline API", "0.1.0")
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerContracts(group, cfg.Engine)
	registerTimeline(group, cfg.Engine)
	registerCareLogs(group, cfg.Engine)
	registerTasks(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerHooks(group, cfg.Engine)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var ve engine.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed", err.Error(), nil)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

// canSee mirrors the list-scope predicate for single-row reads,
// including the deprecated agent_id fallback.
func canSee(p domain.Principal, ownerID, teamID string, legacyAgentID *string) bool {
	switch p.Role {
	case domain.RoleDirector:
		return true
	case domain.RoleManager:
		return teamID == p.TeamID
	default:
		if ownerID == p.ID {
			return true
		}
		return ownerID == "" && legacyAgentID != nil && *legacyAgentID == p.ID
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerContracts(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-contract",
		Method:        http.MethodPost,
		Path:          "/contracts",
		Summary:       "Sign a contract and generate its care schedule",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateContractRequest `json:"body"`
	}) (*struct {
		Body struct {
			Contract domain.Contract `json:"contract"`
			Tasks    []domain.Task   `json:"tasks"`
		} `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		in := engine.ContractInput{
			ContractNo:    input.Body.ContractNo,
			ParentName:    input.Body.ParentName,
			StudentName:   input.Body.StudentName,
			Phone:         input.Body.Phone,
			Email:         input.Body.Email,
			LineID:        input.Body.LineID,
			Product:       input.Body.Product,
			Kind:          input.Body.Kind,
			PaymentMethod: input.Body.PaymentMethod,
			Source:        input.Body.Source,
			StartDate:     input.Body.StartDate,
			Note:          input.Body.Note,
		}
		if input.Body.OnboardingDate != nil {
			in.OnboardingDate = *input.Body.OnboardingDate
		}
		if input.Body.FirstLessonDate != nil {
			in.FirstLessonDate = *input.Body.FirstLessonDate
		}
		c, tasks, err := e.CreateContract(ctx, p, in)
		if err != nil {
			return nil, handleError(err)
		}
		resp := &struct {
			Body struct {
				Contract domain.Contract `json:"contract"`
				Tasks    []domain.Task   `json:"tasks"`
			} `json:"body"`
		}{}
		resp.Body.Contract = c
		resp.Body.Tasks = tasks
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-contracts",
		Method:      http.MethodGet,
		Path:        "/contracts",
		Summary:     "List visible contracts",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status" enum:",active,risk,finished"`
		Limit  int    `query:"limit"`
	}) (*struct {
		Body []domain.Contract `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListContracts(ctx, p, input.Status, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Contract `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-contract",
		Method:      http.MethodGet,
		Path:        "/contracts/{contract_id}",
		Summary:     "Get a contract",
	}, func(ctx context.Context, input *struct {
		ContractID string `path:"contract_id"`
	}) (*struct {
		Body domain.Contract `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.GetContract(ctx, input.ContractID)
		if err != nil {
			return nil, handleError(err)
		}
		if !canSee(p, c.OwnerID, c.TeamID, c.LegacyAgentID) {
			return nil, newAPIError(http.StatusNotFound, "not_found", "not found", nil)
		}
		return &struct {
			Body domain.Contract `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-contract",
		Method:      http.MethodPatch,
		Path:        "/contracts/{contract_id}",
		Summary:     "Update contact info or lifecycle status",
	}, func(ctx context.Context, input *struct {
		ContractID string                `path:"contract_id"`
		Body       UpdateContractRequest `json:"body"`
	}) (*struct {
		Body domain.Contract `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.UpdateContract(ctx, p, input.ContractID, engine.ContractUpdate{
			Phone:  input.Body.Phone,
			Email:  input.Body.Email,
			LineID: input.Body.LineID,
			Note:   input.Body.Note,
			Status: input.Body.Status,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Contract `json:"body"`
		}{Body: c}, nil
	})
}

func registerTimeline(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "contract-timeline",
		Method:      http.MethodGet,
		Path:        "/contracts/{contract_id}/timeline",
		Summary:     "Merged care history of a contract",
	}, func(ctx context.Context, input *struct {
		ContractID string `path:"contract_id"`
		Order      string `query:"order" enum:",asc,desc"`
	}) (*struct {
		Body []domain.TimelineEntry `json:"body"`
	}, error) {
		if _, authErr := requirePrincipal(ctx); authErr != nil {
			return nil, authErr
		}
		order := input.Order
		if order == "" {
			order = engine.OldestFirst
		}
		entries, err := e.Timeline(ctx, input.ContractID, order)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.TimelineEntry `json:"body"`
		}{Body: entries}, nil
	})
}

func registerCareLogs(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-care-logs",
		Method:      http.MethodGet,
		Path:        "/contracts/{contract_id}/care-logs",
		Summary:     "List care logs of a contract",
	}, func(ctx context.Context, input *struct {
		ContractID string `path:"contract_id"`
	}) (*struct {
		Body []domain.CareLog `json:"body"`
	}, error) {
		if _, authErr := requirePrincipal(ctx); authErr != nil {
			return nil, authErr
		}
		logs, err := e.ListCareLogs(ctx, input.ContractID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.CareLog `json:"body"`
		}{Body: logs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-care-log",
		Method:        http.MethodPost,
		Path:          "/contracts/{contract_id}/care-logs",
		Summary:       "Record a manual contact",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		ContractID string               `path:"contract_id"`
		Body       CreateCareLogRequest `json:"body"`
	}) (*struct {
		Body domain.CareLog `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		in := engine.CareLogInput{
			ContractID:     input.ContractID,
			Outcome:        input.Body.Outcome,
			Content:        input.Body.Content,
			RenewalLikely:  input.Body.RenewalLikely,
			ReferralLikely: input.Body.ReferralLikely,
		}
		if input.Body.OccurredAt != nil {
			in.OccurredAt = *input.Body.OccurredAt
		}
		l, err := e.AddCareLog(ctx, p, in)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CareLog `json:"body"`
		}{Body: l}, nil
	})
}

func registerTasks(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List visible care tasks (pending by default)",
	}, func(ctx context.Context, input *struct {
		ContractID    string `query:"contract_id"`
		Status        string `query:"status" enum:",pending,completed,all"`
		Kind          string `query:"kind" enum:",onboarding,first_lesson,periodic,adhoc"`
		DueWithinDays int    `query:"due_within_days"`
		Limit         int    `query:"limit"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		status := input.Status
		switch status {
		case "":
			status = "pending"
		case "all":
			status = ""
		}
		tasks, err := e.ListTasks(ctx, p, engine.TaskQuery{
			ContractID:    input.ContractID,
			Status:        status,
			Kind:          input.Kind,
			DueWithinDays: input.DueWithinDays,
			Limit:         input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: tasks}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create an ad-hoc care task",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CreateAdHocTask(ctx, p, engine.TaskInput{
			ContractID: input.Body.ContractID,
			Title:      input.Body.Title,
			DueDate:    input.Body.DueDate,
			Note:       input.Body.Note,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/complete",
		Summary:     "Resolve a contact report against a pending task",
	}, func(ctx context.Context, input *struct {
		TaskID string              `path:"task_id"`
		Body   CompleteTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CompleteTask(ctx, p, input.TaskID, engine.CompletionReport{
			Outcome:          input.Body.Outcome,
			ServiceTag:       input.Body.ServiceTag,
			Note:             input.Body.Note,
			NextContactDate:  input.Body.NextContactDate,
			SuppressFollowUp: input.Body.SuppressFollowUp,
			RenewalLikely:    input.Body.RenewalLikely,
			ReferralLikely:   input.Body.ReferralLikely,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})
}

func registerEvents(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Read the event journal",
	}, func(ctx context.Context, input *struct {
		ContractID string `query:"contract_id"`
		Type       string `query:"type"`
		AfterID    int64  `query:"after_id"`
		Limit      int    `query:"limit"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		if _, authErr := requirePrincipal(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Events.List(ctx, events.Filters{
			ContractID: input.ContractID,
			Type:       input.Type,
			AfterID:    input.AfterID,
			Limit:      input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: items}, nil
	})
}

// registerHooks exposes the at-least-once consumer for an external
// store's contract-created trigger. Redelivery is safe; generation is
// idempotent.
func registerHooks(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "hook-contract-created",
		Method:      http.MethodPost,
		Path:        "/hooks/contract-created",
		Summary:     "Consume a contract-created notification",
	}, func(ctx context.Context, input *struct {
		Body ContractCreatedHookRequest `json:"body"`
	}) (*struct {
		Body struct {
			Generated int `json:"generated"`
		} `json:"body"`
	}, error) {
		if _, authErr := requirePrincipal(ctx); authErr != nil {
			return nil, authErr
		}
		c, err := e.GetContract(ctx, input.Body.ContractID)
		if err != nil {
			return nil, handleError(err)
		}
		tasks, err := e.GenerateWithRetry(ctx, c)
		if err != nil {
			return nil, handleError(err)
		}
		resp := &struct {
			Body struct {
				Generated int `json:"generated"`
			} `json:"body"`
		}{}
		resp.Body.Generated = len(tasks)
		return resp, nil
	})
}
