package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"careline/internal/config"
	"careline/internal/db"
	"careline/internal/domain"
	"careline/internal/engine"
	"careline/internal/migrate"
	"careline/internal/repo"
)

const testJWTSecret = "test-secret"

type testServer struct {
	URL    string
	Engine *engine.Engine
	client *http.Client
	close  func()
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	cfg.Schedule.Months = 3
	cfg.Care.Timezone = "UTC"
	e := engine.New(conn, cfg)
	e.Now = func() time.Time { return time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC) }
	handler, err := New(Config{
		Engine: e,
		Auth:   AuthConfig{JWTSecret: testJWTSecret, AllowLegacyAgentHeader: true},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(ts.close)
	return ts
}

func signToken(t *testing.T, sub, role, team string) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": sub, "role": role}
	if team != "" {
		claims["team_id"] = team
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.URL+"/v0"+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, _ := io.ReadAll(res.Body)
	return res.StatusCode, data
}

func contractRequest() CreateContractRequest {
	return CreateContractRequest{
		ParentName:  "Chen Mei",
		StudentName: "Chen Xiao",
		Phone:       "0912-000-111",
		Product:     "math-24",
		Kind:        "new",
		StartDate:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestHealthNeedsNoAuth(t *testing.T) {
	s := newTestServer(t)
	status, _ := s.do(t, http.MethodGet, "/health", "", nil)
	if status != http.StatusOK {
		t.Fatalf("health status %d", status)
	}
}

func TestUnauthenticatedRejected(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, http.MethodGet, "/tasks", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("status %d: %s", status, body)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Code != "unauthorized" {
		t.Fatalf("bad error envelope: %s", body)
	}
}

func TestCreateContractGeneratesSchedule(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "agent-1", domain.RoleAgent, "team-1")

	status, body := s.do(t, http.MethodPost, "/contracts", token, contractRequest())
	if status != http.StatusCreated {
		t.Fatalf("status %d: %s", status, body)
	}
	var created struct {
		Contract domain.Contract `json:"contract"`
		Tasks    []domain.Task   `json:"tasks"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(created.Tasks) != 5 {
		t.Fatalf("expected 5 generated tasks, got %d", len(created.Tasks))
	}
	if created.Contract.OwnerID != "agent-1" || created.Contract.TeamID != "team-1" {
		t.Fatalf("ownership not taken from principal: %+v", created.Contract)
	}

	status, body = s.do(t, http.MethodGet, "/tasks", token, nil)
	if status != http.StatusOK {
		t.Fatalf("list status %d: %s", status, body)
	}
	var tasks []domain.Task
	if err := json.Unmarshal(body, &tasks); err != nil {
		t.Fatalf("decode tasks: %v", err)
	}
	if len(tasks) != 5 {
		t.Fatalf("expected 5 pending tasks, got %d", len(tasks))
	}
}

func TestTaskListIsScoped(t *testing.T) {
	s := newTestServer(t)
	owner := signToken(t, "agent-1", domain.RoleAgent, "team-1")
	other := signToken(t, "agent-2", domain.RoleAgent, "team-2")
	boss := signToken(t, "dir-1", domain.RoleDirector, "")

	if status, body := s.do(t, http.MethodPost, "/contracts", owner, contractRequest()); status != http.StatusCreated {
		t.Fatalf("create status %d: %s", status, body)
	}

	_, body := s.do(t, http.MethodGet, "/tasks", other, nil)
	var tasks []domain.Task
	if err := json.Unmarshal(body, &tasks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("foreign agent saw %d tasks", len(tasks))
	}

	_, body = s.do(t, http.MethodGet, "/tasks", boss, nil)
	if err := json.Unmarshal(body, &tasks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tasks) != 5 {
		t.Fatalf("director saw %d tasks", len(tasks))
	}
}

func TestCompleteTaskEndpoint(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "agent-1", domain.RoleAgent, "team-1")

	status, body := s.do(t, http.MethodPost, "/contracts", token, contractRequest())
	if status != http.StatusCreated {
		t.Fatalf("create status %d: %s", status, body)
	}
	var created struct {
		Tasks []domain.Task `json:"tasks"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	taskID := created.Tasks[0].ID

	// Failed contact without a follow-up date is rejected.
	status, body = s.do(t, http.MethodPost, "/tasks/"+taskID+"/complete", token, CompleteTaskRequest{
		Outcome: domain.OutcomeBusy,
	})
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("status %d: %s", status, body)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Code != "validation_failed" {
		t.Fatalf("bad error envelope: %s", body)
	}

	status, body = s.do(t, http.MethodPost, "/tasks/"+taskID+"/complete", token, CompleteTaskRequest{
		Outcome:    domain.OutcomeConnected,
		ServiceTag: domain.ServiceNormal,
	})
	if status != http.StatusOK {
		t.Fatalf("status %d: %s", status, body)
	}
	var done domain.Task
	if err := json.Unmarshal(body, &done); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !done.IsCompleted || done.Status != "completed" {
		t.Fatalf("task not completed: %+v", done)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	agent := domain.Agent{ID: "agent-9", Name: "Lin", Role: domain.RoleAgent, TeamID: "team-9", CreatedAt: time.Now()}
	if err := s.Engine.Repo.InsertAgent(ctx, agent); err != nil {
		t.Fatalf("insert agent: %v", err)
	}
	raw := "ck_" + uuid.NewString()
	key := domain.APIKey{ID: uuid.NewString(), AgentID: agent.ID, KeyHash: repo.HashAPIKey(raw), CreatedAt: time.Now()}
	if err := s.Engine.Repo.InsertAPIKey(ctx, key); err != nil {
		t.Fatalf("insert api key: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, s.URL+"/v0/tasks", nil)
	req.Header.Set("X-Api-Key", raw)
	res, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("api key auth status %d", res.StatusCode)
	}
}

func TestLegacyAgentHeader(t *testing.T) {
	s := newTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, s.URL+"/v0/tasks", nil)
	req.Header.Set("X-Agent-Id", "agent-legacy")
	res, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("legacy header status %d", res.StatusCode)
	}
}
