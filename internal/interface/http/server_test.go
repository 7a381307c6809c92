package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifequest/lifequest-core/internal/infrastructure/scheduler"
	"github.com/lifequest/lifequest-core/internal/interface/http/handlers"
	"github.com/lifequest/lifequest-core/pkg/logger"
)

type stubJob struct {
	name string
	err  error
}

func (j stubJob) Name() string              { return j.name }
func (j stubJob) Description() string       { return "stub " + j.name }
func (j stubJob) Run(context.Context) error { return j.err }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func newTestServer(t *testing.T, deps Dependencies) http.Handler {
	t.Helper()
	deps.Logger = logger.Discard()
	return NewServer(DefaultConfig(), deps).Handler()
}

func do(t *testing.T, h http.Handler, method, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestServer_HealthWithoutChecker(t *testing.T) {
	h := newTestServer(t, Dependencies{Version: "test"})

	rec, env := do(t, h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec, _ = do(t, h, http.MethodGet, "/live")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_ReadyReflectsRequiredChecks(t *testing.T) {
	checker := handlers.NewCompositeHealthChecker("test")
	checker.AddCheck("postgres", func(context.Context) error { return nil })
	checker.AddOptionalCheck("redis", func(context.Context) error { return errors.New("refused") })
	h := newTestServer(t, Dependencies{HealthChecker: checker})

	rec, _ := do(t, h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)

	checker.AddCheck("postgres", func(context.Context) error { return errors.New("down") })
	rec, env := do(t, h, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, env.Success)
}

func TestServer_JobConsole(t *testing.T) {
	s := scheduler.NewScheduler(scheduler.SchedulerConfig{Logger: logger.Discard()})
	require.NoError(t, s.Register(stubJob{name: "deadline_penalty"}, scheduler.NewIntervalSchedule(time.Hour)))
	require.NoError(t, s.Register(stubJob{name: "rebuild_leaderboard", err: errors.New("redis down")}, scheduler.NewIntervalSchedule(time.Hour)))
	h := newTestServer(t, Dependencies{Jobs: s})

	rec, env := do(t, h, http.MethodGet, "/jobs")
	require.Equal(t, http.StatusOK, rec.Code)
	var jobs []scheduler.JobInfo
	require.NoError(t, json.Unmarshal(env.Data, &jobs))
	require.Len(t, jobs, 2)
	assert.Equal(t, "deadline_penalty", jobs[0].Name)

	rec, env = do(t, h, http.MethodPost, "/jobs/deadline_penalty/run")
	require.Equal(t, http.StatusOK, rec.Code)
	var run JobRunResponse
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.True(t, run.Success)

	rec, env = do(t, h, http.MethodPost, "/jobs/rebuild_leaderboard/run")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.False(t, run.Success)
	assert.Equal(t, "redis down", run.Error)

	rec, env = do(t, h, http.MethodPost, "/jobs/missing/run")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "job_not_found", env.Error.Code)
}

func TestServer_JobConsoleDisabled(t *testing.T) {
	h := newTestServer(t, Dependencies{})

	rec, env := do(t, h, http.MethodGet, "/jobs")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "scheduler_disabled", env.Error.Code)
}

func TestServer_RequestIDPropagates(t *testing.T) {
	h := newTestServer(t, Dependencies{})

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:5123"
	assert.Equal(t, "10.0.0.7", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", getClientIP(req))
}
