package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/issuetracker/internal/issue"
	"github.com/fyrsmithlabs/issuetracker/internal/logging"
	"github.com/fyrsmithlabs/issuetracker/internal/telemetry"
)

// stepClock advances one second on every read.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type testServer struct {
	*Server
	logs *logging.TestLogger
}

func setupTestServer(t *testing.T, cfg *Config) *testServer {
	t.Helper()

	clock := &stepClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	logs := logging.NewTestLogger()

	server, err := NewServer(issue.NewStore(issue.WithClock(clock.Now)), logs.Logger, cfg)
	require.NoError(t, err)
	return &testServer{Server: server, logs: logs}
}

func (s *testServer) do(t *testing.T, method, target, contentType, body string) (int, []byte) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec.Code, rec.Body.Bytes()
}

func (s *testServer) doJSON(t *testing.T, method, target string, body any) (int, map[string]any) {
	t.Helper()

	payload := ""
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = string(raw)
	}
	code, raw := s.do(t, method, target, echo.MIMEApplicationJSON, payload)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	return code, out
}

func (s *testServer) list(t *testing.T, target string) []map[string]any {
	t.Helper()

	code, raw := s.do(t, http.MethodGet, target, "", "")
	require.Equal(t, http.StatusOK, code)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	return out
}

func (s *testServer) create(t *testing.T, project string, fields map[string]any) map[string]any {
	t.Helper()

	code, out := s.doJSON(t, http.MethodPost, "/api/issues/"+project, fields)
	require.Equal(t, http.StatusOK, code)
	require.NotContains(t, out, "error")
	return out
}

func fullIssue() map[string]any {
	return map[string]any{
		"issue_title": "Fix error in posting data",
		"issue_text":  "When we post data it has an error.",
		"created_by":  "Joe",
		"assigned_to": "Joe",
		"status_text": "In QA",
	}
}

func TestNewServer(t *testing.T) {
	store := issue.NewStore()

	t.Run("creates server with valid config", func(t *testing.T) {
		cfg := &Config{Host: "localhost", Port: 3000}
		server, err := NewServer(store, logging.NewNop(), cfg)
		require.NoError(t, err)
		assert.NotNil(t, server.Echo())
		assert.Equal(t, cfg, server.config)
		assert.Equal(t, 10*time.Second, server.config.ShutdownTimeout)
	})

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		server, err := NewServer(store, logging.NewNop(), nil)
		require.NoError(t, err)
		assert.Equal(t, "localhost", server.config.Host)
		assert.Equal(t, 3000, server.config.Port)
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(store, nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("returns error when store is nil", func(t *testing.T) {
		_, err := NewServer(nil, logging.NewNop(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "store cannot be nil")
	})
}

func TestHandleHealth(t *testing.T) {
	server := setupTestServer(t, nil)

	code, out := server.doJSON(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", out["status"])
}

func TestHandleCreate(t *testing.T) {
	t.Run("every field", func(t *testing.T) {
		server := setupTestServer(t, nil)
		fields := fullIssue()

		out := server.create(t, "apitest", fields)

		for k, v := range fields {
			assert.Equal(t, v, out[k], k)
		}
		assert.NotEmpty(t, out["_id"])
		assert.Equal(t, true, out["open"])
		assert.NotEmpty(t, out["created_on"])
		assert.Equal(t, out["created_on"], out["updated_on"])
	})

	t.Run("required fields only", func(t *testing.T) {
		server := setupTestServer(t, nil)

		out := server.create(t, "apitest", map[string]any{
			"issue_title": "Title",
			"issue_text":  "Text",
			"created_by":  "Ann",
		})
		assert.Equal(t, "", out["assigned_to"])
		assert.Equal(t, "", out["status_text"])
	})

	t.Run("missing required field", func(t *testing.T) {
		server := setupTestServer(t, nil)

		code, out := server.doJSON(t, http.MethodPost, "/api/issues/apitest", map[string]any{
			"issue_title": "Title",
			"created_by":  "Ann",
		})
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, map[string]any{"error": "required field(s) missing"}, out)
		assert.Empty(t, server.list(t, "/api/issues/apitest"))
	})

	t.Run("form body", func(t *testing.T) {
		server := setupTestServer(t, nil)

		form := url.Values{
			"issue_title": {"From form"},
			"issue_text":  {"Posted by a browser"},
			"created_by":  {"Bea"},
			"assigned_to": {""},
		}
		code, raw := server.do(t, http.MethodPost, "/api/issues/web", echo.MIMEApplicationForm, form.Encode())
		require.Equal(t, http.StatusOK, code)

		var out map[string]any
		require.NoError(t, json.Unmarshal(raw, &out))
		assert.Equal(t, "From form", out["issue_title"])
		assert.Equal(t, "Bea", out["created_by"])
		assert.Equal(t, "", out["assigned_to"])
	})

	t.Run("invalid JSON", func(t *testing.T) {
		server := setupTestServer(t, nil)

		code, raw := server.do(t, http.MethodPost, "/api/issues/apitest", echo.MIMEApplicationJSON, "{not json")
		assert.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, `{"error":"invalid request body"}`, string(raw))
	})
}

func TestHandleList(t *testing.T) {
	server := setupTestServer(t, nil)

	first := server.create(t, "apitest", map[string]any{"issue_title": "a", "issue_text": "t", "created_by": "Alice", "assigned_to": "Bob"})
	second := server.create(t, "apitest", map[string]any{"issue_title": "b", "issue_text": "t", "created_by": "Alice", "assigned_to": "Eve"})
	third := server.create(t, "apitest", map[string]any{"issue_title": "c", "issue_text": "t", "created_by": "Carol"})
	server.create(t, "other", fullIssue())

	t.Run("no filters keeps creation order", func(t *testing.T) {
		got := server.list(t, "/api/issues/apitest")
		require.Len(t, got, 3)
		assert.Equal(t, first["_id"], got[0]["_id"])
		assert.Equal(t, second["_id"], got[1]["_id"])
		assert.Equal(t, third["_id"], got[2]["_id"])
	})

	t.Run("one filter", func(t *testing.T) {
		got := server.list(t, "/api/issues/apitest?created_by=Alice")
		require.Len(t, got, 2)
		for _, iss := range got {
			assert.Equal(t, "Alice", iss["created_by"])
		}
	})

	t.Run("two filters", func(t *testing.T) {
		got := server.list(t, "/api/issues/apitest?created_by=Alice&assigned_to=Eve")
		require.Len(t, got, 1)
		assert.Equal(t, second["_id"], got[0]["_id"])
	})

	t.Run("open filter is boolean", func(t *testing.T) {
		assert.Len(t, server.list(t, "/api/issues/apitest?open=true"), 3)
		assert.Empty(t, server.list(t, "/api/issues/apitest?open=false"))
		assert.Empty(t, server.list(t, "/api/issues/apitest?open=maybe"))
	})

	t.Run("unknown field matches nothing", func(t *testing.T) {
		assert.Empty(t, server.list(t, "/api/issues/apitest?priority=high"))
	})

	t.Run("unknown project is empty array", func(t *testing.T) {
		code, raw := server.do(t, http.MethodGet, "/api/issues/nobody", "", "")
		assert.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, `[]`, string(raw))
	})
}

func TestHandleUpdate(t *testing.T) {
	t.Run("one field", func(t *testing.T) {
		server := setupTestServer(t, nil)
		created := server.create(t, "apitest", fullIssue())
		id := created["_id"].(string)

		code, out := server.doJSON(t, http.MethodPut, "/api/issues/apitest", map[string]any{
			"_id":         id,
			"status_text": "Done",
		})
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, map[string]any{"result": "successfully updated", "_id": id}, out)

		got := server.list(t, "/api/issues/apitest?_id="+id)
		require.Len(t, got, 1)
		assert.Equal(t, "Done", got[0]["status_text"])

		createdOn, err := time.Parse(time.RFC3339Nano, got[0]["created_on"].(string))
		require.NoError(t, err)
		updatedOn, err := time.Parse(time.RFC3339Nano, got[0]["updated_on"].(string))
		require.NoError(t, err)
		assert.True(t, updatedOn.After(createdOn))
	})

	t.Run("multiple fields and close", func(t *testing.T) {
		server := setupTestServer(t, nil)
		id := server.create(t, "apitest", fullIssue())["_id"].(string)

		_, out := server.doJSON(t, http.MethodPut, "/api/issues/apitest", map[string]any{
			"_id":         id,
			"issue_title": "New title",
			"assigned_to": "Ann",
			"open":        false,
		})
		assert.Equal(t, "successfully updated", out["result"])

		got := server.list(t, "/api/issues/apitest?open=false")
		require.Len(t, got, 1)
		assert.Equal(t, "New title", got[0]["issue_title"])
		assert.Equal(t, "Ann", got[0]["assigned_to"])
	})

	t.Run("nested fieldsToUpdate", func(t *testing.T) {
		server := setupTestServer(t, nil)
		id := server.create(t, "apitest", fullIssue())["_id"].(string)

		_, out := server.doJSON(t, http.MethodPut, "/api/issues/apitest", map[string]any{
			"_id":            id,
			"fieldsToUpdate": map[string]any{"issue_text": "nested text", "priority": "high"},
		})
		assert.Equal(t, "successfully updated", out["result"])

		got := server.list(t, "/api/issues/apitest?priority=high")
		require.Len(t, got, 1)
		assert.Equal(t, "nested text", got[0]["issue_text"])
	})

	t.Run("form with blank inputs", func(t *testing.T) {
		server := setupTestServer(t, nil)
		id := server.create(t, "apitest", fullIssue())["_id"].(string)

		form := url.Values{"_id": {id}, "issue_title": {""}, "status_text": {"Triaged"}, "open": {"false"}}
		code, raw := server.do(t, http.MethodPut, "/api/issues/apitest", echo.MIMEApplicationForm, form.Encode())
		require.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, `{"result":"successfully updated","_id":"`+id+`"}`, string(raw))

		got := server.list(t, "/api/issues/apitest")
		require.Len(t, got, 1)
		assert.Equal(t, "Fix error in posting data", got[0]["issue_title"])
		assert.Equal(t, "Triaged", got[0]["status_text"])
		assert.Equal(t, false, got[0]["open"])

		blank := url.Values{"_id": {id}, "assigned_to": {""}, "status_text": {""}}
		_, raw = server.do(t, http.MethodPut, "/api/issues/apitest", echo.MIMEApplicationForm, blank.Encode())
		assert.JSONEq(t, `{"error":"no update field(s) sent","_id":"`+id+`"}`, string(raw))
	})

	t.Run("json empty string clears field", func(t *testing.T) {
		server := setupTestServer(t, nil)
		id := server.create(t, "apitest", fullIssue())["_id"].(string)

		_, out := server.doJSON(t, http.MethodPut, "/api/issues/apitest", map[string]any{
			"_id":         id,
			"assigned_to": "",
			"status_text": "",
		})
		assert.Equal(t, map[string]any{"result": "successfully updated", "_id": id}, out)

		got := server.list(t, "/api/issues/apitest")
		require.Len(t, got, 1)
		assert.Equal(t, "", got[0]["assigned_to"])
		assert.Equal(t, "", got[0]["status_text"])
		assert.Equal(t, "Fix error in posting data", got[0]["issue_title"])
	})

	t.Run("errors", func(t *testing.T) {
		server := setupTestServer(t, nil)
		id := server.create(t, "apitest", fullIssue())["_id"].(string)

		_, out := server.doJSON(t, http.MethodPut, "/api/issues/apitest", map[string]any{"issue_text": "x"})
		assert.Equal(t, map[string]any{"error": "missing _id"}, out)

		_, out = server.doJSON(t, http.MethodPut, "/api/issues/apitest", map[string]any{"_id": id})
		assert.Equal(t, map[string]any{"error": "no update field(s) sent", "_id": id}, out)

		_, out = server.doJSON(t, http.MethodPut, "/api/issues/apitest", map[string]any{"_id": id, "issue_text": ""})
		assert.Equal(t, map[string]any{"error": "required field(s) missing", "_id": id}, out)

		_, out = server.doJSON(t, http.MethodPut, "/api/issues/apitest", map[string]any{"_id": "nope", "issue_text": "x"})
		assert.Equal(t, map[string]any{"error": "could not update", "_id": "nope"}, out)

		_, out = server.doJSON(t, http.MethodPut, "/api/issues/apitest", map[string]any{"_id": id, "open": "sometimes"})
		assert.Equal(t, id, out["_id"])
		assert.Contains(t, out["error"], "invalid value for open")

		server.logs.AssertLogged(t, zapcore.DebugLevel, "issue operation rejected")
	})
}

func TestHandleDelete(t *testing.T) {
	server := setupTestServer(t, nil)
	keep := server.create(t, "apitest", fullIssue())["_id"].(string)
	id := server.create(t, "apitest", fullIssue())["_id"].(string)

	code, out := server.doJSON(t, http.MethodDelete, "/api/issues/apitest", map[string]any{"_id": id})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"result": "successfully deleted", "_id": id}, out)

	got := server.list(t, "/api/issues/apitest")
	require.Len(t, got, 1)
	assert.Equal(t, keep, got[0]["_id"])

	_, out = server.doJSON(t, http.MethodDelete, "/api/issues/apitest", map[string]any{"_id": id})
	assert.Equal(t, map[string]any{"error": "could not delete", "_id": id}, out)

	_, out = server.doJSON(t, http.MethodDelete, "/api/issues/apitest", map[string]any{})
	assert.Equal(t, map[string]any{"error": "missing _id"}, out)

	code, raw := server.do(t, http.MethodDelete, "/api/issues/apitest?_id="+keep, "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"result":"successfully deleted","_id":"`+keep+`"}`, string(raw))
	assert.Empty(t, server.list(t, "/api/issues/apitest"))

	t.Run("form body", func(t *testing.T) {
		server := setupTestServer(t, nil)
		keep := server.create(t, "apitest", fullIssue())["_id"].(string)
		id := server.create(t, "apitest", fullIssue())["_id"].(string)

		code, raw := server.do(t, http.MethodDelete, "/api/issues/apitest", echo.MIMEApplicationForm, url.Values{"_id": {id}}.Encode())
		assert.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, `{"result":"successfully deleted","_id":"`+id+`"}`, string(raw))

		got := server.list(t, "/api/issues/apitest")
		require.Len(t, got, 1)
		assert.Equal(t, keep, got[0]["_id"])

		_, raw = server.do(t, http.MethodDelete, "/api/issues/apitest", echo.MIMEApplicationForm, "_id=%zz")
		assert.JSONEq(t, `{"error":"invalid request body"}`, string(raw))
	})
}

func TestHandleProjects(t *testing.T) {
	server := setupTestServer(t, nil)
	server.create(t, "beta", fullIssue())
	server.create(t, "alpha", fullIssue())
	id := server.create(t, "alpha", fullIssue())["_id"].(string)
	server.doJSON(t, http.MethodPut, "/api/issues/alpha", map[string]any{"_id": id, "open": false})

	code, raw := server.do(t, http.MethodGet, "/api/projects", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[
		{"name":"alpha","issues":2,"open":1},
		{"name":"beta","issues":1,"open":1}
	]`, string(raw))
}

func TestMetricsEndpoint(t *testing.T) {
	server := setupTestServer(t, nil)
	server.create(t, "apitest", fullIssue())

	code, raw := server.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, code)

	body := string(raw)
	assert.Contains(t, body, `issuetracker_project_issues{project="apitest"} 1`)
	assert.Contains(t, body, `issuetracker_project_open_issues{project="apitest"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestRequestLogging(t *testing.T) {
	server := setupTestServer(t, nil)
	server.create(t, "apitest", fullIssue())

	server.logs.AssertLogged(t, zapcore.InfoLevel, "http request")
	server.logs.AssertField(t, "http request", "project", "apitest")
	server.logs.AssertField(t, "http request", "status", int64(http.StatusOK))

	entries := server.logs.FilterMessage("http request").All()
	require.NotEmpty(t, entries)
	assert.NotEmpty(t, entries[0].ContextMap()["request.id"])
}

func TestRateLimit(t *testing.T) {
	server := setupTestServer(t, &Config{Host: "localhost", Port: 3000, RateLimit: 1, RateBurst: 1})

	code, _ := server.do(t, http.MethodGet, "/api/issues/apitest", "", "")
	assert.Equal(t, http.StatusOK, code)

	code, raw := server.do(t, http.MethodGet, "/api/issues/apitest", "", "")
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, string(raw))

	code, _ = server.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, code, "health is never limited")
}

func TestServer_StartAndShutdown(t *testing.T) {
	server := setupTestServer(t, &Config{Host: "127.0.0.1", Port: 0, ShutdownTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Start(ctx) }()

	require.Eventually(t, func() bool {
		return server.Echo().ListenerAddr() != nil
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + server.Echo().ListenerAddr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestHandlers_Spans(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	server := setupTestServer(t, nil)
	server.tracer = tt.Tracer(tracerName)

	code, created := server.doJSON(t, http.MethodPost, "/api/issues/apitest", map[string]any{
		"issue_title": "t", "issue_text": "x", "created_by": "joe",
	})
	require.Equal(t, http.StatusOK, code)

	_, _ = server.doJSON(t, http.MethodPut, "/api/issues/apitest", map[string]any{"_id": "nope", "open": "false"})

	tt.AssertSpanAttribute(t, "issue.create", "project", "apitest")
	tt.AssertSpanAttribute(t, "issue.create", "issue.id", created["_id"])
	tt.AssertSpanAttribute(t, "issue.update", "outcome", "not_found")
}
