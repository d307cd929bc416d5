package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"tasktracker/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginAndMe(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req domain.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice", req.Username)
		writeJSON(w, http.StatusOK, map[string]any{
			"token": "t1",
			"user":  map[string]any{"id": "u1", "username": "alice", "role": "admin"},
		})
	})
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer t1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "u1", "username": "alice", "role": "admin"})
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	res, err := c.Login(ctx, domain.LoginRequest{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "t1", res.Token)
	assert.Equal(t, domain.RoleAdmin, res.User.Role)

	// login does not install the credential by itself
	_, err = c.Me(ctx)
	require.Error(t, err)

	c.SetCredential(res.Token)
	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", me.ID)
}

func TestListTasks_FilterQuery(t *testing.T) {
	var query string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_, _ = io.WriteString(w, `[{"_id":"t1","title":"Write docs","status":"pending","assignedTo":{"_id":"e1","name":"Bob"}},
			{"_id":"t2","title":"Fix bug","status":"completed","assignedTo":"e2"}]`)
	}))

	tasks, err := c.ListTasks(context.Background(), domain.TaskFilter{Status: domain.TaskPending, AssignedTo: "u 1"})
	require.NoError(t, err)
	assert.Equal(t, "assignedTo=u+1&status=pending", query)
	require.Len(t, tasks, 2)
	assert.Equal(t, "e1", tasks[0].AssignedTo.ID)
	assert.Equal(t, "Bob", tasks[0].AssignedTo.Name)
	assert.Equal(t, "e2", tasks[1].AssignedTo.ID)
}

func TestTaskWriteEndpoints(t *testing.T) {
	type call struct{ method, path, body string }
	var calls []call
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		calls = append(calls, call{r.Method, r.URL.Path, string(b)})
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"_id": "t1", "title": "T", "status": "pending", "assignedTo": "e1"})
	}))
	ctx := context.Background()

	_, err := c.CreateTask(ctx, domain.TaskInput{Title: "T", Status: domain.TaskPending, AssignedTo: "e1"})
	require.NoError(t, err)
	_, err = c.UpdateTask(ctx, "t1", domain.TaskInput{Title: "T2", Status: domain.TaskCompleted, AssignedTo: "e1"})
	require.NoError(t, err)
	status := domain.TaskInProgress
	_, err = c.PatchTask(ctx, "t1", domain.TaskPatch{Status: &status})
	require.NoError(t, err)
	require.NoError(t, c.DeleteTask(ctx, "t1"))

	require.Len(t, calls, 4)
	assert.Equal(t, call{"POST", "/api/tasks", `{"title":"T","description":"","status":"pending","assignedTo":"e1"}`}, calls[0])
	assert.Equal(t, "PUT", calls[1].method)
	assert.Equal(t, "/api/tasks/t1", calls[1].path)
	assert.JSONEq(t, `{"status":"in-progress"}`, calls[2].body)
	assert.Equal(t, call{"DELETE", "/api/tasks/t1", ""}, calls[3])
}

func TestEmployeeEndpoints(t *testing.T) {
	var methods []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			if r.URL.Path == "/api/employees" {
				_, _ = io.WriteString(w, `null`)
				return
			}
			writeJSON(w, http.StatusOK, domain.Employee{ID: "e1", Name: "Bob"})
		case http.MethodDelete:
			w.WriteHeader(http.StatusOK)
		default:
			writeJSON(w, http.StatusOK, domain.Employee{ID: "e1", Name: "Bob"})
		}
	}))
	ctx := context.Background()

	list, err := c.ListEmployees(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	e, err := c.GetEmployee(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Bob", e.Name)

	_, err = c.CreateEmployee(ctx, domain.Employee{Name: "Bob"})
	require.NoError(t, err)
	_, err = c.UpdateEmployee(ctx, "e1", domain.Employee{Name: "Bobby"})
	require.NoError(t, err)
	require.NoError(t, c.DeleteEmployee(ctx, "e1"))

	assert.Equal(t, []string{
		"GET /api/employees",
		"GET /api/employees/e1",
		"POST /api/employees",
		"PUT /api/employees/e1",
		"DELETE /api/employees/e1",
	}, methods)
}

func TestDashboard(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"totalEmployees": 3})
	}))

	summary, err := c.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float64(3), summary["totalEmployees"])
}
