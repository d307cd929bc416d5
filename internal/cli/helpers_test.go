package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"tasktracker/internal/core/domain"

	"github.com/stretchr/testify/require"
)

// fakeAPI is an in-memory tracker backend. Every password is "pw"; the
// account named admin has the admin role.
type fakeAPI struct {
	mu        sync.Mutex
	sessions  map[string]domain.UserProfile
	employees []domain.Employee
	tasks     []domain.Task
	next      int
	updates   chan string
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{
		sessions: map[string]domain.UserProfile{},
		employees: []domain.Employee{
			{ID: "e1", Name: "Ann", Email: "ann@example.com", Status: domain.EmployeeActive},
		},
		updates: make(chan string, 8),
	}
	srv := httptest.NewServer(f.routes())
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeAPI) id(prefix string) string {
	f.next++
	return fmt.Sprintf("%s%d", prefix, 100+f.next)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) issue(username string, role domain.Role) domain.AuthResult {
	profile := domain.UserProfile{ID: "u-" + username, Username: username, Role: role}
	token := "tok-" + username
	f.sessions[token] = profile
	return domain.AuthResult{Token: token, User: profile}
}

func (f *fakeAPI) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		f.mu.Lock()
		_, ok := f.sessions[token]
		f.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid token"})
			return
		}
		next(w, r)
	}
}

func (f *fakeAPI) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req domain.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "pw" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
			return
		}
		role := domain.RoleUser
		if req.Username == "admin" {
			role = domain.RoleAdmin
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, f.issue(req.Username, role))
	})
	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var req domain.RegisterRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusCreated, f.issue(req.Username, req.Role))
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		p, ok := f.sessions[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
		f.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid token"})
			return
		}
		writeJSON(w, http.StatusOK, p)
	})

	mux.HandleFunc("GET /api/dashboard", f.authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]int{"totalEmployees": len(f.employees)})
	}))

	mux.HandleFunc("GET /api/employees", f.authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, f.employees)
	}))
	mux.HandleFunc("POST /api/employees", f.authed(func(w http.ResponseWriter, r *http.Request) {
		var e domain.Employee
		_ = json.NewDecoder(r.Body).Decode(&e)
		f.mu.Lock()
		defer f.mu.Unlock()
		e.ID = f.id("e")
		f.employees = append(f.employees, e)
		writeJSON(w, http.StatusCreated, e)
	}))
	mux.HandleFunc("PUT /api/employees/{id}", f.authed(func(w http.ResponseWriter, r *http.Request) {
		var e domain.Employee
		_ = json.NewDecoder(r.Body).Decode(&e)
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.employees {
			if f.employees[i].ID == r.PathValue("id") {
				e.ID = f.employees[i].ID
				f.employees[i] = e
				writeJSON(w, http.StatusOK, e)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Employee not found"})
	}))
	mux.HandleFunc("DELETE /api/employees/{id}", f.authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := f.employees[:0]
		for _, e := range f.employees {
			if e.ID != r.PathValue("id") {
				out = append(out, e)
			}
		}
		f.employees = out
		writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
	}))

	mux.HandleFunc("GET /api/tasks", f.authed(func(w http.ResponseWriter, r *http.Request) {
		status, assignee := r.URL.Query().Get("status"), r.URL.Query().Get("assignedTo")
		f.mu.Lock()
		defer f.mu.Unlock()
		out := []domain.Task{}
		for _, t := range f.tasks {
			if (status == "" || string(t.Status) == status) && (assignee == "" || t.AssignedTo.ID == assignee) {
				out = append(out, t)
			}
		}
		writeJSON(w, http.StatusOK, out)
	}))
	mux.HandleFunc("GET /api/tasks/{id}", f.authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, t := range f.tasks {
			if t.ID == r.PathValue("id") {
				writeJSON(w, http.StatusOK, t)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Task not found"})
	}))
	mux.HandleFunc("POST /api/tasks", f.authed(func(w http.ResponseWriter, r *http.Request) {
		var in domain.TaskInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		defer f.mu.Unlock()
		t := domain.Task{ID: f.id("t"), Title: in.Title, Description: in.Description, Status: in.Status, AssignedTo: domain.AssigneeRef{ID: in.AssignedTo}}
		f.tasks = append(f.tasks, t)
		writeJSON(w, http.StatusCreated, t)
	}))
	mux.HandleFunc("PUT /api/tasks/{id}", f.authed(func(w http.ResponseWriter, r *http.Request) {
		var fields map[string]string
		_ = json.NewDecoder(r.Body).Decode(&fields)
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.tasks {
			t := &f.tasks[i]
			if t.ID != r.PathValue("id") {
				continue
			}
			for k, v := range fields {
				switch k {
				case "title":
					t.Title = v
				case "description":
					t.Description = v
				case "status":
					t.Status = domain.TaskStatus(v)
				case "assignedTo":
					t.AssignedTo = domain.AssigneeRef{ID: v}
				}
			}
			writeJSON(w, http.StatusOK, t)
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Task not found"})
	}))
	mux.HandleFunc("DELETE /api/tasks/{id}", f.authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := f.tasks[:0]
		for _, t := range f.tasks {
			if t.ID != r.PathValue("id") {
				out = append(out, t)
			}
		}
		f.tasks = out
		writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
	}))

	mux.HandleFunc("GET /api/updates", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		_, ok := f.sessions[r.URL.Query().Get("token")]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		for {
			select {
			case <-r.Context().Done():
				return
			case data := <-f.updates:
				fmt.Fprintf(w, "data: %s\n\n", data)
				w.(http.Flusher).Flush()
			}
		}
	})

	return mux
}

func (f *fakeAPI) taskIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.tasks))
	for _, t := range f.tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

// writeConfig points the client at srv with a file credential store in a
// temp dir. live toggles the live channel.
func writeConfig(t *testing.T, srv *httptest.Server, live bool) (cfgPath, tokenPath string) {
	t.Helper()
	dir := t.TempDir()
	tokenPath = filepath.Join(dir, "token")
	cfgPath = filepath.Join(dir, "config.yaml")
	data := fmt.Sprintf(`
api:
  base_url: %s/api
credentials:
  backend: file
  path: %s
live:
  enabled: %t
  initial_backoff: 10ms
  max_backoff: 50ms
logging:
  level: error
`, srv.URL, tokenPath, live)
	require.NoError(t, os.WriteFile(cfgPath, []byte(data), 0o600))
	return cfgPath, tokenPath
}

// syncBuffer is safe for the concurrent writes of watch.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	return runContext(context.Background(), t, cfgPath, &syncBuffer{}, args...)
}

func runContext(ctx context.Context, t *testing.T, cfgPath string, out *syncBuffer, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	cmd.SetOut(out)
	cmd.SetErr(&syncBuffer{})
	cmd.SetIn(strings.NewReader(""))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}
