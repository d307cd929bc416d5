package services

import (
	"strings"

	"tasktracker/internal/core/domain"
)

type View string

const (
	ViewLoading   View = "loading"
	ViewHome      View = "home"
	ViewAbout     View = "about"
	ViewLogin     View = "login"
	ViewRegister  View = "register"
	ViewDashboard View = "dashboard"
	ViewEmployees View = "employees"
	ViewTasks     View = "tasks"
	ViewAddTask   View = "add-task"
	ViewEditTask  View = "edit-task"
)

type access int

const (
	accessPublic access = iota
	accessGuest          // unauthenticated only
	accessRegister       // unauthenticated or admin
	accessAuthenticated
	accessAdmin
)

type route struct {
	prefix string // matched exactly, or as "<prefix>/:id" when param is set
	param  bool
	view   View
	access access
}

var routes = []route{
	{prefix: "/", view: ViewHome, access: accessPublic},
	{prefix: "/about", view: ViewAbout, access: accessPublic},
	{prefix: "/login", view: ViewLogin, access: accessGuest},
	{prefix: "/register", view: ViewRegister, access: accessRegister},
	{prefix: "/dashboard", view: ViewDashboard, access: accessAuthenticated},
	{prefix: "/employees", view: ViewEmployees, access: accessAuthenticated},
	{prefix: "/tasks", view: ViewTasks, access: accessAdmin},
	{prefix: "/add-task", view: ViewAddTask, access: accessAdmin},
	{prefix: "/edit-task", param: true, view: ViewEditTask, access: accessAdmin},
}

// Decision is the router's answer for one path. When Allowed is false and
// Redirect is set, the caller should navigate there instead.
type Decision struct {
	View     View              `json:"view"`
	Allowed  bool              `json:"allowed"`
	Redirect string            `json:"redirect,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
}

// Route resolves path against the session. It is advisory UX gating only;
// the server enforces authorization.
func Route(session domain.Session, path string) Decision {
	if session.Loading() {
		return Decision{View: ViewLoading}
	}

	path = normalizePath(path)
	r, params, ok := match(path)
	if !ok {
		return Decision{Redirect: fallback(session)}
	}

	if reachable(session, r.access) {
		return Decision{View: r.view, Allowed: true, Params: params}
	}
	return Decision{View: r.view, Redirect: fallback(session)}
}

// Reachable lists the views the session may open, in route-table order.
func Reachable(session domain.Session) []View {
	if session.Loading() {
		return nil
	}
	views := make([]View, 0, len(routes))
	for _, r := range routes {
		if reachable(session, r.access) {
			views = append(views, r.view)
		}
	}
	return views
}

func reachable(session domain.Session, a access) bool {
	switch a {
	case accessPublic:
		return true
	case accessGuest:
		return !session.Authenticated()
	case accessRegister:
		return !session.Authenticated() || session.IsAdmin()
	case accessAuthenticated:
		return session.Authenticated()
	case accessAdmin:
		return session.IsAdmin()
	}
	return false
}

func fallback(session domain.Session) string {
	if session.Authenticated() {
		return "/dashboard"
	}
	return "/"
}

func match(path string) (route, map[string]string, bool) {
	for _, r := range routes {
		if !r.param {
			if path == r.prefix {
				return r, nil, true
			}
			continue
		}
		rest, ok := strings.CutPrefix(path, r.prefix+"/")
		if ok && rest != "" && !strings.Contains(rest, "/") {
			return r, map[string]string{"id": rest}, true
		}
	}
	return route{}, nil, false
}

func normalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}
