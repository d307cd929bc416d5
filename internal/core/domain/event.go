package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionDeleted:
		return true
	}
	return false
}

const (
	ScopeTasks     = "tasks"
	ScopeEmployees = "employees"
)

type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// UpdateEvent announces that a resource collection changed. It is only a
// trigger to re-fetch; receivers never apply its contents as data.
type UpdateEvent struct {
	Scope  string `json:"scope"`
	Action Action `json:"action"`
	ID     string `json:"id,omitempty"`

	Origin Origin `json:"-"`
}

func (e UpdateEvent) Validate() error {
	if strings.TrimSpace(e.Scope) == "" {
		return fmt.Errorf("update event: scope is required")
	}
	if !e.Action.Valid() {
		return fmt.Errorf("update event: unknown action %q", e.Action)
	}
	return nil
}

// ParseUpdateEvent structurally decodes a pushed payload. Extra fields are
// ignored; the result is marked remote.
func ParseUpdateEvent(data []byte) (UpdateEvent, error) {
	var ev UpdateEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return UpdateEvent{}, fmt.Errorf("decode update event: %w", err)
	}
	if err := ev.Validate(); err != nil {
		return UpdateEvent{}, err
	}
	ev.Origin = OriginRemote
	return ev, nil
}
