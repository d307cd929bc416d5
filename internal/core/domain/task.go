package domain

import (
	"bytes"
	"encoding/json"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in-progress"
	TaskCompleted  TaskStatus = "completed"
)

var TaskStatuses = []TaskStatus{TaskPending, TaskInProgress, TaskCompleted}

func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// AssigneeRef is either a bare employee id or a populated employee object
// on the wire. It always marshals back as the bare id.
type AssigneeRef struct {
	ID   string
	Name string
}

func (a AssigneeRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.ID)
}

func (a *AssigneeRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = AssigneeRef{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*a = AssigneeRef{ID: id}
		return nil
	}
	var populated struct {
		ID   string `json:"_id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &populated); err != nil {
		return err
	}
	*a = AssigneeRef{ID: populated.ID, Name: populated.Name}
	return nil
}

type Task struct {
	ID          string      `json:"_id,omitempty"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Status      TaskStatus  `json:"status"`
	AssignedTo  AssigneeRef `json:"assignedTo"`
	Image       string      `json:"image,omitempty"`
}

// TaskInput is the create/update body for /tasks.
type TaskInput struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status" validate:"oneof=pending in-progress completed"`
	AssignedTo  string     `json:"assignedTo" validate:"required"`
}

// TaskPatch carries a partial update such as a status change.
type TaskPatch struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Status      *TaskStatus `json:"status,omitempty" validate:"omitempty,oneof=pending in-progress completed"`
	AssignedTo  *string     `json:"assignedTo,omitempty"`
}

type TaskFilter struct {
	Status     TaskStatus
	AssignedTo string
}
