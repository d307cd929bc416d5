package api

import (
	"context"
	"net/http"
	"net/url"

	"tasktracker/internal/core/domain"
)

func (c *Client) ListTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	path := "/tasks"
	if q := filterQuery(filter); q != "" {
		path += "?" + q
	}

	var out []domain.Task
	if err := c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Task{}
	}
	return out, nil
}

func filterQuery(filter domain.TaskFilter) string {
	params := url.Values{}
	if filter.Status != "" {
		params.Set("status", string(filter.Status))
	}
	if filter.AssignedTo != "" {
		params.Set("assignedTo", filter.AssignedTo)
	}
	return params.Encode()
}

func (c *Client) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	var out domain.Task
	if err := c.Do(ctx, http.MethodGet, resourcePath("tasks", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateTask(ctx context.Context, in domain.TaskInput) (*domain.Task, error) {
	var out domain.Task
	if err := c.Do(ctx, http.MethodPost, "/tasks", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, in domain.TaskInput) (*domain.Task, error) {
	var out domain.Task
	if err := c.Do(ctx, http.MethodPut, resourcePath("tasks", id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchTask sends a partial update. The backend accepts partial bodies on
// PUT, so only the set fields travel.
func (c *Client) PatchTask(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	var out domain.Task
	if err := c.Do(ctx, http.MethodPut, resourcePath("tasks", id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, resourcePath("tasks", id), nil, nil)
}
