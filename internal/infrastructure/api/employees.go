package api

import (
	"context"
	"net/http"

	"tasktracker/internal/core/domain"
)

func (c *Client) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	var out []domain.Employee
	if err := c.Do(ctx, http.MethodGet, "/employees", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Employee{}
	}
	return out, nil
}

func (c *Client) GetEmployee(ctx context.Context, id string) (*domain.Employee, error) {
	var out domain.Employee
	if err := c.Do(ctx, http.MethodGet, resourcePath("employees", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateEmployee(ctx context.Context, e domain.Employee) (*domain.Employee, error) {
	var out domain.Employee
	if err := c.Do(ctx, http.MethodPost, "/employees", e, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateEmployee(ctx context.Context, id string, e domain.Employee) (*domain.Employee, error) {
	var out domain.Employee
	if err := c.Do(ctx, http.MethodPut, resourcePath("employees", id), e, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteEmployee(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, resourcePath("employees", id), nil, nil)
}
