package api

import (
	"context"
	"net/http"

	"tasktracker/internal/core/domain"
)

func (c *Client) Dashboard(ctx context.Context) (domain.Summary, error) {
	out := domain.Summary{}
	if err := c.Do(ctx, http.MethodGet, "/dashboard", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
