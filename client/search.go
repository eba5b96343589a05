package client

import (
	"context"

	"github.com/fieldops/missiond/config"
)

// HTTPSearcher talks to the prospect search provider.
type HTTPSearcher struct {
	api *api
}

func NewSearcher(cfg config.ServiceConfig) *HTTPSearcher {
	return &HTTPSearcher{api: newAPI(cfg)}
}

func (c *HTTPSearcher) Search(ctx context.Context, filters SearchFilters, limit int) ([]Person, error) {
	req := struct {
		Filters SearchFilters `json:"filters"`
		Limit   int           `json:"limit"`
	}{Filters: filters, Limit: limit}

	var resp struct {
		People []Person `json:"people"`
	}
	if err := c.api.postJSON(ctx, "/v1/people/search", req, &resp); err != nil {
		return nil, err
	}
	return resp.People, nil
}
