package client

import (
	"context"
	"encoding/json"

	"github.com/fieldops/missiond/config"
)

// HTTPResearcher talks to the deep research provider.
type HTTPResearcher struct {
	api *api
}

func NewResearcher(cfg config.ServiceConfig) *HTTPResearcher {
	return &HTTPResearcher{api: newAPI(cfg)}
}

func (c *HTTPResearcher) Research(ctx context.Context, person Person, companyProfile string) (*Report, error) {
	req := struct {
		Person         Person          `json:"person"`
		CompanyProfile json.RawMessage `json:"company_profile"`
	}{Person: person, CompanyProfile: json.RawMessage(companyProfile)}
	if companyProfile == "" {
		req.CompanyProfile = json.RawMessage("{}")
	}

	var report Report
	if err := c.api.postJSON(ctx, "/v1/research/cross-analysis", req, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
