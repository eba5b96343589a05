package client

import (
	"context"

	"github.com/fieldops/missiond/config"
	"github.com/fieldops/missiond/errors"
)

// HTTPEnricher talks to the contact enrichment provider.
type HTTPEnricher struct {
	api *api
}

func NewEnricher(cfg config.ServiceConfig) *HTTPEnricher {
	return &HTTPEnricher{api: newAPI(cfg)}
}

func (c *HTTPEnricher) Enrich(ctx context.Context, inputs []EnrichInput, revealEmail, revealPhone bool) ([]EnrichResult, error) {
	req := struct {
		Inputs      []EnrichInput `json:"inputs"`
		RevealEmail bool          `json:"reveal_email"`
		RevealPhone bool          `json:"reveal_phone"`
	}{Inputs: inputs, RevealEmail: revealEmail, RevealPhone: revealPhone}

	var resp struct {
		Results []struct {
			Email       string `json:"email"`
			Phone       string `json:"phone"`
			LinkedInURL string `json:"linkedin_url"`
			Error       string `json:"error"`
		} `json:"results"`
	}
	if err := c.api.postJSON(ctx, "/v1/people/enrich", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) != len(inputs) {
		return nil, errors.Newf("enrichment returned %d results for %d inputs", len(resp.Results), len(inputs))
	}

	results := make([]EnrichResult, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = EnrichResult{Email: r.Email, Phone: r.Phone, LinkedInURL: r.LinkedInURL}
		if r.Error != "" {
			results[i].Err = errors.New(r.Error)
		}
	}
	return results, nil
}
