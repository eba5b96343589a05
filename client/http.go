package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/fieldops/missiond/config"
	"github.com/fieldops/missiond/errors"
	"github.com/fieldops/missiond/internal/httpclient"
)

// api is the shared JSON-over-HTTP plumbing for all providers. Every request
// goes through a per-provider rate limiter and the SSRF-hardened client.
type api struct {
	baseURL string
	apiKey  string
	client  *httpclient.SaferClient
	limiter *rate.Limiter
}

func newAPI(cfg config.ServiceConfig) *api {
	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	return &api{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  httpclient.New(time.Duration(cfg.TimeoutSeconds) * time.Second),
		limiter: rate.NewLimiter(rate.Limit(perMinute/60.0), 1),
	}
}

// postJSON sends a JSON body to path and decodes the JSON response into out.
// Non-2xx responses become errors carrying the status and a response excerpt.
func (a *api) postJSON(ctx context.Context, path string, body, out any) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter wait failed")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to marshal request body")
	}

	u, err := url.Parse(a.baseURL + path)
	if err != nil {
		return errors.Wrapf(err, "invalid endpoint %s%s", a.baseURL, path)
	}
	if err := a.client.ValidateURL(u); err != nil {
		return errors.Wrap(err, "endpoint rejected")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "request to %s failed", path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Wrapf(err, "failed to read response from %s", path)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt := string(raw)
		if len(excerpt) > 256 {
			excerpt = excerpt[:256]
		}
		return errors.Newf("%s returned %d: %s", path, resp.StatusCode, excerpt)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "failed to decode response from %s", path)
	}
	return nil
}
