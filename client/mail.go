package client

import (
	"context"

	"github.com/fieldops/missiond/config"
)

// HTTPMailer talks to the mail delivery provider.
type HTTPMailer struct {
	api *api
}

func NewMailer(cfg config.ServiceConfig) *HTTPMailer {
	return &HTTPMailer{api: newAPI(cfg)}
}

func (c *HTTPMailer) Send(ctx context.Context, msg Message) (*SendResult, error) {
	var result SendResult
	if err := c.api.postJSON(ctx, "/v1/mail/send", msg, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
