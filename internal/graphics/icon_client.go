package graphics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// IconRequest is the icon-generation request body.
type IconRequest struct {
	Prompt string `json:"prompt"`
	Style  string `json:"style"`
	Color  string `json:"color"`
	Format string `json:"format"`
}

// IconResult is the icon-generation response body.
type IconResult struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

// IconService generates one icon per call.
type IconService interface {
	Generate(ctx context.Context, apiKey string, req IconRequest) (*IconResult, error)
}

// IconClient calls a single-step icon-generation endpoint.
type IconClient struct {
	httpClient *resty.Client
	endpoint   string
}

// NewIconClient creates a Resty-backed icon client posting to endpoint.
func NewIconClient(endpoint string, timeout time.Duration) *IconClient {
	return &IconClient{
		httpClient: resty.New().
			SetHeader("Content-Type", "application/json").
			SetTimeout(timeout),
		endpoint: endpoint,
	}
}

func (c *IconClient) Generate(ctx context.Context, apiKey string, req IconRequest) (*IconResult, error) {
	var out IconResult
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(apiKey).
		SetBody(req).
		SetResult(&out).
		Post(c.endpoint)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("icon service returned %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if out.URL == "" {
		return nil, fmt.Errorf("icon service returned no url")
	}
	return &out, nil
}

var _ IconService = (*IconClient)(nil)
