package textgen

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultAnthropicURL = "https://api.anthropic.com"
	anthropicVersion    = "2023-06-01"
	serviceName         = "text-generation"
)

// AnthropicClient calls the Anthropic messages API.
type AnthropicClient struct {
	httpClient *resty.Client
	model      string
}

// NewAnthropicClient creates a Resty-backed messages client. model is used when a
// request names none.
func NewAnthropicClient(baseURL, model string, timeout time.Duration) *AnthropicClient {
	if baseURL == "" {
		baseURL = defaultAnthropicURL
	}
	return &AnthropicClient{
		model: model,
		httpClient: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Content-Type", "application/json").
			SetHeader("anthropic-version", anthropicVersion).
			SetTimeout(timeout),
	}
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *AnthropicClient) Name() string { return "anthropic" }

// Complete sends one system+user turn and returns the concatenated text blocks.
func (c *AnthropicClient) Complete(ctx context.Context, apiKey string, req Request) (out *Completion, err error) {
	start := time.Now()
	defer func() { observe(c.Name(), start, out, err) }()

	var result messagesResponse
	var apiErr errorResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("x-api-key", apiKey).
		SetBody(messagesRequest{
			Model:     modelOr(req.Model, c.model),
			MaxTokens: req.MaxTokens,
			System:    req.System,
			Messages:  []message{{Role: "user", Content: req.User}},
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/v1/messages")
	if err != nil {
		return nil, &UpstreamError{Service: serviceName, Message: err.Error(), Err: err}
	}

	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return nil, &UpstreamError{
			Service:    serviceName,
			StatusCode: resp.StatusCode(),
			Type:       apiErr.Error.Type,
			Message:    msg,
		}
	}

	var text strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &Completion{
		Text:         text.String(),
		Model:        result.Model,
		InputTokens:  result.Usage.InputTokens,
		OutputTokens: result.Usage.OutputTokens,
	}, nil
}

var _ Provider = (*AnthropicClient)(nil)
