package textgen

import (
	"context"
	"errors"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient implements Client using the official openai-go SDK (chat completions).
type OpenAIClient struct {
	baseURL string
	model   string
	timeout time.Duration
}

// NewOpenAIClient creates a chat-completions client. An empty baseURL uses the SDK default.
func NewOpenAIClient(baseURL, model string, timeout time.Duration) *OpenAIClient {
	return &OpenAIClient{baseURL: baseURL, model: model, timeout: timeout}
}

func (o *OpenAIClient) Name() string { return "openai" }

func (o *OpenAIClient) Complete(ctx context.Context, apiKey string, req Request) (out *Completion, err error) {
	start := time.Now()
	defer func() { observe(o.Name(), start, out, err) }()

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(o.timeout),
	}
	if o.baseURL != "" {
		opts = append(opts, option.WithBaseURL(o.baseURL))
	}
	client := openai.NewClient(opts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(modelOr(req.Model, o.model)),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		MaxTokens: openai.Int(int64(req.MaxTokens)),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &UpstreamError{
				Service:    serviceName,
				StatusCode: apiErr.StatusCode,
				Type:       apiErr.Type,
				Message:    apiErr.Message,
				Err:        err,
			}
		}
		return nil, &UpstreamError{Service: serviceName, Message: err.Error(), Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &UpstreamError{Service: serviceName, StatusCode: 200, Message: "empty choices"}
	}

	return &Completion{
		Text:         resp.Choices[0].Message.Content,
		Model:        resp.Model,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

var _ Provider = (*OpenAIClient)(nil)
