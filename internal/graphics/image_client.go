package graphics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Remote job statuses reported by the image service
const (
	StatusPending  = "PENDING"
	StatusComplete = "COMPLETE"
	StatusFailed   = "FAILED"
)

// ImageJob is a generation request for one image.
type ImageJob struct {
	Prompt string
	Width  int
	Height int
}

// RemoteStatus is one poll result.
type RemoteStatus struct {
	Status    string
	ImageURLs []string
}

// ImageService is the two-step asynchronous image-generation protocol.
type ImageService interface {
	Submit(ctx context.Context, apiKey string, job ImageJob) (string, error)
	Status(ctx context.Context, apiKey, jobID string) (*RemoteStatus, error)
}

// ImageClient calls a Leonardo-style generations API.
type ImageClient struct {
	httpClient *resty.Client
	modelID    string
}

// NewImageClient creates a Resty-backed image client.
func NewImageClient(baseURL, modelID string, timeout time.Duration) *ImageClient {
	return &ImageClient{
		httpClient: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json").
			SetTimeout(timeout),
		modelID: modelID,
	}
}

type submitRequest struct {
	Prompt         string  `json:"prompt"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	NumImages      int     `json:"num_images"`
	ModelID        string  `json:"modelId,omitempty"`
	GuidanceScale  float64 `json:"guidance_scale"`
	PromptMagic    bool    `json:"promptMagic"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
}

type submitResponse struct {
	SDGenerationJob struct {
		GenerationID string `json:"generationId"`
	} `json:"sdGenerationJob"`
}

type statusResponse struct {
	GenerationsByPK struct {
		Status          string `json:"status"`
		GeneratedImages []struct {
			URL string `json:"url"`
		} `json:"generated_images"`
	} `json:"generations_by_pk"`
}

// Submit starts a generation job and returns its identifier.
func (c *ImageClient) Submit(ctx context.Context, apiKey string, job ImageJob) (string, error) {
	var out submitResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(apiKey).
		SetBody(submitRequest{
			Prompt:         job.Prompt,
			Width:          job.Width,
			Height:         job.Height,
			NumImages:      1,
			ModelID:        c.modelID,
			GuidanceScale:  7,
			NegativePrompt: "text, watermark, letters, blurry",
		}).
		SetResult(&out).
		Post("/generations")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("image service returned %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if out.SDGenerationJob.GenerationID == "" {
		return "", fmt.Errorf("image service returned no generation id")
	}
	return out.SDGenerationJob.GenerationID, nil
}

// Status fetches the current state of a job.
func (c *ImageClient) Status(ctx context.Context, apiKey, jobID string) (*RemoteStatus, error) {
	var out statusResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(apiKey).
		SetPathParam("id", jobID).
		SetResult(&out).
		Get("/generations/{id}")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("image status returned %d", resp.StatusCode())
	}

	status := &RemoteStatus{Status: strings.ToUpper(out.GenerationsByPK.Status)}
	for _, img := range out.GenerationsByPK.GeneratedImages {
		if img.URL != "" {
			status.ImageURLs = append(status.ImageURLs, img.URL)
		}
	}
	return status, nil
}

var _ ImageService = (*ImageClient)(nil)
