package graphics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/deckforge/api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeImages struct {
	mu       sync.Mutex
	status   func(jobID string, poll int) (*RemoteStatus, error)
	submits  []string
	polls    map[string]int
	active   atomic.Int32
	maxSeen  atomic.Int32
	submitFn func(prompt string) error
}

func newFakeImages(status func(jobID string, poll int) (*RemoteStatus, error)) *fakeImages {
	return &fakeImages{status: status, polls: map[string]int{}}
}

func (f *fakeImages) Submit(ctx context.Context, apiKey string, job ImageJob) (string, error) {
	if f.submitFn != nil {
		if err := f.submitFn(job.Prompt); err != nil {
			return "", err
		}
	}
	n := f.active.Add(1)
	if n > f.maxSeen.Load() {
		f.maxSeen.Store(n)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, job.Prompt)
	return fmt.Sprintf("job-%d", len(f.submits)), nil
}

func (f *fakeImages) Status(ctx context.Context, apiKey, jobID string) (*RemoteStatus, error) {
	f.mu.Lock()
	f.polls[jobID]++
	poll := f.polls[jobID]
	f.mu.Unlock()

	st, err := f.status(jobID, poll)
	if err == nil && st.Status != StatusPending {
		f.active.Add(-1)
	}
	return st, err
}

func fastOptions() Options {
	o := DefaultOptions()
	o.PollInterval = time.Millisecond
	o.MaxPolls = 5
	o.RequestDelay = time.Millisecond
	return o
}

func requests(prompts ...string) []Request {
	var reqs []Request
	for i, p := range prompts {
		reqs = append(reqs, Request{SlideIndex: i, Type: models.GraphicImage, Prompt: p})
	}
	return reqs
}

func TestGenerateImagesAlwaysComplete(t *testing.T) {
	images := newFakeImages(func(jobID string, poll int) (*RemoteStatus, error) {
		if poll < 2 {
			return &RemoteStatus{Status: StatusPending}, nil
		}
		return &RemoteStatus{Status: StatusComplete, ImageURLs: []string{"https://img/" + jobID, "https://img/second"}}, nil
	})
	g := NewGenerator(images, nil, fastOptions(), zap.NewNop())

	res := g.Generate(context.Background(), Credentials{ImageAPIKey: "k"}, requests("rocket", "", "launch pad"))

	assert.Equal(t, map[int]string{0: "https://img/job-1", 2: "https://img/job-2"}, res.Images)
	assert.Equal(t, 2, res.ImagesRequested)
	assert.Equal(t, []string{"rocket", "launch pad"}, images.submits)
	assert.Equal(t, int32(1), images.maxSeen.Load(), "image jobs must run sequentially")
	for _, o := range res.Outcomes {
		assert.Equal(t, StateComplete, o.State)
		assert.Equal(t, 2, o.Polls)
	}
}

func TestGenerateImagesAlwaysFailed(t *testing.T) {
	images := newFakeImages(func(jobID string, poll int) (*RemoteStatus, error) {
		return &RemoteStatus{Status: StatusFailed}, nil
	})
	g := NewGenerator(images, nil, fastOptions(), zap.NewNop())

	res := g.Generate(context.Background(), Credentials{ImageAPIKey: "k"}, requests("a", "b"))

	assert.Empty(t, res.Images)
	require.Len(t, res.Outcomes, 2)
	for _, o := range res.Outcomes {
		assert.Equal(t, StateFailed, o.State)
		assert.Equal(t, 1, o.Polls)
	}
}

func TestGenerateImagesTimesOut(t *testing.T) {
	images := newFakeImages(func(jobID string, poll int) (*RemoteStatus, error) {
		return &RemoteStatus{Status: StatusPending}, nil
	})
	g := NewGenerator(images, nil, fastOptions(), zap.NewNop())

	res := g.Generate(context.Background(), Credentials{ImageAPIKey: "k"}, requests("slow"))

	assert.Empty(t, res.Images)
	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, StateTimedOut, res.Outcomes[0].State)
	assert.Equal(t, 5, res.Outcomes[0].Polls)
	assert.Equal(t, 5, images.polls["job-1"])
}

func TestGenerateImagesCompleteWithoutImagesIsFailure(t *testing.T) {
	images := newFakeImages(func(jobID string, poll int) (*RemoteStatus, error) {
		return &RemoteStatus{Status: StatusComplete}, nil
	})
	res := NewGenerator(images, nil, fastOptions(), zap.NewNop()).
		Generate(context.Background(), Credentials{ImageAPIKey: "k"}, requests("x"))

	assert.Empty(t, res.Images)
	assert.Equal(t, StateFailed, res.Outcomes[0].State)
}

func TestGenerateImagesPollErrorsKeepPolling(t *testing.T) {
	images := newFakeImages(func(jobID string, poll int) (*RemoteStatus, error) {
		if poll == 1 {
			return nil, errors.New("connection reset")
		}
		return &RemoteStatus{Status: StatusComplete, ImageURLs: []string{"https://img/ok"}}, nil
	})
	res := NewGenerator(images, nil, fastOptions(), zap.NewNop()).
		Generate(context.Background(), Credentials{ImageAPIKey: "k"}, requests("x"))

	assert.Equal(t, map[int]string{0: "https://img/ok"}, res.Images)
	assert.NoError(t, res.Outcomes[0].Err)
}

func TestGenerateImagesSubmitFailureIsPerSlide(t *testing.T) {
	images := newFakeImages(func(jobID string, poll int) (*RemoteStatus, error) {
		return &RemoteStatus{Status: StatusComplete, ImageURLs: []string{"https://img/" + jobID}}, nil
	})
	images.submitFn = func(prompt string) error {
		if prompt == "bad" {
			return errors.New("422 prompt rejected")
		}
		return nil
	}
	res := NewGenerator(images, nil, fastOptions(), zap.NewNop()).
		Generate(context.Background(), Credentials{ImageAPIKey: "k"}, requests("bad", "good"))

	assert.Equal(t, map[int]string{1: "https://img/job-1"}, res.Images)
	assert.Equal(t, StateFailed, res.Outcomes[0].State)
}

func TestGenerateImagesSpacesSubmissionsAfterPreviousJob(t *testing.T) {
	var mu sync.Mutex
	var finished time.Time
	var submitted []time.Time
	images := newFakeImages(func(jobID string, poll int) (*RemoteStatus, error) {
		if poll < 3 {
			return &RemoteStatus{Status: StatusPending}, nil
		}
		if jobID == "job-1" {
			mu.Lock()
			finished = time.Now()
			mu.Unlock()
		}
		return &RemoteStatus{Status: StatusComplete, ImageURLs: []string{"https://img/" + jobID}}, nil
	})
	images.submitFn = func(prompt string) error {
		mu.Lock()
		defer mu.Unlock()
		submitted = append(submitted, time.Now())
		return nil
	}
	opts := fastOptions()
	opts.PollInterval = 20 * time.Millisecond
	opts.RequestDelay = 30 * time.Millisecond

	res := NewGenerator(images, nil, opts, zap.NewNop()).
		Generate(context.Background(), Credentials{ImageAPIKey: "k"}, requests("a", "b"))

	require.Len(t, res.Images, 2)
	require.Len(t, submitted, 2)
	// polling the first job takes longer than the delay, which must still apply
	assert.Greater(t, finished.Sub(submitted[0]), opts.RequestDelay)
	assert.GreaterOrEqual(t, submitted[1].Sub(submitted[0]), finished.Sub(submitted[0])+opts.RequestDelay)
}

func TestGenerateImagesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	images := newFakeImages(func(jobID string, poll int) (*RemoteStatus, error) {
		cancel()
		return &RemoteStatus{Status: StatusPending}, nil
	})
	opts := fastOptions()
	opts.PollInterval = 20 * time.Millisecond

	res := NewGenerator(images, nil, opts, zap.NewNop()).
		Generate(ctx, Credentials{ImageAPIKey: "k"}, requests("a", "b"))

	assert.Empty(t, res.Images)
	require.Len(t, res.Outcomes, 2)
	assert.Equal(t, StateCancelled, res.Outcomes[0].State)
	assert.Equal(t, StateCancelled, res.Outcomes[1].State)
	assert.Len(t, images.submits, 1)
}

func TestGenerateSkipsWithoutCredentials(t *testing.T) {
	images := newFakeImages(func(jobID string, poll int) (*RemoteStatus, error) {
		t.Fatal("image service must not be called without a key")
		return nil, nil
	})
	icons := &fakeIcons{}
	reqs := append(requests("a"), Request{SlideIndex: 3, Type: models.GraphicIcon, Prompt: "rocket icon"})

	res := NewGenerator(images, icons, fastOptions(), zap.NewNop()).Generate(context.Background(), Credentials{}, reqs)

	assert.Empty(t, res.Images)
	assert.Empty(t, res.Icons)
	assert.Equal(t, 1, res.ImagesRequested)
	assert.Equal(t, 1, res.IconsRequested)
	assert.Empty(t, images.submits)
	assert.Zero(t, icons.calls.Load())
}

type fakeIcons struct {
	calls atomic.Int32
}

func (f *fakeIcons) Generate(ctx context.Context, apiKey string, req IconRequest) (*IconResult, error) {
	f.calls.Add(1)
	if strings.Contains(req.Prompt, "broken") {
		return nil, errors.New("icon service returned 500")
	}
	return &IconResult{URL: "https://icons/" + strings.ReplaceAll(req.Prompt, " ", "-") + "." + req.Format, ID: req.Prompt}, nil
}

func TestGenerateIconsPartialFailure(t *testing.T) {
	icons := &fakeIcons{}
	reqs := []Request{
		{SlideIndex: 1, Type: models.GraphicIcon, Prompt: "shield"},
		{SlideIndex: 2, Type: models.GraphicIcon, Prompt: "broken gear"},
		{SlideIndex: 4, Type: models.GraphicIcon, Prompt: "chart up"},
	}

	res := NewGenerator(nil, icons, fastOptions(), zap.NewNop()).
		Generate(context.Background(), Credentials{IconAPIKey: "k"}, reqs)

	assert.Equal(t, map[int]string{
		1: "https://icons/shield.svg",
		4: "https://icons/chart-up.svg",
	}, res.Icons)
	assert.Equal(t, int32(3), icons.calls.Load())
}

func TestImageClientProtocol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/generations":
			var body submitRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "a red rocket", body.Prompt)
			assert.Equal(t, 1024, body.Width)
			assert.Equal(t, 576, body.Height)
			assert.Equal(t, "model-1", body.ModelID)
			_, _ = w.Write([]byte(`{"sdGenerationJob":{"generationId":"gen-42"}}`))
		case r.Method == http.MethodGet && r.URL.Path == "/generations/gen-42":
			_, _ = w.Write([]byte(`{"generations_by_pk":{"status":"COMPLETE","generated_images":[{"url":"https://cdn/1.png"},{"url":"https://cdn/2.png"}]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewImageClient(srv.URL+"/", "model-1", 5*time.Second)
	id, err := c.Submit(context.Background(), "secret", ImageJob{Prompt: "a red rocket", Width: 1024, Height: 576})
	require.NoError(t, err)
	assert.Equal(t, "gen-42", id)

	st, err := c.Status(context.Background(), "secret", id)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, st.Status)
	assert.Equal(t, []string{"https://cdn/1.png", "https://cdn/2.png"}, st.ImageURLs)
}

func TestIconClientProtocol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body IconRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Prompt == "fail" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"url":"https://icons/` + body.Color[1:] + `.` + body.Format + `","id":"i-1"}`))
	}))
	defer srv.Close()

	c := NewIconClient(srv.URL+"/v1/icons", 5*time.Second)
	out, err := c.Generate(context.Background(), "k", IconRequest{Prompt: "rocket", Style: "flat", Color: "#e4572e", Format: "svg"})
	require.NoError(t, err)
	assert.Equal(t, &IconResult{URL: "https://icons/e4572e.svg", ID: "i-1"}, out)

	_, err = c.Generate(context.Background(), "k", IconRequest{Prompt: "fail", Color: "#000000"})
	assert.Error(t, err)
}

func TestJobStateTerminal(t *testing.T) {
	assert.False(t, StateSubmitted.Terminal())
	assert.False(t, StatePolling.Terminal())
	for _, s := range []JobState{StateComplete, StateFailed, StateTimedOut, StateCancelled} {
		assert.True(t, s.Terminal(), s)
	}
}
