package graphics

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// JobState is the local lifecycle of one image job.
type JobState string

const (
	StateSubmitted JobState = "submitted"
	StatePolling   JobState = "polling"
	StateComplete  JobState = "complete"
	StateFailed    JobState = "failed"
	StateTimedOut  JobState = "timed_out"
	StateCancelled JobState = "cancelled"
)

// Terminal reports whether the job can make no further progress.
func (s JobState) Terminal() bool {
	switch s {
	case StateComplete, StateFailed, StateTimedOut, StateCancelled:
		return true
	}
	return false
}

// ImageOutcome is the terminal result of one image job.
type ImageOutcome struct {
	SlideIndex int
	JobID      string
	State      JobState
	URL        string
	Polls      int
	Err        error
}

// poller drives a submitted job to a terminal state.
type poller struct {
	service  ImageService
	interval time.Duration
	maxPolls int
}

// run submits job and polls until COMPLETE, FAILED, the poll ceiling, or cancellation.
func (p poller) run(ctx context.Context, apiKey string, job ImageJob) ImageOutcome {
	id, err := p.service.Submit(ctx, apiKey, job)
	if err != nil {
		if ctx.Err() != nil {
			return ImageOutcome{State: StateCancelled, Err: ctx.Err()}
		}
		return ImageOutcome{State: StateFailed, Err: fmt.Errorf("submit: %w", err)}
	}

	out := ImageOutcome{JobID: id, State: StateSubmitted}
	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for out.Polls < p.maxPolls {
		select {
		case <-ctx.Done():
			out.State = StateCancelled
			out.Err = ctx.Err()
			return out
		case <-timer.C:
		}

		out.State = StatePolling
		out.Polls++
		status, err := p.service.Status(ctx, apiKey, id)
		switch {
		case err != nil:
			out.Err = err
		case status.Status == StatusComplete && len(status.ImageURLs) > 0:
			out.State = StateComplete
			out.URL = status.ImageURLs[0]
			out.Err = nil
			return out
		case status.Status == StatusComplete:
			out.State = StateFailed
			out.Err = errors.New("job completed without images")
			return out
		case status.Status == StatusFailed:
			out.State = StateFailed
			out.Err = errors.New("job failed upstream")
			return out
		}
		timer.Reset(p.interval)
	}

	out.State = StateTimedOut
	if out.Err == nil {
		out.Err = fmt.Errorf("no result after %d polls", out.Polls)
	}
	return out
}
