// Package orchestration runs asynchronous deck generation jobs, on Temporal when it
// is reachable and in-process otherwise.
package orchestration

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/deckforge/api/internal/models"
)

// Dial connects to Temporal. The client is a heavyweight object; create it once per process.
func Dial(hostPort, namespace string) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  hostPort,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("dial temporal %s: %w", hostPort, err)
	}
	return c, nil
}

// NewWorker registers the workflow and activities on taskQueue.
func NewWorker(c client.Client, taskQueue string, acts *Activities) worker.Worker {
	w := worker.New(c, taskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: 8,
	})
	w.RegisterWorkflowWithOptions(GenerateDeckWorkflow, workflow.RegisterOptions{Name: WorkflowName})
	w.RegisterActivityWithOptions(acts.PrepareContext, activity.RegisterOptions{Name: ActivityPrepareContext})
	w.RegisterActivityWithOptions(acts.ContentStrategy, activity.RegisterOptions{Name: ActivityContentStrategy})
	w.RegisterActivityWithOptions(acts.VisualDesign, activity.RegisterOptions{Name: ActivityVisualDesign})
	w.RegisterActivityWithOptions(acts.Graphics, activity.RegisterOptions{Name: ActivityGraphics})
	w.RegisterActivityWithOptions(acts.AssembleAndSave, activity.RegisterOptions{Name: ActivityAssemble})
	w.RegisterActivityWithOptions(acts.SinglePhaseAndSave, activity.RegisterOptions{Name: ActivitySinglePhase})
	w.RegisterActivityWithOptions(acts.FailJob, activity.RegisterOptions{Name: ActivityFail})
	return w
}

// TemporalRunner starts one workflow per job.
type TemporalRunner struct {
	client    client.Client
	taskQueue string
}

// NewTemporalRunner creates a runner on taskQueue.
func NewTemporalRunner(c client.Client, taskQueue string) *TemporalRunner {
	return &TemporalRunner{client: c, taskQueue: taskQueue}
}

func (r *TemporalRunner) Name() string { return "temporal" }

// Start begins GenerateDeckWorkflow for the job.
func (r *TemporalRunner) Start(ctx context.Context, in models.GenerationInput) error {
	_, err := r.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        WorkflowID(in),
		TaskQueue: r.taskQueue,
	}, WorkflowName, in)
	if err != nil {
		return fmt.Errorf("start generation workflow: %w", err)
	}
	return nil
}

// Cancel requests cancellation of the job's workflow.
func (r *TemporalRunner) Cancel(ctx context.Context, jobID uuid.UUID) error {
	return r.client.CancelWorkflow(ctx, WorkflowID(models.GenerationInput{JobID: jobID}), "")
}
