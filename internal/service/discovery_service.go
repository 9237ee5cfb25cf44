package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/leadscout/api/internal/logger"
	"github.com/leadscout/api/internal/model"
	"github.com/leadscout/api/internal/pipeline"
	"github.com/leadscout/api/internal/store"
)

// TaskTypePipelineRun is the asynq task that executes one run
const TaskTypePipelineRun = "pipeline:run"

// DefaultExpectedProfiles sizes cost estimates when the caller gives none
const DefaultExpectedProfiles = 25

// PipelineTaskPayload is the asynq payload for a run execution
type PipelineTaskPayload struct {
	RunID string `json:"run_id"`
}

// DiscoveryService creates runs and hands them to the pipeline queue
type DiscoveryService struct {
	runs        *store.RunStore
	costs       *pipeline.CostConfig
	asynqClient *asynq.Client
	log         *logger.Logger
}

// NewDiscoveryService builds the service over the run store and queue
func NewDiscoveryService(runs *store.RunStore, costs *pipeline.CostConfig, asynqClient *asynq.Client, log *logger.Logger) *DiscoveryService {
	return &DiscoveryService{
		runs:        runs,
		costs:       costs,
		asynqClient: asynqClient,
		log:         log.Component("discovery"),
	}
}

// StartRun creates a queued run, persists it, and enqueues the pipeline
// task. The run id is returned immediately; execution is asynchronous.
func (s *DiscoveryService) StartRun(ctx context.Context, req *model.StartRunRequest) (*model.StartRunResponse, error) {
	run := model.NewRun(req.Platform, req.Filters, req.BDRAssignment)

	expected := req.ExpectedProfiles
	if expected <= 0 {
		expected = DefaultExpectedProfiles
	}
	run.EstimatedCost = s.costs.Estimate(req.Platform, expected)

	if err := s.runs.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}

	payload, err := json.Marshal(PipelineTaskPayload{RunID: run.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}
	_, err = s.asynqClient.Enqueue(asynq.NewTask(TaskTypePipelineRun, payload),
		asynq.Queue("pipeline"),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	s.log.WithField("run_id", run.ID).WithField("platform", run.Platform).Info("run enqueued")

	return &model.StartRunResponse{
		RunID:         run.ID,
		Status:        run.Status,
		EstimatedCost: run.EstimatedCost,
		CreatedAt:     run.CreatedAt,
	}, nil
}

// GetRun returns the external snapshot of one run
func (s *DiscoveryService) GetRun(ctx context.Context, id string) (*model.RunSnapshot, error) {
	run, err := s.runs.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	snap := run.Snapshot()
	return &snap, nil
}

// ListRuns returns snapshots of the most recent runs
func (s *DiscoveryService) ListRuns(ctx context.Context, limit int) ([]model.RunSnapshot, error) {
	runs, err := s.runs.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	snaps := make([]model.RunSnapshot, 0, len(runs))
	for _, run := range runs {
		snaps = append(snaps, run.Snapshot())
	}
	return snaps, nil
}

// DeleteRun removes a run from the fast store; durable history is kept
func (s *DiscoveryService) DeleteRun(ctx context.Context, id string) error {
	return s.runs.Delete(ctx, id)
}

// CancelRun marks a non-terminal run cancelled. The worker observes the
// status between stages and stops.
func (s *DiscoveryService) CancelRun(ctx context.Context, id string) (*model.RunSnapshot, error) {
	run, err := s.runs.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Status.Terminal() {
		return nil, fmt.Errorf("run already finished")
	}
	run, err = s.runs.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	snap := run.Snapshot()
	return &snap, nil
}
