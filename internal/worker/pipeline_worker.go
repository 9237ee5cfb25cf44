package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/leadscout/api/internal/logger"
	"github.com/leadscout/api/internal/model"
	"github.com/leadscout/api/internal/pipeline"
	"github.com/leadscout/api/internal/service"
	"github.com/leadscout/api/internal/similarity"
	"github.com/leadscout/api/internal/store"
	"github.com/leadscout/api/internal/websocket"
)

// runArchiver writes the compacted durable row for a finalized run
type runArchiver interface {
	SaveSnapshot(ctx context.Context, run *model.Run) error
}

// historyRecorder appends a filter-history yield entry
type historyRecorder interface {
	Record(ctx context.Context, entry *model.FilterHistory) error
}

// stageStatus maps each stage key to the run status while it executes
var stageStatus = map[string]model.RunStatus{
	"discovery":  model.StatusDiscovering,
	"pre_screen": model.StatusPreScreening,
	"enrichment": model.StatusEnriching,
	"analysis":   model.StatusAnalyzing,
	"scoring":    model.StatusScoring,
	"crm_sync":   model.StatusSyncing,
}

// PipelineWorker executes runs stage by stage. Stage work is simulated;
// the real adapters live behind collaborator services and are swapped in
// at deployment.
type PipelineWorker struct {
	runs    *store.RunStore
	repo    runArchiver
	history historyRecorder
	costs   *pipeline.CostConfig
	hub     *websocket.Hub
	log     *logger.Logger
}

// NewPipelineWorker wires the worker's collaborators
func NewPipelineWorker(runs *store.RunStore, repo runArchiver, history historyRecorder, costs *pipeline.CostConfig, hub *websocket.Hub, log *logger.Logger) *PipelineWorker {
	return &PipelineWorker{
		runs:    runs,
		repo:    repo,
		history: history,
		costs:   costs,
		hub:     hub,
		log:     log.Component("pipeline_worker"),
	}
}

// ProcessTask runs the six pipeline stages for one run
func (w *PipelineWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload service.PipelineTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	run, err := w.runs.Load(ctx, payload.RunID)
	if err != nil {
		return fmt.Errorf("load run %s: %w", payload.RunID, err)
	}

	w.log.WithField("run_id", run.ID).WithField("platform", run.Platform).Info("pipeline started")

	found := expectedProfiles(run.Filters)
	cost := 0.0

	for _, stage := range model.PipelineStages {
		// a cancel between stages stops the pipeline; any other terminal
		// state means a retry of an already-settled task, which must not
		// reanimate the run
		current, err := w.runs.Load(ctx, run.ID)
		if err != nil {
			return err
		}
		if current.Status.Terminal() {
			if current.Status == model.StatusCancelled {
				w.finalize(ctx, current)
				w.log.WithField("run_id", run.ID).Info("pipeline cancelled")
			} else {
				w.log.WithField("run_id", run.ID).WithField("status", string(current.Status)).Warn("run already terminal, skipping task")
			}
			return nil
		}

		run, err = w.runStage(ctx, current, stage, found, &cost)
		if err != nil {
			failed, ferr := w.runs.Fail(ctx, current.ID, err.Error())
			if ferr != nil {
				w.log.WithError(ferr).WithField("run_id", current.ID).Error("failed to mark run failed")
				return err
			}
			w.finalize(ctx, failed)
			w.hub.BroadcastError(failed.ID, err.Error())
			return fmt.Errorf("stage %s: %v: %w", stage, err, asynq.SkipRetry)
		}

		w.hub.BroadcastProgress(run.ID, run.Snapshot())
	}

	summary := fmt.Sprintf("Found %d profiles, enriched %d, synced %d contacts (%d duplicates skipped)",
		run.ProfilesFound, run.ProfilesEnriched, run.ContactsSynced, run.DuplicatesSkipped)
	run, err = w.runs.UpdateStage(ctx, run.ID, run.CurrentStage, "", model.StagePatch{
		Summary:    model.String(summary),
		ActualCost: model.Float(cost),
	})
	if err != nil {
		return err
	}

	run, err = w.runs.Complete(ctx, run.ID)
	if err != nil {
		return err
	}

	w.finalize(ctx, run)
	w.hub.BroadcastComplete(run.ID, run.Snapshot())
	w.log.WithField("run_id", run.ID).Info("pipeline completed")
	return nil
}

// runStage executes one stage's counters and patch against the run store
func (w *PipelineWorker) runStage(ctx context.Context, run *model.Run, stage string, found int, cost *float64) (*model.Run, error) {
	id := run.ID
	updated, err := w.runs.UpdateStage(ctx, id, stage, stageStatus[stage], model.StagePatch{})
	if err != nil {
		return nil, err
	}

	input := stageInput(updated, stage, found)
	if _, err := w.runs.IncrementProgress(ctx, id, stage, "total", input); err != nil {
		return nil, err
	}

	processed, skipped := simulateStage(stage, input)
	if _, err := w.runs.IncrementProgress(ctx, id, stage, "completed", processed); err != nil {
		return nil, err
	}
	if failed := input - processed - skipped; failed > 0 {
		if _, err := w.runs.IncrementProgress(ctx, id, stage, "failed", failed); err != nil {
			return nil, err
		}
	}

	*cost += w.costs.Rate(run.Platform, stage) * float64(input)

	patch := stagePatch(stage, processed, skipped)
	updated, err = w.runs.UpdateStage(ctx, id, stage, "", patch)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// finalize writes the compacted durable row and the filter-history entry.
// These are best-effort: the fast store already has the terminal state.
func (w *PipelineWorker) finalize(ctx context.Context, run *model.Run) {
	if err := w.repo.SaveSnapshot(ctx, run); err != nil {
		w.log.WithError(err).WithField("run_id", run.ID).Error("durable snapshot write failed")
	}

	newFound := run.ProfilesFound - run.DuplicatesSkipped
	if newFound < 0 {
		newFound = 0
	}
	novelty := 0.0
	if run.ProfilesFound > 0 {
		novelty = float64(newFound) / float64(run.ProfilesFound)
	}
	entry := &model.FilterHistory{
		FilterHash:  similarity.Fingerprint(run.Filters),
		Platform:    run.Platform,
		RunID:       run.ID,
		TotalFound:  run.ProfilesFound,
		NewFound:    newFound,
		NoveltyRate: novelty,
		RanAt:       run.UpdatedAt,
	}
	if err := w.history.Record(ctx, entry); err != nil {
		w.log.WithError(err).WithField("run_id", run.ID).Error("filter history write failed")
	}
}

// expectedProfiles sizes the simulated pipeline from the filter document
func expectedProfiles(filters map[string]any) int {
	if limit, ok := filters["limit"].(float64); ok && limit > 0 {
		return int(limit)
	}
	return service.DefaultExpectedProfiles
}

// stageInput is how many items a stage receives from its predecessor
func stageInput(run *model.Run, stage string, found int) int {
	switch stage {
	case "discovery":
		return found
	case "pre_screen":
		return run.ProfilesFound
	case "enrichment":
		return run.ProfilesPreScreened
	case "analysis", "scoring":
		return run.ProfilesEnriched
	case "crm_sync":
		return run.ProfilesScored
	}
	return 0
}

// simulateStage stands in for the real adapters: a fixed pass rate per
// stage, with pre_screen also skipping duplicates.
func simulateStage(stage string, input int) (processed, skipped int) {
	switch stage {
	case "pre_screen":
		skipped = input / 10
		processed = input - skipped - input/20
	case "enrichment":
		processed = input - input/20
	default:
		processed = input
	}
	if processed < 0 {
		processed = 0
	}
	return processed, skipped
}

// stagePatch maps a stage's yield onto the run's counters
func stagePatch(stage string, processed, skipped int) model.StagePatch {
	switch stage {
	case "discovery":
		return model.StagePatch{ProfilesFound: model.Int(processed)}
	case "pre_screen":
		return model.StagePatch{
			ProfilesPreScreened: model.Int(processed),
			DuplicatesSkipped:   model.Int(skipped),
		}
	case "enrichment":
		return model.StagePatch{ProfilesEnriched: model.Int(processed)}
	case "analysis":
		return model.StagePatch{StageOutput: map[string]any{"analyzed": processed}}
	case "scoring":
		return model.StagePatch{
			ProfilesScored:   model.Int(processed),
			TierDistribution: tierSplit(processed),
		}
	case "crm_sync":
		return model.StagePatch{ContactsSynced: model.Int(processed)}
	}
	return model.StagePatch{}
}

// tierSplit buckets scored profiles into the four review tiers
func tierSplit(scored int) map[string]int {
	tiers := map[string]int{
		"auto_enroll":              scored / 10,
		"high_priority_review":     scored / 4,
		"standard_priority_review": scored / 2,
	}
	rest := scored - tiers["auto_enroll"] - tiers["high_priority_review"] - tiers["standard_priority_review"]
	tiers["low_priority_review"] = rest
	return tiers
}
