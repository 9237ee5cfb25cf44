package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/leadscout/api/internal/logger"
	"github.com/leadscout/api/internal/model"
)

// runEnvelope is the serialized fast-store form of a run: the external
// snapshot plus the internal stage outputs needed to reload the record.
type runEnvelope struct {
	model.RunSnapshot
	StageOutputs map[string]any `json:"stage_outputs,omitempty"`
}

// RunStore persists run records with a two-tier read path: every write goes
// to the fast store, reads fall back to the durable store when the fast key
// has expired or the fast store is unreachable. Mutations for the same run
// id are serialized through a per-id lock, so concurrent stage workers in
// this process cannot lose each other's counter updates.
type RunStore struct {
	fast    FastStore
	durable DurableStore
	log     *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRunStore builds a RunStore over the given tiers
func NewRunStore(fast FastStore, durable DurableStore, log *logger.Logger) *RunStore {
	return &RunStore{
		fast:    fast,
		durable: durable,
		log:     log.Component("run_store"),
		locks:   map[string]*sync.Mutex{},
	}
}

func (s *RunStore) lock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *RunStore) dropLock(id string) {
	s.mu.Lock()
	delete(s.locks, id)
	s.mu.Unlock()
}

// Save writes the run body under run:{id} with the retention TTL and records
// the id in the creation-time-ordered recency index. A fast-store write
// failure is returned to the caller; this store defines no retry.
func (s *RunStore) Save(ctx context.Context, run *model.Run) error {
	run.UpdatedAt = nowFunc()

	data, err := json.Marshal(runEnvelope{
		RunSnapshot:  run.Snapshot(),
		StageOutputs: run.StageOutputs,
	})
	if err != nil {
		return fmt.Errorf("encode run %s: %w", run.ID, err)
	}

	if err := s.fast.Set(ctx, runKey(run.ID), data, RunTTL); err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	if err := s.fast.IndexAdd(ctx, recencyIndexKey, float64(run.CreatedAt.Unix()), run.ID); err != nil {
		return fmt.Errorf("index run %s: %w", run.ID, err)
	}
	return nil
}

// Load reads a run from the fast store, falling back to the durable store on
// a miss or a fast-store failure. Runs hydrated from the durable tier carry
// an empty error log and empty stage progress. A structurally corrupt fast
// payload is an error, not a silent default.
func (s *RunStore) Load(ctx context.Context, id string) (*model.Run, error) {
	data, err := s.fast.Get(ctx, runKey(id))
	switch {
	case err == nil:
		var env runEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decode run %s: %w", id, err)
		}
		return model.RunFromSnapshot(env.RunSnapshot, env.StageOutputs), nil
	case errors.Is(err, ErrCacheMiss):
		// expired or never written, try durable
	default:
		s.log.WithError(err).WithField("run_id", id).Warn("fast store read failed, falling back")
	}

	run, err := s.durable.GetRun(ctx, id)
	if err != nil {
		if !errors.Is(err, model.ErrRunNotFound) {
			s.log.WithError(err).WithField("run_id", id).Warn("durable fallback failed")
		}
		return nil, model.ErrRunNotFound
	}
	return run, nil
}

// ListRecent returns up to limit runs, newest creation first. Index entries
// whose bodies are gone from both tiers are skipped. An empty index falls
// back to a durable query; durable failures degrade to an empty list.
func (s *RunStore) ListRecent(ctx context.Context, limit int) ([]*model.Run, error) {
	if limit <= 0 {
		return []*model.Run{}, nil
	}

	ids, err := s.fast.IndexRevRange(ctx, recencyIndexKey, 0, int64(limit-1))
	if err != nil {
		s.log.WithError(err).Warn("recency index read failed, falling back")
		ids = nil
	}

	if len(ids) > 0 {
		runs := make([]*model.Run, 0, len(ids))
		for _, id := range ids {
			run, err := s.Load(ctx, id)
			if err != nil {
				if !errors.Is(err, model.ErrRunNotFound) {
					s.log.WithError(err).WithField("run_id", id).Warn("skipping unreadable run")
				}
				continue
			}
			runs = append(runs, run)
		}
		return runs, nil
	}

	runs, err := s.durable.ListRecentRuns(ctx, limit)
	if err != nil {
		s.log.WithError(err).Warn("durable list failed, returning empty")
		return []*model.Run{}, nil
	}
	return runs, nil
}

// Delete removes the fast-store body and recency-index entry. Durable rows
// are immutable history and are never touched.
func (s *RunStore) Delete(ctx context.Context, id string) error {
	defer s.dropLock(id)
	if err := s.fast.Del(ctx, runKey(id)); err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if err := s.fast.IndexRem(ctx, recencyIndexKey, id); err != nil {
		return fmt.Errorf("deindex run %s: %w", id, err)
	}
	return nil
}

// mutate serializes a load-modify-save cycle for one run id
func (s *RunStore) mutate(ctx context.Context, id string, fn func(*model.Run)) (*model.Run, error) {
	l := s.lock(id)
	l.Lock()
	defer l.Unlock()

	run, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	fn(run)
	if err := s.Save(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// UpdateStage sets the current stage and applies a typed patch. An empty
// status leaves the run status unchanged.
func (s *RunStore) UpdateStage(ctx context.Context, id, stage string, status model.RunStatus, patch model.StagePatch) (*model.Run, error) {
	return s.mutate(ctx, id, func(r *model.Run) {
		r.ApplyStage(stage, status, patch)
	})
}

// IncrementProgress adds n to one stage counter. Unknown stage names are
// no-ops by design.
func (s *RunStore) IncrementProgress(ctx context.Context, id, stage, counter string, n int) (*model.Run, error) {
	return s.mutate(ctx, id, func(r *model.Run) {
		r.IncrementStageProgress(stage, counter, n)
	})
}

// AddError appends an entry to the run's error log
func (s *RunStore) AddError(ctx context.Context, id, stage, message, profileID string) (*model.Run, error) {
	return s.mutate(ctx, id, func(r *model.Run) {
		r.AddError(stage, message, profileID)
	})
}

// Complete transitions the run to completed
func (s *RunStore) Complete(ctx context.Context, id string) (*model.Run, error) {
	return s.mutate(ctx, id, func(r *model.Run) {
		r.Complete()
	})
}

// Fail transitions the run to failed, logging the reason when non-empty
func (s *RunStore) Fail(ctx context.Context, id, reason string) (*model.Run, error) {
	return s.mutate(ctx, id, func(r *model.Run) {
		r.Fail(reason)
	})
}

// Cancel transitions the run to cancelled
func (s *RunStore) Cancel(ctx context.Context, id string) (*model.Run, error) {
	return s.mutate(ctx, id, func(r *model.Run) {
		r.Cancel()
	})
}
