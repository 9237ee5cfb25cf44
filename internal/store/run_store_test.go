package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/leadscout/api/internal/logger"
	"github.com/leadscout/api/internal/model"
)

type fakeFast struct {
	mu     sync.Mutex
	keys   map[string][]byte
	index  map[string]float64
	getErr error
	setErr error
	rngErr error
}

func newFakeFast() *fakeFast {
	return &fakeFast{
		keys:  map[string][]byte{},
		index: map[string]float64{},
	}
}

func (f *fakeFast) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[key] = append([]byte(nil), value...)
	return nil
}

func (f *fakeFast) Get(_ context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.keys[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return data, nil
}

func (f *fakeFast) Del(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
	return nil
}

func (f *fakeFast) IndexAdd(_ context.Context, _ string, score float64, member string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index[member] = score
	return nil
}

func (f *fakeFast) IndexRevRange(_ context.Context, _ string, start, stop int64) ([]string, error) {
	if f.rngErr != nil {
		return nil, f.rngErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	members := make([]string, 0, len(f.index))
	for m := range f.index {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		return f.index[members[i]] > f.index[members[j]]
	})
	if start >= int64(len(members)) {
		return nil, nil
	}
	if stop >= int64(len(members)) {
		stop = int64(len(members)) - 1
	}
	return members[start : stop+1], nil
}

func (f *fakeFast) IndexRem(_ context.Context, _ string, member string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.index, member)
	return nil
}

type fakeDurable struct {
	runs map[string]*model.Run
	err  error
}

func newFakeDurable() *fakeDurable {
	return &fakeDurable{runs: map[string]*model.Run{}}
}

func (f *fakeDurable) GetRun(_ context.Context, id string) (*model.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	run, ok := f.runs[id]
	if !ok {
		return nil, model.ErrRunNotFound
	}
	return run, nil
}

func (f *fakeDurable) ListRecentRuns(_ context.Context, limit int) ([]*model.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	runs := make([]*model.Run, 0, len(f.runs))
	for _, r := range f.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func newTestStore(t *testing.T) (*RunStore, *fakeFast, *fakeDurable) {
	t.Helper()
	fast := newFakeFast()
	durable := newFakeDurable()
	return NewRunStore(fast, durable, logger.Discard()), fast, durable
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	run := model.NewRun(model.PlatformInstagram, map[string]any{"bio_phrase": "yoga coach"}, "Dana")
	run.ApplyStage("discovery", model.StatusDiscovering, model.StagePatch{
		ProfilesFound: model.Int(18),
		StageOutput:   map[string]any{"cursor": "p2"},
	})

	if err := s.Save(ctx, run); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := s.Load(ctx, run.ID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.Status != model.StatusDiscovering {
		t.Errorf("status = %s, want discovering", got.Status)
	}
	if got.ProfilesFound != 18 {
		t.Errorf("profiles_found = %d, want 18", got.ProfilesFound)
	}
	if _, ok := got.StageOutputs["discovery"]; !ok {
		t.Error("stage outputs were not round-tripped through the fast store")
	}
}

func TestSaveAndLoad_ErrorLogCappedInFastStore(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	run := model.NewRun(model.PlatformPatreon, nil, "")
	for i := 0; i < model.ErrorLogCap+10; i++ {
		run.AddError("enrichment", "fetch failed", "")
	}
	if err := s.Save(ctx, run); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := s.Load(ctx, run.ID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(got.Errors) != model.ErrorLogCap {
		t.Errorf("reloaded error log = %d entries, want %d", len(got.Errors), model.ErrorLogCap)
	}
}

func TestLoad_FallsBackToDurableOnMiss(t *testing.T) {
	s, _, durable := newTestStore(t)
	ctx := context.Background()

	archived := model.NewRun(model.PlatformFacebook, nil, "")
	archived.Complete()
	archived.Errors = nil
	archived.StageProgress = map[string]*model.StageProgress{}
	durable.runs[archived.ID] = archived

	got, err := s.Load(ctx, archived.ID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if len(got.Errors) != 0 || len(got.StageProgress) != 0 {
		t.Error("durable hydration should carry empty error log and stage progress")
	}
}

func TestLoad_MissingEverywhereIsNotFound(t *testing.T) {
	s, _, _ := newTestStore(t)

	_, err := s.Load(context.Background(), "no-such-run")
	if !errors.Is(err, model.ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestLoad_FastStoreFailureFallsBack(t *testing.T) {
	s, fast, durable := newTestStore(t)
	ctx := context.Background()

	archived := model.NewRun(model.PlatformInstagram, nil, "")
	durable.runs[archived.ID] = archived
	fast.getErr = errors.New("connection refused")

	got, err := s.Load(ctx, archived.ID)
	if err != nil {
		t.Fatalf("expected durable fallback, got %v", err)
	}
	if got.ID != archived.ID {
		t.Errorf("loaded wrong run: %s", got.ID)
	}
}

func TestLoad_DurableFailureIsNotFound(t *testing.T) {
	s, _, durable := newTestStore(t)
	durable.err = errors.New("database locked")

	_, err := s.Load(context.Background(), "some-run")
	if !errors.Is(err, model.ErrRunNotFound) {
		t.Errorf("durable failure should surface as not found, got %v", err)
	}
}

func TestLoad_CorruptPayloadIsAnError(t *testing.T) {
	s, fast, _ := newTestStore(t)
	ctx := context.Background()

	fast.keys[runKey("bad-run")] = []byte("{not json")

	_, err := s.Load(ctx, "bad-run")
	if err == nil || errors.Is(err, model.ErrRunNotFound) {
		t.Errorf("corrupt payload should be a decode error, got %v", err)
	}
}

func TestListRecent_NewestFirstAndSkipsExpired(t *testing.T) {
	s, fast, _ := newTestStore(t)
	ctx := context.Background()

	older := model.NewRun(model.PlatformInstagram, nil, "")
	older.CreatedAt = time.Now().Add(-2 * time.Hour)
	newer := model.NewRun(model.PlatformInstagram, nil, "")
	newer.CreatedAt = time.Now().Add(-1 * time.Hour)
	expired := model.NewRun(model.PlatformInstagram, nil, "")
	expired.CreatedAt = time.Now()

	for _, r := range []*model.Run{older, newer, expired} {
		if err := s.Save(ctx, r); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	// body expired, index entry still present
	delete(fast.keys, runKey(expired.ID))

	runs, err := s.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != newer.ID || runs[1].ID != older.ID {
		t.Errorf("expected newest first: got %s then %s", runs[0].ID, runs[1].ID)
	}
}

func TestListRecent_EmptyIndexFallsBackToDurable(t *testing.T) {
	s, _, durable := newTestStore(t)

	archived := model.NewRun(model.PlatformPatreon, nil, "")
	archived.Complete()
	durable.runs[archived.ID] = archived

	runs, err := s.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != archived.ID {
		t.Errorf("expected the archived run from durable, got %v", runs)
	}
}

func TestListRecent_DurableFailureDegradesToEmpty(t *testing.T) {
	s, _, durable := newTestStore(t)
	durable.err = errors.New("database locked")

	runs, err := s.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("list should not error: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected empty list, got %d runs", len(runs))
	}
}

func TestDelete_RemovesBodyAndIndexEntry(t *testing.T) {
	s, fast, _ := newTestStore(t)
	ctx := context.Background()

	run := model.NewRun(model.PlatformFacebook, nil, "")
	if err := s.Save(ctx, run); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := s.Delete(ctx, run.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, ok := fast.keys[runKey(run.ID)]; ok {
		t.Error("run body still present after delete")
	}
	if _, ok := fast.index[run.ID]; ok {
		t.Error("recency index entry still present after delete")
	}
}

func TestMutations_PersistThroughSave(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	run := model.NewRun(model.PlatformInstagram, nil, "")
	if err := s.Save(ctx, run); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if _, err := s.UpdateStage(ctx, run.ID, "discovery", model.StatusDiscovering, model.StagePatch{
		ProfilesFound: model.Int(7),
	}); err != nil {
		t.Fatalf("update stage failed: %v", err)
	}
	if _, err := s.IncrementProgress(ctx, run.ID, "discovery", "completed", 7); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if _, err := s.AddError(ctx, run.ID, "discovery", "one profile 404", "p-3"); err != nil {
		t.Fatalf("add error failed: %v", err)
	}
	if _, err := s.Complete(ctx, run.ID); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	got, err := s.Load(ctx, run.ID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.ProfilesFound != 7 {
		t.Errorf("profiles_found = %d, want 7", got.ProfilesFound)
	}
	if got.StageProgress["discovery"].Completed != 7 {
		t.Errorf("stage completed = %d, want 7", got.StageProgress["discovery"].Completed)
	}
	if len(got.Errors) != 1 {
		t.Errorf("error log = %d entries, want 1", len(got.Errors))
	}
}

func TestConcurrentIncrements_NoLostUpdates(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	run := model.NewRun(model.PlatformInstagram, nil, "")
	if err := s.Save(ctx, run); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	const workers = 8
	const perWorker = 25
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if _, err := s.IncrementProgress(ctx, run.ID, "enrichment", "completed", 1); err != nil {
					t.Errorf("increment failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	got, err := s.Load(ctx, run.ID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.StageProgress["enrichment"].Completed != workers*perWorker {
		t.Errorf("completed = %d, want %d", got.StageProgress["enrichment"].Completed, workers*perWorker)
	}
}

func TestMutate_MissingRunReturnsNotFound(t *testing.T) {
	s, _, _ := newTestStore(t)

	_, err := s.Complete(context.Background(), "no-such-run")
	if !errors.Is(err, model.ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}
