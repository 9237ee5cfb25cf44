package similarity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leadscout/api/internal/logger"
	"github.com/leadscout/api/internal/model"
)

type fakeSource struct {
	rows []model.RunRow
	err  error

	gotPlatform string
	gotLimit    int
}

func (f *fakeSource) ListCompleted(_ context.Context, platform string, limit int) ([]model.RunRow, error) {
	f.gotPlatform = platform
	f.gotLimit = limit
	return f.rows, f.err
}

func patreonRow(id string, maxPatrons float64, age time.Duration) model.RunRow {
	return model.RunRow{
		ID:       id,
		Platform: "patreon",
		Filters: model.JSONMap{
			"min_patrons": 0.0,
			"max_patrons": maxPatrons,
		},
		ProfilesFound:  10,
		ContactsSynced: 4,
		CreatedAt:      time.Now().Add(-age),
	}
}

func TestFindSimilar_ThresholdIsInclusive(t *testing.T) {
	// range-only scores: overlap(0..x, 0..100) = x/100, so max_patrons
	// picks the exact similarity value.
	source := &fakeSource{rows: []model.RunRow{
		patreonRow("at-threshold", 70, time.Hour),
		patreonRow("below-threshold", 69, time.Hour),
	}}
	q := NewQuery(source, logger.Discard())

	target := map[string]any{"min_patrons": 0.0, "max_patrons": 100.0}
	matches := q.FindSimilar(context.Background(), "patreon", target, 0.7, 50)

	if len(matches) != 1 {
		t.Fatalf("expected exactly the at-threshold match, got %+v", matches)
	}
	if matches[0].RunID != "at-threshold" {
		t.Errorf("wrong match: %+v", matches[0])
	}
	if matches[0].Similarity != 0.7 {
		t.Errorf("expected similarity 0.7, got %v", matches[0].Similarity)
	}
}

func TestFindSimilar_SortsByScoreKeepingRecencyOnTies(t *testing.T) {
	source := &fakeSource{rows: []model.RunRow{
		patreonRow("newer-tie", 80, 1*time.Hour),
		patreonRow("older-tie", 80, 48*time.Hour),
		patreonRow("best", 100, 72*time.Hour),
	}}
	q := NewQuery(source, logger.Discard())

	target := map[string]any{"min_patrons": 0.0, "max_patrons": 100.0}
	matches := q.FindSimilar(context.Background(), "patreon", target, 0.7, 50)

	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}
	if matches[0].RunID != "best" {
		t.Errorf("highest score should sort first, got %q", matches[0].RunID)
	}
	if matches[1].RunID != "newer-tie" || matches[2].RunID != "older-tie" {
		t.Errorf("ties should keep recency order, got %q then %q", matches[1].RunID, matches[2].RunID)
	}
}

func TestFindSimilar_DefaultsAppliedWhenUnset(t *testing.T) {
	source := &fakeSource{}
	q := NewQuery(source, logger.Discard())

	q.FindSimilar(context.Background(), "instagram", map[string]any{}, 0, 0)

	if source.gotLimit != DefaultCandidateLimit {
		t.Errorf("expected default candidate limit %d, got %d", DefaultCandidateLimit, source.gotLimit)
	}
	if source.gotPlatform != "instagram" {
		t.Errorf("platform not forwarded: %q", source.gotPlatform)
	}
}

func TestFindSimilar_SourceFailureReturnsEmpty(t *testing.T) {
	source := &fakeSource{err: errors.New("connection refused")}
	q := NewQuery(source, logger.Discard())

	matches := q.FindSimilar(context.Background(), "patreon", map[string]any{}, 0.7, 50)

	if matches == nil || len(matches) != 0 {
		t.Errorf("expected empty non-nil result, got %v", matches)
	}
}

func TestFindSimilar_ReportsDaysAgo(t *testing.T) {
	source := &fakeSource{rows: []model.RunRow{
		patreonRow("old-run", 100, 5*24*time.Hour+time.Hour),
	}}
	q := NewQuery(source, logger.Discard())

	target := map[string]any{"min_patrons": 0.0, "max_patrons": 100.0}
	matches := q.FindSimilar(context.Background(), "patreon", target, 0.7, 50)

	if len(matches) != 1 {
		t.Fatalf("expected one match, got %d", len(matches))
	}
	if matches[0].DaysAgo != 5 {
		t.Errorf("expected 5 days ago, got %d", matches[0].DaysAgo)
	}
}
