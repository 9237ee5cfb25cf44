package handler

import (
	"testing"
	"time"

	"github.com/leadscout/api/internal/model"
)

func TestStalenessFrom_LowNoveltyIsStaleRegardlessOfAge(t *testing.T) {
	entry := &model.FilterHistory{
		RunID:       "run-1",
		TotalFound:  40,
		NewFound:    2,
		NoveltyRate: 0.05,
		RanAt:       time.Now().Add(-30 * 24 * time.Hour),
	}

	resp := stalenessFrom(entry)

	if !resp.Stale {
		t.Error("a mined-out filter set should be stale even after 30 days")
	}
	if resp.DaysAgo != 30 {
		t.Errorf("days_ago = %d, want 30", resp.DaysAgo)
	}
	if resp.NewFound != 2 || resp.TotalFound != 40 {
		t.Errorf("yield not carried through: new=%d total=%d", resp.NewFound, resp.TotalFound)
	}
}

func TestStalenessFrom_HighNoveltyRecentRunIsFresh(t *testing.T) {
	entry := &model.FilterHistory{
		RunID:       "run-2",
		TotalFound:  40,
		NewFound:    35,
		NoveltyRate: 0.875,
		RanAt:       time.Now().Add(-24 * time.Hour),
	}

	resp := stalenessFrom(entry)

	if resp.Stale {
		t.Error("a high-novelty filter set is not stale, even run yesterday")
	}
	if resp.DaysAgo != 1 {
		t.Errorf("days_ago = %d, want 1", resp.DaysAgo)
	}
}

func TestStalenessFrom_FloorIsExclusive(t *testing.T) {
	entry := &model.FilterHistory{
		RunID:       "run-3",
		TotalFound:  10,
		NewFound:    2,
		NoveltyRate: 0.20,
		RanAt:       time.Now(),
	}

	if stalenessFrom(entry).Stale {
		t.Error("novelty rate exactly at the floor should not be stale")
	}
}
