package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/leadscout/api/internal/model"
)

// RunRepository handles the compacted durable run rows
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a run repository bound to db
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// SaveSnapshot writes the compacted row for a finalized run. The row
// carries aggregate state only; per-stage detail and the error log stay in
// the fast store for the retention window.
func (r *RunRepository) SaveSnapshot(ctx context.Context, run *model.Run) error {
	now := time.Now()
	row := model.RunRow{
		ID:                  run.ID,
		Platform:            run.Platform,
		Status:              string(run.Status),
		CurrentStage:        run.CurrentStage,
		Filters:             model.JSONMap(run.Filters),
		BDRAssignment:       run.BDRAssignment,
		ProfilesFound:       run.ProfilesFound,
		ProfilesPreScreened: run.ProfilesPreScreened,
		ProfilesEnriched:    run.ProfilesEnriched,
		ProfilesScored:      run.ProfilesScored,
		ContactsSynced:      run.ContactsSynced,
		DuplicatesSkipped:   run.DuplicatesSkipped,
		TierDistribution:    model.JSONIntMap(run.TierDistribution),
		ErrorCount:          len(run.Errors),
		Summary:             &run.Summary,
		EstimatedCost:       &run.EstimatedCost,
		ActualCost:          &run.ActualCost,
		StageOutputs:        model.JSONMap(run.StageOutputs),
		CreatedAt:           run.CreatedAt,
		FinishedAt:          &now,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row).Error
}

// GetRun loads one compacted row and hydrates it into a run record.
// Returns model.ErrRunNotFound when the row is absent.
func (r *RunRepository) GetRun(ctx context.Context, id string) (*model.Run, error) {
	var row model.RunRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrRunNotFound
		}
		return nil, err
	}
	return RunFromRow(row), nil
}

// ListRecentRuns returns hydrated runs ordered by creation time descending
func (r *RunRepository) ListRecentRuns(ctx context.Context, limit int) ([]*model.Run, error) {
	var rows []model.RunRow
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	runs := make([]*model.Run, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, RunFromRow(row))
	}
	return runs, nil
}

// ListCompleted returns raw rows of terminal-successful runs for one
// platform, newest first. The similarity query scores these.
func (r *RunRepository) ListCompleted(ctx context.Context, platform string, limit int) ([]model.RunRow, error) {
	var rows []model.RunRow
	err := r.db.WithContext(ctx).
		Where("platform = ? AND status = ?", platform, string(model.StatusCompleted)).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// RunFromRow hydrates a run record from a durable row. The durable snapshot
// does not carry transient per-stage detail or error history, so those come
// back empty; null columns map to type-appropriate zero values.
func RunFromRow(row model.RunRow) *model.Run {
	updatedAt := row.CreatedAt
	if row.FinishedAt != nil {
		updatedAt = *row.FinishedAt
	}

	filters := map[string]any(row.Filters)
	if filters == nil {
		filters = map[string]any{}
	}
	tiers := map[string]int(row.TierDistribution)
	if tiers == nil {
		tiers = map[string]int{}
	}
	outputs := map[string]any(row.StageOutputs)
	if outputs == nil {
		outputs = map[string]any{}
	}

	return &model.Run{
		ID:                  row.ID,
		Status:              model.RunStatus(row.Status),
		Platform:            row.Platform,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           updatedAt,
		CurrentStage:        row.CurrentStage,
		StageProgress:       map[string]*model.StageProgress{},
		Filters:             filters,
		ProfilesFound:       row.ProfilesFound,
		ProfilesPreScreened: row.ProfilesPreScreened,
		ProfilesEnriched:    row.ProfilesEnriched,
		ProfilesScored:      row.ProfilesScored,
		ContactsSynced:      row.ContactsSynced,
		DuplicatesSkipped:   row.DuplicatesSkipped,
		BDRAssignment:       row.BDRAssignment,
		Errors:              []model.RunError{},
		TierDistribution:    tiers,
		Summary:             strOrEmpty(row.Summary),
		EstimatedCost:       floatOrZero(row.EstimatedCost),
		ActualCost:          floatOrZero(row.ActualCost),
		StageOutputs:        outputs,
	}
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
