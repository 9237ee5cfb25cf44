package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/leadscout/api/internal/model"
)

// PresetRepository handles saved filter presets
type PresetRepository struct {
	db *gorm.DB
}

// NewPresetRepository creates a preset repository bound to db
func NewPresetRepository(db *gorm.DB) *PresetRepository {
	return &PresetRepository{db: db}
}

// List returns presets, optionally filtered by platform, newest first
func (r *PresetRepository) List(ctx context.Context, platform string) ([]model.Preset, error) {
	var presets []model.Preset
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if platform != "" {
		q = q.Where("platform = ?", platform)
	}
	if err := q.Find(&presets).Error; err != nil {
		return nil, err
	}
	return presets, nil
}

// Create inserts a new preset
func (r *PresetRepository) Create(ctx context.Context, preset *model.Preset) error {
	return r.db.WithContext(ctx).Create(preset).Error
}

// Delete removes a preset by id
func (r *PresetRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Preset{}, id).Error
}
