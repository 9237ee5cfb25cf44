package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/leadscout/api/internal/model"
)

// FilterHistoryRepository records filter fingerprint yields per run
type FilterHistoryRepository struct {
	db *gorm.DB
}

// NewFilterHistoryRepository creates a history repository bound to db
func NewFilterHistoryRepository(db *gorm.DB) *FilterHistoryRepository {
	return &FilterHistoryRepository{db: db}
}

// Record inserts one history row
func (r *FilterHistoryRepository) Record(ctx context.Context, entry *model.FilterHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// Latest returns the most recent history row for a fingerprint and
// platform, or nil when the fingerprint has never run.
func (r *FilterHistoryRepository) Latest(ctx context.Context, filterHash, platform string) (*model.FilterHistory, error) {
	var entry model.FilterHistory
	err := r.db.WithContext(ctx).
		Where("filter_hash = ? AND platform = ?", filterHash, platform).
		Order("ran_at DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}
