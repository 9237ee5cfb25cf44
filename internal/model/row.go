package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONMap stores an arbitrary JSON object in a text column
type JSONMap map[string]any

// Value implements driver.Valuer
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("failed to scan JSONMap")
		}
		b = []byte(s)
	}
	return json.Unmarshal(b, m)
}

// JSONIntMap stores a string-to-int JSON object in a text column
type JSONIntMap map[string]int

// Value implements driver.Valuer
func (m JSONIntMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *JSONIntMap) Scan(value any) error {
	if value == nil {
		*m = JSONIntMap{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("failed to scan JSONIntMap")
		}
		b = []byte(s)
	}
	return json.Unmarshal(b, m)
}

// RunRow is the compacted durable record of a run. It is written once when a
// run reaches a terminal state and never updated afterwards. Transient
// per-stage detail and the error log are not carried here; only the fast
// store has those.
type RunRow struct {
	ID                  string     `gorm:"type:text;primaryKey" json:"id"`
	Platform            string     `gorm:"type:text;not null;index:idx_runs_platform" json:"platform"`
	Status              string     `gorm:"type:text;not null;default:queued;index:idx_runs_status" json:"status"`
	CurrentStage        string     `gorm:"type:text;default:''" json:"current_stage"`
	Filters             JSONMap    `gorm:"type:text" json:"filters"`
	BDRAssignment       string     `gorm:"column:bdr_assignment;type:text;default:''" json:"bdr_assignment"`
	ProfilesFound       int        `gorm:"default:0" json:"profiles_found"`
	ProfilesPreScreened int        `gorm:"default:0" json:"profiles_pre_screened"`
	ProfilesEnriched    int        `gorm:"default:0" json:"profiles_enriched"`
	ProfilesScored      int        `gorm:"default:0" json:"profiles_scored"`
	ContactsSynced      int        `gorm:"default:0" json:"contacts_synced"`
	DuplicatesSkipped   int        `gorm:"default:0" json:"duplicates_skipped"`
	TierDistribution    JSONIntMap `gorm:"type:text" json:"tier_distribution"`
	ErrorCount          int        `gorm:"default:0" json:"error_count"`
	Summary             *string    `gorm:"type:text" json:"summary,omitempty"`
	EstimatedCost       *float64   `json:"estimated_cost,omitempty"`
	ActualCost          *float64   `json:"actual_cost,omitempty"`
	StageOutputs        JSONMap    `gorm:"type:text" json:"-"`
	CreatedAt           time.Time  `gorm:"index:idx_runs_created" json:"created_at"`
	FinishedAt          *time.Time `json:"finished_at,omitempty"`
}

// TableName returns the database table name for RunRow
func (RunRow) TableName() string {
	return "runs"
}

// Preset is a saved discovery filter set for quick reuse
type Preset struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	Platform  string    `gorm:"type:text;not null" json:"platform"`
	Filters   JSONMap   `gorm:"type:text;not null" json:"filters"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Preset
func (Preset) TableName() string {
	return "presets"
}

// FilterHistory records one run's yield for a filter fingerprint, used for
// staleness detection.
type FilterHistory struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	FilterHash  string    `gorm:"type:text;not null;index:idx_filter_history_hash" json:"filter_hash"`
	Platform    string    `gorm:"type:text;not null" json:"platform"`
	RunID       string    `gorm:"type:text;not null" json:"run_id"`
	TotalFound  int       `gorm:"default:0" json:"total_found"`
	NewFound    int       `gorm:"default:0" json:"new_found"`
	NoveltyRate float64   `gorm:"default:0" json:"novelty_rate"`
	RanAt       time.Time `json:"ran_at"`
}

// TableName returns the database table name for FilterHistory
func (FilterHistory) TableName() string {
	return "filter_history"
}
