package model

import "time"

// StartRunRequest is the payload for POST /api/runs
type StartRunRequest struct {
	Platform         string         `json:"platform" validate:"required,oneof=instagram patreon facebook"`
	Filters          map[string]any `json:"filters" validate:"required"`
	BDRAssignment    string         `json:"bdr_assignment"`
	ExpectedProfiles int            `json:"expected_profiles" validate:"omitempty,min=1,max=5000"`
}

// StartRunResponse acknowledges an enqueued run
type StartRunResponse struct {
	RunID         string    `json:"run_id"`
	Status        RunStatus `json:"status"`
	EstimatedCost float64   `json:"estimated_cost"`
	CreatedAt     time.Time `json:"created_at"`
}

// SimilarRequest is the payload for POST /api/similar
type SimilarRequest struct {
	Platform  string         `json:"platform" validate:"required,oneof=instagram patreon facebook"`
	Filters   map[string]any `json:"filters" validate:"required"`
	Threshold *float64       `json:"threshold" validate:"omitempty,gt=0,lte=1"`
	Limit     int            `json:"limit" validate:"omitempty,min=1,max=200"`
}

// CreatePresetRequest is the payload for POST /api/presets
type CreatePresetRequest struct {
	Name     string         `json:"name" validate:"required,min=1,max=120"`
	Platform string         `json:"platform" validate:"required,oneof=instagram patreon facebook"`
	Filters  map[string]any `json:"filters" validate:"required"`
}

// StalenessRequest is the payload for POST /api/filter-staleness
type StalenessRequest struct {
	Platform string         `json:"platform" validate:"required,oneof=instagram patreon facebook"`
	Filters  map[string]any `json:"filters" validate:"required"`
}

// StalenessResponse reports the most recent run of an identical filter set
type StalenessResponse struct {
	Stale       bool    `json:"stale"`
	RunID       string  `json:"run_id,omitempty"`
	DaysAgo     int     `json:"days_ago,omitempty"`
	TotalFound  int     `json:"total_found,omitempty"`
	NewFound    int     `json:"new_found,omitempty"`
	NoveltyRate float64 `json:"novelty_rate,omitempty"`
}

// StatsResponse is the dashboard aggregate over recent runs
type StatsResponse struct {
	TotalRuns         int               `json:"total_runs"`
	ActiveRuns        int               `json:"active_runs"`
	RunsByStatus      map[string]int    `json:"runs_by_status"`
	ProfilesFound     int               `json:"profiles_found"`
	ContactsSynced    int               `json:"contacts_synced"`
	TotalActualCost   float64           `json:"total_actual_cost"`
	TierDistribution  map[string]int    `json:"tier_distribution"`
	LatestRunStatuses map[string]string `json:"latest_run_statuses"`
}
