package model

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a pipeline run
type RunStatus string

const (
	StatusQueued       RunStatus = "queued"
	StatusDiscovering  RunStatus = "discovering"
	StatusPreScreening RunStatus = "pre_screening"
	StatusEnriching    RunStatus = "enriching"
	StatusAnalyzing    RunStatus = "analyzing"
	StatusScoring      RunStatus = "scoring"
	StatusSyncing      RunStatus = "syncing"
	StatusCompleted    RunStatus = "completed"
	StatusFailed       RunStatus = "failed"
	StatusCancelled    RunStatus = "cancelled"
)

// Terminal reports whether a run in this status will never change again
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Source platforms
const (
	PlatformInstagram = "instagram"
	PlatformPatreon   = "patreon"
	PlatformFacebook  = "facebook"
)

// Platforms lists every supported source platform
var Platforms = []string{PlatformInstagram, PlatformPatreon, PlatformFacebook}

// PipelineStages is the fixed ordered list of stage keys. Every run carries
// a progress entry for each of these from creation.
var PipelineStages = []string{
	"discovery",
	"pre_screen",
	"enrichment",
	"analysis",
	"scoring",
	"crm_sync",
}

// TierKeys are the priority-review buckets for scored profiles
var TierKeys = []string{
	"auto_enroll",
	"high_priority_review",
	"standard_priority_review",
	"low_priority_review",
}

// ErrorLogCap is how many error entries a serialized run keeps. The live
// in-memory record keeps the full history; truncation happens at snapshot
// time, dropping the oldest entries.
const ErrorLogCap = 20

// StageProgress tracks item counters for one pipeline stage
type StageProgress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// RunError is one entry in a run's error log
type RunError struct {
	Stage     string    `json:"stage"`
	Message   string    `json:"message"`
	ProfileID string    `json:"profile_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Run is the in-memory state of one pipeline execution. It holds no store
// handle; all persistence goes through store.RunStore, which is the only
// code allowed to mutate a run between stages.
type Run struct {
	ID                  string
	Status              RunStatus
	Platform            string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	CurrentStage        string
	StageProgress       map[string]*StageProgress
	Filters             map[string]any
	ProfilesFound       int
	ProfilesPreScreened int
	ProfilesEnriched    int
	ProfilesScored      int
	ContactsSynced      int
	DuplicatesSkipped   int
	BDRAssignment       string
	Errors              []RunError
	TierDistribution    map[string]int
	Summary             string
	EstimatedCost       float64
	ActualCost          float64
	// StageOutputs is internal bookkeeping between stages and is excluded
	// from external snapshots.
	StageOutputs map[string]any
}

// NewRun creates a queued run with every stage and tier key initialized
func NewRun(platform string, filters map[string]any, bdrAssignment string) *Run {
	now := time.Now()
	if filters == nil {
		filters = map[string]any{}
	}
	progress := make(map[string]*StageProgress, len(PipelineStages))
	for _, stage := range PipelineStages {
		progress[stage] = &StageProgress{}
	}
	tiers := make(map[string]int, len(TierKeys))
	for _, tier := range TierKeys {
		tiers[tier] = 0
	}
	return &Run{
		ID:               uuid.New().String(),
		Status:           StatusQueued,
		Platform:         platform,
		CreatedAt:        now,
		UpdatedAt:        now,
		StageProgress:    progress,
		Filters:          filters,
		BDRAssignment:    bdrAssignment,
		Errors:           []RunError{},
		TierDistribution: tiers,
		StageOutputs:     map[string]any{},
	}
}

// ApplyStage sets the current stage, optionally overwrites the run status,
// and applies the patch fields. An empty status leaves the status untouched.
func (r *Run) ApplyStage(stage string, status RunStatus, patch StagePatch) {
	r.CurrentStage = stage
	if status != "" {
		r.Status = status
	}
	patch.apply(r, stage)
}

// IncrementStageProgress adds n to one counter of one stage. Unknown stage
// or counter names are no-ops.
func (r *Run) IncrementStageProgress(stage, counter string, n int) {
	sp, ok := r.StageProgress[stage]
	if !ok {
		return
	}
	switch counter {
	case "total":
		sp.Total += n
	case "completed":
		sp.Completed += n
	case "failed":
		sp.Failed += n
	}
}

// AddError appends a timestamped entry to the error log. The in-memory log
// is unbounded; only snapshots are capped.
func (r *Run) AddError(stage, message, profileID string) {
	r.Errors = append(r.Errors, RunError{
		Stage:     stage,
		Message:   message,
		ProfileID: profileID,
		Timestamp: time.Now(),
	})
}

// Complete marks the run terminal-successful
func (r *Run) Complete() {
	r.Status = StatusCompleted
}

// Fail marks the run terminal-failed. A non-empty reason is logged against
// the current stage first.
func (r *Run) Fail(reason string) {
	if reason != "" {
		r.AddError(r.CurrentStage, reason, "")
	}
	r.Status = StatusFailed
}

// Cancel marks the run terminal-cancelled
func (r *Run) Cancel() {
	r.Status = StatusCancelled
}

// RunSnapshot is the externally serializable view of a run. It carries
// everything except stage outputs, with the error log capped at ErrorLogCap.
// Any caller persisting or transmitting a run must use this shape.
type RunSnapshot struct {
	ID                  string                    `json:"id"`
	Status              RunStatus                 `json:"status"`
	Platform            string                    `json:"platform"`
	CreatedAt           time.Time                 `json:"created_at"`
	UpdatedAt           time.Time                 `json:"updated_at"`
	CurrentStage        string                    `json:"current_stage"`
	StageProgress       map[string]*StageProgress `json:"stage_progress"`
	Filters             map[string]any            `json:"filters"`
	ProfilesFound       int                       `json:"profiles_found"`
	ProfilesPreScreened int                       `json:"profiles_pre_screened"`
	ProfilesEnriched    int                       `json:"profiles_enriched"`
	ProfilesScored      int                       `json:"profiles_scored"`
	ContactsSynced      int                       `json:"contacts_synced"`
	DuplicatesSkipped   int                       `json:"duplicates_skipped"`
	BDRAssignment       string                    `json:"bdr_assignment"`
	Errors              []RunError                `json:"errors"`
	TierDistribution    map[string]int            `json:"tier_distribution"`
	Summary             string                    `json:"summary"`
	EstimatedCost       float64                   `json:"estimated_cost"`
	ActualCost          float64                   `json:"actual_cost"`
}

// Snapshot builds the external view of the run. The last ErrorLogCap error
// entries are kept, oldest first.
func (r *Run) Snapshot() RunSnapshot {
	errs := r.Errors
	if len(errs) > ErrorLogCap {
		errs = errs[len(errs)-ErrorLogCap:]
	}
	kept := make([]RunError, len(errs))
	copy(kept, errs)

	return RunSnapshot{
		ID:                  r.ID,
		Status:              r.Status,
		Platform:            r.Platform,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
		CurrentStage:        r.CurrentStage,
		StageProgress:       r.StageProgress,
		Filters:             r.Filters,
		ProfilesFound:       r.ProfilesFound,
		ProfilesPreScreened: r.ProfilesPreScreened,
		ProfilesEnriched:    r.ProfilesEnriched,
		ProfilesScored:      r.ProfilesScored,
		ContactsSynced:      r.ContactsSynced,
		DuplicatesSkipped:   r.DuplicatesSkipped,
		BDRAssignment:       r.BDRAssignment,
		Errors:              kept,
		TierDistribution:    r.TierDistribution,
		Summary:             r.Summary,
		EstimatedCost:       r.EstimatedCost,
		ActualCost:          r.ActualCost,
	}
}

// RunFromSnapshot rebuilds a run from its serialized view plus the internal
// stage outputs the fast store persists alongside it.
func RunFromSnapshot(s RunSnapshot, stageOutputs map[string]any) *Run {
	if s.StageProgress == nil {
		s.StageProgress = map[string]*StageProgress{}
	}
	if s.Filters == nil {
		s.Filters = map[string]any{}
	}
	if s.Errors == nil {
		s.Errors = []RunError{}
	}
	if s.TierDistribution == nil {
		s.TierDistribution = map[string]int{}
	}
	if stageOutputs == nil {
		stageOutputs = map[string]any{}
	}
	return &Run{
		ID:                  s.ID,
		Status:              s.Status,
		Platform:            s.Platform,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
		CurrentStage:        s.CurrentStage,
		StageProgress:       s.StageProgress,
		Filters:             s.Filters,
		ProfilesFound:       s.ProfilesFound,
		ProfilesPreScreened: s.ProfilesPreScreened,
		ProfilesEnriched:    s.ProfilesEnriched,
		ProfilesScored:      s.ProfilesScored,
		ContactsSynced:      s.ContactsSynced,
		DuplicatesSkipped:   s.DuplicatesSkipped,
		BDRAssignment:       s.BDRAssignment,
		Errors:              s.Errors,
		TierDistribution:    s.TierDistribution,
		Summary:             s.Summary,
		EstimatedCost:       s.EstimatedCost,
		ActualCost:          s.ActualCost,
		StageOutputs:        stageOutputs,
	}
}
