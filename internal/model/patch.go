package model

// StagePatch is the closed set of run fields a stage execution may
// overwrite. Nil fields are left untouched, so a stage only declares what it
// actually produces. A stage output, when set, is recorded under the stage's
// key in the run's internal StageOutputs map.
type StagePatch struct {
	ProfilesFound       *int
	ProfilesPreScreened *int
	ProfilesEnriched    *int
	ProfilesScored      *int
	ContactsSynced      *int
	DuplicatesSkipped   *int
	TierDistribution    map[string]int
	Summary             *string
	EstimatedCost       *float64
	ActualCost          *float64
	BDRAssignment       *string
	StageOutput         any
}

func (p StagePatch) apply(r *Run, stage string) {
	if p.ProfilesFound != nil {
		r.ProfilesFound = *p.ProfilesFound
	}
	if p.ProfilesPreScreened != nil {
		r.ProfilesPreScreened = *p.ProfilesPreScreened
	}
	if p.ProfilesEnriched != nil {
		r.ProfilesEnriched = *p.ProfilesEnriched
	}
	if p.ProfilesScored != nil {
		r.ProfilesScored = *p.ProfilesScored
	}
	if p.ContactsSynced != nil {
		r.ContactsSynced = *p.ContactsSynced
	}
	if p.DuplicatesSkipped != nil {
		r.DuplicatesSkipped = *p.DuplicatesSkipped
	}
	if p.TierDistribution != nil {
		r.TierDistribution = p.TierDistribution
	}
	if p.Summary != nil {
		r.Summary = *p.Summary
	}
	if p.EstimatedCost != nil {
		r.EstimatedCost = *p.EstimatedCost
	}
	if p.ActualCost != nil {
		r.ActualCost = *p.ActualCost
	}
	if p.BDRAssignment != nil {
		r.BDRAssignment = *p.BDRAssignment
	}
	if p.StageOutput != nil {
		if r.StageOutputs == nil {
			r.StageOutputs = map[string]any{}
		}
		r.StageOutputs[stage] = p.StageOutput
	}
}

// Int returns a pointer for patch literals
func Int(v int) *int { return &v }

// Float returns a pointer for patch literals
func Float(v float64) *float64 { return &v }

// String returns a pointer for patch literals
func String(v string) *string { return &v }
