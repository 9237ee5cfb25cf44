package similarity

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/leadscout/api/internal/logger"
	"github.com/leadscout/api/internal/model"
)

// CandidateSource supplies recent completed runs for one platform, newest
// first. The durable run repository implements it.
type CandidateSource interface {
	ListCompleted(ctx context.Context, platform string, limit int) ([]model.RunRow, error)
}

// Match is one similar historical run
type Match struct {
	RunID          string  `json:"run_id"`
	Similarity     float64 `json:"similarity"`
	ProfilesFound  int     `json:"profiles_found"`
	ContactsSynced int     `json:"contacts_synced"`
	DaysAgo        int     `json:"days_ago"`
}

// Query ranks historical completed runs against a new filter document
type Query struct {
	source CandidateSource
	log    *logger.Logger
}

// NewQuery builds a similarity query over the given candidate source
func NewQuery(source CandidateSource, log *logger.Logger) *Query {
	return &Query{source: source, log: log.Component("similarity")}
}

// FindSimilar scores up to limit most-recent completed runs of the platform
// and returns those at or above the threshold, highest similarity first.
// Ties keep the candidate recency order. Any store failure degrades to an
// empty result; the dashboard prefers an empty panel over an error page.
func (q *Query) FindSimilar(ctx context.Context, platform string, filters map[string]any, threshold float64, limit int) []Match {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}

	candidates, err := q.source.ListCompleted(ctx, platform, limit)
	if err != nil {
		q.log.WithError(err).WithField("platform", platform).Warn("candidate query failed, returning empty")
		return []Match{}
	}

	now := time.Now()
	matches := []Match{}
	for _, row := range candidates {
		sim := Compute(filters, map[string]any(row.Filters), platform)
		if sim < threshold {
			continue
		}
		daysAgo := 0
		if !row.CreatedAt.IsZero() {
			daysAgo = int(now.Sub(row.CreatedAt).Hours() / 24)
		}
		matches = append(matches, Match{
			RunID:          row.ID,
			Similarity:     math.Round(sim*1000) / 1000,
			ProfilesFound:  row.ProfilesFound,
			ContactsSynced: row.ContactsSynced,
			DaysAgo:        daysAgo,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches
}
