package store

import (
	"context"
	"errors"
	"time"

	"github.com/leadscout/api/internal/model"
)

// RunTTL is how long a run body stays in the fast store after its last write
const RunTTL = 7 * 24 * time.Hour

const (
	runKeyPrefix    = "run:"
	recencyIndexKey = "runs:list"
)

// nowFunc is swapped out in tests
var nowFunc = time.Now

// ErrCacheMiss distinguishes an absent fast-store key from a transport
// failure. FastStore implementations must return it for missing keys.
var ErrCacheMiss = errors.New("cache miss")

// FastStore is the low-latency, TTL-bound primary store: plain keys plus one
// score-ordered index used for recency queries.
type FastStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, key string) error
	IndexAdd(ctx context.Context, key string, score float64, member string) error
	IndexRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	IndexRem(ctx context.Context, key string, member string) error
}

// DurableStore is the fallback read path over compacted historical run rows.
// Implementations return model.ErrRunNotFound for absent rows.
type DurableStore interface {
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRecentRuns(ctx context.Context, limit int) ([]*model.Run, error)
}

func runKey(id string) string {
	return runKeyPrefix + id
}
