package pending

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const trackerKey = "pending_uploads"

// Tracker remembers object-store references that were uploaded standalone
// but not yet attached to a note. Entries live in a Redis sorted set scored
// by upload time; attaching clears them, and the cleanup sweep reclaims
// whatever sat unattached past its deadline. This is bookkeeping only:
// tracker failures never fail the request that triggered them.
type Tracker struct {
	rdb *redis.Client
}

func NewTracker(rdb *redis.Client) *Tracker {
	return &Tracker{rdb: rdb}
}

func (t *Tracker) Track(ctx context.Context, publicID string) error {
	member := redis.Z{Score: float64(time.Now().Unix()), Member: publicID}
	return t.rdb.ZAdd(ctx, trackerKey, member).Err()
}

func (t *Tracker) Clear(ctx context.Context, publicIDs ...string) error {
	if len(publicIDs) == 0 {
		return nil
	}
	members := make([]interface{}, len(publicIDs))
	for i, id := range publicIDs {
		members[i] = id
	}
	return t.rdb.ZRem(ctx, trackerKey, members...).Err()
}

// Expired returns references whose upload is older than ttl.
func (t *Tracker) Expired(ctx context.Context, ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl).Unix()
	return t.rdb.ZRangeByScore(ctx, trackerKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff, 10),
	}).Result()
}
