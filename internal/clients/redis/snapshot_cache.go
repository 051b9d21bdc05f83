package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/fincoach-backend/internal/logger"
	"github.com/yungbote/fincoach-backend/internal/types"
)

// SnapshotCache is a read-through cache of a user's latest snapshot. The
// database remains the source of truth; every cache path is best-effort
// and a miss or error falls back to the store. A read racing a wipe can
// re-populate the entry for up to one TTL, which is why deletion paths
// invalidate around their transaction rather than relying on a single
// post-commit invalidation.
type SnapshotCache interface {
	GetLatest(ctx context.Context, userID uuid.UUID) (*types.FinancialSnapshot, bool)
	SetLatest(ctx context.Context, snap *types.FinancialSnapshot)
	Invalidate(ctx context.Context, userID uuid.UUID)
	Close() error
}

type snapshotCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewSnapshotCache(log *logger.Logger) (SnapshotCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &snapshotCache{
		log: log.With("service", "SnapshotCache"),
		rdb: rdb,
		ttl: 15 * time.Minute,
	}, nil
}

func latestKey(userID uuid.UUID) string {
	return "fincoach:latest_snapshot:" + userID.String()
}

func (c *snapshotCache) GetLatest(ctx context.Context, userID uuid.UUID) (*types.FinancialSnapshot, bool) {
	raw, err := c.rdb.Get(ctx, latestKey(userID)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("Cache read failed", "user_id", userID.String(), "error", err)
		}
		return nil, false
	}
	var snap types.FinancialSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		c.log.Warn("Cache entry corrupt, dropping", "user_id", userID.String(), "error", err)
		_ = c.rdb.Del(ctx, latestKey(userID)).Err()
		return nil, false
	}
	return &snap, true
}

func (c *snapshotCache) SetLatest(ctx context.Context, snap *types.FinancialSnapshot) {
	raw, err := json.Marshal(snap)
	if err != nil {
		c.log.Warn("Cache marshal failed", "error", err)
		return
	}
	if err := c.rdb.Set(ctx, latestKey(snap.UserID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("Cache write failed", "user_id", snap.UserID.String(), "error", err)
	}
}

func (c *snapshotCache) Invalidate(ctx context.Context, userID uuid.UUID) {
	if err := c.rdb.Del(ctx, latestKey(userID)).Err(); err != nil {
		c.log.Warn("Cache invalidation failed", "user_id", userID.String(), "error", err)
	}
}

func (c *snapshotCache) Close() error {
	return c.rdb.Close()
}
