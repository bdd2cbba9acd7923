package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mnavtrack/nav-engine/internal/model"
)

const treasuryKey = "treasury:current"

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

func (s *CachedStore) SaveTreasury(ctx context.Context, p *model.TreasuryParameters) error {
	if err := s.primary.SaveTreasury(ctx, p); err != nil {
		return err
	}
	// Invalidate; the next read re-populates from the primary.
	s.rdb.Del(ctx, treasuryKey)
	return nil
}

func (s *CachedStore) GetTreasury(ctx context.Context) (*model.TreasuryParameters, error) {
	data, err := s.rdb.Get(ctx, treasuryKey).Bytes()
	if err == nil {
		var p model.TreasuryParameters
		if json.Unmarshal(data, &p) == nil {
			return &p, nil
		}
	}

	// Cache miss: read from primary.
	p, err := s.primary.GetTreasury(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(p); err == nil {
		s.rdb.Set(ctx, treasuryKey, data, s.ttl)
	}
	return p, nil
}
