package bannedtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authsvc/internal/server/shared/ttlmap"
	"github.com/thejerf/abtime"
)

type MemoryRepository struct {
	entries *ttlmap.Map[string, struct{}]
	clock   abtime.AbstractTime
}

func NewMemoryRepository(clock abtime.AbstractTime) *MemoryRepository {
	if clock == nil {
		clock = abtime.NewRealTime()
	}
	return &MemoryRepository{entries: ttlmap.New[string, struct{}](clock), clock: clock}
}

func (r *MemoryRepository) IsBanned(_ context.Context, token string) (bool, error) {
	_, ok := r.entries.Get(TokenKey(token))
	return ok, nil
}

func (r *MemoryRepository) Ban(_ context.Context, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.clock.Now())
	if ttl <= 0 {
		return nil
	}
	r.entries.Set(TokenKey(token), struct{}{}, ttl)
	return nil
}

func (r *MemoryRepository) BanIfAbsent(_ context.Context, token string, expiresAt time.Time) (bool, error) {
	return r.entries.SetIfAbsent(TokenKey(token), struct{}{}, expiresAt.Sub(r.clock.Now())), nil
}

// StartJanitor removes expired entries every interval until ctx is done.
func (r *MemoryRepository) StartJanitor(ctx context.Context, interval time.Duration) <-chan struct{} {
	return r.entries.StartJanitor(ctx, interval)
}
