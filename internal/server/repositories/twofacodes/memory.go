package twofacodes

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authsvc/internal/common"
	"github.com/dmitrijs2005/authsvc/internal/server/models"
	"github.com/dmitrijs2005/authsvc/internal/server/shared/ttlmap"
	"github.com/thejerf/abtime"
)

type challenge struct {
	attemptID models.LoginAttemptID
	code      models.TwoFACode
}

type MemoryRepository struct {
	codes *ttlmap.Map[models.Email, challenge]
	ttl   time.Duration
}

// NewMemoryRepository returns an in-process challenge store. A
// non-positive ttl means DefaultTTL; a nil clock means wall-clock time.
func NewMemoryRepository(ttl time.Duration, clock abtime.AbstractTime) *MemoryRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryRepository{codes: ttlmap.New[models.Email, challenge](clock), ttl: ttl}
}

func (r *MemoryRepository) AddCode(_ context.Context, email models.Email, attemptID models.LoginAttemptID, code models.TwoFACode) error {
	r.codes.Set(email, challenge{attemptID: attemptID, code: code}, r.ttl)
	return nil
}

func (r *MemoryRepository) GetCode(_ context.Context, email models.Email) (models.LoginAttemptID, models.TwoFACode, error) {
	c, ok := r.codes.Get(email)
	if !ok {
		return models.LoginAttemptID{}, models.TwoFACode{}, common.ErrNotFound
	}
	return c.attemptID, c.code, nil
}

func (r *MemoryRepository) RemoveCode(_ context.Context, email models.Email) error {
	if !r.codes.Delete(email) {
		return common.ErrNotFound
	}
	return nil
}

// StartJanitor removes expired challenges every interval until ctx is done.
func (r *MemoryRepository) StartJanitor(ctx context.Context, interval time.Duration) <-chan struct{} {
	return r.codes.StartJanitor(ctx, interval)
}
