package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"ai-orchestrator-be/internal/entity"
)

// StateRepository caches the runtime state projection of live sessions.
// Entries expire on their own so abandoned sessions do not pile up.
type StateRepository struct {
	cache *cache.Cache
}

func NewStateRepository() *StateRepository {
	// Create a cache with a default expiration time of 1 hour, and which
	// purges expired items every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &StateRepository{
		cache: c,
	}
}

func (r *StateRepository) Save(sessionId uuid.UUID, state *entity.SessionState) {
	r.cache.Set(sessionId.String(), state, cache.DefaultExpiration)
}

func (r *StateRepository) Get(sessionId uuid.UUID) (*entity.SessionState, bool) {
	if x, found := r.cache.Get(sessionId.String()); found {
		return x.(*entity.SessionState), true
	}
	return nil, false
}

func (r *StateRepository) Delete(sessionId uuid.UUID) {
	r.cache.Delete(sessionId.String())
}
