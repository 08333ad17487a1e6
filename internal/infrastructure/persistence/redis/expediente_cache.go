package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tesis-hub/tesis-tracker/internal/application/query"
)

// ExpedienteCache stores dossier snapshots. It serves both sides of the
// workflow: the query layer reads and refreshes snapshots, the command layer
// invalidates them after every committed transition.
type ExpedienteCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewExpedienteCache creates the snapshot cache with the default TTL.
func NewExpedienteCache(cache *Cache) *ExpedienteCache {
	return &ExpedienteCache{cache: cache, ttl: TTLExpediente}
}

// GetExpediente returns the cached snapshot, or (nil, nil) on a miss.
func (c *ExpedienteCache) GetExpediente(ctx context.Context, tesisID uuid.UUID) (*query.ExpedienteDTO, error) {
	var dto query.ExpedienteDTO
	err := c.cache.Get(ctx, ExpedienteKey(tesisID.String()), &dto)
	if errors.Is(err, ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// SetExpediente stores a snapshot.
func (c *ExpedienteCache) SetExpediente(ctx context.Context, dto *query.ExpedienteDTO) error {
	if dto == nil {
		return nil
	}
	return c.cache.Set(ctx, ExpedienteKey(dto.TesisID), dto, c.ttl)
}

// InvalidarExpediente drops the snapshot after a committed transition.
func (c *ExpedienteCache) InvalidarExpediente(ctx context.Context, tesisID uuid.UUID) error {
	return c.cache.Delete(ctx, ExpedienteKey(tesisID.String()))
}
