package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/opensource-commerce/kea/internal/domain"
)

// CachedLookup wraps a RegistryLookup with a cache so repeated checks of
// the same NZBN within the TTL avoid a registry round-trip. Only
// successful responses are cached: not-found and transport failures always
// go back to the registry.
type CachedLookup struct {
	next  domain.RegistryLookup
	cache domain.Cache
	ttl   time.Duration
}

// NewCachedLookup creates a caching decorator around next.
func NewCachedLookup(next domain.RegistryLookup, cache domain.Cache, ttl time.Duration) *CachedLookup {
	return &CachedLookup{
		next:  next,
		cache: cache,
		ttl:   ttl,
	}
}

// GSTRegistrations implements domain.RegistryLookup.
func (l *CachedLookup) GSTRegistrations(ctx context.Context, storeID string, env domain.Environment, accessToken, nzbn string) ([]domain.RegistrationRecord, error) {
	key := "registry:" + string(env) + ":" + nzbn

	if data, err := l.cache.Get(ctx, storeID, key); err == nil && data != nil {
		var registrations []domain.RegistrationRecord
		if err := json.Unmarshal(data, &registrations); err == nil {
			return registrations, nil
		}
		// Unreadable entry; drop it and fall through to the registry.
		_ = l.cache.Delete(ctx, storeID, key)
	}

	registrations, err := l.next.GSTRegistrations(ctx, storeID, env, accessToken, nzbn)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(registrations); err == nil {
		_ = l.cache.Set(ctx, storeID, key, data, l.ttl)
	}

	return registrations, nil
}
