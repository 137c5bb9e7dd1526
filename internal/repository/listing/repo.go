// Package listing persists room listings.
package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/roommatch/internal/db"
	"github.com/kailas-cloud/roommatch/internal/domain"
)

// store is the consumer interface for listings (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// embeddingDeleter cascades embedding removal on listing deletion.
type embeddingDeleter interface {
	Delete(ctx context.Context, kind domain.EntityKind, entityID string) error
}

// Repo implements listing persistence.
type Repo struct {
	store      store
	embeddings embeddingDeleter
	prefix     string
	logger     *zap.Logger
}

// New creates a listing repository.
func New(s store, embeddings embeddingDeleter, prefix string, logger *zap.Logger) *Repo {
	return &Repo{store: s, embeddings: embeddings, prefix: prefix, logger: logger}
}

// Get returns a listing by id, or domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, id string) (domain.Listing, error) {
	key := r.key(id)
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Listing{}, domain.ErrNotFound
		}
		return domain.Listing{}, fmt.Errorf("%w: get %s: %w", domain.ErrPersistence, key, err)
	}

	var dto listingDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return domain.Listing{}, fmt.Errorf("%w: parse %s: %w", domain.ErrPersistence, key, err)
	}
	return dto.toDomain(), nil
}

// Save creates or replaces a listing (upsert by id). Embedding invalidation
// happens lazily: the changed canonical hash triggers regeneration on the
// next get-or-generate.
func (r *Repo) Save(ctx context.Context, l domain.Listing) error {
	key := r.key(l.EntityID())
	data, err := json.Marshal(buildListingDTO(l))
	if err != nil {
		return fmt.Errorf("marshal listing %s: %w", key, err)
	}
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("%w: set %s: %w", domain.ErrPersistence, key, err)
	}
	return nil
}

// List returns all listings.
func (r *Repo) List(ctx context.Context) ([]domain.Listing, error) {
	pattern := r.prefix + "listing:*"
	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: scan %s: %w", domain.ErrPersistence, pattern, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := r.store.MGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("%w: mget: %w", domain.ErrPersistence, err)
	}

	listings := make([]domain.Listing, 0, len(values))
	for i, data := range values {
		if data == nil {
			continue
		}
		var dto listingDTO
		if err := json.Unmarshal(data, &dto); err != nil {
			r.logger.Warn("Skipping undecodable listing",
				zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		listings = append(listings, dto.toDomain())
	}
	return listings, nil
}

// Delete removes a listing and cascades its embedding record.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := r.key(id)
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("%w: del %s: %w", domain.ErrPersistence, key, err)
	}
	if err := r.embeddings.Delete(ctx, domain.KindListing, id); err != nil {
		return fmt.Errorf("cascade embedding for listing %s: %w", id, err)
	}
	return nil
}

func (r *Repo) key(id string) string {
	return r.prefix + "listing:" + id
}
