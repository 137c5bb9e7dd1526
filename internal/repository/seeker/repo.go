// Package seeker persists seeker profiles.
package seeker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/roommatch/internal/db"
	"github.com/kailas-cloud/roommatch/internal/domain"
)

// store is the consumer interface for seeker profiles (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
}

// embeddingDeleter cascades embedding removal on profile deletion.
type embeddingDeleter interface {
	Delete(ctx context.Context, kind domain.EntityKind, entityID string) error
}

// Repo implements profile persistence for the onboarding and match services.
type Repo struct {
	store      store
	embeddings embeddingDeleter
	prefix     string
}

// New creates a seeker profile repository.
func New(s store, embeddings embeddingDeleter, prefix string) *Repo {
	return &Repo{store: s, embeddings: embeddings, prefix: prefix}
}

// Get returns a profile by seeker id, or domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, id string) (domain.SeekerProfile, error) {
	key := r.key(id)
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.SeekerProfile{}, domain.ErrNotFound
		}
		return domain.SeekerProfile{}, fmt.Errorf("%w: get %s: %w", domain.ErrPersistence, key, err)
	}

	var dto profileDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return domain.SeekerProfile{}, fmt.Errorf("%w: parse %s: %w", domain.ErrPersistence, key, err)
	}
	return dto.toDomain(), nil
}

// Save creates or replaces a profile (upsert by seeker id).
func (r *Repo) Save(ctx context.Context, p domain.SeekerProfile) error {
	key := r.key(p.EntityID())
	data, err := json.Marshal(buildProfileDTO(p))
	if err != nil {
		return fmt.Errorf("marshal profile %s: %w", key, err)
	}
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("%w: set %s: %w", domain.ErrPersistence, key, err)
	}
	return nil
}

// Delete removes a profile and cascades its embedding record.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := r.key(id)
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("%w: del %s: %w", domain.ErrPersistence, key, err)
	}
	if err := r.embeddings.Delete(ctx, domain.KindSeeker, id); err != nil {
		return fmt.Errorf("cascade embedding for seeker %s: %w", id, err)
	}
	return nil
}

func (r *Repo) key(id string) string {
	return r.prefix + "seeker:" + id
}
