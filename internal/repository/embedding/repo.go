// Package embedding persists one current EmbeddingRecord per entity.
package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/roommatch/internal/db"
	"github.com/kailas-cloud/roommatch/internal/domain"
)

// store is the consumer interface for embedding records (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase/embedding.RecordStore.
type Repo struct {
	store  store
	prefix string
	logger *zap.Logger
}

// New creates an embedding record repository. Keys are
// "<prefix>emb:<kind>:<entity_id>"; the unique key enforces the
// one-record-per-entity invariant (Put replaces, never appends).
func New(s store, prefix string, logger *zap.Logger) *Repo {
	return &Repo{store: s, prefix: prefix, logger: logger}
}

// Get returns the current record for an entity, or domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, kind domain.EntityKind, entityID string) (domain.EmbeddingRecord, error) {
	key := r.key(kind, entityID)
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.EmbeddingRecord{}, domain.ErrNotFound
		}
		return domain.EmbeddingRecord{}, fmt.Errorf("%w: get %s: %w", domain.ErrPersistence, key, err)
	}

	rec, err := parseRecord(data)
	if err != nil {
		return domain.EmbeddingRecord{}, fmt.Errorf("%w: parse %s: %w", domain.ErrPersistence, key, err)
	}
	return rec, nil
}

// Put replaces the record for its entity.
func (r *Repo) Put(ctx context.Context, rec domain.EmbeddingRecord) error {
	key := r.key(rec.Kind, rec.EntityID)
	data, err := json.Marshal(buildRecordDTO(rec))
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", key, err)
	}
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("%w: set %s: %w", domain.ErrPersistence, key, err)
	}
	return nil
}

// Delete removes the record for an entity (cascade from entity deletion).
// Deleting a missing record is not an error.
func (r *Repo) Delete(ctx context.Context, kind domain.EntityKind, entityID string) error {
	key := r.key(kind, entityID)
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("%w: del %s: %w", domain.ErrPersistence, key, err)
	}
	return nil
}

// AllCurrent returns the latest record per entity of the given kind.
// The unique key per entity guarantees no duplicates and no superseded
// rows. Records that fail to decode are skipped with a warning.
func (r *Repo) AllCurrent(ctx context.Context, kind domain.EntityKind) ([]domain.EmbeddingRecord, error) {
	pattern := fmt.Sprintf("%semb:%s:*", r.prefix, kind)
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

	records := make([]domain.EmbeddingRecord, 0, len(values))
	for i, data := range values {
		if data == nil {
			// Deleted between SCAN and MGET.
			continue
		}
		rec, err := parseRecord(data)
		if err != nil {
			r.logger.Warn("Skipping undecodable embedding record",
				zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *Repo) key(kind domain.EntityKind, entityID string) string {
	return fmt.Sprintf("%semb:%s:%s", r.prefix, kind, entityID)
}
