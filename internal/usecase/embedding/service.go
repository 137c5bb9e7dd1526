// Package embedding implements idempotent embedding generation: one current
// vector per entity, regenerated only when the canonical content hash changes.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/roommatch/internal/domain"
)

// maxFlightRetries bounds re-coalescing when a shared flight produced a
// record for different canonical text than this caller's.
const maxFlightRetries = 3

// Service is the embedding store facade used by the match orchestrator.
type Service struct {
	records    RecordStore
	embedder   Embedder
	dimensions int
	flights    singleflight.Group
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates the embedding service.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"); may be nil.
func New(records RecordStore, embedder Embedder, dimensions int,
	cacheTotal *prometheus.CounterVec, logger *zap.Logger,
) *Service {
	return &Service{
		records:    records,
		embedder:   embedder,
		dimensions: dimensions,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// GetOrGenerate returns the current embedding record for the entity,
// regenerating it only when the canonical content hash changed.
//
// Concurrent calls for the same (kind, id) are coalesced into one provider
// call; all waiters observe the identical record. The shared flight is
// detached from the first caller's cancellation so an abandoning caller
// does not fail the waiters, and the result still lands in the store.
// On provider failure any prior record is left untouched.
func (s *Service) GetOrGenerate(ctx context.Context, entity domain.Entity) (domain.EmbeddingRecord, error) {
	text := entity.CanonicalText()
	if strings.TrimSpace(text) == "" {
		return domain.EmbeddingRecord{}, fmt.Errorf(
			"%w: %s %s has empty canonical text", domain.ErrValidation, entity.Kind(), entity.EntityID())
	}
	hash := domain.ContentHash(text)
	key := string(entity.Kind()) + ":" + entity.EntityID()

	for attempt := 0; ; attempt++ {
		v, err, _ := s.flights.Do(key, func() (any, error) {
			return s.generate(context.WithoutCancel(ctx), entity, text, hash)
		})
		if err != nil {
			return domain.EmbeddingRecord{}, fmt.Errorf("%s %s: %w", entity.Kind(), entity.EntityID(), err)
		}

		rec := v.(domain.EmbeddingRecord)
		if rec.ContentHash == hash {
			return rec, nil
		}

		// Joined a flight started for older canonical text. Forget the
		// flight and regenerate for this caller's content.
		s.flights.Forget(key)
		if attempt >= maxFlightRetries {
			return domain.EmbeddingRecord{}, fmt.Errorf(
				"%s %s: content changed %d times during regeneration",
				entity.Kind(), entity.EntityID(), attempt+1)
		}
	}
}

// AllCurrent returns the latest record per entity of the given kind.
// The read is deliberately not transactional with concurrent writes:
// matching is advisory, eventual consistency is acceptable.
func (s *Service) AllCurrent(ctx context.Context, kind domain.EntityKind) ([]domain.EmbeddingRecord, error) {
	records, err := s.records.AllCurrent(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("all current %s: %w", kind, err)
	}
	return records, nil
}

func (s *Service) generate(ctx context.Context, entity domain.Entity, text, hash string) (domain.EmbeddingRecord, error) {
	existing, err := s.records.Get(ctx, entity.Kind(), entity.EntityID())
	switch {
	case err == nil && existing.ContentHash == hash:
		s.incCache("hit")
		return existing, nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return domain.EmbeddingRecord{}, err
	}

	s.incCache("miss")

	result, err := s.embedder.Embed(ctx, text)
	if err != nil {
		// Stale-but-valid beats no record: the prior record stays.
		return domain.EmbeddingRecord{}, fmt.Errorf("embed: %w", err)
	}
	if len(result.Embedding) != s.dimensions {
		return domain.EmbeddingRecord{}, fmt.Errorf(
			"%w: got %d dimensions, want %d", domain.ErrUpstreamMalformed, len(result.Embedding), s.dimensions)
	}

	rec := domain.EmbeddingRecord{
		EntityID:    entity.EntityID(),
		Kind:        entity.Kind(),
		Vector:      result.Embedding,
		ContentHash: hash,
		GeneratedAt: time.Now().UTC(),
	}
	if err := s.records.Put(ctx, rec); err != nil {
		return domain.EmbeddingRecord{}, err
	}

	s.logger.Debug("Embedding regenerated",
		zap.String("kind", string(entity.Kind())),
		zap.String("entity_id", entity.EntityID()),
		zap.Int("tokens", result.TotalTokens),
	)
	return rec, nil
}

func (s *Service) incCache(result string) {
	if s.cacheTotal != nil {
		s.cacheTotal.WithLabelValues(result).Inc()
	}
}
