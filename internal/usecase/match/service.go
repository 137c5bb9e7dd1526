// Package match implements the match orchestrator: seeker profile to
// ranked listings over cosine similarity.
package match

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/roommatch/internal/domain"
	"github.com/kailas-cloud/roommatch/internal/domain/similarity"
	"github.com/kailas-cloud/roommatch/internal/logger"
	"github.com/kailas-cloud/roommatch/internal/metrics"
)

const (
	// DefaultThreshold is the minimum cosine score a listing must reach
	// to appear in results when the caller does not override it.
	DefaultThreshold = 0.5
	// DefaultLimit caps the result set when the caller does not override it.
	DefaultLimit = 10
	// DefaultMaxLimit bounds the per-call limit override.
	DefaultMaxLimit = 100
)

// Params are per-query overrides. Zero values fall back to the defaults.
type Params struct {
	Threshold *float64
	Limit     int
}

// Service ranks listings for a seeker.
type Service struct {
	profiles   ProfileReader
	listings   ListingReader
	embeddings EmbeddingProvider
	threshold  float64
	limit      int
	maxLimit   int
	logger     *zap.Logger
}

// New creates the match orchestrator.
func New(profiles ProfileReader, listings ListingReader, embeddings EmbeddingProvider, logger *zap.Logger) *Service {
	return &Service{
		profiles:   profiles,
		listings:   listings,
		embeddings: embeddings,
		threshold:  DefaultThreshold,
		limit:      DefaultLimit,
		maxLimit:   DefaultMaxLimit,
		logger:     logger,
	}
}

// WithDefaults overrides the deployment-wide default threshold and the
// default and maximum result limits.
func (s *Service) WithDefaults(threshold float64, limit, maxLimit int) *Service {
	if threshold >= -1 && threshold <= 1 {
		s.threshold = threshold
	}
	if limit > 0 {
		s.limit = limit
	}
	if maxLimit > 0 {
		s.maxLimit = maxLimit
	}
	return s
}

// Match returns listings ranked by cosine similarity against the seeker's
// profile embedding, best first.
//
// A seeker who has not completed onboarding has no matchable profile and
// is reported as not found. Listings deleted between embedding scan and
// hydration are skipped, not errors. An empty result is a successful
// query, not a failure.
func (s *Service) Match(ctx context.Context, seekerID string, params Params) ([]domain.MatchResult, error) {
	results, err := s.match(ctx, seekerID, params)
	if err != nil {
		metrics.MatchRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.MatchRequestsTotal.WithLabelValues("success").Inc()
	return results, nil
}

func (s *Service) match(ctx context.Context, seekerID string, params Params) ([]domain.MatchResult, error) {
	if seekerID == "" {
		return nil, fmt.Errorf("%w: seeker id must be non-empty", domain.ErrValidation)
	}

	threshold := s.threshold
	if params.Threshold != nil {
		threshold = *params.Threshold
	}
	if threshold < -1 || threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %v outside [-1, 1]", domain.ErrValidation, threshold)
	}
	limit := params.Limit
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must be non-negative", domain.ErrValidation)
	}
	if limit > s.maxLimit {
		return nil, fmt.Errorf("%w: limit %d exceeds maximum %d", domain.ErrValidation, limit, s.maxLimit)
	}
	if limit == 0 {
		limit = s.limit
	}

	profile, err := s.profiles.Get(ctx, seekerID)
	if err != nil {
		return nil, fmt.Errorf("load seeker %s: %w", seekerID, err)
	}
	if !profile.Completed() {
		return nil, fmt.Errorf("%w: seeker %s has not completed onboarding", domain.ErrNotFound, seekerID)
	}

	seekerRec, err := s.embeddings.GetOrGenerate(ctx, &profile)
	if err != nil {
		return nil, fmt.Errorf("seeker embedding: %w", err)
	}

	candidates, err := s.embeddings.AllCurrent(ctx, domain.KindListing)
	if err != nil {
		return nil, fmt.Errorf("listing embeddings: %w", err)
	}

	// Request-scoped logger carries request_id when present.
	log := logger.FromContextOr(ctx, s.logger)

	rep := similarity.Search(seekerRec.Vector, candidates, threshold, limit)
	if rep.DimMismatched > 0 {
		metrics.MatchCandidatesSkippedTotal.WithLabelValues("dim_mismatch").Add(float64(rep.DimMismatched))
		log.Warn("skipped dimension-mismatched listing embeddings",
			zap.Int("count", rep.DimMismatched))
	}
	if rep.ZeroMagnitude > 0 {
		metrics.MatchCandidatesSkippedTotal.WithLabelValues("zero_magnitude").Add(float64(rep.ZeroMagnitude))
		log.Warn("skipped zero-magnitude listing embeddings",
			zap.Int("count", rep.ZeroMagnitude))
	}

	results := make([]domain.MatchResult, 0, len(rep.Hits))
	for _, hit := range rep.Hits {
		listing, err := s.listings.Get(ctx, hit.EntityID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Listing deleted after its embedding was scanned.
				metrics.MatchCandidatesSkippedTotal.WithLabelValues("listing_gone").Inc()
				log.Warn("ranked listing no longer exists", zap.String("listing_id", hit.EntityID))
				continue
			}
			return nil, fmt.Errorf("load listing %s: %w", hit.EntityID, err)
		}
		results = append(results, domain.MatchResult{
			ListingID: hit.EntityID,
			Score:     hit.Score,
			Listing:   listing,
		})
	}
	return results, nil
}
