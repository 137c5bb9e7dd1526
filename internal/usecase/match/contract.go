package match

import (
	"context"

	"github.com/kailas-cloud/roommatch/internal/domain"
)

// ProfileReader loads seeker profiles.
type ProfileReader interface {
	Get(ctx context.Context, id string) (domain.SeekerProfile, error)
}

// ListingReader loads listings for hydrating ranked results.
type ListingReader interface {
	Get(ctx context.Context, id string) (domain.Listing, error)
}

// EmbeddingProvider is the embedding service the orchestrator queries:
// the seeker side goes through idempotent generation, the listing side
// through the stored population.
type EmbeddingProvider interface {
	GetOrGenerate(ctx context.Context, entity domain.Entity) (domain.EmbeddingRecord, error)
	AllCurrent(ctx context.Context, kind domain.EntityKind) ([]domain.EmbeddingRecord, error)
}
