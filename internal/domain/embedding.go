package domain

import (
	"context"
	"fmt"
	"time"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Completer relays a conversational prompt to the chat provider.
// Transport-only collaborator for the onboarding dialogue.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// EmbeddingResult carries the embedding vector and token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// EmbeddingRecord is the single current embedding for one entity.
// At most one record exists per (EntityID, Kind); regeneration replaces it.
type EmbeddingRecord struct {
	EntityID    string
	Kind        EntityKind
	Vector      []float32
	ContentHash string
	GeneratedAt time.Time
}

// Validate checks the dimensionality invariant against the deployment's
// configured vector size. A violating record is corrupt and must not be
// used in search.
func (r *EmbeddingRecord) Validate(dimensions int) error {
	if r.EntityID == "" {
		return fmt.Errorf("%w: embedding record has empty entity id", ErrValidation)
	}
	if len(r.Vector) != dimensions {
		return fmt.Errorf("%w: vector length %d, want %d", ErrValidation, len(r.Vector), dimensions)
	}
	return nil
}
