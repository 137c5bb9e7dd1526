package embedding

import (
	"context"

	"github.com/kailas-cloud/roommatch/internal/domain"
)

// RecordStore defines the persistence contract for embedding records.
type RecordStore interface {
	Get(ctx context.Context, kind domain.EntityKind, entityID string) (domain.EmbeddingRecord, error)
	Put(ctx context.Context, rec domain.EmbeddingRecord) error
	AllCurrent(ctx context.Context, kind domain.EntityKind) ([]domain.EmbeddingRecord, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
