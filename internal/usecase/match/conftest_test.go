package match

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"

	"github.com/kailas-cloud/roommatch/internal/domain"
	"github.com/kailas-cloud/roommatch/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Register()
	os.Exit(m.Run())
}

type mockProfileReader struct {
	profiles map[string]domain.SeekerProfile
	err      error
}

func (m *mockProfileReader) Get(_ context.Context, id string) (domain.SeekerProfile, error) {
	if m.err != nil {
		return domain.SeekerProfile{}, m.err
	}
	p, ok := m.profiles[id]
	if !ok {
		return domain.SeekerProfile{}, fmt.Errorf("%w: seeker %s", domain.ErrNotFound, id)
	}
	return p, nil
}

type mockListingReader struct {
	listings map[string]domain.Listing
}

func (m *mockListingReader) Get(_ context.Context, id string) (domain.Listing, error) {
	l, ok := m.listings[id]
	if !ok {
		return domain.Listing{}, fmt.Errorf("%w: listing %s", domain.ErrNotFound, id)
	}
	return l, nil
}

type mockEmbeddingProvider struct {
	seekerVector  []float32
	candidates    []domain.EmbeddingRecord
	generateCalls atomic.Int64
	generateErr   error
	allCurrentErr error
}

func (m *mockEmbeddingProvider) GetOrGenerate(_ context.Context, entity domain.Entity) (domain.EmbeddingRecord, error) {
	m.generateCalls.Add(1)
	if m.generateErr != nil {
		return domain.EmbeddingRecord{}, m.generateErr
	}
	return domain.EmbeddingRecord{
		EntityID:    entity.EntityID(),
		Kind:        entity.Kind(),
		Vector:      m.seekerVector,
		ContentHash: domain.ContentHash(entity.CanonicalText()),
	}, nil
}

func (m *mockEmbeddingProvider) AllCurrent(_ context.Context, _ domain.EntityKind) ([]domain.EmbeddingRecord, error) {
	if m.allCurrentErr != nil {
		return nil, m.allCurrentErr
	}
	return m.candidates, nil
}

func testListing(t *testing.T, id, title string) domain.Listing {
	t.Helper()
	l, err := domain.NewListing(id, "lister-1", title, "a sunny room", "Amsterdam",
		850, "private", []string{"wifi"}, "2026-09-01", nil)
	if err != nil {
		t.Fatalf("build listing %s: %v", id, err)
	}
	return l
}

func completedProfile(t *testing.T, id string) domain.SeekerProfile {
	t.Helper()
	p, err := domain.NewSeekerProfile(id, "user-"+id)
	if err != nil {
		t.Fatalf("build profile %s: %v", id, err)
	}
	p, err = p.WithAnswer("What is your monthly budget?", "800 euros")
	if err != nil {
		t.Fatalf("answer profile %s: %v", id, err)
	}
	return p.WithCompleted()
}

func listingRecord(id string, vec []float32) domain.EmbeddingRecord {
	return domain.EmbeddingRecord{
		EntityID:    id,
		Kind:        domain.KindListing,
		Vector:      vec,
		ContentHash: "h-" + id,
	}
}
