package chi

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/roommatch/internal/domain"
	matchuc "github.com/kailas-cloud/roommatch/internal/usecase/match"
	onboardinguc "github.com/kailas-cloud/roommatch/internal/usecase/onboarding"
)

// --- Mocks ---

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
	texts  []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.texts = append(m.texts, text)
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return m.result, nil
}

type mockMatcher struct {
	results []domain.MatchResult
	err     error
	params  matchuc.Params
}

func (m *mockMatcher) Match(_ context.Context, _ string, params matchuc.Params) ([]domain.MatchResult, error) {
	m.params = params
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

type mockOnboarding struct {
	step    onboardinguc.Step
	profile domain.SeekerProfile
	reply   string
	err     error
	answers []string
}

func (m *mockOnboarding) Next(_ context.Context, _, _ string) (onboardinguc.Step, error) {
	return m.step, m.err
}

func (m *mockOnboarding) Answer(_ context.Context, _, _, answer string) (onboardinguc.Step, error) {
	m.answers = append(m.answers, answer)
	return m.step, m.err
}

func (m *mockOnboarding) Profile(_ context.Context, _ string) (domain.SeekerProfile, error) {
	return m.profile, m.err
}

func (m *mockOnboarding) Chat(_ context.Context, _ string) (string, error) {
	return m.reply, m.err
}

type mockListingStore struct {
	listings map[string]domain.Listing
	saved    []domain.Listing
	deleted  []string
	err      error
}

func newMockListingStore() *mockListingStore {
	return &mockListingStore{listings: make(map[string]domain.Listing)}
}

func (m *mockListingStore) Get(_ context.Context, id string) (domain.Listing, error) {
	if m.err != nil {
		return domain.Listing{}, m.err
	}
	l, ok := m.listings[id]
	if !ok {
		return domain.Listing{}, fmt.Errorf("%w: listing %s", domain.ErrNotFound, id)
	}
	return l, nil
}

func (m *mockListingStore) Save(_ context.Context, l domain.Listing) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, l)
	m.listings[l.EntityID()] = l
	return nil
}

func (m *mockListingStore) List(_ context.Context) ([]domain.Listing, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Listing, 0, len(m.listings))
	for _, l := range m.listings {
		out = append(out, l)
	}
	return out, nil
}

func (m *mockListingStore) Delete(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	delete(m.listings, id)
	return nil
}

type mockWarmer struct {
	calls []string
	err   error
}

func (m *mockWarmer) GetOrGenerate(_ context.Context, entity domain.Entity) (domain.EmbeddingRecord, error) {
	m.calls = append(m.calls, entity.EntityID())
	if m.err != nil {
		return domain.EmbeddingRecord{}, m.err
	}
	return domain.EmbeddingRecord{EntityID: entity.EntityID(), Kind: entity.Kind()}, nil
}
