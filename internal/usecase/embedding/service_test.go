package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/roommatch/internal/domain"
)

// --- Mocks ---

type mockRecordStore struct {
	mu      sync.Mutex
	records map[string]domain.EmbeddingRecord
	getErr  error
	putErr  error
	puts    int
}

func newMockRecordStore() *mockRecordStore {
	return &mockRecordStore{records: make(map[string]domain.EmbeddingRecord)}
}

func (m *mockRecordStore) key(kind domain.EntityKind, id string) string {
	return string(kind) + ":" + id
}

func (m *mockRecordStore) Get(_ context.Context, kind domain.EntityKind, id string) (domain.EmbeddingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.EmbeddingRecord{}, m.getErr
	}
	rec, ok := m.records[m.key(kind, id)]
	if !ok {
		return domain.EmbeddingRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (m *mockRecordStore) Put(_ context.Context, rec domain.EmbeddingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.records[m.key(rec.Kind, rec.EntityID)] = rec
	m.puts++
	return nil
}

func (m *mockRecordStore) AllCurrent(_ context.Context, kind domain.EntityKind) ([]domain.EmbeddingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.EmbeddingRecord
	for _, rec := range m.records {
		if rec.Kind == kind {
			out = append(out, rec)
		}
	}
	return out, nil
}

type countingEmbedder struct {
	calls  atomic.Int64
	result domain.EmbeddingResult
	err    error
	// release, when set, blocks Embed until closed (for concurrency tests).
	release chan struct{}
}

func (m *countingEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls.Add(1)
	if m.release != nil {
		<-m.release
	}
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return m.result, nil
}

type fakeEntity struct {
	id   string
	kind domain.EntityKind
	text string
}

func (f *fakeEntity) EntityID() string        { return f.id }
func (f *fakeEntity) Kind() domain.EntityKind { return f.kind }
func (f *fakeEntity) CanonicalText() string   { return f.text }

func newTestService(store *mockRecordStore, emb Embedder) *Service {
	return New(store, emb, 3, nil, zap.NewNop())
}

// --- Tests ---

func TestGetOrGenerate_FirstCallStoresRecord(t *testing.T) {
	store := newMockRecordStore()
	emb := &countingEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 0, 0}}}
	svc := newTestService(store, emb)

	entity := &fakeEntity{id: "lst-1", kind: domain.KindListing, text: "sunny room downtown"}
	rec, err := svc.GetOrGenerate(context.Background(), entity)
	if err != nil {
		t.Fatalf("GetOrGenerate: %v", err)
	}
	if rec.ContentHash != domain.ContentHash(entity.text) {
		t.Fatal("record hash must match canonical text hash")
	}
	if emb.calls.Load() != 1 {
		t.Fatalf("expected 1 provider call, got %d", emb.calls.Load())
	}
	if store.puts != 1 {
		t.Fatalf("expected 1 stored record, got %d", store.puts)
	}
}

func TestGetOrGenerate_IdempotentOnUnchangedText(t *testing.T) {
	store := newMockRecordStore()
	emb := &countingEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 0, 0}}}
	svc := newTestService(store, emb)
	ctx := context.Background()

	entity := &fakeEntity{id: "lst-1", kind: domain.KindListing, text: "sunny room downtown"}
	first, err := svc.GetOrGenerate(ctx, entity)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := svc.GetOrGenerate(ctx, entity)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if emb.calls.Load() != 1 {
		t.Fatalf("unchanged text must not call the provider again: %d calls", emb.calls.Load())
	}
	if first.ContentHash != second.ContentHash || first.GeneratedAt != second.GeneratedAt {
		t.Fatal("second call must return the cached record unchanged")
	}
}

func TestGetOrGenerate_ChangedTextRegenerates(t *testing.T) {
	store := newMockRecordStore()
	emb := &countingEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 0, 0}}}
	svc := newTestService(store, emb)
	ctx := context.Background()

	entity := &fakeEntity{id: "lst-1", kind: domain.KindListing, text: "sunny room downtown"}
	if _, err := svc.GetOrGenerate(ctx, entity); err != nil {
		t.Fatalf("first call: %v", err)
	}

	// One character changed: the hash changes and exactly one regeneration runs.
	entity.text = "sunny room downtown!"
	if _, err := svc.GetOrGenerate(ctx, entity); err != nil {
		t.Fatalf("second call: %v", err)
	}

	if emb.calls.Load() != 2 {
		t.Fatalf("expected exactly 2 provider calls, got %d", emb.calls.Load())
	}
	if len(store.records) != 1 {
		t.Fatalf("replacement must keep one record per entity, got %d", len(store.records))
	}
}

func TestGetOrGenerate_EmptyTextRejectedWithoutProviderCall(t *testing.T) {
	store := newMockRecordStore()
	emb := &countingEmbedder{}
	svc := newTestService(store, emb)

	entity := &fakeEntity{id: "skr-1", kind: domain.KindSeeker, text: "   \n\t "}
	_, err := svc.GetOrGenerate(context.Background(), entity)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if emb.calls.Load() != 0 {
		t.Fatal("empty text must not reach the provider")
	}
}

func TestGetOrGenerate_ProviderFailureKeepsPriorRecord(t *testing.T) {
	store := newMockRecordStore()
	emb := &countingEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 0, 0}}}
	svc := newTestService(store, emb)
	ctx := context.Background()

	entity := &fakeEntity{id: "lst-1", kind: domain.KindListing, text: "original text"}
	prior, err := svc.GetOrGenerate(ctx, entity)
	if err != nil {
		t.Fatalf("seed call: %v", err)
	}

	emb.err = domain.ErrUpstreamUnavailable
	entity.text = "edited text"
	_, err = svc.GetOrGenerate(ctx, entity)
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected provider error to propagate, got %v", err)
	}

	// Stale-but-valid: the prior record is untouched.
	kept, err := store.Get(ctx, domain.KindListing, "lst-1")
	if err != nil {
		t.Fatalf("prior record lost: %v", err)
	}
	if kept.ContentHash != prior.ContentHash {
		t.Fatal("failed regeneration must leave the prior record untouched")
	}
}

func TestGetOrGenerate_WrongDimensionsIsMalformed(t *testing.T) {
	store := newMockRecordStore()
	emb := &countingEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 0}}} // want 3
	svc := newTestService(store, emb)

	entity := &fakeEntity{id: "lst-1", kind: domain.KindListing, text: "text"}
	_, err := svc.GetOrGenerate(context.Background(), entity)
	if !errors.Is(err, domain.ErrUpstreamMalformed) {
		t.Fatalf("expected ErrUpstreamMalformed, got %v", err)
	}
	if len(store.records) != 0 {
		t.Fatal("malformed vector must not be stored")
	}
}

func TestGetOrGenerate_ConcurrentCallsCoalesce(t *testing.T) {
	store := newMockRecordStore()
	emb := &countingEmbedder{
		result:  domain.EmbeddingResult{Embedding: []float32{1, 0, 0}},
		release: make(chan struct{}),
	}
	svc := newTestService(store, emb)
	entity := &fakeEntity{id: "skr-1", kind: domain.KindSeeker, text: "same text"}

	const n = 16
	var wg sync.WaitGroup
	results := make([]domain.EmbeddingRecord, n)
	errs := make([]error, n)

	var started sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		started.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			results[i], errs[i] = svc.GetOrGenerate(context.Background(), entity)
		}(i)
	}

	started.Wait()
	close(emb.release)
	wg.Wait()

	if got := emb.calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 provider call for %d concurrent callers, got %d", n, got)
	}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i].GeneratedAt != results[0].GeneratedAt ||
			results[i].ContentHash != results[0].ContentHash {
			t.Fatalf("caller %d observed a different record", i)
		}
	}
}

func TestGetOrGenerate_CallerCancellationDoesNotFailFlight(t *testing.T) {
	store := newMockRecordStore()
	emb := &countingEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 0, 0}}}
	svc := newTestService(store, emb)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // abandoned before the call

	entity := &fakeEntity{id: "skr-1", kind: domain.KindSeeker, text: "some text"}
	rec, err := svc.GetOrGenerate(ctx, entity)
	if err != nil {
		t.Fatalf("detached flight must complete: %v", err)
	}
	if len(rec.Vector) != 3 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if len(store.records) != 1 {
		t.Fatal("result must be cached for future callers")
	}
}
