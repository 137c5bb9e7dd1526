package similarity

import (
	"math"
	"testing"

	"github.com/kailas-cloud/roommatch/internal/domain"
)

func rec(id string, v ...float32) domain.EmbeddingRecord {
	return domain.EmbeddingRecord{EntityID: id, Kind: domain.KindListing, Vector: v}
}

func TestCosine_Symmetry(t *testing.T) {
	a := []float32{0.3, -0.7, 0.2}
	b := []float32{0.1, 0.9, -0.4}

	ab, okAB := Cosine(a, b)
	ba, okBA := Cosine(b, a)
	if !okAB || !okBA {
		t.Fatal("cosine should be defined for nonzero vectors")
	}
	if ab != ba {
		t.Fatalf("cosine(a,b)=%v != cosine(b,a)=%v", ab, ba)
	}
}

func TestCosine_SelfSimilarity(t *testing.T) {
	a := []float32{0.3, -0.7, 0.2}
	s, ok := Cosine(a, a)
	if !ok {
		t.Fatal("cosine(a,a) should be defined")
	}
	if math.Abs(s-1.0) > 1e-9 {
		t.Fatalf("cosine(a,a)=%v, want ~1", s)
	}
}

func TestCosine_ZeroVectorUndefined(t *testing.T) {
	if _, ok := Cosine([]float32{0, 0}, []float32{1, 0}); ok {
		t.Fatal("cosine with zero vector must be undefined")
	}
	if _, ok := Cosine([]float32{1, 0}, []float32{1, 0, 0}); ok {
		t.Fatal("cosine with mismatched lengths must be undefined")
	}
}

func TestSearch_EndToEndExample(t *testing.T) {
	// Query [1,0]; L1 [1,0] scores 1.0, L3 [0.9,0.1] scores ~0.994,
	// L2 [0,1] scores 0.0 and falls below the 0.5 threshold.
	query := []float32{1, 0}
	candidates := []domain.EmbeddingRecord{
		rec("L2", 0, 1),
		rec("L3", 0.9, 0.1),
		rec("L1", 1, 0),
	}

	rep := Search(query, candidates, 0.5, 2)
	if len(rep.Hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(rep.Hits))
	}
	if rep.Hits[0].EntityID != "L1" || rep.Hits[1].EntityID != "L3" {
		t.Fatalf("wrong order: %+v", rep.Hits)
	}
	if math.Abs(rep.Hits[0].Score-1.0) > 1e-9 {
		t.Fatalf("L1 score %v, want 1.0", rep.Hits[0].Score)
	}
	if math.Abs(rep.Hits[1].Score-0.993884) > 1e-3 {
		t.Fatalf("L3 score %v, want ~0.994", rep.Hits[1].Score)
	}
}

func TestSearch_DeterministicTieBreak(t *testing.T) {
	query := []float32{1, 0}
	// Two identical vectors score the same; ties break by ascending id.
	candidates := []domain.EmbeddingRecord{
		rec("zzz", 1, 0),
		rec("aaa", 1, 0),
	}

	rep := Search(query, candidates, 0.5, 10)
	if len(rep.Hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(rep.Hits))
	}
	if rep.Hits[0].EntityID != "aaa" || rep.Hits[1].EntityID != "zzz" {
		t.Fatalf("ties must break by ascending id: %+v", rep.Hits)
	}

	// Reversed store order must not change the result.
	rep2 := Search(query, []domain.EmbeddingRecord{rec("aaa", 1, 0), rec("zzz", 1, 0)}, 0.5, 10)
	if rep2.Hits[0].EntityID != "aaa" {
		t.Fatalf("result order depends on input order: %+v", rep2.Hits)
	}
}

func TestSearch_SortedDescendingAboveThreshold(t *testing.T) {
	query := []float32{1, 0}
	candidates := []domain.EmbeddingRecord{
		rec("a", 0.5, 0.5),
		rec("b", 1, 0),
		rec("c", 0.9, 0.1),
		rec("d", -1, 0),
	}

	rep := Search(query, candidates, 0.6, 10)
	for i := 1; i < len(rep.Hits); i++ {
		if rep.Hits[i].Score > rep.Hits[i-1].Score {
			t.Fatalf("hits not sorted descending: %+v", rep.Hits)
		}
	}
	for _, h := range rep.Hits {
		if h.Score < 0.6 {
			t.Fatalf("hit below threshold: %+v", h)
		}
	}
}

func TestSearch_SkipsCorruptCandidates(t *testing.T) {
	query := []float32{1, 0}
	candidates := []domain.EmbeddingRecord{
		rec("good", 1, 0),
		rec("short", 1),
		rec("long", 1, 0, 0),
		rec("zero", 0, 0),
	}

	rep := Search(query, candidates, 0.0, 10)
	if len(rep.Hits) != 1 || rep.Hits[0].EntityID != "good" {
		t.Fatalf("expected only the valid candidate, got %+v", rep.Hits)
	}
	if rep.DimMismatched != 2 {
		t.Fatalf("expected 2 dim mismatches, got %d", rep.DimMismatched)
	}
	if rep.ZeroMagnitude != 1 {
		t.Fatalf("expected 1 zero-magnitude candidate, got %d", rep.ZeroMagnitude)
	}
}

func TestSearch_ZeroMagnitudeQuery(t *testing.T) {
	rep := Search([]float32{0, 0}, []domain.EmbeddingRecord{rec("a", 1, 0)}, 0.0, 10)
	if len(rep.Hits) != 0 {
		t.Fatalf("zero query must yield no hits, got %+v", rep.Hits)
	}
}

func TestSearch_LimitTruncates(t *testing.T) {
	query := []float32{1, 0}
	candidates := []domain.EmbeddingRecord{
		rec("a", 1, 0), rec("b", 0.9, 0.1), rec("c", 0.8, 0.2),
	}

	rep := Search(query, candidates, 0.0, 2)
	if len(rep.Hits) != 2 {
		t.Fatalf("expected limit to truncate to 2, got %d", len(rep.Hits))
	}
}
