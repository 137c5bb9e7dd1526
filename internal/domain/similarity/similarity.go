// Package similarity implements the in-process cosine ranking engine.
package similarity

import (
	"math"
	"sort"

	"github.com/kailas-cloud/roommatch/internal/domain"
)

// Hit is one ranked candidate.
type Hit struct {
	EntityID string
	Score    float64
}

// Report carries data-integrity counters alongside the ranked hits.
// Skipped candidates are a warning for the caller to log, never an error.
type Report struct {
	Hits          []Hit
	DimMismatched int
	ZeroMagnitude int
}

// Cosine returns dot(a,b)/(|a||b|) in [-1,1]. The second return is false
// when either vector has zero magnitude, where cosine is undefined.
func Cosine(a, b []float32) (float64, bool) {
	if len(a) != len(b) {
		return 0, false
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}

// Search ranks candidates against the query vector.
//
// Candidates whose vector length differs from the query, and candidates with
// zero magnitude (undefined cosine), are excluded and counted; they must
// never crash the search or rank silently as score 0. Survivors below the
// threshold are discarded. Results are sorted by descending score with ties
// broken by ascending entity id, independent of input order, then truncated
// to limit.
func Search(query []float32, candidates []domain.EmbeddingRecord, threshold float64, limit int) Report {
	var rep Report

	// A zero-magnitude query has undefined cosine against everything:
	// no candidate can be ranked, so the result is empty by definition.
	var queryNorm float64
	for _, v := range query {
		queryNorm += float64(v) * float64(v)
	}
	if queryNorm == 0 {
		return rep
	}

	hits := make([]Hit, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Vector) != len(query) {
			rep.DimMismatched++
			continue
		}
		score, ok := Cosine(query, c.Vector)
		if !ok {
			// Same-length vectors failing here have zero magnitude.
			rep.ZeroMagnitude++
			continue
		}
		if score < threshold {
			continue
		}
		hits = append(hits, Hit{EntityID: c.EntityID, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].EntityID < hits[j].EntityID
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	rep.Hits = hits
	return rep
}
