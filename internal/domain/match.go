package domain

// MatchResult is one ranked match for a seeker. Ephemeral: computed per
// query, never persisted. Ordering (descending score) is significant and
// reproducible for identical inputs.
type MatchResult struct {
	ListingID string
	Score     float64
	Listing   Listing
}
