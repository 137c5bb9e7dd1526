package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// EntityKind discriminates the two embeddable entity types.
type EntityKind string

const (
	// KindSeeker is a person looking for a room.
	KindSeeker EntityKind = "seeker"
	// KindListing is a published room listing.
	KindListing EntityKind = "listing"
)

// Entity is anything that can be canonicalized and embedded.
type Entity interface {
	EntityID() string
	Kind() EntityKind
	// CanonicalText returns the deterministic, whitespace-normalized
	// embedding input for the entity.
	CanonicalText() string
}

// ContentHash returns the SHA-256 hex digest of canonical text.
// Equal text always yields an equal hash; collisions are an accepted
// approximation for cache invalidation, not a security property.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// normalizeWhitespace collapses runs of whitespace into single spaces and
// trims the ends, so formatting differences do not invalidate the hash.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
