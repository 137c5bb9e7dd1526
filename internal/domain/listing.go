package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Listing is the room listing aggregate (immutable value object).
type Listing struct {
	id            string
	listerID      string
	title         string
	description   string
	location      string
	rentPerMonth  float64
	roomType      string
	amenities     []string
	availableFrom string
	photoRefs     []string
	createdAt     time.Time
}

// NewListing validates and creates a Listing.
// Title, location, a positive rent, and an available-from date are required.
func NewListing(
	id, listerID, title, description, location string,
	rentPerMonth float64, roomType string,
	amenities []string, availableFrom string, photoRefs []string,
) (Listing, error) {
	if id == "" {
		return Listing{}, fmt.Errorf("%w: listing id is required", ErrValidation)
	}
	if listerID == "" {
		return Listing{}, fmt.Errorf("%w: lister id is required", ErrValidation)
	}
	if strings.TrimSpace(title) == "" {
		return Listing{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(location) == "" {
		return Listing{}, fmt.Errorf("%w: location is required", ErrValidation)
	}
	if rentPerMonth <= 0 {
		return Listing{}, fmt.Errorf("%w: rent must be positive", ErrValidation)
	}
	if availableFrom == "" {
		return Listing{}, fmt.Errorf("%w: available_from is required", ErrValidation)
	}
	if _, err := time.Parse("2006-01-02", availableFrom); err != nil {
		return Listing{}, fmt.Errorf("%w: available_from must be YYYY-MM-DD", ErrValidation)
	}

	return Listing{
		id:            id,
		listerID:      listerID,
		title:         title,
		description:   description,
		location:      location,
		rentPerMonth:  rentPerMonth,
		roomType:      roomType,
		amenities:     cleanAmenities(amenities),
		availableFrom: availableFrom,
		photoRefs:     cloneStrings(photoRefs),
		createdAt:     time.Now().UTC(),
	}, nil
}

// ReconstructListing hydrates a Listing from storage without validation.
func ReconstructListing(
	id, listerID, title, description, location string,
	rentPerMonth float64, roomType string,
	amenities []string, availableFrom string, photoRefs []string,
	createdAt time.Time,
) Listing {
	return Listing{
		id: id, listerID: listerID, title: title, description: description,
		location: location, rentPerMonth: rentPerMonth, roomType: roomType,
		amenities: amenities, availableFrom: availableFrom, photoRefs: photoRefs,
		createdAt: createdAt,
	}
}

// EntityID returns the listing identifier.
func (l *Listing) EntityID() string { return l.id }

// Kind returns KindListing.
func (l *Listing) Kind() EntityKind { return KindListing }

// ListerID returns the owning lister identifier.
func (l *Listing) ListerID() string { return l.listerID }

// Title returns the listing title.
func (l *Listing) Title() string { return l.title }

// Description returns the free-text description.
func (l *Listing) Description() string { return l.description }

// Location returns the listing location.
func (l *Listing) Location() string { return l.location }

// RentPerMonth returns the monthly rent.
func (l *Listing) RentPerMonth() float64 { return l.rentPerMonth }

// RoomType returns the room type (private, shared, ...).
func (l *Listing) RoomType() string { return l.roomType }

// Amenities returns the amenity set, deduplicated and trimmed.
func (l *Listing) Amenities() []string { return l.amenities }

// AvailableFrom returns the availability date (YYYY-MM-DD).
func (l *Listing) AvailableFrom() string { return l.availableFrom }

// PhotoRefs returns optional photo asset references.
func (l *Listing) PhotoRefs() []string { return l.photoRefs }

// CreatedAt returns the creation timestamp.
func (l *Listing) CreatedAt() time.Time { return l.createdAt }

// CanonicalText concatenates the embeddable fields. Amenities are sorted
// lexicographically so their order cannot spuriously invalidate the cache.
// Photo refs and rent are intentionally excluded: they carry no semantics
// for the embedding model.
func (l *Listing) CanonicalText() string {
	sorted := make([]string, len(l.amenities))
	copy(sorted, l.amenities)
	sort.Strings(sorted)

	parts := []string{
		normalizeWhitespace(l.title),
		normalizeWhitespace(l.description),
		normalizeWhitespace(l.location),
		normalizeWhitespace(l.roomType),
		strings.Join(sorted, ", "),
	}

	nonEmpty := parts[:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ". ")
}

func cleanAmenities(amenities []string) []string {
	seen := make(map[string]struct{}, len(amenities))
	out := make([]string, 0, len(amenities))
	for _, a := range amenities {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}
