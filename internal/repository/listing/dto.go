package listing

import (
	"time"

	"github.com/kailas-cloud/roommatch/internal/domain"
)

// listingDTO is the persisted shape of a listing. Field names follow the
// relational schema the matching engine shares with the lister flow.
type listingDTO struct {
	ID            string   `json:"id"`
	ListerID      string   `json:"lister_id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Location      string   `json:"location"`
	RentPerMonth  float64  `json:"rent_per_month"`
	RoomType      string   `json:"room_type"`
	Amenities     []string `json:"amenities"`
	AvailableFrom string   `json:"available_from"`
	PhotoRefs     []string `json:"photo_refs,omitempty"`
	CreatedAt     int64    `json:"created_at"` // unix millis
}

func buildListingDTO(l domain.Listing) listingDTO {
	return listingDTO{
		ID:            l.EntityID(),
		ListerID:      l.ListerID(),
		Title:         l.Title(),
		Description:   l.Description(),
		Location:      l.Location(),
		RentPerMonth:  l.RentPerMonth(),
		RoomType:      l.RoomType(),
		Amenities:     l.Amenities(),
		AvailableFrom: l.AvailableFrom(),
		PhotoRefs:     l.PhotoRefs(),
		CreatedAt:     l.CreatedAt().UnixMilli(),
	}
}

func (d listingDTO) toDomain() domain.Listing {
	return domain.ReconstructListing(
		d.ID, d.ListerID, d.Title, d.Description, d.Location,
		d.RentPerMonth, d.RoomType, d.Amenities, d.AvailableFrom, d.PhotoRefs,
		time.UnixMilli(d.CreatedAt).UTC(),
	)
}
