package domain

// Book represents a shared book recommendation.
//
// OwnerID is set exactly once at creation and never reassigned; only the
// owning user may delete the book. The JSON key "user" matches the wire
// format clients already depend on.
type Book struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Caption       string  `json:"caption"`
	Rating        float64 `json:"rating"`
	Image         string  `json:"image"`                    // Canonical image-host URL, never the raw upload payload
	ImageBlurhash string  `json:"image_blurhash,omitempty"` // Low-res placeholder, best effort
	OwnerID       string  `json:"user"`
	Timestamps
}

// IsOwnedBy reports whether the book belongs to the given user ID.
// Ownership is compared by opaque identifier value.
func (b *Book) IsOwnedBy(userID string) bool {
	return b.OwnerID != "" && b.OwnerID == userID
}
