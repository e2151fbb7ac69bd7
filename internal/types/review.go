package types

import (
	"encoding/json"
	"strings"
	"time"
)

// RatingMax is the highest rating the source can express. A rating of 0
// means the rating could not be extracted.
const RatingMax = 5

// ReviewRecord is one normalized customer review. Records are produced by
// the normalizer and are immutable from then on.
type ReviewRecord struct {
	// ReviewID identifies the review within its product's review set.
	// When the source exposed no stable identifier, the ID is synthesized
	// and SyntheticID is set.
	ReviewID   string `json:"review_id"  bson:"review_id"`
	ProductID  string `json:"product_id" bson:"product_id"`
	ProductURL string `json:"product_url" bson:"product_url"`

	// Author is the display name of the reviewer, "unknown" when hidden.
	Author string `json:"author" bson:"author"`

	// Rating is 0..5, with 0 meaning unknown.
	Rating int `json:"rating" bson:"rating"`

	// PublishedAt is the review's publication date, normalized to a
	// calendar date (midnight UTC).
	PublishedAt time.Time `json:"published_at" bson:"published_at"`

	Text     string `json:"text"  bson:"text"`
	Likes    int    `json:"likes" bson:"likes"`
	Dislikes int    `json:"dislikes" bson:"dislikes"`

	// CollectedAt is set at normalization time, never by the adapter.
	CollectedAt time.Time `json:"collected_at" bson:"collected_at"`

	// SyntheticID marks an ID minted by the normalizer. Synthetic IDs
	// cannot match across runs and are excluded from cross-run
	// deduplication and from the watermark's recent-ID window.
	SyntheticID bool `json:"synthetic_id,omitempty" bson:"synthetic_id,omitempty"`

	// DateUnreliable marks a record whose date could not be parsed and
	// was defaulted to collection time. Unreliable dates are always
	// treated as new by the incremental filter.
	DateUnreliable bool `json:"date_unreliable,omitempty" bson:"date_unreliable,omitempty"`
}

// Valid reports whether the record may enter the dedup filter. Records
// with an empty ID or empty text are dropped before that point.
func (r *ReviewRecord) Valid() bool {
	return strings.TrimSpace(r.ReviewID) != "" && strings.TrimSpace(r.Text) != ""
}

// ToJSON serializes the record.
func (r *ReviewRecord) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
