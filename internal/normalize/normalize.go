// Package normalize converts raw field candidates supplied by a page
// automation adapter into validated review records. It is pure: the same
// input always yields the same record, and nothing outside the returned
// value is touched.
package normalize

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ilyakm/reviewstalk/internal/types"
)

// Raw field keys the adapter may supply. Values are string, int, or nil.
const (
	FieldReviewID = "review_id"
	FieldAuthor   = "author"
	FieldRating   = "rating"
	FieldDate     = "date"
	FieldText     = "text"
	FieldLikes    = "likes"
	FieldDislikes = "dislikes"
)

// MinTextLength is the minimum review text length (in runes) after
// placeholder stripping. Anything shorter is UI noise, not content.
const MinTextLength = 10

// ErrRejected marks input that does not describe a usable review.
var ErrRejected = errors.New("record rejected")

// placeholderPhrases are UI fallback strings the source renders in place
// of real content. They must not pollute the dataset.
var placeholderPhrases = []string{
	"Пользователь предпочёл скрыть свои данные",
	"Пользователь предпочел скрыть свои данные",
	"user chose to hide their data",
	"Отзыв скрыт",
}

// UnknownAuthor is the canonical author value when the name is hidden.
const UnknownAuthor = "unknown"

// Normalizer builds ReviewRecords out of raw adapter output.
type Normalizer struct {
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Normalizer.
func New(logger *slog.Logger) *Normalizer {
	return &Normalizer{
		logger: logger.With("component", "normalizer"),
		now:    time.Now,
	}
}

// Normalize validates raw fields and produces a canonical record.
// A non-nil error always wraps ErrRejected.
func (n *Normalizer) Normalize(raw map[string]any, productID, productURL string) (types.ReviewRecord, error) {
	text := stripPlaceholders(asString(raw[FieldText]))
	if utf8.RuneCountInString(text) < MinTextLength {
		return types.ReviewRecord{}, fmt.Errorf("%w: text too short (%d runes)", ErrRejected, utf8.RuneCountInString(text))
	}

	rec := types.ReviewRecord{
		ProductID:   productID,
		ProductURL:  productURL,
		Text:        text,
		Author:      normalizeAuthor(asString(raw[FieldAuthor])),
		Rating:      clampRating(asInt(raw[FieldRating])),
		Likes:       max(0, asInt(raw[FieldLikes])),
		Dislikes:    max(0, asInt(raw[FieldDislikes])),
		CollectedAt: n.now(),
	}

	if id := strings.TrimSpace(asString(raw[FieldReviewID])); id != "" {
		rec.ReviewID = id
	} else {
		// No stable identifier on the page. A minted ID can never match
		// across runs, so it is flagged for the incremental filter.
		rec.ReviewID = uuid.NewString()
		rec.SyntheticID = true
	}

	if date, ok := ParseReviewDate(asString(raw[FieldDate])); ok {
		rec.PublishedAt = date
	} else {
		// An unparseable date falls back to "now" and is flagged so the
		// incremental filter always treats the record as new.
		rec.PublishedAt = rec.CollectedAt
		rec.DateUnreliable = true
		n.logger.Debug("unparseable review date", "raw", asString(raw[FieldDate]), "product_id", productID)
	}

	if !rec.Valid() {
		return types.ReviewRecord{}, fmt.Errorf("%w: incomplete record", ErrRejected)
	}
	return rec, nil
}

// stripPlaceholders removes known UI fallback strings and trims the rest.
func stripPlaceholders(text string) string {
	for _, phrase := range placeholderPhrases {
		text = strings.ReplaceAll(text, phrase, "")
	}
	return strings.TrimSpace(text)
}

// normalizeAuthor keeps at most the first two words of the display name.
func normalizeAuthor(author string) string {
	author = strings.TrimSpace(author)
	if author == "" {
		return UnknownAuthor
	}
	parts := strings.Fields(author)
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, " ")
}

func clampRating(r int) int {
	if r < 0 {
		return 0
	}
	if r > types.RatingMax {
		return types.RatingMax
	}
	return r
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
