package crawler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ilyakm/reviewstalk/internal/types"
)

// Two accepted product URL shapes: a trailing "-<digits>/" path segment,
// or an "id=<digits>" query parameter.
var (
	reSlugID  = regexp.MustCompile(`/product/[^?#]*?-(\d+)/?(?:[?#]|$)`)
	reQueryID = regexp.MustCompile(`[?&]id=(\d+)`)
)

// ExtractProductID resolves the numeric product ID from a listing URL.
// Returns ErrInvalidProductURL when neither shape matches.
func ExtractProductID(rawURL string) (string, error) {
	if m := reSlugID.FindStringSubmatch(rawURL); m != nil {
		return m[1], nil
	}
	if m := reQueryID.FindStringSubmatch(rawURL); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: %s", types.ErrInvalidProductURL, rawURL)
}

// ReviewListingURL derives the direct review-listing URL for a product
// page by appending the reviews path segment. Tracking parameters and
// fragments are dropped, but for URLs whose only product identity is the
// id query parameter, that parameter is kept.
func ReviewListingURL(productURL string) string {
	base := productURL
	if i := strings.IndexByte(base, '#'); i >= 0 {
		base = base[:i]
	}
	var query string
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base, query = base[:i], base[i:]
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	listing := base + "reviews/"

	if reSlugID.FindStringSubmatch(base) == nil {
		if m := reQueryID.FindStringSubmatch(query); m != nil {
			listing += "?id=" + m[1]
		}
	}
	return listing
}
