package browser

// Selector cascades for the review listing markup. The source renames
// its hashed class names regularly, so every lookup tries structural
// and data-attribute selectors before class-based ones.

// reviewBlockSelectors locate one review container on a listing page.
var reviewBlockSelectors = []string{
	`div[data-review-uuid]`,
	`div[data-review-id]`,
	`div[itemprop="review"]`,
	`div[data-widget="webListReviews"] > div > div`,
	`div[data-widget="webReviewList"] > div > div`,
}

// reviewsTabSelectors locate the control that switches a product page
// to its reviews view.
var reviewsTabSelectors = []string{
	`a[href*="/reviews"]`,
	`div[data-widget="webReviewProductScore"] a`,
	`button[data-widget="webReviewTabs"]`,
}

// nextPageSelectors locate the pagination "next" control.
var nextPageSelectors = []string{
	`a[aria-label="Дальше"]`,
	`a[aria-label="Next"]`,
	`div[data-widget="webPagination"] a:last-child`,
}

// nextPageXPath finds the next-page link by its visible label, which
// outlives class renames.
const nextPageXPath = `//a[contains(text(), "Дальше") or contains(text(), "Next")]`

// noReviewsXPath matches the source's explicit empty-state marker.
const noReviewsXPath = `//*[contains(text(), "Об этом товаре пока нет отзывов") or contains(text(), "Нет отзывов") or contains(text(), "No reviews yet")]`

// Per-field cascades inside one review block, tried in order.
var (
	authorSelectors = []string{
		`[data-review-author]`,
		`[itemprop="author"]`,
		`div > div > span`,
	}
	ratingSelectors = []string{
		`[data-review-rating]`,
		`[itemprop="ratingValue"]`,
		`div[style*="width"] svg`,
	}
	dateSelectors = []string{
		`[data-review-date]`,
		`[itemprop="datePublished"]`,
		`div > div:nth-child(2)`,
	}
	textSelectors = []string{
		`[data-review-text]`,
		`[itemprop="reviewBody"]`,
		`span[data-state]`,
		`div > span`,
	}
	likesSelectors = []string{
		`[data-review-likes]`,
		`button[aria-label*="Да"] span`,
	}
	dislikesSelectors = []string{
		`[data-review-dislikes]`,
		`button[aria-label*="Нет"] span`,
	}
)
