package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/net/html"

	"github.com/ilyakm/reviewstalk/internal/config"
	"github.com/ilyakm/reviewstalk/internal/crawler"
	"github.com/ilyakm/reviewstalk/internal/normalize"
)

// ListingAdapter drives one page through a review listing. It renders
// the page in the browser, then reads the rendered markup with goquery
// so field extraction never races the DOM.
type ListingAdapter struct {
	page   *rod.Page
	cfg    config.BrowserConfig
	logger *slog.Logger

	// doc is the parsed snapshot of the current listing page. It is
	// refreshed on every Open/NextPage.
	doc     *goquery.Document
	docNode *html.Node
	pageNum int
}

func newListingAdapter(page *rod.Page, cfg config.BrowserConfig, logger *slog.Logger) *ListingAdapter {
	return &ListingAdapter{
		page:   page,
		cfg:    cfg,
		logger: logger.With("component", "listing_adapter"),
	}
}

// Open navigates to the URL, waits for the page to settle, and takes a
// markup snapshot. Navigation is retried because the source throttles
// cold connections.
func (a *ListingAdapter) Open(ctx context.Context, rawURL string) error {
	var lastErr error
	for attempt := 1; attempt <= a.cfg.MaxOpenRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.navigate(rawURL); err != nil {
			lastErr = err
			a.logger.Warn("navigation attempt failed",
				"url", rawURL, "attempt", attempt, "error", err)
			sleepCtx(ctx, time.Duration(attempt)*2*time.Second)
			continue
		}
		a.pageNum = 1
		return a.snapshot()
	}
	return fmt.Errorf("open %s after %d attempts: %w", rawURL, a.cfg.MaxOpenRetries, lastErr)
}

func (a *ListingAdapter) navigate(rawURL string) error {
	if err := a.page.Timeout(a.cfg.RequestTimeout).Navigate(rawURL); err != nil {
		return err
	}
	if err := a.page.Timeout(a.cfg.RequestTimeout).WaitStable(500 * time.Millisecond); err != nil {
		a.logger.Debug("page stability timeout, continuing", "url", rawURL)
	}
	a.humanScroll()
	return nil
}

// humanScroll scrolls down the page in uneven steps so lazy-loaded
// review blocks render.
func (a *ListingAdapter) humanScroll() {
	steps := []int{400, 700, 500, 900}
	for _, dy := range steps {
		if _, err := a.page.Eval(fmt.Sprintf(`() => window.scrollBy(0, %d)`, dy)); err != nil {
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	_, _ = a.page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	time.Sleep(400 * time.Millisecond)
}

// snapshot re-reads the rendered markup into goquery and htmlquery
// trees.
func (a *ListingAdapter) snapshot() error {
	raw, err := a.page.HTML()
	if err != nil {
		return fmt.Errorf("read page html: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return fmt.Errorf("parse page html: %w", err)
	}
	node, err := htmlquery.Parse(strings.NewReader(raw))
	if err != nil {
		return fmt.Errorf("parse page html: %w", err)
	}

	a.doc = doc
	a.docNode = node
	return nil
}

// ActivateReviewsTab clicks through the reviews-tab cascade on an open
// product page.
func (a *ListingAdapter) ActivateReviewsTab(ctx context.Context) error {
	for _, sel := range reviewsTabSelectors {
		el, err := a.page.Timeout(5 * time.Second).Element(sel)
		if err != nil {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			a.logger.Debug("reviews tab click failed", "selector", sel, "error", err)
			continue
		}
		if err := a.page.Timeout(a.cfg.RequestTimeout).WaitStable(500 * time.Millisecond); err != nil {
			a.logger.Debug("page stability timeout after tab click")
		}
		a.humanScroll()
		return a.snapshot()
	}
	return fmt.Errorf("no reviews tab control found")
}

// ListReviewElements returns the review blocks on the current snapshot,
// in page order.
func (a *ListingAdapter) ListReviewElements(ctx context.Context) ([]crawler.Element, error) {
	if a.doc == nil {
		return nil, fmt.Errorf("no page snapshot, call Open first")
	}

	for _, sel := range reviewBlockSelectors {
		matches := a.doc.Find(sel)
		if matches.Length() == 0 {
			continue
		}
		elements := make([]crawler.Element, 0, matches.Length())
		matches.Each(func(_ int, s *goquery.Selection) {
			elements = append(elements, s)
		})
		a.logger.Debug("review blocks located", "selector", sel, "count", len(elements))
		return elements, nil
	}

	a.saveDebugScreenshot()
	return nil, nil
}

// ExtractFields reads one review block's raw field candidates.
func (a *ListingAdapter) ExtractFields(el crawler.Element) (map[string]any, error) {
	s, ok := el.(*goquery.Selection)
	if !ok {
		return nil, fmt.Errorf("unexpected element type %T", el)
	}

	fields := map[string]any{}

	if id := blockID(s); id != "" {
		fields[normalize.FieldReviewID] = id
	}
	if author := firstText(s, authorSelectors); author != "" {
		fields[normalize.FieldAuthor] = author
	}
	if rating, ok := extractRating(s); ok {
		fields[normalize.FieldRating] = rating
	}
	if date := firstText(s, dateSelectors); date != "" {
		fields[normalize.FieldDate] = date
	}
	if text := firstText(s, textSelectors); text != "" {
		fields[normalize.FieldText] = text
	}
	if likes, ok := firstInt(s, likesSelectors); ok {
		fields[normalize.FieldLikes] = likes
	}
	if dislikes, ok := firstInt(s, dislikesSelectors); ok {
		fields[normalize.FieldDislikes] = dislikes
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("review block yielded no fields")
	}
	return fields, nil
}

// HasNoReviewsIndicator checks the snapshot for the source's explicit
// empty-state text.
func (a *ListingAdapter) HasNoReviewsIndicator(ctx context.Context) bool {
	if a.docNode == nil {
		return false
	}
	node, err := htmlquery.QueryAll(a.docNode, noReviewsXPath)
	if err != nil {
		return false
	}
	return len(node) > 0
}

// NextPage advances the listing. It prefers following the pagination
// link's href, falls back to deriving a ?page=N URL, and clicks the
// control as a last resort.
func (a *ListingAdapter) NextPage(ctx context.Context) bool {
	if href := a.nextPageHref(); href != "" {
		if err := a.navigate(href); err != nil {
			a.logger.Warn("next page navigation failed", "url", href, "error", err)
			return false
		}
		if err := a.snapshot(); err != nil {
			return false
		}
		a.pageNum++
		return true
	}

	if derived := a.derivedNextURL(); derived != "" {
		if err := a.navigate(derived); err != nil {
			a.logger.Warn("derived next page failed", "url", derived, "error", err)
			return false
		}
		if err := a.snapshot(); err != nil {
			return false
		}
		a.pageNum++
		return true
	}

	return a.clickNextPage()
}

// nextPageHref resolves the pagination link's target against the
// current page URL.
func (a *ListingAdapter) nextPageHref() string {
	if a.docNode == nil {
		return ""
	}
	node, err := htmlquery.Query(a.docNode, nextPageXPath)
	if err != nil || node == nil {
		return ""
	}
	href := htmlquery.SelectAttr(node, "href")
	if href == "" {
		return ""
	}
	return a.resolveURL(href)
}

// derivedNextURL builds the next page URL from the current one when the
// listing uses a ?page=N query parameter.
func (a *ListingAdapter) derivedNextURL() string {
	info, err := a.page.Info()
	if err != nil || info == nil {
		return ""
	}
	u, err := url.Parse(info.URL)
	if err != nil {
		return ""
	}

	q := u.Query()
	if q.Get("page") == "" && a.pageNum == 1 {
		// Some listings only start carrying the parameter from page 2.
		// Derive it only if pagination controls exist at all.
		if !a.hasPaginationControls() {
			return ""
		}
	}
	q.Set("page", strconv.Itoa(a.pageNum+1))
	u.RawQuery = q.Encode()
	return u.String()
}

func (a *ListingAdapter) hasPaginationControls() bool {
	if a.doc == nil {
		return false
	}
	for _, sel := range nextPageSelectors {
		if a.doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

func (a *ListingAdapter) clickNextPage() bool {
	for _, sel := range nextPageSelectors {
		el, err := a.page.Timeout(3 * time.Second).Element(sel)
		if err != nil {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			continue
		}
		if err := a.page.Timeout(a.cfg.RequestTimeout).WaitStable(500 * time.Millisecond); err != nil {
			a.logger.Debug("page stability timeout after pagination click")
		}
		a.humanScroll()
		if err := a.snapshot(); err != nil {
			return false
		}
		a.pageNum++
		return true
	}
	return false
}

func (a *ListingAdapter) resolveURL(href string) string {
	info, err := a.page.Info()
	if err != nil || info == nil {
		return href
	}
	base, err := url.Parse(info.URL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// saveDebugScreenshot captures the page when no review blocks matched,
// so selector drift can be diagnosed offline.
func (a *ListingAdapter) saveDebugScreenshot() {
	if !a.cfg.Debug {
		return
	}
	shot, err := a.page.Screenshot(false, nil)
	if err != nil {
		a.logger.Warn("debug screenshot failed", "error", err)
		return
	}
	if err := os.MkdirAll(a.cfg.DebugDir, 0o755); err != nil {
		return
	}
	name := filepath.Join(a.cfg.DebugDir, fmt.Sprintf("page_%d_%d.png", a.pageNum, time.Now().Unix()))
	if err := os.WriteFile(name, shot, 0o644); err != nil {
		a.logger.Warn("debug screenshot write failed", "error", err)
		return
	}
	a.logger.Info("debug screenshot saved", "path", name)
}

// Close releases the page.
func (a *ListingAdapter) Close() error {
	if a.page == nil {
		return nil
	}
	return a.page.Close()
}

// --- field helpers ---

// blockID prefers the source's stable review identifier attributes.
func blockID(s *goquery.Selection) string {
	for _, attr := range []string{"data-review-uuid", "data-review-id"} {
		if v, ok := s.Attr(attr); ok && v != "" {
			return v
		}
	}
	return ""
}

// firstText returns the first non-empty trimmed text across a selector
// cascade.
func firstText(s *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if t := strings.TrimSpace(s.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// firstInt parses the first selector match as an integer.
func firstInt(s *goquery.Selection, selectors []string) (int, bool) {
	raw := firstText(s, selectors)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return n, true
}

var reStyleWidth = regexp.MustCompile(`width:\s*(\d+)%`)

// extractRating tries explicit rating attributes first, then the star
// bar's style width (100% = 5 stars).
func extractRating(s *goquery.Selection) (int, bool) {
	for _, sel := range ratingSelectors {
		match := s.Find(sel).First()
		if match.Length() == 0 {
			continue
		}
		if v, ok := match.Attr("content"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n, true
			}
		}
		if t := strings.TrimSpace(match.Text()); t != "" {
			if n, err := strconv.Atoi(t); err == nil {
				return n, true
			}
		}
		if style, ok := match.Attr("style"); ok {
			if m := reStyleWidth.FindStringSubmatch(style); m != nil {
				pct, _ := strconv.Atoi(m[1])
				return (pct + 10) / 20, true
			}
		}
	}
	return 0, false
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
