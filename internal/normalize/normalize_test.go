package normalize

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ilyakm/reviewstalk/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	testProductID  = "123456"
	testProductURL = "https://www.ozon.ru/product/item-123456/"
)

func testNormalizer() *Normalizer {
	n := New(testLogger)
	n.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return n
}

func TestNormalizeComplete(t *testing.T) {
	n := testNormalizer()

	rec, err := n.Normalize(map[string]any{
		FieldReviewID: "rev-42",
		FieldAuthor:   "Анна К.",
		FieldRating:   4,
		FieldDate:     "30 марта 2025",
		FieldText:     "Отличный товар, рекомендую всем!",
		FieldLikes:    7,
		FieldDislikes: 1,
	}, testProductID, testProductURL)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	if rec.ReviewID != "rev-42" {
		t.Errorf("review id = %q", rec.ReviewID)
	}
	if rec.SyntheticID {
		t.Error("explicit ID must not be flagged synthetic")
	}
	if rec.Author != "Анна К." {
		t.Errorf("author = %q", rec.Author)
	}
	if rec.Rating != 4 || rec.Likes != 7 || rec.Dislikes != 1 {
		t.Errorf("counts: rating=%d likes=%d dislikes=%d", rec.Rating, rec.Likes, rec.Dislikes)
	}
	want := time.Date(2025, 3, 30, 0, 0, 0, 0, time.UTC)
	if !rec.PublishedAt.Equal(want) {
		t.Errorf("published = %s, want %s", rec.PublishedAt, want)
	}
	if rec.DateUnreliable {
		t.Error("parsed date must not be flagged unreliable")
	}
	if rec.ProductID != testProductID || rec.ProductURL != testProductURL {
		t.Errorf("product fields: %q %q", rec.ProductID, rec.ProductURL)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := testNormalizer()
	raw := map[string]any{
		FieldReviewID: "rev-1",
		FieldAuthor:   "Иван",
		FieldRating:   5,
		FieldDate:     "01.02.2025",
		FieldText:     "Всё пришло целым и в срок.",
	}

	first, err := n.Normalize(raw, testProductID, testProductURL)
	if err != nil {
		t.Fatalf("first normalize: %v", err)
	}
	second, err := n.Normalize(raw, testProductID, testProductURL)
	if err != nil {
		t.Fatalf("second normalize: %v", err)
	}

	if first != second {
		t.Errorf("normalize not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestNormalizeRejectsShortText(t *testing.T) {
	n := testNormalizer()

	for _, text := range []string{"", "ок", "хорошо", "Пользователь предпочёл скрыть свои данные"} {
		_, err := n.Normalize(map[string]any{
			FieldReviewID: "rev-1",
			FieldText:     text,
			FieldDate:     "01.02.2025",
		}, testProductID, testProductURL)
		if !errors.Is(err, ErrRejected) {
			t.Errorf("text %q: err = %v, want ErrRejected", text, err)
		}
	}
}

func TestNormalizePlaceholderAuthor(t *testing.T) {
	n := testNormalizer()

	rec, err := n.Normalize(map[string]any{
		FieldReviewID: "rev-1",
		FieldText:     "Товар соответствует описанию, доставка быстрая.",
		FieldDate:     "01.02.2025",
	}, testProductID, testProductURL)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if rec.Author != UnknownAuthor {
		t.Errorf("author = %q, want %q", rec.Author, UnknownAuthor)
	}
}

func TestNormalizeAuthorTruncatedToTwoWords(t *testing.T) {
	n := testNormalizer()

	rec, err := n.Normalize(map[string]any{
		FieldReviewID: "rev-1",
		FieldAuthor:   "Иван Иванович Иванов старший",
		FieldText:     "Товар соответствует описанию, доставка быстрая.",
		FieldDate:     "01.02.2025",
	}, testProductID, testProductURL)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if rec.Author != "Иван Иванович" {
		t.Errorf("author = %q, want first two words", rec.Author)
	}
}

func TestNormalizeSyntheticID(t *testing.T) {
	n := testNormalizer()
	raw := map[string]any{
		FieldText: "Очень достойный товар за свои деньги.",
		FieldDate: "01.02.2025",
	}

	first, err := n.Normalize(raw, testProductID, testProductURL)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !first.SyntheticID {
		t.Error("missing ID must be flagged synthetic")
	}
	if first.ReviewID == "" {
		t.Error("synthetic ID must not be empty")
	}

	second, _ := n.Normalize(raw, testProductID, testProductURL)
	if first.ReviewID == second.ReviewID {
		t.Error("synthetic IDs must be freshly minted per record")
	}
}

func TestNormalizeUnreliableDate(t *testing.T) {
	n := testNormalizer()

	rec, err := n.Normalize(map[string]any{
		FieldReviewID: "rev-1",
		FieldText:     "Очень достойный товар за свои деньги.",
		FieldDate:     "позавчера",
	}, testProductID, testProductURL)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !rec.DateUnreliable {
		t.Error("unparseable date must be flagged unreliable")
	}
	if !rec.PublishedAt.Equal(rec.CollectedAt) {
		t.Errorf("published %s should fall back to collected %s", rec.PublishedAt, rec.CollectedAt)
	}
}

func TestNormalizeRatingClamped(t *testing.T) {
	n := testNormalizer()
	tests := []struct {
		in, want int
	}{
		{-3, 0},
		{0, 0},
		{5, 5},
		{17, types.RatingMax},
	}

	for _, tt := range tests {
		rec, err := n.Normalize(map[string]any{
			FieldReviewID: "rev-1",
			FieldRating:   tt.in,
			FieldText:     "Очень достойный товар за свои деньги.",
			FieldDate:     "01.02.2025",
		}, testProductID, testProductURL)
		if err != nil {
			t.Fatalf("normalize rating %d: %v", tt.in, err)
		}
		if rec.Rating != tt.want {
			t.Errorf("rating %d clamped to %d, want %d", tt.in, rec.Rating, tt.want)
		}
	}
}
