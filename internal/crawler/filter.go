package crawler

import (
	"github.com/ilyakm/reviewstalk/internal/types"
)

// FilterNew decides, per record, whether it is already known. It is a
// pure per-record predicate with no cross-record state, so the result is
// identical regardless of input order (page order is not stable across
// site re-renders). It never decides whether the traversal should stop.
//
// Full mode passes everything through. Incremental mode with an empty
// watermark also passes everything through: no baseline means a full sync
// is forced regardless of the requested mode.
func FilterNew(raw []types.ReviewRecord, wm types.ProductWatermark, mode types.Mode) []types.ReviewRecord {
	if mode != types.ModeIncremental || !wm.HasBaseline() {
		out := make([]types.ReviewRecord, len(raw))
		copy(out, raw)
		return out
	}

	out := make([]types.ReviewRecord, 0, len(raw))
	for _, rec := range raw {
		if isKnown(rec, wm) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// isKnown reports whether the watermark already covers this record.
func isKnown(rec types.ReviewRecord, wm types.ProductWatermark) bool {
	// A synthetic ID is freshly minted each run and can never match the
	// recent-ID window; only the date comparison applies to it.
	if !rec.SyntheticID && wm.Recent != nil && wm.Recent.Contains(rec.ReviewID) {
		return true
	}

	// An unreliable date is always treated as new: silently dropping a
	// record on a guessed date would lose data.
	if rec.DateUnreliable {
		return false
	}
	return rec.PublishedAt.Before(wm.LastReviewDate)
}
