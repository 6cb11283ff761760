package quote

import (
	"github.com/rcliao/roombot/internal/model"
	"github.com/rcliao/roombot/internal/store"
)

// UpgradeResult counts the outcome of Upgrade.
type UpgradeResult struct {
	Upgraded int
	Failed   int
	Total    int
	// Saved is false when the collection could not be written.
	Saved bool
}

// Complete reports whether every quote is at the current version.
func (r UpgradeResult) Complete() bool {
	return r.Failed == 0
}

// Upgrade reparses the text of every quote below the current version into
// lines. Quotes that yield no lines keep their version and lines. The
// collection is written once; the store version marker only when no quote
// failed. An empty collection writes nothing.
func Upgrade(st *store.Store) (UpgradeResult, error) {
	var (
		res UpgradeResult
		err error
	)
	st.WithLock(func() {
		var quotes map[int]*model.Quote
		if quotes, err = readQuotes(st); err != nil {
			return
		}
		res.Total = len(quotes)
		if res.Total == 0 {
			// Nothing to upgrade; do not create a record file.
			res.Saved = true
			return
		}
		for _, id := range sortedIDs(quotes) {
			q := quotes[id]
			if !q.Legacy() {
				continue
			}
			if upgradeQuote(q) {
				res.Upgraded++
			} else {
				res.Failed++
			}
		}

		values := map[string]any{keyQuotes: quotes}
		if res.Complete() {
			values[keyStoreVersion] = model.CurrentQuoteVersion
		}
		res.Saved = st.StoreAll(values)
	})
	return res, err
}

func upgradeQuote(q *model.Quote) bool {
	lines := ParseLines(q.Text)
	if len(lines) == 0 {
		return false
	}
	q.Lines = lines
	q.Version = model.CurrentQuoteVersion
	if q.Kind == "" {
		q.Kind = model.KindLocal
	}
	q.Members = q.Speakers()
	return true
}
