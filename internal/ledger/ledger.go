package ledger

import (
	"errors"
)

// Ledger maps each author to the retweet counts earned by their distinct
// original tweets within one time window. It is read-only after Build.
type Ledger struct {
	order  []string
	counts map[string][]int
	totals map[string]int64
	total  int64
}

type tweetKey struct {
	tweetID  string
	authorID string
}

// Build deduplicates records by (tweet, author), keeping the highest observed
// retweet count, and then groups the surviving counts by author.
func Build(records []Record) (*Ledger, error) {
	maxCount := make(map[tweetKey]int)
	var keys []tweetKey

	// 1. Deduplicate repeated samples of the same original tweet
	for i, r := range records {
		if err := r.Validate(); err != nil {
			var mre *MalformedRecordError
			if errors.As(err, &mre) {
				mre.Index = i
			}
			return nil, err
		}
		k := tweetKey{tweetID: r.TweetID, authorID: r.AuthorID}
		prev, seen := maxCount[k]
		if !seen {
			keys = append(keys, k)
			maxCount[k] = r.RetweetCount
			continue
		}
		if r.RetweetCount > prev {
			maxCount[k] = r.RetweetCount
		}
	}

	// 2. Aggregate per author
	l := &Ledger{
		counts: make(map[string][]int),
		totals: make(map[string]int64),
	}
	for _, k := range keys {
		c := maxCount[k]
		if _, ok := l.counts[k.authorID]; !ok {
			l.order = append(l.order, k.authorID)
		}
		l.counts[k.authorID] = append(l.counts[k.authorID], c)
		l.totals[k.authorID] += int64(c)
		l.total += int64(c)
	}
	return l, nil
}

// Users returns the authors in order of first appearance.
func (l *Ledger) Users() []string {
	if l == nil {
		return nil
	}
	return append([]string(nil), l.order...)
}

// Len returns the number of authors in the ledger.
func (l *Ledger) Len() int {
	if l == nil {
		return 0
	}
	return len(l.order)
}

// Counts returns a copy of the deduplicated counts earned by user.
func (l *Ledger) Counts(user string) []int {
	if l == nil {
		return nil
	}
	return append([]int(nil), l.counts[user]...)
}

// Has reports whether user authored any tweet in this window.
func (l *Ledger) Has(user string) bool {
	if l == nil {
		return false
	}
	_, ok := l.counts[user]
	return ok
}

// UserTotal returns the retweets earned by user; 0 for unknown users.
func (l *Ledger) UserTotal(user string) int64 {
	if l == nil {
		return 0
	}
	return l.totals[user]
}

// Total returns the retweets earned by all authors.
func (l *Ledger) Total() int64 {
	if l == nil {
		return 0
	}
	return l.total
}
