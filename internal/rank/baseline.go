package rank

import (
	"superspreaders/internal/ledger"
)

// PopularBaseline averages the follower count observed on every record of
// each author.
func PopularBaseline(records []ledger.Record) RankedList {
	type acc struct {
		sum float64
		n   int
	}
	sums := make(map[string]*acc)
	var order []string
	for _, rec := range records {
		a, ok := sums[rec.AuthorID]
		if !ok {
			a = &acc{}
			sums[rec.AuthorID] = a
			order = append(order, rec.AuthorID)
		}
		a.sum += rec.FollowerCount
		a.n++
	}
	rows := make([]Score, len(order))
	for i, id := range order {
		rows[i] = Score{UserID: id, Value: sums[id].sum / float64(sums[id].n)}
	}
	return NewRankedList(MethodPopular, MetricFollowerCount, rows)
}

// InfluentialBaseline totals the deduplicated retweets earned by each author.
func InfluentialBaseline(l *ledger.Ledger) RankedList {
	users := l.Users()
	rows := make([]Score, len(users))
	for i, id := range users {
		rows[i] = Score{UserID: id, Value: float64(l.UserTotal(id))}
	}
	return NewRankedList(MethodInfluential, MetricTotalRetweets, rows)
}
