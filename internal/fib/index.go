// Package fib computes FIB-indices, the h-index of a user's retweet counts,
// and selects the users above a percentile of the FIB distribution.
package fib

import (
	"errors"
	"sort"

	"superspreaders/internal/ledger"
)

// ErrEmptyPopulation is returned when there are no users to score or select.
var ErrEmptyPopulation = errors.New("empty population")

// Score is a user's FIB-index.
type Score struct {
	UserID string `json:"user_id"`
	Index  int    `json:"fib_index"`
}

// Index returns the largest k such that at least k of counts are each >= k.
// counts is not modified.
func Index(counts []int) int {
	sorted := append([]int(nil), counts...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	k := 0
	for i, c := range sorted {
		if c < i+1 {
			break
		}
		k = i + 1
	}
	return k
}

// ScoreLedger computes the FIB-index of every author in l from their own counts.
// Scores follow the ledger's author order.
func ScoreLedger(l *ledger.Ledger) []Score {
	users := l.Users()
	scores := make([]Score, 0, len(users))
	for _, u := range users {
		scores = append(scores, Score{UserID: u, Index: Index(l.Counts(u))})
	}
	return scores
}

// SortDescending returns a copy of scores ordered by FIB-index, highest first.
// Users with equal indices keep their relative order.
func SortDescending(scores []Score) []Score {
	out := append([]Score(nil), scores...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Index > out[j].Index
	})
	return out
}
