// Package rank orders a fixed population of users by competing influence metrics.
package rank

import "sort"

type Metric string

const (
	MetricFIBIndex      Metric = "fib_index"
	MetricBotScore      Metric = "bot_score"
	MetricFollowerCount Metric = "follower_count"
	MetricTotalRetweets Metric = "total_retweets"
)

// Ranking method names, also used as output column headers.
const (
	MethodFIBNaive    = "fib-naive"
	MethodBotScore    = "botscore"
	MethodPopular     = "popular"
	MethodInfluential = "influential"
)

// Methods lists the ranking methods in output column order.
var Methods = []string{MethodFIBNaive, MethodBotScore, MethodPopular, MethodInfluential}

// Score is one user's value for one metric.
type Score struct {
	UserID string  `json:"user_id"`
	Metric Metric  `json:"metric"`
	Value  float64 `json:"value"`
}

// BotObservation is the bot probability estimated for a single tweet.
type BotObservation struct {
	TweetID string
	UserID  string
	Score   float64
}

// RankedList is a population ordered by one metric, highest value first.
type RankedList struct {
	Method string  `json:"method"`
	Metric Metric  `json:"metric"`
	Scores []Score `json:"scores"`
}

// NewRankedList sorts a copy of scores descending by value.
// Users with equal values keep their input order.
func NewRankedList(method string, metric Metric, scores []Score) RankedList {
	sorted := make([]Score, len(scores))
	for i, s := range scores {
		s.Metric = metric
		sorted[i] = s
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})
	return RankedList{Method: method, Metric: metric, Scores: sorted}
}

// Users returns the ranked user IDs.
func (r RankedList) Users() []string {
	users := make([]string, len(r.Scores))
	for i, s := range r.Scores {
		users[i] = s.UserID
	}
	return users
}

// Len returns the number of ranked users.
func (r RankedList) Len() int { return len(r.Scores) }
