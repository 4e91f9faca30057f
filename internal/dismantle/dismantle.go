// Package dismantle simulates removing ranked users from a retweet network
// and measures how much future misinformation remains.
package dismantle

import (
	"errors"
	"sort"

	"superspreaders/internal/ledger"
	"superspreaders/internal/rank"
)

var (
	// ErrEmptyPopulation is returned when there are no users to remove.
	ErrEmptyPopulation = errors.New("empty population")
	// ErrZeroTotal is returned when the future window holds no retweets,
	// leaving every proportion undefined.
	ErrZeroTotal = errors.New("future ledger has zero total retweets")
)

// ProgressFunc is called every N removals with the ranking method and the
// number of users removed so far.
type ProgressFunc func(method string, done int)

type options struct {
	method        string
	progressEvery int
	progress      ProgressFunc
}

type Option func(*options)

// WithProgress reports progress every n removed users.
func WithProgress(n int, fn ProgressFunc) Option {
	return func(o *options) {
		o.progressEvery = n
		o.progress = fn
	}
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) report(done int) {
	if o.progress == nil || o.progressEvery <= 0 {
		return
	}
	if done%o.progressEvery == 0 {
		o.progress(o.method, done)
	}
}

// Trace is the proportion of future retweets remaining after removing the
// top k users of a ranking, for k = 0..n.
type Trace struct {
	Method      string    `json:"method"`
	Proportions []float64 `json:"proportions"`
}

// Removed returns the proportion removed after k users.
func (t Trace) Removed(k int) float64 {
	return 1 - t.Proportions[k]
}

// Cumulative removes ranked users one at a time and returns the proportion
// of the future ledger's retweets still attributable to remaining users.
// The result has len(ranked)+1 entries and starts at 1.0. A user listed
// twice is only removed once.
func Cumulative(ranked []string, future *ledger.Ledger, opts ...Option) ([]float64, error) {
	if len(ranked) == 0 {
		return nil, ErrEmptyPopulation
	}
	total := future.Total()
	if total <= 0 {
		return nil, ErrZeroTotal
	}
	o := newOptions(opts)

	removedUsers := make(map[string]struct{}, len(ranked))
	proportions := make([]float64, 0, len(ranked)+1)
	proportions = append(proportions, 1.0)

	var removed int64
	for i, user := range ranked {
		if _, dup := removedUsers[user]; !dup {
			removedUsers[user] = struct{}{}
			removed += future.UserTotal(user)
		}
		proportions = append(proportions, float64(total-removed)/float64(total))
		o.report(i + 1)
	}
	return proportions, nil
}

// Dismantle runs Cumulative over a ranked list.
func Dismantle(list rank.RankedList, future *ledger.Ledger, opts ...Option) (Trace, error) {
	opts = append([]Option{func(o *options) { o.method = list.Method }}, opts...)
	p, err := Cumulative(list.Users(), future, opts...)
	if err != nil {
		return Trace{}, err
	}
	return Trace{Method: list.Method, Proportions: p}, nil
}

// Removal is the share of future retweets a single user accounts for.
type Removal struct {
	UserID     string  `json:"user_id"`
	Proportion float64 `json:"prop_rts_removed"`
}

// GoldStandard is the per-user, non-cumulative impact of removal,
// highest first.
type GoldStandard []Removal

// PerUser measures each user's isolated contribution sum(future[user])/total.
// Proportions are independent of each other and of the order of users.
func PerUser(users []string, future *ledger.Ledger, total int64, opts ...Option) (GoldStandard, error) {
	if len(users) == 0 {
		return nil, ErrEmptyPopulation
	}
	if total <= 0 {
		return nil, ErrZeroTotal
	}
	o := newOptions(opts)
	if o.method == "" {
		o.method = "gold-standard"
	}

	seen := make(map[string]struct{}, len(users))
	out := make(GoldStandard, 0, len(users))
	for i, user := range users {
		if _, dup := seen[user]; dup {
			continue
		}
		seen[user] = struct{}{}
		out = append(out, Removal{
			UserID:     user,
			Proportion: float64(future.UserTotal(user)) / float64(total),
		})
		o.report(i + 1)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Proportion > out[j].Proportion
	})
	return out, nil
}
