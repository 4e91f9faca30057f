package rank

import (
	"fmt"
	"math"

	"superspreaders/internal/fib"
)

// Ranker produces rankings that all cover the same population.
type Ranker struct {
	population *Population
	known      map[string]struct{}
}

// NewRanker ranks over pop. Users of the extra baselines are treated as known
// to the study even when outside pop; metrics reporting them are filtered
// rather than rejected.
func NewRanker(pop *Population, baselines ...[]Score) *Ranker {
	known := make(map[string]struct{}, pop.Len())
	for _, id := range pop.order {
		known[id] = struct{}{}
	}
	for _, b := range baselines {
		for _, s := range b {
			known[s.UserID] = struct{}{}
		}
	}
	return &Ranker{population: pop, known: known}
}

// FIBNaive ranks by FIB-index. Population users without a FIB score
// authored no qualifying tweet and are ranked with an index of exactly 0.
func (r *Ranker) FIBNaive(scores []fib.Score) (RankedList, error) {
	seen := make(map[string]struct{}, len(scores))
	var unknown []string
	rows := make([]Score, 0, r.population.Len())
	for _, s := range scores {
		if _, ok := r.known[s.UserID]; !ok {
			unknown = append(unknown, s.UserID)
			continue
		}
		if !r.population.Contains(s.UserID) {
			continue
		}
		if _, dup := seen[s.UserID]; dup {
			continue
		}
		seen[s.UserID] = struct{}{}
		rows = append(rows, Score{UserID: s.UserID, Value: float64(s.Index)})
	}
	if len(unknown) > 0 {
		return RankedList{}, &PopulationMismatchError{Method: MethodFIBNaive, Unknown: unknown}
	}
	rows = r.backfill(rows, seen)
	return NewRankedList(MethodFIBNaive, MetricFIBIndex, rows), nil
}

// BotScore ranks by each user's mean bot score over their scored tweets.
// Observations of users outside the population are ignored; population users
// with no scored tweet are ranked last with a score of 0.
func (r *Ranker) BotScore(obs []BotObservation) (RankedList, error) {
	type acc struct {
		sum float64
		n   int
	}
	sums := make(map[string]*acc)
	var order []string
	for _, o := range obs {
		if !r.population.Contains(o.UserID) {
			continue
		}
		if math.IsNaN(o.Score) || math.IsInf(o.Score, 0) {
			return RankedList{}, fmt.Errorf("invalid bot score %v for tweet %s", o.Score, o.TweetID)
		}
		a, ok := sums[o.UserID]
		if !ok {
			a = &acc{}
			sums[o.UserID] = a
			order = append(order, o.UserID)
		}
		a.sum += o.Score
		a.n++
	}

	seen := make(map[string]struct{}, len(order))
	rows := make([]Score, 0, r.population.Len())
	for _, id := range order {
		a := sums[id]
		seen[id] = struct{}{}
		rows = append(rows, Score{UserID: id, Value: a.sum / float64(a.n)})
	}
	rows = r.backfill(rows, seen)
	return NewRankedList(MethodBotScore, MetricBotScore, rows), nil
}

// Popular ranks by mean follower count.
func (r *Ranker) Popular(baseline []Score) (RankedList, error) {
	rows, err := r.reconcile(MethodPopular, baseline)
	if err != nil {
		return RankedList{}, err
	}
	return NewRankedList(MethodPopular, MetricFollowerCount, rows), nil
}

// Influential ranks by total retweets earned.
func (r *Ranker) Influential(baseline []Score) (RankedList, error) {
	rows, err := r.reconcile(MethodInfluential, baseline)
	if err != nil {
		return RankedList{}, err
	}
	return NewRankedList(MethodInfluential, MetricTotalRetweets, rows), nil
}

// reconcile requires baseline to report exactly the population.
func (r *Ranker) reconcile(method string, baseline []Score) ([]Score, error) {
	seen := make(map[string]struct{}, len(baseline))
	rows := make([]Score, 0, len(baseline))
	var unknown []string
	for _, s := range baseline {
		if !r.population.Contains(s.UserID) {
			unknown = append(unknown, s.UserID)
			continue
		}
		if _, dup := seen[s.UserID]; dup {
			continue
		}
		seen[s.UserID] = struct{}{}
		rows = append(rows, s)
	}
	var missing []string
	for _, id := range r.population.order {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(unknown) > 0 || len(missing) > 0 {
		return nil, &PopulationMismatchError{Method: method, Unknown: unknown, Missing: missing}
	}
	return rows, nil
}

func (r *Ranker) backfill(rows []Score, seen map[string]struct{}) []Score {
	for _, id := range r.population.order {
		if _, ok := seen[id]; !ok {
			rows = append(rows, Score{UserID: id, Value: 0})
		}
	}
	return rows
}

// Inputs are the tables needed to produce all four rankings.
// The popular baseline defines the population.
type Inputs struct {
	Popular     []Score
	Influential []Score
	FIB         []fib.Score
	BotScores   []BotObservation
}

// RankAll produces the four rankings in Methods order.
func RankAll(in Inputs) ([]RankedList, error) {
	pop, err := PopulationFromScores(in.Popular)
	if err != nil {
		return nil, err
	}
	r := NewRanker(pop, in.Influential)

	fibList, err := r.FIBNaive(in.FIB)
	if err != nil {
		return nil, err
	}
	botList, err := r.BotScore(in.BotScores)
	if err != nil {
		return nil, err
	}
	popList, err := r.Popular(in.Popular)
	if err != nil {
		return nil, err
	}
	inflList, err := r.Influential(in.Influential)
	if err != nil {
		return nil, err
	}
	return []RankedList{fibList, botList, popList, inflList}, nil
}
