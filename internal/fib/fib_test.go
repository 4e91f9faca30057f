package fib

import (
	"testing"

	"superspreaders/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		want   int
	}{
		{"empty", nil, 0},
		{"all zeros", []int{0, 0}, 0},
		{"ones", []int{1, 1, 1}, 1},
		{"fives", []int{5, 5, 5, 5, 5}, 5},
		{"one large", []int{10, 1, 1, 1}, 1},
		{"single large", []int{1000}, 1},
		{"h-index classic", []int{3, 0, 6, 1, 5}, 3},
		{"more tweets than retweets", []int{2, 2, 2, 2, 2, 2}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Index(tt.counts))
		})
	}
}

func TestIndex_OrderInvariantAndPure(t *testing.T) {
	a := []int{1, 8, 3, 5, 2, 9}
	b := []int{9, 5, 3, 8, 1, 2}
	assert.Equal(t, Index(a), Index(b))
	assert.Equal(t, 3, Index(a))
	assert.Equal(t, []int{1, 8, 3, 5, 2, 9}, a, "input must not be reordered")
}

func TestScoreLedger(t *testing.T) {
	l, err := ledger.Build([]ledger.Record{
		{TweetID: "t1", AuthorID: "u1", RetweetCount: 4, RetweeterID: "r"},
		{TweetID: "t2", AuthorID: "u1", RetweetCount: 4, RetweeterID: "r"},
		{TweetID: "t3", AuthorID: "u2", RetweetCount: 0, RetweeterID: "r"},
		{TweetID: "t1", AuthorID: "u1", RetweetCount: 2, RetweeterID: "r"},
	})
	require.NoError(t, err)

	assert.Equal(t, []Score{{UserID: "u1", Index: 2}, {UserID: "u2", Index: 0}}, ScoreLedger(l))
}

func TestPercentile_Midpoint(t *testing.T) {
	values := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	got, err := Percentile(values, 90)
	require.NoError(t, err)
	assert.Equal(t, 9.0, got)

	// rank 0.5*3 = 1.5 -> mean of 2nd and 3rd order statistics
	got, err = Percentile([]float64{4, 1, 3, 2}, 50)
	require.NoError(t, err)
	assert.Equal(t, 2.5, got)

	// rank 3*0.99 = 2.97 -> midpoint of 3 and 4, not the linear 3.97
	got, err = Percentile([]float64{1, 2, 3, 4}, 99)
	require.NoError(t, err)
	assert.Equal(t, 3.5, got)

	_, err = Percentile(nil, 50)
	assert.ErrorIs(t, err, ErrEmptyPopulation)

	_, err = Percentile(values, 101)
	assert.Error(t, err)
}

func TestSelectTop(t *testing.T) {
	var scores []Score
	for i := 0; i <= 10; i++ {
		scores = append(scores, Score{UserID: string(rune('a' + i)), Index: i})
	}

	top, cutoff, err := SelectTop(scores, 90)
	require.NoError(t, err)
	assert.Equal(t, 9.0, cutoff)
	assert.Equal(t, []Score{{UserID: "k", Index: 10}, {UserID: "j", Index: 9}}, top)
}

func TestSelectTop_TiesAtCutoffIncluded(t *testing.T) {
	scores := []Score{
		{UserID: "a", Index: 1},
		{UserID: "b", Index: 3},
		{UserID: "c", Index: 3},
		{UserID: "d", Index: 3},
		{UserID: "e", Index: 0},
	}
	top, cutoff, err := SelectTop(scores, 80)
	require.NoError(t, err)
	assert.Equal(t, 3.0, cutoff)
	assert.Len(t, top, 3, "every user tied at the cutoff is selected")
	assert.Equal(t, []string{"b", "c", "d"}, []string{top[0].UserID, top[1].UserID, top[2].UserID})
}

func TestSelectTop_InvalidInput(t *testing.T) {
	_, _, err := SelectTop(nil, 99)
	assert.ErrorIs(t, err, ErrEmptyPopulation)

	for _, p := range []float64{0, -1, 100.5} {
		_, _, err := SelectTop([]Score{{UserID: "a", Index: 1}}, p)
		assert.Error(t, err, "percentile %v", p)
	}
}

func TestSortDescending_Stable(t *testing.T) {
	in := []Score{{"a", 1}, {"b", 2}, {"c", 1}, {"d", 2}}
	assert.Equal(t, []Score{{"b", 2}, {"d", 2}, {"a", 1}, {"c", 1}}, SortDescending(in))
	assert.Equal(t, "a", in[0].UserID)
}
