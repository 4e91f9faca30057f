package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"superspreaders/internal/dismantle"
	"superspreaders/internal/fib"
	"superspreaders/internal/rank"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_Runs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.LatestRun(ctx, KindDismantling)
	assert.ErrorIs(t, err, ErrRunNotFound)

	cutoff := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	first := NewRun(KindDismantling, cutoff, 99)
	second := NewRun(KindDismantling, cutoff, 95)
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	require.NoError(t, store.CreateRun(ctx, first))
	require.NoError(t, store.CreateRun(ctx, second))
	require.NoError(t, store.CreateRun(ctx, NewRun(KindFIB, cutoff, 0)))

	latest, err := store.LatestRun(ctx, KindDismantling)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, 95.0, latest.Threshold)
	assert.True(t, cutoff.Equal(latest.Cutoff))
	assert.NotEqual(t, first.ID, second.ID)
}

func TestSQLiteStore_ResultsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	runID := "run-1"

	t.Run("FIB scores", func(t *testing.T) {
		scores := []fib.Score{{UserID: "u2", Index: 5}, {UserID: "u1", Index: 1}}
		require.NoError(t, store.SaveFIBScores(ctx, runID, scores))
		loaded, err := store.LoadFIBScores(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, scores, loaded)
	})

	t.Run("Ranked list snapshot is replaced", func(t *testing.T) {
		old := rank.NewRankedList(rank.MethodPopular, rank.MetricFollowerCount, []rank.Score{{UserID: "x", Value: 1}})
		require.NoError(t, store.SaveRankedList(ctx, runID, old))

		list := rank.NewRankedList(rank.MethodPopular, rank.MetricFollowerCount, []rank.Score{
			{UserID: "u1", Value: 10}, {UserID: "u2", Value: 30.5},
		})
		require.NoError(t, store.SaveRankedList(ctx, runID, list))

		loaded, err := store.LoadRankedList(ctx, runID, rank.MethodPopular)
		require.NoError(t, err)
		assert.Equal(t, list, loaded)
	})

	t.Run("Traces keep column order", func(t *testing.T) {
		traces := []dismantle.Trace{
			{Method: rank.MethodInfluential, Proportions: []float64{1, 0.5, 0.25}},
			{Method: rank.MethodBotScore, Proportions: []float64{1, 0.9, 0.8}},
		}
		require.NoError(t, store.SaveTraces(ctx, runID, traces))
		loaded, err := store.LoadTraces(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, traces, loaded)
	})

	t.Run("Gold standard", func(t *testing.T) {
		g := dismantle.GoldStandard{{UserID: "u1", Proportion: 0.4}, {UserID: "u2", Proportion: 0}}
		require.NoError(t, store.SaveGoldStandard(ctx, runID, g))
		loaded, err := store.LoadGoldStandard(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, g, loaded)

		empty, err := store.LoadGoldStandard(ctx, "other-run")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}

func TestSQLiteStore_SaveTracesRollsBackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := &SQLiteStore{db: db}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM traces").WithArgs("run-1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectPrepare("INSERT INTO traces").
		ExpectExec().
		WithArgs("run-1", rank.MethodFIBNaive, 0, 0, 1.0).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err = store.SaveTraces(context.Background(), "run-1", []dismantle.Trace{
		{Method: rank.MethodFIBNaive, Proportions: []float64{1, 0.5}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}
