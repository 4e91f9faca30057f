package storage

import (
	"context"
	"time"

	"superspreaders/internal/dismantle"
	"superspreaders/internal/fib"
	"superspreaders/internal/rank"

	"github.com/google/uuid"
)

// Run kinds.
const (
	KindFIB          = "fib"
	KindBaselines    = "baselines"
	KindDismantling  = "dismantling"
	KindGoldStandard = "gold-standard"
)

// Run identifies one execution of an analysis step.
type Run struct {
	ID        string
	Kind      string
	CreatedAt time.Time
	Cutoff    time.Time
	Threshold float64
}

// NewRun creates a run with a fresh ID.
func NewRun(kind string, cutoff time.Time, threshold float64) Run {
	return Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
		Cutoff:    cutoff,
		Threshold: threshold,
	}
}

// Store combines run bookkeeping and result storage.
type Store interface {
	RunStore
	ResultStore
	Close() error
}

// RunStore records analysis runs.
type RunStore interface {
	// CreateRun inserts a new run.
	CreateRun(ctx context.Context, run Run) error

	// LatestRun returns the most recent run of kind.
	LatestRun(ctx context.Context, kind string) (*Run, error)
}

// ResultStore persists the outputs of a run.
type ResultStore interface {
	SaveFIBScores(ctx context.Context, runID string, scores []fib.Score) error
	LoadFIBScores(ctx context.Context, runID string) ([]fib.Score, error)

	// SaveRankedList replaces the ranking of list.Method for the run.
	SaveRankedList(ctx context.Context, runID string, list rank.RankedList) error
	LoadRankedList(ctx context.Context, runID, method string) (rank.RankedList, error)

	SaveTraces(ctx context.Context, runID string, traces []dismantle.Trace) error
	LoadTraces(ctx context.Context, runID string) ([]dismantle.Trace, error)

	SaveGoldStandard(ctx context.Context, runID string, g dismantle.GoldStandard) error
	LoadGoldStandard(ctx context.Context, runID string) (dismantle.GoldStandard, error)
}
