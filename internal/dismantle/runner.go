package dismantle

import (
	"context"
	"fmt"

	"superspreaders/internal/ledger"
	"superspreaders/internal/rank"

	"golang.org/x/sync/errgroup"
)

// RunAll dismantles every ranking against the same read-only future ledger.
// Rankings run concurrently; traces are returned in the order of lists.
func RunAll(ctx context.Context, lists []rank.RankedList, future *ledger.Ledger, opts ...Option) ([]Trace, error) {
	if len(lists) == 0 {
		return nil, ErrEmptyPopulation
	}
	if future.Total() <= 0 {
		return nil, ErrZeroTotal
	}

	traces := make([]Trace, len(lists))
	g, gctx := errgroup.WithContext(ctx)
	for i, list := range lists {
		i, list := i, list
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			trace, err := Dismantle(list, future, opts...)
			if err != nil {
				return fmt.Errorf("dismantle %s: %w", list.Method, err)
			}
			traces[i] = trace
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return traces, nil
}

// Table is the dismantling result with one column per ranking method and
// one row per removal step.
type Table struct {
	Methods []string
	Rows    [][]float64
}

// NewTable lays traces out as columns. All traces must cover the same
// number of removal steps.
func NewTable(traces []Trace) (*Table, error) {
	if len(traces) == 0 {
		return nil, ErrEmptyPopulation
	}
	steps := len(traces[0].Proportions)
	t := &Table{Methods: make([]string, len(traces))}
	for i, tr := range traces {
		if len(tr.Proportions) != steps {
			return nil, fmt.Errorf("trace %s has %d steps, want %d", tr.Method, len(tr.Proportions), steps)
		}
		t.Methods[i] = tr.Method
	}
	t.Rows = make([][]float64, steps)
	for k := 0; k < steps; k++ {
		row := make([]float64, len(traces))
		for i, tr := range traces {
			row[i] = tr.Proportions[k]
		}
		t.Rows[k] = row
	}
	return t, nil
}
