package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"superspreaders/internal/dismantle"
	"superspreaders/internal/fib"
	"superspreaders/internal/ledger"
	"superspreaders/internal/loader"
	"superspreaders/internal/rank"
	"superspreaders/internal/report"
	"superspreaders/internal/storage"
)

// Exportable results, as accepted by Export.
const (
	ResultFIB          = storage.KindFIB
	ResultPopular      = rank.MethodPopular
	ResultInfluential  = rank.MethodInfluential
	ResultDismantling  = storage.KindDismantling
	ResultGoldStandard = storage.KindGoldStandard
)

// ErrNoStore is returned by operations that need persisted results when the
// pipeline has no store.
var ErrNoStore = errors.New("no results store configured")

// loadBaselines reads the popular and influential baselines from their CSV
// tables. When neither table exists, the latest stored baselines run is used.
func (p *Pipeline) loadBaselines(ctx context.Context) ([]rank.Score, []rank.Score, error) {
	popular, errPop := loader.LoadBaseline(p.cfg.PopularBaselinePath())
	influential, errInf := loader.LoadBaseline(p.cfg.InfluentialBaselinePath())
	if errPop == nil && errInf == nil {
		return popular, influential, nil
	}

	if p.store == nil || !errors.Is(errPop, os.ErrNotExist) || !errors.Is(errInf, os.ErrNotExist) {
		if errPop != nil {
			return nil, nil, fmt.Errorf("failed to load popular baseline: %w", errPop)
		}
		return nil, nil, fmt.Errorf("failed to load influential baseline: %w", errInf)
	}

	run, err := p.store.LatestRun(ctx, storage.KindBaselines)
	if err != nil {
		return nil, nil, fmt.Errorf("no baseline tables and no stored baselines: %w", err)
	}
	pop, err := p.store.LoadRankedList(ctx, run.ID, rank.MethodPopular)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load stored popular baseline: %w", err)
	}
	infl, err := p.store.LoadRankedList(ctx, run.ID, rank.MethodInfluential)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load stored influential baseline: %w", err)
	}
	p.logger.WithField("run_id", run.ID).Info("Using stored baselines")
	return pop.Scores, infl.Scores, nil
}

// loadFIBScores returns the all-users FIB table used by the fib-naive
// ranking. Sources in order: paths.fib_scores, the latest stored FIB run
// written with threshold 0, and finally scoring the early window.
func (p *Pipeline) loadFIBScores(ctx context.Context, early *ledger.Ledger) ([]fib.Score, error) {
	if p.cfg.Paths.FIBScores != "" {
		scores, err := loader.LoadFIBScores(p.cfg.Paths.FIBScores)
		if err != nil {
			return nil, fmt.Errorf("failed to load FIB scores: %w", err)
		}
		return scores, nil
	}

	if p.store != nil {
		run, err := p.store.LatestRun(ctx, storage.KindFIB)
		switch {
		case err == nil && run.Threshold == 0:
			scores, err := p.store.LoadFIBScores(ctx, run.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load stored FIB scores: %w", err)
			}
			p.logger.WithField("run_id", run.ID).Info("Using stored FIB scores")
			return scores, nil
		case err == nil:
			p.logger.WithField("threshold", run.Threshold).Info("Latest stored FIB run is not an all-users table")
		case !errors.Is(err, storage.ErrRunNotFound):
			return nil, err
		}
	}

	p.logger.Info("No FIB table available; scoring the early window")
	return fib.ScoreLedger(early), nil
}

// Export writes the latest stored result of the given kind to w in its CSV
// format and returns the run it came from.
func (p *Pipeline) Export(ctx context.Context, result string, w io.Writer) (*storage.Run, error) {
	if p.store == nil {
		return nil, ErrNoStore
	}

	kind := result
	if result == ResultPopular || result == ResultInfluential {
		kind = storage.KindBaselines
	}
	switch kind {
	case storage.KindFIB, storage.KindBaselines, storage.KindDismantling, storage.KindGoldStandard:
	default:
		return nil, fmt.Errorf("unknown result %q", result)
	}

	run, err := p.store.LatestRun(ctx, kind)
	if err != nil {
		return nil, err
	}

	switch result {
	case ResultFIB:
		scores, err := p.store.LoadFIBScores(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		err = report.WriteFIBScores(w, scores)
		return run, err
	case ResultPopular, ResultInfluential:
		list, err := p.store.LoadRankedList(ctx, run.ID, result)
		if err != nil {
			return nil, err
		}
		col := report.ColFollowerCount
		if result == ResultInfluential {
			col = report.ColRetweetCount
		}
		err = report.WriteBaseline(w, list, col)
		return run, err
	case ResultDismantling:
		traces, err := p.store.LoadTraces(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		table, err := dismantle.NewTable(traces)
		if err != nil {
			return nil, err
		}
		err = report.WriteDismantling(w, table)
		return run, err
	default:
		gold, err := p.store.LoadGoldStandard(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		err = report.WriteGoldStandard(w, gold)
		return run, err
	}
}
