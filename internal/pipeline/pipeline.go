package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"superspreaders/internal/config"
	"superspreaders/internal/dismantle"
	"superspreaders/internal/fib"
	"superspreaders/internal/ledger"
	"superspreaders/internal/loader"
	"superspreaders/internal/logging"
	"superspreaders/internal/rank"
	"superspreaders/internal/report"
	"superspreaders/internal/storage"
)

// Pipeline drives the analysis: it loads tables, hands them to the scoring
// and dismantling packages and writes their results.
type Pipeline struct {
	cfg     *config.Config
	logger  logging.Logger
	loader  *loader.Loader
	store   storage.Store
	metrics *Metrics
	now     func() time.Time
}

type Option func(*Pipeline)

// WithStore persists every result in store as well as in CSV files.
func WithStore(store storage.Store) Option {
	return func(p *Pipeline) { p.store = store }
}

func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func New(cfg *config.Config, logger logging.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		logger: logger,
		loader: loader.NewLoader(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// windows holds the ledgers of the early (ranking) and future (evaluation) periods.
type windows struct {
	early        []ledger.Record
	earlyLedger  *ledger.Ledger
	futureLedger *ledger.Ledger
}

// FIBResult is the output of the FIB stage.
type FIBResult struct {
	Scores   []fib.Score
	Cutoff   float64
	Selected []fib.Score
	Path     string
}

// Run executes every stage: FIB scores, baselines, dismantling and the gold standard.
func (p *Pipeline) Run(ctx context.Context) error {
	w, err := p.loadWindowsStage()
	if err != nil {
		return err
	}

	fibRes, err := p.fibStage(ctx, w.earlyLedger, 0)
	if err != nil {
		return err
	}
	popular, influential, err := p.baselinesStage(ctx, w)
	if err != nil {
		return err
	}
	bots, err := p.loadBotScores()
	if err != nil {
		return err
	}

	in := rank.Inputs{
		Popular:     popular.Scores,
		Influential: influential.Scores,
		FIB:         fibRes.Scores,
		BotScores:   bots,
	}
	if _, err := p.dismantleStage(ctx, in, w.futureLedger); err != nil {
		return err
	}
	_, err = p.goldStandardStage(ctx, popular.Users(), w.futureLedger)
	return err
}

// FIB scores users of the early window and writes those at or above threshold.
// A threshold of 0 writes every user.
func (p *Pipeline) FIB(ctx context.Context, threshold float64) (*FIBResult, error) {
	w, err := p.loadWindowsStage()
	if err != nil {
		return nil, err
	}
	return p.fibStage(ctx, w.earlyLedger, threshold)
}

// Baselines builds and writes the popular and influential baselines.
func (p *Pipeline) Baselines(ctx context.Context) (rank.RankedList, rank.RankedList, error) {
	w, err := p.loadWindowsStage()
	if err != nil {
		return rank.RankedList{}, rank.RankedList{}, err
	}
	return p.baselinesStage(ctx, w)
}

// Dismantle ranks the population with the four methods and dismantles the
// future window. Baselines and FIB scores come from their CSV tables, or
// from the latest stored run when the tables are absent.
func (p *Pipeline) Dismantle(ctx context.Context) (*dismantle.Table, error) {
	w, err := p.loadWindowsStage()
	if err != nil {
		return nil, err
	}

	popular, influential, err := p.loadBaselines(ctx)
	if err != nil {
		return nil, err
	}
	fibScores, err := p.loadFIBScores(ctx, w.earlyLedger)
	if err != nil {
		return nil, err
	}
	bots, err := p.loadBotScores()
	if err != nil {
		return nil, err
	}

	return p.dismantleStage(ctx, rank.Inputs{
		Popular:     popular,
		Influential: influential,
		FIB:         fibScores,
		BotScores:   bots,
	}, w.futureLedger)
}

// GoldStandard measures each population user's isolated share of the future window.
func (p *Pipeline) GoldStandard(ctx context.Context) (dismantle.GoldStandard, error) {
	w, err := p.loadWindowsStage()
	if err != nil {
		return nil, err
	}
	popular, _, err := p.loadBaselines(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]string, len(popular))
	for i, s := range popular {
		users[i] = s.UserID
	}
	return p.goldStandardStage(ctx, users, w.futureLedger)
}

func (p *Pipeline) loadWindowsStage() (*windows, error) {
	defer p.observe("load")()

	cutoff, err := p.cfg.CutoffTime()
	if err != nil {
		return nil, err
	}

	p.logger.WithField("data_dir", p.cfg.Paths.DataDir).Info("Loading retweet records")
	records, err := p.loader.LoadRecords(p.cfg.Paths.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	win, err := ledger.Partition(records, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to partition records: %w", err)
	}

	early, err := ledger.Build(win.Before)
	if err != nil {
		return nil, fmt.Errorf("failed to build early ledger: %w", err)
	}
	future, err := ledger.Build(win.After)
	if err != nil {
		return nil, fmt.Errorf("failed to build future ledger: %w", err)
	}

	if p.metrics != nil {
		p.metrics.RecordsLoaded.WithLabelValues("before").Add(float64(len(win.Before)))
		p.metrics.RecordsLoaded.WithLabelValues("after").Add(float64(len(win.After)))
		p.metrics.LedgerUsers.WithLabelValues("before").Set(float64(early.Len()))
		p.metrics.LedgerUsers.WithLabelValues("after").Set(float64(future.Len()))
	}
	p.logger.WithFields(logging.Fields{
		"cutoff":         cutoff.Format(time.DateOnly),
		"records_before": len(win.Before),
		"records_after":  len(win.After),
		"authors_before": early.Len(),
		"authors_after":  future.Len(),
	}).Info("Built retweet ledgers")

	return &windows{early: win.Before, earlyLedger: early, futureLedger: future}, nil
}

func (p *Pipeline) fibStage(ctx context.Context, early *ledger.Ledger, threshold float64) (*FIBResult, error) {
	defer p.observe("fib")()

	res := &FIBResult{Scores: fib.ScoreLedger(early)}
	if threshold == 0 {
		res.Selected = fib.SortDescending(res.Scores)
	} else {
		selected, cutoff, err := fib.SelectTop(res.Scores, threshold)
		if err != nil {
			return nil, fmt.Errorf("failed to select superspreaders: %w", err)
		}
		res.Selected, res.Cutoff = selected, cutoff
	}

	res.Path = p.cfg.FIBResultsPath(p.now(), threshold)
	if err := report.WriteFile(res.Path, func(w io.Writer) error {
		return report.WriteFIBScores(w, res.Selected)
	}); err != nil {
		return nil, err
	}
	p.logger.WithFields(logging.Fields{
		"threshold": threshold,
		"cutoff":    res.Cutoff,
		"users":     len(res.Scores),
		"selected":  len(res.Selected),
		"path":      res.Path,
	}).Info("Wrote FIB-indices")

	if p.store != nil {
		run, err := p.createRun(ctx, storage.KindFIB, threshold)
		if err != nil {
			return nil, err
		}
		if err := p.store.SaveFIBScores(ctx, run.ID, res.Selected); err != nil {
			return nil, fmt.Errorf("failed to save FIB scores: %w", err)
		}
	}
	return res, nil
}

func (p *Pipeline) baselinesStage(ctx context.Context, w *windows) (rank.RankedList, rank.RankedList, error) {
	defer p.observe("baselines")()

	popular := rank.PopularBaseline(w.early)
	influential := rank.InfluentialBaseline(w.earlyLedger)
	if popular.Len() == 0 {
		return popular, influential, fmt.Errorf("no records before cutoff: %w", rank.ErrEmptyPopulation)
	}

	if err := report.WriteFile(p.cfg.PopularBaselinePath(), func(out io.Writer) error {
		return report.WriteBaseline(out, popular, report.ColFollowerCount)
	}); err != nil {
		return popular, influential, err
	}
	if err := report.WriteFile(p.cfg.InfluentialBaselinePath(), func(out io.Writer) error {
		return report.WriteBaseline(out, influential, report.ColRetweetCount)
	}); err != nil {
		return popular, influential, err
	}
	p.logger.WithFields(logging.Fields{
		"users":       popular.Len(),
		"popular":     p.cfg.PopularBaselinePath(),
		"influential": p.cfg.InfluentialBaselinePath(),
	}).Info("Wrote baselines")

	if p.store != nil {
		run, err := p.createRun(ctx, storage.KindBaselines, 0)
		if err != nil {
			return popular, influential, err
		}
		for _, list := range []rank.RankedList{popular, influential} {
			if err := p.store.SaveRankedList(ctx, run.ID, list); err != nil {
				return popular, influential, fmt.Errorf("failed to save %s baseline: %w", list.Method, err)
			}
		}
	}
	return popular, influential, nil
}

func (p *Pipeline) dismantleStage(ctx context.Context, in rank.Inputs, future *ledger.Ledger) (*dismantle.Table, error) {
	defer p.observe("dismantle")()

	lists, err := rank.RankAll(in)
	if err != nil {
		return nil, fmt.Errorf("failed to rank users: %w", err)
	}
	for _, l := range lists {
		if p.metrics != nil {
			p.metrics.UsersRanked.WithLabelValues(l.Method).Set(float64(l.Len()))
		}
	}

	p.logger.WithField("users", lists[0].Len()).Info("Begin dismantling procedure")
	traces, err := dismantle.RunAll(ctx, lists, future, p.progress())
	if err != nil {
		return nil, err
	}
	for _, tr := range traces {
		if p.metrics != nil {
			p.metrics.UsersRemoved.WithLabelValues(tr.Method).Add(float64(len(tr.Proportions) - 1))
		}
		p.logger.WithFields(logging.Fields{
			"method":  tr.Method,
			"removed": tr.Removed(len(tr.Proportions) - 1),
		}).Info("Dismantling complete")
	}

	table, err := dismantle.NewTable(traces)
	if err != nil {
		return nil, err
	}
	path := p.cfg.DismantlingResultsPath()
	if err := report.WriteFile(path, func(w io.Writer) error {
		return report.WriteDismantling(w, table)
	}); err != nil {
		return nil, err
	}
	p.logger.WithField("path", path).Info("Wrote dismantling results")

	if p.store != nil {
		run, err := p.createRun(ctx, storage.KindDismantling, 0)
		if err != nil {
			return nil, err
		}
		for _, l := range lists {
			if err := p.store.SaveRankedList(ctx, run.ID, l); err != nil {
				return nil, fmt.Errorf("failed to save %s ranking: %w", l.Method, err)
			}
		}
		if err := p.store.SaveTraces(ctx, run.ID, traces); err != nil {
			return nil, fmt.Errorf("failed to save traces: %w", err)
		}
	}
	return table, nil
}

func (p *Pipeline) goldStandardStage(ctx context.Context, users []string, future *ledger.Ledger) (dismantle.GoldStandard, error) {
	defer p.observe("gold_standard")()

	gold, err := dismantle.PerUser(users, future, future.Total(), p.progress())
	if err != nil {
		return nil, fmt.Errorf("failed to compute gold standard: %w", err)
	}

	path := p.cfg.GoldStandardPath()
	if err := report.WriteFile(path, func(w io.Writer) error {
		return report.WriteGoldStandard(w, gold)
	}); err != nil {
		return nil, err
	}
	p.logger.WithFields(logging.Fields{"users": len(gold), "path": path}).Info("Wrote gold standard")

	if p.store != nil {
		run, err := p.createRun(ctx, storage.KindGoldStandard, 0)
		if err != nil {
			return nil, err
		}
		if err := p.store.SaveGoldStandard(ctx, run.ID, gold); err != nil {
			return nil, fmt.Errorf("failed to save gold standard: %w", err)
		}
	}
	return gold, nil
}

func (p *Pipeline) loadBotScores() ([]rank.BotObservation, error) {
	if p.cfg.Paths.BotScores == "" {
		return nil, errors.New("paths.bot_scores is not configured")
	}
	bots, err := loader.LoadBotScores(p.cfg.Paths.BotScores)
	if err != nil {
		return nil, fmt.Errorf("failed to load bot scores: %w", err)
	}
	return bots, nil
}

func (p *Pipeline) createRun(ctx context.Context, kind string, threshold float64) (storage.Run, error) {
	cutoff, err := p.cfg.CutoffTime()
	if err != nil {
		return storage.Run{}, err
	}
	run := storage.NewRun(kind, cutoff, threshold)
	if err := p.store.CreateRun(ctx, run); err != nil {
		return run, fmt.Errorf("failed to record %s run: %w", kind, err)
	}
	p.logger.WithFields(logging.Fields{"run_id": run.ID, "kind": kind}).Debug("Recorded run")
	return run, nil
}

func (p *Pipeline) progress() dismantle.Option {
	return dismantle.WithProgress(p.cfg.Vars.ProgressEvery, func(method string, done int) {
		p.logger.WithFields(logging.Fields{"method": method, "users": done}).Info("Users processed")
	})
}

// observe times a stage; call the returned func when the stage ends.
func (p *Pipeline) observe(stage string) func() {
	start := time.Now()
	return func() {
		if p.metrics != nil {
			p.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
		}
	}
}
