package main

import (
	"fmt"
	"os"

	"superspreaders/internal/config"
	"superspreaders/internal/logging"
	"superspreaders/internal/pipeline"
	"superspreaders/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "fibers",
		Short: "Identify misinformation superspreaders and simulate network dismantling",
		// failures are runtime errors, not usage errors
		SilenceUsage: true,
	}
	configPath  string
	dbPath      string
	metricsFile string
	threshold   float64
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config-file", "c", "config.yaml", "Path to the project's config file containing paths and file names")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "SQLite database for results (overrides paths.db; \"none\" disables persistence)")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile when done")

	fibCmd.Flags().Float64VarP(&threshold, "threshold", "t", -1, "Percentile above which superspreaders are selected, in (0, 100]; 0 writes every user (default vars.threshold)")

	rootCmd.AddCommand(fibCmd)
	rootCmd.AddCommand(baselinesCmd)
	rootCmd.AddCommand(dismantleCmd)
	rootCmd.AddCommand(goldStandardCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(exportCmd)
}

// setup loads the config and builds the pipeline with its store and metrics.
// The returned func releases them and must run on failure as well.
func setup() (*config.Config, logging.Logger, *pipeline.Pipeline, func(), error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.NewLogger(cfg.Log.Level)

	reg := prometheus.NewRegistry()
	opts := []pipeline.Option{pipeline.WithMetrics(pipeline.NewMetrics(reg))}

	path := cfg.Paths.DB
	if dbPath != "" {
		path = dbPath
	}
	var store *storage.SQLiteStore
	if path != "" && path != "none" {
		store, err = storage.NewSQLiteStore(path)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		opts = append(opts, pipeline.WithStore(store))
	}

	cleanup := func() {
		if store != nil {
			store.Close()
		}
		if metricsFile != "" {
			if err := prometheus.WriteToTextfile(metricsFile, reg); err != nil {
				logger.WithError(err).Warn("Failed to write metrics")
			}
		}
	}
	return cfg, logger, pipeline.New(cfg, logger, opts...), cleanup, nil
}

var fibCmd = &cobra.Command{
	Use:   "fib",
	Short: "Calculate FIB-indices for the early window and select superspreaders",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, p, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		t := threshold
		if t < 0 {
			t = cfg.Vars.Threshold
		}
		res, err := p.FIB(cmd.Context(), t)
		if err != nil {
			logger.WithError(err).Error("FIB stage failed")
			return err
		}
		logger.WithFields(logging.Fields{"selected": len(res.Selected), "path": res.Path}).Info("Script complete")
		return nil
	},
}

var baselinesCmd = &cobra.Command{
	Use:   "baselines",
	Short: "Build the popular and influential baselines from the early window",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, p, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		if _, _, err := p.Baselines(cmd.Context()); err != nil {
			logger.WithError(err).Error("Baselines stage failed")
			return err
		}
		return nil
	},
}

var dismantleCmd = &cobra.Command{
	Use:   "dismantle",
	Short: "Rank users by FIB-index, bot score, followers and retweets, then dismantle the future window",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, p, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		table, err := p.Dismantle(cmd.Context())
		if err != nil {
			logger.WithError(err).Error("Dismantling failed")
			return err
		}
		logger.WithField("steps", len(table.Rows)).Info("Script complete")
		return nil
	},
}

var goldStandardCmd = &cobra.Command{
	Use:   "gold-standard",
	Short: "Measure the misinformation each user alone removes from the future window",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, p, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		gold, err := p.GoldStandard(cmd.Context())
		if err != nil {
			logger.WithError(err).Error("Gold standard failed")
			return err
		}
		logger.WithField("users", len(gold)).Info("Script complete")
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every stage end to end",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, p, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := p.Run(cmd.Context()); err != nil {
			logger.WithError(err).Error("Pipeline failed")
			return err
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:       "export {fib|popular|influential|dismantling|gold-standard}",
	Short:     "Print the latest stored result as CSV",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{pipeline.ResultFIB, pipeline.ResultPopular, pipeline.ResultInfluential, pipeline.ResultDismantling, pipeline.ResultGoldStandard},
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, p, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		run, err := p.Export(cmd.Context(), args[0], cmd.OutOrStdout())
		if err != nil {
			logger.WithError(err).Error("Export failed")
			return err
		}
		logger.WithFields(logging.Fields{"run_id": run.ID, "created_at": run.CreatedAt}).Debug("Exported run")
		return nil
	},
}
