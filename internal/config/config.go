package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

type Config struct {
	Paths struct {
		DataDir        string `yaml:"data_dir"`        // retweet record CSVs
		BotScores      string `yaml:"bot_scores"`      // per-tweet bot score CSV
		FIBScores      string `yaml:"fib_scores"`      // all-users FIB table (thresh-0)
		BaselinesDir   string `yaml:"baselines_dir"`
		DismantlingDir string `yaml:"dismantling_dir"`
		FIBDir         string `yaml:"fib_dir"`
		DB             string `yaml:"db"`
	} `yaml:"paths"`
	Files struct {
		DismantlingResults  string `yaml:"iffyp_dismantling_results"`
		GoldStandard        string `yaml:"iffyp_dismantling_gold_standard"`
		BaselinePopular     string `yaml:"baseline_popular"`
		BaselineInfluential string `yaml:"baseline_influential"`
	} `yaml:"files"`
	Vars struct {
		Cutoff        string  `yaml:"cutoff"`    // YYYY-MM-DD, start of the future window
		Threshold     float64 `yaml:"threshold"` // superspreader percentile
		ProgressEvery int     `yaml:"progress_every"`
	} `yaml:"vars"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the settings of the 2020 iffy+ study.
func Default() *Config {
	var cfg Config
	cfg.Paths.DataDir = "data/moes"
	cfg.Paths.BaselinesDir = "data/baselines"
	cfg.Paths.DismantlingDir = "data/dismantling"
	cfg.Paths.FIBDir = "data/fib"
	cfg.Paths.DB = "fibers.db"
	cfg.Files.DismantlingResults = "iffyp_dismantling_results.csv"
	cfg.Files.GoldStandard = "iffyp_dismantling_results_gold_standard.csv"
	cfg.Files.BaselinePopular = "iffyp_popular_baseline.csv"
	cfg.Files.BaselineInfluential = "iffyp_influential_baseline.csv"
	cfg.Vars.Cutoff = "2020-03-01"
	cfg.Vars.Threshold = 99
	cfg.Vars.ProgressEvery = 2000
	cfg.Log.Level = "info"
	return &cfg
}

// LoadConfig reads the YAML file at path over the defaults. A missing file
// is not an error. Environment variables (optionally from .env) win.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := validateDocument(file); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	// 3. Override with Environment Variables if present
	if dir := os.Getenv("FIBERS_DATA_DIR"); dir != "" {
		cfg.Paths.DataDir = dir
	}
	if db := os.Getenv("FIBERS_DB"); db != "" {
		cfg.Paths.DB = db
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if th := os.Getenv("FIBERS_THRESHOLD"); th != "" {
		v, err := strconv.ParseFloat(th, 64)
		if err != nil {
			return nil, fmt.Errorf("FIBERS_THRESHOLD: %w", err)
		}
		cfg.Vars.Threshold = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := c.CutoffTime(); err != nil {
		return err
	}
	if c.Vars.Threshold < 0 || c.Vars.Threshold > 100 {
		return fmt.Errorf("vars.threshold %v out of range [0, 100]", c.Vars.Threshold)
	}
	if c.Vars.ProgressEvery < 0 {
		return fmt.Errorf("vars.progress_every must not be negative")
	}
	return nil
}

// CutoffTime is the first instant of the future window, in UTC.
func (c *Config) CutoffTime() (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, c.Vars.Cutoff, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("vars.cutoff: %w", err)
	}
	return t, nil
}

func (c *Config) DismantlingResultsPath() string {
	return filepath.Join(c.Paths.DismantlingDir, c.Files.DismantlingResults)
}

func (c *Config) GoldStandardPath() string {
	return filepath.Join(c.Paths.DismantlingDir, c.Files.GoldStandard)
}

func (c *Config) PopularBaselinePath() string {
	return filepath.Join(c.Paths.BaselinesDir, c.Files.BaselinePopular)
}

func (c *Config) InfluentialBaselinePath() string {
	return filepath.Join(c.Paths.BaselinesDir, c.Files.BaselineInfluential)
}

// FIBResultsPath names a FIB table after the run date and threshold,
// e.g. top-fibers--2021_02_19--thresh-99.csv.
func (c *Config) FIBResultsPath(now time.Time, threshold float64) string {
	name := fmt.Sprintf("top-fibers--%s--thresh-%s.csv", now.Format("2006_01_02"), strconv.FormatFloat(threshold, 'f', -1, 64))
	return filepath.Join(c.Paths.FIBDir, name)
}
