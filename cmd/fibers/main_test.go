package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRecords = `original_tweet_id,original_tweeter_user_id,retweet_count,retweeting_user_id,created_at,original_tweeter_f_count
t1,a,9,r1,Thu Jan 16 10:00:00 +0000 2020,100
t3,b,1,r4,Sat Feb 01 11:00:00 +0000 2020,1000
t10,a,50,r7,Sun Mar 01 00:00:00 +0000 2020,120
t11,b,30,r8,Mon Apr 06 00:00:00 +0000 2020,1000
`

const testBots = `tid,user_id,bot_score_lite
t1,a,0.1
t3,b,0.9
`

// writeProject lays out a data directory and a config pointing at it.
func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "moes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "moes", "iffyp.csv"), []byte(testRecords), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "bots.csv"), []byte(testBots), 0o644))

	cfg := fmt.Sprintf(`paths:
  data_dir: %[1]s/moes
  bot_scores: %[1]s/bots.csv
  baselines_dir: %[1]s/baselines
  dismantling_dir: %[1]s/dismantling
  fib_dir: %[1]s/fib
  db: %[1]s/fibers.db
log:
  level: error
`, filepath.ToSlash(root))
	path := filepath.Join(root, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("FIBERS_DATA_DIR", "")
	t.Setenv("FIBERS_DB", "")
	t.Setenv("FIBERS_THRESHOLD", "")
	t.Setenv("LOG_LEVEL", "")

	// flags persist between executions of the shared root command
	dbPath, metricsFile, threshold = "", "", -1

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestFailedCommandStillWritesMetrics(t *testing.T) {
	cfgPath := writeProject(t)
	metrics := filepath.Join(t.TempDir(), "fibers.prom")

	// no baselines have been built yet
	_, err := execute(t, "dismantle", "-c", cfgPath, "--db", "none", "--metrics-file", metrics)
	require.Error(t, err)

	raw, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "fibers_records_loaded_total")
	assert.Contains(t, string(raw), `stage="load"`)
}

func TestRunThenExport(t *testing.T) {
	cfgPath := writeProject(t)

	_, err := execute(t, "run", "-c", cfgPath)
	require.NoError(t, err)

	out, err := execute(t, "export", "popular", "-c", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "user_id,original_tweeter_f_count\nb,1000\na,100\n", out)

	_, err = execute(t, "export", "fib", "-c", cfgPath, "--db", "none")
	assert.ErrorContains(t, err, "no results store")
}
