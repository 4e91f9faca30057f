// Package report writes analysis results as CSV tables.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"superspreaders/internal/dismantle"
	"superspreaders/internal/fib"
	"superspreaders/internal/rank"
)

// Baseline value column names.
const (
	ColFollowerCount = "original_tweeter_f_count"
	ColRetweetCount  = "retweet_count"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteDismantling writes one row per removal step and one column per method.
func WriteDismantling(w io.Writer, t *dismantle.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Methods); err != nil {
		return err
	}
	row := make([]string, len(t.Methods))
	for _, r := range t.Rows {
		for i, v := range r {
			row[i] = formatFloat(v)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteGoldStandard writes user_id,prop_rts_removed rows in the given order.
func WriteGoldStandard(w io.Writer, g dismantle.GoldStandard) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"user_id", "prop_rts_removed"}); err != nil {
		return err
	}
	for _, r := range g {
		if err := cw.Write([]string{r.UserID, formatFloat(r.Proportion)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFIBScores writes headerless user_id,fib_index rows.
func WriteFIBScores(w io.Writer, scores []fib.Score) error {
	cw := csv.NewWriter(w)
	for _, s := range scores {
		if err := cw.Write([]string{s.UserID, strconv.Itoa(s.Index)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBaseline writes a ranked list as user_id,<valueColumn>.
func WriteBaseline(w io.Writer, list rank.RankedList, valueColumn string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"user_id", valueColumn}); err != nil {
		return err
	}
	for _, s := range list.Scores {
		if err := cw.Write([]string{s.UserID, formatFloat(s.Value)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile creates path, including parent directories, and fills it with write.
func WriteFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
