package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"superspreaders/internal/fib"
	"superspreaders/internal/rank"
)

// LoadBotScores reads a per-tweet bot score table with the columns
// tid, user_id and bot_score_lite.
func LoadBotScores(path string) ([]rank.BotObservation, error) {
	rows, err := readAll(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	cols := indexColumns(rows[0])
	width := 0
	for _, name := range []string{"tid", "user_id", "bot_score_lite"} {
		c, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("%s: missing column %q", path, name)
		}
		width = max(width, c+1)
	}

	obs := make([]rank.BotObservation, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < width {
			return nil, fmt.Errorf("%s: row %d: want %d columns, got %d", path, i+1, width, len(row))
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(row[cols["bot_score_lite"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: bot_score_lite: %w", path, i+1, err)
		}
		obs = append(obs, rank.BotObservation{
			TweetID: strings.TrimSpace(row[cols["tid"]]),
			UserID:  strings.TrimSpace(row[cols["user_id"]]),
			Score:   score,
		})
	}
	return obs, nil
}

// LoadBaseline reads a two column (user id, value) baseline table with a
// header row, in file order.
func LoadBaseline(path string) ([]rank.Score, error) {
	rows, err := readAll(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty baseline", path)
	}

	scores := make([]rank.Score, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < 2 {
			return nil, fmt.Errorf("%s: row %d: want 2 columns, got %d", path, i+1, len(row))
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", path, i+1, err)
		}
		scores = append(scores, rank.Score{UserID: strings.TrimSpace(row[0]), Value: v})
	}
	return scores, nil
}

// LoadFIBScores reads a user_id,fib_index table. The header row is optional;
// the published superspreader files have none.
func LoadFIBScores(path string) ([]fib.Score, error) {
	rows, err := readAll(path)
	if err != nil {
		return nil, err
	}

	var scores []fib.Score
	for i, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("%s: row %d: want 2 columns, got %d", path, i, len(row))
		}
		idx, err := parseCount(strings.TrimSpace(row[1]))
		if err != nil {
			if i == 0 {
				continue // header
			}
			return nil, fmt.Errorf("%s: row %d: %w", path, i, err)
		}
		if idx < 0 {
			return nil, fmt.Errorf("%s: row %d: negative fib_index %d", path, i, idx)
		}
		scores = append(scores, fib.Score{UserID: strings.TrimSpace(row[0]), Index: idx})
	}
	return scores, nil
}

func readAll(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	var rows [][]string
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		rows = append(rows, row)
	}
}
