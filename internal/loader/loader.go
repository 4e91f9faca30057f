// Package loader reads the tabular inputs of the analysis: retweet records,
// per-tweet bot scores, baselines and FIB tables.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"superspreaders/internal/ledger"
)

// Record table columns.
const (
	ColTweetID       = "original_tweet_id"
	ColAuthorID      = "original_tweeter_user_id"
	ColRetweetCount  = "retweet_count"
	ColRetweeterID   = "retweeting_user_id"
	ColCreatedAt     = "created_at"
	ColFollowerCount = "original_tweeter_f_count"
)

var requiredRecordColumns = []string{ColTweetID, ColAuthorID, ColRetweetCount, ColRetweeterID, ColCreatedAt}

// Loader scans a data directory for record tables.
type Loader struct {
	ignored []string
}

// NewLoader creates a new loader instance.
func NewLoader() *Loader {
	return &Loader{
		ignored: []string{".git", "baselines", "dismantling", "fib"},
	}
}

// ScanRecords walks root (a directory or a single file) and streams every
// record of every .csv file to onRecord. Files are visited in lexical order.
func (l *Loader) ScanRecords(root string, onRecord func(ledger.Record)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip ignored directories
		if d.IsDir() {
			if path == root {
				return nil
			}
			for _, ign := range l.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if !strings.EqualFold(filepath.Ext(d.Name()), ".csv") {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := ReadRecords(f, onRecord); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return nil
	})
}

// LoadRecords collects all records under root.
func (l *Loader) LoadRecords(root string) ([]ledger.Record, error) {
	var records []ledger.Record
	err := l.ScanRecords(root, func(r ledger.Record) {
		records = append(records, r)
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ReadRecords decodes a record table with a header row.
func ReadRecords(r io.Reader, onRecord func(ledger.Record)) error {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("read header: %w", err)
	}
	cols := indexColumns(header)
	for _, name := range requiredRecordColumns {
		if _, ok := cols[name]; !ok {
			return fmt.Errorf("missing column %q", name)
		}
	}
	followerCol, hasFollowers := cols[ColFollowerCount]

	for row := 0; ; row++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		rec, err := parseRecord(fields, cols)
		if err == nil && hasFollowers {
			rec.FollowerCount, err = parseFloatField(fields[followerCol], ColFollowerCount)
		}
		if err != nil {
			var mre *ledger.MalformedRecordError
			if errors.As(err, &mre) {
				mre.Index = row
			}
			return err
		}
		if err := rec.Validate(); err != nil {
			var mre *ledger.MalformedRecordError
			if errors.As(err, &mre) {
				mre.Index = row
			}
			return err
		}
		onRecord(rec)
	}
}

func parseRecord(fields []string, cols map[string]int) (ledger.Record, error) {
	rec := ledger.Record{
		TweetID:     strings.TrimSpace(fields[cols[ColTweetID]]),
		AuthorID:    strings.TrimSpace(fields[cols[ColAuthorID]]),
		RetweeterID: strings.TrimSpace(fields[cols[ColRetweeterID]]),
	}

	raw := strings.TrimSpace(fields[cols[ColRetweetCount]])
	if raw == "" {
		return rec, &ledger.MalformedRecordError{Index: -1, Field: ColRetweetCount, Reason: "missing"}
	}
	count, err := parseCount(raw)
	if err != nil {
		return rec, &ledger.MalformedRecordError{Index: -1, Field: ColRetweetCount, Reason: fmt.Sprintf("non-numeric value %q", raw)}
	}
	rec.RetweetCount = count

	created := strings.TrimSpace(fields[cols[ColCreatedAt]])
	if created == "" {
		return rec, &ledger.MalformedRecordError{Index: -1, Field: ColCreatedAt, Reason: "missing"}
	}
	rec.CreatedAt, err = ledger.ParseTwitterTime(created)
	if err != nil {
		return rec, &ledger.MalformedRecordError{Index: -1, Field: ColCreatedAt, Reason: err.Error()}
	}
	return rec, nil
}

// parseCount accepts integers and integral floats ("12.0"), which appear in
// tables exported from dataframes.
func parseCount(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("not an integer: %q", raw)
	}
	return int(f), nil
}

func parseFloatField(raw, field string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, &ledger.MalformedRecordError{Index: -1, Field: field, Reason: "missing"}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ledger.MalformedRecordError{Index: -1, Field: field, Reason: fmt.Sprintf("non-numeric value %q", raw)}
	}
	return v, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	return cols
}
