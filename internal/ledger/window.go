package ledger

import (
	"fmt"
	"time"
)

// Window holds the records of two disjoint time periods split at Cutoff.
type Window struct {
	Cutoff time.Time
	Before []Record
	After  []Record
}

// Partition splits records into those created strictly before cutoff and
// those created at or after it. Records without a timestamp are rejected.
func Partition(records []Record, cutoff time.Time) (*Window, error) {
	w := &Window{Cutoff: cutoff}
	for i, r := range records {
		if r.CreatedAt.IsZero() {
			return nil, &MalformedRecordError{Index: i, Field: "created_at", Reason: "missing"}
		}
		if r.CreatedAt.Before(cutoff) {
			w.Before = append(w.Before, r)
		} else {
			w.After = append(w.After, r)
		}
	}
	if err := w.check(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Window) check() error {
	for _, r := range w.Before {
		if !r.CreatedAt.Before(w.Cutoff) {
			return fmt.Errorf("record %s created at %s falls after cutoff %s", r.TweetID, r.CreatedAt, w.Cutoff)
		}
	}
	return nil
}
