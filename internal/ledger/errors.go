package ledger

import "fmt"

// MalformedRecordError is returned when a record is missing a required field
// or carries an invalid retweet count.
type MalformedRecordError struct {
	Index  int // position of the record in the input, -1 when unknown
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("malformed record: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("malformed record %d: %s %s", e.Index, e.Field, e.Reason)
}
