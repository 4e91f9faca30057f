package ledger

import (
	"fmt"
	"time"
)

// TwitterTimeLayout is the created_at layout of the v1.1 Twitter API.
const TwitterTimeLayout = "Mon Jan 02 15:04:05 -0700 2006"

// Record is one observation of a retweet of an original post.
// The same original tweet is usually observed many times, each time with
// the retweet counter Twitter reported at that moment.
type Record struct {
	TweetID       string    `json:"original_tweet_id"`
	AuthorID      string    `json:"original_tweeter_user_id"`
	RetweetCount  int       `json:"retweet_count"`
	RetweeterID   string    `json:"retweeting_user_id"`
	CreatedAt     time.Time `json:"created_at"`
	FollowerCount float64   `json:"original_tweeter_f_count,omitempty"`
}

// Validate reports the first missing or invalid field of the record.
func (r Record) Validate() error {
	switch {
	case r.TweetID == "":
		return &MalformedRecordError{Index: -1, Field: "original_tweet_id", Reason: "missing"}
	case r.AuthorID == "":
		return &MalformedRecordError{Index: -1, Field: "original_tweeter_user_id", Reason: "missing"}
	case r.RetweeterID == "":
		return &MalformedRecordError{Index: -1, Field: "retweeting_user_id", Reason: "missing"}
	case r.RetweetCount < 0:
		return &MalformedRecordError{Index: -1, Field: "retweet_count", Reason: fmt.Sprintf("negative value %d", r.RetweetCount)}
	case r.FollowerCount < 0:
		return &MalformedRecordError{Index: -1, Field: "original_tweeter_f_count", Reason: fmt.Sprintf("negative value %g", r.FollowerCount)}
	}
	return nil
}

// ParseTwitterTime parses a created_at string and normalizes it to UTC.
// RFC3339 timestamps are accepted as well.
func ParseTwitterTime(s string) (time.Time, error) {
	if t, err := time.Parse(TwitterTimeLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
	}
	return t.UTC(), nil
}
