package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"superspreaders/internal/fib"
	"superspreaders/internal/ledger"
	"superspreaders/internal/rank"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recordHeader = "original_tweet_id,original_tweeter_user_id,retweet_count,retweeting_user_id,created_at,original_tweeter_f_count\n"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReadRecords(t *testing.T) {
	in := recordHeader +
		"t1,u1,5,rA,Wed Jan 15 10:00:00 +0000 2020,100\n" +
		"t1,u1,9.0,rB,2020-03-02T00:00:00Z,110\n"

	var got []ledger.Record
	require.NoError(t, ReadRecords(strings.NewReader(in), func(r ledger.Record) {
		got = append(got, r)
	}))

	require.Len(t, got, 2)
	assert.Equal(t, ledger.Record{
		TweetID:       "t1",
		AuthorID:      "u1",
		RetweetCount:  5,
		RetweeterID:   "rA",
		CreatedAt:     time.Date(2020, 1, 15, 10, 0, 0, 0, time.UTC),
		FollowerCount: 100,
	}, got[0])
	assert.Equal(t, 9, got[1].RetweetCount)
}

func TestReadRecords_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		row   string
		field string
	}{
		{"non-numeric count", "t1,u1,lots,rA,2020-03-02T00:00:00Z,1", ColRetweetCount},
		{"fractional count", "t1,u1,1.5,rA,2020-03-02T00:00:00Z,1", ColRetweetCount},
		{"negative count", "t1,u1,-3,rA,2020-03-02T00:00:00Z,1", ColRetweetCount},
		{"missing author", "t1,,3,rA,2020-03-02T00:00:00Z,1", ColAuthorID},
		{"missing timestamp", "t1,u1,3,rA,,1", ColCreatedAt},
		{"bad followers", "t1,u1,3,rA,2020-03-02T00:00:00Z,many", ColFollowerCount},
		{"empty followers", "t1,u1,3,rA,2020-03-02T00:00:00Z,", ColFollowerCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := recordHeader + "t0,u0,1,r0,2020-03-02T00:00:00Z,1\n" + tt.row + "\n"
			err := ReadRecords(strings.NewReader(in), func(ledger.Record) {})

			var mre *ledger.MalformedRecordError
			require.ErrorAs(t, err, &mre)
			assert.Equal(t, tt.field, mre.Field)
			assert.Equal(t, 1, mre.Index)
		})
	}
}

func TestReadRecords_MissingColumn(t *testing.T) {
	err := ReadRecords(strings.NewReader("original_tweet_id,retweet_count\nt1,3\n"), func(ledger.Record) {})
	assert.ErrorContains(t, err, ColAuthorID)
}

func TestLoader_ScanRecords(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.csv"), recordHeader+"t1,u1,5,rA,2020-01-01T00:00:00Z,1\n")
	writeFile(t, filepath.Join(root, "nested", "b.csv"), recordHeader+"t2,u2,7,rB,2020-05-01T00:00:00Z,2\n")
	writeFile(t, filepath.Join(root, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(root, "baselines", "c.csv"), "user_id,retweet_count\nu1,5\n")

	records, err := NewLoader().LoadRecords(root)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "t1", records[0].TweetID)
	assert.Equal(t, "t2", records[1].TweetID)

	t.Run("Single file", func(t *testing.T) {
		records, err := NewLoader().LoadRecords(filepath.Join(root, "a.csv"))
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("Broken file names the path", func(t *testing.T) {
		writeFile(t, filepath.Join(root, "z.csv"), recordHeader+"t3,u3,x,rC,2020-05-01T00:00:00Z,2\n")
		_, err := NewLoader().LoadRecords(root)
		assert.ErrorContains(t, err, "z.csv")
	})
}

func TestLoadTables(t *testing.T) {
	dir := t.TempDir()

	t.Run("Bot scores", func(t *testing.T) {
		path := filepath.Join(dir, "bots.csv")
		writeFile(t, path, "tid,user_id,scored_at,bot_score_lite\nt1,u1,2020-01-01,0.25\nt2,u2,2020-01-02,0.75\n")
		obs, err := LoadBotScores(path)
		require.NoError(t, err)
		assert.Equal(t, []rank.BotObservation{
			{TweetID: "t1", UserID: "u1", Score: 0.25},
			{TweetID: "t2", UserID: "u2", Score: 0.75},
		}, obs)
	})

	t.Run("Bot scores with a short row", func(t *testing.T) {
		path := filepath.Join(dir, "bots_short.csv")
		writeFile(t, path, "tid,user_id,bot_score_lite\nt1,u1,0.5\nt2,u2\n")
		assert.NotPanics(t, func() {
			_, err := LoadBotScores(path)
			assert.ErrorContains(t, err, "row 2: want 3 columns, got 2")
		})
	})

	t.Run("Baseline", func(t *testing.T) {
		path := filepath.Join(dir, "pop.csv")
		writeFile(t, path, "original_tweeter_user_id,original_tweeter_f_count\nu2,300.5\nu1,10\n")
		scores, err := LoadBaseline(path)
		require.NoError(t, err)
		assert.Equal(t, []rank.Score{{UserID: "u2", Value: 300.5}, {UserID: "u1", Value: 10}}, scores)
	})

	t.Run("FIB scores without header", func(t *testing.T) {
		path := filepath.Join(dir, "fib.csv")
		writeFile(t, path, "u1,4\nu2,0\n")
		scores, err := LoadFIBScores(path)
		require.NoError(t, err)
		assert.Equal(t, []fib.Score{{UserID: "u1", Index: 4}, {UserID: "u2", Index: 0}}, scores)
	})

	t.Run("FIB scores with header", func(t *testing.T) {
		path := filepath.Join(dir, "fib_h.csv")
		writeFile(t, path, "user_id,fib_index\nu1,4\n")
		scores, err := LoadFIBScores(path)
		require.NoError(t, err)
		assert.Equal(t, []fib.Score{{UserID: "u1", Index: 4}}, scores)
	})

	t.Run("Negative FIB index", func(t *testing.T) {
		path := filepath.Join(dir, "fib_neg.csv")
		writeFile(t, path, "u1,4\nu2,-3\n")
		_, err := LoadFIBScores(path)
		assert.ErrorContains(t, err, "row 1: negative fib_index -3")
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := LoadBaseline(filepath.Join(dir, "absent.csv"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
