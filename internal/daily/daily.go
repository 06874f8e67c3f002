// internal/daily/daily.go
//
// Date helpers shared by the daily challenge mode and the leaderboards.
//   - DateKey: YYYY-MM-DD in UTC.
//   - Seed: a deterministic RNG seed per (date, game) so every player gets
//     the same challenges on the same day.
//   - Since: start of a leaderboard time frame (daily/weekly/monthly).

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"time"
)

// TimeFrame filters leaderboards by score age.
type TimeFrame string

const (
	All     TimeFrame = "all"
	Daily   TimeFrame = "daily"
	Weekly  TimeFrame = "weekly"
	Monthly TimeFrame = "monthly"
)

var ErrBadTimeFrame = errors.New("timeFrame must be all, daily, weekly or monthly")

// ParseTimeFrame accepts "" as All.
func ParseTimeFrame(s string) (TimeFrame, error) {
	switch tf := TimeFrame(s); tf {
	case "":
		return All, nil
	case All, Daily, Weekly, Monthly:
		return tf, nil
	}
	return "", ErrBadTimeFrame
}

// Since returns the earliest creation time included in tf.
// ok is false for All (no lower bound).
func (tf TimeFrame) Since(now time.Time) (t time.Time, ok bool) {
	switch tf {
	case Daily:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), true
	case Weekly:
		return now.AddDate(0, 0, -7), true
	case Monthly:
		return now.AddDate(0, -1, 0), true
	}
	return time.Time{}, false
}

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed returns HMAC(salt, YYYY-MM-DD + ":" + game) folded into an int64.
func Seed(date time.Time, salt, game string) int64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date) + ":" + game))
	sum := h.Sum(nil)
	// first 8 bytes, sign bit cleared
	return int64(binary.BigEndian.Uint64(sum[:8]) &^ (1 << 63))
}
