package alert

import (
	"strconv"
	"time"
)

var (
	rangeUnits = map[byte]time.Duration{
		'm': time.Minute,
		'h': time.Hour,
		'd': 24 * time.Hour,
	}
	intervalUnits = map[byte]time.Duration{
		'm': time.Minute,
		'h': time.Hour,
	}
)

// ParseRange parses a "<integer><unit>" time-range token where the unit is
// m, h or d. An unrecognized unit or a non-positive count is a validation
// error, never a silent default.
func ParseRange(token string) (time.Duration, error) {
	return parseSpan("range", token, rangeUnits)
}

// ParseInterval parses a "<integer><unit>" bucket-width token where the
// unit is m or h.
func ParseInterval(token string) (time.Duration, error) {
	return parseSpan("interval", token, intervalUnits)
}

func parseSpan(field string, token string, units map[byte]time.Duration) (time.Duration, error) {
	if len(token) < 2 {
		return 0, &ValidationError{Field: field, Value: token, Reason: "expected <integer><unit>"}
	}

	unit, ok := units[token[len(token)-1]]
	if !ok {
		return 0, &ValidationError{Field: field, Value: token, Reason: "unknown unit"}
	}

	count, err := strconv.Atoi(token[:len(token)-1])
	if err != nil || count <= 0 {
		return 0, &ValidationError{Field: field, Value: token, Reason: "expected a positive integer count"}
	}

	return time.Duration(count) * unit, nil
}

// BucketStart floors t onto the epoch grid of the given bucket width:
// floor(unix(t) / width) * width, in whole seconds.
func BucketStart(t time.Time, interval time.Duration) time.Time {
	sec := int64(interval / time.Second)
	if sec <= 0 {
		return t.UTC()
	}
	return time.Unix(t.Unix()/sec*sec, 0).UTC()
}
