package query

import (
	"context"
	"errors"
	"time"

	"alerttrack/internal/domain/alert"
	"alerttrack/internal/errs"
)

type CountByIntervalInput struct {
	Range    string
	Interval string
	Start    *time.Time
	End      *time.Time
	Filter   string
}

// CountByInterval answers "how many messages per bucket" over a window.
// End defaults to the engine clock's now; Start, when absent, is derived
// as End minus the parsed Range. Explicit Start/End take precedence over
// Range, which is then not even parsed. Buckets with zero messages are not
// synthesized; an empty window yields an empty sequence, not an error.
func (s *Service) CountByInterval(ctx context.Context, input CountByIntervalInput) ([]alert.BucketCount, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	interval, err := alert.ParseInterval(input.Interval)
	if err != nil {
		return nil, err
	}

	end := s.now().UTC()
	if input.End != nil {
		end = input.End.UTC()
	}

	var start time.Time
	switch {
	case input.Start != nil:
		start = input.Start.UTC()
	default:
		span, err := alert.ParseRange(input.Range)
		if err != nil {
			return nil, err
		}
		start = end.Add(-span)
	}

	if !start.Before(end) {
		return nil, &alert.ValidationError{Field: "start", Reason: "must be before end"}
	}

	buckets, err := s.stats.CountByInterval(ctx, start, end, int64(interval/time.Second), input.Filter)
	if err != nil {
		return nil, errs.Wrap(err, "count by interval")
	}
	return buckets, nil
}

// CountByMinute buckets messages from the last minutesBack minutes onto
// fixed clock-minute boundaries, optionally scoped to one event. It is
// deliberately separate from CountByInterval: clock-minute and epoch-grid
// bucketing diverge whenever the interval is not a divisor of 60.
func (s *Service) CountByMinute(ctx context.Context, minutesBack int, eventID *uint64) ([]alert.MinuteCount, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	if minutesBack <= 0 {
		minutesBack = 60
	}

	start := s.now().UTC().Add(-time.Duration(minutesBack) * time.Minute)
	minutes, err := s.stats.CountByMinute(ctx, start, eventID)
	if err != nil {
		return nil, errs.Wrap(err, "count by minute")
	}
	return minutes, nil
}
