package ports

import (
	"context"
	"errors"
	"time"

	"alerttrack/internal/domain/alert"
)

var (
	ErrEventNotFound   = errors.New("event not found")
	ErrMessageNotFound = errors.New("message not found")
)

// EventFilter narrows event listings. Zero values mean "no filter";
// Service and Search are case-insensitive substring matches.
type EventFilter struct {
	Status  *bool
	IP      string
	Service string
	Search  string
}

type MessageFilter struct {
	EventID *uint64
	Search  string
}

// Page is an offset/limit window. Limit <= 0 means no limit.
type Page struct {
	Offset int
	Limit  int
}

type EventReadRepository interface {
	GetEvent(ctx context.Context, eventID uint64) (alert.Event, error)
	ListEvents(ctx context.Context, filter EventFilter, page Page) ([]alert.Event, error)
	CountEvents(ctx context.Context, filter EventFilter) (int64, error)
}

// EventRepository is the correlation engine's storage contract. Upsert is
// the single write path: one atomic conditional update-or-insert on the
// (ip, name) key. Implementations must resolve a lost insert race against
// the uniqueness constraint internally, never surface a duplicate-key
// error, and return the post-write snapshot plus whether a row was created.
type EventRepository interface {
	EventReadRepository
	Upsert(ctx context.Context, host alert.HostData, name string, status bool, at time.Time) (alert.Event, bool, error)
}

type MessageRepository interface {
	CreateMessage(ctx context.Context, text string, at time.Time) (alert.Message, error)
	GetMessage(ctx context.Context, messageID uint64) (alert.Message, error)
	ListMessages(ctx context.Context, filter MessageFilter, page Page) ([]alert.Message, error)
	CountMessages(ctx context.Context, filter MessageFilter) (int64, error)
	// SetEventRef sets the message's event back-reference exactly once per
	// correlation; it never clears an existing reference.
	SetEventRef(ctx context.Context, messageID uint64, eventID uint64, at time.Time) error
}

// StatsRepository answers the aggregation queries. Both operations return
// only buckets holding at least one message, in ascending time order.
type StatsRepository interface {
	// CountByInterval buckets messages in [start, end) onto the epoch grid
	// of intervalSeconds. A non-empty filter restricts the count to
	// messages whose event name or services match it.
	CountByInterval(ctx context.Context, start, end time.Time, intervalSeconds int64, filter string) ([]alert.BucketCount, error)
	// CountByMinute buckets messages since start onto calendar-minute
	// boundaries, optionally scoped to one event.
	CountByMinute(ctx context.Context, start time.Time, eventID *uint64) ([]alert.MinuteCount, error)
}
