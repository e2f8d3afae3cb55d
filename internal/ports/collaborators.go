package ports

import (
	"context"

	"alerttrack/internal/domain/alert"
)

// Enricher maps an IP to best-effort host attributes. It never fails across
// the boundary: on a lookup error or an unknown device it returns a
// HostData populated with only the IP.
type Enricher interface {
	Enrich(ctx context.Context, ip string) alert.HostData
}

// UpdatePublisher broadcasts an event snapshot to currently connected
// observers. Fire-and-forget: no acknowledgment, no ordering across
// subscribers, no retry. Correlation never blocks or fails on it.
type UpdatePublisher interface {
	Publish(event alert.Event)
}
