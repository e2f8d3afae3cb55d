package query

import (
	"context"
	"errors"
	"time"

	"alerttrack/internal/domain/alert"
	"alerttrack/internal/errs"
	"alerttrack/internal/ports"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// Service is the read side: event/message listings and the aggregation
// queries. It is lock-free and safe to run concurrently with ingestion;
// results reflect storage state at query time.
type Service struct {
	events   ports.EventReadRepository
	messages ports.MessageRepository
	stats    ports.StatsRepository
	now      func() time.Time
}

func NewService(events ports.EventReadRepository, messages ports.MessageRepository, stats ports.StatsRepository) *Service {
	return &Service{
		events:   events,
		messages: messages,
		stats:    stats,
		now:      time.Now,
	}
}

type ListEventsInput struct {
	Page    int
	PerPage int
	Status  *bool
	IP      string
	Service string
	Search  string
}

type EventPage struct {
	Items      []alert.Event `json:"items"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalPages int64         `json:"total_pages"`
}

func (s *Service) ListEvents(ctx context.Context, input ListEventsInput) (EventPage, error) {
	if ctx == nil {
		return EventPage{}, errors.New("context is required")
	}

	page, perPage := normalizePage(input.Page, input.PerPage)
	filter := ports.EventFilter{
		Status:  input.Status,
		IP:      input.IP,
		Service: input.Service,
		Search:  input.Search,
	}

	total, err := s.events.CountEvents(ctx, filter)
	if err != nil {
		return EventPage{}, errs.Wrap(err, "count events")
	}

	items, err := s.events.ListEvents(ctx, filter, ports.Page{
		Offset: (page - 1) * perPage,
		Limit:  perPage,
	})
	if err != nil {
		return EventPage{}, errs.Wrap(err, "list events")
	}

	return EventPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: (total + int64(perPage) - 1) / int64(perPage),
	}, nil
}

func (s *Service) GetEvent(ctx context.Context, eventID uint64) (alert.Event, error) {
	if ctx == nil {
		return alert.Event{}, errors.New("context is required")
	}
	return s.events.GetEvent(ctx, eventID)
}

type ListMessagesInput struct {
	Page    int
	PerPage int
	EventID *uint64
	Search  string
}

type MessagePage struct {
	Items      []alert.Message `json:"items"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PerPage    int             `json:"per_page"`
	TotalPages int64           `json:"total_pages"`
}

func (s *Service) ListMessages(ctx context.Context, input ListMessagesInput) (MessagePage, error) {
	if ctx == nil {
		return MessagePage{}, errors.New("context is required")
	}

	page, perPage := normalizePage(input.Page, input.PerPage)
	filter := ports.MessageFilter{EventID: input.EventID, Search: input.Search}

	total, err := s.messages.CountMessages(ctx, filter)
	if err != nil {
		return MessagePage{}, errs.Wrap(err, "count messages")
	}

	items, err := s.messages.ListMessages(ctx, filter, ports.Page{
		Offset: (page - 1) * perPage,
		Limit:  perPage,
	})
	if err != nil {
		return MessagePage{}, errs.Wrap(err, "list messages")
	}

	return MessagePage{
		Items:      items,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: (total + int64(perPage) - 1) / int64(perPage),
	}, nil
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}
