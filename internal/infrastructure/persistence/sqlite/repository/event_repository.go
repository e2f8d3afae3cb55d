package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"alerttrack/internal/domain/alert"
	"alerttrack/internal/infrastructure/persistence/sqlite/model"
	"alerttrack/internal/ports"
)

// maxUpsertAttempts bounds the duplicate-key retry loop. One lost insert
// race turns into an update on the next pass, so more than two passes only
// happen if the winning row is deleted in between.
const maxUpsertAttempts = 3

type EventRepository struct {
	db *gorm.DB
}

var _ ports.EventRepository = (*EventRepository)(nil)

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

// Upsert applies one message to the event keyed by (host.IP, name): a
// conditional update incrementing message_count, or an insert with count 1
// when no row matches. A concurrent writer can win the insert race on the
// (ip, name) unique index; the loser retries as an update instead of
// surfacing the duplicate-key error. Host attributes are overwritten from
// the latest enrichment on every attributed message.
func (r *EventRepository) Upsert(ctx context.Context, host alert.HostData, name string, status bool, at time.Time) (alert.Event, bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return alert.Event{}, false, err
	}
	if err := alert.ValidateHost(host); err != nil {
		return alert.Event{}, false, err
	}

	services := encodeServices(host.Services)
	nowText := at.UTC().Format(time.RFC3339Nano)
	nowUnix := at.UTC().Unix()

	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		res := db.Model(&model.Event{}).
			Where("ip = ? AND name = ?", host.IP, name).
			Updates(map[string]any{
				"hostname":      host.Hostname,
				"role":          host.Role,
				"model":         host.Model,
				"location":      host.Location,
				"services":      services,
				"status":        status,
				"message_count": gorm.Expr("message_count + 1"),
				"updated_at":    nowText,
				"updated_unix":  nowUnix,
			})
		if res.Error != nil {
			return alert.Event{}, false, &alert.StorageError{Op: "update event", Err: res.Error}
		}
		if res.RowsAffected > 0 {
			event, err := getEventByKey(db, host.IP, name)
			return event, false, err
		}

		row := model.Event{
			IP:           host.IP,
			Name:         name,
			Hostname:     host.Hostname,
			Role:         host.Role,
			Model:        host.Model,
			Location:     host.Location,
			Services:     services,
			Status:       status,
			MessageCount: 1,
			CreatedAt:    nowText,
			UpdatedAt:    nowText,
			UpdatedUnix:  nowUnix,
		}
		err := db.Create(&row).Error
		if err == nil {
			return mapEvent(row), true, nil
		}
		if !isUniqueViolation(err) {
			return alert.Event{}, false, &alert.StorageError{Op: "insert event", Err: err}
		}
		// Lost the insert race; the next pass applies the message as an
		// update on the winner's row.
	}

	return alert.Event{}, false, &alert.StorageError{
		Op:  "upsert event",
		Err: fmt.Errorf("gave up after %d conflict retries for ip=%s", maxUpsertAttempts, host.IP),
	}
}

func (r *EventRepository) GetEvent(ctx context.Context, eventID uint64) (alert.Event, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return alert.Event{}, err
	}

	var row model.Event
	if err := db.Where("event_id = ?", eventID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return alert.Event{}, ports.ErrEventNotFound
		}
		return alert.Event{}, &alert.StorageError{Op: "query event", Err: err}
	}
	return mapEvent(row), nil
}

func (r *EventRepository) ListEvents(ctx context.Context, filter ports.EventFilter, page ports.Page) ([]alert.Event, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := applyEventFilter(db.Model(&model.Event{}), filter).
		Order("updated_unix desc, event_id desc").
		Offset(page.Offset)
	if page.Limit > 0 {
		query = query.Limit(page.Limit)
	}

	var rows []model.Event
	if err := query.Find(&rows).Error; err != nil {
		return nil, &alert.StorageError{Op: "query events", Err: err}
	}

	items := make([]alert.Event, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapEvent(row))
	}
	return items, nil
}

func (r *EventRepository) CountEvents(ctx context.Context, filter ports.EventFilter) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var total int64
	if err := applyEventFilter(db.Model(&model.Event{}), filter).Count(&total).Error; err != nil {
		return 0, &alert.StorageError{Op: "count events", Err: err}
	}
	return total, nil
}

func applyEventFilter(query *gorm.DB, filter ports.EventFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if ip := strings.TrimSpace(filter.IP); ip != "" {
		query = query.Where("ip = ?", ip)
	}
	if service := strings.TrimSpace(filter.Service); service != "" {
		query = query.Where("lower(services) LIKE ?", likePattern(service))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("lower(name) LIKE ?", likePattern(search))
	}
	return query
}

func likePattern(term string) string {
	return "%" + strings.ToLower(term) + "%"
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func getEventByKey(db *gorm.DB, ip string, name string) (alert.Event, error) {
	var row model.Event
	if err := db.Where("ip = ? AND name = ?", ip, name).Take(&row).Error; err != nil {
		return alert.Event{}, &alert.StorageError{Op: "query event by key", Err: err}
	}
	return mapEvent(row), nil
}

func mapEvent(row model.Event) alert.Event {
	return alert.Event{
		EventID:      row.EventID,
		IP:           row.IP,
		Name:         row.Name,
		Hostname:     row.Hostname,
		Role:         row.Role,
		Model:        row.Model,
		Location:     row.Location,
		Services:     decodeServices(row.Services),
		Status:       row.Status,
		MessageCount: row.MessageCount,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func encodeServices(services []string) string {
	if len(services) == 0 {
		return "[]"
	}
	encoded, err := json.Marshal(services)
	if err != nil {
		return "[]"
	}
	return string(encoded)
}

func decodeServices(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	var services []string
	if err := json.Unmarshal([]byte(raw), &services); err != nil {
		return []string{}
	}
	return services
}
