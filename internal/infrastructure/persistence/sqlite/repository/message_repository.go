package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"alerttrack/internal/domain/alert"
	"alerttrack/internal/infrastructure/persistence/sqlite/model"
	"alerttrack/internal/ports"
)

type MessageRepository struct {
	db *gorm.DB
}

var (
	_ ports.MessageRepository = (*MessageRepository)(nil)
	_ ports.StatsRepository   = (*MessageRepository)(nil)
)

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
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

func (r *MessageRepository) CreateMessage(ctx context.Context, text string, at time.Time) (alert.Message, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return alert.Message{}, err
	}
	if strings.TrimSpace(text) == "" {
		return alert.Message{}, &alert.ValidationError{Field: "text", Reason: "is required"}
	}

	nowText := at.UTC().Format(time.RFC3339Nano)
	row := model.Message{
		Text:        text,
		CreatedAt:   nowText,
		UpdatedAt:   nowText,
		CreatedUnix: at.UTC().Unix(),
	}
	if err := db.Create(&row).Error; err != nil {
		return alert.Message{}, &alert.StorageError{Op: "insert message", Err: err}
	}
	return mapMessage(row), nil
}

func (r *MessageRepository) GetMessage(ctx context.Context, messageID uint64) (alert.Message, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return alert.Message{}, err
	}

	var row model.Message
	if err := db.Where("message_id = ?", messageID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return alert.Message{}, ports.ErrMessageNotFound
		}
		return alert.Message{}, &alert.StorageError{Op: "query message", Err: err}
	}
	return mapMessage(row), nil
}

func (r *MessageRepository) ListMessages(ctx context.Context, filter ports.MessageFilter, page ports.Page) ([]alert.Message, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := applyMessageFilter(db.Model(&model.Message{}), filter).
		Order("message_id desc").
		Offset(page.Offset)
	if page.Limit > 0 {
		query = query.Limit(page.Limit)
	}

	var rows []model.Message
	if err := query.Find(&rows).Error; err != nil {
		return nil, &alert.StorageError{Op: "query messages", Err: err}
	}

	items := make([]alert.Message, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapMessage(row))
	}
	return items, nil
}

func (r *MessageRepository) CountMessages(ctx context.Context, filter ports.MessageFilter) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var total int64
	if err := applyMessageFilter(db.Model(&model.Message{}), filter).Count(&total).Error; err != nil {
		return 0, &alert.StorageError{Op: "count messages", Err: err}
	}
	return total, nil
}

func (r *MessageRepository) SetEventRef(ctx context.Context, messageID uint64, eventID uint64, at time.Time) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	res := db.Model(&model.Message{}).
		Where("message_id = ?", messageID).
		Updates(map[string]any{
			"event_id":   eventID,
			"updated_at": at.UTC().Format(time.RFC3339Nano),
		})
	if res.Error != nil {
		return &alert.StorageError{Op: "set message event ref", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return ports.ErrMessageNotFound
	}
	return nil
}

type bucketRow struct {
	Bucket int64
	Total  int64
}

func (r *MessageRepository) CountByInterval(ctx context.Context, start, end time.Time, intervalSeconds int64, filter string) ([]alert.BucketCount, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if intervalSeconds <= 0 {
		return nil, &alert.ValidationError{Field: "interval", Reason: "must be at least one second"}
	}

	query := db.Model(&model.Message{}).
		Select("(messages.created_unix / ?) * ? AS bucket, COUNT(*) AS total", intervalSeconds, intervalSeconds).
		Where("messages.created_unix >= ? AND messages.created_unix < ?", start.UTC().Unix(), end.UTC().Unix())
	if term := strings.TrimSpace(filter); term != "" {
		query = query.
			Joins("JOIN events ON events.event_id = messages.event_id").
			Where("lower(events.name) LIKE ? OR lower(events.services) LIKE ?", likePattern(term), likePattern(term))
	}

	var rows []bucketRow
	if err := query.Group("bucket").Order("bucket asc").Scan(&rows).Error; err != nil {
		return nil, &alert.StorageError{Op: "count messages by interval", Err: err}
	}

	buckets := make([]alert.BucketCount, 0, len(rows))
	for _, row := range rows {
		buckets = append(buckets, alert.BucketCount{
			BucketStart: time.Unix(row.Bucket, 0).UTC().Format(time.RFC3339),
			Count:       row.Total,
		})
	}
	return buckets, nil
}

type minuteRow struct {
	Minute string
	Total  int64
}

func (r *MessageRepository) CountByMinute(ctx context.Context, start time.Time, eventID *uint64) ([]alert.MinuteCount, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Message{}).
		Select("strftime('%Y-%m-%dT%H:%M:00Z', created_unix, 'unixepoch') AS minute, COUNT(*) AS total").
		Where("created_unix >= ?", start.UTC().Unix())
	if eventID != nil {
		query = query.Where("event_id = ?", *eventID)
	}

	var rows []minuteRow
	if err := query.Group("minute").Order("minute asc").Scan(&rows).Error; err != nil {
		return nil, &alert.StorageError{Op: "count messages by minute", Err: err}
	}

	minutes := make([]alert.MinuteCount, 0, len(rows))
	for _, row := range rows {
		minutes = append(minutes, alert.MinuteCount{Minute: row.Minute, Count: row.Total})
	}
	return minutes, nil
}

func applyMessageFilter(query *gorm.DB, filter ports.MessageFilter) *gorm.DB {
	if filter.EventID != nil {
		query = query.Where("event_id = ?", *filter.EventID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("lower(text) LIKE ?", likePattern(search))
	}
	return query
}

func mapMessage(row model.Message) alert.Message {
	return alert.Message{
		MessageID: row.MessageID,
		Text:      row.Text,
		EventID:   row.EventID,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
