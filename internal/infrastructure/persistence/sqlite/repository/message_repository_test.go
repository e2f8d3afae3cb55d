package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"alerttrack/internal/domain/alert"
	"alerttrack/internal/infrastructure/persistence/sqlite/model"
	"alerttrack/internal/ports"
)

func setupMessageRepository(t *testing.T) (*MessageRepository, *EventRepository) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "messages.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(&model.Event{}, &model.Message{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return NewMessageRepository(db), NewEventRepository(db)
}

func TestCreateMessageAndSetEventRef(t *testing.T) {
	messages, events := setupMessageRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	msg, err := messages.CreateMessage(ctx, "Port down", now)
	if err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}
	if msg.MessageID == 0 {
		t.Fatalf("CreateMessage() message_id = 0")
	}
	if msg.EventID != nil {
		t.Fatalf("CreateMessage() event_id = %v, want nil", *msg.EventID)
	}

	event, _, err := events.Upsert(ctx, alert.HostData{IP: "10.0.0.1"}, "Port down", true, now)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := messages.SetEventRef(ctx, msg.MessageID, event.EventID, now); err != nil {
		t.Fatalf("SetEventRef() error = %v", err)
	}

	got, err := messages.GetMessage(ctx, msg.MessageID)
	if err != nil {
		t.Fatalf("GetMessage() error = %v", err)
	}
	if got.EventID == nil || *got.EventID != event.EventID {
		t.Fatalf("GetMessage() event_id = %v, want %d", got.EventID, event.EventID)
	}
}

func TestSetEventRefMissingMessage(t *testing.T) {
	messages, _ := setupMessageRepository(t)

	err := messages.SetEventRef(context.Background(), 99, 1, time.Now().UTC())
	if !errors.Is(err, ports.ErrMessageNotFound) {
		t.Fatalf("SetEventRef() error = %v, want ErrMessageNotFound", err)
	}
}

func TestCreateMessageRejectsBlankText(t *testing.T) {
	messages, _ := setupMessageRepository(t)

	_, err := messages.CreateMessage(context.Background(), "   ", time.Now().UTC())
	if !alert.IsValidation(err) {
		t.Fatalf("CreateMessage() error = %v, want validation error", err)
	}
}

func TestListMessagesFilterAndOrder(t *testing.T) {
	messages, events := setupMessageRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	event, _, err := events.Upsert(ctx, alert.HostData{IP: "10.0.0.1"}, "Port down", true, now)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	first, err := messages.CreateMessage(ctx, "Port down on xe-0/0/1", now)
	if err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}
	if err := messages.SetEventRef(ctx, first.MessageID, event.EventID, now); err != nil {
		t.Fatalf("SetEventRef() error = %v", err)
	}
	if _, err := messages.CreateMessage(ctx, "Fan failure", now); err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}
	second, err := messages.CreateMessage(ctx, "Port down again", now)
	if err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}
	if err := messages.SetEventRef(ctx, second.MessageID, event.EventID, now); err != nil {
		t.Fatalf("SetEventRef() error = %v", err)
	}

	byEvent, err := messages.ListMessages(ctx, ports.MessageFilter{EventID: &event.EventID}, ports.Page{Limit: 10})
	if err != nil {
		t.Fatalf("ListMessages(event) error = %v", err)
	}
	if len(byEvent) != 2 {
		t.Fatalf("ListMessages(event) len = %d, want 2", len(byEvent))
	}
	if byEvent[0].MessageID != second.MessageID {
		t.Fatalf("ListMessages(event) order = %+v", byEvent)
	}

	bySearch, err := messages.ListMessages(ctx, ports.MessageFilter{Search: "fan"}, ports.Page{Limit: 10})
	if err != nil {
		t.Fatalf("ListMessages(search) error = %v", err)
	}
	if len(bySearch) != 1 || bySearch[0].Text != "Fan failure" {
		t.Fatalf("ListMessages(search) = %+v", bySearch)
	}

	total, err := messages.CountMessages(ctx, ports.MessageFilter{EventID: &event.EventID})
	if err != nil {
		t.Fatalf("CountMessages() error = %v", err)
	}
	if total != 2 {
		t.Fatalf("CountMessages() = %d, want 2", total)
	}
}

func TestCountByIntervalBucketsMessages(t *testing.T) {
	messages, _ := setupMessageRepository(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	for _, offset := range []time.Duration{10 * time.Second, 40 * time.Second, 7*time.Minute + 30*time.Second} {
		if _, err := messages.CreateMessage(ctx, "Port down", base.Add(offset)); err != nil {
			t.Fatalf("CreateMessage() error = %v", err)
		}
	}

	buckets, err := messages.CountByInterval(ctx, base, base.Add(10*time.Minute), 300, "")
	if err != nil {
		t.Fatalf("CountByInterval() error = %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("CountByInterval() len = %d, want 2", len(buckets))
	}
	if buckets[0].BucketStart != "2026-01-02T10:00:00Z" || buckets[0].Count != 2 {
		t.Fatalf("first bucket = %+v", buckets[0])
	}
	if buckets[1].BucketStart != "2026-01-02T10:05:00Z" || buckets[1].Count != 1 {
		t.Fatalf("second bucket = %+v", buckets[1])
	}
}

func TestCountByIntervalEmptyWindow(t *testing.T) {
	messages, _ := setupMessageRepository(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	if _, err := messages.CreateMessage(ctx, "Port down", base); err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}

	buckets, err := messages.CountByInterval(ctx, base.Add(time.Hour), base.Add(2*time.Hour), 60, "")
	if err != nil {
		t.Fatalf("CountByInterval() error = %v", err)
	}
	if len(buckets) != 0 {
		t.Fatalf("CountByInterval() len = %d, want 0", len(buckets))
	}
}

func TestCountByIntervalFiltersByEventNameOrService(t *testing.T) {
	messages, events := setupMessageRepository(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	portEvent, _, err := events.Upsert(ctx, alert.HostData{IP: "10.0.0.1", Services: []string{"bgp"}}, "Port down", true, base)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	fanEvent, _, err := events.Upsert(ctx, alert.HostData{IP: "10.0.0.2"}, "Fan failure", true, base)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	attach := func(text string, eventID uint64) {
		t.Helper()
		msg, err := messages.CreateMessage(ctx, text, base.Add(30*time.Second))
		if err != nil {
			t.Fatalf("CreateMessage() error = %v", err)
		}
		if err := messages.SetEventRef(ctx, msg.MessageID, eventID, base); err != nil {
			t.Fatalf("SetEventRef() error = %v", err)
		}
	}
	attach("Port down", portEvent.EventID)
	attach("Port down", portEvent.EventID)
	attach("Fan failure", fanEvent.EventID)

	buckets, err := messages.CountByInterval(ctx, base, base.Add(time.Hour), 60, "port")
	if err != nil {
		t.Fatalf("CountByInterval(filter) error = %v", err)
	}
	if len(buckets) != 1 || buckets[0].Count != 2 {
		t.Fatalf("CountByInterval(filter) = %+v", buckets)
	}

	byService, err := messages.CountByInterval(ctx, base, base.Add(time.Hour), 60, "bgp")
	if err != nil {
		t.Fatalf("CountByInterval(service) error = %v", err)
	}
	if len(byService) != 1 || byService[0].Count != 2 {
		t.Fatalf("CountByInterval(service) = %+v", byService)
	}
}

func TestCountByIntervalRejectsNonPositiveInterval(t *testing.T) {
	messages, _ := setupMessageRepository(t)

	_, err := messages.CountByInterval(context.Background(), time.Now(), time.Now().Add(time.Hour), 0, "")
	if !alert.IsValidation(err) {
		t.Fatalf("CountByInterval() error = %v, want validation error", err)
	}
}

func TestCountByMinuteCalendarBuckets(t *testing.T) {
	messages, events := setupMessageRepository(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	event, _, err := events.Upsert(ctx, alert.HostData{IP: "10.0.0.1"}, "Port down", true, base)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	for _, offset := range []time.Duration{10 * time.Second, 40 * time.Second, time.Minute + 5*time.Second} {
		msg, err := messages.CreateMessage(ctx, "Port down", base.Add(offset))
		if err != nil {
			t.Fatalf("CreateMessage() error = %v", err)
		}
		if err := messages.SetEventRef(ctx, msg.MessageID, event.EventID, base); err != nil {
			t.Fatalf("SetEventRef() error = %v", err)
		}
	}
	// Unattributed noise outside the event under inspection.
	if _, err := messages.CreateMessage(ctx, "Fan failure", base.Add(20*time.Second)); err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}

	minutes, err := messages.CountByMinute(ctx, base, nil)
	if err != nil {
		t.Fatalf("CountByMinute() error = %v", err)
	}
	if len(minutes) != 2 {
		t.Fatalf("CountByMinute() len = %d, want 2", len(minutes))
	}
	if minutes[0].Minute != "2026-01-02T10:00:00Z" || minutes[0].Count != 3 {
		t.Fatalf("first minute = %+v", minutes[0])
	}
	if minutes[1].Minute != "2026-01-02T10:01:00Z" || minutes[1].Count != 1 {
		t.Fatalf("second minute = %+v", minutes[1])
	}

	scoped, err := messages.CountByMinute(ctx, base, &event.EventID)
	if err != nil {
		t.Fatalf("CountByMinute(event) error = %v", err)
	}
	if len(scoped) != 2 || scoped[0].Count != 2 {
		t.Fatalf("CountByMinute(event) = %+v", scoped)
	}
}
