package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"alerttrack/internal/domain/alert"
	"alerttrack/internal/infrastructure/persistence/sqlite/model"
	"alerttrack/internal/ports"
)

func setupEventRepository(t *testing.T) *EventRepository {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "events.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn+"?_pragma=busy_timeout(5000)"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(&model.Event{}, &model.Message{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return NewEventRepository(db)
}

func strPtr(s string) *string {
	return &s
}

func TestUpsertCreatesEvent(t *testing.T) {
	repo := setupEventRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	host := alert.HostData{
		IP:       "10.0.0.1",
		Hostname: strPtr("edge-01"),
		Role:     strPtr("router"),
		Services: []string{"bgp", "snmp"},
	}
	event, created, err := repo.Upsert(ctx, host, "Port down", true, now)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if !created {
		t.Fatalf("Upsert() created = false, want true")
	}
	if event.EventID == 0 {
		t.Fatalf("Upsert() event_id = 0")
	}
	if event.MessageCount != 1 {
		t.Fatalf("Upsert() message_count = %d, want 1", event.MessageCount)
	}
	if !event.Status {
		t.Fatalf("Upsert() status = false, want true")
	}
	if event.Hostname == nil || *event.Hostname != "edge-01" {
		t.Fatalf("Upsert() hostname = %v", event.Hostname)
	}
	if len(event.Services) != 2 || event.Services[0] != "bgp" {
		t.Fatalf("Upsert() services = %v", event.Services)
	}
}

func TestUpsertIncrementsAndOverwritesHostAttributes(t *testing.T) {
	repo := setupEventRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := alert.HostData{IP: "10.0.0.1", Hostname: strPtr("edge-01"), Role: strPtr("router")}
	if _, _, err := repo.Upsert(ctx, first, "Port down", true, now); err != nil {
		t.Fatalf("first Upsert() error = %v", err)
	}

	second := alert.HostData{IP: "10.0.0.1", Hostname: strPtr("edge-01b"), Location: strPtr("fra1")}
	event, created, err := repo.Upsert(ctx, second, "Port down", false, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	if created {
		t.Fatalf("second Upsert() created = true, want false")
	}
	if event.MessageCount != 2 {
		t.Fatalf("message_count = %d, want 2", event.MessageCount)
	}
	if event.Status {
		t.Fatalf("status = true, want false after resolving message")
	}
	if event.Hostname == nil || *event.Hostname != "edge-01b" {
		t.Fatalf("hostname = %v, want overwrite to edge-01b", event.Hostname)
	}
	if event.Role != nil {
		t.Fatalf("role = %v, want nil after overwrite with absent value", *event.Role)
	}
	if event.Location == nil || *event.Location != "fra1" {
		t.Fatalf("location = %v", event.Location)
	}
}

func TestUpsertDistinctKeysCreateDistinctEvents(t *testing.T) {
	repo := setupEventRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, _, err := repo.Upsert(ctx, alert.HostData{IP: "10.0.0.1"}, "Port down", true, now); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if _, _, err := repo.Upsert(ctx, alert.HostData{IP: "10.0.0.2"}, "Port down", true, now); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if _, _, err := repo.Upsert(ctx, alert.HostData{IP: "10.0.0.1"}, "Fan failure", true, now); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	total, err := repo.CountEvents(ctx, ports.EventFilter{})
	if err != nil {
		t.Fatalf("CountEvents() error = %v", err)
	}
	if total != 3 {
		t.Fatalf("CountEvents() = %d, want 3", total)
	}
}

func TestUpsertConcurrentWritersConvergeOnOneEvent(t *testing.T) {
	repo := setupEventRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	const writers = 8
	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := repo.Upsert(ctx, alert.HostData{IP: "10.0.0.1"}, "Port down", true, now)
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("concurrent Upsert() error = %v", err)
		}
	}

	events, err := repo.ListEvents(ctx, ports.EventFilter{}, ports.Page{Limit: 10})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("ListEvents() len = %d, want 1", len(events))
	}
	if events[0].MessageCount != writers {
		t.Fatalf("message_count = %d, want %d", events[0].MessageCount, writers)
	}
}

func TestGetEventNotFound(t *testing.T) {
	repo := setupEventRepository(t)

	_, err := repo.GetEvent(context.Background(), 42)
	if !errors.Is(err, ports.ErrEventNotFound) {
		t.Fatalf("GetEvent() error = %v, want ErrEventNotFound", err)
	}
}

func TestListEventsFilters(t *testing.T) {
	repo := setupEventRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, _, err := repo.Upsert(ctx, alert.HostData{IP: "10.0.0.1", Services: []string{"bgp"}}, "Port down", true, now); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if _, _, err := repo.Upsert(ctx, alert.HostData{IP: "10.0.0.2", Services: []string{"dns"}}, "Fan failure", true, now.Add(time.Second)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if _, _, err := repo.Upsert(ctx, alert.HostData{IP: "10.0.0.2", Services: []string{"dns"}}, "SOLVED material", false, now.Add(2*time.Second)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	active := true
	byStatus, err := repo.ListEvents(ctx, ports.EventFilter{Status: &active}, ports.Page{})
	if err != nil {
		t.Fatalf("ListEvents(status) error = %v", err)
	}
	if len(byStatus) != 2 {
		t.Fatalf("ListEvents(status) len = %d, want 2", len(byStatus))
	}

	byService, err := repo.ListEvents(ctx, ports.EventFilter{Service: "BGP"}, ports.Page{})
	if err != nil {
		t.Fatalf("ListEvents(service) error = %v", err)
	}
	if len(byService) != 1 || byService[0].IP != "10.0.0.1" {
		t.Fatalf("ListEvents(service) = %+v", byService)
	}

	bySearch, err := repo.ListEvents(ctx, ports.EventFilter{Search: "fan"}, ports.Page{})
	if err != nil {
		t.Fatalf("ListEvents(search) error = %v", err)
	}
	if len(bySearch) != 1 || bySearch[0].Name != "Fan failure" {
		t.Fatalf("ListEvents(search) = %+v", bySearch)
	}
}

func TestListEventsOrdersByRecentUpdate(t *testing.T) {
	repo := setupEventRepository(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, _, err := repo.Upsert(ctx, alert.HostData{IP: "10.0.0.1"}, "older", true, base); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if _, _, err := repo.Upsert(ctx, alert.HostData{IP: "10.0.0.2"}, "newer", true, base.Add(time.Hour)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	events, err := repo.ListEvents(ctx, ports.EventFilter{}, ports.Page{Limit: 10})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 2 || events[0].Name != "newer" {
		t.Fatalf("ListEvents() order = %+v", events)
	}
}
