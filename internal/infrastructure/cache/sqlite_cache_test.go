package cache

import (
	"context"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"alerttrack/internal/infrastructure/persistence/sqlite/model"
)

func setupSQLiteCache(t *testing.T) *SQLiteCache {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.AutoMigrate(&model.InventoryKV{}); err != nil {
		t.Fatalf("auto migrate inventory_cache: %v", err)
	}

	return NewSQLiteCache(db)
}

func TestSQLiteCacheSetGetDelete(t *testing.T) {
	cache := setupSQLiteCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "host:10.0.0.1", `{"ip":"10.0.0.1"}`, 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, found, err := cache.Get(ctx, "host:10.0.0.1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found {
		t.Fatalf("Get() expected found=true")
	}
	if value != `{"ip":"10.0.0.1"}` {
		t.Fatalf("Get() value = %q", value)
	}

	if err := cache.Set(ctx, "host:10.0.0.1", `{"ip":"10.0.0.1","hostname":"edge-01"}`, 0); err != nil {
		t.Fatalf("Set(update) error = %v", err)
	}

	value, found, err = cache.Get(ctx, "host:10.0.0.1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || value != `{"ip":"10.0.0.1","hostname":"edge-01"}` {
		t.Fatalf("Get() after update = %q, found=%v", value, found)
	}

	if err := cache.Delete(ctx, "host:10.0.0.1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, found, err = cache.Get(ctx, "host:10.0.0.1")
	if err != nil {
		t.Fatalf("Get() after delete error = %v", err)
	}
	if found {
		t.Fatalf("Get() expected found=false after delete")
	}
}

func TestSQLiteCacheExpiresEntries(t *testing.T) {
	cache := setupSQLiteCache(t)
	ctx := context.Background()

	current := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	if err := cache.Set(ctx, "host:10.0.0.1", "payload", 15*time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, found, err := cache.Get(ctx, "host:10.0.0.1"); err != nil || !found {
		t.Fatalf("Get() before expiry = found=%v, err=%v", found, err)
	}

	current = current.Add(16 * time.Minute)

	_, found, err := cache.Get(ctx, "host:10.0.0.1")
	if err != nil {
		t.Fatalf("Get() after expiry error = %v", err)
	}
	if found {
		t.Fatalf("Get() expected miss after ttl")
	}
}

func TestSQLiteCacheRejectsEmptyKey(t *testing.T) {
	cache := setupSQLiteCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "", "v", 0); err == nil {
		t.Fatalf("Set() expected error for empty key")
	}
	if _, _, err := cache.Get(ctx, ""); err == nil {
		t.Fatalf("Get() expected error for empty key")
	}
	if err := cache.Delete(ctx, ""); err == nil {
		t.Fatalf("Delete() expected error for empty key")
	}
}
