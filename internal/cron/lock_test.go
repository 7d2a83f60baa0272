package cron

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memoryLockStore struct {
	values     map[string]string
	releaseErr error
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryLockStore) ReleaseIfOwner(_ context.Context, key, owner string) (bool, error) {
	if m.releaseErr != nil {
		return false, m.releaseErr
	}
	if m.values[key] != owner {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func TestRedisLockIsExclusive(t *testing.T) {
	store := &memoryLockStore{values: map[string]string{}}
	first, err := NewRedisLock(store, "wl:lock:cron:test", 0)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	second, _ := NewRedisLock(store, "wl:lock:cron:test", 0)
	ctx := context.Background()

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatalf("second instance acquired a held lock")
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("non-holder release: %v", err)
	}
	if _, ok := store.values["wl:lock:cron:test"]; !ok {
		t.Fatalf("non-holder release removed the lock")
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("holder release: %v", err)
	}
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatalf("expected lock free after release")
	}
}

func TestRedisLockDoesNotReleaseSuccessor(t *testing.T) {
	store := &memoryLockStore{values: map[string]string{}}
	stale, _ := NewRedisLock(store, "k", time.Minute)
	ctx := context.Background()
	if ok, _ := stale.Acquire(ctx); !ok {
		t.Fatalf("acquire failed")
	}

	// The key expired and another worker took it.
	store.values["k"] = "successor"
	if err := stale.Release(ctx); err != nil {
		t.Fatalf("release after expiry: %v", err)
	}
	if store.values["k"] != "successor" {
		t.Fatalf("stale holder released the successor's lock")
	}
}

func TestRedisLockReleaseError(t *testing.T) {
	store := &memoryLockStore{values: map[string]string{}}
	lock, _ := NewRedisLock(store, "k", time.Minute)
	ctx := context.Background()
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatalf("acquire failed")
	}
	store.releaseErr = errors.New("connection refused")
	if err := lock.Release(ctx); err == nil {
		t.Fatal("expected release error")
	}
	if _, err := NewRedisLock(nil, "k", 0); err == nil {
		t.Fatal("expected error without store")
	}
}
