package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/revenue/internal/config"
)

func TestNilBillLockAlwaysGrants(t *testing.T) {
	var b *BillLock
	token, ok, err := b.TryLockBill(context.Background(), snowflake.ID(42))
	if err != nil || !ok || token != "" {
		t.Fatalf("expected disabled lock to grant, got token=%q ok=%v err=%v", token, ok, err)
	}
	if err := b.ReleaseBill(context.Background(), snowflake.ID(42), token); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestNewBillLockWithoutRedis(t *testing.T) {
	b, err := NewBillLock(nil, config.Config{}, nil)
	if err != nil {
		t.Fatalf("new bill lock: %v", err)
	}
	if b.Enabled() {
		t.Fatalf("expected lock disabled without REDIS_ADDR")
	}
}

func TestBillKey(t *testing.T) {
	if got := BillKey(snowflake.ID(1234)); got != "revenue:bill:1234" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestLockerArgumentChecks(t *testing.T) {
	var l *Locker
	if _, _, err := l.TryLock(context.Background(), "k", time.Second); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if err := l.Release(context.Background(), "k", "t"); err != nil {
		t.Fatalf("release on nil locker: %v", err)
	}
}
