package lock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/revenue/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyBillLock = "revenue:bill:%s"

// BillLock serialises ledger writes for one bill across service replicas.
// A nil *BillLock is valid and always grants the lock, which is how the
// service runs without redis.
type BillLock struct {
	locker *Locker
	ttl    time.Duration
}

// NewBillLock connects to redis when REDIS_ADDR is set and returns nil
// otherwise.
func NewBillLock(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*BillLock, error) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	if lc != nil {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := client.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("redis ping: %w", err)
				}
				if log != nil {
					log.Info("bill lock enabled", zap.String("redis_addr", addr), zap.Duration("ttl", cfg.BillLockTTL))
				}
				return nil
			},
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
	}

	return NewBillLockWithClient(client, cfg.BillLockTTL), nil
}

// NewBillLockWithClient wraps an existing redis client.
func NewBillLockWithClient(client redis.Cmdable, ttl time.Duration) *BillLock {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &BillLock{locker: NewLocker(client), ttl: ttl}
}

func (b *BillLock) Enabled() bool {
	return b != nil && b.locker != nil
}

func BillKey(billID snowflake.ID) string {
	return fmt.Sprintf(keyBillLock, billID.String())
}

func (b *BillLock) TryLockBill(ctx context.Context, billID snowflake.ID) (string, bool, error) {
	if !b.Enabled() {
		return "", true, nil
	}
	return b.locker.TryLock(ctx, BillKey(billID), b.ttl)
}

func (b *BillLock) ReleaseBill(ctx context.Context, billID snowflake.ID, token string) error {
	if !b.Enabled() {
		return nil
	}
	return b.locker.Release(ctx, BillKey(billID), token)
}
