package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"testwise_attempt/internal/model"
	"testwise_attempt/internal/util"

	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const recoveryKeyPrefix = "attempt:recovery:"

func recoveryKey(userID, testID uint) string {
	return fmt.Sprintf("%s%d:%d", recoveryKeyPrefix, userID, testID)
}

// MemoryRecoveryCache keeps entries in process. Entries vanish on restart.
type MemoryRecoveryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   clockwork.Clock
	entries map[string]memoryEntry
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

func NewMemoryRecoveryCache(ttl time.Duration, clock clockwork.Clock) *MemoryRecoveryCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryRecoveryCache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]memoryEntry),
	}
}

func (c *MemoryRecoveryCache) Save(ctx context.Context, entry *model.RecoveryEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[recoveryKey(entry.UserID, entry.TestID)] = memoryEntry{
		payload:   payload,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
	return nil
}

func (c *MemoryRecoveryCache) Load(ctx context.Context, userID, testID uint) (*model.RecoveryEntry, error) {
	key := recoveryKey(userID, testID)
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && c.ttl > 0 && !c.clock.Now().Before(e.expiresAt) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return nil, util.ErrCacheMiss
	}

	var entry model.RecoveryEntry
	if err := json.Unmarshal(e.payload, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *MemoryRecoveryCache) Clear(ctx context.Context, userID, testID uint) error {
	c.mu.Lock()
	delete(c.entries, recoveryKey(userID, testID))
	c.mu.Unlock()
	return nil
}

type RedisRecoveryCache struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewRedisRecoveryCache(rdb *redis.Client, ttl time.Duration) *RedisRecoveryCache {
	return &RedisRecoveryCache{Redis: rdb, TTL: ttl}
}

func (c *RedisRecoveryCache) Save(ctx context.Context, entry *model.RecoveryEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.Redis.Set(ctx, recoveryKey(entry.UserID, entry.TestID), payload, c.TTL).Err()
}

func (c *RedisRecoveryCache) Load(ctx context.Context, userID, testID uint) (*model.RecoveryEntry, error) {
	val, err := c.Redis.Get(ctx, recoveryKey(userID, testID)).Bytes()
	if err == redis.Nil {
		return nil, util.ErrCacheMiss
	} else if err != nil {
		return nil, err
	}

	var entry model.RecoveryEntry
	if err := json.Unmarshal(val, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *RedisRecoveryCache) Clear(ctx context.Context, userID, testID uint) error {
	return c.Redis.Del(ctx, recoveryKey(userID, testID)).Err()
}

// GormRecoveryCache persists entries in MySQL for deployments without Redis.
// Expiry is stored per row and judged against clock.
type GormRecoveryCache struct {
	DB    *gorm.DB
	TTL   time.Duration
	clock clockwork.Clock
}

func NewGormRecoveryCache(db *gorm.DB, ttl time.Duration, clock clockwork.Clock) *GormRecoveryCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &GormRecoveryCache{DB: db, TTL: ttl, clock: clock}
}

func (c *GormRecoveryCache) Save(ctx context.Context, entry *model.RecoveryEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	record := model.RecoveryCacheRecord{
		CacheKey:  recoveryKey(entry.UserID, entry.TestID),
		Payload:   string(payload),
		ExpiresAt: c.clock.Now().Add(c.TTL),
	}
	return c.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "expires_at", "updated_at"}),
	}).Create(&record).Error
}

func (c *GormRecoveryCache) Load(ctx context.Context, userID, testID uint) (*model.RecoveryEntry, error) {
	var record model.RecoveryCacheRecord
	err := c.DB.WithContext(ctx).
		Where("cache_key = ? AND expires_at > ?", recoveryKey(userID, testID), c.clock.Now()).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCacheMiss
	} else if err != nil {
		return nil, err
	}

	var entry model.RecoveryEntry
	if err := json.Unmarshal([]byte(record.Payload), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *GormRecoveryCache) Clear(ctx context.Context, userID, testID uint) error {
	return c.DB.WithContext(ctx).Unscoped().
		Where("cache_key = ?", recoveryKey(userID, testID)).
		Delete(&model.RecoveryCacheRecord{}).Error
}

// PurgeExpired removes rows past their expiry.
func (c *GormRecoveryCache) PurgeExpired(ctx context.Context) (int64, error) {
	res := c.DB.WithContext(ctx).Unscoped().
		Where("expires_at <= ?", c.clock.Now()).
		Delete(&model.RecoveryCacheRecord{})
	return res.RowsAffected, res.Error
}
