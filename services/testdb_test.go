package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Dr-Haas/Fytli-sub000/models"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory sqlite database with the engine schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.BadgeDefinition{},
		&models.WorkoutEvent{},
		&models.UserAggregates{},
		&models.UserBadge{},
		&models.BadgeProgress{},
		&models.WeeklyGoal{},
	))
	return db
}

// memCache is an in-process Cache that records deletes.
type memCache struct {
	mu      sync.Mutex
	items   map[string]interface{}
	deletes int
	onMiss  func() // runs after a miss, outside the lock
}

func newMemCache() *memCache {
	return &memCache{items: map[string]interface{}{}}
}

func (c *memCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	v, ok := c.items[key]
	hook := c.onMiss
	c.mu.Unlock()
	if !ok {
		if hook != nil {
			hook()
		}
		return ErrCacheMiss
	}
	view, ok := v.(*UserBadgesView)
	if !ok {
		return ErrCacheMiss
	}
	*(dest.(*UserBadgesView)) = *view
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	c.deletes++
	return nil
}

func newTestService(t *testing.T, clock clockwork.Clock) (*BadgeService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	catalog, err := ValidateCatalog(models.DefaultBadgeCatalog)
	require.NoError(t, err)
	require.NoError(t, SyncCatalog(context.Background(), db, catalog))
	return NewBadgeService(db, catalog, Options{Clock: clock}), db
}

func workout(userID string, at time.Time) WorkoutInput {
	return WorkoutInput{
		UserID:             userID,
		SessionID:          uuid.NewString(),
		CompletedAt:        at,
		DurationMinutes:    45,
		ExercisesCompleted: 5,
		TotalSets:          15,
	}
}
