// Package cache provides caching infrastructure with PostgreSQL LISTEN/NOTIFY support.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"

	"storeops/internal/core/clock"
	"storeops/internal/domain/settings"
	"storeops/pkg/logger"
)

// DefaultSettingsTTL bounds how stale settings may get when a notification is lost.
const DefaultSettingsTTL = time.Minute

// SettingsCache implements settings.Provider. It reloads on NOTIFY and
// at most every TTL otherwise.
type SettingsCache struct {
	store   settings.Store
	pool    *pgxpool.Pool
	channel string
	ttl     time.Duration
	now     clock.Func

	mu       sync.RWMutex
	snapshot settings.Snapshot
	loadedAt time.Time
	loaded   bool

	group singleflight.Group

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

var _ settings.Provider = (*SettingsCache)(nil)

// NewSettingsCache creates a cache over store. pool may be nil, in which
// case only the TTL refreshes the values.
func NewSettingsCache(store settings.Store, pool *pgxpool.Pool, channel string, ttl time.Duration) *SettingsCache {
	if ttl <= 0 {
		ttl = DefaultSettingsTTL
	}
	return &SettingsCache{
		store:    store,
		pool:     pool,
		channel:  channel,
		ttl:      ttl,
		now:      clock.System,
		snapshot: settings.Defaults(),
	}
}

// ReturnWindowDays implements settings.Provider.
func (c *SettingsCache) ReturnWindowDays(ctx context.Context) int {
	return c.current(ctx).ReturnWindowDays
}

// ReviewEditWindowHours implements settings.Provider.
func (c *SettingsCache) ReviewEditWindowHours(ctx context.Context) int {
	return c.current(ctx).ReviewEditWindowHours
}

func (c *SettingsCache) current(ctx context.Context) settings.Snapshot {
	c.mu.RLock()
	snap, fresh := c.snapshot, c.loaded && c.now().Sub(c.loadedAt) < c.ttl
	c.mu.RUnlock()
	if fresh {
		return snap
	}

	if err := c.reload(ctx); err != nil {
		// keep serving the last good values
		logger.Warn(ctx, "settings reload failed", "error", err)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Invalidate forces the next read to reload.
func (c *SettingsCache) Invalidate() {
	c.mu.Lock()
	c.loaded = false
	c.mu.Unlock()
}

// reload reads the store once per burst of concurrent callers.
func (c *SettingsCache) reload(ctx context.Context) error {
	_, err, _ := c.group.Do("settings", func() (any, error) {
		raw, err := c.store.Load(ctx)
		if err != nil {
			return nil, err
		}
		snap := settings.Resolve(ctx, raw)

		c.mu.Lock()
		c.snapshot = snap
		c.loadedAt = c.now()
		c.loaded = true
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

// Start loads the settings and begins listening for notifications. The
// listener runs even when the first load fails; the error is still returned.
func (c *SettingsCache) Start(ctx context.Context) error {
	var loadErr error
	if err := c.reload(ctx); err != nil {
		loadErr = fmt.Errorf("load settings: %w", err)
	}
	if c.pool == nil || c.channel == "" {
		return loadErr
	}

	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	if c.cancel != nil {
		return loadErr
	}
	listenCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel

	c.wg.Add(1)
	go c.listenLoop(listenCtx)
	logger.Info(ctx, "settings cache started", "channel", c.channel, "ttl", c.ttl)
	return loadErr
}

// Stop ends the listener.
func (c *SettingsCache) Stop() {
	c.lifecycleMu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.lifecycleMu.Unlock()

	if cancel != nil {
		cancel()
		c.wg.Wait()
	}
}

func (c *SettingsCache) listenLoop(ctx context.Context) {
	defer c.wg.Done()

	for ctx.Err() == nil {
		conn, err := c.pool.Acquire(ctx)
		if err != nil {
			logger.Error(ctx, "failed to acquire connection for LISTEN", "error", err)
			sleep(ctx, time.Second)
			continue
		}

		if _, err := conn.Exec(ctx, "LISTEN "+c.channel); err != nil {
			logger.Error(ctx, "failed to LISTEN", "channel", c.channel, "error", err)
			conn.Release()
			sleep(ctx, time.Second)
			continue
		}

		// a notification may have been missed while disconnected
		c.Invalidate()
		c.waitForNotifications(ctx, conn)
		conn.Release()
	}
}

func (c *SettingsCache) waitForNotifications(ctx context.Context, conn *pgxpool.Conn) {
	for {
		waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		n, err := conn.Conn().WaitForNotification(waitCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if waitCtx.Err() != nil {
				continue
			}
			logger.Warn(ctx, "LISTEN connection lost", "error", err)
			return
		}

		logger.Debug(ctx, "received notification", "channel", n.Channel, "payload", n.Payload)
		c.Invalidate()
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
