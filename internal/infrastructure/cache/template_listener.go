package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"stockledger/pkg/logger"
)

// TemplateChannel is the NOTIFY channel fired by the item_templates triggers.
const TemplateChannel = "item_templates_changed"

// Invalidator drops a cached value. template.Cache satisfies it.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// TemplateListener invalidates the template cache whenever the template
// tables change outside this service, via PostgreSQL LISTEN/NOTIFY.
type TemplateListener struct {
	pool  *pgxpool.Pool
	cache Invalidator

	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewTemplateListener creates a listener. Call Start to begin listening.
func NewTemplateListener(pool *pgxpool.Pool, cache Invalidator) *TemplateListener {
	return &TemplateListener{pool: pool, cache: cache}
}

// Start launches the listen loop in the background.
func (l *TemplateListener) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	l.lifecycleMu.Lock()
	defer l.lifecycleMu.Unlock()
	if l.started {
		return
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.started = true

	l.wg.Add(1)
	go l.listenLoop()
	logger.Info(l.ctx, "template listener started", "channel", TemplateChannel)
}

// Stop gracefully stops the listener.
func (l *TemplateListener) Stop() {
	l.lifecycleMu.Lock()
	if !l.started {
		l.lifecycleMu.Unlock()
		return
	}
	cancel := l.cancel
	l.started = false
	l.cancel = nil
	l.lifecycleMu.Unlock()

	if cancel != nil {
		cancel()
	}
	l.wg.Wait()
	logger.Info(context.Background(), "template listener stopped")
}

func (l *TemplateListener) listenLoop() {
	defer l.wg.Done()

	for {
		select {
		case <-l.ctx.Done():
			return
		default:
		}

		conn, err := l.pool.Acquire(l.ctx)
		if err != nil {
			logger.Error(l.ctx, "failed to acquire connection for LISTEN", "error", err)
			l.sleep(time.Second)
			continue
		}

		if _, err := conn.Exec(l.ctx, "LISTEN "+TemplateChannel); err != nil {
			logger.Error(l.ctx, "failed to LISTEN", "error", err)
			conn.Release()
			l.sleep(time.Second)
			continue
		}

		// Anything may have changed while we were not listening.
		l.handleNotification(TemplateChannel, "")
		l.waitForNotifications(conn)
		conn.Release()
	}
}

func (l *TemplateListener) waitForNotifications(conn *pgxpool.Conn) {
	for {
		select {
		case <-l.ctx.Done():
			return
		default:
		}

		ctx, cancel := context.WithTimeout(l.ctx, 30*time.Second)
		notification, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if l.ctx.Err() != nil {
				return
			}
			if conn.Conn().IsClosed() {
				logger.Warn(l.ctx, "LISTEN connection lost, reconnecting", "error", err)
				return
			}
			continue
		}

		logger.Debug(l.ctx, "received notification",
			"channel", notification.Channel,
			"payload", notification.Payload)
		l.handleNotification(notification.Channel, notification.Payload)
	}
}

func (l *TemplateListener) handleNotification(channel, payload string) {
	if channel != TemplateChannel {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error(l.ctx, "template invalidation panic recovered", "panic", r)
		}
	}()
	if err := l.cache.Invalidate(l.ctx); err != nil {
		logger.Warn(l.ctx, "template invalidation failed", "payload", payload, "error", err)
	}
}

func (l *TemplateListener) sleep(d time.Duration) {
	select {
	case <-l.ctx.Done():
	case <-time.After(d):
	}
}
