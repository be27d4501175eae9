package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"landportal/internal/infrastructure/storage/postgres"
	"landportal/pkg/logger"
)

// ChangeChannel is the NOTIFY channel the catalog schema triggers publish on.
// The payload is the name of the changed table.
const ChangeChannel = "catalog_changed"

// Listener invalidates a Store when another process writes the catalog
// tables. It keeps one pooled connection in LISTEN mode.
type Listener struct {
	pool  *pgxpool.Pool
	cache *Store

	// Lifecycle
	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewListener creates a listener invalidating cache.
func NewListener(pool *postgres.Pool, cache *Store) *Listener {
	return &Listener{pool: pool.Pool, cache: cache}
}

// Start begins listening in the background. Calling it twice is a no-op.
func (l *Listener) Start(ctx context.Context) {
	l.lifecycleMu.Lock()
	defer l.lifecycleMu.Unlock()
	if l.started {
		return
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.started = true

	l.wg.Add(1)
	go l.listenLoop()
	logger.Info(l.ctx, "store cache listener started", "channel", ChangeChannel)
}

// Stop ends listening and waits for the loop to exit.
func (l *Listener) Stop() {
	l.lifecycleMu.Lock()
	if !l.started {
		l.lifecycleMu.Unlock()
		return
	}
	cancel := l.cancel
	l.started = false
	l.cancel = nil
	l.lifecycleMu.Unlock()

	cancel()
	l.wg.Wait()
	logger.Info(context.Background(), "store cache listener stopped")
}

func (l *Listener) listenLoop() {
	defer l.wg.Done()

	for l.ctx.Err() == nil {
		conn, err := l.pool.Acquire(l.ctx)
		if err != nil {
			logger.Error(l.ctx, "failed to acquire connection for LISTEN", "error", err)
			l.pause()
			continue
		}

		if _, err := conn.Exec(l.ctx, "LISTEN "+ChangeChannel); err != nil {
			logger.Error(l.ctx, "failed to LISTEN", "error", err)
			conn.Release()
			l.pause()
			continue
		}

		// Changes made while no connection was listening are unknown.
		l.cache.Purge()
		l.wait(conn)
		conn.Release()
	}
}

func (l *Listener) wait(conn *pgxpool.Conn) {
	for {
		ctx, cancel := context.WithTimeout(l.ctx, 30*time.Second)
		n, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if l.ctx.Err() != nil {
				return
			}
			if ctx.Err() != nil {
				continue
			}
			logger.Error(l.ctx, "LISTEN connection lost", "error", err)
			return
		}
		l.handle(n.Payload)
	}
}

// handle drops the cached rows of the table named by payload, or everything
// when the table is unknown.
func (l *Listener) handle(payload string) {
	table := strings.TrimSpace(payload)
	kind, ok := postgres.KindOfTable(table)
	if !ok {
		logger.Warn(l.ctx, "change notification for unknown table", "table", table)
		l.cache.Purge()
		return
	}
	logger.Debug(l.ctx, "store cache invalidated", "kind", kind)
	l.cache.InvalidateKind(kind)
}

func (l *Listener) pause() {
	select {
	case <-l.ctx.Done():
	case <-time.After(time.Second):
	}
}
