package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	invoicesChannel = "invoices_changed"
	listenRetryMin  = 500 * time.Millisecond
	listenRetryMax  = 30 * time.Second
)

type listenConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

var connectListener = func(ctx context.Context, dsn string) (listenConn, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// ensureListener starts the LISTEN loop once, on the first watcher.
func (s *Storage) ensureListener() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopListener != nil || s.listenerClosed {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stopListener = cancel
	s.listenerDone = make(chan struct{})
	go s.listen(ctx)
}

func (s *Storage) listen(ctx context.Context) {
	defer close(s.listenerDone)

	backoff := listenRetryMin
	reconnect := false
	for {
		connected, err := s.consume(ctx, reconnect)
		if ctx.Err() != nil {
			return
		}
		if connected {
			backoff = listenRetryMin
			reconnect = true
		}
		s.logger.Warn("invoice change listener interrupted",
			slog.String("error", err.Error()),
			slog.Duration("retry_in", backoff),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > listenRetryMax {
			backoff = listenRetryMax
		}
	}
}

// consume holds one LISTEN connection until it fails.
func (s *Storage) consume(ctx context.Context, resync bool) (bool, error) {
	conn, err := connectListener(ctx, s.dsn)
	if err != nil {
		return false, fmt.Errorf("connect listener: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+invoicesChannel); err != nil {
		return false, fmt.Errorf("listen %s: %w", invoicesChannel, err)
	}
	if resync {
		s.hub.PublishAll()
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return true, err
		}
		s.hub.Publish(n.Payload)
	}
}
