package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rookgm/brewtrack/internal/models"
	"github.com/rookgm/brewtrack/internal/repository/postgres"
	"go.uber.org/zap"
)

const (
	defaultRetryDelay = 2 * time.Second
	// bound on UNLISTEN before the connection goes back to the pool
	unlistenTimeout = 5 * time.Second
)

// Publisher receives changes
type Publisher interface {
	Publish(c models.Change)
}

// Listener forwards postgres NOTIFY payloads from the row triggers to a Publisher
type Listener struct {
	pool    *pgxpool.Pool
	channel string
	pub     Publisher
	retry   time.Duration
	log     *zap.Logger
}

// NewListener creates new Listener on the changes channel
func NewListener(pool *pgxpool.Pool, pub Publisher, log *zap.Logger) *Listener {
	return &Listener{
		pool:    pool,
		channel: postgres.ChangesChannel,
		pub:     pub,
		retry:   defaultRetryDelay,
		log:     log,
	}
}

// Run listens until ctx is done, reconnecting after connection failures.
// Changes raised while disconnected are picked up by session polling.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		l.log.Warn("change listener disconnected", zap.Error(err), zap.Duration("retry", l.retry))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.retry):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	channel := pgx.Identifier{l.channel}.Sanitize()
	defer l.release(conn, channel)

	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	l.log.Info("listening for changes", zap.String("channel", l.channel))

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		c, err := ParseChange(n.Payload)
		if err != nil {
			l.log.Warn("bad change payload", zap.String("payload", n.Payload), zap.Error(err))
			continue
		}
		l.pub.Publish(c)
	}
}

// release hands conn back to the pool without its subscription. A connection
// that cannot unlisten is closed instead.
func (l *Listener) release(conn *pgxpool.Conn, channel string) {
	ctx, cancel := context.WithTimeout(context.Background(), unlistenTimeout)
	defer cancel()

	if _, err := conn.Exec(ctx, "UNLISTEN "+channel); err != nil {
		l.log.Debug("unlisten failed, closing connection", zap.Error(err))
		_ = conn.Hijack().Close(ctx)
		return
	}
	conn.Release()
}

// ParseChange decodes a change notification payload
func ParseChange(payload string) (models.Change, error) {
	var c models.Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return models.Change{}, err
	}
	if c.Table == "" || c.Op == "" {
		return models.Change{}, fmt.Errorf("incomplete change: %q", payload)
	}
	return c, nil
}
