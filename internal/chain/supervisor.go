package chain

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// BackoffConfig bounds the reconnect delay. Attempts are unbounded; the
// delay grows by Multiplier up to Max.
type BackoffConfig struct {
	Base       time.Duration
	Multiplier float64
	Max        time.Duration
}

func (c BackoffConfig) withDefaults() BackoffConfig {
	if c.Base <= 0 {
		c.Base = time.Second
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2
	}
	if c.Max < c.Base {
		c.Max = 30 * time.Second
	}
	return c
}

// Dialer opens a connection to the endpoint. Swappable in tests.
type Dialer func(ctx context.Context, rpcURL string) (Conn, error)

// Supervisor owns the shared transport connection. Subscription units never
// dial or close it themselves; they report a dead connection by calling
// Acquire with the generation they were using.
type Supervisor struct {
	rpcURL  string
	backoff BackoffConfig
	dial    Dialer
	logger  *zap.Logger

	mu   chan struct{} // context-aware mutex, held across redials
	conn Conn
	gen  uint64
}

// NewSupervisor builds a Supervisor for the endpoint. No connection is
// opened until the first Acquire.
func NewSupervisor(rpcURL string, backoff BackoffConfig, logger *zap.Logger) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Supervisor{
		rpcURL:  rpcURL,
		backoff: backoff.withDefaults(),
		dial: func(ctx context.Context, rpcURL string) (Conn, error) {
			return Dial(ctx, rpcURL)
		},
		logger: logger,
		mu:     make(chan struct{}, 1),
	}
	return s
}

// Acquire returns the current connection and its generation.
//
// A caller passes the generation of the connection it last used (zero before
// the first call). If that generation is stale the connection has already
// been replaced and the current one is returned immediately. If it is
// current, this caller is the first to observe the failure: the old
// connection is closed and the endpoint redialed with capped exponential
// backoff, indefinitely. The lock is held across the redial, so every other
// subscription unit suspends until the new connection is up. Acquire only
// fails when ctx is done.
func (s *Supervisor) Acquire(ctx context.Context, lastGen uint64) (Conn, uint64, error) {
	select {
	case s.mu <- struct{}{}:
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}
	defer func() { <-s.mu }()

	if s.conn != nil && s.gen != lastGen {
		return s.conn, s.gen, nil
	}

	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}

	delay := s.backoff.Base
	for attempt := 1; ; attempt++ {
		conn, err := s.dial(ctx, s.rpcURL)
		if err == nil {
			s.conn = conn
			s.gen++
			s.logger.Info("transport connected",
				zap.String("rpc", s.rpcURL),
				zap.Uint64("generation", s.gen),
				zap.Int("attempt", attempt),
			)
			return s.conn, s.gen, nil
		}

		s.logger.Warn("transport dial failed",
			zap.String("rpc", s.rpcURL),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, 0, ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * s.backoff.Multiplier)
		if delay > s.backoff.Max {
			delay = s.backoff.Max
		}
	}
}

// Close tears down the current connection, if any.
func (s *Supervisor) Close() {
	s.mu <- struct{}{}
	defer func() { <-s.mu }()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}
