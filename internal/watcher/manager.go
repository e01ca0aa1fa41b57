// Package watcher runs one subscription unit per configured pool over the
// shared transport connection and turns inbound Swap logs into price quotes.
package watcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"swapScope/internal/chain"
	"swapScope/internal/dex"
	"swapScope/internal/model"
	"swapScope/internal/pricing"
	"swapScope/internal/sink"
)

// Transport hands out the shared connection. Satisfied by chain.Supervisor.
type Transport interface {
	Acquire(ctx context.Context, lastGen uint64) (chain.Conn, uint64, error)
}

// Manager owns one listening goroutine per registered pool. Pools are
// isolated: a slow or failing pool never blocks another pool's stream, and
// per-event errors never abort the pool, let alone its neighbors.
type Manager struct {
	transport Transport
	decoder   *dex.SwapDecoder
	resolver  *dex.MetadataResolver
	out       sink.Sink
	logger    *zap.Logger

	mu    sync.Mutex
	pools []common.Address
	seen  map[common.Address]struct{}
}

// NewManager wires the manager's collaborators.
func NewManager(transport Transport, decoder *dex.SwapDecoder, resolver *dex.MetadataResolver, out sink.Sink, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		transport: transport,
		decoder:   decoder,
		resolver:  resolver,
		out:       out,
		logger:    logger,
		seen:      make(map[common.Address]struct{}),
	}
}

// Register adds a pool to watch. Registering the same address twice is a
// no-op; it reports whether the pool was newly added.
func (m *Manager) Register(pool common.Address) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[pool]; ok {
		return false
	}
	m.seen[pool] = struct{}{}
	m.pools = append(m.pools, pool)
	return true
}

// Run watches every registered pool until ctx is cancelled. It fails fast
// when no pool is registered; once listening, only cancellation stops it.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	pools := make([]common.Address, len(m.pools))
	copy(pools, m.pools)
	m.mu.Unlock()

	if len(pools) == 0 {
		return fmt.Errorf("no pools registered")
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, pool := range pools {
		pool := pool
		g.Go(func() error {
			return m.watchPool(ctx, pool)
		})
	}
	return g.Wait()
}

// eventCursor tracks the last position delivered for one pool. Delivery is
// in-order within a pool, so anything at or before the cursor after a
// reconnect is a replay.
type eventCursor struct {
	set      bool
	block    uint64
	logIndex uint64
}

func (c *eventCursor) replayed(block, logIndex uint64) bool {
	if !c.set {
		return false
	}
	if block != c.block {
		return block < c.block
	}
	return logIndex <= c.logIndex
}

func (c *eventCursor) advance(block, logIndex uint64) {
	c.set = true
	c.block = block
	c.logIndex = logIndex
}

func (m *Manager) watchPool(ctx context.Context, pool common.Address) error {
	log := m.logger.With(zap.String("pool", pool.Hex()))

	var gen uint64
	var cursor eventCursor
	for {
		conn, nextGen, err := m.transport.Acquire(ctx, gen)
		if err != nil {
			return err
		}
		gen = nextGen

		sub, logs, err := conn.SubscribeLogs(ctx, pool, m.decoder.SwapTopic())
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Subscribe failure on a live connection is treated as a dead
			// connection; the next Acquire with the same generation redials.
			log.Warn("subscribe failed", zap.Uint64("generation", gen), zap.Error(err))
			continue
		}

		log.Info("listening pool", zap.Uint64("generation", gen))

		err = m.consume(ctx, conn, pool, logs, sub, &cursor)
		sub.Unsubscribe()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("pool stream interrupted", zap.Error(err))
	}
}

func (m *Manager) consume(ctx context.Context, conn chain.Conn, pool common.Address, logs <-chan types.Log, sub ethereum.Subscription, cursor *eventCursor) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			if err == nil {
				err = fmt.Errorf("subscription closed")
			}
			return err
		case rawLog := <-logs:
			m.handleLog(ctx, conn, pool, rawLog, cursor)
		}
	}
}

// handleLog processes one inbound log. Every failure here is local to the
// event: log and move on.
func (m *Manager) handleLog(ctx context.Context, conn chain.Conn, pool common.Address, rawLog types.Log, cursor *eventCursor) {
	log := m.logger.With(
		zap.String("pool", pool.Hex()),
		zap.Uint64("block", rawLog.BlockNumber),
		zap.Uint64("log_index", uint64(rawLog.Index)),
	)

	if cursor.replayed(rawLog.BlockNumber, uint64(rawLog.Index)) {
		log.Debug("skipping replayed log")
		return
	}
	cursor.advance(rawLog.BlockNumber, uint64(rawLog.Index))

	event, err := m.decoder.Decode(rawLog)
	if err != nil {
		log.Warn("dropping undecodable log", zap.Error(err))
		return
	}

	meta, err := m.resolver.Resolve(ctx, conn, event.Pool)
	if err != nil {
		log.Warn("metadata resolution failed", zap.Error(err))
		return
	}

	prices, err := pricing.Compute(event.SqrtPriceX96, meta.Decimals0, meta.Decimals1)
	if err != nil {
		log.Warn("price computation failed", zap.Error(err))
		return
	}

	quote := model.PriceQuote{
		Pool:            event.Pool.Hex(),
		Symbol0:         meta.Symbol0,
		Symbol1:         meta.Symbol1,
		Price0PerToken1: pricing.FormatPrice(prices.Price0PerToken1),
		Price1PerToken0: pricing.FormatPrice(prices.Price1PerToken0),
		BlockNumber:     event.BlockNumber,
		TxHash:          event.TxHash,
	}

	if err := m.out.Publish(quote); err != nil {
		log.Warn("quote publish failed", zap.Error(err))
	}
}
