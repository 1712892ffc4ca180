package engine

import (
	"context"
	"sync"

	eventv1 "github.com/quantfex/matching-engine/internal/domain/event/v1"
	journalv1 "github.com/quantfex/matching-engine/internal/domain/journal/v1"
	orderv1 "github.com/quantfex/matching-engine/internal/domain/order/v1"
	snapshotv1 "github.com/quantfex/matching-engine/internal/domain/snapshot/v1"
	"github.com/quantfex/matching-engine/internal/usecase/position"
	"github.com/quantfex/matching-engine/internal/usecase/risk"
	"github.com/quantfex/matching-engine/pkg/errors"
	"github.com/quantfex/matching-engine/pkg/logger"
	"github.com/quantfex/matching-engine/pkg/pool"
)

// Engine is the order matching and pre-trade risk core. Each traded symbol
// gets one lane: a single goroutine owning that symbol's book and
// processing its bounded inbound queue strictly in arrival order. Lanes
// share nothing mutable except the record pools, the position tracker and
// the risk engine's read paths.
type Engine struct {
	lanes map[string]*lane

	riskEngine *risk.Engine
	breaker    *risk.Breaker
	tracker    *position.Tracker
	journal    journalv1.TradeJournal
	publisher  eventv1.Publisher
	snapshots  snapshotv1.Store
	logger     *logger.Logger
	opts       *Options

	orderPool *pool.Sharded[orderv1.Order]
	tradePool *pool.Sharded[orderv1.Trade]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates an engine with one lane per symbol.
func NewEngine(
	symbols []string,
	riskEngine *risk.Engine,
	tracker *position.Tracker,
	journal journalv1.TradeJournal,
	publisher eventv1.Publisher,
	snapshots snapshotv1.Store,
	log *logger.Logger,
	opts *Options,
) *Engine {
	if opts == nil {
		opts = DefaultOptions()
	}

	e := &Engine{
		lanes:      make(map[string]*lane, len(symbols)),
		riskEngine: riskEngine,
		breaker: risk.NewBreaker(risk.BreakerConfig{
			ViolationThreshold: opts.Breaker.ViolationThreshold,
			Window:             opts.Breaker.Window,
			Cooldown:           opts.Breaker.Cooldown,
		}),
		tracker:   tracker,
		journal:   journal,
		publisher: publisher,
		snapshots: snapshots,
		logger:    log,
		opts:      opts,
		orderPool: pool.NewSharded(len(symbols),
			func() *orderv1.Order { return &orderv1.Order{} },
			func(o *orderv1.Order) { o.Reset() },
			opts.PoolMaxIdlePerLane),
		tradePool: pool.NewSharded(len(symbols),
			func() *orderv1.Trade { return &orderv1.Trade{} },
			func(t *orderv1.Trade) { t.Reset() },
			opts.PoolMaxIdlePerLane),
	}

	for i, symbol := range symbols {
		e.lanes[symbol] = newLane(e, symbol, i)
	}

	return e
}

// Start restores lane books from their last snapshots, replays undelivered
// journal trades to the publisher, and starts the lane goroutines.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	if err := e.replayPendingTrades(e.ctx); err != nil {
		return err
	}

	for _, ln := range e.lanes {
		if err := ln.restoreFromSnapshot(e.ctx); err != nil {
			return err
		}
	}

	for _, ln := range e.lanes {
		e.wg.Add(1)
		go ln.run(e.ctx)
	}

	e.logger.Info("matching engine started",
		logger.Field{Key: "symbols", Value: len(e.lanes)},
	)
	return nil
}

// Stop shuts the lanes down, waiting up to the context deadline.
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("matching engine stopped")
		return nil
	case <-ctx.Done():
		e.logger.Warn("engine stop timeout exceeded")
		return ctx.Err()
	}
}

// SubmitOrder validates the request shape and enqueues it onto the symbol's
// lane. The call never blocks: a full queue or an open circuit breaker
// fails fast with engine_overloaded. Acceptance means the order entered the
// lane in arrival order; risk rejections and fills surface as events.
func (e *Engine) SubmitOrder(ctx context.Context, req *orderv1.SubmitRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	ln, ok := e.lanes[req.Symbol]
	if !ok {
		return errors.Newf(errors.CodeInvalidOrder, "symbol %s is not traded here", req.Symbol)
	}

	if !e.breaker.Allow(scopeSymbol(req.Symbol)) {
		return errors.Newf(errors.CodeEngineOverloaded, "circuit breaker open for symbol %s", req.Symbol)
	}
	if !e.breaker.Allow(scopeAccount(req.AccountID)) {
		// Allow may have claimed a symbol-scope half-open trial above;
		// this order will never produce an outcome for it
		e.breaker.ReleaseTrial(scopeSymbol(req.Symbol))
		return errors.Newf(errors.CodeEngineOverloaded, "circuit breaker open for account %s", req.AccountID)
	}

	order := e.orderPool.Get(ln.shard)
	*order = *orderv1.NewOrder(req.OrderID, req.AccountID, req.Symbol, req.Side, req.Type, req.TIF, req.Price, req.Quantity)
	if order.TIF == "" {
		if order.Type == orderv1.TypeMarket {
			order.TIF = orderv1.TIFImmediateOrCancel
		} else {
			order.TIF = orderv1.TIFStandard
		}
	}

	if !ln.enqueue(message{kind: msgSubmit, order: order}) {
		e.orderPool.Put(ln.shard, order)
		e.breaker.ReleaseTrial(scopeSymbol(req.Symbol))
		e.breaker.ReleaseTrial(scopeAccount(req.AccountID))
		return errors.Newf(errors.CodeEngineOverloaded, "inbound queue full for symbol %s", req.Symbol)
	}
	return nil
}

// CancelOrder enqueues a cancel onto the same lane queue as submissions, so
// it is processed relative to other messages for the symbol in strict
// arrival order. The call waits for the lane's reply: nil on success,
// order_not_found when the target is absent (already matched, already
// canceled, or never seen), which is benign and never a sign of partial state.
func (e *Engine) CancelOrder(ctx context.Context, req *orderv1.CancelRequest) error {
	ln, ok := e.lanes[req.Symbol]
	if !ok {
		return errors.Newf(errors.CodeOrderNotFound, "symbol %s is not traded here", req.Symbol)
	}

	reply := make(chan error, 1)
	if !ln.enqueue(message{kind: msgCancel, cancel: req, reply: reply}) {
		return errors.Newf(errors.CodeEngineOverloaded, "inbound queue full for symbol %s", req.Symbol)
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return errors.New(errors.CodeEngineOverloaded, "cancel reply wait canceled")
	}
}

// Flush blocks until every message enqueued on the symbol's lane before the
// call has been processed. Used by shutdown and tests as a barrier.
func (e *Engine) Flush(ctx context.Context, symbol string) error {
	ln, ok := e.lanes[symbol]
	if !ok {
		return errors.Newf(errors.CodeInvalidOrder, "symbol %s is not traded here", symbol)
	}

	reply := make(chan error, 1)
	if !ln.enqueue(message{kind: msgBarrier, reply: reply}) {
		return errors.Newf(errors.CodeEngineOverloaded, "inbound queue full for symbol %s", symbol)
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// replayPendingTrades re-publishes trades that were journaled but not
// marked delivered before the last shutdown. Consumers must tolerate
// duplicates: delivery is at-least-once.
func (e *Engine) replayPendingTrades(ctx context.Context) error {
	pending, err := e.journal.Pending(ctx)
	if err != nil {
		return err
	}
	for i := range pending {
		trade := pending[i]
		if err := e.publisher.PublishTrade(ctx, &eventv1.TradeExecuted{Trade: trade}); err != nil {
			return err
		}
		if err := e.journal.MarkDelivered(ctx, trade.ID); err != nil {
			return err
		}
	}
	if len(pending) > 0 {
		e.logger.Info("replayed undelivered trades",
			logger.Field{Key: "count", Value: len(pending)},
		)
	}
	return nil
}

func scopeSymbol(symbol string) string   { return "symbol:" + symbol }
func scopeAccount(account string) string { return "account:" + account }
