package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	eventv1 "github.com/quantfex/matching-engine/internal/domain/event/v1"
	orderv1 "github.com/quantfex/matching-engine/internal/domain/order/v1"
	"github.com/quantfex/matching-engine/internal/usecase/orderbook"
	"github.com/quantfex/matching-engine/pkg/errors"
	"github.com/quantfex/matching-engine/pkg/logger"
)

type msgKind int

const (
	msgSubmit msgKind = iota
	msgCancel
	msgBarrier
)

// message is one unit of work on a lane queue. Cancels and barriers carry a
// reply channel; submissions are fire-and-forget.
type message struct {
	kind   msgKind
	order  *orderv1.Order
	cancel *orderv1.CancelRequest
	reply  chan error
}

// hold tracks the provisional notional reserved for one admitted order so
// fills and cancels can release it incrementally.
type hold struct {
	accountID string
	remaining float64 // quantity still covered by the hold
	perUnit   float64 // notional per unit of quantity
}

// lane is the single logical worker owning one symbol's book. All book and
// position mutation for the symbol happens on this goroutine; ordering is
// the queue's arrival order, which resolves cancel-versus-match races
// deterministically.
type lane struct {
	engine *Engine
	symbol string
	shard  int

	book  *orderbook.Orderbook
	queue chan message

	sequence int64
	seen     map[string]struct{}
	holds    map[string]*hold
	entropy  *ulid.MonotonicEntropy

	processedSinceSnapshot int64
	logger                 *logger.Logger
}

func newLane(e *Engine, symbol string, shard int) *lane {
	return &lane{
		engine:  e,
		symbol:  symbol,
		shard:   shard,
		book:    orderbook.NewOrderbook(symbol),
		queue:   make(chan message, e.opts.InboundQueueCapacity),
		seen:    make(map[string]struct{}),
		holds:   make(map[string]*hold),
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano()+int64(shard))), 0),
		logger:  e.logger.WithFields(logger.Field{Key: "symbol", Value: symbol}),
	}
}

// enqueue attempts a non-blocking put onto the lane queue. False means the
// queue is full and the caller must fail fast.
func (ln *lane) enqueue(msg message) bool {
	select {
	case ln.queue <- msg:
		return true
	default:
		return false
	}
}

func (ln *lane) run(ctx context.Context) {
	defer ln.engine.wg.Done()

	interval := ln.engine.opts.SnapshotInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ln.logger.Info("lane started")
	for {
		select {
		case <-ctx.Done():
			ln.logger.Info("lane shutting down")
			return
		case <-ticker.C:
			ln.maybeSnapshot(ctx)
		case msg := <-ln.queue:
			ln.process(ctx, msg)
		}
	}
}

func (ln *lane) process(ctx context.Context, msg message) {
	started := time.Now()
	ln.processedSinceSnapshot++

	switch msg.kind {
	case msgSubmit:
		ln.processSubmit(ctx, msg.order)
	case msgCancel:
		msg.reply <- ln.processCancel(ctx, msg.cancel)
	case msgBarrier:
		msg.reply <- nil
	}

	if elapsed := time.Since(started); elapsed > ln.engine.opts.LaneLatencyBudget {
		ln.engine.breaker.RecordViolation(scopeSymbol(ln.symbol))
		ln.logger.Warn("lane latency budget exceeded",
			logger.Field{Key: "elapsed", Value: elapsed},
		)
	}
}

func (ln *lane) processSubmit(ctx context.Context, order *orderv1.Order) {
	if order.ID != "" {
		if _, dup := ln.seen[order.ID]; dup || ln.book.Contains(order.ID) {
			ln.reject(ctx, order, errors.CodeDuplicateOrderID, "order id already seen")
			return
		}
	}

	ln.sequence++
	order.Sequence = ln.sequence
	if order.ID == "" {
		order.ID = ln.newID()
	}
	ln.seen[order.ID] = struct{}{}

	// the order record goes back to the pool on every terminal path below,
	// so anything read afterwards is captured here
	accountID := order.AccountID

	// pre-trade risk, synchronous inside the lane
	decision, err := ln.engine.riskEngine.Evaluate(ctx, order)
	if err != nil {
		ln.engine.breaker.RecordViolation(scopeSymbol(ln.symbol))
		ln.reject(ctx, order, errors.CodeOf(err), err.Error())
		return
	}
	if !decision.Admitted {
		ln.engine.breaker.RecordViolation(scopeAccount(accountID))
		ln.reject(ctx, order, errors.CodeRiskLimitExceeded, decision.Rule+": "+decision.Reason)
		return
	}

	ln.reserve(order)

	// fill-or-kill trial: a shortfall must leave the book untouched
	if order.TIF == orderv1.TIFFillOrKill {
		if ln.book.FillableQuantity(order) < order.Remaining-1e-9 {
			ln.releaseHold(order.ID, order.Remaining)
			order.Status = orderv1.StatusRejected
			ln.publishRejection(ctx, order, "fill_or_kill", "insufficient quantity for atomic fill")
			ln.engine.orderPool.Put(ln.shard, order)
			ln.recordSuccess(accountID)
			return
		}
	}

	fills := ln.book.Match(order)
	for i := range fills {
		if err := ln.executeTrade(ctx, &fills[i]); err != nil {
			ln.fail(ctx, err)
			return
		}
	}

	bookChanged := len(fills) > 0
	switch {
	case order.Remaining <= 0:
		// taker fully filled; its hold was released fill by fill
		delete(ln.holds, order.ID)
		ln.engine.orderPool.Put(ln.shard, order)

	case order.Type == orderv1.TypeLimit && order.TIF == orderv1.TIFStandard:
		if err := ln.book.Insert(order); err != nil {
			ln.fail(ctx, err)
			return
		}
		bookChanged = true

	default:
		// IOC remainder (and market leftovers) are discarded as canceled
		ln.releaseHold(order.ID, order.Remaining)
		order.Status = orderv1.StatusCanceled
		ln.engine.orderPool.Put(ln.shard, order)
	}

	if bookChanged {
		ln.publishBookUpdate(ctx)
	}

	if err := ln.book.Validate(); err != nil {
		ln.fail(ctx, err)
		return
	}
	ln.recordSuccess(accountID)
}

func (ln *lane) processCancel(ctx context.Context, req *orderv1.CancelRequest) error {
	order, err := ln.book.Cancel(req.OrderID)
	if err != nil {
		return err
	}

	ln.releaseHold(order.ID, order.Remaining)
	ln.engine.orderPool.Put(ln.shard, order)
	ln.publishBookUpdate(ctx)
	return nil
}

// executeTrade turns one fill into a trade and runs the trade pipeline:
// durable journal append, position application, publish. The append comes
// first so a generated trade exists somewhere before any state it implies;
// an append failure aborts the match before positions move, and a publish
// failure leaves the trade pending in the journal for replay.
func (ln *lane) executeTrade(ctx context.Context, fill *orderv1.Fill) error {
	trade := ln.engine.tradePool.Get(ln.shard)
	trade.ID = ln.newID()
	trade.Symbol = ln.symbol
	trade.MakerOrderID = fill.Maker.ID
	trade.TakerOrderID = fill.Taker.ID
	trade.MakerAccountID = fill.Maker.AccountID
	trade.TakerAccountID = fill.Taker.AccountID
	trade.TakerSide = fill.Taker.Side
	trade.Price = fill.Price
	trade.Quantity = fill.Quantity
	trade.Timestamp = time.Now().UnixNano()

	if err := ln.engine.journal.Append(ctx, trade); err != nil {
		ln.engine.tradePool.Put(ln.shard, trade)
		return err
	}

	if err := ln.engine.tracker.ApplyTrade(trade); err != nil {
		ln.engine.tradePool.Put(ln.shard, trade)
		return err
	}

	if err := ln.engine.publisher.PublishTrade(ctx, &eventv1.TradeExecuted{Trade: *trade}); err != nil {
		ln.logger.Error(err, logger.Field{Key: "tradeID", Value: trade.ID})
	} else if err := ln.engine.journal.MarkDelivered(ctx, trade.ID); err != nil {
		ln.logger.Error(err, logger.Field{Key: "tradeID", Value: trade.ID})
	}

	ln.engine.riskEngine.ObserveTrade(ln.symbol, trade.Price)

	ln.releaseHold(fill.Maker.ID, fill.Quantity)
	ln.releaseHold(fill.Taker.ID, fill.Quantity)
	if fill.Maker.IsFilled() {
		delete(ln.holds, fill.Maker.ID)
		ln.engine.orderPool.Put(ln.shard, fill.Maker)
	}

	ln.engine.tradePool.Put(ln.shard, trade)
	return nil
}

// reserve places the provisional notional hold for an admitted order.
func (ln *lane) reserve(order *orderv1.Order) {
	held := ln.engine.riskEngine.Reserve(order)
	if held <= 0 || order.Quantity <= 0 {
		return
	}
	ln.holds[order.ID] = &hold{
		accountID: order.AccountID,
		remaining: order.Quantity,
		perUnit:   held / order.Quantity,
	}
}

// releaseHold returns the hold covering the given quantity.
func (ln *lane) releaseHold(orderID string, quantity float64) {
	h, ok := ln.holds[orderID]
	if !ok || quantity <= 0 {
		return
	}
	if quantity > h.remaining {
		quantity = h.remaining
	}
	ln.engine.riskEngine.Release(h.accountID, h.perUnit*quantity)
	h.remaining -= quantity
	if h.remaining <= 0 {
		delete(ln.holds, orderID)
	}
}

func (ln *lane) reject(ctx context.Context, order *orderv1.Order, code errors.Code, reason string) {
	order.Status = orderv1.StatusRejected
	ln.publishRejection(ctx, order, string(code), reason)
	ln.engine.orderPool.Put(ln.shard, order)
}

func (ln *lane) publishRejection(ctx context.Context, order *orderv1.Order, code, reason string) {
	event := &eventv1.OrderRejected{
		OrderID:   order.ID,
		AccountID: order.AccountID,
		Symbol:    ln.symbol,
		Code:      code,
		Reason:    reason,
	}
	if err := ln.engine.publisher.PublishRejection(ctx, event); err != nil {
		ln.logger.Error(err, logger.Field{Key: "orderID", Value: order.ID})
	}
}

func (ln *lane) publishBookUpdate(ctx context.Context) {
	bestBid, _ := ln.book.BestBid()
	bestAsk, _ := ln.book.BestAsk()
	event := &eventv1.OrderBookUpdated{
		Symbol:   ln.symbol,
		BestBid:  bestBid,
		BestAsk:  bestAsk,
		Depth:    ln.book.Depth(ln.engine.opts.MaxOrderBookDepth),
		Sequence: ln.sequence,
	}
	if err := ln.engine.publisher.PublishBookUpdate(ctx, event); err != nil {
		ln.logger.Error(err)
	}
}

func (ln *lane) recordSuccess(accountID string) {
	ln.engine.breaker.RecordSuccess(scopeSymbol(ln.symbol))
	ln.engine.breaker.RecordSuccess(scopeAccount(accountID))
}

// maybeSnapshot persists the book if enough messages were processed since
// the last snapshot. Taken on the lane goroutine, so the copy is consistent
// by construction.
func (ln *lane) maybeSnapshot(ctx context.Context) {
	if ln.processedSinceSnapshot < ln.engine.opts.SnapshotMinEvents {
		return
	}

	snapshot := ln.book.Snapshot()
	snapshot.Sequence = ln.sequence
	snapshot.CreatedAt = time.Now().UnixNano()
	if err := ln.engine.snapshots.Store(ctx, snapshot); err != nil {
		ln.logger.Error(err, logger.Field{Key: "action", Value: "snapshot"})
		return
	}
	ln.processedSinceSnapshot = 0
	ln.logger.Debug("book snapshot stored",
		logger.Field{Key: "orders", Value: len(snapshot.Orders)},
		logger.Field{Key: "sequence", Value: snapshot.Sequence},
	)
}

// fail handles an internal inconsistency: the lane's book is rebuilt from
// the last known-consistent snapshot with resting orders re-admitted in
// original sequence order. Other symbols are unaffected.
func (ln *lane) fail(ctx context.Context, cause error) {
	ln.logger.Error(cause, logger.Field{Key: "action", Value: "lane_recovery"})

	// void all holds; restore re-reserves for whatever comes back
	for id, h := range ln.holds {
		ln.engine.riskEngine.Release(h.accountID, h.perUnit*h.remaining)
		delete(ln.holds, id)
	}

	if err := ln.restoreFromSnapshot(ctx); err != nil {
		ln.logger.Error(err, logger.Field{Key: "action", Value: "lane_recovery_restore"})
		ln.book = orderbook.NewOrderbook(ln.symbol)
	}

	ln.publishBookUpdate(ctx)
	ln.logger.Warn("lane recovered from inconsistency")
}

// restoreFromSnapshot rebuilds the book from the last stored snapshot, if
// any, and re-reserves holds for the restored resting orders.
func (ln *lane) restoreFromSnapshot(ctx context.Context) error {
	snapshot, err := ln.engine.snapshots.Load(ctx, ln.symbol)
	if err != nil {
		return err
	}
	if snapshot == nil {
		ln.book = orderbook.NewOrderbook(ln.symbol)
		return nil
	}

	ln.book = orderbook.NewOrderbook(ln.symbol)
	if err := ln.book.Restore(snapshot); err != nil {
		return err
	}
	if snapshot.Sequence > ln.sequence {
		ln.sequence = snapshot.Sequence
	}

	for _, bookOrder := range snapshot.Orders {
		ln.seen[bookOrder.OrderID] = struct{}{}
		// reserve only the remaining quantity; the filled part was settled
		// before the snapshot was taken
		ln.reserve(&orderv1.Order{
			ID:        bookOrder.OrderID,
			AccountID: bookOrder.AccountID,
			Symbol:    ln.symbol,
			Side:      bookOrder.Side,
			Type:      orderv1.TypeLimit,
			Price:     bookOrder.Price,
			Quantity:  bookOrder.Remaining,
			Remaining: bookOrder.Remaining,
		})
	}

	ln.logger.Info("book restored from snapshot",
		logger.Field{Key: "orders", Value: len(snapshot.Orders)},
		logger.Field{Key: "sequence", Value: snapshot.Sequence},
	)
	return nil
}

func (ln *lane) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ln.entropy).String()
}
