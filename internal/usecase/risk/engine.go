package risk

import (
	"context"
	"math"
	"sync"
	"time"

	orderv1 "github.com/quantfex/matching-engine/internal/domain/order/v1"
	riskv1 "github.com/quantfex/matching-engine/internal/domain/risk/v1"
	"github.com/quantfex/matching-engine/internal/usecase/position"
	"github.com/quantfex/matching-engine/pkg/errors"
	"github.com/quantfex/matching-engine/pkg/logger"
)

// NotionalFunc estimates an order's notional exposure. The exact margin
// formula is an open question upstream; this hook is where a real margin
// model plugs in. The default prices limit orders at their limit and market
// orders at the symbol's last trade price.
type NotionalFunc func(order *orderv1.Order, lastPrice float64) float64

// DefaultNotional is the placeholder notional model.
func DefaultNotional(order *orderv1.Order, lastPrice float64) float64 {
	price := order.Price
	if order.Type == orderv1.TypeMarket {
		price = lastPrice
	}
	return price * order.Quantity
}

// Engine evaluates incoming orders against per-account limits before they
// reach a book. Limits and balances are written by an external
// administrative path and read concurrently by every lane.
type Engine struct {
	mu         sync.RWMutex
	limits     map[string]riskv1.Limits
	balances   map[string]float64
	reserved   map[string]float64 // provisional notional holds per account
	lastPrices map[string]float64 // per symbol, updated on every trade

	rules    []riskv1.Rule
	tracker  *position.Tracker
	timeout  time.Duration
	notional NotionalFunc
	logger   *logger.Logger
}

// NewEngine creates a risk engine with the standard rule pipeline. timeout
// bounds a single evaluation; overruns fail closed.
func NewEngine(tracker *position.Tracker, timeout time.Duration, log *logger.Logger) *Engine {
	e := &Engine{
		limits:     make(map[string]riskv1.Limits),
		balances:   make(map[string]float64),
		reserved:   make(map[string]float64),
		lastPrices: make(map[string]float64),
		tracker:    tracker,
		timeout:    timeout,
		notional:   DefaultNotional,
		logger:     log,
	}
	e.rules = []riskv1.Rule{
		accountEnabledRule{},
		maxOrderQuantityRule{},
		balanceRule{notional: e.orderNotional},
		maxPositionRule{},
		leverageRule{notional: e.orderNotional},
		dailyLossRule{},
	}
	return e
}

// WithNotional overrides the notional model.
func (e *Engine) WithNotional(fn NotionalFunc) *Engine {
	e.notional = fn
	return e
}

// Evaluate runs the ordered rule pipeline against a read-only snapshot of
// the account. The first failing rule determines the rejection; rejection
// has no side effects. Evaluation is bounded: a canceled context or an
// overrun of the configured budget fails closed with engine_overloaded
// rather than admitting unchecked.
func (e *Engine) Evaluate(ctx context.Context, order *orderv1.Order) (riskv1.Decision, error) {
	if err := ctx.Err(); err != nil {
		return riskv1.Decision{}, errors.New(errors.CodeEngineOverloaded, "risk evaluation context canceled")
	}

	started := time.Now()
	state := e.accountState(order)

	for _, rule := range e.rules {
		if decision := rule.Check(order, state); !decision.Admitted {
			return decision, nil
		}
		if e.timeout > 0 && time.Since(started) > e.timeout {
			return riskv1.Decision{}, errors.Newf(errors.CodeEngineOverloaded,
				"risk evaluation exceeded %s budget", e.timeout)
		}
	}

	return riskv1.Admit(), nil
}

// Reserve places a provisional notional hold for an admitted order so
// concurrent submissions from the same account cannot jointly exceed
// limits. Returns the amount held.
func (e *Engine) Reserve(order *orderv1.Order) float64 {
	amount := e.orderNotional(order)
	if amount <= 0 {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reserved[order.AccountID] += amount
	return amount
}

// Release returns a previously reserved hold, on fill or cancel.
func (e *Engine) Release(accountID string, amount float64) {
	if amount <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	held := e.reserved[accountID] - amount
	if held < 0 {
		held = 0
	}
	e.reserved[accountID] = held
}

// SetLimits installs an account's risk configuration. Administrative path.
func (e *Engine) SetLimits(limits riskv1.Limits) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.limits[limits.AccountID] = limits
}

// Limits returns the account's configuration and whether one is installed.
func (e *Engine) Limits(accountID string) (riskv1.Limits, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	limits, ok := e.limits[accountID]
	return limits, ok
}

// SetBalance installs an account's balance. Administrative path.
func (e *Engine) SetBalance(accountID string, balance float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.balances[accountID] = balance
}

// Reserved returns the account's current provisional hold.
func (e *Engine) Reserved(accountID string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.reserved[accountID]
}

// ObserveTrade records the symbol's last trade price for market-order
// notional estimation.
func (e *Engine) ObserveTrade(symbol string, price float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastPrices[symbol] = price
}

func (e *Engine) orderNotional(order *orderv1.Order) float64 {
	e.mu.RLock()
	last := e.lastPrices[order.Symbol]
	e.mu.RUnlock()
	return e.notional(order, last)
}

func (e *Engine) accountState(order *orderv1.Order) riskv1.AccountState {
	pos := e.tracker.Position(order.AccountID, order.Symbol)
	realized := e.tracker.RealizedPnL(order.AccountID)

	e.mu.RLock()
	defer e.mu.RUnlock()

	limits, ok := e.limits[order.AccountID]
	if !ok {
		// no configuration installed: account trades without limits
		limits = riskv1.Limits{AccountID: order.AccountID, Enabled: true}
	}

	balance, funded := e.balances[order.AccountID]
	if !funded {
		// balance provisioning belongs to the administrative path;
		// an account with no record is not balance-checked
		balance = math.Inf(1)
	}

	return riskv1.AccountState{
		AccountID:   order.AccountID,
		Balance:     balance,
		NetPosition: pos.NetQuantity,
		RealizedPnL: realized,
		Reserved:    e.reserved[order.AccountID],
		Limits:      limits,
	}
}
