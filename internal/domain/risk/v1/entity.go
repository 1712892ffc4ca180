package riskv1

import orderv1 "github.com/quantfex/matching-engine/internal/domain/order/v1"

// Limits is the per-account risk configuration. Loaded once per account,
// mutable by an external administrative path, read on every submission.
// A zero value for a numeric limit disables that rule for the account.
type Limits struct {
	AccountID        string  `json:"accountID"`
	MaxPositionSize  float64 `json:"maxPositionSize"`  // absolute net quantity per symbol
	MaxOrderQuantity float64 `json:"maxOrderQuantity"` // single-order quantity
	MaxLeverage      float64 `json:"maxLeverage"`      // notional / balance multiple
	MaxDailyLoss     float64 `json:"maxDailyLoss"`     // realized, positive number
	Enabled          bool    `json:"enabled"`
}

// AccountState is the read-only snapshot a risk evaluation runs against.
type AccountState struct {
	AccountID   string
	Balance     float64
	NetPosition float64 // signed net quantity in the order's symbol
	RealizedPnL float64 // realized for the current day, negative = loss
	Reserved    float64 // notional held by in-flight admitted orders
	Limits      Limits
}

// Decision is the outcome of a risk evaluation.
type Decision struct {
	Admitted bool
	Rule     string // failing rule name when rejected
	Reason   string
}

// Admit returns an admitting decision.
func Admit() Decision {
	return Decision{Admitted: true}
}

// Reject returns a rejecting decision naming the failing rule.
func Reject(rule, reason string) Decision {
	return Decision{Rule: rule, Reason: reason}
}

// Rule is a single pre-trade check. Rules run in a short-circuiting ordered
// pipeline; the first failure determines the rejection reason.
type Rule interface {
	Name() string
	Check(order *orderv1.Order, state AccountState) Decision
}
