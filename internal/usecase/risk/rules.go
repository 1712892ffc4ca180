package risk

import (
	"fmt"

	orderv1 "github.com/quantfex/matching-engine/internal/domain/order/v1"
	riskv1 "github.com/quantfex/matching-engine/internal/domain/risk/v1"
)

// Rule names travel on rejection events, so they are stable strings.
const (
	RuleAccountEnabled   = "account_enabled"
	RuleMaxOrderQuantity = "max_order_quantity"
	RuleBalance          = "balance_sufficiency"
	RuleMaxPosition      = "max_position_size"
	RuleLeverage         = "max_leverage"
	RuleDailyLoss        = "max_daily_loss"
)

type accountEnabledRule struct{}

func (accountEnabledRule) Name() string { return RuleAccountEnabled }

func (accountEnabledRule) Check(_ *orderv1.Order, state riskv1.AccountState) riskv1.Decision {
	if !state.Limits.Enabled {
		return riskv1.Reject(RuleAccountEnabled, "account is disabled for trading")
	}
	return riskv1.Admit()
}

type maxOrderQuantityRule struct{}

func (maxOrderQuantityRule) Name() string { return RuleMaxOrderQuantity }

func (maxOrderQuantityRule) Check(order *orderv1.Order, state riskv1.AccountState) riskv1.Decision {
	limit := state.Limits.MaxOrderQuantity
	if limit > 0 && order.Quantity > limit {
		return riskv1.Reject(RuleMaxOrderQuantity,
			fmt.Sprintf("order quantity %f exceeds limit %f", order.Quantity, limit))
	}
	return riskv1.Admit()
}

type balanceRule struct {
	notional func(*orderv1.Order) float64
}

func (balanceRule) Name() string { return RuleBalance }

func (r balanceRule) Check(order *orderv1.Order, state riskv1.AccountState) riskv1.Decision {
	required := r.notional(order)
	available := state.Balance - state.Reserved
	if required > available {
		return riskv1.Reject(RuleBalance,
			fmt.Sprintf("required notional %f exceeds available balance %f", required, available))
	}
	return riskv1.Admit()
}

type maxPositionRule struct{}

func (maxPositionRule) Name() string { return RuleMaxPosition }

// Check rejects when the hypothetical post-trade position would breach the
// limit, assuming the order fills entirely.
func (maxPositionRule) Check(order *orderv1.Order, state riskv1.AccountState) riskv1.Decision {
	limit := state.Limits.MaxPositionSize
	if limit <= 0 {
		return riskv1.Admit()
	}

	hypothetical := state.NetPosition
	if order.IsBuy() {
		hypothetical += order.Quantity
	} else {
		hypothetical -= order.Quantity
	}
	if hypothetical < 0 {
		hypothetical = -hypothetical
	}

	if hypothetical > limit {
		return riskv1.Reject(RuleMaxPosition,
			fmt.Sprintf("post-trade position %f exceeds limit %f", hypothetical, limit))
	}
	return riskv1.Admit()
}

type leverageRule struct {
	notional func(*orderv1.Order) float64
}

func (leverageRule) Name() string { return RuleLeverage }

func (r leverageRule) Check(order *orderv1.Order, state riskv1.AccountState) riskv1.Decision {
	limit := state.Limits.MaxLeverage
	if limit <= 0 {
		return riskv1.Admit()
	}

	exposure := state.Reserved + r.notional(order)
	if exposure > limit*state.Balance {
		return riskv1.Reject(RuleLeverage,
			fmt.Sprintf("exposure %f exceeds %fx of balance %f", exposure, limit, state.Balance))
	}
	return riskv1.Admit()
}

type dailyLossRule struct{}

func (dailyLossRule) Name() string { return RuleDailyLoss }

func (dailyLossRule) Check(_ *orderv1.Order, state riskv1.AccountState) riskv1.Decision {
	limit := state.Limits.MaxDailyLoss
	if limit <= 0 {
		return riskv1.Admit()
	}

	loss := -state.RealizedPnL
	if loss >= limit {
		return riskv1.Reject(RuleDailyLoss,
			fmt.Sprintf("realized daily loss %f reached limit %f", loss, limit))
	}
	return riskv1.Admit()
}
