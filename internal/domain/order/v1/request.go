package orderv1

import "github.com/quantfex/matching-engine/pkg/errors"

// SubmitRequest represents a request to place an order. The external order
// management collaborator has already validated transport-level concerns;
// only order shape is checked here.
type SubmitRequest struct {
	OrderID   string      `json:"orderID"` // optional, engine-assigned when empty
	AccountID string      `json:"accountID"`
	Symbol    string      `json:"symbol"`
	Side      Side        `json:"side"`
	Type      Type        `json:"type"`
	TIF       TimeInForce `json:"tif"`
	Price     float64     `json:"price"`
	Quantity  float64     `json:"quantity"`
}

// Validate checks the request shape.
func (r *SubmitRequest) Validate() error {
	if r.AccountID == "" {
		return errors.New(errors.CodeInvalidOrder, "account id is empty")
	}
	if r.Symbol == "" {
		return errors.New(errors.CodeInvalidOrder, "symbol is empty")
	}
	if r.Side != SideBuy && r.Side != SideSell {
		return errors.Newf(errors.CodeInvalidOrder, "unknown side %q", r.Side)
	}
	if r.Quantity <= 0 {
		return errors.Newf(errors.CodeInvalidOrder, "quantity must be positive, got %f", r.Quantity)
	}
	switch r.Type {
	case TypeLimit:
		if r.Price <= 0 {
			return errors.Newf(errors.CodeInvalidOrder, "limit price must be positive, got %f", r.Price)
		}
	case TypeMarket:
		if r.Price != 0 {
			return errors.New(errors.CodeInvalidOrder, "market order must not carry a price")
		}
		if r.TIF == TIFStandard {
			// a market order can never rest
			return errors.New(errors.CodeInvalidOrder, "market order cannot be gtc")
		}
	default:
		return errors.Newf(errors.CodeInvalidOrder, "unknown type %q", r.Type)
	}
	switch r.TIF {
	case TIFStandard, TIFImmediateOrCancel, TIFFillOrKill:
	case "":
		// defaulted by the lane to gtc for limit, ioc for market
	default:
		return errors.Newf(errors.CodeInvalidOrder, "unknown time in force %q", r.TIF)
	}
	return nil
}

// CancelRequest represents a request to cancel a resting order.
type CancelRequest struct {
	OrderID string `json:"orderID"`
	Symbol  string `json:"symbol"`
}
