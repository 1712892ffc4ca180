package orderbookv1

import (
	"container/list"
	"fmt"

	orderv1 "github.com/quantfex/matching-engine/internal/domain/order/v1"
	"github.com/quantfex/matching-engine/pkg/errors"
)

// PriceLevel represents one price level in the order book: a FIFO queue of
// resting orders sharing the same price and side. The level is owned by a
// single matching lane, so it carries no lock.
type PriceLevel struct {
	Price       float64
	Side        orderv1.Side
	TotalVolume float64

	queue *list.List // of *orderv1.Order, head matches first
}

// NewPriceLevel creates an empty level at the given price.
func NewPriceLevel(price float64, side orderv1.Side) *PriceLevel {
	return &PriceLevel{
		Price: price,
		Side:  side,
		queue: list.New(),
	}
}

// Append places an order at the tail of the FIFO queue and returns its
// element for O(1) removal later.
func (l *PriceLevel) Append(order *orderv1.Order) (*list.Element, error) {
	if order == nil {
		return nil, errors.New(errors.CodeInvalidOrder, "order is nil")
	}
	if order.Side != l.Side {
		return nil, errors.Newf(errors.CodeInternalInconsistency, "order side %s placed on %s level", order.Side, l.Side)
	}
	if order.Remaining <= 0 {
		return nil, errors.Newf(errors.CodeInvalidOrder, "remaining must be positive, got %f", order.Remaining)
	}

	l.TotalVolume += order.Remaining
	return l.queue.PushBack(order), nil
}

// Remove unlinks the element from the queue and releases its volume.
func (l *PriceLevel) Remove(elem *list.Element) *orderv1.Order {
	order := elem.Value.(*orderv1.Order)
	l.queue.Remove(elem)
	l.TotalVolume -= order.Remaining
	return order
}

// Head returns the earliest-admitted resting order, or nil when empty.
func (l *PriceLevel) Head() *orderv1.Order {
	front := l.queue.Front()
	if front == nil {
		return nil
	}
	return front.Value.(*orderv1.Order)
}

// ReduceHead decrements the head order's remaining quantity after a fill
// and removes it when fully consumed. Returns the removed order, or nil if
// it keeps its place at the head.
func (l *PriceLevel) ReduceHead(quantity float64) *orderv1.Order {
	front := l.queue.Front()
	if front == nil {
		return nil
	}
	order := front.Value.(*orderv1.Order)
	l.TotalVolume -= quantity
	if order.IsFilled() {
		l.queue.Remove(front)
		return order
	}
	return nil
}

// Len returns the number of resting orders at this level.
func (l *PriceLevel) Len() int {
	return l.queue.Len()
}

// IsEmpty checks if the level has no orders.
func (l *PriceLevel) IsEmpty() bool {
	return l.queue.Len() == 0
}

// Orders returns the resting orders in FIFO order.
func (l *PriceLevel) Orders() []*orderv1.Order {
	orders := make([]*orderv1.Order, 0, l.queue.Len())
	for e := l.queue.Front(); e != nil; e = e.Next() {
		orders = append(orders, e.Value.(*orderv1.Order))
	}
	return orders
}

// Validate checks the level's volume bookkeeping against its queue.
func (l *PriceLevel) Validate() error {
	calculated := 0.0
	prevSeq := int64(-1)
	for e := l.queue.Front(); e != nil; e = e.Next() {
		order := e.Value.(*orderv1.Order)
		if order.Remaining <= 0 {
			return errors.Newf(errors.CodeInternalInconsistency, "resting order %s has remaining %f", order.ID, order.Remaining)
		}
		if order.Sequence <= prevSeq {
			return errors.Newf(errors.CodeInternalInconsistency, "level %f queue out of sequence order", l.Price)
		}
		prevSeq = order.Sequence
		calculated += order.Remaining
	}

	const epsilon = 1e-9
	if diff := calculated - l.TotalVolume; diff > epsilon || diff < -epsilon {
		return errors.New(errors.CodeInternalInconsistency,
			fmt.Sprintf("level %f volume mismatch: calculated %f, stored %f", l.Price, calculated, l.TotalVolume))
	}
	return nil
}
