package book

import "math"

// TickSize is the smallest representable price increment.
const TickSize = 0.01

// PriceLevel is the time-ordered queue of orders resting at one tick.
// The queue only ever holds orders of one side: an opposing order would
// have matched against it before it could rest.
type PriceLevel struct {
	Orders   []*Order // head = oldest
	TotalQty int32
}

func (pl *PriceLevel) append(o *Order) {
	pl.Orders = append(pl.Orders, o)
	pl.TotalQty += o.Remaining
}

// dropHead discards the first n queue entries in place, preserving the
// backing array so a busy level does not reallocate on every drain.
func (pl *PriceLevel) dropHead(n int) {
	if n == 0 {
		return
	}
	rest := copy(pl.Orders, pl.Orders[n:])
	for i := rest; i < len(pl.Orders); i++ {
		pl.Orders[i] = nil
	}
	pl.Orders = pl.Orders[:rest]
}

// remove unlinks the order with the given id, if present. Queue depths at
// a single tick are small in practice, so a linear scan suffices; the hot
// operation is head matching, not mid-queue removal.
func (pl *PriceLevel) remove(id int64) bool {
	for i, o := range pl.Orders {
		if o.ID == id {
			copy(pl.Orders[i:], pl.Orders[i+1:])
			pl.Orders[len(pl.Orders)-1] = nil
			pl.Orders = pl.Orders[:len(pl.Orders)-1]
			return true
		}
	}
	return false
}

// ladder is the fixed-length array of price levels, one per tick in
// [minPrice, maxPrice].
type ladder struct {
	minPrice float64
	levels   []PriceLevel
}

func newLadder(minPrice, maxPrice float64) ladder {
	n := int(math.Round((maxPrice-minPrice)/TickSize)) + 1
	return ladder{
		minPrice: minPrice,
		levels:   make([]PriceLevel, n),
	}
}

// tickOf snaps a price to the nearest tick and clamps it onto the ladder.
// Prices outside the configured range land on the boundary tick.
func (l *ladder) tickOf(price float64) int {
	idx := int(math.Round((price - l.minPrice) / TickSize))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(l.levels) {
		idx = len(l.levels) - 1
	}
	return idx
}

func (l *ladder) priceOf(idx int) float64 {
	return l.minPrice + float64(idx)*TickSize
}
