// Package book implements a single-instrument limit order book with
// price-time priority matching.
//
// Resting orders live in a fixed ladder of price levels indexed by tick.
// Two ordered sets track which ticks currently hold orders, so best-price
// lookup is O(log n) while the level touched by an event is addressed
// directly by index. Order records come out of an arena pool and are
// resolved through an id registry for cancel, reduce and replace.
package book

import (
	"errors"

	"huginn/internal/common"
)

var ErrDuplicateID = errors.New("order id already live")

// TradeFunc receives every fill, synchronously, from within matching.
// The callback fires after both quantity decrements are applied but
// before a fully-filled maker is unlinked from its queue, so inspecting
// the book from inside it observes the post-decrement view. Submitting or
// cancelling on the same book from within the callback is not supported.
type TradeFunc func(trade common.Trade)

// Book is a single-instrument limit order book. All methods must be
// called from one goroutine; books share no state besides the
// process-wide trade counter.
type Book struct {
	ladder     ladder
	arena      *Arena
	byID       map[int64]*Order
	activeBids levelSet
	activeAsks levelSet
	onTrade    TradeFunc
}

// Option configures a Book at construction.
type Option func(*options)

type options struct {
	arenaCapacity int
	onTrade       TradeFunc
}

// WithArenaCapacity bounds the number of simultaneously live orders.
func WithArenaCapacity(n int) Option {
	return func(o *options) { o.arenaCapacity = n }
}

// WithTradeFunc installs the trade sink at construction.
func WithTradeFunc(fn TradeFunc) Option {
	return func(o *options) { o.onTrade = fn }
}

// New creates a book covering [minPrice, maxPrice] at one-cent ticks.
func New(minPrice, maxPrice float64, opts ...Option) *Book {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Book{
		ladder:     newLadder(minPrice, maxPrice),
		arena:      NewArena(o.arenaCapacity),
		byID:       make(map[int64]*Order, 1024),
		activeBids: newLevelSet(),
		activeAsks: newLevelSet(),
		onTrade:    o.onTrade,
	}
}

// SetTradeFunc installs the trade sink. Must be called before any event
// is fed.
func (b *Book) SetTradeFunc(fn TradeFunc) {
	b.onTrade = fn
}

// SubmitLimit snaps price to the nearest tick, matches the order against
// the opposite side, and rests any residual quantity. Fully-filled orders
// are destroyed before the call returns. A submit under an id that is
// already live is rejected with ErrDuplicateID and leaves the book
// untouched.
func (b *Book) SubmitLimit(id int64, side common.Side, price float64, qty int32) error {
	if _, ok := b.byID[id]; ok {
		return ErrDuplicateID
	}
	o, err := b.arena.Allocate()
	if err != nil {
		return err
	}
	o.ID = id
	o.Side = side
	o.Tick = uint32(b.ladder.tickOf(price))
	o.Remaining = qty

	// Register before matching so the in-flight order is addressable
	// from within the trade callback.
	b.byID[id] = o

	b.match(o)

	if o.Remaining > 0 {
		b.rest(o)
	} else {
		delete(b.byID, id)
		b.arena.Deallocate(o)
	}
	return nil
}

// Cancel removes a live order. Unknown ids are ignored: the ITCH stream
// routinely references orders the book declined to admit. Idempotent.
func (b *Book) Cancel(id int64) {
	o, ok := b.byID[id]
	if !ok {
		return
	}
	idx := int(o.Tick)
	level := &b.ladder.levels[idx]
	level.TotalQty -= o.Remaining
	level.remove(id)
	if len(level.Orders) == 0 {
		b.activeSet(o.Side).erase(idx)
	}
	delete(b.byID, id)
	b.arena.Deallocate(o)
}

// Reduce shrinks a live order by shares, keeping its queue position.
// Reducing by the full remaining quantity or more cancels the order.
// Non-positive shares and unknown ids are no-ops.
func (b *Book) Reduce(id int64, shares int32) {
	if shares <= 0 {
		return
	}
	o, ok := b.byID[id]
	if !ok {
		return
	}
	if shares >= o.Remaining {
		b.Cancel(id)
		return
	}
	o.Remaining -= shares
	b.ladder.levels[o.Tick].TotalQty -= shares
}

// Replace cancels oldID and submits newID on the same side at the given
// price and quantity. The replacement goes to the back of its queue, as
// ITCH replace semantics dictate. Unknown oldID is a no-op.
func (b *Book) Replace(oldID, newID int64, price float64, qty int32) error {
	side, ok := b.Side(oldID)
	if !ok {
		return nil
	}
	b.Cancel(oldID)
	return b.SubmitLimit(newID, side, price, qty)
}

// Side reports the side of a live order.
func (b *Book) Side(id int64) (common.Side, bool) {
	o, ok := b.byID[id]
	if !ok {
		return 0, false
	}
	return o.Side, true
}

// BestBid returns the highest occupied bid level.
func (b *Book) BestBid() common.BestLevel {
	idx, ok := b.activeBids.max()
	if !ok {
		return common.BestLevel{}
	}
	return common.BestLevel{
		Price:    b.ladder.priceOf(idx),
		Quantity: b.ladder.levels[idx].TotalQty,
		Valid:    true,
	}
}

// BestAsk returns the lowest occupied ask level.
func (b *Book) BestAsk() common.BestLevel {
	idx, ok := b.activeAsks.min()
	if !ok {
		return common.BestLevel{}
	}
	return common.BestLevel{
		Price:    b.ladder.priceOf(idx),
		Quantity: b.ladder.levels[idx].TotalQty,
		Valid:    true,
	}
}

func (b *Book) activeSet(side common.Side) levelSet {
	if side == common.Buy {
		return b.activeBids
	}
	return b.activeAsks
}

// match drains the opposite side's best levels while the incoming order
// crosses them. Prices are snapped to ticks on entry, so the cross test
// is an integer comparison of ladder indices.
func (b *Book) match(taker *Order) {
	if taker.Side == common.Buy {
		for taker.Remaining > 0 {
			idx, ok := b.activeAsks.min()
			if !ok || idx > int(taker.Tick) {
				break
			}
			if b.drainLevel(taker, idx) {
				b.activeAsks.erase(idx)
			}
		}
	} else {
		for taker.Remaining > 0 {
			idx, ok := b.activeBids.max()
			if !ok || idx < int(taker.Tick) {
				break
			}
			if b.drainLevel(taker, idx) {
				b.activeBids.erase(idx)
			}
		}
	}
}

// drainLevel trades the taker against the level's queue from the head
// until one of them is exhausted. Reports whether the level emptied.
func (b *Book) drainLevel(taker *Order, idx int) bool {
	level := &b.ladder.levels[idx]
	px := b.ladder.priceOf(idx)

	consumed := 0
	for consumed < len(level.Orders) && taker.Remaining > 0 {
		maker := level.Orders[consumed]

		q := taker.Remaining
		if maker.Remaining < q {
			q = maker.Remaining
		}
		taker.Remaining -= q
		maker.Remaining -= q
		level.TotalQty -= q
		tradeCount.Add(1)

		// Trade price is the maker's price: the level's tick.
		if b.onTrade != nil {
			b.onTrade(common.Trade{
				TakerID:  taker.ID,
				MakerID:  maker.ID,
				Price:    px,
				Quantity: q,
			})
		}

		if maker.Remaining == 0 {
			delete(b.byID, maker.ID)
			b.arena.Deallocate(maker)
			consumed++
		}
	}
	level.dropHead(consumed)
	return len(level.Orders) == 0
}

// rest inserts an order with residual quantity into its own side of the
// ladder, at the back of its level's queue.
func (b *Book) rest(o *Order) {
	idx := int(o.Tick)
	level := &b.ladder.levels[idx]
	if len(level.Orders) == 0 {
		b.activeSet(o.Side).insert(idx)
	}
	level.append(o)
}
