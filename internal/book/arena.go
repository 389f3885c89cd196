package book

import "errors"

var ErrArenaExhausted = errors.New("order arena exhausted")

const arenaChunkSize = 4096

// Arena is a pool of Order records. Records are carved out of fixed-size
// chunks so the hot path never touches the general heap per order; freed
// records go on a free list and are reused before a new chunk slot is cut.
// A record's address is stable from Allocate until Deallocate.
type Arena struct {
	chunks   [][]Order
	free     []*Order
	used     int // slots consumed in the newest chunk
	live     int
	capacity int
}

// NewArena creates an arena that will hand out at most capacity records.
func NewArena(capacity int) *Arena {
	if capacity <= 0 {
		capacity = 1_000_000
	}
	return &Arena{
		free:     make([]*Order, 0, 64),
		capacity: capacity,
	}
}

func (a *Arena) Allocate() (*Order, error) {
	if n := len(a.free); n > 0 {
		o := a.free[n-1]
		a.free = a.free[:n-1]
		a.live++
		return o, nil
	}
	if a.live >= a.capacity {
		return nil, ErrArenaExhausted
	}
	if len(a.chunks) == 0 || a.used == arenaChunkSize {
		a.chunks = append(a.chunks, make([]Order, arenaChunkSize))
		a.used = 0
	}
	chunk := a.chunks[len(a.chunks)-1]
	o := &chunk[a.used]
	a.used++
	a.live++
	return o, nil
}

// Deallocate zeroes a record and returns it to the pool. The caller must
// have dropped its registry reference first and must not read it through
// any queue reference afterwards.
func (a *Arena) Deallocate(o *Order) {
	*o = Order{}
	a.free = append(a.free, o)
	a.live--
}

// Live reports the number of records currently handed out.
func (a *Arena) Live() int {
	return a.live
}
