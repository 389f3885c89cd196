package book

import "huginn/internal/common"

// Order is a live order record. Records are owned by the arena; the id
// registry and the level queues hold borrowed pointers to the same cell,
// and only the façade paths hand cells back to the arena.
type Order struct {
	ID        int64
	Side      common.Side
	Tick      uint32 // index into the price ladder
	Remaining int32  // strictly positive while the record is live
}
