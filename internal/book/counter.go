package book

import "sync/atomic"

// The fill counter is process-wide, shared by every book in the process.
// It is atomic only so that tests may drive independent books from
// separate goroutines; the replay path itself is single-threaded.
var tradeCount atomic.Uint64

// TotalTrades returns the number of fills since the process started or
// since the counter was last reset.
func TotalTrades() uint64 {
	return tradeCount.Load()
}

// ResetTradeCounter zeroes the process-wide fill counter.
func ResetTradeCounter() {
	tradeCount.Store(0)
}
