package common

import "fmt"

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "Buy"
	case Sell:
		return "Sell"
	}
	return fmt.Sprintf("Side(%d)", int(s))
}

// Opposite returns the other side of the market.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Trade is the immutable fill record handed to trade sinks. It carries
// plain values rather than references into the book, so a sink cannot
// perturb matching state by holding on to it.
type Trade struct {
	TakerID  int64
	MakerID  int64
	Price    float64
	Quantity int32
}

func (t Trade) String() string {
	return fmt.Sprintf("taker=%d maker=%d px=%.2f qty=%d",
		t.TakerID, t.MakerID, t.Price, t.Quantity)
}

// BestLevel is a snapshot of one side's top of book. Valid is false when
// that side of the book is empty.
type BestLevel struct {
	Price    float64
	Quantity int32
	Valid    bool
}
