// Package router maps ITCH stock locate codes onto per-instrument order
// books and fans trades out to the configured sinks.
package router

import (
	"github.com/rs/zerolog/log"

	"huginn/internal/book"
	"huginn/internal/common"
	"huginn/internal/itch"
	"huginn/internal/metrics"
)

// Sink receives trades and top-of-book updates with the symbol attached;
// the core books do not know their own symbol.
type Sink interface {
	OnTrade(symbol string, trade common.Trade)
	OnQuote(symbol string, bid, ask common.BestLevel)
}

// Config carries the per-book construction parameters.
type Config struct {
	// Tracked is the static set of symbols the router admits.
	Tracked []string
	// MinPrice and MaxPrice bound every book's ladder.
	MinPrice float64
	MaxPrice float64
	// ArenaCapacity bounds live orders per book. Zero means the book
	// default.
	ArenaCapacity int
}

// Router owns the locate → book mapping for one replay.
type Router struct {
	cfg     Config
	tracked map[string]struct{}
	books   map[uint16]*book.Book
	symbols map[uint16]string
	sinks   []Sink
	mx      *metrics.Collector
}

func New(cfg Config, sinks ...Sink) *Router {
	tracked := make(map[string]struct{}, len(cfg.Tracked))
	for _, s := range cfg.Tracked {
		tracked[s] = struct{}{}
	}
	return &Router{
		cfg:     cfg,
		tracked: tracked,
		books:   make(map[uint16]*book.Book),
		symbols: make(map[uint16]string),
		sinks:   sinks,
		mx:      metrics.Get(),
	}
}

// Books returns the number of instruments currently routed.
func (r *Router) Books() int {
	return len(r.books)
}

// Dispatch applies one framed ITCH message. Messages for untracked
// locates and types the replay does not consume are dropped; decode
// failures are logged and skipped.
func (r *Router) Dispatch(msg itch.Message) {
	if len(msg.Payload) < 2 {
		r.mx.MalformedTotal.Inc()
		return
	}
	if msg.Type == itch.TypeStockDirectory {
		r.mx.MessagesTotal.WithLabelValues("R").Inc()
		r.admit(msg)
		return
	}

	locate := msg.StockLocate()
	bk, ok := r.books[locate]
	if !ok {
		return
	}
	symbol := r.symbols[locate]

	switch msg.Type {
	case itch.TypeAddOrder:
		add, err := itch.DecodeAddOrder(msg.Payload)
		if err != nil {
			r.skip(msg, err)
			return
		}
		if add.Price < r.cfg.MinPrice || add.Price > r.cfg.MaxPrice {
			r.mx.PriceClamps.Inc()
		}
		if err := bk.SubmitLimit(add.OrderID, add.Side, add.Price, add.Shares); err != nil {
			log.Warn().
				Err(err).
				Str("symbol", symbol).
				Int64("orderID", add.OrderID).
				Msg("submit rejected")
			return
		}
	case itch.TypeOrderDelete:
		del, err := itch.DecodeOrderDelete(msg.Payload)
		if err != nil {
			r.skip(msg, err)
			return
		}
		bk.Cancel(del.OrderID)
	case itch.TypeOrderCancel:
		can, err := itch.DecodeOrderCancel(msg.Payload)
		if err != nil {
			r.skip(msg, err)
			return
		}
		bk.Reduce(can.OrderID, can.Shares)
	case itch.TypeOrderExecuted:
		exec, err := itch.DecodeOrderExecuted(msg.Payload)
		if err != nil {
			r.skip(msg, err)
			return
		}
		bk.Reduce(exec.OrderID, exec.Shares)
	case itch.TypeOrderReplace:
		rep, err := itch.DecodeOrderReplace(msg.Payload)
		if err != nil {
			r.skip(msg, err)
			return
		}
		if err := bk.Replace(rep.OldOrderID, rep.NewOrderID, rep.Price, rep.Shares); err != nil {
			log.Warn().
				Err(err).
				Str("symbol", symbol).
				Int64("orderID", rep.NewOrderID).
				Msg("replace rejected")
			return
		}
	default:
		return
	}

	r.mx.MessagesTotal.WithLabelValues(string(msg.Type)).Inc()
	for _, s := range r.sinks {
		s.OnQuote(symbol, bk.BestBid(), bk.BestAsk())
	}
}

// admit allocates a book for a stock-directory entry iff the symbol is
// tracked, the issue is authentic (not a test issue), an ordinary common
// share, and not financially distressed. The first admitted entry for a
// locate wins; a symbol seen again under another locate gets a book of
// its own.
func (r *Router) admit(msg itch.Message) {
	dir, err := itch.DecodeStockDirectory(msg.Payload)
	if err != nil {
		r.skip(msg, err)
		return
	}
	if _, ok := r.tracked[dir.Symbol]; !ok {
		return
	}
	if dir.Authenticity != 'P' || dir.IssueClassification != 'C' {
		return
	}
	if dir.FinancialStatus != 'N' && dir.FinancialStatus != ' ' {
		return
	}
	locate := msg.StockLocate()
	if _, ok := r.books[locate]; ok {
		return
	}

	symbol := dir.Symbol
	bk := book.New(r.cfg.MinPrice, r.cfg.MaxPrice,
		book.WithArenaCapacity(r.cfg.ArenaCapacity))
	bk.SetTradeFunc(func(t common.Trade) {
		r.mx.TradesTotal.Inc()
		for _, s := range r.sinks {
			s.OnTrade(symbol, t)
		}
	})

	r.books[locate] = bk
	r.symbols[locate] = symbol
	r.mx.BooksActive.Set(float64(len(r.books)))
	log.Info().
		Str("symbol", symbol).
		Uint16("locate", locate).
		Msg("tracking instrument")
}

func (r *Router) skip(msg itch.Message, err error) {
	r.mx.MalformedTotal.Inc()
	log.Warn().
		Err(err).
		Str("type", string(msg.Type)).
		Int("payloadLen", len(msg.Payload)).
		Msg("skipping malformed message")
}
