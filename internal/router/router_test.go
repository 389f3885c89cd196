package router

import (
	"encoding/binary"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huginn/internal/book"
	"huginn/internal/common"
	"huginn/internal/itch"
	"huginn/internal/metrics"
)

// --- Helpers ----------------------------------------------------------------

type recordingSink struct {
	trades  []string
	fills   []common.Trade
	quotes  int
	lastBid common.BestLevel
	lastAsk common.BestLevel
}

func (r *recordingSink) OnTrade(symbol string, t common.Trade) {
	r.trades = append(r.trades, symbol)
	r.fills = append(r.fills, t)
}

func (r *recordingSink) OnQuote(_ string, bid, ask common.BestLevel) {
	r.quotes++
	r.lastBid = bid
	r.lastAsk = ask
}

func payloadWithLocate(size int, locate uint16) []byte {
	p := make([]byte, size)
	binary.BigEndian.PutUint16(p[0:2], locate)
	return p
}

func directoryMsg(locate uint16, symbol string, status, class, auth byte) itch.Message {
	p := payloadWithLocate(39, locate)
	for i := range p[10:18] {
		p[10+i] = ' '
	}
	copy(p[10:18], symbol)
	p[19] = status
	p[25] = class
	p[28] = auth
	return itch.Message{Type: itch.TypeStockDirectory, Payload: p}
}

func addMsg(locate uint16, id int64, side byte, shares int32, price float64) itch.Message {
	p := payloadWithLocate(35, locate)
	binary.BigEndian.PutUint64(p[10:18], uint64(id))
	p[18] = side
	binary.BigEndian.PutUint32(p[19:23], uint32(shares))
	binary.BigEndian.PutUint32(p[31:35], uint32(price*10000))
	return itch.Message{Type: itch.TypeAddOrder, Payload: p}
}

func deleteMsg(locate uint16, id int64) itch.Message {
	p := payloadWithLocate(18, locate)
	binary.BigEndian.PutUint64(p[10:18], uint64(id))
	return itch.Message{Type: itch.TypeOrderDelete, Payload: p}
}

func reduceMsg(msgType byte, locate uint16, id int64, shares int32) itch.Message {
	p := payloadWithLocate(22, locate)
	binary.BigEndian.PutUint64(p[10:18], uint64(id))
	binary.BigEndian.PutUint32(p[18:22], uint32(shares))
	return itch.Message{Type: msgType, Payload: p}
}

func replaceMsg(locate uint16, oldID, newID int64, shares int32, price float64) itch.Message {
	p := payloadWithLocate(34, locate)
	binary.BigEndian.PutUint64(p[10:18], uint64(oldID))
	binary.BigEndian.PutUint64(p[18:26], uint64(newID))
	binary.BigEndian.PutUint32(p[26:30], uint32(shares))
	binary.BigEndian.PutUint32(p[30:34], uint32(price*10000))
	return itch.Message{Type: itch.TypeOrderReplace, Payload: p}
}

func newTestRouter(sinks ...Sink) *Router {
	return New(Config{
		Tracked:  []string{"AAPL", "MSFT"},
		MinPrice: 0,
		MaxPrice: 1000,
	}, sinks...)
}

// --- Admission --------------------------------------------------------------

func TestAdmitTrackedSymbol(t *testing.T) {
	rt := newTestRouter()
	rt.Dispatch(directoryMsg(3, "AAPL", 'N', 'C', 'P'))
	assert.Equal(t, 1, rt.Books())
}

func TestAdmitAcceptsSpaceFinancialStatus(t *testing.T) {
	rt := newTestRouter()
	rt.Dispatch(directoryMsg(3, "AAPL", ' ', 'C', 'P'))
	assert.Equal(t, 1, rt.Books())
}

func TestAdmitRejections(t *testing.T) {
	cases := []struct {
		name   string
		msg    itch.Message
	}{
		{"untracked symbol", directoryMsg(3, "ZZZZ", 'N', 'C', 'P')},
		{"test issue", directoryMsg(3, "AAPL", 'N', 'C', 'T')},
		{"non common stock", directoryMsg(3, "AAPL", 'N', 'W', 'P')},
		{"deficient", directoryMsg(3, "AAPL", 'D', 'C', 'P')},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rt := newTestRouter()
			rt.Dispatch(tc.msg)
			assert.Zero(t, rt.Books())
		})
	}
}

func TestAdmitFirstLocateWins(t *testing.T) {
	rt := newTestRouter()
	rt.Dispatch(directoryMsg(3, "AAPL", 'N', 'C', 'P'))
	rt.Dispatch(directoryMsg(3, "MSFT", 'N', 'C', 'P'))
	assert.Equal(t, 1, rt.Books())

	// A second locate for a different instrument is its own book.
	rt.Dispatch(directoryMsg(4, "MSFT", 'N', 'C', 'P'))
	assert.Equal(t, 2, rt.Books())
}

// --- Event routing ----------------------------------------------------------

func TestDispatchMatchesAndAttachesSymbol(t *testing.T) {
	snk := &recordingSink{}
	rt := newTestRouter(snk)
	rt.Dispatch(directoryMsg(3, "AAPL", 'N', 'C', 'P'))

	rt.Dispatch(addMsg(3, 1, 'B', 100, 100.00))
	rt.Dispatch(addMsg(3, 2, 'S', 40, 100.00))

	require.Len(t, snk.fills, 1)
	assert.Equal(t, "AAPL", snk.trades[0])
	assert.Equal(t, common.Trade{TakerID: 2, MakerID: 1, Price: 100.00, Quantity: 40}, snk.fills[0])

	// Quotes pushed after each dispatched event.
	assert.Equal(t, 2, snk.quotes)
	assert.True(t, snk.lastBid.Valid)
	assert.Equal(t, int32(60), snk.lastBid.Quantity)
	assert.False(t, snk.lastAsk.Valid)
}

func TestDispatchUnknownLocateIgnored(t *testing.T) {
	snk := &recordingSink{}
	rt := newTestRouter(snk)

	rt.Dispatch(addMsg(9, 1, 'B', 100, 100.00))
	assert.Empty(t, snk.fills)
	assert.Zero(t, snk.quotes)
}

func TestDispatchDelete(t *testing.T) {
	snk := &recordingSink{}
	rt := newTestRouter(snk)
	rt.Dispatch(directoryMsg(3, "AAPL", 'N', 'C', 'P'))

	rt.Dispatch(addMsg(3, 1, 'B', 100, 100.00))
	rt.Dispatch(deleteMsg(3, 1))

	assert.False(t, snk.lastBid.Valid)
}

func TestDispatchCancelAndExecuteReduce(t *testing.T) {
	snk := &recordingSink{}
	rt := newTestRouter(snk)
	rt.Dispatch(directoryMsg(3, "AAPL", 'N', 'C', 'P'))

	rt.Dispatch(addMsg(3, 1, 'B', 100, 100.00))
	rt.Dispatch(reduceMsg(itch.TypeOrderCancel, 3, 1, 30))
	assert.Equal(t, int32(70), snk.lastBid.Quantity)

	rt.Dispatch(reduceMsg(itch.TypeOrderExecuted, 3, 1, 20))
	assert.Equal(t, int32(50), snk.lastBid.Quantity)

	// Reducing away the remainder empties the level.
	rt.Dispatch(reduceMsg(itch.TypeOrderExecuted, 3, 1, 50))
	assert.False(t, snk.lastBid.Valid)
}

func TestDispatchReplace(t *testing.T) {
	snk := &recordingSink{}
	rt := newTestRouter(snk)
	rt.Dispatch(directoryMsg(3, "AAPL", 'N', 'C', 'P'))

	rt.Dispatch(addMsg(3, 1, 'S', 100, 101.00))
	rt.Dispatch(replaceMsg(3, 1, 2, 80, 102.00))

	require.True(t, snk.lastAsk.Valid)
	assert.InDelta(t, 102.00, snk.lastAsk.Price, 1e-9)
	assert.Equal(t, int32(80), snk.lastAsk.Quantity)
}

func TestDispatchMalformedPayloadSkipped(t *testing.T) {
	snk := &recordingSink{}
	rt := newTestRouter(snk)
	rt.Dispatch(directoryMsg(3, "AAPL", 'N', 'C', 'P'))

	before := testutil.ToFloat64(metrics.Get().MalformedTotal)
	rt.Dispatch(itch.Message{Type: itch.TypeAddOrder, Payload: payloadWithLocate(12, 3)})
	after := testutil.ToFloat64(metrics.Get().MalformedTotal)

	assert.Equal(t, 1.0, after-before)
	assert.Zero(t, snk.quotes)
}

func TestDispatchCountsPriceClamps(t *testing.T) {
	snk := &recordingSink{}
	rt := New(Config{
		Tracked:  []string{"AAPL"},
		MinPrice: 90,
		MaxPrice: 110,
	}, snk)
	rt.Dispatch(directoryMsg(3, "AAPL", 'N', 'C', 'P'))

	before := testutil.ToFloat64(metrics.Get().PriceClamps)
	rt.Dispatch(addMsg(3, 1, 'B', 100, 50.00))
	after := testutil.ToFloat64(metrics.Get().PriceClamps)

	assert.Equal(t, 1.0, after-before)
	require.True(t, snk.lastBid.Valid)
	assert.InDelta(t, 90.00, snk.lastBid.Price, 1e-9)
}

func TestDuplicateSubmitLeavesBookUntouched(t *testing.T) {
	book.ResetTradeCounter()
	snk := &recordingSink{}
	rt := newTestRouter(snk)
	rt.Dispatch(directoryMsg(3, "AAPL", 'N', 'C', 'P'))

	rt.Dispatch(addMsg(3, 1, 'B', 100, 100.00))
	rt.Dispatch(addMsg(3, 1, 'S', 100, 100.00))

	assert.Zero(t, book.TotalTrades())
	assert.Equal(t, int32(100), snk.lastBid.Quantity)
}
