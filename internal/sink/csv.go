// Package sink holds the downstream trade consumers: a CSV trade log and
// a terminal dashboard.
package sink

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"huginn/internal/common"
)

// CSVWriter appends one line per fill in the form
// seq,symbol,taker,maker,price,quantity. seq is process-monotone across
// all instruments.
type CSVWriter struct {
	w     *bufio.Writer
	close io.Closer
	seq   uint64
}

// NewCSVWriter creates the trade log at path, truncating any existing
// file, and writes the header line.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trade log: %w", err)
	}
	cw := newCSVWriter(f)
	cw.close = f
	return cw, nil
}

func newCSVWriter(w io.Writer) *CSVWriter {
	bw := bufio.NewWriterSize(w, 64*1024)
	fmt.Fprintln(bw, "seq,symbol,taker,maker,price,quantity")
	return &CSVWriter{w: bw}
}

func (c *CSVWriter) OnTrade(symbol string, t common.Trade) {
	c.seq++
	fmt.Fprintf(c.w, "%d,%s,%d,%d,%g,%d\n",
		c.seq, symbol, t.TakerID, t.MakerID, t.Price, t.Quantity)
}

func (c *CSVWriter) OnQuote(string, common.BestLevel, common.BestLevel) {}

// Lines reports the number of trades written so far.
func (c *CSVWriter) Lines() uint64 {
	return c.seq
}

// Close flushes buffered lines and closes the underlying file.
func (c *CSVWriter) Close() error {
	if err := c.w.Flush(); err != nil {
		if c.close != nil {
			c.close.Close()
		}
		return err
	}
	if c.close != nil {
		return c.close.Close()
	}
	return nil
}
