// Package replay drives a recorded ITCH 5.0 dump through the router and
// its sinks.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"huginn/internal/book"
	"huginn/internal/itch"
	"huginn/internal/metrics"
	"huginn/internal/router"
	"huginn/internal/sink"
)

const progressEvery = 5_000_000

// Config is the full replay configuration, populated from the CLI.
type Config struct {
	File          string
	Symbols       []string
	MinPrice      float64
	MaxPrice      float64
	ArenaCapacity int

	CSVPath     string
	Dashboard   bool
	RefreshRate time.Duration
	MetricsAddr string
}

// Run replays the configured dump to completion or until ctx is
// cancelled. The feed itself is consumed on the calling goroutine; only
// the dashboard ticker and the metrics listener run beside it.
func Run(ctx context.Context, cfg Config) error {
	session := uuid.New()
	log.Info().
		Str("session", session.String()).
		Str("file", cfg.File).
		Int("symbols", len(cfg.Symbols)).
		Msg("replay starting")

	f, err := os.Open(cfg.File)
	if err != nil {
		return fmt.Errorf("open itch dump: %w", err)
	}
	defer f.Close()

	var sinks []router.Sink

	var trades *sink.CSVWriter
	if cfg.CSVPath != "" {
		trades, err = sink.NewCSVWriter(cfg.CSVPath)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := trades.Close(); cerr != nil {
				log.Error().Err(cerr).Msg("closing trade log")
			}
		}()
		sinks = append(sinks, trades)
	}

	var dash *sink.Dashboard
	if cfg.Dashboard {
		dash = sink.NewDashboard(os.Stdout, cfg.Symbols)
		sinks = append(sinks, dash)
	}

	rt := router.New(router.Config{
		Tracked:       cfg.Symbols,
		MinPrice:      cfg.MinPrice,
		MaxPrice:      cfg.MaxPrice,
		ArenaCapacity: cfg.ArenaCapacity,
	}, sinks...)

	t, ctx := tomb.WithContext(ctx)

	if dash != nil {
		t.Go(func() error {
			ticker := time.NewTicker(cfg.RefreshRate)
			defer ticker.Stop()
			for {
				select {
				case <-t.Dying():
					return nil
				case <-ticker.C:
					dash.Render()
				}
			}
		})
	}

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: metrics.Get().Handler(),
		}
		t.Go(func() error {
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		t.Go(func() error {
			<-t.Dying()
			return srv.Shutdown(context.Background())
		})
	}

	start := time.Now()
	messages, runErr := feed(ctx, itch.NewReader(f), rt)
	elapsed := time.Since(start)
	if errors.Is(runErr, context.Canceled) {
		log.Info().Msg("replay interrupted")
		runErr = nil
	}

	t.Kill(nil)
	// Wait returns only once a goroutine started with t.Go has finished,
	// so it is skipped when no background task was started.
	if dash != nil || cfg.MetricsAddr != "" {
		if werr := t.Wait(); werr != nil {
			log.Error().Err(werr).Msg("background task failed")
		}
	}

	if dash != nil {
		dash.Render()
	}

	evt := log.Info().
		Str("session", session.String()).
		Uint64("messages", messages).
		Uint64("trades", book.TotalTrades()).
		Int("books", rt.Books()).
		Dur("elapsed", elapsed)
	if elapsed > 0 {
		evt = evt.Float64("msgsPerSec", float64(messages)/elapsed.Seconds())
	}
	evt.Msg("replay finished")

	return runErr
}

// feed pumps messages from the reader into the router until the stream
// ends or ctx is cancelled. Framing errors on individual messages are
// counted and skipped; a truncated tail ends the replay.
func feed(ctx context.Context, r *itch.Reader, rt *router.Router) (uint64, error) {
	var messages uint64
	for {
		if messages&0xffff == 0 {
			select {
			case <-ctx.Done():
				return messages, ctx.Err()
			default:
			}
		}

		msg, err := r.Next()
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return messages, nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			log.Warn().Uint64("messages", messages).Msg("dump truncated mid-frame")
			return messages, nil
		case errors.Is(err, itch.ErrEmptyMessage):
			metrics.Get().MalformedTotal.Inc()
			continue
		default:
			return messages, fmt.Errorf("read itch stream: %w", err)
		}

		messages++
		rt.Dispatch(msg)

		if messages%progressEvery == 0 {
			log.Info().
				Uint64("messages", messages).
				Uint64("trades", book.TotalTrades()).
				Msg("replay progress")
		}
	}
}
