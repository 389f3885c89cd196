package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"huginn/internal/replay"
)

// Default tracked set: the large-cap names the reference replay follows.
var defaultSymbols = []string{
	"AAPL", "MSFT", "AMZN", "GOOGL", "META", "NVDA", "TSLA", "ORCL", "INTC", "AMD",
	"JPM", "BAC", "GS", "MS", "WMT", "COST", "TGT", "NFLX", "DIS", "NKE",
}

func main() {
	cfg := replay.Config{}
	var symbols string
	var quiet bool

	root := &cobra.Command{
		Use:   "huginn <itch-file>",
		Short: "Replay a NASDAQ ITCH 5.0 dump through per-instrument matching engines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if quiet {
				zerolog.SetGlobalLevel(zerolog.WarnLevel)
			}
			if cfg.Dashboard {
				// The dashboard owns stdout; keep the log on stderr.
				log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
			}
			cfg.File = args[0]
			cfg.Symbols = splitSymbols(symbols)

			ctx, stop := signal.NotifyContext(
				cmd.Context(),
				syscall.SIGTERM,
				syscall.SIGINT,
			)
			defer stop()

			return replay.Run(ctx, cfg)
		},
	}

	flags := root.Flags()
	flags.StringVar(&symbols, "symbols", strings.Join(defaultSymbols, ","),
		"comma-separated symbols to track")
	flags.Float64Var(&cfg.MinPrice, "min-price", 0, "bottom of each book's price ladder")
	flags.Float64Var(&cfg.MaxPrice, "max-price", 10000, "top of each book's price ladder")
	flags.IntVar(&cfg.ArenaCapacity, "arena-capacity", 1_000_000,
		"maximum simultaneously live orders per book")
	flags.StringVar(&cfg.CSVPath, "csv", "trades.csv", "trade log path, empty disables")
	flags.BoolVar(&cfg.Dashboard, "dashboard", false, "render the terminal dashboard")
	flags.DurationVar(&cfg.RefreshRate, "refresh", 250*time.Millisecond,
		"dashboard refresh interval")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", "",
		"listen address for prometheus metrics, empty disables")
	flags.BoolVar(&quiet, "quiet", false, "only log warnings and errors")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func splitSymbols(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
