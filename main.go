package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"fundnav/internal/config"
	"fundnav/internal/coordinator"
	"fundnav/internal/eastmoney"
	"fundnav/internal/nav"
	"fundnav/internal/output"
	"fundnav/internal/ratelimit"
)

// previewRows is how many of the newest rows are printed after a run
const previewRows = 10

func main() {
	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatalf("fundnav: %v", err)
	}
}

// run downloads (or reuses) one fund's history as directed by args and
// prints a report to stdout. Logs go to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := config.NewFlagSet("fundnav")
	flags.SetOutput(stderr)
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if !cfg.Force {
		if path, ok := output.FindCached(cfg.OutputDir, cfg.FundCode); ok {
			h, withDistributions, err := output.LoadCached(path, cfg.FundCode)
			if err == nil {
				logger.Info("using existing file, pass --force to download again", "path", path)
				report(stdout, h, []string{path}, withDistributions)
				return nil
			}
			logger.Warn("existing file unreadable, downloading again", "path", path, "error", err)
		}
	}

	writers := []output.Writer{output.CSVWriter{}}
	if cfg.WriteXLSX {
		writers = append(writers, output.XLSXWriter{})
	}

	coord := coordinator.New(
		eastmoney.NewHistoryFetcher(cfg.FetcherOptions()),
		coordinator.WithMaxPages(cfg.MaxPages),
		coordinator.WithLimiter(ratelimit.New(cfg.RequestsPerSecond)),
		coordinator.WithWriters(writers...),
		coordinator.WithLogger(logger),
	)

	res, err := coord.Download(ctx, cfg.FundCode, cfg.PageSize, cfg.OutputDir)
	if err != nil {
		return err
	}

	logger.Info("download finished",
		"fund", cfg.FundCode,
		"pages", res.Pages,
		"rows", res.History.Len(),
		"skipped", res.Skipped,
		"truncated", res.Truncated)

	report(stdout, res.History, res.Paths, true)
	return nil
}

// report prints where h was saved, a short summary and the newest rows.
// withDistributions is false when h was loaded without its distribution text.
func report(w io.Writer, h *nav.FundHistory, paths []string, withDistributions bool) {
	fmt.Fprintln(w, "================================================")
	if h.Empty() {
		fmt.Fprintf(w, "Fund %s: no net value rows\n", h.FundCode)
	} else {
		s := nav.Summarize(h)
		fmt.Fprintf(w, "Fund %s: %d rows from %s to %s\n",
			h.FundCode, s.Rows, h.MinDate.Format(nav.DateLayout), h.MaxDate.Format(nav.DateLayout))
		fmt.Fprintf(w, "Unit NAV range: %s - %s\n",
			nav.FormatDecimal(s.MinUnitValue), nav.FormatDecimal(s.MaxUnitValue))
		if withDistributions {
			fmt.Fprintf(w, "Distributions: %d\n", s.Distributions)
		} else {
			fmt.Fprintln(w, "Distributions: unknown (no spreadsheet next to the saved CSV)")
		}
	}
	for _, p := range paths {
		fmt.Fprintf(w, "Saved: %s\n", p)
	}

	if h.Empty() {
		fmt.Fprintln(w, "================================================")
		return
	}

	n := min(previewRows, h.Len())
	fmt.Fprintf(w, "\nLatest %d rows:\n", n)
	fmt.Fprintf(w, "%-12s %10s %10s %10s  %s / %s\n",
		output.Header[0], output.Header[1], output.Header[2], output.Header[3], output.Header[4], output.Header[5])
	for _, r := range h.Records[:n] {
		fmt.Fprintf(w, "%-12s %10s %10s %10s  %s / %s\n",
			r.Date.Format(nav.DateLayout),
			nav.FormatDecimal(r.UnitValue),
			nav.FormatDecimal(r.CumulativeValue),
			nav.FormatGrowth(r.DailyGrowthPct),
			r.SubscriptionStatus,
			r.RedemptionStatus)
	}
	fmt.Fprintln(w, "================================================")
}
