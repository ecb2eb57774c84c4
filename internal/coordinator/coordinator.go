package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fundnav/internal/fetcher"
	"fundnav/internal/nav"
	"fundnav/internal/output"
	"fundnav/internal/parser"
	"fundnav/internal/ratelimit"
)

// DefaultMaxPages bounds page requests regardless of the totals the source reports
const DefaultMaxPages = 500

// State is a stage of a download run
type State int

const (
	StateIdle State = iota
	StateFetching
	StateParsing
	StateAggregating
	StateWriting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateParsing:
		return "parsing"
	case StateAggregating:
		return "aggregating"
	case StateWriting:
		return "writing"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithMaxPages lowers the page limit. Values outside 1..DefaultMaxPages are ignored.
func WithMaxPages(n int) Option {
	return func(c *Coordinator) {
		if n > 0 && n <= DefaultMaxPages {
			c.maxPages = n
		}
	}
}

// WithLimiter paces page requests
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Coordinator) { c.limiter = l }
}

// WithWriters replaces the default CSV-only output
func WithWriters(writers ...output.Writer) Option {
	return func(c *Coordinator) { c.writers = writers }
}

// WithLogger sets the logger used for progress and warnings
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// Coordinator drives a PageFetcher across every page of a fund's history,
// merges the pages and writes the result. Pages are requested one at a time.
type Coordinator struct {
	fetcher  fetcher.PageFetcher
	limiter  *ratelimit.Limiter
	writers  []output.Writer
	maxPages int
	logger   *slog.Logger
}

// New creates a new Coordinator around the given fetcher
func New(f fetcher.PageFetcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		fetcher:  f,
		writers:  []output.Writer{output.CSVWriter{}},
		maxPages: DefaultMaxPages,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result describes a finished run
type Result struct {
	History *nav.FundHistory

	// Paths lists the files written, primary CSV first
	Paths []string

	// Pages is the number of pages fetched and parsed successfully
	Pages int

	// Skipped counts rows dropped during normalization
	Skipped int

	// Truncated is set when the page limit stopped the run early
	Truncated bool

	// Interrupted holds the failure that ended pagination after page one.
	// It stays nil when the run ended because the source ran out of rows.
	Interrupted error
}

// Download fetches every page of fundCode's history and writes it to destDir
func (c *Coordinator) Download(ctx context.Context, fundCode string, pageSize int, destDir string) (*Result, error) {
	res, err := c.Collect(ctx, fundCode, pageSize)
	if err != nil {
		return nil, err
	}

	paths, err := c.Write(destDir, res.History)
	if err != nil {
		return nil, err
	}
	res.Paths = paths

	c.transition(StateDone, 0)
	return res, nil
}

// Collect fetches and merges pages until one of these happens, whichever
// comes first: a page yields no rows, the distinct dates collected reach
// the reported total, the page limit is hit, or a page fails. A failure on
// the first page, or any failure once ctx is done, is returned as an error;
// other later failures end the run with the rows gathered so far.
func (c *Coordinator) Collect(ctx context.Context, fundCode string, pageSize int) (*Result, error) {
	res := &Result{}
	var records []nav.NavRecord
	seen := make(map[time.Time]struct{})

	c.logger.Info("downloading fund history", "fund", fundCode, "page_size", pageSize)

	for page := 1; ; page++ {
		result, err := c.fetchPage(ctx, fundCode, page, pageSize)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("download fund %s: %w", fundCode, err)
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("download fund %s cancelled on page %d: %w", fundCode, page, errors.Join(ctxErr, err))
			}
			if errors.Is(err, parser.ErrNoRows) {
				c.logger.Info("no further rows", "fund", fundCode, "page", page)
				break
			}
			res.Interrupted = err
			c.logger.Warn("stopping early, keeping rows collected so far",
				"fund", fundCode, "page", page, "rows", len(seen), "error", err)
			break
		}

		res.Pages = page
		res.Skipped += result.Skipped
		for _, reason := range result.SkipReasons {
			c.logger.Debug("skipped row", "fund", fundCode, "page", page, "reason", reason)
		}
		for _, r := range result.Records {
			records = append(records, r)
			seen[r.Date] = struct{}{}
		}

		c.logger.Debug("fetched page",
			"fund", fundCode,
			"page", page,
			"total_pages", result.TotalPages,
			"strategy", result.Strategy,
			"rows", len(result.Records),
			"collected", len(seen))

		if len(result.Records) == 0 {
			break
		}
		if result.TotalKnown && len(seen) >= result.TotalRecords {
			break
		}
		if page >= c.maxPages {
			res.Truncated = true
			c.logger.Warn("page limit reached before all rows were retrieved",
				"fund", fundCode, "max_pages", c.maxPages, "rows", len(seen))
			break
		}
	}

	c.transition(StateAggregating, res.Pages)
	res.History = nav.NewFundHistory(fundCode, records)

	if res.Skipped > 0 {
		c.logger.Warn("dropped malformed rows", "fund", fundCode, "count", res.Skipped)
	}

	return res, nil
}

func (c *Coordinator) fetchPage(ctx context.Context, fundCode string, page, pageSize int) (*nav.PageResult, error) {
	if page > 1 && !c.limiter.Allow() {
		c.logger.Debug("waiting for rate limiter", "page", page)
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for page %d: %w", page, err)
		}
	}

	c.transition(StateFetching, page)
	raw, err := c.fetcher.FetchPage(ctx, fundCode, page, pageSize)
	if err != nil {
		return nil, err
	}

	c.transition(StateParsing, page)
	result, err := parser.Parse(raw.Body)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}
	return result, nil
}

// Write writes h to destDir with every configured writer and returns the
// paths written. Failures of optional writers are logged and skipped.
func (c *Coordinator) Write(destDir string, h *nav.FundHistory) ([]string, error) {
	c.transition(StateWriting, 0)

	var paths []string
	for _, w := range c.writers {
		path, err := output.Write(destDir, w, h)
		if err != nil {
			if w.Optional() {
				c.logger.Warn("skipping optional output", "format", w.Ext(), "error", err)
				continue
			}
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (c *Coordinator) transition(s State, page int) {
	if page > 0 {
		c.logger.Debug("state", "state", s.String(), "page", page)
		return
	}
	c.logger.Debug("state", "state", s.String())
}
