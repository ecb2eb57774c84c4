// Package output writes a FundHistory to disk and reads previous runs back.
package output

import (
	"fmt"
	"os"
	"path/filepath"

	"fundnav/internal/nav"
)

// Header is the column row shared by every output format.
var Header = []string{"净值日期", "单位净值", "累计净值", "日增长率(%)", "申购状态", "赎回状态"}

// Writer renders a FundHistory into one file format.
type Writer interface {
	// Ext is the file extension without the leading dot
	Ext() string
	// Optional writers may fail without failing the run
	Optional() bool
	Write(path string, h *nav.FundHistory) error
}

// WriteError reports a failed output file.
type WriteError struct {
	Path     string
	Format   string
	Optional bool
	Cause    error
}

// Error implements the error interface
func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s output %s: %v", e.Format, e.Path, e.Cause)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *WriteError) Unwrap() error {
	return e.Cause
}

// Write creates dir if needed and writes h with w under its derived name.
// Any existing file with that exact name is replaced.
func Write(dir string, w Writer, h *nav.FundHistory) (string, error) {
	path := filepath.Join(dir, h.Filename(w.Ext()))
	wrap := func(err error) error {
		return &WriteError{Path: path, Format: w.Ext(), Optional: w.Optional(), Cause: err}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", wrap(err)
	}
	if err := w.Write(path, h); err != nil {
		return "", wrap(err)
	}
	return path, nil
}

// rows renders h as table cells in Header order.
func rows(h *nav.FundHistory) [][]string {
	out := make([][]string, 0, h.Len())
	for _, r := range h.Records {
		out = append(out, []string{
			r.Date.Format(nav.DateLayout),
			nav.FormatDecimal(r.UnitValue),
			nav.FormatDecimal(r.CumulativeValue),
			nav.FormatGrowth(r.DailyGrowthPct),
			r.SubscriptionStatus,
			r.RedemptionStatus,
		})
	}
	return out
}
