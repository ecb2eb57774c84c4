package nav

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date layout used by the source and the output table.
const DateLayout = "2006-01-02"

// NavRecord is one row of fund history.
type NavRecord struct {
	// Date is the valuation day, normalized to midnight UTC.
	Date time.Time

	UnitValue       decimal.Decimal
	CumulativeValue decimal.Decimal

	// DailyGrowthPct is invalid when the source shows no growth figure for the day.
	DailyGrowthPct decimal.NullDecimal

	SubscriptionStatus string
	RedemptionStatus   string

	// Dividend holds the raw distribution text of the optional seventh column.
	Dividend string
}

// PageResult is what one response page yields after parsing.
type PageResult struct {
	Records []NavRecord

	// TotalRecords is the source's reported record count for the fund.
	// It is only meaningful when TotalKnown is set.
	TotalRecords int
	TotalKnown   bool

	// TotalPages is informational and only used for progress reporting.
	TotalPages int

	// Skipped counts table rows that were dropped during normalization,
	// and SkipReasons says why, one entry per dropped row.
	Skipped     int
	SkipReasons []string

	// Strategy names the table extractor that produced the rows.
	Strategy string
}

// FormatDecimal renders d keeping the scale it was parsed with, so "1.0000"
// stays "1.0000" instead of collapsing to "1".
func FormatDecimal(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

// FormatGrowth renders an optional growth figure, empty when absent.
func FormatGrowth(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return FormatDecimal(d.Decimal)
}
