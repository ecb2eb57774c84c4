package parser

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fundnav/internal/nav"
)

// Column positions in the source table.
const (
	colDate = iota
	colUnitValue
	colCumulativeValue
	colGrowth
	colSubscription
	colRedemption
	colDividend
)

// RowParseOutcome is the result of normalizing one table row. When OK is
// false the row is dropped and Reason says why.
type RowParseOutcome struct {
	Record nav.NavRecord
	OK     bool
	Reason string
}

func skip(reason string) RowParseOutcome {
	return RowParseOutcome{Reason: reason}
}

// ParseRow normalizes the raw cells of one data row.
func ParseRow(cells []string) RowParseOutcome {
	if len(cells) < minCells {
		return skip("too few cells")
	}

	date, err := time.Parse(nav.DateLayout, strings.TrimSuffix(compact(cells[colDate]), "*"))
	if err != nil {
		return skip("invalid date " + cells[colDate])
	}

	unit, err := decimal.NewFromString(compact(cells[colUnitValue]))
	if err != nil {
		return skip("invalid unit value " + cells[colUnitValue])
	}
	cumulative, err := decimal.NewFromString(compact(cells[colCumulativeValue]))
	if err != nil {
		return skip("invalid cumulative value " + cells[colCumulativeValue])
	}

	return RowParseOutcome{
		OK: true,
		Record: nav.NavRecord{
			Date:               date,
			UnitValue:          unit,
			CumulativeValue:    cumulative,
			DailyGrowthPct:     parseGrowth(cells[colGrowth]),
			SubscriptionStatus: cell(cells, colSubscription),
			RedemptionStatus:   cell(cells, colRedemption),
			Dividend:           cell(cells, colDividend),
		},
	}
}

// parseGrowth strips the percent sign; blanks, dashes and other
// non-numeric text mean the figure is absent.
func parseGrowth(s string) decimal.NullDecimal {
	s = strings.TrimSuffix(compact(s), "%")
	if s == "" || strings.Trim(s, "-") == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func cell(cells []string, i int) string {
	if i < len(cells) {
		return strings.TrimSpace(cells[i])
	}
	return ""
}

// compact removes all whitespace, including non-breaking spaces.
func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
