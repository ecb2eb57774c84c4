package nav

import "github.com/shopspring/decimal"

// Summary holds the statistics printed after a download.
type Summary struct {
	Rows          int
	MinUnitValue  decimal.Decimal
	MaxUnitValue  decimal.Decimal
	Distributions int
}

// Summarize computes Summary for h.
func Summarize(h *FundHistory) Summary {
	s := Summary{Rows: h.Len()}
	for i, r := range h.Records {
		if i == 0 || r.UnitValue.LessThan(s.MinUnitValue) {
			s.MinUnitValue = r.UnitValue
		}
		if i == 0 || r.UnitValue.GreaterThan(s.MaxUnitValue) {
			s.MaxUnitValue = r.UnitValue
		}
		if ParseDividend(r.Dividend).Kind != DividendNone {
			s.Distributions++
		}
	}
	return s
}
