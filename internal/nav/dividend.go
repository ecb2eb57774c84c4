package nav

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// DividendKind classifies a distribution event.
type DividendKind string

const (
	DividendNone    DividendKind = ""
	DividendCash    DividendKind = "cash"
	DividendShare   DividendKind = "share"
	DividendUnknown DividendKind = "unknown"
)

// Dividend is the interpreted form of the distribution column.
type Dividend struct {
	Kind    DividendKind
	PerUnit decimal.Decimal
	Raw     string
}

var (
	cashDividendPattern  = regexp.MustCompile(`每份派现金([\d.]+)元`)
	shareDividendPattern = regexp.MustCompile(`每份派基金份额([\d.]+)份`)
)

// ParseDividend interprets distribution text such as "每份派现金0.05元".
// Blank text yields a Dividend of kind DividendNone.
func ParseDividend(text string) Dividend {
	text = strings.TrimSpace(text)
	if text == "" {
		return Dividend{}
	}

	for _, p := range []struct {
		kind    DividendKind
		pattern *regexp.Regexp
	}{
		{DividendCash, cashDividendPattern},
		{DividendShare, shareDividendPattern},
	} {
		m := p.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		amount, err := decimal.NewFromString(m[1])
		if err != nil {
			break
		}
		return Dividend{Kind: p.kind, PerUnit: amount, Raw: text}
	}

	return Dividend{Kind: DividendUnknown, Raw: text}
}
