package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDividend(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		kind    DividendKind
		perUnit string
	}{
		{"blank", "  ", DividendNone, "0"},
		{"cash", "每份派现金0.0500元", DividendCash, "0.05"},
		{"share", "每份派基金份额0.12份", DividendShare, "0.12"},
		{"unrecognized", "拆分折算1:1.0234", DividendUnknown, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ParseDividend(tt.text)
			assert.Equal(t, tt.kind, d.Kind)
			assert.Equal(t, tt.perUnit, d.PerUnit.String())
		})
	}
}

func TestSummarize(t *testing.T) {
	r1 := record("2013-01-30", "1.0000")
	r2 := record("2013-02-01", "1.0050")
	r2.Dividend = "每份派现金0.01元"
	r3 := record("2013-02-04", "0.9980")

	s := Summarize(NewFundHistory("210014", []NavRecord{r1, r2, r3}))

	assert.Equal(t, 3, s.Rows)
	assert.Equal(t, "0.998", s.MinUnitValue.String())
	assert.Equal(t, "1.005", s.MaxUnitValue.String())
	assert.Equal(t, 1, s.Distributions)
}
