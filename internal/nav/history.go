package nav

import (
	"fmt"
	"sort"
	"time"
)

// FundHistory is the merged, deduplicated history of one fund, newest first.
// It is not modified after NewFundHistory returns.
type FundHistory struct {
	FundCode string
	Records  []NavRecord
	MinDate  time.Time
	MaxDate  time.Time
}

// NewFundHistory merges records into a FundHistory. When two records share a
// date the one appearing later in records wins.
func NewFundHistory(fundCode string, records []NavRecord) *FundHistory {
	byDate := make(map[time.Time]int, len(records))
	merged := make([]NavRecord, 0, len(records))
	for _, r := range records {
		if i, seen := byDate[r.Date]; seen {
			merged[i] = r
			continue
		}
		byDate[r.Date] = len(merged)
		merged = append(merged, r)
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Date.After(merged[j].Date)
	})

	h := &FundHistory{FundCode: fundCode, Records: merged}
	if len(merged) > 0 {
		h.MaxDate = merged[0].Date
		h.MinDate = merged[len(merged)-1].Date
	}
	return h
}

// Len returns the number of distinct dates in the history.
func (h *FundHistory) Len() int {
	return len(h.Records)
}

// Empty reports whether the history holds no rows.
func (h *FundHistory) Empty() bool {
	return len(h.Records) == 0
}

// Filename derives the output file name from the observed date span:
// fund_{code}_netvalue_{max:YYYYMMDD}_to_{min:YYYYMMDD}.{ext}
// An empty history is named fund_{code}_netvalue_empty.{ext}.
func (h *FundHistory) Filename(ext string) string {
	if h.Empty() {
		return fmt.Sprintf("fund_%s_netvalue_empty.%s", h.FundCode, ext)
	}
	return fmt.Sprintf("fund_%s_netvalue_%s_to_%s.%s",
		h.FundCode,
		h.MaxDate.Format("20060102"),
		h.MinDate.Format("20060102"),
		ext)
}

// FilenamePrefix is the part of Filename shared by every artifact of a fund.
func FilenamePrefix(fundCode string) string {
	return fmt.Sprintf("fund_%s_netvalue_", fundCode)
}
