// Package parser turns raw fund-history responses into normalized records.
//
// A body is first matched against the known response shapes (a JSON envelope
// or a `var apidata={...}` script assignment) to recover the embedded HTML
// table and the reported totals. Rows are then read from the table with a
// DOM walk, falling back to regular expressions when the DOM walk finds
// nothing, and each row is normalized into a nav.NavRecord.
package parser

import "fundnav/internal/nav"

// Parse decodes one response page.
//
// A page with no data rows is only accepted when the source reports zero
// records; otherwise it fails with ErrNoRows. Rows that fail normalization
// are left out; PageResult.SkipReasons records why.
func Parse(body string) (*nav.PageResult, error) {
	p, ok := decode(body)
	if !ok {
		return nil, newParseError(ErrUnrecognizedBody, body)
	}

	result := &nav.PageResult{
		TotalRecords: p.records,
		TotalKnown:   p.hasRecords,
		TotalPages:   p.pages,
	}

	rows, strategy := extractRows(p.content)
	if len(rows) == 0 {
		if p.hasRecords && p.records == 0 {
			return result, nil
		}
		return nil, newParseError(ErrNoRows, body)
	}

	result.Strategy = strategy
	result.Records = make([]nav.NavRecord, 0, len(rows))
	for _, cells := range rows {
		outcome := ParseRow(cells)
		if !outcome.OK {
			result.Skipped++
			result.SkipReasons = append(result.SkipReasons, outcome.Reason)
			continue
		}
		result.Records = append(result.Records, outcome.Record)
	}

	return result, nil
}
