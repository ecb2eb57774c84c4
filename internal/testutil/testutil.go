package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"fundnav/internal/fetcher"
)

// MockPageFetcher is a mock implementation of the PageFetcher interface for testing
type MockPageFetcher struct {
	FetchFunc func(ctx context.Context, fundCode string, page, pageSize int) (*fetcher.RawResponse, error)

	// Pages records every page index requested, in order
	Pages []int
}

// FetchPage implements the PageFetcher interface
func (m *MockPageFetcher) FetchPage(ctx context.Context, fundCode string, page, pageSize int) (*fetcher.RawResponse, error) {
	m.Pages = append(m.Pages, page)
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, fundCode, page, pageSize)
	}
	return &fetcher.RawResponse{Page: page, StatusCode: 200}, nil
}

// NewPagedFetcher serves bodies[page]; a missing page fails with a server error
func NewPagedFetcher(bodies map[int]string) *MockPageFetcher {
	return &MockPageFetcher{
		FetchFunc: func(ctx context.Context, fundCode string, page, pageSize int) (*fetcher.RawResponse, error) {
			body, ok := bodies[page]
			if !ok {
				return nil, fetcher.NewServerError(500).OnPage(page)
			}
			return &fetcher.RawResponse{Page: page, StatusCode: 200, Body: body}, nil
		},
	}
}

// Row builds the cells of one table row
func Row(date, unit, cumulative, growth, subscription, redemption string) []string {
	return []string{date, unit, cumulative, growth, subscription, redemption, ""}
}

// TableHTML renders rows the way the fund-history endpoint does,
// with a <th> header row followed by <td> data rows
func TableHTML(rows ...[]string) string {
	var b strings.Builder
	b.WriteString("<table class='w782 comm lsjz'><thead><tr>")
	b.WriteString("<th class='first'>净值日期</th><th>单位净值</th><th>累计净值</th><th>日增长率</th>")
	b.WriteString("<th>申购状态</th><th>赎回状态</th><th class='tor last'>分红送配</th>")
	b.WriteString("</tr></thead><tbody>")
	for _, r := range rows {
		b.WriteString("<tr>")
		for i, c := range r {
			if i == 0 {
				fmt.Fprintf(&b, "<td>%s</td>", c)
				continue
			}
			fmt.Fprintf(&b, "<td class='tor bold'>%s</td>", c)
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")
	return b.String()
}

// EnvelopeBody wraps content in the JSON envelope shape
func EnvelopeBody(content string, records, pages int) string {
	data, err := json.Marshal(map[string]interface{}{
		"content": content,
		"records": records,
		"pages":   pages,
		"curpage": 1,
	})
	if err != nil {
		panic(err)
	}
	return string(data)
}

// ScriptBody wraps content in the `var apidata={...};` script shape
func ScriptBody(content string, records, pages int) string {
	escaped := strings.ReplaceAll(content, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return fmt.Sprintf(`var apidata={ content:"%s",records:%d,pages:%d,curpage:1};`, escaped, records, pages)
}
