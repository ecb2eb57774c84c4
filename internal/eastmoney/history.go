package eastmoney

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"resty.dev/v3"

	"fundnav/internal/fetcher"
)

const (
	// DefaultBaseURL is the fund-history data endpoint
	DefaultBaseURL = "http://fund.eastmoney.com/f10/F10DataApi.aspx"
	// DefaultReferer is the fund's NAV page; %s is replaced with the fund code
	DefaultReferer = "http://fundf10.eastmoney.com/jjjz_%s.html"
	// DefaultUserAgent identifies requests as a desktop browser
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	// DefaultTimeout bounds each request
	DefaultTimeout = 30 * time.Second

	// historyType selects the NAV history table
	historyType = "lsjz"
)

// Options configures a HistoryFetcher
type Options struct {
	BaseURL    string
	Referer    string
	UserAgent  string
	Timeout    time.Duration
	RetryCount int
}

// HistoryFetcher fetches pages of a fund's NAV history
type HistoryFetcher struct {
	referer string
	client  *resty.Client
	now     func() time.Time
}

var _ fetcher.PageFetcher = (*HistoryFetcher)(nil)

// NewHistoryFetcher creates a new history page fetcher.
// Zero-valued options fall back to the package defaults.
func NewHistoryFetcher(opts Options) *HistoryFetcher {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Referer == "" {
		opts.Referer = DefaultReferer
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	client := fetcher.NewHTTPClient(fetcher.ClientOptions{
		BaseURL:    opts.BaseURL,
		UserAgent:  opts.UserAgent,
		Timeout:    opts.Timeout,
		RetryCount: opts.RetryCount,
	})

	return &HistoryFetcher{
		referer: opts.Referer,
		client:  client,
		now:     time.Now,
	}
}

// FetchPage retrieves one page of fundCode's history
func (f *HistoryFetcher) FetchPage(ctx context.Context, fundCode string, page, pageSize int) (*fetcher.RawResponse, error) {
	fundCode = strings.TrimSpace(fundCode)
	switch {
	case fundCode == "":
		return nil, fetcher.NewValidationError("fund code is empty").OnPage(page)
	case page < 1:
		return nil, fetcher.NewValidationError(fmt.Sprintf("page %d is not positive", page)).OnPage(page)
	case pageSize < 1:
		return nil, fetcher.NewValidationError(fmt.Sprintf("page size %d is not positive", pageSize)).OnPage(page)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Referer", f.refererFor(fundCode)).
		SetQueryParams(map[string]string{
			"type":  historyType,
			"code":  fundCode,
			"page":  strconv.Itoa(page),
			"per":   strconv.Itoa(pageSize),
			"sdate": "",
			"edate": "",
			"rt":    strconv.FormatInt(f.now().UnixMilli(), 10),
		}).
		Get("")

	if err != nil {
		return nil, fetcher.ClassifyTransportError(err).OnPage(page)
	}

	if !resp.IsSuccess() {
		return nil, fetcher.ClassifyHTTPError(resp.StatusCode()).OnPage(page)
	}

	return &fetcher.RawResponse{
		Page:       page,
		StatusCode: resp.StatusCode(),
		Body:       resp.String(),
	}, nil
}

func (f *HistoryFetcher) refererFor(fundCode string) string {
	if strings.Contains(f.referer, "%s") {
		return fmt.Sprintf(f.referer, fundCode)
	}
	return f.referer
}
