package fetcher

import "context"

// PageFetcher is the core interface for retrieving fund history.
// Each call issues exactly one logical request for one page; callers drive
// pagination and decide what a failure means for the run.
type PageFetcher interface {
	// FetchPage retrieves page (1-based) of fundCode's history with pageSize
	// rows per page. Failures are returned as *FetchError.
	FetchPage(ctx context.Context, fundCode string, page, pageSize int) (*RawResponse, error)
}
