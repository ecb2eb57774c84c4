package fetcher

// RawResponse is the unparsed outcome of one page request.
type RawResponse struct {
	// Page is the 1-based page index that was requested
	Page int

	// StatusCode is the HTTP status returned by the source
	StatusCode int

	// Body is the response text, handed to the parser as-is
	Body string
}
