package parser

import (
	"errors"
	"fmt"
)

var (
	// ErrUnrecognizedBody means no response shape matched the body.
	ErrUnrecognizedBody = errors.New("response body matches no known shape")
	// ErrNoRows means the body was recognized but neither table extractor found data rows.
	ErrNoRows = errors.New("no table rows found in response content")
)

const snippetLength = 200

// ParseError is returned by Parse when a response cannot be turned into a page of records.
type ParseError struct {
	Reason  error
	Snippet string
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("parse error: %v", e.Reason)
	}
	return fmt.Sprintf("parse error: %v (body starts with %q)", e.Reason, e.Snippet)
}

// Unwrap allows errors.Is against ErrUnrecognizedBody and ErrNoRows
func (e *ParseError) Unwrap() error {
	return e.Reason
}

func newParseError(reason error, body string) *ParseError {
	r := []rune(body)
	if len(r) > snippetLength {
		r = r[:snippetLength]
	}
	return &ParseError{Reason: reason, Snippet: string(r)}
}
