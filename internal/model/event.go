package model

import "net/http"

// ErrorEvent reports a per-item crawl error. It is emitted to subscribers
// and not retained by the engine.
type ErrorEvent struct {
	// Code is an HTTP status code describing the error class.
	Code int `json:"code" csv:"code"`

	// Message is the status text for Code, or a client error message.
	Message string `json:"message" csv:"message"`

	// URL is the URL the error refers to.
	URL string `json:"url" csv:"url"`
}

// NewErrorEvent creates an ErrorEvent whose message is the standard status
// text for code.
func NewErrorEvent(code int, url string) ErrorEvent {
	return ErrorEvent{Code: code, Message: http.StatusText(code), URL: url}
}

// IgnoreReason explains why a URL was not added to the page store.
type IgnoreReason string

const (
	// IgnoreNoIndex means the page carries a noindex meta directive.
	IgnoreNoIndex IgnoreReason = "noindex"

	// IgnoreDisallowed means the crawler was not allowed to fetch the URL,
	// typically because of robots.txt.
	IgnoreDisallowed IgnoreReason = "disallowed"
)

// IgnoreEvent reports a URL that was skipped.
type IgnoreEvent struct {
	URL    string       `json:"url"`
	Reason IgnoreReason `json:"reason"`
}
