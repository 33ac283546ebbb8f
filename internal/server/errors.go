package server

import "errors"

var (
	// ErrNoURLs is returned for an analyze request without URLs.
	ErrNoURLs = errors.New("urls must not be empty")

	// ErrHistoryDisabled is returned when a stored report is requested
	// but the server runs without a History.
	ErrHistoryDisabled = errors.New("report history is disabled")
)
