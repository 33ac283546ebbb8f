package checker

import "errors"

var (
	// ErrNoAddresses is returned by HandshakeGrader when the host does not
	// resolve to any address.
	ErrNoAddresses = errors.New("host has no addresses")

	// ErrEmptyHost is returned when a check is asked to grade an empty host.
	ErrEmptyHost = errors.New("empty host")
)
