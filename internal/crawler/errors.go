package crawler

import "errors"

// ErrHostNotFound marks client errors caused by a host name that does not
// resolve. It is carried in Event.Err of EventClientError events.
var ErrHostNotFound = errors.New("host not found")

// ErrInvalidSeed is returned by a Factory given a seed URL without a host.
var ErrInvalidSeed = errors.New("seed URL has no host")
