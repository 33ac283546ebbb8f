package engine

// State is the lifecycle state of an Engine.
type State int

const (
	// StateIdle means no crawl is running. Start is accepted.
	StateIdle State = iota

	// StateCrawling means the crawler is running.
	StateCrawling

	// StateCompleting means the crawler finished and the report is being built.
	StateCompleting
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCrawling:
		return "crawling"
	case StateCompleting:
		return "completing"
	default:
		return "unknown"
	}
}
