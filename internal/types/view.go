package types

// Filter is the view-facing session list filter.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterPinned   Filter = "pinned"
	FilterArchived Filter = "archived"
)

// Canonical translates the view vocabulary into the gateway's. The gateway's
// "active" set excludes archived sessions, so "all" maps to it.
func (f Filter) Canonical() string {
	switch f {
	case FilterPinned:
		return "pinned"
	case FilterArchived:
		return "archived"
	default:
		return "active"
	}
}

// Valid reports whether f is one of the three known filters.
func (f Filter) Valid() bool {
	switch f {
	case FilterAll, FilterPinned, FilterArchived:
		return true
	}
	return false
}

// Connection is the tri-state status of the bulk session load. It is monotone
// within a single load attempt and resets to connecting only on restart.
type Connection string

const (
	ConnectionConnecting Connection = "connecting"
	ConnectionConnected  Connection = "connected"
	ConnectionError      Connection = "error"
)

// View is the list-view portion of the state graph. FilterLoading is distinct
// from Loading so the presentation layer can run a quieter transition while
// switching filters. PendingFilter holds an automatic switch computed as a
// side effect of a pin/archive mutation; it is consumed exactly once.
type View struct {
	Filter        Filter
	Search        string
	Loading       bool
	FilterLoading bool
	PendingFilter *Filter
	HasMore       bool
}
