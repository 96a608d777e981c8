package alarm

import (
	"fmt"
	"time"
)

// Status is the last known vendor status of a panel.
type Status struct {
	// Keyword is the raw vendor status keyword, e.g. "arm" or "disarm".
	Keyword string
	// ChangedAt is when Keyword was last written.
	ChangedAt time.Time
}

// State maps the vendor keyword through the state table.
func (s Status) State() (State, bool) {
	return LookupState(s.Keyword)
}

// IsZero reports whether no status has been observed yet.
func (s Status) IsZero() bool {
	return s.Keyword == "" && s.ChangedAt.IsZero()
}

// Actor identifies who requested a panel command.
type Actor struct {
	// Hostname is the machine name the request came from.
	Hostname string
	// Username is the system user who sent the request.
	Username string
}

// Clone returns a copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// String renders the actor as username@hostname.
func (a *Actor) String() string {
	if a == nil {
		return "<unknown>"
	}

	return fmt.Sprintf("%s@%s", a.Username, a.Hostname)
}
