package coordinator

import (
	"sync"
	"time"

	domain "github.com/oshokin/alarm-panel/internal/domain/alarm"
)

// StatusCell holds the last known panel status.
// Writers replace the whole value; readers always see a complete snapshot.
type StatusCell struct {
	mu     sync.RWMutex
	status domain.Status
}

// Load returns the current status.
func (c *StatusCell) Load() domain.Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.status
}

// Store replaces the keyword and returns the new status and whether it changed.
// ChangedAt only moves when the keyword changes.
func (c *StatusCell) Store(keyword string, now time.Time) (domain.Status, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status.Keyword == keyword && !c.status.ChangedAt.IsZero() {
		return c.status, false
	}

	c.status = domain.Status{Keyword: keyword, ChangedAt: now}

	return c.status, true
}

// restore installs a persisted status.
func (c *StatusCell) restore(status domain.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status = status
}
