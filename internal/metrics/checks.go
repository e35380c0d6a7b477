package metrics

import (
	"sort"
	"sync"
)

// CheckCount holds the outcome tally of a named check.
type CheckCount struct {
	Passes int64 `json:"passes"`
	Fails  int64 `json:"fails"`
}

// Rate returns the pass ratio, or 0 when the check never ran.
func (c CheckCount) Rate() float64 {
	total := c.Passes + c.Fails
	if total == 0 {
		return 0
	}
	return float64(c.Passes) / float64(total)
}

// Checks counts pass/fail outcomes of named assertions on responses.
type Checks struct {
	mu        sync.Mutex
	counts    map[string]*CheckCount
	observers []func(name string, ok bool)
}

// NewChecks creates an empty check tally. Observers are called after each
// outcome is counted, outside the lock.
func NewChecks(observers ...func(name string, ok bool)) *Checks {
	return &Checks{counts: make(map[string]*CheckCount), observers: observers}
}

// Check records the outcome and returns ok unchanged, so callers can branch on it.
func (c *Checks) Check(name string, ok bool) bool {
	if c == nil {
		return ok
	}
	c.mu.Lock()
	cc, found := c.counts[name]
	if !found {
		cc = &CheckCount{}
		c.counts[name] = cc
	}
	if ok {
		cc.Passes++
	} else {
		cc.Fails++
	}
	c.mu.Unlock()

	for _, fn := range c.observers {
		fn(name, ok)
	}
	return ok
}

// Snapshot returns a copy of all check counts.
func (c *Checks) Snapshot() map[string]CheckCount {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]CheckCount, len(c.counts))
	for name, cc := range c.counts {
		out[name] = *cc
	}
	return out
}

// Totals sums passes and fails across every check.
func (c *Checks) Totals() (passes, fails int64) {
	for _, cc := range c.Snapshot() {
		passes += cc.Passes
		fails += cc.Fails
	}
	return passes, fails
}

// Names returns the check names in sorted order.
func (c *Checks) Names() []string {
	snap := c.Snapshot()
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
