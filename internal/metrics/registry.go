package metrics

import (
	"sort"
	"sync"
	"time"
)

// Recorder accepts one latency sample per completed call.
type Recorder interface {
	Record(operation string, d time.Duration)
}

// Registry stores raw latency samples per operation name.
// Each operation has its own lock so unrelated operations never contend.
type Registry struct {
	series sync.Map // map[string]*series
}

type series struct {
	mu      sync.Mutex
	samples []time.Duration
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Record appends a sample to the operation's series.
func (r *Registry) Record(operation string, d time.Duration) {
	if operation == "" {
		return
	}
	if d < 0 {
		d = 0
	}
	s := r.seriesFor(operation)
	s.mu.Lock()
	s.samples = append(s.samples, d)
	s.mu.Unlock()
}

func (r *Registry) seriesFor(operation string) *series {
	if s, ok := r.series.Load(operation); ok {
		return s.(*series)
	}
	s, _ := r.series.LoadOrStore(operation, &series{samples: make([]time.Duration, 0, 1024)})
	return s.(*series)
}

// Snapshot returns a copy of every series. It may run while Record is called.
func (r *Registry) Snapshot() map[string][]time.Duration {
	out := make(map[string][]time.Duration)
	r.series.Range(func(key, value interface{}) bool {
		s := value.(*series)
		s.mu.Lock()
		out[key.(string)] = append([]time.Duration(nil), s.samples...)
		s.mu.Unlock()
		return true
	})
	return out
}

// Count returns the number of samples recorded for an operation.
func (r *Registry) Count(operation string) int {
	v, ok := r.series.Load(operation)
	if !ok {
		return 0
	}
	s := v.(*series)
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}

// Total returns the number of samples across all operations.
func (r *Registry) Total() int {
	total := 0
	r.series.Range(func(_, value interface{}) bool {
		s := value.(*series)
		s.mu.Lock()
		total += len(s.samples)
		s.mu.Unlock()
		return true
	})
	return total
}

// Operations lists the recorded operation names in sorted order.
func (r *Registry) Operations() []string {
	var names []string
	r.series.Range(func(key, _ interface{}) bool {
		names = append(names, key.(string))
		return true
	})
	sort.Strings(names)
	return names
}

type fanout []Recorder

func (f fanout) Record(operation string, d time.Duration) {
	for _, r := range f {
		r.Record(operation, d)
	}
}

// Fanout forwards every sample to each non-nil recorder in order.
func Fanout(recorders ...Recorder) Recorder {
	out := make(fanout, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}
