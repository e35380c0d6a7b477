package metrics

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// StatusBucket represents the response count for an operation/code pair.
type StatusBucket struct {
	Operation string
	Code      string
	Count     int
}

// StatusCounter tallies response status labels per operation.
type StatusCounter struct {
	mu      sync.Mutex
	buckets map[string]map[string]int
}

// NewStatusCounter creates an empty StatusCounter.
func NewStatusCounter() *StatusCounter {
	return &StatusCounter{buckets: make(map[string]map[string]int)}
}

// Observe counts one response for operation with the given label.
func (s *StatusCounter) Observe(operation, code string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	codes, ok := s.buckets[operation]
	if !ok {
		codes = make(map[string]int)
		s.buckets[operation] = codes
	}
	codes[code]++
}

// Snapshot returns a copy of the operation->code->count map.
func (s *StatusCounter) Snapshot() map[string]map[string]int {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]map[string]int, len(s.buckets))
	for op, codes := range s.buckets {
		cp := make(map[string]int, len(codes))
		for code, n := range codes {
			cp[code] = n
		}
		out[op] = cp
	}
	return out
}

// FlattenStatusBuckets converts a nested operation->status map into a sorted slice of StatusBucket rows.
// Rows are sorted by descending count, then by operation/code for stability.
func FlattenStatusBuckets(buckets map[string]map[string]int) []StatusBucket {
	if len(buckets) == 0 {
		return nil
	}
	rows := make([]StatusBucket, 0)
	for operation, codes := range buckets {
		for code, count := range codes {
			rows = append(rows, StatusBucket{Operation: operation, Code: code, Count: count})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			if rows[i].Operation == rows[j].Operation {
				return rows[i].Code < rows[j].Code
			}
			return rows[i].Operation < rows[j].Operation
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}

// StatusLabel names the outcome of a call: the HTTP code when a response
// arrived, otherwise a normalized label derived from the transport error.
func StatusLabel(code int, err error) string {
	if code > 0 {
		return strconv.Itoa(code)
	}
	if err == nil {
		return "UNKNOWN"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "TIMEOUT"
	}
	return fallbackLabel(err)
}

func fallbackLabel(err error) string {
	typeName := fmt.Sprintf("%T", err)
	typeName = strings.TrimPrefix(typeName, "*")
	if idx := strings.LastIndex(typeName, "/"); idx != -1 {
		typeName = typeName[idx+1:]
	}
	if idx := strings.LastIndex(typeName, "."); idx != -1 {
		typeName = typeName[idx+1:]
	}
	return sanitizeLabel(typeName)
}

func sanitizeLabel(status string) string {
	trimmed := strings.TrimSpace(status)
	if trimmed == "" {
		return "UNKNOWN"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", ".", "_", "-", "_")
	normalized := strings.ToUpper(replacer.Replace(trimmed))
	normalized = strings.Trim(normalized, "_")
	if normalized == "" {
		return "UNKNOWN"
	}
	return normalized
}
