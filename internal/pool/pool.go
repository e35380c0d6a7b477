// Package pool holds pack identifiers that are waiting for a follow-up action.
package pool

import (
	"sort"
	"sync"
)

// Stage names a lifecycle queue.
type Stage string

const (
	// StageTransition holds packs that will be moved to IN_TRANSIT and DELIVERED.
	StageTransition Stage = "pending_transition"
	// StageCancellation holds packs that will be cancelled.
	StageCancellation Stage = "pending_cancellation"
)

// Pool is a set of per-stage identifier queues shared by all workers.
// An identifier taken from a queue belongs to the caller until it is Put again.
type Pool struct {
	queues sync.Map // map[Stage]*queue
}

type queue struct {
	mu  sync.Mutex
	ids []string
}

// New creates an empty Pool.
func New() *Pool {
	return &Pool{}
}

func (p *Pool) queue(stage Stage) *queue {
	if q, ok := p.queues.Load(stage); ok {
		return q.(*queue)
	}
	q, _ := p.queues.LoadOrStore(stage, &queue{})
	return q.(*queue)
}

// Seed bulk-inserts identifiers into a stage. Empty identifiers are skipped.
func (p *Pool) Seed(stage Stage, ids ...string) {
	if len(ids) == 0 {
		return
	}
	q := p.queue(stage)
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, id := range ids {
		if id == "" {
			continue
		}
		q.ids = append(q.ids, id)
	}
}

// Put appends an identifier to a stage queue.
func (p *Pool) Put(stage Stage, id string) {
	if id == "" {
		return
	}
	q := p.queue(stage)
	q.mu.Lock()
	q.ids = append(q.ids, id)
	q.mu.Unlock()
}

// Take removes the most recently added identifier of a stage.
// It reports false when the stage is empty; it never blocks.
func (p *Pool) Take(stage Stage) (string, bool) {
	v, ok := p.queues.Load(stage)
	if !ok {
		return "", false
	}
	q := v.(*queue)
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.ids)
	if n == 0 {
		return "", false
	}
	id := q.ids[n-1]
	q.ids[n-1] = ""
	q.ids = q.ids[:n-1]
	return id, true
}

// Len returns the number of identifiers waiting in a stage.
func (p *Pool) Len(stage Stage) int {
	v, ok := p.queues.Load(stage)
	if !ok {
		return 0
	}
	q := v.(*queue)
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ids)
}

// Stages returns every stage that has been used, sorted by name.
func (p *Pool) Stages() []Stage {
	var stages []Stage
	p.queues.Range(func(key, _ interface{}) bool {
		stages = append(stages, key.(Stage))
		return true
	})
	sort.Slice(stages, func(i, j int) bool { return stages[i] < stages[j] })
	return stages
}

// Sizes returns the current length of every stage queue.
func (p *Pool) Sizes() map[Stage]int {
	sizes := make(map[Stage]int)
	for _, stage := range p.Stages() {
		sizes[stage] = p.Len(stage)
	}
	return sizes
}
