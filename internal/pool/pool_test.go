package pool

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
)

func TestPool_TakeEmptyStage(t *testing.T) {
	p := New()

	id, ok := p.Take(StageCancellation)
	if ok {
		t.Fatalf("expected empty take, got %q", id)
	}
	if id != "" {
		t.Fatalf("expected empty id, got %q", id)
	}
	if p.Len(StageCancellation) != 0 {
		t.Fatalf("expected empty stage")
	}
}

func TestPool_PutTake(t *testing.T) {
	p := New()
	p.Put(StageTransition, "A")
	p.Put(StageTransition, "B")
	p.Put(StageTransition, "")

	if got := p.Len(StageTransition); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}

	first, ok := p.Take(StageTransition)
	if !ok || first != "B" {
		t.Fatalf("first take = %q,%v want B,true", first, ok)
	}
	second, ok := p.Take(StageTransition)
	if !ok || second != "A" {
		t.Fatalf("second take = %q,%v want A,true", second, ok)
	}
	if _, ok := p.Take(StageTransition); ok {
		t.Fatal("expected stage to be drained")
	}
}

func TestPool_StagesAreIndependent(t *testing.T) {
	p := New()
	p.Seed(StageTransition, "T1")
	p.Seed(StageCancellation, "C1", "C2")

	if _, ok := p.Take(StageTransition); !ok {
		t.Fatal("expected transition id")
	}
	if _, ok := p.Take(StageTransition); ok {
		t.Fatal("transition stage should not see cancellation ids")
	}
	if got := p.Len(StageCancellation); got != 2 {
		t.Fatalf("cancellation Len = %d, want 2", got)
	}

	stages := p.Stages()
	if len(stages) != 2 || stages[0] != StageCancellation || stages[1] != StageTransition {
		t.Fatalf("unexpected stages %v", stages)
	}
	sizes := p.Sizes()
	if sizes[StageCancellation] != 2 || sizes[StageTransition] != 0 {
		t.Fatalf("unexpected sizes %v", sizes)
	}
}

func TestPool_ConcurrentTakeNeverDuplicates(t *testing.T) {
	const total = 5000
	p := New()
	ids := make([]string, total)
	for i := range ids {
		ids[i] = fmt.Sprintf("pack-%d", i)
	}
	p.Seed(StageCancellation, ids...)

	var (
		mu   sync.Mutex
		seen = make(map[string]int, total)
		wg   sync.WaitGroup
	)
	workers := 64
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				id, ok := p.Take(StageCancellation)
				if !ok {
					return
				}
				mu.Lock()
				seen[id]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != total {
		t.Fatalf("expected %d distinct ids, got %d", total, len(seen))
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("id %s handed out %d times", id, count)
		}
	}
}

func TestPool_ConcurrentPutAndTake(t *testing.T) {
	p := New()
	const producers = 16
	const perProducer = 200

	var wg sync.WaitGroup
	wg.Add(producers)
	for i := 0; i < producers; i++ {
		go func(n int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				p.Put(StageTransition, fmt.Sprintf("%d-%d", n, j))
			}
		}(i)
	}

	taken := make(chan string, producers*perProducer)
	var consumers sync.WaitGroup
	consumers.Add(producers)
	for i := 0; i < producers; i++ {
		go func() {
			defer consumers.Done()
			for j := 0; j < perProducer; j++ {
				if id, ok := p.Take(StageTransition); ok {
					taken <- id
				}
			}
		}()
	}
	wg.Wait()
	consumers.Wait()
	close(taken)

	seen := map[string]bool{}
	for id := range taken {
		if seen[id] {
			t.Fatalf("duplicate hand-out of %s", id)
		}
		seen[id] = true
	}
	if len(seen)+p.Len(StageTransition) != producers*perProducer {
		t.Fatalf("lost identifiers: taken=%d remaining=%d", len(seen), p.Len(StageTransition))
	}
}

func TestCatalog_Pick(t *testing.T) {
	var empty *Catalog
	if _, ok := empty.Pick(nil); ok {
		t.Fatal("nil catalog should be empty")
	}

	c := NewCatalog([]string{"a", "", "b", "c"})
	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}

	rnd := rand.New(rand.NewSource(7))
	counts := map[string]int{}
	for i := 0; i < 3000; i++ {
		id, ok := c.Pick(rnd)
		if !ok {
			t.Fatal("expected pick")
		}
		counts[id]++
	}
	for _, id := range []string{"a", "b", "c"} {
		if counts[id] < 800 {
			t.Fatalf("pick distribution skewed: %v", counts)
		}
	}
	if c.Len() != 3 {
		t.Fatal("picking must not remove entries")
	}

	ids := c.IDs()
	ids[0] = "mutated"
	if c.IDs()[0] != "a" {
		t.Fatal("IDs must return a copy")
	}
}
