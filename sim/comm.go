package sim

import (
	"errors"
	"fmt"
	"sync"
)

// World runs an SPMD computation: N ranks execute the identical function
// concurrently over disjoint data and coordinate only through blocking
// collectives. Rank k's view of the world is its Comm handle.
//
// Every rank must reach every collective in the same relative order. A rank
// that calls a different collective than its peers would deadlock a real
// message-passing run; here the mismatch is detected and panics instead.
type World struct {
	size int
	coll *collectiveState
}

// NewWorld creates a world of n ranks. Panics if n < 1.
func NewWorld(n int) *World {
	if n < 1 {
		panic("World: size must be >= 1")
	}
	return &World{size: n, coll: newCollectiveState(n)}
}

// Size returns the number of ranks.
func (w *World) Size() int {
	return w.size
}

// Run executes fn once per rank, concurrently, and blocks until every rank
// returns. The per-rank errors are joined in rank order.
func (w *World) Run(fn func(c *Comm) error) error {
	errs := make([]error, w.size)
	var wg sync.WaitGroup
	for rank := 0; rank < w.size; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			errs[rank] = fn(&Comm{rank: rank, size: w.size, coll: w.coll})
		}(rank)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Comm is one rank's handle on the world's collectives.
type Comm struct {
	rank int
	size int
	coll *collectiveState
}

// Rank returns this rank's index in [0, Size).
func (c *Comm) Rank() int { return c.rank }

// Size returns the number of ranks in the world.
func (c *Comm) Size() int { return c.size }

// Barrier blocks until every rank has called it.
func (c *Comm) Barrier() {
	c.coll.gather(c.rank, "barrier", nil)
}

// AllReduceSum returns the sum of v across all ranks, on every rank.
func (c *Comm) AllReduceSum(v int64) int64 {
	vals := c.coll.gather(c.rank, "allreduce_sum", v)
	var sum int64
	for _, x := range vals {
		sum += x.(int64)
	}
	return sum
}

// AllReduceMax returns the maximum of v across all ranks, on every rank.
func (c *Comm) AllReduceMax(v int64) int64 {
	vals := c.coll.gather(c.rank, "allreduce_max", v)
	max := vals[0].(int64)
	for _, x := range vals[1:] {
		if y := x.(int64); y > max {
			max = y
		}
	}
	return max
}

// AllReduceOr returns true on every rank if v is true on any rank.
func (c *Comm) AllReduceOr(v bool) bool {
	vals := c.coll.gather(c.rank, "allreduce_or", v)
	for _, x := range vals {
		if x.(bool) {
			return true
		}
	}
	return false
}

// ExScan returns the exclusive prefix sum of v over rank order: rank 0
// receives 0, rank k receives the sum of v from ranks 0..k-1.
func (c *Comm) ExScan(v int64) int64 {
	vals := c.coll.gather(c.rank, "exscan", v)
	var sum int64
	for r := 0; r < c.rank; r++ {
		sum += vals[r].(int64)
	}
	return sum
}

// AllGather concatenates each rank's slice in rank order and returns the
// full sequence on every rank.
func (c *Comm) AllGather(vals []int64) []int64 {
	parts := c.coll.gather(c.rank, "allgather", vals)
	var out []int64
	for _, p := range parts {
		out = append(out, p.([]int64)...)
	}
	return out
}

// AllError escalates a local error collectively: if any rank passes a
// non-nil error, every rank receives the lowest-rank error. Fatal conditions
// detected on one rank must abort all ranks together, or a later collective
// deadlocks.
func (c *Comm) AllError(err error) error {
	vals := c.coll.gather(c.rank, "allerror", err)
	for r, x := range vals {
		if x == nil {
			continue
		}
		e := x.(error)
		if e != nil {
			if r == c.rank {
				return e
			}
			return fmt.Errorf("rank %d: %w", r, e)
		}
	}
	return nil
}

// Exchange is the migrate-by-destination collective. send[d] holds the
// records this rank routes to rank d; the return value is everything routed
// to this rank, ordered by source rank and, within one source, in send order.
func (c *Comm) Exchange(send [][]Migrant) []Migrant {
	if len(send) != c.size {
		panic("Comm.Exchange: send must have one bucket per rank")
	}
	parts := c.coll.gather(c.rank, "exchange", send)
	var recv []Migrant
	for _, p := range parts {
		bySource := p.([][]Migrant)
		recv = append(recv, bySource[c.rank]...)
	}
	return recv
}

// collectiveState is the rendezvous shared by all ranks of one world.
// gather blocks the caller until all ranks of the current round have
// contributed, then releases the full contribution vector to every caller.
type collectiveState struct {
	mu    sync.Mutex
	cond  *sync.Cond
	size  int
	count int
	phase uint64
	name  string
	vals  []any
	out   []any
}

func newCollectiveState(size int) *collectiveState {
	s := &collectiveState{size: size}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *collectiveState) gather(rank int, name string, v any) []any {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count == 0 {
		s.name = name
		s.vals = make([]any, s.size)
	} else if s.name != name {
		panic(fmt.Sprintf("collective mismatch: rank %d called %q while round is %q (deadlock in a real run)",
			rank, name, s.name))
	}
	s.vals[rank] = v
	s.count++

	if s.count == s.size {
		s.out = s.vals
		s.count = 0
		s.phase++
		s.cond.Broadcast()
		return s.out
	}

	mine := s.phase
	for s.phase == mine {
		s.cond.Wait()
	}
	return s.out
}
